// Package source implements the shared live stream aggregator: GOP cache,
// metadata, and consumer fan-out for one (vhost, app, stream) triple.
package source

import (
	"container/list"
	"sync"

	"github.com/bugVanisher/srs-session/rtmp"
)

// defaultGopCacheLimit bounds the GOP cache by byte size.
const defaultGopCacheLimit = 8 << 20 // 8MiB

// Source is the shared, reference-counted live stream aggregator. It is not
// owned by any one session; its lifetime outlives any one connection.
type Source struct {
	mu sync.RWMutex

	vhost, app, stream string

	metaData          *rtmp.Message
	aacSequenceHeader *rtmp.Message
	avcSequenceHeader *rtmp.Message

	gopCache      *list.List
	gopCacheBytes int
	gopCacheLimit int
	cacheEnabled  bool

	consumers map[*Consumer]struct{}

	publishing  bool
	publisherID string
	isEdge      bool

	refs int
}

func newSource(vhost, app, stream string) *Source {
	return &Source{
		vhost:         vhost,
		app:           app,
		stream:        stream,
		gopCache:      list.New(),
		gopCacheLimit: defaultGopCacheLimit,
		cacheEnabled:  true,
		consumers:     make(map[*Consumer]struct{}),
	}
}

func (s *Source) SourceID() string {
	return s.vhost + "/" + s.app + "/" + s.stream
}

// SetCache toggles whether new media is retained in the GOP cache, per
// vhost gop_cache config.
func (s *Source) SetCache(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheEnabled = enabled
	if !enabled {
		s.gopCache.Init()
		s.gopCacheBytes = 0
	}
}

// CanPublish reports whether a new publisher may acquire this Source. Edge
// sources always accept (origin arbitrates); origin sources reject while
// already publishing, surfacing errs.ErrStreamBusy to the caller.
func (s *Source) CanPublish(isEdge bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if isEdge {
		return true
	}
	return !s.publishing
}

// OnPublish marks the Source as actively published by publisherID. It does
// not check CanPublish first; the session driver claims a Source through
// AcquirePublish, which checks and claims under a single lock.
func (s *Source) OnPublish(publisherID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishing = true
	s.publisherID = publisherID
}

// AcquirePublish atomically checks CanPublish and, if available, claims the
// Source for publisherID. Returns false if another publisher already holds
// it (edge sources never fail this check).
func (s *Source) AcquirePublish(publisherID string, isEdge bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !isEdge && s.publishing {
		return false
	}
	s.publishing = true
	s.publisherID = publisherID
	s.isEdge = isEdge
	return true
}

func (s *Source) OnEdgeStartPublish(publisherID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishing = true
	s.publisherID = publisherID
	s.isEdge = true
}

// OnUnpublish releases the Source. Safe to call even if no publish was
// acquired; the session driver only calls it when acquisition succeeded.
func (s *Source) OnUnpublish(publisherID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.publisherID != publisherID {
		return
	}
	s.publishing = false
	s.publisherID = ""
	s.metaData = nil
	s.aacSequenceHeader = nil
	s.avcSequenceHeader = nil
	s.gopCache.Init()
	s.gopCacheBytes = 0
}

func (s *Source) OnEdgeProxyUnpublish(publisherID string) {
	s.OnUnpublish(publisherID)
}

// OnAudio/OnVideo/OnAggregate push a media message into the GOP cache (when
// caching is enabled; the oldest entries are evicted once the byte budget is
// exceeded, and the cache is not aligned to keyframes) and fan it out to
// every consumer, in receive order.
func (s *Source) OnAudio(msg *rtmp.Message)     { s.dispatch(msg) }
func (s *Source) OnVideo(msg *rtmp.Message)     { s.dispatch(msg) }
func (s *Source) OnAggregate(msg *rtmp.Message) { s.dispatch(msg) }

// OnMetaData stores the onMetaData payload so new consumers can be primed
// with it before the GOP cache replay.
func (s *Source) OnMetaData(msg *rtmp.Message) {
	s.mu.Lock()
	s.metaData = msg
	s.mu.Unlock()
}

// OnEdgeProxyPublish forwards a publisher message as-is when this Source is
// an edge relay (vhost_is_edge), bypassing GOP-cache bookkeeping — the
// origin owns caching.
func (s *Source) OnEdgeProxyPublish(msg *rtmp.Message) {
	s.fanOut(msg)
}

func (s *Source) dispatch(msg *rtmp.Message) {
	s.mu.Lock()
	if s.cacheEnabled {
		s.pushGopCacheLocked(msg)
	}
	s.mu.Unlock()
	s.fanOut(msg)
}

func (s *Source) pushGopCacheLocked(msg *rtmp.Message) {
	s.gopCache.PushBack(msg)
	s.gopCacheBytes += len(msg.Data)
	for s.gopCacheBytes > s.gopCacheLimit && s.gopCache.Len() > 0 {
		front := s.gopCache.Front()
		old := front.Value.(*rtmp.Message)
		s.gopCacheBytes -= len(old.Data)
		s.gopCache.Remove(front)
	}
}

func (s *Source) fanOut(msg *rtmp.Message) {
	s.mu.RLock()
	targets := make([]*Consumer, 0, len(s.consumers))
	for c := range s.consumers {
		targets = append(targets, c)
	}
	s.mu.RUnlock()
	for _, c := range targets {
		c.enqueue(msg)
	}
}

// CreateConsumer allocates a new play handle, priming it with the current
// metadata and GOP cache so the new viewer doesn't wait for the next
// keyframe.
func (s *Source) CreateConsumer() *Consumer {
	c := newConsumer(s)
	s.mu.Lock()
	s.consumers[c] = struct{}{}
	if s.metaData != nil {
		c.enqueue(s.metaData)
	}
	for e := s.gopCache.Front(); e != nil; e = e.Next() {
		c.enqueue(e.Value.(*rtmp.Message))
	}
	s.mu.Unlock()
	return c
}

func (s *Source) removeConsumer(c *Consumer) {
	s.mu.Lock()
	delete(s.consumers, c)
	s.mu.Unlock()
}
