// Package session implements the per-connection RTMP session driver:
// handshake through connect/identify, the play and publish loops, edge
// token traversal, and config hot-reload.
package session

import (
	"sync/atomic"

	"github.com/bugVanisher/srs-session/config"
	"github.com/bugVanisher/srs-session/source"
)

// State holds the per-session flags and tunables. The ones the
// play/publish loops read at loop-top and the reload subscriber mutates
// from a different goroutine are plain atomics, never a mutex-guarded
// struct: reload is a message, not a mutex.
type State struct {
	disposed atomic.Bool
	expired  atomic.Bool

	mwSleepMs         atomic.Int32
	mwEnabled         atomic.Bool
	realtime          atomic.Bool
	sendMinIntervalMs atomic.Value // float64

	tcpNodelay atomic.Bool

	publishFirstPktTimeoutMs atomic.Int32
	publishNormalTimeoutMs   atomic.Int32

	wakable atomic.Pointer[source.Consumer]
}

func NewState(v *config.Vhost) *State {
	s := &State{}
	s.Seed(v)
	return s
}

// Seed (re)loads the vhost-derived fields. publishNormalTimeoutMs is
// deliberately seeded from the same publish_1stpkt_timeout key as
// publishFirstPktTimeoutMs; the vhost_publish reload path corrects it
// from publish_normal_timeout afterwards. Disposal and expiry flags are
// left untouched so a Dispose racing session setup still wins.
func (s *State) Seed(v *config.Vhost) {
	s.mwSleepMs.Store(int32(v.MwSleepMs))
	s.mwEnabled.Store(true)
	s.realtime.Store(v.RealtimeEnabled)
	s.sendMinIntervalMs.Store(v.SendMinInterval)
	s.tcpNodelay.Store(v.TcpNodelay)
	s.publishFirstPktTimeoutMs.Store(int32(v.PublishFirstPktTimeoutMs))
	s.publishNormalTimeoutMs.Store(int32(v.PublishFirstPktTimeoutMs))
}

func (s *State) Dispose() {
	if s.disposed.CompareAndSwap(false, true) {
		s.Wakeup()
	}
}

func (s *State) Disposed() bool { return s.disposed.Load() }

// Expire marks the session for a clean local-decision exit (vhost removed
// or disabled). It deliberately does not touch the socket; expired is
// polled at loop boundaries only.
func (s *State) Expire()      { s.expired.Store(true) }
func (s *State) Expired() bool { return s.expired.Load() }

func (s *State) MwSleepMs() int32     { return s.mwSleepMs.Load() }
func (s *State) SetMwSleepMs(ms int32) { s.mwSleepMs.Store(ms) }

func (s *State) MwEnabled() bool      { return s.mwEnabled.Load() }
func (s *State) Realtime() bool       { return s.realtime.Load() }
func (s *State) SetRealtime(v bool)   { s.realtime.Store(v) }

func (s *State) SendMinIntervalMs() float64 {
	v, _ := s.sendMinIntervalMs.Load().(float64)
	return v
}
func (s *State) SetSendMinIntervalMs(ms float64) { s.sendMinIntervalMs.Store(ms) }

func (s *State) TcpNodelay() bool     { return s.tcpNodelay.Load() }
func (s *State) SetTcpNodelay(v bool) { s.tcpNodelay.Store(v) }

func (s *State) PublishFirstPktTimeoutMs() int32 { return s.publishFirstPktTimeoutMs.Load() }
func (s *State) PublishNormalTimeoutMs() int32   { return s.publishNormalTimeoutMs.Load() }

func (s *State) SetPublishTimeouts(firstPkt, normal int32) {
	s.publishFirstPktTimeoutMs.Store(firstPkt)
	s.publishNormalTimeoutMs.Store(normal)
}

// SetWakable registers the Consumer the play loop currently owns as the
// Dispose wakeup target. ClearWakable revokes it at loop exit: a plain
// pointer swap under a single owner, not a weak reference.
func (s *State) SetWakable(c *source.Consumer) { s.wakable.Store(c) }
func (s *State) ClearWakable()                 { s.wakable.Store(nil) }

// Wakeup unblocks whatever Consumer.Wait is currently outstanding, if any.
// Safe to call from any goroutine.
func (s *State) Wakeup() {
	if c := s.wakable.Load(); c != nil {
		c.Wakeup()
	}
}
