package source

import (
	"sync"

	"github.com/bugVanisher/srs-session/rtmp"
)

// Registry is the process-wide Source table keyed by (vhost, app, stream):
// fetch existing or create, refcount, drop when empty.
type Registry struct {
	mu      sync.Mutex
	sources map[string]*Source
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]*Source)}
}

// FetchOrCreate returns the existing Source for req's (vhost,app,stream)
// or creates one.
func (r *Registry) FetchOrCreate(req *rtmp.Request) *Source {
	key := req.Vhost + "/" + req.App + "/" + req.Stream
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sources[key]
	if !ok {
		s = newSource(req.Vhost, req.App, req.Stream)
		r.sources[key] = s
	}
	s.refs++
	return s
}

// Release drops the caller's reference; once no session references a
// Source, it is removed from the table. Sources with active consumers or a
// live publisher still count as referenced by those callers, so this is
// safe to call from StreamServiceCycle teardown even while other sessions
// use the same Source.
func (r *Registry) Release(s *Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.refs--
	if s.refs <= 0 {
		delete(r.sources, s.SourceID())
	}
}
