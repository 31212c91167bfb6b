package source

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bugVanisher/srs-session/rtmp"
)

func TestRegistryFetchOrCreateReturnsSameSourceForSameKey(t *testing.T) {
	r := NewRegistry()
	req := &rtmp.Request{Vhost: "live", App: "live", Stream: "x"}

	s1 := r.FetchOrCreate(req)
	s2 := r.FetchOrCreate(req)
	require.Same(t, s1, s2)
}

func TestRegistryFetchOrCreateDistinguishesByStream(t *testing.T) {
	r := NewRegistry()
	s1 := r.FetchOrCreate(&rtmp.Request{Vhost: "live", App: "live", Stream: "a"})
	s2 := r.FetchOrCreate(&rtmp.Request{Vhost: "live", App: "live", Stream: "b"})
	require.NotSame(t, s1, s2)
}

func TestRegistryReleaseDropsSourceWhenUnreferenced(t *testing.T) {
	r := NewRegistry()
	req := &rtmp.Request{Vhost: "live", App: "live", Stream: "x"}

	s1 := r.FetchOrCreate(req)
	r.Release(s1)

	_, tracked := r.sources[s1.SourceID()]
	require.False(t, tracked)
}

func TestRegistryReleaseKeepsSourceWhileStillReferenced(t *testing.T) {
	r := NewRegistry()
	req := &rtmp.Request{Vhost: "live", App: "live", Stream: "x"}

	s1 := r.FetchOrCreate(req)
	_ = r.FetchOrCreate(req) // second reference

	r.Release(s1)
	_, tracked := r.sources[s1.SourceID()]
	require.True(t, tracked)
}
