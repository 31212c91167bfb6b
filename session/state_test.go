package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bugVanisher/srs-session/config"
	"github.com/bugVanisher/srs-session/rtmp"
	"github.com/bugVanisher/srs-session/source"
)

// TestPublishTimeoutAliasBug pins the deliberate seeding quirk:
// publishNormalTimeoutMs starts from the same publish_1stpkt_timeout
// vhost key as publishFirstPktTimeoutMs, until the first publish reload
// corrects it.
func TestPublishTimeoutAliasBug(t *testing.T) {
	v := &config.Vhost{
		Name:                     "live",
		PublishFirstPktTimeoutMs: 20000,
		PublishNormalTimeoutMs:   5000,
	}
	s := NewState(v)

	require.Equal(t, int32(20000), s.PublishFirstPktTimeoutMs())
	require.Equal(t, int32(20000), s.PublishNormalTimeoutMs(),
		"publishNormalTimeoutMs must alias the first-packet key until the first publish reload")

	// A vhost_publish reload corrects it from the separate key.
	s.SetPublishTimeouts(int32(v.PublishFirstPktTimeoutMs), int32(v.PublishNormalTimeoutMs))
	require.Equal(t, int32(5000), s.PublishNormalTimeoutMs())
}

func TestStateDisposeIsIdempotentAndWakesConsumer(t *testing.T) {
	v := &config.Vhost{Name: "live"}
	s := NewState(v)

	src := source.NewRegistry()
	consumer := src.FetchOrCreate(&rtmp.Request{Vhost: "live", App: "live", Stream: "x"}).CreateConsumer()
	defer consumer.Close()
	s.SetWakable(consumer)

	s.Dispose()
	require.True(t, s.Disposed())
	s.Dispose() // idempotent, must not panic or double-close anything
	require.True(t, s.Disposed())
}

func TestStateExpiredIsIndependentOfDisposed(t *testing.T) {
	s := NewState(&config.Vhost{Name: "live"})
	require.False(t, s.Expired())
	s.Expire()
	require.True(t, s.Expired())
	require.False(t, s.Disposed())
}

func TestClearWakableRevokesHandle(t *testing.T) {
	src := source.NewRegistry()
	consumer := src.FetchOrCreate(&rtmp.Request{Vhost: "live", App: "live", Stream: "x"}).CreateConsumer()
	defer consumer.Close()

	s := NewState(&config.Vhost{Name: "live"})
	s.SetWakable(consumer)
	s.ClearWakable()

	// Wakeup on a cleared handle must not panic even though a Consumer
	// still technically exists elsewhere.
	require.NotPanics(t, s.Wakeup)
}

func TestStateAtomicFieldsRoundTrip(t *testing.T) {
	s := NewState(&config.Vhost{Name: "live"})

	s.SetRealtime(true)
	require.True(t, s.Realtime())

	s.SetTcpNodelay(true)
	require.True(t, s.TcpNodelay())

	s.SetSendMinIntervalMs(12.5)
	require.Equal(t, 12.5, s.SendMinIntervalMs())

	s.SetMwSleepMs(700)
	require.Equal(t, int32(700), s.MwSleepMs())
}
