package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMwSleepDefaultsWhenUnset(t *testing.T) {
	v := &Vhost{}
	require.Equal(t, 350*time.Millisecond, v.MwSleep())
}

func TestMwSleepUsesConfiguredValue(t *testing.T) {
	v := &Vhost{MwSleepMs: 100}
	require.Equal(t, 100*time.Millisecond, v.MwSleep())
}

func TestSendMinIntervalDurationZeroWhenUnset(t *testing.T) {
	v := &Vhost{}
	require.Equal(t, time.Duration(0), v.SendMinIntervalDuration())
}

func TestSendMinIntervalDurationConvertsFractionalMillis(t *testing.T) {
	v := &Vhost{SendMinInterval: 2.5}
	require.Equal(t, 2500*time.Microsecond, v.SendMinIntervalDuration())
}

func TestPublishFirstPktTimeoutDefaultsTo20s(t *testing.T) {
	v := &Vhost{}
	require.Equal(t, 20*time.Second, v.PublishFirstPktTimeout())
}

func TestPublishNormalTimeoutDefaultsTo5s(t *testing.T) {
	v := &Vhost{}
	require.Equal(t, 5*time.Second, v.PublishNormalTimeout())
}

func TestDefaultVhostSeedsSaneOperationalValues(t *testing.T) {
	v := defaultVhost("live")
	require.True(t, v.Enabled)
	require.Equal(t, 350, v.MwSleepMs)
	require.True(t, v.GopCache)
	require.True(t, v.DebugSrsUpnode)
	require.Equal(t, 60000, v.ChunkSize)
	require.Equal(t, 20000, v.PublishFirstPktTimeoutMs)
	require.Equal(t, 5000, v.PublishNormalTimeoutMs)
}
