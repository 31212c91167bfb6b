package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bugVanisher/srs-session/config"
	"github.com/bugVanisher/srs-session/rtmp"
)

func TestVhostOnCloseURLsReturnsConfiguredHooks(t *testing.T) {
	d, _ := newTestDriver(t)
	d.vhost = &config.Vhost{Name: "live", HttpHooksEnabled: true, OnClose: []string{"http://a", "http://b"}}
	require.Equal(t, []string{"http://a", "http://b"}, d.vhostOnCloseURLs())
}

func TestHookURLsNilWhenHttpHooksDisabled(t *testing.T) {
	d, _ := newTestDriver(t)
	d.vhost = &config.Vhost{Name: "live", OnPublish: []string{"http://hook"}}
	require.Nil(t, d.hookURLs(d.vhost.OnPublish))

	d.vhost.HttpHooksEnabled = true
	require.Equal(t, []string{"http://hook"}, d.hookURLs(d.vhost.OnPublish))
}

func TestVhostOnCloseURLsNilWhenNoVhostResolved(t *testing.T) {
	d, _ := newTestDriver(t)
	d.vhost = nil
	require.Nil(t, d.vhostOnCloseURLs())
}

func TestHookPayloadCarriesRequestFieldsAndRate(t *testing.T) {
	d, _ := newTestDriver(t)
	d.req = &rtmp.Request{ClientIP: "1.2.3.4", Vhost: "live", App: "live", Stream: "x", Param: "?k=v"}

	p := d.hookPayload("on_publish")
	require.Equal(t, "on_publish", p.Action)
	require.Equal(t, "1.2.3.4", p.IP)
	require.Equal(t, "live", p.Vhost)
	require.Equal(t, "live", p.App)
	require.Equal(t, "x", p.Stream)
	require.Equal(t, "?k=v", p.Param)
	require.GreaterOrEqual(t, p.SendBytes, int64(0))
	require.GreaterOrEqual(t, p.RecvBytes, int64(0))
}

// kbpsSample's label identifies the call site for the log line only, and
// is never branched on.
func TestKbpsSampleIgnoresLabelButDoesNotPanic(t *testing.T) {
	d, _ := newTestDriver(t)
	require.NotPanics(t, func() {
		d.kbpsSample("whatever-label", 5*time.Second)
		d.kbpsSample("a-different-label-entirely", 0)
	})
}
