package session

import (
	"io"
	"net"
	"testing"

	"github.com/bugVanisher/srs-session/config"
	"github.com/bugVanisher/srs-session/rtmp"
	"github.com/bugVanisher/srs-session/security"
)

// newTestDriver builds a Driver wired to one end of an in-memory pipe, with
// the peer end drained in the background so server-side writes (replies,
// status messages) never block. It stops short of handshake/connect — the
// tests in this package exercise the control/publish dispatch helpers
// and the play/publish loops directly, not the full Run() state machine.
func newTestDriver(t *testing.T) (*Driver, net.Conn) {
	t.Helper()
	srv, cli := net.Pipe()
	t.Cleanup(func() {
		srv.Close()
		cli.Close()
	})
	go io.Copy(io.Discard, cli)

	conn := rtmp.NewConn(srv, rtmp.RoleServer)
	d := NewDriver(conn, Deps{Referer: security.NewRefererChecker()})
	d.req = &rtmp.Request{Vhost: "live", App: "live", Stream: "x"}
	d.vhost = &config.Vhost{Name: "live", Enabled: true}
	d.state = NewState(d.vhost)
	return d, cli
}
