package session

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bugVanisher/srs-session/config"
	"github.com/bugVanisher/srs-session/errs"
)

func TestEdgeTokenTraversalNoOriginsConfiguredFailsFast(t *testing.T) {
	d, _ := newTestDriver(t)
	err := d.edgeTokenTraversal(context.Background(), &config.Vhost{Name: "live"})
	require.ErrorIs(t, err, errs.ErrTokenTraversalFailed)
}

// A refused first origin does not abort the attempt: the next configured
// origin is dialed, and the aggregate failure mentions the last host once
// every origin has been exhausted.
func TestEdgeTokenTraversalTriesEachOriginInOrder(t *testing.T) {
	// origin1: nothing listening, dial is refused immediately.
	refused := mustFreeAddr(t)

	// origin2: accepts the TCP connection then closes it before any
	// handshake bytes are exchanged, so ConnectApp fails fast on EOF
	// rather than waiting out the full traversal timeout.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
	}()

	d, _ := newTestDriver(t)
	vhost := &config.Vhost{Name: "live", EdgeOrigin: []string{refused, ln.Addr().String()}}

	err = d.edgeTokenTraversal(context.Background(), vhost)
	require.ErrorIs(t, err, errs.ErrTokenTraversalFailed)
	require.Contains(t, err.Error(), ln.Addr().String())
}

func TestIdentityArgsCarriesServerIdentity(t *testing.T) {
	d, _ := newTestDriver(t)
	d.deps.ServerID = "srv-1"
	d.deps.LocalIP = "10.0.0.1"

	args := d.identityArgs()
	require.Equal(t, "srv-1", args["srs_id"])
	require.Equal(t, "10.0.0.1", args["srs_server_ip"])
}

func mustFreeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}
