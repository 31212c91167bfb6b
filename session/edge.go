package session

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/bugVanisher/srs-session/config"
	"github.com/bugVanisher/srs-session/errs"
	"github.com/bugVanisher/srs-session/rtmp"
)

// edgeTokenTraversal proves an upstream origin accepts this connection's
// connect parameters before the edge serves it: try each configured
// origin in order with a short connect timeout, fall back to the next on
// any failure, and propagate the last error if every origin refuses.
func (d *Driver) edgeTokenTraversal(ctx context.Context, vhost *config.Vhost) error {
	if len(vhost.EdgeOrigin) == 0 {
		return errors.Wrap(errs.ErrTokenTraversalFailed, "no edge origins configured")
	}

	// debug_srs_upnode gates whether the edge identifies itself in the
	// upstream connect args.
	var args map[string]interface{}
	if vhost.DebugSrsUpnode {
		args = d.identityArgs()
	}

	var lastErr error
	for _, origin := range vhost.EdgeOrigin {
		hostport := rtmp.RepairHostPort(origin)
		client, err := DialUpstream(ctx, hostport, rtmp.EdgeTokenTraverseTimeout)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", hostport, err)
			continue
		}
		err = client.ConnectApp(d.req, args, rtmp.EdgeTokenTraverseTimeout)
		client.Close()
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", hostport, err)
			continue
		}
		d.log.Info().Str("origin", hostport).Msg("edge token traversal succeeded")
		return nil
	}
	return errors.Wrapf(errs.ErrTokenTraversalFailed, "%v", lastErr)
}

// identityArgs are the connect-args fields an origin uses to recognize an
// edge relay and extend token-relevant handling.
func (d *Driver) identityArgs() map[string]interface{} {
	return map[string]interface{}{
		"srs_server":    "srs-session",
		"srs_pid":       float64(os.Getpid()),
		"srs_id":        d.deps.ServerID,
		"srs_server_ip": d.deps.LocalIP,
		"srs_version":   "1.0",
	}
}
