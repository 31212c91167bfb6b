package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bugVanisher/srs-session/config"
	"github.com/bugVanisher/srs-session/errs"
	"github.com/bugVanisher/srs-session/hooks"
	"github.com/bugVanisher/srs-session/rtmp"
	"github.com/bugVanisher/srs-session/security"
	"github.com/bugVanisher/srs-session/socktune"
	"github.com/bugVanisher/srs-session/source"
	"github.com/bugVanisher/srs-session/stats"
)

// HookDispatcher is the subset of hooks.Dispatcher the Driver depends on.
// Declared here, rather than depending on the concrete type directly, so
// tests can substitute internal/mocks.MockHookDispatcher instead of
// standing up real HTTP listeners for on_connect/on_publish/on_play.
type HookDispatcher interface {
	Fire(urls []string, payload hooks.Payload)
	Check(urls []string, payload hooks.Payload) (bool, error)
}

// Deps bundles the collaborators a Driver needs. They are injected rather
// than reached for as package-level state, so tests can substitute every
// one of them.
type Deps struct {
	Config   *config.Store
	Sources  *source.Registry
	Hooks    HookDispatcher
	Referer  *security.RefererChecker
	Security *security.Policy
	LocalIP  string
	ServerID string
}

// Driver owns one accepted connection end-to-end, from handshake through
// whichever play/publish cycles the client runs, until a non-recoverable
// error or clean close.
type Driver struct {
	deps Deps
	conn *rtmp.Conn
	req  *rtmp.Request

	state *State
	rate  *stats.RateSampler
	tuner socktune.Tuner

	vhost *config.Vhost
	sub   *config.Subscription

	log zerolog.Logger
}

func NewDriver(conn *rtmp.Conn, deps Deps) *Driver {
	return &Driver{
		deps:  deps,
		conn:  conn,
		req:   &rtmp.Request{},
		state: NewState(&config.Vhost{}),
		rate:  stats.NewRateSampler(),
		log:   log.With().Str("remote_addr", conn.RemoteAddr()).Logger(),
	}
}

// Dispose is idempotent and safe from any goroutine; it never touches the
// file descriptor (rtmp.Conn owns that).
func (d *Driver) Dispose() {
	d.state.Dispose()
}

// Run executes the full session: handshake, connect_app, vhost checks,
// then stream service cycles until the client goes away. It returns nil on
// a caller-initiated stop (Dispose), a graceful client close, or an idle
// socket timeout; every other exit returns the error.
func (d *Driver) Run(ctx context.Context) error {
	d.log.Info().Msg("client accepted")
	d.conn.SetRecvTimeout(rtmp.RtmpTimeout)
	d.conn.SetSendTimeout(rtmp.RtmpTimeout)

	defer func() {
		d.deps.Hooks.Fire(d.vhostOnCloseURLs(), d.hookPayload("on_close"))
	}()

	if err := d.conn.Handshake(); err != nil {
		return errs.NewProtocolError("handshake", err)
	}
	if err := d.conn.ConnectApp(d.req, nil); err != nil {
		return errs.NewProtocolError("connect_app", err)
	}
	d.req.ClientIP = rtmp.ClientIPOf(d.conn.RemoteAddr())

	vhost, ok := d.deps.Config.Vhost(d.req.Vhost)
	if !ok {
		return errs.ErrVhostMissing
	}
	if !vhost.Enabled {
		return errs.ErrVhostDisabled
	}
	if !d.req.Valid() {
		return errs.ErrBadTcUrl
	}
	d.req.Vhost = vhost.Name
	d.vhost = vhost
	d.state.Seed(vhost)
	d.log = d.log.With().Str("vhost", vhost.Name).Str("app", d.req.App).Logger()

	d.sub = d.deps.Config.Subscribe(vhost.Name)
	defer d.sub.Close()
	stopReload := make(chan struct{})
	go d.reloadLoop(stopReload)
	defer close(stopReload)

	if !d.deps.Referer.Allow(d.req.PageUrl, vhost.ReferAll) {
		return errs.ErrRefererDenied
	}
	if ok, herr := d.deps.Hooks.Check(d.hookURLs(vhost.OnConnect), d.hookPayload("on_connect")); !ok {
		return errors.Wrapf(errs.ErrHookDenied, "on_connect: %v", herr)
	}

	if err := d.runServiceLoopSetup(ctx, vhost); err != nil {
		return err
	}

	for {
		err := d.streamServiceCycle()
		switch {
		case err == nil:
			return nil
		case errors.Is(err, errs.ErrRepublish):
			d.conn.SetRecvTimeout(rtmp.RepublishTimeout)
			d.conn.SetSendTimeout(rtmp.RepublishTimeout)
			continue
		case errors.Is(err, errs.ErrRtmpClose):
			d.conn.SetRecvTimeout(rtmp.PausedTimeout)
			d.conn.SetSendTimeout(rtmp.PausedTimeout)
			continue
		case errors.Is(err, errs.ErrClientInvalid):
			return err
		case errors.Is(err, errs.ErrSocketTimeout), errors.Is(err, errs.ErrClientGracefulClose):
			return nil
		case errors.Is(err, errs.ErrUserDisconnect), errors.Is(err, errs.ErrDurationExceeded):
			// Local decisions (vhost removed, duration limit reached), not
			// wire failures; surface them without an error-level log.
			return err
		default:
			d.log.Error().Err(err).Msg("session service cycle failed")
			return err
		}
	}
}

// runServiceLoopSetup sends the connect-phase control sequence:
// window-ack/peer bandwidth, optional edge token traversal, chunk size,
// response_connect_app, on_bw_done.
func (d *Driver) runServiceLoopSetup(ctx context.Context, vhost *config.Vhost) error {
	if err := d.conn.SetWindowAckSize(rtmp.WindowAckSize); err != nil {
		return classifyIOError(err)
	}
	if err := d.conn.SetPeerBandwidth(rtmp.PeerBandwidth, rtmp.PeerBandwidthType); err != nil {
		return classifyIOError(err)
	}

	if vhost.BwCheckEnabled {
		// No bandwidth-test engine is wired in this build; the probe is
		// skipped rather than failing the connect.
		d.log.Debug().Msg("bw_check_enabled set, bandwidth probe not supported")
	}

	if vhost.IsEdge && vhost.EdgeTokenTraverse {
		if err := d.edgeTokenTraversal(ctx, vhost); err != nil {
			return err
		}
	}

	if vhost.ChunkSize > 0 {
		if err := d.conn.SetChunkSize(uint32(vhost.ChunkSize)); err != nil {
			return classifyIOError(err)
		}
	}
	if err := d.conn.ResponseConnectApp(d.req, d.deps.LocalIP); err != nil {
		return classifyIOError(err)
	}
	return classifyIOError(d.conn.OnBWDone())
}

// hookURLs returns urls when http hooks are enabled for the resolved
// vhost, nil otherwise; an empty list makes Fire a no-op and Check an
// unconditional allow.
func (d *Driver) hookURLs(urls []string) []string {
	if d.vhost == nil || !d.vhost.HttpHooksEnabled {
		return nil
	}
	return urls
}

func (d *Driver) vhostOnCloseURLs() []string {
	if d.vhost == nil {
		return nil
	}
	return d.hookURLs(d.vhost.OnClose)
}

// hookPayload builds the webhook body for action, carrying the cumulative
// socket byte counters the way on_close(send_bytes, recv_bytes) needs.
func (d *Driver) hookPayload(action string) hooks.Payload {
	p := hooks.Payload{
		Action:    action,
		IP:        d.req.ClientIP,
		Vhost:     d.req.Vhost,
		App:       d.req.App,
		Stream:    d.req.Stream,
		Param:     d.req.Param,
		SendBytes: int64(d.conn.TxBytes()),
		RecvBytes: int64(d.conn.RxBytes()),
	}
	d.rate.Sample(d.conn.TxBytes(), d.conn.RxBytes())
	return p
}

// kbpsSample logs the current rate-sampler reading. label identifies the
// call site for the log line; it is never branched on.
func (d *Driver) kbpsSample(label string, age time.Duration) {
	d.rate.Sample(d.conn.TxBytes(), d.conn.RxBytes())
	d.log.Debug().
		Str("label", label).
		Dur("age", age).
		Int64("send_kbps", d.rate.SendKbps()).
		Int64("recv_kbps", d.rate.RecvKbps()).
		Msg("kbps_sample")
}
