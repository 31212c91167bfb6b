package session

import (
	"github.com/pkg/errors"

	"github.com/bugVanisher/srs-session/errs"
	"github.com/bugVanisher/srs-session/rtmp"
)

// streamServiceCycle runs one stream episode: identify the client, run
// the per-type security check, fetch the Source, and dispatch into the
// play or publish loop. Republish re-enters this from Run's recovery
// table.
func (d *Driver) streamServiceCycle() error {
	streamID, typ, stream, duration, err := d.conn.IdentifyClient()
	if err != nil {
		return classifyIOError(err)
	}

	d.req.Stream = stream
	d.req.Duration = duration
	d.req.Strip()

	switch typ {
	case rtmp.SessionPlay, rtmp.SessionPublishFmle, rtmp.SessionPublishFlash:
	default:
		return errs.ErrClientInvalid
	}
	if !d.deps.Security.Allows(typ != rtmp.SessionPlay, d.req.ClientIP) {
		return errs.ErrSecurityDenied
	}

	d.conn.SetRecvTimeout(rtmp.RtmpTimeout)
	d.conn.SetSendTimeout(rtmp.RtmpTimeout)

	src := d.deps.Sources.FetchOrCreate(d.req)
	defer d.deps.Sources.Release(src)
	src.SetCache(d.vhost.GopCache)

	switch typ {
	case rtmp.SessionPlay:
		if err := d.conn.StartPlay(streamID); err != nil {
			return classifyIOError(err)
		}
		if ok, herr := d.deps.Hooks.Check(d.hookURLs(d.vhost.OnPlay), d.hookPayload("on_play")); !ok {
			return errors.Wrapf(errs.ErrHookDenied, "on_play: %v", herr)
		}
		playErr := d.playLoop(streamID, src)
		// on_stop fires unconditionally once on_play succeeded, regardless
		// of play outcome.
		d.deps.Hooks.Fire(d.hookURLs(d.vhost.OnStop), d.hookPayload("on_stop"))
		return playErr
	case rtmp.SessionPublishFmle:
		if err := d.conn.StartFmlePublish(streamID); err != nil {
			return classifyIOError(err)
		}
		return d.publishLoop(streamID, src, true)
	case rtmp.SessionPublishFlash:
		if err := d.conn.StartFlashPublish(streamID); err != nil {
			return classifyIOError(err)
		}
		return d.publishLoop(streamID, src, false)
	default:
		return errs.ErrClientInvalid
	}
}
