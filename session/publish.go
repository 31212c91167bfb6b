package session

import (
	"time"

	"github.com/pkg/errors"

	"github.com/bugVanisher/srs-session/errs"
	"github.com/bugVanisher/srs-session/rtmp"
	"github.com/bugVanisher/srs-session/socktune"
	"github.com/bugVanisher/srs-session/source"
)

// runPublishReceiveTask reads publisher messages and hands them to
// handlePublishMessage, maintaining the message count and the task's
// error slot.
func (d *Driver) runPublishReceiveTask(streamID uint32, src *source.Source, isFmle, vhostIsEdge bool, task *publishTask, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		msg, err := d.conn.RecvMessage()
		if err != nil {
			task.setErr(classifyIOError(err))
			return
		}
		task.incr()
		if err := d.handlePublishMessage(streamID, msg, isFmle, vhostIsEdge, src); err != nil {
			task.setErr(err)
			return
		}
	}
}

// handlePublishMessage dispatches one publisher message: commands drive
// republish handling, media goes to the Source.
func (d *Driver) handlePublishMessage(streamID uint32, msg *rtmp.Message, isFmle, vhostIsEdge bool, src *source.Source) error {
	if msg.IsAMFCommand() {
		pkt, err := d.conn.DecodeMessage(msg)
		if err != nil {
			return classifyIOError(err)
		}
		if !isFmle {
			// Flash publisher: any command message means republish.
			return errs.ErrRepublish
		}
		if fs, ok := pkt.(rtmp.FMLEStartPacket); ok {
			if err := d.conn.FmleUnpublish(streamID, fs.TransactionID); err != nil {
				return classifyIOError(err)
			}
			return errs.ErrRepublish
		}
		return nil
	}

	if vhostIsEdge {
		src.OnEdgeProxyPublish(msg)
		return nil
	}

	switch {
	case msg.IsAudio():
		src.OnAudio(msg)
	case msg.IsVideo():
		src.OnVideo(msg)
	case msg.IsAggregate():
		src.OnAggregate(msg)
	case msg.IsAMFData():
		pkt, err := d.conn.DecodeMessage(msg)
		if err == nil && pkt != nil && pkt.CommandName() == "onMetaData" {
			src.OnMetaData(msg)
		}
	}
	return nil
}

// publishLoop acquires the Source, runs the sidecar receive task, and
// enforces the first-packet/steady-state timeout pair.
func (d *Driver) publishLoop(streamID uint32, src *source.Source, isFmle bool) error {
	// Referer-publish policy is enforced here, after the publish ack, not
	// at identify time.
	if !d.deps.Referer.AllowPublish(d.req.PageUrl, d.vhost.ReferAll, d.vhost.ReferPublish) {
		return errs.ErrRefererDenied
	}

	vhostIsEdge := d.vhost.IsEdge

	if ok, herr := d.deps.Hooks.Check(d.hookURLs(d.vhost.OnPublish), d.hookPayload("on_publish")); !ok {
		return errors.Wrapf(errs.ErrHookDenied, "on_publish: %v", herr)
	}

	var acquired bool
	if vhostIsEdge {
		src.OnEdgeStartPublish(d.req.ClientIP)
		acquired = true
	} else {
		acquired = src.AcquirePublish(d.req.ClientIP, false)
	}
	if !acquired {
		// Give the active publisher a chance to wind down before the
		// rejected client retries.
		time.Sleep(rtmp.StreamBusySleep)
		return errs.ErrStreamBusy
	}

	// Release must run on every exit path once acquisition succeeded,
	// never when it failed busy.
	defer func() {
		src.OnUnpublish(d.req.ClientIP)
		d.deps.Hooks.Fire(d.hookURLs(d.vhost.OnUnpublish), d.hookPayload("on_unpublish"))
	}()

	if err := d.tuner.SetNoDelay(d.conn.NetConn(), d.state.TcpNodelay()); err != nil {
		d.log.Warn().Err(err).Msg("set tcp_nodelay failed")
	}
	if d.vhost.MrEnabled && d.vhost.MrSleepMs > 0 {
		if err := socktune.ChangeMrSleep(d.conn.NetConn(), d.vhost.MrSleepMs); err != nil {
			d.log.Warn().Err(err).Msg("change_mr_sleep failed")
		}
	}

	task := newPublishTask()
	stop := make(chan struct{})
	go d.runPublishReceiveTask(streamID, src, isFmle, vhostIsEdge, task, stop)
	defer close(stop)

	var firstPktSeen bool
	var lastNbMsgs int64
	loopStart := time.Now()

	for !d.state.Disposed() {
		if d.state.Expired() {
			return errs.ErrUserDisconnect
		}
		if err := d.tuner.SetNoDelay(d.conn.NetConn(), d.state.TcpNodelay()); err != nil {
			d.log.Debug().Err(err).Msg("reapply tcp_nodelay failed")
		}
		timeout := time.Duration(d.state.PublishFirstPktTimeoutMs()) * time.Millisecond
		if firstPktSeen {
			timeout = time.Duration(d.state.PublishNormalTimeoutMs()) * time.Millisecond
		}
		task.wait(timeout)

		if err := task.err(); err != nil {
			return err
		}
		n := task.nbMsgsVal()
		if n == lastNbMsgs {
			return errs.ErrSocketTimeout
		}
		firstPktSeen = true
		lastNbMsgs = n
		d.kbpsSample("publish", time.Since(loopStart))
	}

	return nil
}
