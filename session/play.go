package session

import (
	"time"

	"github.com/bugVanisher/srs-session/errs"
	"github.com/bugVanisher/srs-session/rtmp"
	"github.com/bugVanisher/srs-session/socktune"
	"github.com/bugVanisher/srs-session/source"
	"github.com/bugVanisher/srs-session/stats"
)

// runPlayReceiveTask is the sidecar goroutine the play loop starts to
// absorb inbound command messages (pause/close/call) while the driver's
// own goroutine is busy delivering media.
func (d *Driver) runPlayReceiveTask(task *controlTask, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		msg, err := d.conn.RecvMessage()
		if err != nil {
			task.setErr(classifyIOError(err))
			d.state.Wakeup()
			return
		}
		if !msg.IsAMFCommand() {
			continue
		}
		pkt, derr := d.conn.DecodeMessage(msg)
		if derr != nil {
			task.setErr(classifyIOError(derr))
			d.state.Wakeup()
			return
		}
		if pkt == nil {
			continue
		}
		task.push(pkt)
		d.state.Wakeup()
	}
}

// playLoop delivers media to the client: merged-write pacing against the
// Consumer, draining the sidecar task between batches, and enforcing
// request.Duration.
func (d *Driver) playLoop(streamID uint32, src *source.Source) error {
	consumer := src.CreateConsumer()
	d.state.SetWakable(consumer)
	defer func() {
		d.state.ClearWakable()
		consumer.Close()
	}()

	// Referer-play policy is enforced here, after the play ack and the
	// on_play hook, not at identify time.
	if !d.deps.Referer.AllowPlay(d.req.PageUrl, d.vhost.ReferAll, d.vhost.ReferPlay) {
		return errs.ErrRefererDenied
	}

	if err := d.tuner.SetNoDelay(d.conn.NetConn(), d.state.TcpNodelay()); err != nil {
		d.log.Warn().Err(err).Msg("set tcp_nodelay failed")
	}
	mwSleepMs := d.state.MwSleepMs()
	if err := socktune.ChangeMwSleep(d.conn.NetConn(), int(mwSleepMs)); err != nil {
		d.log.Warn().Err(err).Msg("change_mw_sleep failed")
	}

	task := newControlTask()
	stop := make(chan struct{})
	go d.runPlayReceiveTask(task, stop)
	defer close(stop)

	duration := stats.NewDurationMeter()
	loopStart := time.Now()

	for !d.state.Disposed() {
		if d.state.Expired() {
			return errs.ErrUserDisconnect
		}
		// Reload may have flipped tcp_nodelay; the tuner only touches the
		// fd when the value actually changed.
		if err := d.tuner.SetNoDelay(d.conn.NetConn(), d.state.TcpNodelay()); err != nil {
			d.log.Debug().Err(err).Msg("reapply tcp_nodelay failed")
		}
		for _, raw := range task.drain() {
			pkt, ok := raw.(rtmp.Packet)
			if !ok {
				continue
			}
			if err := d.processPlayControlMsg(streamID, consumer, pkt); err != nil {
				return err
			}
		}
		if err := task.err(); err != nil {
			return err
		}

		// Realtime (or merged-write disabled) delivers as soon as anything
		// is queued instead of batching up to MwMinMsgs.
		minMsgs := 0
		if d.state.MwEnabled() && !d.state.Realtime() {
			minMsgs = rtmp.MwMinMsgs
		}
		consumer.Wait(minMsgs, time.Duration(d.state.MwSleepMs())*time.Millisecond)

		maxDump := 0
		if d.state.SendMinIntervalMs() > 0 {
			maxDump = 1
		}
		msgs := consumer.DumpPackets(maxDump)
		if len(msgs) == 0 {
			continue
		}

		if d.req.Duration > 0 {
			for _, m := range msgs {
				duration.Add(int64(m.Timestamp) * int64(time.Millisecond))
			}
		}

		if err := d.conn.SendAndFreeMessages(msgs, streamID); err != nil {
			return classifyIOError(err)
		}
		d.kbpsSample("play", time.Since(loopStart))

		if d.req.Duration > 0 && duration.ElapsedMs() >= int64(d.req.Duration*1000) {
			return errs.ErrDurationExceeded
		}
		if smi := d.state.SendMinIntervalMs(); smi > 0 {
			time.Sleep(time.Duration(smi * float64(time.Millisecond)))
		}
	}

	return nil
}
