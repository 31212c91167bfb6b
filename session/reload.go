package session

import "github.com/bugVanisher/srs-session/config"

// reloadLoop drains config reload events scoped to this session's vhost
// until stop fires. Each callback is a pure state update on State's
// atomics, never a call into the protocol.
func (d *Driver) reloadLoop(stop <-chan struct{}) {
	for {
		select {
		case ev := <-d.sub.Events():
			d.onReload(ev)
		case <-stop:
			return
		}
	}
}

func (d *Driver) onReload(ev config.ReloadEvent) {
	switch ev.Kind {
	case config.ReloadVhostRemoved:
		// Deliberately does not close the socket; the session's own
		// goroutine polls expired at loop boundaries and unwinds itself.
		d.state.Expire()
	case config.ReloadVhostPlay:
		if v, ok := d.deps.Config.Vhost(d.vhost.Name); ok {
			d.state.SetSendMinIntervalMs(v.SendMinInterval)
		}
	case config.ReloadVhostTcpNodelay:
		if v, ok := d.deps.Config.Vhost(d.vhost.Name); ok {
			d.state.SetTcpNodelay(v.TcpNodelay)
		}
	case config.ReloadVhostRealtime:
		if v, ok := d.deps.Config.Vhost(d.vhost.Name); ok {
			d.state.SetRealtime(v.RealtimeEnabled)
		}
	case config.ReloadVhostPublish:
		if v, ok := d.deps.Config.Vhost(d.vhost.Name); ok {
			d.state.SetPublishTimeouts(int32(v.PublishFirstPktTimeoutMs), int32(v.PublishNormalTimeoutMs))
		}
	}
}
