package session

import (
	"github.com/bugVanisher/srs-session/errs"
	"github.com/bugVanisher/srs-session/rtmp"
	"github.com/bugVanisher/srs-session/source"
)

// processPlayControlMsg handles one inbound command message the sidecar
// receive task pumped. Non-command messages never reach here; media flows
// the other direction in play mode, so the receive task only ever queues
// decoded Packets.
func (d *Driver) processPlayControlMsg(streamID uint32, consumer *source.Consumer, pkt rtmp.Packet) error {
	switch p := pkt.(type) {
	case rtmp.CloseStreamPacket:
		return errs.ErrRtmpClose
	case rtmp.CallPacket:
		if p.TransactionID <= 0 {
			return nil
		}
		reply := rtmp.CommandPacket{
			Name:          "_result",
			TransactionID: p.TransactionID,
			Object:        nil,
			Params:        []interface{}{nil},
		}
		return classifyIOError(d.conn.SendAndFreePacket(reply, streamID))
	case rtmp.PausePacket:
		if err := d.conn.OnPlayClientPause(streamID, p.IsPause); err != nil {
			return classifyIOError(err)
		}
		consumer.OnPlayClientPause(p.IsPause)
		return nil
	default:
		return nil
	}
}
