package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bugVanisher/srs-session/errs"
	"github.com/bugVanisher/srs-session/rtmp"
	"github.com/bugVanisher/srs-session/source"
)

func TestProcessPlayControlMsgCloseStreamReturnsRtmpClose(t *testing.T) {
	d, _ := newTestDriver(t)
	src := source.NewRegistry().FetchOrCreate(d.req)
	consumer := src.CreateConsumer()
	defer consumer.Close()

	err := d.processPlayControlMsg(1, consumer, rtmp.CloseStreamPacket{})
	require.ErrorIs(t, err, errs.ErrRtmpClose)
}

// A pause command is forwarded to both the protocol (status notify) and
// the consumer (buffering stops).
func TestProcessPlayControlMsgPause(t *testing.T) {
	d, _ := newTestDriver(t)
	src := source.NewRegistry().FetchOrCreate(d.req)
	consumer := src.CreateConsumer()
	defer consumer.Close()

	err := d.processPlayControlMsg(1, consumer, rtmp.PausePacket{IsPause: true, TimeMs: 1000})
	require.NoError(t, err)

	// The consumer must have actually recorded the pause: new media stops
	// being queued for it until it's unpaused.
	src.OnVideo(&rtmp.Message{TypeID: 9, Data: []byte("dropped")})
	require.Empty(t, consumer.DumpPackets(0))
}

func TestProcessPlayControlMsgCallWithTransactionRepliesResult(t *testing.T) {
	d, _ := newTestDriver(t)
	src := source.NewRegistry().FetchOrCreate(d.req)
	consumer := src.CreateConsumer()
	defer consumer.Close()

	err := d.processPlayControlMsg(1, consumer, rtmp.CallPacket{
		CommandPacket: rtmp.CommandPacket{Name: "someRPC", TransactionID: 5},
	})
	require.NoError(t, err)
}

func TestProcessPlayControlMsgCallWithoutTransactionIsSilent(t *testing.T) {
	d, _ := newTestDriver(t)
	src := source.NewRegistry().FetchOrCreate(d.req)
	consumer := src.CreateConsumer()
	defer consumer.Close()

	err := d.processPlayControlMsg(1, consumer, rtmp.CallPacket{
		CommandPacket: rtmp.CommandPacket{Name: "someRPC", TransactionID: 0},
	})
	require.NoError(t, err)
}

func TestProcessPlayControlMsgIgnoresUnhandledPackets(t *testing.T) {
	d, _ := newTestDriver(t)
	src := source.NewRegistry().FetchOrCreate(d.req)
	consumer := src.CreateConsumer()
	defer consumer.Close()

	err := d.processPlayControlMsg(1, consumer, rtmp.ConnectPacket{})
	require.NoError(t, err)
}
