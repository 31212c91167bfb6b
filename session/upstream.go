package session

import (
	"context"
	"net"
	"time"

	"github.com/bugVanisher/srs-session/rtmp"
)

// UpstreamRtmpClient is the outbound RTMP session used for edge token
// traversal and origin relay: a connect/publish/play client whose stream
// lifecycle the caller drives explicitly.
type UpstreamRtmpClient struct {
	conn     *rtmp.Conn
	streamID uint32
}

// DialUpstream opens a TCP connection to an origin host:port with
// connectTimeout and wraps it in a client-role rtmp.Conn. Reconnect is not
// automatic — the caller (EdgeTokenTraversal) decides whether to retry the
// next origin.
func DialUpstream(ctx context.Context, hostport string, connectTimeout time.Duration) (*UpstreamRtmpClient, error) {
	d := net.Dialer{Timeout: connectTimeout}
	nc, err := d.DialContext(ctx, "tcp", hostport)
	if err != nil {
		return nil, err
	}
	return &UpstreamRtmpClient{conn: rtmp.NewConn(nc, rtmp.RoleClient)}, nil
}

// ConnectApp performs the client handshake then connect_app, carrying
// identity args so the origin can recognize this edge and forward
// token-relevant fields.
func (u *UpstreamRtmpClient) ConnectApp(req *rtmp.Request, identityArgs map[string]interface{}, streamTimeout time.Duration) error {
	u.conn.SetRecvTimeout(streamTimeout)
	u.conn.SetSendTimeout(streamTimeout)
	if err := u.conn.Handshake(); err != nil {
		return err
	}
	return u.conn.ConnectApp(req, identityArgs)
}

// CreateStream allocates an upstream stream id, recording it for
// subsequent Publish/Play/SendAndFreeMessages calls.
func (u *UpstreamRtmpClient) CreateStream() error {
	id, err := u.conn.CreateStream()
	if err != nil {
		return err
	}
	u.streamID = id
	return nil
}

func (u *UpstreamRtmpClient) Publish(streamName string) error {
	return u.conn.PublishStream(u.streamID, streamName)
}

func (u *UpstreamRtmpClient) Play(streamName string) error {
	return u.conn.PlayStream(u.streamID, streamName)
}

func (u *UpstreamRtmpClient) RecvMessage() (*rtmp.Message, error) {
	return u.conn.RecvMessage()
}

func (u *UpstreamRtmpClient) DecodeMessage(msg *rtmp.Message) (rtmp.Packet, error) {
	return u.conn.DecodeMessage(msg)
}

func (u *UpstreamRtmpClient) SendAndFreeMessages(msgs []*rtmp.Message) error {
	return u.conn.SendAndFreeMessages(msgs, u.streamID)
}

// Close releases the transport. Protocol/request state is owned entirely
// by this client and the underlying rtmp.Conn, so closing the socket is
// sufficient.
func (u *UpstreamRtmpClient) Close() error {
	if u.conn == nil {
		return nil
	}
	return u.conn.Close()
}
