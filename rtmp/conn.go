package rtmp

// Conn is the wire-level protocol session: handshake, chunk stream I/O,
// and AMF command dispatch, exposed as the discrete lifecycle steps the
// session driver calls one at a time (connect_app, identify_client,
// start_play/start_*_publish, ...).

import (
	"bufio"
	"fmt"
	"net"
	"time"
)

// Role distinguishes a server-accepted connection from an outbound client
// connection (used by UpstreamRtmpClient / edge token traversal).
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

type Conn struct {
	nc   net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer
	role Role

	readChunkSize  int
	writeChunkSize int
	csmap          map[uint32]*chunkStream

	nextStreamID uint32

	recvTimeout time.Duration
	sendTimeout time.Duration

	txBytes uint64
	rxBytes uint64
}

// NewConn wraps an already-accepted or already-dialed net.Conn.
func NewConn(nc net.Conn, role Role) *Conn {
	return &Conn{
		nc:             nc,
		br:             bufio.NewReaderSize(nc, 4096),
		bw:             bufio.NewWriterSize(nc, 4096),
		role:           role,
		readChunkSize:  128,
		writeChunkSize: 128,
		csmap:          make(map[uint32]*chunkStream),
		nextStreamID:   1,
		recvTimeout:    RtmpTimeout,
		sendTimeout:    RtmpTimeout,
	}
}

func (c *Conn) RemoteAddr() string {
	if c.nc == nil {
		return ""
	}
	return c.nc.RemoteAddr().String()
}

func (c *Conn) Close() error {
	return c.nc.Close()
}

func (c *Conn) SetRecvTimeout(d time.Duration) { c.recvTimeout = d }
func (c *Conn) SetSendTimeout(d time.Duration) { c.sendTimeout = d }

// TxBytes and RxBytes report cumulative payload bytes written/read, for
// RateSampler to diff against on each sample tick.
func (c *Conn) TxBytes() uint64 { return c.txBytes }
func (c *Conn) RxBytes() uint64 { return c.rxBytes }

// NetConn exposes the underlying connection for socktune, which needs the
// raw fd via SyscallConn.
func (c *Conn) NetConn() net.Conn { return c.nc }

// Handshake runs the RTMP handshake for the role: the server accepts both
// the complex digest form and the simple form; the client sends the simple
// (zero-version) form.
func (c *Conn) Handshake() error {
	if c.role == RoleServer {
		return handshakeServer(c.nc, RtmpTimeout)
	}
	return handshakeClient(c.nc, RtmpTimeout)
}

func (c *Conn) withReadDeadline() {
	c.nc.SetReadDeadline(time.Now().Add(c.recvTimeout))
}

func (c *Conn) withWriteDeadline() {
	c.nc.SetWriteDeadline(time.Now().Add(c.sendTimeout))
}

// RecvMessage reads one reassembled message, honoring recvTimeout on
// every read syscall rather than once per message.
func (c *Conn) RecvMessage() (*Message, error) {
	c.withReadDeadline()
	msg, err := readMessage(&deadlineReader{c}, c.csmap, c.readChunkSize)
	if err != nil {
		return nil, err
	}
	c.rxBytes += uint64(len(msg.Data))
	if msg.TypeID == msgtypeidSetChunkSize && len(msg.Data) >= 4 {
		c.readChunkSize = int(be32(msg.Data))
	}
	return msg, nil
}

// deadlineReader re-applies the read deadline before every Read call so a
// slow peer can't starve a single chunk read past recvTimeout.
type deadlineReader struct{ c *Conn }

func (d *deadlineReader) Read(p []byte) (int, error) {
	d.c.withReadDeadline()
	return d.c.br.Read(p)
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// DecodeMessage turns a command or data message into a Packet; non-command
// messages are not decodable and return (nil, nil) — callers check TypeID
// first via Message.IsAMFCommand/IsAudio/etc.
func (c *Conn) DecodeMessage(msg *Message) (Packet, error) {
	switch msg.TypeID {
	case msgtypeidCommandMsgAMF0:
		return decodeCommandPacket(msg.Data)
	case msgtypeidCommandMsgAMF3:
		if len(msg.Data) < 1 {
			return nil, errShortCommand
		}
		return decodeCommandPacket(msg.Data[1:])
	case msgtypeidDataMsgAMF0:
		return decodeCommandPacket(msg.Data)
	case msgtypeidDataMsgAMF3:
		if len(msg.Data) < 1 {
			return nil, errShortCommand
		}
		return decodeCommandPacket(msg.Data[1:])
	default:
		return nil, nil
	}
}

func (c *Conn) writeRaw(csid uint32, timestamp uint32, typeID uint8, streamID uint32, data []byte) error {
	c.withWriteDeadline()
	if err := writeMessage(c.bw, csid, timestamp, typeID, streamID, data, c.writeChunkSize); err != nil {
		return err
	}
	c.txBytes += uint64(len(data))
	return c.bw.Flush()
}

func (c *Conn) writeCommand(csid, streamID uint32, vals ...interface{}) error {
	return c.writeRaw(csid, 0, msgtypeidCommandMsgAMF0, streamID, EncodeAMF0(vals...))
}

// SetChunkSize sends a SetChunkSize control message and applies it to our
// own write path immediately.
func (c *Conn) SetChunkSize(size uint32) error {
	c.writeChunkSize = int(size)
	b := make([]byte, 4)
	putU32(b, size)
	return c.writeRaw(2, 0, msgtypeidSetChunkSize, 0, b)
}

func (c *Conn) SetWindowAckSize(size uint32) error {
	b := make([]byte, 4)
	putU32(b, size)
	return c.writeRaw(2, 0, msgtypeidWindowAckSize, 0, b)
}

func (c *Conn) SetPeerBandwidth(size uint32, limitType uint8) error {
	b := make([]byte, 5)
	putU32(b, size)
	b[4] = limitType
	return c.writeRaw(2, 0, msgtypeidSetPeerBandwidth, 0, b)
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

// ConnectApp performs the "connect" command exchange. On the server role it
// decodes the peer's connect command into req; on the client role
// (UpstreamRtmpClient / edge token traversal) it sends the connect command
// built from req, carrying the identity args.
func (c *Conn) ConnectApp(req *Request, identityArgs map[string]interface{}) error {
	if c.role == RoleServer {
		return c.connectAppServer(req)
	}
	return c.connectAppClient(req, identityArgs)
}

func (c *Conn) connectAppServer(req *Request) error {
	msg, err := c.RecvMessage()
	if err != nil {
		return fmt.Errorf("connect_app: recv: %w", err)
	}
	if !msg.IsAMFCommand() {
		return fmt.Errorf("connect_app: expected command message, got type %d", msg.TypeID)
	}
	pkt, err := c.DecodeMessage(msg)
	if err != nil {
		return fmt.Errorf("connect_app: decode: %w", err)
	}
	cp, ok := pkt.(ConnectPacket)
	if !ok {
		return fmt.Errorf("connect_app: expected connect command, got %q", pkt.CommandName())
	}
	tcURL := asString(cp.Object["tcUrl"])
	parsed, err := ParseTcUrl(tcURL)
	if err != nil {
		return fmt.Errorf("connect_app: %w", err)
	}
	*req = *parsed
	req.PageUrl = asString(cp.Object["pageUrl"])
	req.SwfUrl = asString(cp.Object["swfUrl"])
	req.ClientIP = ClientIPOf(c.RemoteAddr())
	return nil
}

func (c *Conn) connectAppClient(req *Request, identityArgs map[string]interface{}) error {
	obj := AMFMap{
		"app":      req.App,
		"type":     "nonprivate",
		"flashVer": "WIN 15,0,0,239",
		"tcUrl":    req.TcUrl,
	}
	if req.SwfUrl != "" {
		obj["swfUrl"] = req.SwfUrl
	}
	if req.PageUrl != "" {
		obj["pageUrl"] = req.PageUrl
	}
	var args interface{} = nil
	if len(identityArgs) > 0 {
		args = AMFMap(identityArgs)
	}
	if err := c.writeCommand(3, 0, "connect", float64(1), obj, args); err != nil {
		return err
	}
	return c.awaitResult("connect")
}

// awaitResult drains messages until it sees the _result/_error command
// matching the call we just made, for the client role.
func (c *Conn) awaitResult(forCommand string) error {
	for i := 0; i < 16; i++ {
		msg, err := c.RecvMessage()
		if err != nil {
			return fmt.Errorf("%s: await result: %w", forCommand, err)
		}
		if !msg.IsAMFCommand() {
			continue
		}
		pkt, err := c.DecodeMessage(msg)
		if err != nil {
			return err
		}
		name := pkt.CommandName()
		if name == "_result" {
			return nil
		}
		if name == "_error" {
			return fmt.Errorf("%s: peer returned _error", forCommand)
		}
	}
	return fmt.Errorf("%s: no result after 16 messages", forCommand)
}

// ResponseConnectApp replies to the client's connect with _result, carrying
// the server-assigned local IP the way SRS embeds data.srs_server_ip.
func (c *Conn) ResponseConnectApp(req *Request, localIP string) error {
	props := AMFMap{
		"fmsVer":       "FMS/3,0,1,123",
		"capabilities": float64(127),
		"mode":         float64(1),
	}
	info := AMFMap{
		"level":          "status",
		"code":           "NetConnection.Connect.Success",
		"description":    "Connection succeeded",
		"objectEncoding": float64(0),
		"data": AMFMap{
			"srs_server_ip": localIP,
		},
	}
	return c.writeCommand(3, 0, "_result", float64(1), props, info)
}

func (c *Conn) OnBWDone() error {
	return c.writeCommand(3, 0, "onBWDone", float64(0), nil)
}

// IdentifyClient decodes the createStream/publish/play dance and returns
// the resolved SessionType, stream name, and play duration. Blocks until a
// publish/play command arrives or an unrecoverable decode error occurs.
func (c *Conn) IdentifyClient() (streamID uint32, typ SessionType, stream string, duration float64, err error) {
	for {
		msg, rerr := c.RecvMessage()
		if rerr != nil {
			return 0, SessionUnknown, "", 0, rerr
		}
		if !msg.IsAMFCommand() {
			continue
		}
		pkt, derr := c.DecodeMessage(msg)
		if derr != nil {
			return 0, SessionUnknown, "", 0, derr
		}
		switch p := pkt.(type) {
		case CreateStreamPacket:
			streamID = c.nextStreamID
			c.nextStreamID++
			if werr := c.writeCommand(3, 0, "_result", p.TransactionID, nil, float64(streamID)); werr != nil {
				return 0, SessionUnknown, "", 0, werr
			}
		case PublishPacket:
			t := SessionPublishFlash
			if p.PublishType == "" || p.PublishType == "live" {
				t = SessionPublishFmle
			}
			return streamID, t, p.StreamName, 0, nil
		case PlayPacket:
			return streamID, SessionPlay, p.StreamName, p.Duration, nil
		default:
			// ignore releaseStream/FCPublish/getStreamLength and similar
			// FMLE preamble commands; they carry no dispatch-relevant state.
			continue
		}
	}
}

func (c *Conn) StartPlay(streamID uint32) error {
	if err := c.writeUserControl(eventtypeStreamBegin, streamID); err != nil {
		return err
	}
	return c.writeCommand(5, streamID, "onStatus", float64(0), nil, AMFMap{
		"level":       "status",
		"code":        "NetStream.Play.Start",
		"description": "Start playing",
	})
}

func (c *Conn) StartFmlePublish(streamID uint32) error {
	return c.writeCommand(5, streamID, "onFCPublish", float64(0), nil, AMFMap{
		"code": "NetStream.Publish.Start",
	})
}

func (c *Conn) StartFlashPublish(streamID uint32) error {
	return c.writeCommand(5, streamID, "onStatus", float64(0), nil, AMFMap{
		"level":       "status",
		"code":        "NetStream.Publish.Start",
		"description": "Start publishing",
	})
}

func (c *Conn) FmleUnpublish(streamID uint32, txnID float64) error {
	return c.writeCommand(5, streamID, "onFCUnpublish", txnID, nil)
}

func (c *Conn) OnPlayClientPause(streamID uint32, pause bool) error {
	code := "NetStream.Pause.Notify"
	if !pause {
		code = "NetStream.Unpause.Notify"
	}
	return c.writeCommand(5, streamID, "onStatus", float64(0), nil, AMFMap{
		"level": "status",
		"code":  code,
	})
}

func (c *Conn) writeUserControl(eventType uint16, streamID uint32) error {
	b := make([]byte, 6)
	b[0] = byte(eventType >> 8)
	b[1] = byte(eventType)
	putU32(b[2:], streamID)
	return c.writeRaw(2, 0, msgtypeidUserControl, 0, b)
}

func (c *Conn) SendAndFreeMessages(msgs []*Message, streamID uint32) error {
	for _, m := range msgs {
		if err := c.writeRaw(chunkStreamIDForType(m.TypeID), m.Timestamp, m.TypeID, streamID, m.Data); err != nil {
			return err
		}
	}
	return nil
}

func chunkStreamIDForType(typeID uint8) uint32 {
	switch typeID {
	case msgtypeidAudioMsg:
		return 6
	case msgtypeidVideoMsg:
		return 7
	default:
		return 4
	}
}

// SendAndFreePacket encodes and sends a command packet — used for the
// replies process_play_control_msg issues (null-object Call response).
func (c *Conn) SendAndFreePacket(pkt Packet, streamID uint32) error {
	cp, ok := pkt.(CommandPacket)
	if !ok {
		return fmt.Errorf("send packet: unsupported packet type %T", pkt)
	}
	return c.writeCommand(3, streamID, cp.Name, cp.TransactionID, cp.Object, cp.Params)
}

// CreateStream issues createStream on the client role and returns the
// server-assigned stream id.
func (c *Conn) CreateStream() (uint32, error) {
	if err := c.writeCommand(3, 0, "createStream", float64(2), nil); err != nil {
		return 0, err
	}
	for i := 0; i < 16; i++ {
		msg, err := c.RecvMessage()
		if err != nil {
			return 0, fmt.Errorf("create_stream: await result: %w", err)
		}
		if !msg.IsAMFCommand() {
			continue
		}
		pkt, err := c.DecodeMessage(msg)
		if err != nil {
			return 0, err
		}
		cp, ok := pkt.(CommandPacket)
		if !ok || cp.Name != "_result" {
			continue
		}
		if len(cp.Params) > 0 {
			return uint32(asFloat64(cp.Params[0])), nil
		}
		return 0, fmt.Errorf("create_stream: missing stream id in result")
	}
	return 0, fmt.Errorf("create_stream: no result after 16 messages")
}

// PublishStream sends the client-role publish command for an
// UpstreamRtmpClient pushing into an origin.
func (c *Conn) PublishStream(streamID uint32, streamName string) error {
	return c.writeCommand(8, streamID, "publish", float64(0), nil, streamName, "live")
}

// PlayStream sends the client-role play command for an UpstreamRtmpClient
// pulling from an origin.
func (c *Conn) PlayStream(streamID uint32, streamName string) error {
	return c.writeCommand(8, streamID, "play", float64(0), nil, streamName)
}
