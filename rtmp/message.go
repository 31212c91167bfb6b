package rtmp

// Message and Packet types. A Message is a fully reassembled chunk-stream
// message (the unit Source/Consumer exchange); a Packet is the decoded
// command-message shape the session driver dispatches on.

// Message is a reassembled RTMP message ready to hand to a Source/Consumer
// or to write back out over the wire.
type Message struct {
	Timestamp uint32
	TypeID    uint8
	StreamID  uint32
	Data      []byte
}

func (m *Message) IsAudio() bool { return m.TypeID == msgtypeidAudioMsg }
func (m *Message) IsVideo() bool { return m.TypeID == msgtypeidVideoMsg }
func (m *Message) IsAggregate() bool { return m.TypeID == msgtypeidAggregateMsg }
func (m *Message) IsAMFCommand() bool {
	return m.TypeID == msgtypeidCommandMsgAMF0 || m.TypeID == msgtypeidCommandMsgAMF3
}
func (m *Message) IsAMFData() bool {
	return m.TypeID == msgtypeidDataMsgAMF0 || m.TypeID == msgtypeidDataMsgAMF3
}

// Packet is the decoded shape of an AMF command message.
type Packet interface {
	CommandName() string
}

// CommandPacket is the generic decode result; the specific packets below
// embed it so callers can either switch on the concrete type or just read
// CommandName/TransactionID/Object/Params off the embedded value.
type CommandPacket struct {
	Name          string
	TransactionID float64
	Object        AMFMap
	Params        []interface{}
}

func (p CommandPacket) CommandName() string { return p.Name }

type ConnectPacket struct {
	CommandPacket
}

type CreateStreamPacket struct {
	CommandPacket
}

type PublishPacket struct {
	CommandPacket
	StreamName string
	PublishType string // "live", "record", "append" — FMLE/flash publishers send this
}

type PlayPacket struct {
	CommandPacket
	StreamName string
	Start      float64
	Duration   float64
}

// FMLEStartPacket is FMLE's "FCUnpublish"/"releaseStream" idiom: when it
// arrives mid-publish it signals the client is about to republish.
type FMLEStartPacket struct {
	CommandPacket
	StreamName string
}

type CloseStreamPacket struct {
	CommandPacket
}

type PausePacket struct {
	CommandPacket
	IsPause bool
	TimeMs  float64
}

type CallPacket struct {
	CommandPacket
}

type DeleteStreamPacket struct {
	CommandPacket
	StreamID float64
}

// decodeCommandPacket turns a raw AMF0 command message into the
// concrete Packet shape the session driver expects. Unknown command
// names decode to a bare CommandPacket.
func decodeCommandPacket(data []byte) (Packet, error) {
	vals, err := DecodeAMF0All(data)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, errShortCommand
	}
	base := CommandPacket{Name: asString(vals[0])}
	if len(vals) > 1 {
		base.TransactionID = asFloat64(vals[1])
	}
	if len(vals) > 2 {
		base.Object = asAMFMap(vals[2])
	}
	if len(vals) > 3 {
		base.Params = vals[3:]
	}

	switch base.Name {
	case "connect":
		return ConnectPacket{CommandPacket: base}, nil
	case "createStream":
		return CreateStreamPacket{CommandPacket: base}, nil
	case "publish":
		p := PublishPacket{CommandPacket: base}
		if len(base.Params) > 0 {
			p.StreamName = asString(base.Params[0])
		}
		if len(base.Params) > 1 {
			p.PublishType = asString(base.Params[1])
		}
		return p, nil
	case "play", "play2":
		p := PlayPacket{CommandPacket: base}
		if len(base.Params) > 0 {
			p.StreamName = asString(base.Params[0])
		}
		if len(base.Params) > 1 {
			p.Start = asFloat64(base.Params[1])
		}
		if len(base.Params) > 2 {
			p.Duration = asFloat64(base.Params[2])
		}
		return p, nil
	case "FCUnpublish", "releaseStream":
		p := FMLEStartPacket{CommandPacket: base}
		if len(base.Params) > 0 {
			p.StreamName = asString(base.Params[0])
		}
		return p, nil
	case "closeStream":
		return CloseStreamPacket{CommandPacket: base}, nil
	case "pause":
		p := PausePacket{CommandPacket: base}
		if len(base.Params) > 0 {
			b, _ := base.Params[0].(bool)
			p.IsPause = b
		}
		if len(base.Params) > 1 {
			p.TimeMs = asFloat64(base.Params[1])
		}
		return p, nil
	case "deleteStream":
		p := DeleteStreamPacket{CommandPacket: base}
		if len(base.Params) > 0 {
			p.StreamID = asFloat64(base.Params[0])
		}
		return p, nil
	case "call":
		return CallPacket{CommandPacket: base}, nil
	default:
		return base, nil
	}
}
