package rtmp

// Chunk stream reassembly and emission.

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var errShortCommand = errors.New("rtmp: short command message")

type chunkStream struct {
	msghdrtype  uint8
	msgdatalen  uint32
	msgdataleft uint32
	msgdata     []byte
	msgsid      uint32
	msgtypeid   uint8
	hastimeext  bool
	timenow     uint32
	timedelta   uint32
}

func (cs *chunkStream) start() {
	cs.msgdataleft = cs.msgdatalen
	cs.msgdata = make([]byte, cs.msgdatalen)
}

// readBasicHeader parses the 1-3 byte chunk basic header, returning the
// chunk stream id and the header format (fmt 0-3).
func readBasicHeader(r io.Reader) (csid uint32, hdrtype uint8, err error) {
	var b [3]byte
	if _, err = io.ReadFull(r, b[:1]); err != nil {
		return
	}
	hdrtype = b[0] >> 6
	id := uint32(b[0] & 0x3f)
	switch id {
	case 0:
		if _, err = io.ReadFull(r, b[:1]); err != nil {
			return
		}
		csid = uint32(b[0]) + 64
	case 1:
		if _, err = io.ReadFull(r, b[:2]); err != nil {
			return
		}
		csid = uint32(b[0]) + uint32(b[1])*256 + 64
	default:
		csid = id
	}
	return
}

// readMessage reads exactly one fully reassembled message off r, tracking
// chunk-stream state in csmap and honoring readChunkSize for data slicing.
func readMessage(r io.Reader, csmap map[uint32]*chunkStream, readChunkSize int) (*Message, error) {
	for {
		csid, hdrtype, err := readBasicHeader(r)
		if err != nil {
			return nil, err
		}
		cs, ok := csmap[csid]
		if !ok {
			cs = &chunkStream{}
			csmap[csid] = cs
		}

		var timestamp uint32
		switch hdrtype {
		case 0:
			var b [11]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, fmt.Errorf("read header fmt0: %w", err)
			}
			timestamp = binary.BigEndian.Uint32(append([]byte{0}, b[0:3]...))
			cs.msgdatalen = binary.BigEndian.Uint32(append([]byte{0}, b[3:6]...))
			cs.msgtypeid = b[6]
			cs.msgsid = binary.LittleEndian.Uint32(b[7:11])
			if timestamp == 0xffffff {
				var ext [4]byte
				if _, err := io.ReadFull(r, ext[:]); err != nil {
					return nil, err
				}
				timestamp = binary.BigEndian.Uint32(ext[:])
				cs.hastimeext = true
			} else {
				cs.hastimeext = false
			}
			cs.msghdrtype = 0
			cs.timedelta = timestamp
			cs.timenow = timestamp
			cs.start()
		case 1:
			var b [7]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, fmt.Errorf("read header fmt1: %w", err)
			}
			timestamp = binary.BigEndian.Uint32(append([]byte{0}, b[0:3]...))
			cs.msgdatalen = binary.BigEndian.Uint32(append([]byte{0}, b[3:6]...))
			cs.msgtypeid = b[6]
			if timestamp == 0xffffff {
				var ext [4]byte
				if _, err := io.ReadFull(r, ext[:]); err != nil {
					return nil, err
				}
				timestamp = binary.BigEndian.Uint32(ext[:])
				cs.hastimeext = true
			} else {
				cs.hastimeext = false
			}
			cs.msghdrtype = 1
			cs.timedelta = timestamp
			cs.timenow += timestamp
			cs.start()
		case 2:
			var b [3]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, fmt.Errorf("read header fmt2: %w", err)
			}
			timestamp = binary.BigEndian.Uint32(append([]byte{0}, b[0:3]...))
			if timestamp == 0xffffff {
				var ext [4]byte
				if _, err := io.ReadFull(r, ext[:]); err != nil {
					return nil, err
				}
				timestamp = binary.BigEndian.Uint32(ext[:])
				cs.hastimeext = true
			} else {
				cs.hastimeext = false
			}
			cs.msghdrtype = 2
			cs.timedelta = timestamp
			cs.timenow += timestamp
			cs.start()
		case 3:
			if cs.msgdataleft == 0 {
				switch cs.msghdrtype {
				case 0:
					if cs.hastimeext {
						var ext [4]byte
						if _, err := io.ReadFull(r, ext[:]); err != nil {
							return nil, err
						}
						cs.timenow = binary.BigEndian.Uint32(ext[:])
					}
				case 1, 2:
					if cs.hastimeext {
						var ext [4]byte
						if _, err := io.ReadFull(r, ext[:]); err != nil {
							return nil, err
						}
						cs.timenow += binary.BigEndian.Uint32(ext[:])
					} else {
						cs.timenow += cs.timedelta
					}
				}
				cs.start()
			}
		default:
			return nil, fmt.Errorf("rtmp: invalid chunk header type %d", hdrtype)
		}

		size := int(cs.msgdataleft)
		if size > readChunkSize {
			size = readChunkSize
		}
		off := int(cs.msgdatalen - cs.msgdataleft)
		buf := cs.msgdata[off : off+size]
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read chunk payload: %w", err)
		}
		cs.msgdataleft -= uint32(size)

		if cs.msgdataleft == 0 {
			return &Message{
				Timestamp: cs.timenow,
				TypeID:    cs.msgtypeid,
				StreamID:  cs.msgsid,
				Data:      cs.msgdata,
			}, nil
		}
	}
}

// fillChunkHeader writes a type-0 basic+message header; continuation
// chunks get a bare type-3 basic header instead.
func fillChunkHeader(b []byte, csid uint32, timestamp uint32, msgtypeid uint8, msgsid uint32, msgdatalen int) int {
	n := 0
	if csid < 64 {
		b[0] = byte(csid)
		n = 1
	} else if csid < 320 {
		b[0] = 0
		b[1] = byte(csid - 64)
		n = 2
	} else {
		b[0] = 1
		binary.LittleEndian.PutUint16(b[1:3], uint16(csid-64))
		n = 3
	}

	ts := timestamp
	if ts > 0xffffff {
		ts = 0xffffff
	}
	tsb := make([]byte, 4)
	binary.BigEndian.PutUint32(tsb, ts)
	copy(b[n:n+3], tsb[1:4])
	n += 3

	lb := make([]byte, 4)
	binary.BigEndian.PutUint32(lb, uint32(msgdatalen))
	copy(b[n:n+3], lb[1:4])
	n += 3

	b[n] = msgtypeid
	n++

	binary.LittleEndian.PutUint32(b[n:n+4], msgsid)
	n += 4

	if timestamp >= 0xffffff {
		binary.BigEndian.PutUint32(b[n:n+4], timestamp)
		n += 4
	}
	return n
}

// writeMessage emits data as one or more chunks of at most chunkSize
// bytes: a full type-0 header first, type-3 continuations after.
func writeMessage(w io.Writer, csid uint32, timestamp uint32, msgtypeid uint8, msgsid uint32, data []byte, chunkSize int) error {
	hdr := make([]byte, chunkHeaderLength+4)
	n := fillChunkHeader(hdr, csid, timestamp, msgtypeid, msgsid, len(data))
	if _, err := w.Write(hdr[:n]); err != nil {
		return err
	}
	off := 0
	for off < len(data) {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := w.Write(data[off:end]); err != nil {
			return err
		}
		off = end
		if off < len(data) {
			// type-3 continuation header (basic header only).
			var b [1]byte
			if csid < 64 {
				b[0] = 0xc0 | byte(csid)
				if _, err := w.Write(b[:]); err != nil {
					return err
				}
			} else {
				if _, err := w.Write([]byte{0xc0}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
