package rtmp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteMessageThenReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	data := []byte("hello rtmp chunked payload")
	require.NoError(t, writeMessage(&buf, 3, 1000, 8, 1, data, 128))

	msg, err := readMessage(&buf, map[uint32]*chunkStream{}, 128)
	require.NoError(t, err)
	require.Equal(t, uint32(1000), msg.Timestamp)
	require.Equal(t, uint8(8), msg.TypeID)
	require.Equal(t, uint32(1), msg.StreamID)
	require.Equal(t, data, msg.Data)
}

func TestWriteMessageSplitsAcrossChunkBoundariesAndReassembles(t *testing.T) {
	var buf bytes.Buffer
	data := bytes.Repeat([]byte{0xAB}, 300)
	require.NoError(t, writeMessage(&buf, 5, 0, 9, 1, data, 128))

	msg, err := readMessage(&buf, map[uint32]*chunkStream{}, 128)
	require.NoError(t, err)
	require.Equal(t, data, msg.Data)
}

func TestReadMessageSequentialMessagesOnSameChunkStreamKeepAbsoluteTimestamps(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMessage(&buf, 3, 100, 8, 1, []byte("a"), 128))
	require.NoError(t, writeMessage(&buf, 3, 150, 8, 1, []byte("b"), 128))

	csmap := map[uint32]*chunkStream{}
	m1, err := readMessage(&buf, csmap, 128)
	require.NoError(t, err)
	require.Equal(t, uint32(100), m1.Timestamp)

	m2, err := readMessage(&buf, csmap, 128)
	require.NoError(t, err)
	require.Equal(t, uint32(150), m2.Timestamp)
}

func TestReadBasicHeaderHandlesOneTwoAndThreeByteForms(t *testing.T) {
	// csid 3 fits in the 1-byte basic header form.
	csid, hdrtype, err := readBasicHeader(strings.NewReader(string([]byte{0x03})))
	require.NoError(t, err)
	require.Equal(t, uint32(3), csid)
	require.Equal(t, uint8(0), hdrtype)

	// csid 64 (id field 0) uses the 2-byte form: second byte + 64.
	csid, _, err = readBasicHeader(strings.NewReader(string([]byte{0x00, 0x00})))
	require.NoError(t, err)
	require.Equal(t, uint32(64), csid)

	// csid 320 (id field 1) uses the 3-byte form: b1 + b2*256 + 64.
	csid, _, err = readBasicHeader(strings.NewReader(string([]byte{0x01, 0x00, 0x01})))
	require.NoError(t, err)
	require.Equal(t, uint32(320), csid)
}

func TestReadMessageEmptyStreamErrors(t *testing.T) {
	// fmt bits can never be 4+ (only 2 bits exist), so an invalid header
	// type cannot be encoded; this confirms a short/corrupt stream surfaces
	// an error rather than a panic.
	_, err := readMessage(bytes.NewReader(nil), map[uint32]*chunkStream{}, 128)
	require.Error(t, err)
}
