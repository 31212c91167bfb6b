package rtmp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAMF0RoundTrip(t *testing.T) {
	vals := []interface{}{
		"connect",
		float64(1),
		AMFMap{"app": "live", "tcUrl": "rtmp://example.com/live"},
		nil,
	}
	encoded := EncodeAMF0(vals...)

	decoded, err := DecodeAMF0All(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 4)
	require.Equal(t, "connect", decoded[0])
	require.Equal(t, float64(1), decoded[1])

	obj, ok := decoded[2].(AMFMap)
	require.True(t, ok)
	require.Equal(t, "live", obj["app"])
	require.Nil(t, decoded[3])
}

func TestAMF0DecodeBoolean(t *testing.T) {
	encoded := EncodeAMF0("pause", float64(3), nil, true, float64(1000))
	decoded, err := DecodeAMF0All(encoded)
	require.NoError(t, err)
	require.Equal(t, true, decoded[3])
	require.Equal(t, float64(1000), decoded[4])
}

func TestAMF0DecodeStrictArray(t *testing.T) {
	encoded := EncodeAMF0([]interface{}{"a", float64(2)})
	decoded, _, err := DecodeAMF0Val(encoded)
	require.NoError(t, err)
	arr, ok := decoded.(([]interface{}))
	require.True(t, ok)
	require.Equal(t, "a", arr[0])
	require.Equal(t, float64(2), arr[1])
}

func TestAMF0DecodeShortBufferErrors(t *testing.T) {
	_, _, err := DecodeAMF0Val([]byte{amf0Number, 0x00})
	require.Error(t, err)

	_, err = DecodeAMF0All(nil)
	require.NoError(t, err)
}
