package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelsSurviveErrorsIsThroughWrapping(t *testing.T) {
	wrapped := Wrapf(ErrRepublish, "publish_loop: %s", "camera1")
	require.True(t, errors.Is(wrapped, ErrRepublish))
	require.False(t, errors.Is(wrapped, ErrRtmpClose))
}

func TestCodeAndMsgOnSentinels(t *testing.T) {
	require.Equal(t, int32(CodeSystemControlRepublish), Code(ErrRepublish))
	require.Equal(t, "system control: republish", Msg(ErrRepublish))
}

func TestCodeOnNilIsZero(t *testing.T) {
	require.Equal(t, int32(0), Code(nil))
	require.Equal(t, "success", Msg(nil))
}

func TestCodeOnForeignErrorIsUnknown(t *testing.T) {
	require.Equal(t, int32(CodeUnknown), Code(errors.New("boom")))
}

func TestProtocolErrorUnwraps(t *testing.T) {
	cause := errors.New("read: connection reset")
	wrapped := NewProtocolError("handshake", cause)
	require.True(t, errors.Is(wrapped, cause))
	require.Contains(t, wrapped.Error(), "handshake")
}

func TestNewProtocolErrorNilIsNil(t *testing.T) {
	require.NoError(t, NewProtocolError("handshake", nil))
}
