// Package errs implements the error taxonomy the session driver and its
// collaborators use to separate ordinary failures from control-flow signals
// (republish, close, pause) that the outer loop must recover from rather
// than report.
package errs

import (
	"github.com/pkg/errors"
)

const (
	CodeUnknown = 9999

	CodeProtocolHandshake = 1101
	CodeProtocolConnect   = 1102
	CodeProtocolIdentify  = 1103
	CodeProtocolDecode    = 1104
	CodeProtocolSend      = 1105
	CodeProtocolRecv      = 1106

	CodeConfigVhostMissing  = 1201
	CodeConfigVhostDisabled = 1202
	CodeConfigBadTcUrl      = 1203

	CodePolicyRefererDenied         = 1301
	CodePolicySecurityDenied        = 1302
	CodePolicyHookDenied            = 1303
	CodePolicyBandwidthDenied       = 1304
	CodePolicyTokenTraversalFailed  = 1305

	CodeSystemControlRepublish     = 1401
	CodeSystemControlRtmpClose     = 1402
	CodeSystemControlClientInvalid = 1403

	CodeStreamBusy          = 1501
	CodeSocketTimeout       = 1502
	CodeClientGracefulClose = 1503
	CodeUserDisconnect      = 1504
	CodeDurationExceeded    = 1505
)

// Error is a plain value carrying a stable numeric code plus a human
// message, never a string-matched type.
type Error struct {
	Code int32
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func New(code int32, msg string) error {
	return &Error{Code: code, Msg: msg}
}

func Code(e error) int32 {
	if e == nil {
		return 0
	}
	err, ok := e.(*Error)
	if !ok {
		return CodeUnknown
	}
	if err == nil {
		return 0
	}
	return err.Code
}

func Msg(e error) string {
	if e == nil {
		return "success"
	}
	err, ok := e.(*Error)
	if !ok {
		return "unknown error: " + e.Error()
	}
	if err == nil {
		return "success"
	}
	return err.Msg
}

func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// Sentinel control-flow signals. These are not failures: the session driver
// switches on them with errors.Is and either extends timeouts and re-enters
// the service loop, or treats them as a clean stop. They are deliberately
// modeled as exported sentinel values rather than magic codes, per the
// driver's "republish/close are control flow, not exceptions" rule.
var (
	ErrRepublish     = New(CodeSystemControlRepublish, "system control: republish")
	ErrRtmpClose     = New(CodeSystemControlRtmpClose, "system control: rtmp close")
	ErrClientInvalid = New(CodeSystemControlClientInvalid, "system control: client invalid")

	ErrStreamBusy          = New(CodeStreamBusy, "publish rejected: stream busy")
	ErrSocketTimeout       = New(CodeSocketTimeout, "socket timeout")
	ErrClientGracefulClose = New(CodeClientGracefulClose, "client closed connection gracefully")
	ErrUserDisconnect      = New(CodeUserDisconnect, "user disconnect")
	ErrDurationExceeded    = New(CodeDurationExceeded, "play duration exceeded")

	ErrVhostMissing  = New(CodeConfigVhostMissing, "vhost not configured")
	ErrVhostDisabled = New(CodeConfigVhostDisabled, "vhost disabled")
	ErrBadTcUrl      = New(CodeConfigBadTcUrl, "malformed tcUrl")

	ErrRefererDenied        = New(CodePolicyRefererDenied, "referer check denied")
	ErrSecurityDenied       = New(CodePolicySecurityDenied, "security policy denied")
	ErrHookDenied           = New(CodePolicyHookDenied, "webhook denied")
	ErrBandwidthDenied      = New(CodePolicyBandwidthDenied, "bandwidth check denied")
	ErrTokenTraversalFailed = New(CodePolicyTokenTraversalFailed, "edge token traversal failed")
)

// Protocol wraps a wire-level failure with the phase it happened in, for
// logging; it is always fatal to the current cycle.
type Protocol struct {
	Phase string
	Err   error
}

func (e *Protocol) Error() string {
	return e.Phase + ": " + e.Err.Error()
}

func (e *Protocol) Unwrap() error { return e.Err }

func NewProtocolError(phase string, err error) error {
	if err == nil {
		return nil
	}
	return &Protocol{Phase: phase, Err: err}
}
