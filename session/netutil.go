package session

import (
	"errors"
	"io"
	"net"

	srserrs "github.com/bugVanisher/srs-session/errs"
)

// classifyIOError maps a raw socket error from rtmp.Conn into the
// recoverable-close sentinels, so the rest of the driver never
// pattern-matches on net.Error/io.EOF itself.
func classifyIOError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return srserrs.ErrClientGracefulClose
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return srserrs.ErrSocketTimeout
	}
	return err
}
