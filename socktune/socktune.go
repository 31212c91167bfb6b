// Package socktune tunes the send/receive socket buffers and TCP_NODELAY
// on a connection's underlying file descriptor.
package socktune

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// defaultSndBufSize, when positive, overrides the sleep*kbps/8 formula
// with a fixed send buffer size.
const defaultSndBufSize = 0

const assumedKbps = 5000

// Tuner remembers the last TCP_NODELAY value applied, so SetNoDelay only
// issues a setsockopt call when the configured value actually changes.
type Tuner struct {
	nodelay bool
}

func withFd(conn net.Conn, f func(fd uintptr) error) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return fmt.Errorf("socktune: connection does not expose a raw fd")
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	err = raw.Control(func(fd uintptr) {
		opErr = f(fd)
	})
	if err != nil {
		return err
	}
	return opErr
}

// ChangeMwSleep resizes the socket send buffer for a new merged-write
// sleep interval: buffer = sleepMs*assumedKbps/8/2, or defaultSndBufSize/2
// when that override is set. Halved because the kernel doubles whatever
// value is set.
func ChangeMwSleep(conn net.Conn, sleepMs int) error {
	socketBufferSize := sleepMs * assumedKbps / 8
	nbSbuf := socketBufferSize / 2
	if defaultSndBufSize > 0 {
		nbSbuf = defaultSndBufSize / 2
	}
	return withFd(conn, func(fd uintptr) error {
		return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, nbSbuf)
	})
}

// ChangeMrSleep resizes the socket receive buffer for a merged-read sleep
// interval, the publish-side mirror of ChangeMwSleep: a publisher batched
// at mr_sleep_ms needs the kernel to hold that window's worth of inbound
// media.
func ChangeMrSleep(conn net.Conn, sleepMs int) error {
	nbRbuf := sleepMs * assumedKbps / 8 / 2
	return withFd(conn, func(fd uintptr) error {
		return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, nbRbuf)
	})
}

// SetNoDelay applies TCP_NODELAY only when it differs from the last value
// this Tuner applied.
func (t *Tuner) SetNoDelay(conn net.Conn, nodelay bool) error {
	if nodelay == t.nodelay {
		return nil
	}
	err := withFd(conn, func(fd uintptr) error {
		v := 0
		if nodelay {
			v = 1
		}
		return unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, v)
	})
	if err != nil {
		return err
	}
	t.nodelay = nodelay
	return nil
}
