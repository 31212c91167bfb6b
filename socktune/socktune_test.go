package socktune

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetNoDelayIsNoOpWhenUnchanged(t *testing.T) {
	tu := &Tuner{}
	// Tuner's zero value already records nodelay=false; asking for false
	// again must not touch the fd (and so must not error even on a
	// net.Pipe conn, which doesn't implement syscall.Conn).
	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	require.NoError(t, tu.SetNoDelay(srv, false))
}

func TestSetNoDelayOnNonSyscallConnErrors(t *testing.T) {
	tu := &Tuner{}
	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	// net.Pipe's Conn does not implement syscall.Conn, so an actual change
	// attempt must surface that rather than silently succeeding.
	require.Error(t, tu.SetNoDelay(srv, true))
}

func TestChangeMwSleepOnNonSyscallConnErrors(t *testing.T) {
	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	require.Error(t, ChangeMwSleep(srv, 350))
	require.Error(t, ChangeMrSleep(srv, 350))
}

func TestChangeMwSleepOnRealSocket(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	acceptedCh := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			acceptedCh <- c
		}
	}()

	cli, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer cli.Close()

	srv := <-acceptedCh
	defer srv.Close()

	require.NoError(t, ChangeMwSleep(srv, 350))
	require.NoError(t, ChangeMrSleep(srv, 350))

	tu := &Tuner{}
	require.NoError(t, tu.SetNoDelay(srv, true))
	require.NoError(t, tu.SetNoDelay(srv, true)) // second call is a no-op
}
