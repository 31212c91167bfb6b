package rtmp

// Complex (digest) handshake: C0/C1, S0/S1/S2, C2 with the HMAC-SHA256
// digest exchange Flash-family clients expect, falling back to the simple
// echo handshake when the client advertises version zero.

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

var (
	hsClientFullKey = []byte{
		'G', 'e', 'n', 'u', 'i', 'n', 'e', ' ', 'A', 'd', 'o', 'b', 'e', ' ',
		'F', 'l', 'a', 's', 'h', ' ', 'P', 'l', 'a', 'y', 'e', 'r', ' ',
		'0', '0', '1',
		0xF0, 0xEE, 0xC2, 0x4A, 0x80, 0x68, 0xBE, 0xE8, 0x2E, 0x00, 0xD0, 0xD1,
		0x02, 0x9E, 0x7E, 0x57, 0x6E, 0xEC, 0x5D, 0x2D, 0x29, 0x80, 0x6F, 0xAB,
		0x93, 0xB8, 0xE6, 0x36, 0xCF, 0xEB, 0x31, 0xAE,
	}
	hsServerFullKey = []byte{
		'G', 'e', 'n', 'u', 'i', 'n', 'e', ' ', 'A', 'd', 'o', 'b', 'e', ' ',
		'F', 'l', 'a', 's', 'h', ' ', 'M', 'e', 'd', 'i', 'a', ' ',
		'S', 'e', 'r', 'v', 'e', 'r', ' ',
		'0', '0', '1',
		0xF0, 0xEE, 0xC2, 0x4A, 0x80, 0x68, 0xBE, 0xE8, 0x2E, 0x00, 0xD0, 0xD1,
		0x02, 0x9E, 0x7E, 0x57, 0x6E, 0xEC, 0x5D, 0x2D, 0x29, 0x80, 0x6F, 0xAB,
		0x93, 0xB8, 0xE6, 0x36, 0xCF, 0xEB, 0x31, 0xAE,
	}
	hsClientPartialKey = hsClientFullKey[:30]
	hsServerPartialKey = hsServerFullKey[:36]
)

func hsMakeDigest(key, src []byte, gap int) []byte {
	h := hmac.New(sha256.New, key)
	if gap <= 0 {
		h.Write(src)
	} else {
		h.Write(src[:gap])
		h.Write(src[gap+32:])
	}
	return h.Sum(nil)
}

func hsCalcDigestPos(p []byte, base int) int {
	pos := 0
	for i := 0; i < 4; i++ {
		pos += int(p[base+i])
	}
	return (pos % 728) + base + 4
}

func hsFindDigest(p, key []byte, base int) int {
	gap := hsCalcDigestPos(p, base)
	digest := hsMakeDigest(key, p, gap)
	if !bytes.Equal(p[gap:gap+32], digest) {
		return -1
	}
	return gap
}

func hsParse1(p, peerkey, key []byte) (bool, []byte) {
	pos := hsFindDigest(p, peerkey, 772)
	if pos == -1 {
		pos = hsFindDigest(p, peerkey, 8)
		if pos == -1 {
			return false, nil
		}
	}
	return true, hsMakeDigest(key, p[pos:pos+32], -1)
}

func hsCreate01(p []byte, ts, ver uint32, key []byte) {
	p[0] = 3
	p1 := p[1:]
	rand.Read(p1[8:])
	binary.BigEndian.PutUint32(p1[0:4], ts)
	binary.BigEndian.PutUint32(p1[4:8], ver)
	gap := hsCalcDigestPos(p1, 8)
	digest := hsMakeDigest(key, p1, gap)
	copy(p1[gap:], digest)
}

func hsCreate2(p, key []byte) {
	rand.Read(p)
	gap := len(p) - 32
	digest := hsMakeDigest(key, p, gap)
	copy(p[gap:], digest)
}

// handshakeClient runs the C0/C1 -> S0/S1/S2 -> C2 client handshake over
// conn, honoring deadline for each leg.
func handshakeClient(nc net.Conn, deadline time.Duration) error {
	var buf [(1 + 1536*2) * 2]byte
	C0C1C2 := buf[:1536*2+1]
	C0C1 := C0C1C2[:1536+1]
	C2 := C0C1C2[1536+1:]

	S0S1S2 := buf[1536*2+1:]
	S1 := S0S1S2[1 : 1536+1]

	C0C1[0] = 3

	nc.SetDeadline(time.Now().Add(deadline))
	if _, err := nc.Write(C0C1); err != nil {
		return fmt.Errorf("handshake client write C0C1: %w", err)
	}

	nc.SetDeadline(time.Now().Add(deadline))
	if _, err := io.ReadFull(nc, S0S1S2); err != nil {
		return fmt.Errorf("handshake client read S0S1S2: %w", err)
	}
	copy(C2, S1)

	nc.SetDeadline(time.Now().Add(deadline))
	if _, err := nc.Write(C2); err != nil {
		return fmt.Errorf("handshake client write C2: %w", err)
	}
	return nil
}

// handshakeServer runs the C0/C1 -> S0/S1/S2 -> C2 server handshake,
// including the digest-based complex path when the client advertises a
// version.
func handshakeServer(nc net.Conn, deadline time.Duration) error {
	var buf [(1 + 1536*2) * 2]byte
	C0C1C2 := buf[:1536*2+1]
	C0 := C0C1C2[:1]
	C1 := C0C1C2[1 : 1536+1]
	C2 := C0C1C2[1536+1:]

	S0S1S2 := buf[1536*2+1:]
	S0 := S0S1S2[:1]
	S1 := S0S1S2[1 : 1536+1]
	S0S1 := S0S1S2[:1536+1]
	S2 := S0S1S2[1536+1:]

	nc.SetDeadline(time.Now().Add(deadline))
	if _, err := io.ReadFull(nc, C0C1C2[:1536+1]); err != nil {
		return fmt.Errorf("handshake server read C0C1: %w", err)
	}
	if C0[0] != 3 {
		return fmt.Errorf("handshake server: unsupported version %d", C0[0])
	}

	S0[0] = 3
	clitime := binary.BigEndian.Uint32(C1[0:4])
	cliver := binary.BigEndian.Uint32(C1[4:8])
	srvver := uint32(0x0d0e0a0d)

	if cliver != 0 {
		ok, digest := hsParse1(C1, hsClientPartialKey, hsServerFullKey)
		if !ok {
			return fmt.Errorf("handshake server: invalid C1 digest")
		}
		hsCreate01(S0S1, clitime, srvver, hsServerPartialKey)
		hsCreate2(S2, digest)
	} else {
		copy(S1, C1)
		copy(S2, C1)
	}

	nc.SetDeadline(time.Now().Add(deadline))
	if _, err := nc.Write(S0S1S2); err != nil {
		return fmt.Errorf("handshake server write S0S1S2: %w", err)
	}

	nc.SetDeadline(time.Now().Add(deadline))
	if _, err := io.ReadFull(nc, C2); err != nil {
		return fmt.Errorf("handshake server read C2: %w", err)
	}
	return nil
}
