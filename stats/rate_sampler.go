package stats

import "sync"

// The three moving windows RateSampler tracks.
const (
	window1s  = 1
	window30s = 30
	window5m  = 300
)

// RateSampler tracks bytes sent/received and exposes kbps over three
// rolling windows, one Periodic per window per direction.
type RateSampler struct {
	mu sync.Mutex

	send1s, send30s, send5m *Periodic
	recv1s, recv30s, recv5m *Periodic

	// last observed cumulative socket counters, and the marks the
	// *BytesDelta accessors diff against.
	sendBytesTotal, recvBytesTotal         uint64
	lastSendBytesTotal, lastRecvBytesTotal uint64
}

func NewRateSampler() *RateSampler {
	return &RateSampler{
		send1s:  NewPeriodic(defaultGridNum, window1s),
		send30s: NewPeriodic(defaultGridNum, window30s),
		send5m:  NewPeriodic(defaultGridNum, window5m),
		recv1s:  NewPeriodic(defaultGridNum, window1s),
		recv30s: NewPeriodic(defaultGridNum, window30s),
		recv5m:  NewPeriodic(defaultGridNum, window5m),
	}
}

// Sample reads the socket's cumulative sent/received byte counters; the
// delta since the previous call feeds the rate windows.
func (r *RateSampler) Sample(sentTotal, recvTotal uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sentTotal > r.sendBytesTotal {
		d := int64(sentTotal - r.sendBytesTotal)
		r.send1s.Stat(d)
		r.send30s.Stat(d)
		r.send5m.Stat(d)
	}
	if recvTotal > r.recvBytesTotal {
		d := int64(recvTotal - r.recvBytesTotal)
		r.recv1s.Stat(d)
		r.recv30s.Stat(d)
		r.recv5m.Stat(d)
	}
	r.sendBytesTotal = sentTotal
	r.recvBytesTotal = recvTotal
}

func kbps(bytesPerSec int64) int64 {
	return bytesPerSec * 8 / 1000
}

func (r *RateSampler) SendKbps() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return kbps(r.send1s.Avg())
}

func (r *RateSampler) SendKbps30s() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return kbps(r.send30s.Avg() / window30s)
}

func (r *RateSampler) SendKbps5m() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return kbps(r.send5m.Avg() / window5m)
}

func (r *RateSampler) RecvKbps() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return kbps(r.recv1s.Avg())
}

func (r *RateSampler) RecvKbps30s() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return kbps(r.recv30s.Avg() / window30s)
}

func (r *RateSampler) RecvKbps5m() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return kbps(r.recv5m.Avg() / window5m)
}

// SendBytesDelta and RecvBytesDelta report cumulative bytes sent/received
// since the previous call to the same accessor, for webhook duration/byte
// reporting.
func (r *RateSampler) SendBytesDelta() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	delta := r.sendBytesTotal - r.lastSendBytesTotal
	r.lastSendBytesTotal = r.sendBytesTotal
	return delta
}

func (r *RateSampler) RecvBytesDelta() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	delta := r.recvBytesTotal - r.lastRecvBytesTotal
	r.lastRecvBytesTotal = r.recvBytesTotal
	return delta
}

// Cleanup is the sampler's dispose point. RateSampler holds no external
// resources; callers just stop calling Sample after this.
func (r *RateSampler) Cleanup() {}

// Resample resets every window, used when a session transitions between
// publish and play roles and a stale rate from the previous role would
// otherwise bleed into the new one. The cumulative counter baselines are
// kept so the next Sample diffs against the socket's real totals.
func (r *RateSampler) Resample() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fresh := NewRateSampler()
	r.send1s, r.send30s, r.send5m = fresh.send1s, fresh.send30s, fresh.send5m
	r.recv1s, r.recv30s, r.recv5m = fresh.recv1s, fresh.recv30s, fresh.recv5m
	r.lastSendBytesTotal, r.lastRecvBytesTotal = r.sendBytesTotal, r.recvBytesTotal
}
