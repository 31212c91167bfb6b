package stats

import "time"

// DurationMeter accumulates elapsed playback time from a stream of packet
// timestamps: the monotonic delta between successive timestamps is
// credited in full, and a regression (a republish resetting the
// publisher's clock) resyncs the baseline without crediting the jump.
type DurationMeter struct {
	elapsed  int64 // nanoseconds
	lastTsNs int64
	started  bool
}

func NewDurationMeter() *DurationMeter {
	return &DurationMeter{}
}

// Add records one packet's timestamp, in nanoseconds.
func (d *DurationMeter) Add(tsNs int64) {
	if !d.started {
		d.started = true
		d.lastTsNs = tsNs
		return
	}
	if tsNs <= d.lastTsNs {
		d.lastTsNs = tsNs
		return
	}
	d.elapsed += tsNs - d.lastTsNs
	d.lastTsNs = tsNs
}

// ElapsedMs returns total elapsed playback time in milliseconds.
func (d *DurationMeter) ElapsedMs() int64 {
	return d.elapsed / int64(time.Millisecond)
}
