package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// For a monotonically non-decreasing timestamp sequence, accumulated
// elapsed time equals last.ts - first.ts.
func TestDurationMeterMatchesLastMinusFirst(t *testing.T) {
	d := NewDurationMeter()
	base := int64(time.Second)
	step := int64(40 * time.Millisecond)

	for i := 0; i < 10; i++ {
		d.Add(base + int64(i)*step)
	}

	expected := (9 * step) / int64(time.Millisecond)
	require.Equal(t, expected, d.ElapsedMs())
}

func TestDurationMeterResetsOnTimestampRegression(t *testing.T) {
	d := NewDurationMeter()
	d.Add(int64(5 * time.Second))
	d.Add(int64(6 * time.Second))
	require.Equal(t, int64(1000), d.ElapsedMs())

	// A republish resets the publisher's clock to a lower value.
	d.Add(int64(1 * time.Second))
	require.Equal(t, int64(1000), d.ElapsedMs(), "regression must not credit elapsed time")

	d.Add(int64(1*time.Second) + int64(250*time.Millisecond))
	require.Equal(t, int64(1250), d.ElapsedMs())
}

func TestDurationMeterCreditsGapsInFullFromZeroBaseline(t *testing.T) {
	d := NewDurationMeter()
	d.Add(0)
	d.Add(int64(10 * time.Second))
	require.Equal(t, int64(10000), d.ElapsedMs())
}
