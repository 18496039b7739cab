package sampler

import (
	"fmt"
	"time"

	humanize "github.com/dustin/go-humanize"
)

// Summary describes a run so far.
type Summary struct {
	Samples uint64
	Elapsed time.Duration
	Rate    float64 // samples per second
}

func newSummary(samples uint64, elapsed time.Duration) Summary {
	s := Summary{Samples: samples, Elapsed: elapsed}
	if elapsed > 0 {
		s.Rate = float64(samples) / elapsed.Seconds()
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("samples=%s time=%.3fs rate=%.1f/s", humanize.Comma(int64(s.Samples)), s.Elapsed.Seconds(), s.Rate)
}
