// Package sampler drives an IMU at a fixed rate and appends every reading to a datalog.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/b3nn0/imulog/datalog"
)

const (
	DefaultRate           = 800
	DefaultReportInterval = 3 * time.Second
	DefaultSpinThreshold  = 2 * time.Millisecond
)

var (
	ErrRate = errors.New("sampler: rate must be positive")
	ErrWait = errors.New("sampler: unknown wait strategy")
)

// WaitStrategy selects how the loop waits for the next deadline.
type WaitStrategy int

const (
	// Spin polls the clock until the deadline. Lowest jitter, burns a core.
	Spin WaitStrategy = iota
	// SleepSpin sleeps until SpinThreshold before the deadline, then spins.
	SleepSpin
)

func (w WaitStrategy) String() string {
	switch w {
	case Spin:
		return "spin"
	case SleepSpin:
		return "sleep"
	}
	return fmt.Sprintf("WaitStrategy(%d)", int(w))
}

// ParseWaitStrategy accepts "spin" or "sleep".
func ParseWaitStrategy(s string) (WaitStrategy, error) {
	switch s {
	case "spin":
		return Spin, nil
	case "sleep":
		return SleepSpin, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrWait, s)
}

// Reader is the IMU being sampled.
type Reader interface {
	Acceleration() ([3]float64, error)
	AngularRate() ([3]float64, error)
}

// Sink receives one row per tick.
type Sink interface {
	Write(datalog.Sample) error
}

type Config struct {
	Rate           int // samples per second
	Wait           WaitStrategy
	SpinThreshold  time.Duration // SleepSpin only
	ReportInterval time.Duration // how often a summary is logged
	Limit          uint64        // stop after this many samples, 0 runs until interrupted
}

// Sampler is the sampling loop. It owns no goroutines; Run blocks the caller.
type Sampler struct {
	cfg     Config
	imu     Reader
	sink    Sink
	clock   Clock
	logger  *log.Logger
	metrics *Metrics

	start   time.Duration
	samples atomic.Uint64
}

type Option func(*Sampler)

func WithClock(c Clock) Option { return func(s *Sampler) { s.clock = c } }

func WithLogger(l *log.Logger) Option { return func(s *Sampler) { s.logger = l } }

func WithMetrics(m *Metrics) Option { return func(s *Sampler) { s.metrics = m } }

// New returns a Sampler reading imu into sink. Zero ReportInterval and SpinThreshold take
// their defaults.
func New(cfg Config, imu Reader, sink Sink, opts ...Option) (*Sampler, error) {
	if cfg.Rate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrRate, cfg.Rate)
	}
	if cfg.Wait != Spin && cfg.Wait != SleepSpin {
		return nil, fmt.Errorf("%w: %s", ErrWait, cfg.Wait)
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = DefaultReportInterval
	}
	if cfg.SpinThreshold <= 0 {
		cfg.SpinThreshold = DefaultSpinThreshold
	}

	s := &Sampler{
		cfg:    cfg,
		imu:    imu,
		sink:   sink,
		clock:  Monotonic{},
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s, nil
}

// Period is the time between two deadlines.
func (s *Sampler) Period() time.Duration {
	return time.Second / time.Duration(s.cfg.Rate)
}

// Samples returns the number of rows written so far. Safe for concurrent use.
func (s *Sampler) Samples() uint64 {
	return s.samples.Load()
}

// offset returns n/rate seconds without accumulating rounding error, so deadlines form an
// exact arithmetic progression no matter how long the run is.
func offset(n uint64, rate int) time.Duration {
	r := uint64(rate)
	return time.Duration(n/r)*time.Second + time.Duration(n%r)*time.Second/time.Duration(r)
}

// Run samples until ctx is cancelled, Limit samples were taken, or a read or write fails.
// Cancellation is checked between ticks, so a row is either fully written or not at all, and
// it is not an error. The deadline of tick n is start + n/rate: a late tick does not shift
// the ones after it, and an overrun is never caught up by skipping ticks.
func (s *Sampler) Run(ctx context.Context) (Summary, error) {
	period := s.Period()
	s.start = s.clock.Now()
	nextReport := s.start + s.cfg.ReportInterval
	s.logger.Printf("Sampler Info: start, rate=%d/s wait=%s\n", s.cfg.Rate, s.cfg.Wait)

	for n := uint64(0); ; n++ {
		if ctx.Err() != nil {
			sum := s.summary()
			s.logger.Printf("Interrupted by user: %s\n", sum)
			return sum, nil
		}
		if s.cfg.Limit > 0 && n >= s.cfg.Limit {
			sum := s.summary()
			s.logger.Printf("Sampler Info: done: %s\n", sum)
			return sum, nil
		}

		deadline := s.start + offset(n, s.cfg.Rate)
		now := s.wait(deadline)
		if now-deadline >= period {
			s.metrics.Overruns.Inc()
		}

		row, err := s.read(now)
		if err != nil {
			s.metrics.ReadErrors.Inc()
			return s.summary(), err
		}
		if err := s.sink.Write(row); err != nil {
			return s.summary(), fmt.Errorf("sampler: writing sample %d: %w", n, err)
		}
		s.samples.Add(1)
		s.metrics.Samples.Inc()

		if now := s.clock.Now(); now > nextReport {
			sum := s.summaryAt(now)
			s.metrics.Rate.Set(sum.Rate)
			s.logger.Printf("%s\n", sum)
			for nextReport < now {
				nextReport += s.cfg.ReportInterval
			}
		}
	}
}

// wait blocks until the clock reaches deadline and returns the time it saw last.
func (s *Sampler) wait(deadline time.Duration) time.Duration {
	now := s.clock.Now()
	if s.cfg.Wait == SleepSpin {
		if d := deadline - now - s.cfg.SpinThreshold; d > 0 {
			s.clock.Sleep(d)
			now = s.clock.Now()
		}
	}
	for now < deadline {
		now = s.clock.Now()
	}
	return now
}

func (s *Sampler) read(ts time.Duration) (datalog.Sample, error) {
	a, err := s.imu.Acceleration()
	if err != nil {
		return datalog.Sample{}, fmt.Errorf("sampler: reading acceleration: %w", err)
	}
	g, err := s.imu.AngularRate()
	if err != nil {
		return datalog.Sample{}, fmt.Errorf("sampler: reading angular rate: %w", err)
	}
	return datalog.Sample{
		TS: ts.Seconds(),
		AX: a[0], AY: a[1], AZ: a[2],
		GX: g[0], GY: g[1], GZ: g[2],
	}, nil
}

func (s *Sampler) summary() Summary {
	return s.summaryAt(s.clock.Now())
}

func (s *Sampler) summaryAt(now time.Duration) Summary {
	return newSummary(s.samples.Load(), now-s.start)
}
