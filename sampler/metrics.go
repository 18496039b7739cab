package sampler

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the prometheus collectors updated by a Sampler.
type Metrics struct {
	Samples    prometheus.Counter
	Overruns   prometheus.Counter
	ReadErrors prometheus.Counter
	Rate       prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg, if it isn't nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imulog_samples_total",
			Help: "Samples written to the datalog.",
		}),
		Overruns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imulog_sample_overruns_total",
			Help: "Ticks that started a full period or more after their deadline.",
		}),
		ReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imulog_read_errors_total",
			Help: "Failed IMU reads.",
		}),
		Rate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "imulog_sample_rate_hz",
			Help: "Achieved sample rate since start, updated with every summary.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Samples, m.Overruns, m.ReadErrors, m.Rate)
	}
	return m
}
