// Package sensors opens the IMUs imulog can sample on the host's buses.
package sensors

// IMUReader is an Inertial Measurement Unit reporting calibrated acceleration and angular rate.
type IMUReader interface {
	// Acceleration returns x, y, z acceleration in g.
	Acceleration() ([3]float64, error)
	// AngularRate returns x, y, z angular rate in degrees per second.
	AngularRate() ([3]float64, error)
	Close() error
}

// RawIMUReader is implemented by IMUs that also expose their unscaled output registers.
type RawIMUReader interface {
	AccelerationRaw() ([3]int16, error)
	AngularRateRaw() ([3]int16, error)
}
