package icm20689

import "fmt"

// AccelRange selects the accelerometer full scale. The value is the AFS_SEL field.
type AccelRange uint8

const (
	Accel2G AccelRange = iota
	Accel4G
	Accel8G
	Accel16G
)

var accelFullScale = [...]float64{2, 4, 8, 16}

// GyroRange selects the gyroscope full scale. The value is the FS_SEL field.
type GyroRange uint8

const (
	Gyro250DPS GyroRange = iota
	Gyro500DPS
	Gyro1000DPS
	Gyro2000DPS
)

var gyroFullScale = [...]float64{250, 500, 1000, 2000}

// Valid reports whether r is one of the four selectable ranges.
func (r AccelRange) Valid() bool { return int(r) < len(accelFullScale) }

// FullScale returns the range in g, or 0 for an invalid selector.
func (r AccelRange) FullScale() float64 {
	if !r.Valid() {
		return 0
	}
	return accelFullScale[r]
}

// Scale converts one LSB into g.
func (r AccelRange) Scale() float64 { return r.FullScale() / (1 << 15) }

func (r AccelRange) String() string {
	if !r.Valid() {
		return fmt.Sprintf("AccelRange(%d)", uint8(r))
	}
	return fmt.Sprintf("±%gg", r.FullScale())
}

// Valid reports whether r is one of the four selectable ranges.
func (r GyroRange) Valid() bool { return int(r) < len(gyroFullScale) }

// FullScale returns the range in degrees per second, or 0 for an invalid selector.
func (r GyroRange) FullScale() float64 {
	if !r.Valid() {
		return 0
	}
	return gyroFullScale[r]
}

// Scale converts one LSB into degrees per second.
func (r GyroRange) Scale() float64 { return r.FullScale() / (1 << 15) }

func (r GyroRange) String() string {
	if !r.Valid() {
		return fmt.Sprintf("GyroRange(%d)", uint8(r))
	}
	return fmt.Sprintf("±%gdps", r.FullScale())
}

// ParseAccelRange maps a full scale in g (2, 4, 8 or 16) to its selector.
func ParseAccelRange(g int) (AccelRange, error) {
	for i, fs := range accelFullScale {
		if float64(g) == fs {
			return AccelRange(i), nil
		}
	}
	return 0, &InvalidArgumentError{Setting: "accel range", Value: g}
}

// ParseGyroRange maps a full scale in degrees per second (250, 500, 1000 or 2000) to its selector.
func ParseGyroRange(dps int) (GyroRange, error) {
	for i, fs := range gyroFullScale {
		if float64(dps) == fs {
			return GyroRange(i), nil
		}
	}
	return 0, &InvalidArgumentError{Setting: "gyro range", Value: dps}
}
