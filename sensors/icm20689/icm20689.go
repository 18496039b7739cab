package icm20689

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// SettleTime is how long the chip is given after power management and range changes
// before its output registers are trusted.
const SettleTime = 100 * time.Millisecond

var ErrClosed = errors.New("icm20689: bus already closed")

// ConfigurationError is returned by New when the device does not identify as an ICM-20689.
type ConfigurationError struct {
	Expected byte
	Actual   byte
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("icm20689: signature different than expected: expected 0x%02x, got 0x%02x", e.Expected, e.Actual)
}

// InvalidArgumentError reports a range selector outside the defined set.
type InvalidArgumentError struct {
	Setting string
	Value   int
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("icm20689: invalid %s: %d", e.Setting, e.Value)
}

// Bus is the part of embd.I2CBus the driver needs.
type Bus interface {
	ReadFromReg(addr, reg byte, value []byte) error
	WriteToReg(addr, reg byte, value []byte) error
	Close() error
}

// ICM20689 wraps the I2C connection and the active range configuration. It is not safe
// for concurrent use.
type ICM20689 struct {
	bus     Bus
	address byte

	accelRange AccelRange
	accelScale float64
	gyroRange  GyroRange
	gyroScale  float64

	closed bool
}

// sleep is swapped out by tests.
var sleep = time.Sleep

// New checks the identity of the device at address and puts it into its default operating
// point: temperature sensor off, PLL clock, no sample rate division, widest filter bandwidth,
// ±16g and ±1000dps. The bus is not closed on failure.
func New(bus Bus, address byte) (*ICM20689, error) {
	d := &ICM20689{bus: bus, address: address}

	sig, err := d.readRegister(RegWhoAmI)
	if err != nil {
		return nil, fmt.Errorf("icm20689: reading WHO_AM_I: %w", err)
	}
	if sig != WhoAmI {
		return nil, &ConfigurationError{Expected: WhoAmI, Actual: sig}
	}

	pwr := PowerManagement{Sleep: false, TempDisable: true, ClockSelect: 1}
	if err := d.writeRegister(RegPwrMgmt1, pwr.Byte()); err != nil {
		return nil, fmt.Errorf("icm20689: waking up: %w", err)
	}
	sleep(SettleTime)

	if err := d.writeRegister(RegSmplrtDiv, 0); err != nil {
		return nil, fmt.Errorf("icm20689: setting sample rate divider: %w", err)
	}
	if err := d.writeRegister(RegConfig, FilterConfig{}.Byte()); err != nil {
		return nil, fmt.Errorf("icm20689: setting filter: %w", err)
	}
	if err := d.SetAccelRange(Accel16G); err != nil {
		return nil, err
	}
	if err := d.SetGyroRange(Gyro1000DPS); err != nil {
		return nil, err
	}
	sleep(SettleTime)

	return d, nil
}

// Acceleration returns x, y, z acceleration in g.
func (d *ICM20689) Acceleration() ([3]float64, error) {
	raw, err := d.AccelerationRaw()
	if err != nil {
		return [3]float64{}, err
	}
	return scale(raw, d.accelScale), nil
}

// AccelerationRaw returns the unscaled accelerometer output registers.
func (d *ICM20689) AccelerationRaw() ([3]int16, error) {
	return d.readVector(RegAccelOut)
}

// AngularRate returns x, y, z angular rate in degrees per second.
func (d *ICM20689) AngularRate() ([3]float64, error) {
	raw, err := d.AngularRateRaw()
	if err != nil {
		return [3]float64{}, err
	}
	return scale(raw, d.gyroScale), nil
}

// AngularRateRaw returns the unscaled gyroscope output registers.
func (d *ICM20689) AngularRateRaw() ([3]int16, error) {
	return d.readVector(RegGyroOut)
}

func (d *ICM20689) AccelRange() AccelRange { return d.accelRange }
func (d *ICM20689) AccelScale() float64    { return d.accelScale }
func (d *ICM20689) GyroRange() GyroRange   { return d.gyroRange }
func (d *ICM20689) GyroScale() float64     { return d.gyroScale }

// SetAccelRange writes the accelerometer full scale and, once the write succeeded, switches
// the scale factor used by Acceleration.
func (d *ICM20689) SetAccelRange(r AccelRange) error {
	if !r.Valid() {
		return &InvalidArgumentError{Setting: "accel range", Value: int(r)}
	}
	if err := d.writeRegister(RegAccelConfig, RangeConfig{FullScale: uint8(r)}.Byte()); err != nil {
		return fmt.Errorf("icm20689: setting accel range %s: %w", r, err)
	}
	d.accelRange = r
	d.accelScale = r.Scale()
	return nil
}

// SetGyroRange writes the gyroscope full scale and, once the write succeeded, switches
// the scale factor used by AngularRate.
func (d *ICM20689) SetGyroRange(r GyroRange) error {
	if !r.Valid() {
		return &InvalidArgumentError{Setting: "gyro range", Value: int(r)}
	}
	if err := d.writeRegister(RegGyroConfig, RangeConfig{FullScale: uint8(r)}.Byte()); err != nil {
		return fmt.Errorf("icm20689: setting gyro range %s: %w", r, err)
	}
	d.gyroRange = r
	d.gyroScale = r.Scale()
	return nil
}

// Close releases the bus. Callers close exactly once; a second call returns ErrClosed.
func (d *ICM20689) Close() error {
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	return d.bus.Close()
}

func (d *ICM20689) readVector(register byte) (v [3]int16, err error) {
	buf, err := d.readBlock(register, 6)
	if err != nil {
		return v, err
	}
	for i := range v {
		v[i] = int16(binary.BigEndian.Uint16(buf[2*i:]))
	}
	return v, nil
}

func scale(raw [3]int16, sf float64) [3]float64 {
	return [3]float64{float64(raw[0]) * sf, float64(raw[1]) * sf, float64(raw[2]) * sf}
}

func (d *ICM20689) readRegister(register byte) (byte, error) {
	buf, err := d.readBlock(register, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *ICM20689) readBlock(register byte, len int) ([]byte, error) {
	data := make([]byte, len)
	err := d.bus.ReadFromReg(d.address, register, data)
	return data, err
}

func (d *ICM20689) writeRegister(register byte, data byte) error {
	return d.bus.WriteToReg(d.address, register, []byte{data})
}
