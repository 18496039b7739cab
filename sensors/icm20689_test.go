package sensors

import (
	"errors"
	"testing"

	"go.viam.com/test"

	"github.com/b3nn0/imulog/sensors/icm20689"
)

type fakeBus struct {
	regs   [128]byte
	closed int
}

func (b *fakeBus) ReadFromReg(addr, reg byte, value []byte) error {
	copy(value, b.regs[reg:])
	return nil
}

func (b *fakeBus) WriteToReg(addr, reg byte, value []byte) error {
	copy(b.regs[reg:], value)
	return nil
}

func (b *fakeBus) Close() error {
	b.closed++
	return nil
}

func TestSetupICM20689(t *testing.T) {
	bus := &fakeBus{}
	bus.regs[icm20689.RegWhoAmI] = icm20689.WhoAmI

	imu, err := setupICM20689(bus, icm20689.Address, icm20689.Accel4G, icm20689.Gyro2000DPS)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bus.closed, test.ShouldEqual, 0)
	test.That(t, imu.AccelRange(), test.ShouldEqual, icm20689.Accel4G)
	test.That(t, imu.GyroRange(), test.ShouldEqual, icm20689.Gyro2000DPS)
	test.That(t, bus.regs[icm20689.RegAccelConfig], test.ShouldEqual, byte(1<<3))
	test.That(t, bus.regs[icm20689.RegGyroConfig], test.ShouldEqual, byte(3<<3))

	var reader IMUReader = imu
	raw, ok := reader.(RawIMUReader)
	test.That(t, ok, test.ShouldBeTrue)
	bus.regs[icm20689.RegAccelOut] = 0x40
	a, err := raw.AccelerationRaw()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a, test.ShouldResemble, [3]int16{0x4000, 0, 0})
	acc, err := reader.Acceleration()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, acc[0], test.ShouldEqual, 2.0)

	test.That(t, reader.Close(), test.ShouldBeNil)
	test.That(t, bus.closed, test.ShouldEqual, 1)
}

func TestSetupICM20689ReleasesBus(t *testing.T) {
	bus := &fakeBus{}
	bus.regs[icm20689.RegWhoAmI] = 0x12

	imu, err := setupICM20689(bus, icm20689.Address, icm20689.Accel16G, icm20689.Gyro2000DPS)
	test.That(t, imu, test.ShouldBeNil)
	var cfgErr *icm20689.ConfigurationError
	test.That(t, errors.As(err, &cfgErr), test.ShouldBeTrue)
	test.That(t, cfgErr.Actual, test.ShouldEqual, byte(0x12))
	test.That(t, bus.closed, test.ShouldEqual, 1)

	bus = &fakeBus{}
	bus.regs[icm20689.RegWhoAmI] = icm20689.WhoAmI
	_, err = setupICM20689(bus, icm20689.Address, icm20689.AccelRange(7), icm20689.Gyro2000DPS)
	var argErr *icm20689.InvalidArgumentError
	test.That(t, errors.As(err, &argErr), test.ShouldBeTrue)
	test.That(t, bus.closed, test.ShouldEqual, 1)
}
