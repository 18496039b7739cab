package icm20689

import (
	"errors"
	"testing"
	"time"

	"go.viam.com/test"
)

type write struct {
	reg  byte
	data byte
}

// fakeBus is a register file. ReadFromRegFunc and WriteToRegFunc override it when set.
type fakeBus struct {
	regs    [128]byte
	writes  []write
	addrs   []byte
	closed  int
	readErr error

	ReadFromRegFunc func(addr, reg byte, value []byte) error
	WriteToRegFunc  func(addr, reg byte, value []byte) error
}

func newFakeBus() *fakeBus {
	b := &fakeBus{}
	b.regs[RegWhoAmI] = WhoAmI
	return b
}

func (b *fakeBus) ReadFromReg(addr, reg byte, value []byte) error {
	b.addrs = append(b.addrs, addr)
	if b.ReadFromRegFunc != nil {
		return b.ReadFromRegFunc(addr, reg, value)
	}
	if b.readErr != nil {
		return b.readErr
	}
	copy(value, b.regs[reg:])
	return nil
}

func (b *fakeBus) WriteToReg(addr, reg byte, value []byte) error {
	b.addrs = append(b.addrs, addr)
	if b.WriteToRegFunc != nil {
		return b.WriteToRegFunc(addr, reg, value)
	}
	for i, v := range value {
		b.regs[int(reg)+i] = v
		b.writes = append(b.writes, write{reg: reg + byte(i), data: v})
	}
	return nil
}

func (b *fakeBus) Close() error {
	b.closed++
	return nil
}

func noSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	old := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { sleep = old })
	return &slept
}

func TestNew(t *testing.T) {
	slept := noSleep(t)
	bus := newFakeBus()

	d, err := New(bus, Address)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bus.writes, test.ShouldResemble, []write{
		{RegPwrMgmt1, 0x09},
		{RegSmplrtDiv, 0},
		{RegConfig, 0},
		{RegAccelConfig, 3 << 3},
		{RegGyroConfig, 2 << 3},
	})
	for _, a := range bus.addrs {
		test.That(t, a, test.ShouldEqual, Address)
	}
	test.That(t, *slept, test.ShouldResemble, []time.Duration{SettleTime, SettleTime})
	test.That(t, d.AccelRange(), test.ShouldEqual, Accel16G)
	test.That(t, d.AccelScale(), test.ShouldEqual, 16.0/32768)
	test.That(t, d.GyroRange(), test.ShouldEqual, Gyro1000DPS)
	test.That(t, d.GyroScale(), test.ShouldEqual, 1000.0/32768)
	test.That(t, bus.closed, test.ShouldEqual, 0)
}

func TestNewWrongIdentity(t *testing.T) {
	noSleep(t)
	for _, sig := range []byte{0x00, 0x68, 0x97, 0x99, 0xff} {
		bus := newFakeBus()
		bus.regs[RegWhoAmI] = sig

		d, err := New(bus, Address)
		test.That(t, d, test.ShouldBeNil)
		var cfgErr *ConfigurationError
		test.That(t, errors.As(err, &cfgErr), test.ShouldBeTrue)
		test.That(t, cfgErr.Expected, test.ShouldEqual, WhoAmI)
		test.That(t, cfgErr.Actual, test.ShouldEqual, sig)
		test.That(t, bus.writes, test.ShouldBeEmpty)
	}
}

func TestNewTransportError(t *testing.T) {
	noSleep(t)
	bus := newFakeBus()
	bus.readErr = errors.New("remote I/O error")

	_, err := New(bus, Address)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, bus.readErr), test.ShouldBeTrue)
	test.That(t, bus.writes, test.ShouldBeEmpty)

	bus = newFakeBus()
	writeErr := errors.New("bus stalled")
	bus.WriteToRegFunc = func(addr, reg byte, value []byte) error { return writeErr }
	_, err = New(bus, Address)
	test.That(t, errors.Is(err, writeErr), test.ShouldBeTrue)
}

func TestSetAccelRange(t *testing.T) {
	noSleep(t)
	for _, tc := range []struct {
		r         AccelRange
		fullScale float64
	}{
		{Accel2G, 2},
		{Accel4G, 4},
		{Accel8G, 8},
		{Accel16G, 16},
	} {
		bus := newFakeBus()
		d, err := New(bus, Address)
		test.That(t, err, test.ShouldBeNil)
		bus.writes = nil

		test.That(t, d.SetAccelRange(tc.r), test.ShouldBeNil)
		test.That(t, bus.writes, test.ShouldResemble, []write{{RegAccelConfig, byte(tc.r) << 3}})
		test.That(t, d.AccelRange(), test.ShouldEqual, tc.r)
		test.That(t, d.AccelScale(), test.ShouldEqual, tc.fullScale/32768)
	}
}

func TestSetGyroRange(t *testing.T) {
	noSleep(t)
	for _, tc := range []struct {
		r         GyroRange
		fullScale float64
	}{
		{Gyro250DPS, 250},
		{Gyro500DPS, 500},
		{Gyro1000DPS, 1000},
		{Gyro2000DPS, 2000},
	} {
		bus := newFakeBus()
		d, err := New(bus, Address)
		test.That(t, err, test.ShouldBeNil)
		bus.writes = nil

		test.That(t, d.SetGyroRange(tc.r), test.ShouldBeNil)
		test.That(t, bus.writes, test.ShouldResemble, []write{{RegGyroConfig, byte(tc.r) << 3}})
		test.That(t, d.GyroRange(), test.ShouldEqual, tc.r)
		test.That(t, d.GyroScale(), test.ShouldEqual, tc.fullScale/32768)
	}
}

func TestSetRangeInvalid(t *testing.T) {
	noSleep(t)
	bus := newFakeBus()
	d, err := New(bus, Address)
	test.That(t, err, test.ShouldBeNil)
	regs := bus.regs
	bus.writes = nil

	for _, v := range []uint8{4, 5, 16, 255} {
		err := d.SetAccelRange(AccelRange(v))
		var argErr *InvalidArgumentError
		test.That(t, errors.As(err, &argErr), test.ShouldBeTrue)
		test.That(t, argErr.Value, test.ShouldEqual, int(v))
		test.That(t, err.Error(), test.ShouldContainSubstring, "accel range")

		err = d.SetGyroRange(GyroRange(v))
		test.That(t, errors.As(err, &argErr), test.ShouldBeTrue)
		test.That(t, argErr.Value, test.ShouldEqual, int(v))
	}
	test.That(t, bus.writes, test.ShouldBeEmpty)
	test.That(t, bus.regs, test.ShouldResemble, regs)
	test.That(t, d.AccelRange(), test.ShouldEqual, Accel16G)
	test.That(t, d.AccelScale(), test.ShouldEqual, 16.0/32768)
	test.That(t, d.GyroRange(), test.ShouldEqual, Gyro1000DPS)
	test.That(t, d.GyroScale(), test.ShouldEqual, 1000.0/32768)
}

func TestSetRangeWriteFailureKeepsScale(t *testing.T) {
	noSleep(t)
	bus := newFakeBus()
	d, err := New(bus, Address)
	test.That(t, err, test.ShouldBeNil)

	bus.WriteToRegFunc = func(addr, reg byte, value []byte) error { return errors.New("nack") }
	test.That(t, d.SetAccelRange(Accel2G), test.ShouldNotBeNil)
	test.That(t, d.AccelRange(), test.ShouldEqual, Accel16G)
	test.That(t, d.AccelScale(), test.ShouldEqual, 16.0/32768)
	test.That(t, d.SetGyroRange(Gyro250DPS), test.ShouldNotBeNil)
	test.That(t, d.GyroScale(), test.ShouldEqual, 1000.0/32768)
}

func TestReadings(t *testing.T) {
	noSleep(t)
	bus := newFakeBus()
	d, err := New(bus, Address)
	test.That(t, err, test.ShouldBeNil)

	// x = 1, y = -2, z = 16384
	copy(bus.regs[RegAccelOut:], []byte{0x00, 0x01, 0xff, 0xfe, 0x40, 0x00})
	// x = -32768, y = 32767, z = 0
	copy(bus.regs[RegGyroOut:], []byte{0x80, 0x00, 0x7f, 0xff, 0x00, 0x00})

	raw, err := d.AccelerationRaw()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, raw, test.ShouldResemble, [3]int16{1, -2, 16384})

	test.That(t, d.SetAccelRange(Accel2G), test.ShouldBeNil)
	a, err := d.Acceleration()
	test.That(t, err, test.ShouldBeNil)
	f := 2.0 / 32768
	test.That(t, a, test.ShouldResemble, [3]float64{1 * f, -2 * f, 16384 * f})
	test.That(t, a[2], test.ShouldEqual, 1.0)

	graw, err := d.AngularRateRaw()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, graw, test.ShouldResemble, [3]int16{-32768, 32767, 0})

	test.That(t, d.SetGyroRange(Gyro2000DPS), test.ShouldBeNil)
	g, err := d.AngularRate()
	test.That(t, err, test.ShouldBeNil)
	f = 2000.0 / 32768
	test.That(t, g, test.ShouldResemble, [3]float64{-32768 * f, 32767 * f, 0})
	test.That(t, g[0], test.ShouldEqual, -2000.0)
}

func TestReadingsBlockRead(t *testing.T) {
	noSleep(t)
	bus := newFakeBus()
	d, err := New(bus, Address)
	test.That(t, err, test.ShouldBeNil)

	var regs []byte
	var lens []int
	bus.ReadFromRegFunc = func(addr, reg byte, value []byte) error {
		regs = append(regs, reg)
		lens = append(lens, len(value))
		return nil
	}
	_, err = d.Acceleration()
	test.That(t, err, test.ShouldBeNil)
	_, err = d.AngularRate()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, regs, test.ShouldResemble, []byte{RegAccelOut, RegGyroOut})
	test.That(t, lens, test.ShouldResemble, []int{6, 6})

	readErr := errors.New("i/o timeout")
	bus.ReadFromRegFunc = func(addr, reg byte, value []byte) error { return readErr }
	_, err = d.Acceleration()
	test.That(t, err, test.ShouldEqual, readErr)
	_, err = d.AngularRate()
	test.That(t, err, test.ShouldEqual, readErr)
}

func TestClose(t *testing.T) {
	noSleep(t)
	bus := newFakeBus()
	d, err := New(bus, Address)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Close(), test.ShouldBeNil)
	test.That(t, bus.closed, test.ShouldEqual, 1)
	test.That(t, d.Close(), test.ShouldEqual, ErrClosed)
	test.That(t, bus.closed, test.ShouldEqual, 1)
}
