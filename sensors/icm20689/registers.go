// Package icm20689 provides a driver for the InvenSense ICM-20689 6-axis accelerometer and gyroscope.
// The register map can be found here: https://invensense.tdk.com/wp-content/uploads/2021/03/DS-000143-ICM-20689-TYP-v1.1.pdf
package icm20689

const Address byte = 0x68 // default I2C address, AD0 tied low

const (
	RegSmplrtDiv   byte = 25  // sample rate divider
	RegConfig      byte = 26  // external sync and digital low pass filter
	RegGyroConfig  byte = 27  // gyro self-test and full scale select
	RegAccelConfig byte = 28  // accel self-test and full scale select
	RegFifoEn      byte = 35  // which sensor outputs are written to the FIFO
	RegIntPinCfg   byte = 55  // INT pin behaviour
	RegIntEnable   byte = 56  // interrupt sources
	RegIntStatus   byte = 58  // interrupt status, cleared on read
	RegAccelOut    byte = 59  // ACCEL_XOUT_H: 3x 16 bits, x,y,z big endian
	RegTempOut     byte = 65  // TEMP_OUT_H: 16 bits
	RegGyroOut     byte = 67  // GYRO_XOUT_H: 3x 16 bits, x,y,z big endian
	RegUserCtrl    byte = 106 // FIFO and I2C master control
	RegPwrMgmt1    byte = 107 // power mode and clock source
	RegFifoCount   byte = 114 // FIFO_COUNTH
	RegFifoRW      byte = 116 // FIFO read/write
	RegWhoAmI      byte = 117 // useful for checking the connection
)

const WhoAmI byte = 0x98 // correct response if reading from the WHO_AM_I register

// CONFIG
const (
	bitExtSyncSet = 3
	bitDLPFCfg    = 0
)

// GYRO_CONFIG and ACCEL_CONFIG share their layout.
const (
	bitSelfTestX = 7
	bitSelfTestY = 6
	bitSelfTestZ = 5
	bitFullScale = 3
)

// FIFO_EN
const (
	FifoTemp  byte = 1 << 7
	FifoXG    byte = 1 << 6
	FifoYG    byte = 1 << 5
	FifoZG    byte = 1 << 4
	FifoAccel byte = 1 << 3
	FifoSlv2  byte = 1 << 2
	FifoSlv1  byte = 1 << 1
	FifoSlv0  byte = 1 << 0
)

// INT_PIN_CFG
const (
	IntLevel    byte = 1 << 7
	IntOpen     byte = 1 << 6
	LatchIntEn  byte = 1 << 5
	IntRdClear  byte = 1 << 4
	I2CBypassEn byte = 1 << 1
)

// INT_ENABLE and INT_STATUS
const (
	IntFifoOverflow byte = 1 << 4
	IntI2CMaster    byte = 1 << 3
	IntDataReady    byte = 1 << 0
)

// USER_CTRL
const (
	UserFifoEn      byte = 1 << 6
	UserI2CMstEn    byte = 1 << 5
	UserI2CIfDis    byte = 1 << 4
	UserFifoReset   byte = 1 << 2
	UserI2CMstReset byte = 1 << 1
	UserSigCondRst  byte = 1 << 0
)

// PWR_MGMT_1
const (
	bitDeviceReset = 7
	bitSleep       = 6
	bitCycle       = 5
	bitTempDisable = 3
	bitClockSelect = 0
)

const (
	clockSelectMask = 0x07
	dlpfMask        = 0x07
	extSyncMask     = 0x07
	fullScaleMask   = 0x03
)

// PowerManagement is the PWR_MGMT_1 register.
type PowerManagement struct {
	DeviceReset bool
	Sleep       bool
	Cycle       bool
	TempDisable bool
	ClockSelect uint8 // 0 internal oscillator, 1-5 auto select PLL, 7 stop
}

// Byte packs the fields into the register value.
func (p PowerManagement) Byte() byte {
	return flag(p.DeviceReset, bitDeviceReset) |
		flag(p.Sleep, bitSleep) |
		flag(p.Cycle, bitCycle) |
		flag(p.TempDisable, bitTempDisable) |
		field(p.ClockSelect, clockSelectMask, bitClockSelect)
}

// FilterConfig is the CONFIG register.
type FilterConfig struct {
	ExtSync uint8 // FSYNC pin sampling, 0 disabled
	DLPF    uint8 // DLPF_CFG, 0 is the widest gyro bandwidth
}

// Byte packs the fields into the register value.
func (f FilterConfig) Byte() byte {
	return field(f.ExtSync, extSyncMask, bitExtSyncSet) | field(f.DLPF, dlpfMask, bitDLPFCfg)
}

// RangeConfig is the GYRO_CONFIG or ACCEL_CONFIG register.
type RangeConfig struct {
	SelfTestX bool
	SelfTestY bool
	SelfTestZ bool
	FullScale uint8
}

// Byte packs the fields into the register value.
func (r RangeConfig) Byte() byte {
	return flag(r.SelfTestX, bitSelfTestX) |
		flag(r.SelfTestY, bitSelfTestY) |
		flag(r.SelfTestZ, bitSelfTestZ) |
		field(r.FullScale, fullScaleMask, bitFullScale)
}

func flag(set bool, bit uint) byte {
	if set {
		return 1 << bit
	}
	return 0
}

func field(v uint8, mask byte, offset uint) byte {
	return (v & mask) << offset
}
