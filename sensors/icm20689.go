package sensors

import (
	"fmt"
	"log"

	"github.com/b3nn0/imulog/sensors/icm20689"
	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"
)

// i2cBus closes the whole embd I2C driver with the bus, since nothing else in the
// process shares it.
type i2cBus struct {
	embd.I2CBus
}

func (b i2cBus) Close() error {
	return embd.CloseI2C()
}

// OpenI2C opens I2C bus number busID of the host.
func OpenI2C(busID byte) (icm20689.Bus, error) {
	if err := embd.InitI2C(); err != nil {
		return nil, fmt.Errorf("sensors: opening I2C bus %d: %w", busID, err)
	}
	return i2cBus{embd.NewI2CBus(busID)}, nil
}

// NewICM20689 returns an ICM-20689 on the given I2C bus and address, set to the requested
// ranges. The bus is released if the device can't be set up.
func NewICM20689(busID, address byte, accel icm20689.AccelRange, gyro icm20689.GyroRange) (IMUReader, error) {
	bus, err := OpenI2C(busID)
	if err != nil {
		return nil, err
	}
	imu, err := setupICM20689(bus, address, accel, gyro)
	if err != nil {
		return nil, err
	}
	return imu, nil
}

func setupICM20689(bus icm20689.Bus, address byte, accel icm20689.AccelRange, gyro icm20689.GyroRange) (imu *icm20689.ICM20689, err error) {
	defer func() {
		if err != nil {
			bus.Close()
		}
	}()

	log.Printf("IMU Info: attempting to connect to ICM20689 at 0x%02x\n", address)
	imu, err = icm20689.New(bus, address)
	if err != nil {
		return nil, err
	}
	if err = imu.SetAccelRange(accel); err != nil {
		return nil, err
	}
	if err = imu.SetGyroRange(gyro); err != nil {
		return nil, err
	}
	log.Printf("IMU Info: ICM20689 ready, accel %s, gyro %s\n", accel, gyro)
	return imu, nil
}
