// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/GermanBionicSystems/scd/sensirion"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

// PPM=Parts Per Million. Units of measure for CO2 concentration.
type PPM = sensirion.PPM

// Env is the sensor reading. CO2 PPM, Temperature, and Humidity.
type Env = sensirion.Env

const (
	// The device only supports this i2c address.
	SensorAddress uint16 = 0x61

	// NoPressureCompensation disables the ambient pressure compensation
	// when passed to StartContinuousMeasurement or SetAmbientPressure.
	NoPressureCompensation physic.Pressure = 0

	minPressure = 700 * 100 * physic.Pascal
	maxPressure = 1400 * 100 * physic.Pascal
	minInterval = 2 * time.Second
	maxInterval = 1800 * time.Second
	minFRC      = 400
	maxFRC      = 2000
	// Extra data ready polls made by Sense beyond the measurement interval.
	dataReadyPolls = 2
)

// Dev represents an SCD30 device.
type Dev struct {
	d          *sensirion.Device
	continuous sensirion.Continuous
}

// New returns a handle for an SCD30 reached through t. No command is sent;
// the sensor is assumed to be idle.
func New(t sensirion.Transport, opts ...sensirion.Option) *Dev {
	return &Dev{d: sensirion.NewDevice(t, SensorAddress, catalog, opts...)}
}

// NewI2C creates a new SCD30 handle using the supplied bus and a blocking
// transport. The constant value SensorAddress should be supplied as the
// value for addr.
func NewI2C(b i2c.Bus, addr uint16, opts ...sensirion.Option) (*Dev, error) {
	if addr != SensorAddress {
		return nil, fmt.Errorf("%w: scd30: address 0x%02x, the sensor only answers on 0x%02x", sensirion.ErrInvalidArgument, addr, SensorAddress)
	}
	return New(sensirion.NewBlocking(b), opts...), nil
}

// NewTinyGo returns a handle for a sensor on a TinyGo I²C bus, as found on
// microcontroller firmware. Commands block for their full execution time.
func NewTinyGo(b drivers.I2C, opts ...sensirion.Option) *Dev {
	return New(sensirion.NewBlocking(b), opts...)
}

// State returns the measurement state tracked by the driver.
func (d *Dev) State() sensirion.State {
	return d.d.State()
}

func pressureToHPa(p physic.Pressure) (uint16, error) {
	if p != NoPressureCompensation && (p < minPressure || p > maxPressure) {
		return 0, fmt.Errorf("%w: scd30: ambient pressure %s out of range", sensirion.ErrInvalidArgument, p)
	}
	return uint16(p / (100 * physic.Pascal)), nil
}

// StartContinuousMeasurement starts measuring at the configured interval,
// compensating for the ambient pressure p. Pass NoPressureCompensation or a
// value from 700 to 1400 hPa.
func (d *Dev) StartContinuousMeasurement(ctx context.Context, p physic.Pressure) error {
	hPa, err := pressureToHPa(p)
	if err != nil {
		return err
	}
	_, err = d.d.Exec(ctx, opStartContinuous, hPa)
	return err
}

// SetAmbientPressure updates the pressure compensation while measuring.
func (d *Dev) SetAmbientPressure(ctx context.Context, p physic.Pressure) error {
	hPa, err := pressureToHPa(p)
	if err != nil {
		return err
	}
	_, err = d.d.Exec(ctx, opSetAmbientPressure, hPa)
	return err
}

// StopContinuousMeasurement returns the sensor to idle. It is accepted when
// the driver already considers the sensor idle.
func (d *Dev) StopContinuousMeasurement(ctx context.Context) error {
	_, err := d.d.Exec(ctx, opStopContinuous)
	return err
}

// SetMeasurementInterval sets the interval of continuous measurement, a
// whole number of seconds from 2 to 1800.
func (d *Dev) SetMeasurementInterval(ctx context.Context, interval time.Duration) error {
	if interval < minInterval || interval > maxInterval || interval%time.Second != 0 {
		return fmt.Errorf("%w: scd30: measurement interval %s out of range", sensirion.ErrInvalidArgument, interval)
	}
	_, err := d.d.Exec(ctx, opSetMeasurementInterval, uint16(interval/time.Second))
	return err
}

// MeasurementInterval returns the interval of continuous measurement.
func (d *Dev) MeasurementInterval(ctx context.Context) (time.Duration, error) {
	words, err := d.d.Exec(ctx, opGetMeasurementInterval)
	if err != nil {
		return 0, err
	}
	return time.Duration(words[0]) * time.Second, nil
}

// DataReady reports whether a measurement can be read.
func (d *Dev) DataReady(ctx context.Context) (bool, error) {
	words, err := d.d.Exec(ctx, opDataReady)
	if err != nil {
		return false, err
	}
	return isDataReady(words[0]), nil
}

// ReadMeasurement reads the latest measurement into env.
func (d *Dev) ReadMeasurement(ctx context.Context, env *Env) error {
	words, err := d.d.Exec(ctx, opReadMeasurement)
	if err != nil {
		return err
	}
	return decodeMeasurement(words, env)
}

// SetAutomaticSelfCalibration enables or disables automatic
// self-calibration.
func (d *Dev) SetAutomaticSelfCalibration(ctx context.Context, enabled bool) error {
	var w uint16
	if enabled {
		w = 1
	}
	_, err := d.d.Exec(ctx, opSetASC, w)
	return err
}

// AutomaticSelfCalibration reports whether automatic self-calibration is
// enabled.
func (d *Dev) AutomaticSelfCalibration(ctx context.Context) (bool, error) {
	words, err := d.d.Exec(ctx, opGetASC)
	if err != nil {
		return false, err
	}
	return words[0] == 1, nil
}

// SetForcedRecalibrationValue recalibrates the sensor to the reference
// concentration, from 400 to 2000 PPM.
func (d *Dev) SetForcedRecalibrationValue(ctx context.Context, ref PPM) error {
	if ref < minFRC || ref > maxFRC {
		return fmt.Errorf("%w: scd30: recalibration reference %s out of range", sensirion.ErrInvalidArgument, ref)
	}
	_, err := d.d.Exec(ctx, opSetFRC, uint16(ref))
	return err
}

// ForcedRecalibrationValue returns the last reference used for forced
// recalibration, 400 PPM after power up.
func (d *Dev) ForcedRecalibrationValue(ctx context.Context) (PPM, error) {
	words, err := d.d.Exec(ctx, opGetFRC)
	if err != nil {
		return 0, err
	}
	return PPM(words[0]), nil
}

// SetTemperatureOffset sets the offset subtracted from the temperature
// reading, in steps of 0.01 K.
func (d *Dev) SetTemperatureOffset(ctx context.Context, offset physic.Temperature) error {
	count := offset / offsetStep
	if offset < 0 || count > math.MaxUint16 {
		return fmt.Errorf("%w: scd30: temperature offset %dmK out of range", sensirion.ErrInvalidArgument, int64(offset/physic.MilliKelvin))
	}
	_, err := d.d.Exec(ctx, opSetTemperatureOffset, uint16(count))
	return err
}

// TemperatureOffset returns the offset subtracted from the temperature
// reading.
func (d *Dev) TemperatureOffset(ctx context.Context) (physic.Temperature, error) {
	words, err := d.d.Exec(ctx, opGetTemperatureOffset)
	if err != nil {
		return 0, err
	}
	return countToOffset(words[0]), nil
}

// SetAltitude sets the altitude used for compensation. It is ignored by
// the sensor while an ambient pressure is set.
func (d *Dev) SetAltitude(ctx context.Context, altitude physic.Distance) error {
	if altitude < 0 || altitude/physic.Metre > math.MaxUint16 {
		return fmt.Errorf("%w: scd30: altitude %s out of range", sensirion.ErrInvalidArgument, altitude)
	}
	_, err := d.d.Exec(ctx, opSetAltitude, uint16(altitude/physic.Metre))
	return err
}

// Altitude returns the altitude used for compensation.
func (d *Dev) Altitude(ctx context.Context) (physic.Distance, error) {
	words, err := d.d.Exec(ctx, opGetAltitude)
	if err != nil {
		return 0, err
	}
	return physic.Distance(words[0]) * physic.Metre, nil
}

// FirmwareVersion returns the major and minor firmware version.
func (d *Dev) FirmwareVersion(ctx context.Context) (major, minor uint8, err error) {
	words, err := d.d.Exec(ctx, opFirmwareVersion)
	if err != nil {
		return 0, 0, err
	}
	return uint8(words[0] >> 8), uint8(words[0]), nil
}

// SoftReset restarts the sensor controller, which reloads the calibration.
// Continuous measurement resumes if it was running.
func (d *Dev) SoftReset(ctx context.Context) error {
	_, err := d.d.Exec(ctx, opSoftReset)
	return err
}

// Sense returns readings (Temperature, Humidity, and CO2 concentration in PPM)
// from the device. If the sensor is idle, continuous measurement is started
// without pressure compensation and left running. The call blocks until the
// next measurement is available.
func (d *Dev) Sense(env *Env) error {
	return d.sense(context.Background(), env)
}

func (d *Dev) sense(ctx context.Context, env *Env) error {
	*env = Env{}
	if err := d.ensureMeasuring(ctx); err != nil {
		return err
	}
	interval, err := d.MeasurementInterval(ctx)
	if err != nil {
		return err
	}
	polls := int(interval/time.Second) + dataReadyPolls
	for i := 0; i < polls; i++ {
		ready, err := d.DataReady(ctx)
		if err != nil {
			return err
		}
		if ready {
			return d.ReadMeasurement(ctx, env)
		}
		if err := d.d.Wait(ctx, time.Second); err != nil {
			return err
		}
	}
	return errors.New("scd30: timeout waiting for data ready status")
}

func (d *Dev) ensureMeasuring(ctx context.Context) error {
	if d.d.State() == sensirion.Idle {
		return d.StartContinuousMeasurement(ctx, NoPressureCompensation)
	}
	return nil
}

// SenseContinuous continuously reads the sensor on the specified duration, and
// writes readings to the returned channel. Readings are dropped when the
// channel is full. To terminate a continuous sense, call Halt().
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan Env, error) {
	ch, err := d.continuous.Start(interval, d.ensureMeasuring, d.sense)
	if errors.Is(err, sensirion.ErrContinuousRunning) {
		return nil, errors.New("scd30: SenseContinuous() running already")
	}
	return ch, err
}

// Halt stops a SenseContinuous operation in progress and waits for it to
// exit, then stops continuous measurement if it is running.
func (d *Dev) Halt() error {
	d.continuous.Stop()
	if d.d.State() == sensirion.PeriodicMeasurement {
		return d.StopContinuousMeasurement(context.Background())
	}
	return nil
}

// Precision returns the sensor's resolution. Readings are transmitted as
// floats; CO2 is truncated to 1 PPM and temperature and humidity are only
// limited by the fixed point types.
func (d *Dev) Precision(env *Env) {
	env.Temperature = physic.NanoKelvin
	env.Pressure = 0
	env.Humidity = physic.TenthMicroRH
	env.CO2 = 1
}

func (d *Dev) String() string {
	return fmt.Sprintf("scd30: %s", d.d)
}

var _ conn.Resource = &Dev{}
