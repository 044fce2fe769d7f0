// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd4x

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
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

// Sensor Variant type
type Variant int

const (
	SCD40 Variant = iota
	SCD41
	SCD43
)

func (v Variant) String() string {
	switch v {
	case SCD40:
		return "SCD40"
	case SCD41:
		return "SCD41"
	case SCD43:
		return "SCD43"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Type of reset to perform.
type ResetMode int

const (
	ResetFactory ResetMode = iota
	// Reset to last values stored in EEPROM
	ResetEEPROM
)

const (
	// These devices only support this i2c address.
	SensorAddress uint16 = 0x62

	// Interval between two readings in periodic measurement mode.
	measurementPeriod = 5 * time.Second
	// Interval between two readings in low power periodic measurement mode.
	lowPowerMeasurementPeriod = 30 * time.Second
	// Number of data ready polls, one second apart, made by Sense.
	dataReadyPolls = 6

	minPressure = 700 * 100 * physic.Pascal
	maxPressure = 1200 * 100 * physic.Pascal
	maxAltitude = 3000 * physic.Metre
	ascPeriod   = 4 * time.Hour
)

// DevConfig is the current running configuration of the device. Values prefixed
// with ASC refer to Auto-Self-Calibration. Use Dev.GetConfiguration() to read
// the value, and Dev.SetConfiguration() to apply changes.
//
// Refer to the datasheet for more information on settings.
type DevConfig struct {
	// Ambient pressure value. Used to adjust operation of sensor.
	AmbientPressure physic.Pressure
	// Automatic-Self-Calibration enabled. True or false.
	ASCEnabled bool
	// Refer to datasheet for usage. SCD41 and SCD43 only.
	ASCInitialPeriod time.Duration
	// Refer to datasheet for usage. SCD41 and SCD43 only.
	ASCStandardPeriod time.Duration
	// Target CO2 concentration for automatic self calibration. To obtain the
	// current value, visit:
	//
	// https://www.co2.earth/daily-co2
	ASCTarget PPM
	// Sensor altitude in metres. Alternative method to adjust ambient pressure
	// for sensor correction.
	SensorAltitude physic.Distance
	// The 48 bit unique serial number of the device. Read-Only
	SerialNumber uint64
	// Offset temperature subtracted from the reading. Refer to the datasheet
	// for usage.
	TemperatureOffset physic.Temperature
	// The Type of sensor. Read-Only
	SensorType Variant
}

// Dev represents an SCD4x device.
type Dev struct {
	d          *sensirion.Device
	variant    Variant
	continuous sensirion.Continuous
	// Set while the last periodic measurement started is the low power one.
	lowPower atomic.Bool
}

// New returns a handle for an SCD4x sensor of variant v reached through t.
// No command is sent; the sensor is assumed to be idle.
func New(t sensirion.Transport, v Variant, opts ...sensirion.Option) *Dev {
	return &Dev{d: sensirion.NewDevice(t, SensorAddress, v.catalog(), opts...), variant: v}
}

// NewI2C creates a new SCD41 handle using the supplied bus and a blocking
// transport. The constant value SensorAddress should be supplied as the
// value for addr.
func NewI2C(b i2c.Bus, addr uint16, opts ...sensirion.Option) (*Dev, error) {
	if addr != SensorAddress {
		return nil, fmt.Errorf("%w: scd4x: address 0x%02x, the sensor only answers on 0x%02x", sensirion.ErrInvalidArgument, addr, SensorAddress)
	}
	return New(sensirion.NewBlocking(b), SCD41, opts...), nil
}

// NewTinyGo returns a handle for a sensor on a TinyGo I²C bus, as found on
// microcontroller firmware. Commands block for their full execution time.
func NewTinyGo(b drivers.I2C, v Variant, opts ...sensirion.Option) *Dev {
	return New(sensirion.NewBlocking(b), v, opts...)
}

// State returns the measurement state tracked by the driver.
func (d *Dev) State() sensirion.State {
	return d.d.State()
}

// Variant returns the variant the handle was created for.
func (d *Dev) Variant() Variant {
	return d.variant
}

// SerialNumber returns the 48 bit unique serial number of the sensor.
func (d *Dev) SerialNumber(ctx context.Context) (uint64, error) {
	words, err := d.d.Exec(ctx, opSerialNumber)
	if err != nil {
		return 0, err
	}
	return decodeSerialNumber(words), nil
}

// StartPeriodicMeasurement starts measuring every 5 seconds.
func (d *Dev) StartPeriodicMeasurement(ctx context.Context) error {
	if _, err := d.d.Exec(ctx, opStartPeriodic); err != nil {
		return err
	}
	d.lowPower.Store(false)
	return nil
}

// StartLowPowerPeriodicMeasurement starts measuring every 30 seconds.
func (d *Dev) StartLowPowerPeriodicMeasurement(ctx context.Context) error {
	if _, err := d.d.Exec(ctx, opStartLowPowerPeriodic); err != nil {
		return err
	}
	d.lowPower.Store(true)
	return nil
}

// StopPeriodicMeasurement returns the sensor to idle. It is accepted when the
// driver already considers the sensor idle.
func (d *Dev) StopPeriodicMeasurement(ctx context.Context) error {
	_, err := d.d.Exec(ctx, opStopPeriodic)
	return err
}

// DataReady reports whether a measurement can be read.
func (d *Dev) DataReady(ctx context.Context) (bool, error) {
	words, err := d.d.Exec(ctx, opDataReady)
	if err != nil {
		return false, err
	}
	return isDataReady(words[0]), nil
}

// ReadMeasurement reads the latest measurement into env. Reading the
// result of a single shot measurement returns the handle to idle.
func (d *Dev) ReadMeasurement(ctx context.Context, env *Env) error {
	words, err := d.d.Exec(ctx, opReadMeasurement)
	if err != nil {
		return err
	}
	env.CO2 = PPM(words[0])
	env.Temperature = countToTemp(words[1])
	env.Humidity = countToHumidity(words[2])
	env.Pressure = 0
	return nil
}

// SetAmbientPressure sets the pressure used for compensation. It may be
// called during periodic measurement. The accepted range is 700 to 1200 hPa.
func (d *Dev) SetAmbientPressure(ctx context.Context, p physic.Pressure) error {
	if p < minPressure || p > maxPressure {
		return fmt.Errorf("%w: scd4x: ambient pressure %s out of range", sensirion.ErrInvalidArgument, p)
	}
	_, err := d.d.Exec(ctx, opSetAmbientPressure, uint16(p/(100*physic.Pascal)))
	return err
}

// AmbientPressure returns the pressure used for compensation.
func (d *Dev) AmbientPressure(ctx context.Context) (physic.Pressure, error) {
	words, err := d.d.Exec(ctx, opGetAmbientPressure)
	if err != nil {
		return 0, err
	}
	return physic.Pascal * 100 * physic.Pressure(words[0]), nil
}

// SetSensorAltitude sets the altitude used for compensation, from 0 to 3000
// metres.
func (d *Dev) SetSensorAltitude(ctx context.Context, altitude physic.Distance) error {
	if altitude < 0 || altitude > maxAltitude {
		return fmt.Errorf("%w: scd4x: altitude %s out of range", sensirion.ErrInvalidArgument, altitude)
	}
	_, err := d.d.Exec(ctx, opSetSensorAltitude, uint16(altitude/physic.Metre))
	return err
}

// SensorAltitude returns the altitude used for compensation.
func (d *Dev) SensorAltitude(ctx context.Context) (physic.Distance, error) {
	words, err := d.d.Exec(ctx, opGetSensorAltitude)
	if err != nil {
		return 0, err
	}
	return physic.Distance(words[0]) * physic.Metre, nil
}

// SetTemperatureOffset sets the offset subtracted from the temperature
// reading. offset is a temperature difference and must not be negative.
func (d *Dev) SetTemperatureOffset(ctx context.Context, offset physic.Temperature) error {
	count, err := offsetToCount(offset)
	if err != nil {
		return err
	}
	_, err = d.d.Exec(ctx, opSetTemperatureOffset, count)
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

// PerformForcedRecalibration recalibrates the sensor to the reference
// concentration target and returns the correction applied. The sensor must
// have measured for at least 3 minutes before it was stopped, otherwise
// sensirion.ErrRecalibrationFailed is returned.
func (d *Dev) PerformForcedRecalibration(ctx context.Context, target PPM) (PPM, error) {
	if target < 0 || target > math.MaxUint16 {
		return 0, fmt.Errorf("%w: scd4x: recalibration target %s out of range", sensirion.ErrInvalidArgument, target)
	}
	words, err := d.d.Exec(ctx, opForcedRecalibration, uint16(target))
	if err != nil {
		return 0, err
	}
	return decodeFRC(words[0])
}

// SetAutomaticSelfCalibration enables or disables automatic
// self-calibration.
func (d *Dev) SetAutomaticSelfCalibration(ctx context.Context, enabled bool) error {
	var w uint16
	if enabled {
		w = 1
	}
	_, err := d.d.Exec(ctx, opSetASCEnabled, w)
	return err
}

// AutomaticSelfCalibration reports whether automatic self-calibration is
// enabled.
func (d *Dev) AutomaticSelfCalibration(ctx context.Context) (bool, error) {
	words, err := d.d.Exec(ctx, opGetASCEnabled)
	if err != nil {
		return false, err
	}
	return words[0] != 0, nil
}

// SetASCTarget sets the baseline concentration used by automatic
// self-calibration.
func (d *Dev) SetASCTarget(ctx context.Context, target PPM) error {
	if target < 0 || target > math.MaxUint16 {
		return fmt.Errorf("%w: scd4x: asc target %s out of range", sensirion.ErrInvalidArgument, target)
	}
	_, err := d.d.Exec(ctx, opSetASCTarget, uint16(target))
	return err
}

// ASCTarget returns the baseline concentration used by automatic
// self-calibration.
func (d *Dev) ASCTarget(ctx context.Context) (PPM, error) {
	words, err := d.d.Exec(ctx, opGetASCTarget)
	if err != nil {
		return 0, err
	}
	return PPM(words[0]), nil
}

// SetASCInitialPeriod sets the duration of the first automatic
// self-calibration. It must be a multiple of 4 hours.
func (d *Dev) SetASCInitialPeriod(ctx context.Context, period time.Duration) error {
	w, err := periodToHours(period)
	if err != nil {
		return err
	}
	_, err = d.d.Exec(ctx, opSetASCInitialPeriod, w)
	return err
}

// ASCInitialPeriod returns the duration of the first automatic
// self-calibration.
func (d *Dev) ASCInitialPeriod(ctx context.Context) (time.Duration, error) {
	words, err := d.d.Exec(ctx, opGetASCInitialPeriod)
	if err != nil {
		return 0, err
	}
	return time.Hour * time.Duration(words[0]), nil
}

// SetASCStandardPeriod sets the duration of the following automatic
// self-calibrations. It must be a multiple of 4 hours.
func (d *Dev) SetASCStandardPeriod(ctx context.Context, period time.Duration) error {
	w, err := periodToHours(period)
	if err != nil {
		return err
	}
	_, err = d.d.Exec(ctx, opSetASCStandardPeriod, w)
	return err
}

// ASCStandardPeriod returns the duration of the following automatic
// self-calibrations.
func (d *Dev) ASCStandardPeriod(ctx context.Context) (time.Duration, error) {
	words, err := d.d.Exec(ctx, opGetASCStandardPeriod)
	if err != nil {
		return 0, err
	}
	return time.Hour * time.Duration(words[0]), nil
}

func periodToHours(period time.Duration) (uint16, error) {
	if period < 0 || period%ascPeriod != 0 || period/time.Hour > math.MaxUint16 {
		return 0, fmt.Errorf("%w: scd4x: invalid period %s. must be a multiple of 4h", sensirion.ErrInvalidArgument, period)
	}
	return uint16(period / time.Hour), nil
}

// PersistSettings writes the current running configuration to the sensor
// EEPROM for use on the next power-up.
func (d *Dev) PersistSettings(ctx context.Context) error {
	_, err := d.d.Exec(ctx, opPersistSettings)
	return err
}

// SensorVariant reads the variant from the sensor.
func (d *Dev) SensorVariant(ctx context.Context) (Variant, error) {
	words, err := d.d.Exec(ctx, opSensorVariant)
	if err != nil {
		return 0, err
	}
	return decodeVariant(words[0])
}

// SelfTest runs the built-in self test, which takes 10 seconds. It returns
// true if no malfunction was detected.
func (d *Dev) SelfTest(ctx context.Context) (bool, error) {
	words, err := d.d.Exec(ctx, opSelfTest)
	if err != nil {
		return false, err
	}
	return words[0] == 0, nil
}

// FactoryReset resets the configuration stored in EEPROM and erases the
// calibration history.
func (d *Dev) FactoryReset(ctx context.Context) error {
	_, err := d.d.Exec(ctx, opFactoryReset)
	return err
}

// Reinit reloads the user settings from EEPROM.
func (d *Dev) Reinit(ctx context.Context) error {
	_, err := d.d.Exec(ctx, opReinit)
	return err
}

// Reset performs either a factory reset, or a re-load of settings from EEPROM
// depending on the value of mode. During development, it was noticed that
// ResetFactory DOES NOT reset AmbientPressure to 0.
func (d *Dev) Reset(ctx context.Context, mode ResetMode) error {
	switch mode {
	case ResetFactory:
		return d.FactoryReset(ctx)
	case ResetEEPROM:
		return d.Reinit(ctx)
	default:
		return fmt.Errorf("%w: scd4x: invalid reset mode 0x%x", sensirion.ErrInvalidArgument, int(mode))
	}
}

// MeasureSingleShot triggers one measurement, available after 5 seconds
// through ReadMeasurement. SCD41 and SCD43 only.
func (d *Dev) MeasureSingleShot(ctx context.Context) error {
	_, err := d.d.Exec(ctx, opMeasureSingleShot)
	return err
}

// MeasureSingleShotRHTOnly triggers one temperature and humidity
// measurement. The CO2 value read afterwards is 0. SCD41 and SCD43 only.
func (d *Dev) MeasureSingleShotRHTOnly(ctx context.Context) error {
	_, err := d.d.Exec(ctx, opMeasureSingleShotRHTOnly)
	return err
}

// PowerDown puts an idle sensor to sleep. SCD41 and SCD43 only.
func (d *Dev) PowerDown(ctx context.Context) error {
	_, err := d.d.Exec(ctx, opPowerDown)
	return err
}

// WakeUp wakes the sensor from sleep. The sensor does not acknowledge the
// command, so bus errors are ignored; read the serial number to verify the
// sensor is awake. SCD41 and SCD43 only.
func (d *Dev) WakeUp(ctx context.Context) error {
	_, err := d.d.Exec(ctx, opWakeUp)
	return err
}

// GetConfiguration returns a structure containing all of the scd4x configuration
// variables. You can then alter settings and call SetConfiguration with it.
// The sensor must be idle.
//
// To examine the device use:
//
//	cfg, _ := dev.GetConfiguration(ctx)
//	fmt.Printf("Configuration=%#v\n", cfg)
func (d *Dev) GetConfiguration(ctx context.Context) (*DevConfig, error) {
	if s := d.d.State(); s != sensirion.Idle {
		return nil, fmt.Errorf("scd4x: GetConfiguration in state %s: %w", s, sensirion.ErrInvalidState)
	}
	cfg := &DevConfig{}
	var err error

	if cfg.AmbientPressure, err = d.AmbientPressure(ctx); err != nil {
		return nil, err
	}
	if cfg.ASCEnabled, err = d.AutomaticSelfCalibration(ctx); err != nil {
		return nil, err
	}
	if d.variant != SCD40 {
		if cfg.ASCInitialPeriod, err = d.ASCInitialPeriod(ctx); err != nil {
			return nil, err
		}
		if cfg.ASCStandardPeriod, err = d.ASCStandardPeriod(ctx); err != nil {
			return nil, err
		}
	}
	if cfg.ASCTarget, err = d.ASCTarget(ctx); err != nil {
		return nil, err
	}
	if cfg.SerialNumber, err = d.SerialNumber(ctx); err != nil {
		return nil, err
	}
	if cfg.SensorType, err = d.SensorVariant(ctx); err != nil {
		return nil, err
	}
	if cfg.SensorAltitude, err = d.SensorAltitude(ctx); err != nil {
		return nil, err
	}
	if cfg.TemperatureOffset, err = d.TemperatureOffset(ctx); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetConfiguration alters the configuration of the sensor. Only the values
// that differ from the running configuration are written. Note that this call
// does not persist the settings to EEPROM. You need to call PersistSettings()
// to commit the writes to EEPROM. If you do not persist changes, then those
// settings will be lost when the unit is power-cycled.
func (d *Dev) SetConfiguration(ctx context.Context, newCfg *DevConfig) error {
	currentConfig, err := d.GetConfiguration(ctx)
	if err != nil {
		return fmt.Errorf("scd4x GetConfiguration(): %w", err)
	}

	if currentConfig.AmbientPressure != newCfg.AmbientPressure {
		if err := d.SetAmbientPressure(ctx, newCfg.AmbientPressure); err != nil {
			return err
		}
	}
	if currentConfig.ASCEnabled != newCfg.ASCEnabled {
		if err := d.SetAutomaticSelfCalibration(ctx, newCfg.ASCEnabled); err != nil {
			return err
		}
	}
	if d.variant != SCD40 {
		if currentConfig.ASCInitialPeriod != newCfg.ASCInitialPeriod {
			if err := d.SetASCInitialPeriod(ctx, newCfg.ASCInitialPeriod); err != nil {
				return err
			}
		}
		if currentConfig.ASCStandardPeriod != newCfg.ASCStandardPeriod {
			if err := d.SetASCStandardPeriod(ctx, newCfg.ASCStandardPeriod); err != nil {
				return err
			}
		}
	}
	if currentConfig.ASCTarget != newCfg.ASCTarget {
		if err := d.SetASCTarget(ctx, newCfg.ASCTarget); err != nil {
			return err
		}
	}
	if currentConfig.SensorAltitude != newCfg.SensorAltitude {
		if err := d.SetSensorAltitude(ctx, newCfg.SensorAltitude); err != nil {
			return err
		}
	}
	if currentConfig.TemperatureOffset != newCfg.TemperatureOffset {
		if err := d.SetTemperatureOffset(ctx, newCfg.TemperatureOffset); err != nil {
			return err
		}
	}
	return nil
}

// Sense returns readings (Temperature, Humidity, and CO2 concentration in PPM)
// from the device. If the sensor is idle, periodic measurement is started
// and left running. Note that in normal acquisition mode, the minimum reading
// period is 5 seconds, 30 seconds after StartLowPowerPeriodicMeasurement. If
// you call this function more frequently than this, it will block until data
// is ready.
func (d *Dev) Sense(env *Env) error {
	return d.sense(context.Background(), env)
}

func (d *Dev) sense(ctx context.Context, env *Env) error {
	*env = Env{}
	if d.d.State() == sensirion.Idle {
		if err := d.StartPeriodicMeasurement(ctx); err != nil {
			return err
		}
		if err := d.d.Wait(ctx, measurementPeriod); err != nil {
			return err
		}
	}
	polls := dataReadyPolls
	if d.lowPower.Load() {
		polls += int(lowPowerMeasurementPeriod / time.Second)
	}
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
	return errors.New("scd4x: timeout waiting for data ready status")
}

// SenseContinuous continuously reads the sensor on the specified duration, and
// writes readings to the returned channel. The sense time for the scd4x device
// is 5 seconds in normal acquisition mode. If you specify a shorter period than
// that, the routine will spin until the device indicates a reading is ready.
// Readings are dropped when the channel is full. To terminate a continuous
// sense, call Halt().
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan Env, error) {
	ch, err := d.continuous.Start(interval, d.ensureMeasuring, d.sense)
	if errors.Is(err, sensirion.ErrContinuousRunning) {
		return nil, errors.New("scd4x: SenseContinuous() running already")
	}
	return ch, err
}

func (d *Dev) ensureMeasuring(ctx context.Context) error {
	if d.d.State() == sensirion.Idle {
		return d.StartPeriodicMeasurement(ctx)
	}
	return nil
}

// Halt stops a SenseContinuous operation in progress and waits for it to
// exit, then stops periodic measurement if it is running.
func (d *Dev) Halt() error {
	d.continuous.Stop()
	if d.d.State() == sensirion.PeriodicMeasurement {
		return d.StopPeriodicMeasurement(context.Background())
	}
	return nil
}

// Precision returns the sensor's resolution, or minimum value between steps the
// device can make. The specified precision is 1 PPM for CO2, 175/65535 K for
// temperature and 100/65535 %rH for humidity.
func (d *Dev) Precision(env *Env) {
	kelvin, percentRH := float64(physic.Kelvin), float64(physic.PercentRH)
	env.Temperature = physic.Temperature(temperatureSpan * kelvin / fullScale)
	env.Pressure = 0
	env.Humidity = physic.RelativeHumidity(100 * percentRH / fullScale)
	env.CO2 = 1
}

func (d *Dev) String() string {
	return fmt.Sprintf("scd4x: %s", d.d)
}

var _ conn.Resource = &Dev{}
