// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd4x

import (
	"time"

	"github.com/GermanBionicSystems/scd/sensirion"
)

const (
	opStartPeriodic sensirion.Op = iota
	opStartLowPowerPeriodic
	opStopPeriodic
	opDataReady
	opReadMeasurement
	opSetTemperatureOffset
	opGetTemperatureOffset
	opSetSensorAltitude
	opGetSensorAltitude
	opSetAmbientPressure
	opGetAmbientPressure
	opSetASCEnabled
	opGetASCEnabled
	opSetASCTarget
	opGetASCTarget
	opForcedRecalibration
	opPersistSettings
	opSerialNumber
	opSensorVariant
	opSelfTest
	opFactoryReset
	opReinit
	opMeasureSingleShot
	opMeasureSingleShotRHTOnly
	opPowerDown
	opWakeUp
	opSetASCInitialPeriod
	opGetASCInitialPeriod
	opSetASCStandardPeriod
	opGetASCStandardPeriod
)

const (
	inIdle    = sensirion.InIdle
	inRunning = sensirion.InIdle | sensirion.InPeriodic
	inAny     = sensirion.InAny
)

var commands = []sensirion.Command{
	{Op: opStartPeriodic, Name: "start_periodic_measurement", Code: 0x21b1, Allowed: inIdle, Next: sensirion.Enter(sensirion.PeriodicMeasurement)},
	{Op: opStartLowPowerPeriodic, Name: "start_low_power_periodic_measurement", Code: 0x21ac, Allowed: inIdle, Next: sensirion.Enter(sensirion.PeriodicMeasurement)},
	{Op: opStopPeriodic, Name: "stop_periodic_measurement", Code: 0x3f86, Delay: 500 * time.Millisecond, Allowed: inRunning, Next: sensirion.Enter(sensirion.Idle)},
	{Op: opDataReady, Name: "get_data_ready_status", Code: 0xe4b8, Reply: 1, Delay: time.Millisecond, Allowed: inAny},
	{Op: opReadMeasurement, Name: "read_measurement", Code: 0xec05, Reply: 3, Delay: time.Millisecond, Allowed: inAny, Next: sensirion.ConsumeOneShot},
	{Op: opSetTemperatureOffset, Name: "set_temperature_offset", Code: 0x241d, Args: 1, Delay: time.Millisecond, Allowed: inIdle},
	{Op: opGetTemperatureOffset, Name: "get_temperature_offset", Code: 0x2318, Reply: 1, Delay: time.Millisecond, Allowed: inIdle},
	{Op: opSetSensorAltitude, Name: "set_sensor_altitude", Code: 0x2427, Args: 1, Delay: time.Millisecond, Allowed: inIdle},
	{Op: opGetSensorAltitude, Name: "get_sensor_altitude", Code: 0x2322, Reply: 1, Delay: time.Millisecond, Allowed: inIdle},
	{Op: opSetAmbientPressure, Name: "set_ambient_pressure", Code: 0xe000, Args: 1, Delay: time.Millisecond, Allowed: inRunning},
	{Op: opGetAmbientPressure, Name: "get_ambient_pressure", Code: 0xe000, Reply: 1, Delay: time.Millisecond, Allowed: inRunning},
	{Op: opSetASCEnabled, Name: "set_automatic_self_calibration_enabled", Code: 0x2416, Args: 1, Delay: time.Millisecond, Allowed: inIdle},
	{Op: opGetASCEnabled, Name: "get_automatic_self_calibration_enabled", Code: 0x2313, Reply: 1, Delay: time.Millisecond, Allowed: inIdle},
	{Op: opSetASCTarget, Name: "set_automatic_self_calibration_target", Code: 0x243a, Args: 1, Delay: time.Millisecond, Allowed: inIdle},
	{Op: opGetASCTarget, Name: "get_automatic_self_calibration_target", Code: 0x233f, Reply: 1, Delay: time.Millisecond, Allowed: inIdle},
	{Op: opForcedRecalibration, Name: "perform_forced_recalibration", Code: 0x362f, Args: 1, Reply: 1, Delay: 400 * time.Millisecond, Allowed: inIdle},
	{Op: opPersistSettings, Name: "persist_settings", Code: 0x3615, Delay: 800 * time.Millisecond, Allowed: inIdle},
	{Op: opSerialNumber, Name: "get_serial_number", Code: 0x3682, Reply: 3, Delay: time.Millisecond, Allowed: inIdle},
	{Op: opSensorVariant, Name: "get_sensor_variant", Code: 0x202f, Reply: 1, Delay: time.Millisecond, Allowed: inIdle},
	{Op: opSelfTest, Name: "perform_self_test", Code: 0x3639, Reply: 1, Delay: 10 * time.Second, Allowed: inIdle},
	{Op: opFactoryReset, Name: "perform_factory_reset", Code: 0x3632, Delay: 1200 * time.Millisecond, Allowed: inIdle},
	{Op: opReinit, Name: "reinit", Code: 0x3646, Delay: 30 * time.Millisecond, Allowed: inIdle},

	{Op: opMeasureSingleShot, Name: "measure_single_shot", Code: 0x219d, Delay: 5 * time.Second, Allowed: inIdle, Next: sensirion.Enter(sensirion.AwaitingOneShot), Extended: true},
	{Op: opMeasureSingleShotRHTOnly, Name: "measure_single_shot_rht_only", Code: 0x2196, Delay: 50 * time.Millisecond, Allowed: inIdle, Next: sensirion.Enter(sensirion.AwaitingOneShot), Extended: true},
	{Op: opPowerDown, Name: "power_down", Code: 0x36e0, Delay: time.Millisecond, Allowed: inIdle, Extended: true},
	{Op: opWakeUp, Name: "wake_up", Code: 0x36f6, Delay: 30 * time.Millisecond, Allowed: inIdle, NoAck: true, Extended: true},
	{Op: opSetASCInitialPeriod, Name: "set_automatic_self_calibration_initial_period", Code: 0x2445, Args: 1, Delay: time.Millisecond, Allowed: inIdle, Extended: true},
	{Op: opGetASCInitialPeriod, Name: "get_automatic_self_calibration_initial_period", Code: 0x2340, Reply: 1, Delay: time.Millisecond, Allowed: inIdle, Extended: true},
	{Op: opSetASCStandardPeriod, Name: "set_automatic_self_calibration_standard_period", Code: 0x244e, Args: 1, Delay: time.Millisecond, Allowed: inIdle, Extended: true},
	{Op: opGetASCStandardPeriod, Name: "get_automatic_self_calibration_standard_period", Code: 0x234b, Reply: 1, Delay: time.Millisecond, Allowed: inIdle, Extended: true},
}

var (
	scd41Catalog = sensirion.NewCatalog("scd41", commands...)
	scd43Catalog = sensirion.NewCatalog("scd43", commands...)
	scd40Catalog = scd41Catalog.Base("scd40")
)

// catalog returns the command set implemented by the variant.
func (v Variant) catalog() *sensirion.Catalog {
	switch v {
	case SCD40:
		return scd40Catalog
	case SCD43:
		return scd43Catalog
	default:
		return scd41Catalog
	}
}
