// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"time"

	"github.com/GermanBionicSystems/scd/sensirion"
)

const (
	opStartContinuous sensirion.Op = iota
	opSetAmbientPressure
	opStopContinuous
	opSetMeasurementInterval
	opGetMeasurementInterval
	opDataReady
	opReadMeasurement
	opSetASC
	opGetASC
	opSetFRC
	opGetFRC
	opSetTemperatureOffset
	opGetTemperatureOffset
	opSetAltitude
	opGetAltitude
	opFirmwareVersion
	opSoftReset
)

const (
	// The sensor needs a pause after every write.
	writeDelay = 5 * time.Millisecond
	// Time for the sensor to restart after a soft reset.
	bootDelay = 2 * time.Second
)

const (
	inIdle     = sensirion.InIdle
	inPeriodic = sensirion.InPeriodic
	inRunning  = sensirion.InIdle | sensirion.InPeriodic
)

var catalog = sensirion.NewCatalog("scd30",
	sensirion.Command{Op: opStartContinuous, Name: "start_continuous_measurement", Code: 0x0010, Args: 1, Delay: writeDelay, Allowed: inIdle, Next: sensirion.Enter(sensirion.PeriodicMeasurement)},
	// Same opcode as the start command, sent again while running to update
	// the compensation.
	sensirion.Command{Op: opSetAmbientPressure, Name: "set_ambient_pressure", Code: 0x0010, Args: 1, Delay: writeDelay, Allowed: inPeriodic},
	sensirion.Command{Op: opStopContinuous, Name: "stop_continuous_measurement", Code: 0x0104, Delay: writeDelay, Allowed: inRunning, Next: sensirion.Enter(sensirion.Idle)},
	sensirion.Command{Op: opSetMeasurementInterval, Name: "set_measurement_interval", Code: 0x4600, Args: 1, Delay: writeDelay, Allowed: inRunning},
	sensirion.Command{Op: opGetMeasurementInterval, Name: "get_measurement_interval", Code: 0x4600, Reply: 1, Delay: writeDelay, Allowed: inRunning},
	sensirion.Command{Op: opDataReady, Name: "get_data_ready_status", Code: 0x0202, Reply: 1, Delay: writeDelay, Allowed: sensirion.InAny},
	sensirion.Command{Op: opReadMeasurement, Name: "read_measurement", Code: 0x0300, Reply: 6, Delay: writeDelay, Allowed: sensirion.InAny},
	sensirion.Command{Op: opSetASC, Name: "set_automatic_self_calibration", Code: 0x5306, Args: 1, Delay: writeDelay, Allowed: inRunning},
	sensirion.Command{Op: opGetASC, Name: "get_automatic_self_calibration", Code: 0x5306, Reply: 1, Delay: writeDelay, Allowed: inRunning},
	sensirion.Command{Op: opSetFRC, Name: "set_forced_recalibration_value", Code: 0x5204, Args: 1, Delay: writeDelay, Allowed: inRunning},
	sensirion.Command{Op: opGetFRC, Name: "get_forced_recalibration_value", Code: 0x5204, Reply: 1, Delay: writeDelay, Allowed: inRunning},
	sensirion.Command{Op: opSetTemperatureOffset, Name: "set_temperature_offset", Code: 0x5403, Args: 1, Delay: writeDelay, Allowed: inRunning},
	sensirion.Command{Op: opGetTemperatureOffset, Name: "get_temperature_offset", Code: 0x5403, Reply: 1, Delay: writeDelay, Allowed: inRunning},
	sensirion.Command{Op: opSetAltitude, Name: "set_altitude_compensation", Code: 0x5102, Args: 1, Delay: writeDelay, Allowed: inRunning},
	sensirion.Command{Op: opGetAltitude, Name: "get_altitude_compensation", Code: 0x5102, Reply: 1, Delay: writeDelay, Allowed: inRunning},
	sensirion.Command{Op: opFirmwareVersion, Name: "read_firmware_version", Code: 0xd100, Reply: 1, Delay: writeDelay, Allowed: inRunning},
	sensirion.Command{Op: opSoftReset, Name: "soft_reset", Code: 0xd304, Delay: bootDelay, Allowed: inRunning},
)
