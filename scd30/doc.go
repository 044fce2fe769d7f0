// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scd30 provides a driver for the Sensirion SCD30 CO2, humidity and
// temperature sensor module.
//
// The SCD30 transmits its measurements as IEEE-754 floats and needs a short
// pause after every write, which the driver inserts. The sensor keeps
// measuring across power cycles when continuous measurement was running; a
// new handle assumes the sensor is idle, so call StopContinuousMeasurement
// first when the previous state is unknown.
//
// Refer to the datasheet for more information.
//
// https://sensirion.com/media/documents/4EAF6AF8/61652C3C/Sensirion_CO2_Sensors_SCD30_Datasheet.pdf
package scd30
