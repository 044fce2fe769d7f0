// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scd4x provides a driver for the Sensirion SCD4x CO2 sensors.
// The scd4x family provide a compact sensor that can be used to measure
// Temperature, Humidity, and CO2 concentration.
//
// The SCD40 implements the basic command set. The SCD41 and SCD43 add
// single shot measurements, power down and wake up, and the automatic
// self-calibration periods. Calling one of those on an SCD40 handle returns
// an error wrapping sensirion.ErrUnsupported without accessing the bus.
//
// A new handle assumes the sensor is idle. If the program may have been
// restarted while the sensor was measuring, call StopPeriodicMeasurement
// first.
//
// Refer to the datasheet for more information.
//
// https://sensirion.com/media/documents/48C4B7FB/66E05452/CD_DS_SCD4x_Datasheet_D1.pdf
package scd4x
