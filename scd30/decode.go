// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"errors"
	"fmt"
	"math"

	"periph.io/x/conn/v3/physic"
)

// offsetStep is the unit of the temperature offset word.
const offsetStep = 10 * physic.MilliKelvin

// maxCO2 is the upper end of the sensor's output range.
const maxCO2 = 40000

// ErrInvalidMeasurement is returned when a measurement passes the CRC check
// but holds a value the sensor cannot produce.
var ErrInvalidMeasurement = errors.New("scd30: invalid measurement")

// wordsToFloat joins two words, high word first, into an IEEE-754 float.
func wordsToFloat(hi, lo uint16) float32 {
	return math.Float32frombits(uint32(hi)<<16 | uint32(lo))
}

// decodeMeasurement converts the six words of a measurement. CO2 is
// truncated to whole PPM. env is left untouched on error.
func decodeMeasurement(words []uint16, env *Env) error {
	co2 := wordsToFloat(words[0], words[1])
	t := wordsToFloat(words[2], words[3])
	h := wordsToFloat(words[4], words[5])
	if !(co2 >= 0 && co2 <= maxCO2) {
		return fmt.Errorf("%w: co2 %g", ErrInvalidMeasurement, co2)
	}
	if !(t >= -273.15 && t <= 200) {
		return fmt.Errorf("%w: temperature %g", ErrInvalidMeasurement, t)
	}
	if !(h >= 0 && h <= 100) {
		return fmt.Errorf("%w: humidity %g", ErrInvalidMeasurement, h)
	}
	env.CO2 = PPM(co2)
	env.Temperature = physic.ZeroCelsius + physic.Temperature(float64(t)*float64(physic.Celsius))
	env.Humidity = physic.RelativeHumidity(float64(h) * float64(physic.PercentRH))
	env.Pressure = 0
	return nil
}

func countToOffset(count uint16) physic.Temperature {
	return physic.Temperature(count) * offsetStep
}

func isDataReady(word uint16) bool {
	return word == 1
}
