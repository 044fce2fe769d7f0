// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd4x

import (
	"fmt"
	"math"

	"github.com/GermanBionicSystems/scd/sensirion"
	"periph.io/x/conn/v3/physic"
)

const (
	// Full scale of a measurement word.
	fullScale = 65535.0
	// Span of the temperature conversion, in Kelvin.
	temperatureSpan = 175.0

	dataReadyMask = 1<<11 - 1
	frcFailed     = 0xffff
	frcZero       = 0x8000
)

// countToTemp converts a device count to Temperature.
func countToTemp(count uint16) physic.Temperature {
	frac := float64(count) / fullScale
	result := -45 + temperatureSpan*frac
	return physic.ZeroCelsius + physic.Temperature(float64(physic.Celsius)*result)
}

func countToHumidity(count uint16) physic.RelativeHumidity {
	frac := float64(count) / fullScale
	return physic.RelativeHumidity(frac * 100.0 * float64(physic.PercentRH))
}

// countToOffset converts a temperature offset word. The offset is a
// temperature difference, not an absolute temperature.
func countToOffset(count uint16) physic.Temperature {
	return physic.Temperature(float64(count) * temperatureSpan / fullScale * float64(physic.Kelvin))
}

// offsetToCount is the inverse of countToOffset. The result is truncated.
func offsetToCount(offset physic.Temperature) (uint16, error) {
	val := float64(offset) / float64(physic.Kelvin) * fullScale / temperatureSpan
	if offset < 0 || math.IsNaN(val) || val > math.MaxUint16 {
		return 0, fmt.Errorf("%w: temperature offset %s out of range", sensirion.ErrInvalidArgument, offsetString(offset))
	}
	return uint16(val), nil
}

func offsetString(offset physic.Temperature) string {
	return fmt.Sprintf("%.3fK", float64(offset)/float64(physic.Kelvin))
}

func decodeSerialNumber(words []uint16) uint64 {
	return uint64(words[0])<<32 | uint64(words[1])<<16 | uint64(words[2])
}

// decodeFRC returns the correction applied by a forced recalibration.
func decodeFRC(word uint16) (PPM, error) {
	if word == frcFailed {
		return 0, sensirion.ErrRecalibrationFailed
	}
	return PPM(int(word) - frcZero), nil
}

func decodeVariant(word uint16) (Variant, error) {
	switch word >> 12 {
	case 0:
		return SCD40, nil
	case 1:
		return SCD41, nil
	case 5:
		return SCD43, nil
	default:
		return 0, fmt.Errorf("scd4x: unknown sensor variant 0x%04x", word)
	}
}

func isDataReady(word uint16) bool {
	return word&dataReadyMask != 0
}
