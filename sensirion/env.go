// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sensirion

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// PPM=Parts Per Million. Units of measure for CO2 concentration.
type PPM int

func (ppm PPM) String() string {
	return fmt.Sprintf("%d PPM", int(ppm))
}

// Env is a sensor reading: CO2 concentration, Temperature and Humidity.
// Pressure is never set.
type Env struct {
	physic.Env
	CO2 PPM
}

// Return the sensor readings in string format.
func (e *Env) String() string {
	return fmt.Sprintf("Temperature: %s Humidity: %s CO2: %s", e.Temperature.String(), e.Humidity.String(), e.CO2.String())
}
