// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scd is a container for the Sensirion SCD CO2 sensor drivers.
//
// The sensirion package holds the shared I²C protocol engine: word framing,
// CRC checks, the command catalog and the measurement state machine. The
// scd4x and scd30 packages build the sensor drivers on top of it, and
// cmd/scdmon exports readings as Prometheus metrics.
package scd
