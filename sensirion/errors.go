// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sensirion

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when a command is not permitted in the
	// current device state. The bus is not accessed.
	ErrInvalidState = errors.New("sensirion: command not permitted in current state")
	// ErrUnsupported is returned when the sensor variant does not implement
	// the requested command.
	ErrUnsupported = errors.New("sensirion: command not supported by sensor")
	// ErrInvalidArgument is returned when a parameter is outside of the range
	// accepted by the sensor.
	ErrInvalidArgument = errors.New("sensirion: invalid argument")
	// ErrRecalibrationFailed is returned when the sensor refuses a forced
	// recalibration because it was not operated before the command.
	ErrRecalibrationFailed = errors.New("sensirion: forced recalibration failed")
)

// BusError wraps a fault reported by the underlying bus.
type BusError struct {
	Cmd string
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("sensirion: %s: bus error: %v", e.Cmd, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// ChecksumError is returned when a received word fails CRC verification.
// Word is the zero based index of the first bad word.
type ChecksumError struct {
	Word int
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("sensirion: invalid crc for word %d", e.Word)
}

// UnexpectedResponseLengthError is returned when the number of bytes read
// back does not match the command definition.
type UnexpectedResponseLengthError struct {
	Cmd  string
	Want int
	Got  int
}

func (e *UnexpectedResponseLengthError) Error() string {
	if e.Cmd == "" {
		return fmt.Sprintf("sensirion: unexpected response length %d, want %d", e.Got, e.Want)
	}
	return fmt.Sprintf("sensirion: %s: unexpected response length %d, want %d", e.Cmd, e.Got, e.Want)
}
