// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sensirion

import "strings"

// State is the operating mode of the sensor as tracked by the driver.
type State uint8

const (
	// Idle is the state after construction and after a stop command.
	Idle State = iota
	// PeriodicMeasurement is entered by a start measurement command.
	PeriodicMeasurement
	// AwaitingOneShot is entered by a single shot command and left once the
	// measurement is read.
	AwaitingOneShot
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PeriodicMeasurement:
		return "periodic-measurement"
	case AwaitingOneShot:
		return "awaiting-one-shot"
	default:
		return "unknown"
	}
}

// StateSet is a set of states in which a command may be issued.
type StateSet uint8

const (
	InIdle     StateSet = 1 << Idle
	InPeriodic StateSet = 1 << PeriodicMeasurement
	InOneShot  StateSet = 1 << AwaitingOneShot
	InAny               = InIdle | InPeriodic | InOneShot
)

// Has reports whether s is a member of the set.
func (ss StateSet) Has(s State) bool {
	return ss&(1<<s) != 0
}

func (ss StateSet) String() string {
	var names []string
	for _, s := range []State{Idle, PeriodicMeasurement, AwaitingOneShot} {
		if ss.Has(s) {
			names = append(names, s.String())
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Enter returns a transition to s regardless of the current state.
func Enter(s State) func(State) State {
	return func(State) State { return s }
}

// ConsumeOneShot is the transition of a read measurement command: a pending
// one shot result has been consumed, any other state is kept.
func ConsumeOneShot(s State) State {
	if s == AwaitingOneShot {
		return Idle
	}
	return s
}
