// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sensirion implements the command/response protocol shared by the
// Sensirion SCD30 and SCD4x CO2 sensors.
//
// Every command is a 16-bit opcode, optionally followed by argument words.
// Every argument and response word travels on the wire as two big-endian
// bytes followed by a CRC8 of those two bytes. A response is only trusted
// when every word verifies; a single bad word discards the whole response.
//
// The sensor families describe their commands in a Catalog. A Device executes
// catalog commands over a Transport, enforcing the minimum delay between the
// write and the read, and refusing commands that are not legal in the
// current State.
//
// # Transports
//
// Blocking runs every transaction and delay on the calling goroutine.
// Suspending honours the context passed to each call: delays can be
// cancelled, and a cancelled call never changes the Device state.
//
// # Device state
//
// A Device starts in Idle, whatever the sensor is actually doing. A sensor
// that kept running while the host restarted is still in periodic
// measurement mode, and will reject configuration commands. Issue a stop
// first when the hardware state is unknown.
package sensirion
