// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, the CRC8 calculation Sensirion sensors append to every data word.
package common

import "github.com/sigurn/crc8"

// CRC-8 with polynomial 0x31 and initial value 0xff, no reflection and no
// final xor. This is the checksum documented in every Sensirion datasheet.
var crcTable = crc8.MakeTable(crc8.Params{
	Poly:   0x31,
	Init:   0xff,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x00,
	Check:  0xf7,
	Name:   "CRC-8/Sensirion",
})

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. CRC bytes are used in sensors from TI and Sensirion.
func CRC8(bytes []byte) byte {
	return crc8.Checksum(bytes, crcTable)
}

// WordCRC returns the checksum of the big-endian representation of w.
func WordCRC(w uint16) byte {
	crc := crc8.Init(crcTable)
	crc = crc8.Update(crc, []byte{byte(w >> 8), byte(w)}, crcTable)
	return crc8.Complete(crc, crcTable)
}

// VerifyWord reports whether crc is the checksum of w.
func VerifyWord(w uint16, crc byte) bool {
	return WordCRC(w) == crc
}
