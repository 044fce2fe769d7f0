// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import "testing"

// bitwise is the shift register form of the checksum as printed in the
// Sensirion datasheets.
func bitwise(bytes []byte) byte {
	crc := byte(0xff)
	for _, val := range bytes {
		crc ^= val
		for i := 0; i < 8; i++ {
			if (crc & 0x80) == 0 {
				crc <<= 1
			} else {
				crc = (crc << 1) ^ 0x31
			}
		}
	}
	return crc
}

func TestCRC8(t *testing.T) {
	var tests = []struct {
		bytes  []byte
		result byte
	}{
		{bytes: []byte{0xbe, 0xef}, result: 0x92},
		{bytes: []byte{0x01, 0xa4}, result: 0x4d},
		{bytes: []byte{0xab, 0xcd}, result: 0x6f},
		{bytes: []byte{0x01, 0xf4}, result: 0x33},
		{bytes: []byte("123456789"), result: 0xf7},
	}
	for _, test := range tests {
		res := CRC8(test.bytes)
		if res != test.result {
			t.Errorf("CRC8(%#v)!=0x%x received 0x%x", test.bytes, test.result, res)
		}
	}
}

func TestWordCRCMatchesShiftRegister(t *testing.T) {
	for w := 0; w <= 0xffff; w++ {
		word := uint16(w)
		want := bitwise([]byte{byte(word >> 8), byte(word)})
		if got := WordCRC(word); got != want {
			t.Fatalf("WordCRC(0x%04x)=0x%02x expected 0x%02x", word, got, want)
		}
		if !VerifyWord(word, want) {
			t.Fatalf("VerifyWord(0x%04x, 0x%02x) returned false", word, want)
		}
		if VerifyWord(word, want^0x01) {
			t.Fatalf("VerifyWord(0x%04x) accepted a corrupted checksum", word)
		}
	}
}
