// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sensirion

import "github.com/GermanBionicSystems/scd/common"

// WordSize is the number of bytes a data word takes on the wire.
const WordSize = 3

// Encode converts the slice of word values into byte values with the CRC
// following each word.
func Encode(words ...uint16) []byte {
	bytes := make([]byte, 0, len(words)*WordSize)
	return appendWords(bytes, words)
}

// EncodeCommand returns the payload for the command code followed by its
// arguments. The opcode itself is not protected by a CRC.
func EncodeCommand(code uint16, args ...uint16) []byte {
	bytes := make([]byte, 2, 2+len(args)*WordSize)
	bytes[0] = byte(code >> 8)
	bytes[1] = byte(code)
	return appendWords(bytes, args)
}

func appendWords(bytes []byte, words []uint16) []byte {
	for _, val := range words {
		bytes = append(bytes, byte(val>>8), byte(val), common.WordCRC(val))
	}
	return bytes
}

// Decode converts a response into its words, verifying the CRC as it goes.
// If any word fails verification, no words are returned.
func Decode(bytes []byte) ([]uint16, error) {
	if rem := len(bytes) % WordSize; rem != 0 {
		return nil, &UnexpectedResponseLengthError{Want: len(bytes) - rem + WordSize, Got: len(bytes)}
	}
	result := make([]uint16, len(bytes)/WordSize)
	for ix := range result {
		word := uint16(bytes[ix*WordSize])<<8 | uint16(bytes[ix*WordSize+1])
		if !common.VerifyWord(word, bytes[ix*WordSize+2]) {
			return nil, &ChecksumError{Word: ix}
		}
		result[ix] = word
	}
	return result, nil
}
