// mode.go - block cipher modes of operation.
// Copyright (C) 2025  The triplex Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package mode layers ECB and CBC modes of operation, with a length
// preserving tail padding, over any crypto/cipher.Block.
//
// The padding appends 0x80 followed by zero bytes only when the input is
// not already a multiple of the block size.  A plaintext whose last block
// legitimately ends in 0x80 followed by zeros is therefore ambiguous on
// decryption; every transport plaintext in this module is JSON text, which
// never ends in those bytes.
package mode

import (
	"crypto/cipher"

	"github.com/triplex-sh/triplex/core/crypto/rand"
)

const padByte = 0x80

// Codec provides the mode operations for one keyed block cipher.
type Codec struct {
	blk  cipher.Block
	size int
}

// NewCodec returns a Codec over the given block cipher.
func NewCodec(blk cipher.Block) *Codec {
	return &Codec{blk: blk, size: blk.BlockSize()}
}

// BlockSize returns the underlying cipher's block size.
func (c *Codec) BlockSize() int {
	return c.size
}

// Align pads data to a multiple of blockSize with 0x80 and zero bytes.
// Input that is already aligned (including empty input) is returned as-is.
func Align(data []byte, blockSize int) []byte {
	n := len(data) % blockSize
	if n == 0 {
		return data
	}
	out := make([]byte, len(data)+blockSize-n)
	copy(out, data)
	out[len(data)] = padByte
	return out
}

// Strip removes the tail padding appended by Align: trailing zero bytes are
// skipped and, if the next byte is 0x80, the data is truncated there.  Data
// with no padding tail is returned unchanged.
func Strip(data []byte) []byte {
	for i := len(data) - 1; i >= 0; i-- {
		switch data[i] {
		case 0x00:
		case padByte:
			return data[:i]
		default:
			return data
		}
	}
	return data
}

// EncryptECB encrypts plain in ECB mode, padding as needed.  Empty input
// yields empty output.
func (c *Codec) EncryptECB(plain []byte) []byte {
	if len(plain) == 0 {
		return nil
	}
	plain = Align(plain, c.size)
	out := make([]byte, len(plain))
	for i := 0; i < len(plain); i += c.size {
		c.blk.Encrypt(out[i:], plain[i:])
	}
	return out
}

// DecryptECB decrypts an ECB ciphertext and strips padding.  Input that is
// empty or not a multiple of the block size yields empty output.
func (c *Codec) DecryptECB(ciphertext []byte) []byte {
	out := c.DecryptECBRaw(ciphertext)
	return Strip(out)
}

// EncryptECBRaw encrypts data block-wise without padding.  The data length
// must already be a multiple of the block size; anything else yields empty
// output.  It is used as the middle layer of the composed triple transport,
// where the "plaintext" is another cipher's output and must round-trip
// byte-exactly.
func (c *Codec) EncryptECBRaw(data []byte) []byte {
	if len(data) == 0 || len(data)%c.size != 0 {
		return nil
	}
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += c.size {
		c.blk.Encrypt(out[i:], data[i:])
	}
	return out
}

// DecryptECBRaw decrypts data block-wise without stripping padding, under
// the same length rules as EncryptECBRaw.
func (c *Codec) DecryptECBRaw(data []byte) []byte {
	if len(data) == 0 || len(data)%c.size != 0 {
		return nil
	}
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += c.size {
		c.blk.Decrypt(out[i:], data[i:])
	}
	return out
}

// EncryptCBC encrypts plain in CBC mode under a fresh random IV, which is
// transmitted as the first block of the returned ciphertext.  Empty input
// yields empty output.
func (c *Codec) EncryptCBC(plain []byte) []byte {
	if len(plain) == 0 {
		return nil
	}
	plain = Align(plain, c.size)
	out := make([]byte, c.size+len(plain))
	copy(out, rand.Bytes(c.size))

	prev := out[:c.size]
	for i := 0; i < len(plain); i += c.size {
		blk := out[c.size+i : c.size+i+c.size]
		for j := 0; j < c.size; j++ {
			blk[j] = plain[i+j] ^ prev[j]
		}
		c.blk.Encrypt(blk, blk)
		prev = blk
	}
	return out
}

// DecryptCBC decrypts a CBC ciphertext whose first block is the IV, and
// strips padding.  Input shorter than two blocks or not a multiple of the
// block size yields empty output.
func (c *Codec) DecryptCBC(ciphertext []byte) []byte {
	if len(ciphertext) < 2*c.size || len(ciphertext)%c.size != 0 {
		return nil
	}
	out := make([]byte, len(ciphertext)-c.size)

	prev := ciphertext[:c.size]
	for i := c.size; i < len(ciphertext); i += c.size {
		c.blk.Decrypt(out[i-c.size:], ciphertext[i:])
		for j := 0; j < c.size; j++ {
			out[i-c.size+j] ^= prev[j]
		}
		prev = ciphertext[i : i+c.size]
	}
	return Strip(out)
}
