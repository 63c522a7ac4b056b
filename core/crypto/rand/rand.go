// rand.go - cryptographically secure random number helpers.
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

// Package rand provides the source of entropy used throughout triplex.
package rand

import (
	cryptorand "crypto/rand"
	"io"
)

// Reader is the cryptographic entropy source.
var Reader io.Reader = cryptorand.Reader

// Bytes returns n bytes read from Reader.  The system entropy source
// failing is not a recoverable condition, so Bytes panics instead of
// returning an error.
func Bytes(n int) []byte {
	b := make([]byte, n)
	if _, err := io.ReadFull(Reader, b); err != nil {
		panic("rand: entropy source failure: " + err.Error())
	}
	return b
}
