// frame.go - length prefixed message framing.
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

package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	// framePrefixSize is the size of the big endian length prefix that
	// precedes every frame payload.
	framePrefixSize = 4

	// DefaultMaxFrameSize is the payload cap applied when a Session's
	// configuration does not specify one.
	DefaultMaxFrameSize = 16 * 1024 * 1024
)

// ErrFrameTooLarge is returned by ReadFrame when the advertised payload
// length exceeds the cap; no payload bytes have been consumed at that
// point.
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

// WriteFrame emits a 4 byte big endian length followed by the payload.
// The io.Writer contract handles partial write retries; any write error is
// fatal to the stream.
func WriteFrame(w io.Writer, payload []byte) error {
	var prefix [framePrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length prefixed frame, enforcing max as the payload
// cap when it is non-zero.  End of stream in the middle of the prefix or
// the payload surfaces as io.ErrUnexpectedEOF; a clean close before any
// prefix byte surfaces as io.EOF so that callers can tell disconnection
// apart from truncation.
func ReadFrame(r io.Reader, max uint32) ([]byte, error) {
	var prefix [framePrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if max != 0 && n > max {
		return nil, ErrFrameTooLarge
	}
	if n == 0 {
		return nil, nil
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}
