// frame_test.go - framing tests.
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
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/triplex-sh/triplex/core/crypto/rand"
)

func TestFrameRoundTrip(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	payloads := [][]byte{
		[]byte("hello"),
		rand.Bytes(4096),
		[]byte{},
	}
	for _, p := range payloads {
		require.NoError(WriteFrame(&buf, p))
	}
	for _, p := range payloads {
		got, err := ReadFrame(&buf, 0)
		require.NoError(err)

		// An empty payload reads back as nil.
		if len(p) == 0 {
			require.Nil(got)
			continue
		}
		require.Equal(p, got, "payload must round trip exactly")
	}

	// The stream is drained; the next read sees a clean EOF.
	_, err := ReadFrame(&buf, 0)
	require.Equal(io.EOF, err)
}

func TestFrameWireFormat(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	require.NoError(WriteFrame(&buf, []byte{0xaa, 0xbb}))
	require.Equal([]byte{0, 0, 0, 2, 0xaa, 0xbb}, buf.Bytes())
}

func TestFrameShortRead(t *testing.T) {
	require := require.New(t)

	// Truncated prefix.
	_, err := ReadFrame(bytes.NewReader([]byte{0, 0}), 0)
	require.Equal(io.ErrUnexpectedEOF, err)

	// Prefix advertises more payload than the stream holds.
	var buf bytes.Buffer
	require.NoError(WriteFrame(&buf, []byte("full payload")))
	truncated := buf.Bytes()[:buf.Len()-3]
	_, err = ReadFrame(bytes.NewReader(truncated), 0)
	require.Equal(io.ErrUnexpectedEOF, err)
}

func TestFrameCap(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	require.NoError(WriteFrame(&buf, make([]byte, 64)))
	_, err := ReadFrame(&buf, 32)
	require.Equal(ErrFrameTooLarge, err)
}
