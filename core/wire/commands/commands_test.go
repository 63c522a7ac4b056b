// commands_test.go - wire record tests.
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

package commands

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	require := require.New(t)

	req := NewRequest("ls", []string{"/tmp"})
	req.ID = 3

	b, err := req.ToJSON()
	require.NoError(err)
	require.Contains(string(b), `"command":"ls"`)

	parsed, err := RequestFromJSON(b)
	require.NoError(err)
	require.Equal(req, parsed)
}

func TestRequestValidation(t *testing.T) {
	require := require.New(t)

	_, err := RequestFromJSON([]byte("not json"))
	require.Error(err)

	_, err = RequestFromJSON([]byte(`{"id":1,"timestamp":2,"params":[]}`))
	require.Error(err, "missing command must be rejected")

	parsed, err := RequestFromJSON([]byte(`{"id":1,"timestamp":2,"command":"pwd"}`))
	require.NoError(err)
	require.NotNil(parsed.Params, "absent params normalize to an empty list")
}

func TestAnswerRoundTrip(t *testing.T) {
	require := require.New(t)

	ans := NewAnswerWithData(0, StatusOK, "get", []string{"a.bin"})
	ans.ID = 2
	ans.Binary = []byte{0x00, 0x80, 0xff}

	b, err := ans.ToJSON()
	require.NoError(err)

	parsed, err := AnswerFromJSON(b)
	require.NoError(err)
	require.Equal(ans, parsed)
	require.True(parsed.IsOK())
}

func TestErrorRecord(t *testing.T) {
	require := require.New(t)

	appErr := AppError(CodeNoCommand, "no such command")
	ans := appErr.Answer()
	require.Equal(CodeNoCommand, ans.Code)
	require.Empty(ans.Cmd)
	require.False(ans.IsOK())

	parsed, err := ErrorFromJSON(ans.Message)
	require.NoError(err)
	require.Equal(appErr, parsed)
	require.Equal(SrcApp, parsed.Src)
}

func TestIOErrorKind(t *testing.T) {
	require := require.New(t)

	_, oerr := os.Open("/nonexistent/definitely/not/here")
	require.Error(oerr)

	e := IOError(oerr)
	require.Equal(SrcIO, e.Src)
	require.Equal("NotFound", e.Kind)
	require.NotZero(e.Code)
}
