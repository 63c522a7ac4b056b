// executor_test.go - verb dispatch tests.
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

package executor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/triplex-sh/triplex/core/log"
	"github.com/triplex-sh/triplex/core/ufs"
	"github.com/triplex-sh/triplex/core/wire/commands"
)

func testExecutor(t *testing.T) *Executor {
	logBackend, err := log.New("", "DEBUG", true)
	require.NoError(t, err)
	return New(logBackend.GetLogger("executor"))
}

func run(e *Executor, verb string, params ...string) (*commands.Answer, *commands.Error) {
	return e.Execute(commands.NewRequest(verb, params))
}

func TestUnknownVerb(t *testing.T) {
	require := require.New(t)
	e := testExecutor(t)

	ans, cerr := run(e, "xyz")
	require.Nil(ans)
	require.NotNil(cerr)
	require.Equal(commands.SrcApp, cerr.Src)
	require.Equal(commands.CodeNoCommand, cerr.Code)
	require.Equal("no such command", cerr.Msg)
}

func TestPwd(t *testing.T) {
	require := require.New(t)
	e := testExecutor(t)

	ans, cerr := run(e, "pwd")
	require.Nil(cerr)
	require.True(ans.IsOK())
	require.Equal("pwd", ans.Cmd)
	require.Len(ans.Data, 1)
	require.True(filepath.IsAbs(ans.Data[0]))
}

func TestMkdirTouchRm(t *testing.T) {
	require := require.New(t)
	e := testExecutor(t)
	dir := t.TempDir()

	sub := filepath.Join(dir, "one")
	ans, cerr := run(e, "mkdir", sub)
	require.Nil(cerr)
	require.Equal([]string{sub}, ans.Data)
	require.True(ufs.Exists(sub))

	file := filepath.Join(sub, "plik")
	ans, cerr = run(e, "touch", file)
	require.Nil(cerr)
	require.Equal("touch", ans.Cmd)
	require.True(ufs.Exists(file))

	_, cerr = run(e, "rm", file)
	require.Nil(cerr)
	require.False(ufs.Exists(file))

	_, cerr = run(e, "rmdir", sub)
	require.Nil(cerr)
	require.False(ufs.Exists(sub))

	// Arity failures are application errors.
	_, cerr = run(e, "mkdir")
	require.NotNil(cerr)
	require.Equal(commands.SrcApp, cerr.Src)

	_, cerr = run(e, "touch")
	require.NotNil(cerr)
}

func TestRmdirRecursive(t *testing.T) {
	require := require.New(t)
	e := testExecutor(t)
	dir := t.TempDir()

	tree := filepath.Join(dir, "tree")
	require.NoError(os.MkdirAll(filepath.Join(tree, "sub"), 0755))
	require.NoError(ufs.Touch(filepath.Join(tree, "sub", "leaf")))

	// Plain rmdir refuses a populated directory.
	_, cerr := run(e, "rmdir", tree)
	require.NotNil(cerr)

	_, cerr = run(e, "rmdir", "-r", tree)
	require.Nil(cerr)
	require.False(ufs.Exists(tree))
}

func TestRefusedNames(t *testing.T) {
	require := require.New(t)
	e := testExecutor(t)

	for _, path := range []string{".", "..", "some/dir/.."} {
		_, cerr := run(e, "rmdir", path)
		require.NotNil(cerr, "rmdir %q", path)
		require.Equal(commands.SrcApp, cerr.Src)
	}
}

func TestRename(t *testing.T) {
	require := require.New(t)
	e := testExecutor(t)
	dir := t.TempDir()

	from := filepath.Join(dir, "from")
	to := filepath.Join(dir, "to")
	require.NoError(ufs.Touch(from))

	ans, cerr := run(e, "rename", from, to)
	require.Nil(cerr)
	require.Equal([]string{from, to}, ans.Data)
	require.True(ufs.Exists(to))

	// Destination collision and missing source are application errors.
	require.NoError(ufs.Touch(from))
	_, cerr = run(e, "move", from, to)
	require.NotNil(cerr)

	_, cerr = run(e, "move", filepath.Join(dir, "missing"), filepath.Join(dir, "other"))
	require.NotNil(cerr)

	_, cerr = run(e, "rename", from)
	require.NotNil(cerr)
}

func TestListing(t *testing.T) {
	require := require.New(t)
	e := testExecutor(t)
	dir := t.TempDir()

	require.NoError(os.Mkdir(filepath.Join(dir, "sub"), 0755))
	require.NoError(ufs.Touch(filepath.Join(dir, "plik")))
	require.NoError(ufs.Touch(filepath.Join(dir, ".ukryty")))

	ans, cerr := run(e, "ls", dir)
	require.Nil(cerr)
	require.Equal("ls", ans.Cmd)
	require.Len(ans.Data, 2)

	fi, err := ufs.FileInfoFromJSON(ans.Data[0])
	require.NoError(err)
	require.Equal("sub", fi.Name)
	require.True(fi.IsDir())

	ans, cerr = run(e, "la", dir)
	require.Nil(cerr)
	require.Len(ans.Data, 3)

	_, cerr = run(e, "ls", filepath.Join(dir, "missing"))
	require.NotNil(cerr)
	require.Equal(commands.SrcIO, cerr.Src)
	require.Equal("NotFound", cerr.Kind)
}

func TestStatVerb(t *testing.T) {
	require := require.New(t)
	e := testExecutor(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "plik")
	require.NoError(ufs.Touch(path))

	ans, cerr := run(e, "stat", path)
	require.Nil(cerr)
	require.Len(ans.Data, 1)

	fi, err := ufs.FileInfoFromJSON(ans.Data[0])
	require.NoError(err)
	require.Equal("plik", fi.Name)
	require.Equal(path, fi.Path)
}

func TestGet(t *testing.T) {
	require := require.New(t)
	e := testExecutor(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "blob.bin")
	payload := []byte{0x00, 0x80, 0x01, 0xff}
	require.NoError(os.WriteFile(path, payload, 0644))

	ans, cerr := run(e, "get", path)
	require.Nil(cerr)
	require.Equal("upload", ans.Cmd)
	require.Equal([]string{path}, ans.Data)
	require.Equal(payload, ans.Binary)

	_, cerr = run(e, "get", filepath.Join(dir, "missing"))
	require.NotNil(cerr)
	require.Equal(commands.SrcIO, cerr.Src)
}

func TestExe(t *testing.T) {
	require := require.New(t)
	e := testExecutor(t)

	ans, cerr := run(e, "exe", "echo", "hello")
	require.Nil(cerr)
	require.Equal("exe", ans.Cmd)
	require.Len(ans.Data, 2)
	require.Equal("hello", ans.Data[0])
	require.Empty(ans.Data[1])

	_, cerr = run(e, "exe", "/definitely/not/a/binary")
	require.NotNil(cerr)
}
