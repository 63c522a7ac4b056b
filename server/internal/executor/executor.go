// executor.go - command verb dispatch.
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

// Package executor maps request verbs onto filesystem and process
// operations.  A failed operation is reported as a commands.Error, which
// the connection layer ships to the peer inside a normal Answer; the
// executor itself never terminates a session and never panics on
// ill-formed input.
package executor

import (
	"errors"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"

	"gopkg.in/op/go-logging.v1"

	"github.com/triplex-sh/triplex/core/ufs"
	"github.com/triplex-sh/triplex/core/wire/commands"
)

// Executor dispatches request verbs.
type Executor struct {
	log *logging.Logger
}

// New creates an Executor.
func New(log *logging.Logger) *Executor {
	return &Executor{log: log}
}

// Execute runs one request and produces either an Answer or the Error to
// be shipped in one.
func (e *Executor) Execute(req *commands.Request) (*commands.Answer, *commands.Error) {
	switch req.Command {
	case "pwd":
		return e.pwd()
	case "cd":
		return e.cd(req.Params)
	case "ls", "ll":
		return e.list(req.Command, req.Params, false)
	case "la":
		return e.list(req.Command, req.Params, true)
	case "mkdir":
		return e.mkdir(req.Params)
	case "touch":
		return e.eachPath("touch", req.Params, ufs.Touch)
	case "rm":
		return e.eachPath("rm", req.Params, ufs.Remove)
	case "rmdir":
		return e.rmdir(req.Params)
	case "rename", "move":
		return e.rename(req.Command, req.Params)
	case "stat":
		return e.stat(req.Params)
	case "get":
		return e.get(req.Params)
	case "exe":
		return e.exe(req.Params)
	}
	return nil, commands.AppError(commands.CodeNoCommand, "no such command")
}

func (e *Executor) pwd() (*commands.Answer, *commands.Error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, commands.IOError(err)
	}
	return commands.NewAnswerWithData(0, commands.StatusOK, "pwd", []string{wd}), nil
}

func (e *Executor) cd(params []string) (*commands.Answer, *commands.Error) {
	path := "~"
	if len(params) > 0 {
		path = params[0]
	}
	if strings.HasPrefix(path, "~") {
		u, err := user.Current()
		if err != nil {
			return nil, commands.IOError(err)
		}
		path = u.HomeDir + path[1:]
	}

	if err := os.Chdir(path); err != nil {
		return nil, commands.IOError(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, commands.IOError(err)
	}
	return commands.NewAnswerWithData(0, commands.StatusOK, "cd", []string{wd}), nil
}

func (e *Executor) list(cmd string, params []string, hiddenToo bool) (*commands.Answer, *commands.Error) {
	path := "."
	if len(params) > 0 {
		path = params[0]
	}
	files, err := ufs.ReadDir(path, hiddenToo)
	if err != nil {
		return nil, commands.IOError(err)
	}

	data := make([]string, 0, len(files))
	for _, fi := range files {
		s, err := fi.ToJSON()
		if err != nil {
			return nil, commands.SerdeError(err)
		}
		data = append(data, s)
	}
	return commands.NewAnswerWithData(0, commands.StatusOK, cmd, data), nil
}

func (e *Executor) mkdir(params []string) (*commands.Answer, *commands.Error) {
	if len(params) == 0 {
		return nil, commands.AppError(commands.CodeInvalid, "no call parameters")
	}
	for _, path := range params {
		var err error
		if strings.Contains(path, string(os.PathSeparator)) {
			err = os.MkdirAll(path, 0755)
		} else {
			err = os.Mkdir(path, 0755)
		}
		if err != nil {
			return nil, commands.IOError(err)
		}
	}
	return commands.NewAnswerWithData(0, commands.StatusOK, "mkdir", params), nil
}

func (e *Executor) eachPath(cmd string, params []string, fn func(string) error) (*commands.Answer, *commands.Error) {
	if len(params) == 0 {
		return nil, commands.AppError(commands.CodeInvalid, "no call parameters")
	}
	for _, path := range params {
		if err := isRegularName(path); err != nil {
			return nil, err
		}
		if err := fn(path); err != nil {
			return nil, commands.IOError(err)
		}
	}
	return commands.NewAnswerWithData(0, commands.StatusOK, cmd, params), nil
}

func (e *Executor) rmdir(params []string) (*commands.Answer, *commands.Error) {
	if len(params) == 0 {
		return nil, commands.AppError(commands.CodeInvalid, "no call parameters")
	}
	remove := ufs.Rmdir
	if params[0] == "-r" {
		remove = ufs.RmdirAll
		params = params[1:]
	}
	return e.eachPath("rmdir", params, remove)
}

func (e *Executor) rename(cmd string, params []string) (*commands.Answer, *commands.Error) {
	if len(params) != 2 {
		return nil, commands.AppError(commands.CodeInvalid, "invalid number of parameters")
	}
	from, to := params[0], params[1]
	if ufs.Exists(to) {
		return nil, commands.AppError(commands.CodeInvalid, "file already exists")
	}
	if !ufs.Exists(from) {
		return nil, commands.AppError(commands.CodeInvalid, "file not found")
	}
	if err := ufs.Rename(from, to); err != nil {
		return nil, commands.IOError(err)
	}
	return commands.NewAnswerWithData(0, commands.StatusOK, cmd, []string{from, to}), nil
}

func (e *Executor) stat(params []string) (*commands.Answer, *commands.Error) {
	if len(params) == 0 {
		return nil, commands.AppError(commands.CodeInvalid, "no call parameters")
	}
	data := make([]string, 0, len(params))
	for _, path := range params {
		if !filepath.IsAbs(path) {
			wd, err := os.Getwd()
			if err != nil {
				return nil, commands.IOError(err)
			}
			path = filepath.Join(wd, path)
		}
		fi, err := ufs.Stat(path)
		if err != nil {
			return nil, commands.IOError(err)
		}
		s, err := fi.ToJSON()
		if err != nil {
			return nil, commands.SerdeError(err)
		}
		data = append(data, s)
	}
	return commands.NewAnswerWithData(0, commands.StatusOK, "stat", data), nil
}

// get reads a file and hands it back as an upload answer, which the
// client persists locally.
func (e *Executor) get(params []string) (*commands.Answer, *commands.Error) {
	if len(params) != 1 {
		return nil, commands.AppError(commands.CodeInvalid, "invalid number of parameters")
	}
	data, err := ufs.ReadAll(params[0])
	if err != nil {
		return nil, commands.IOError(err)
	}
	ans := commands.NewAnswerWithData(0, commands.StatusOK, "upload", []string{params[0]})
	ans.Binary = data
	return ans, nil
}

func (e *Executor) exe(params []string) (*commands.Answer, *commands.Error) {
	if len(params) == 0 {
		return nil, commands.AppError(commands.CodeInvalid, "no call parameters")
	}
	e.log.Debugf("exe: %v", params)
	cmd := exec.Command(params[0], params[1:]...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, commands.IOError(err)
		}
		// A non-zero exit still produced output worth returning.
	}
	out := strings.TrimSuffix(stdout.String(), "\n")
	errs := strings.TrimSuffix(stderr.String(), "\n")
	return commands.NewAnswerWithData(0, commands.StatusOK, "exe", []string{out, errs}), nil
}

// isRegularName refuses the path components "." and ".." as operation
// targets.
func isRegularName(path string) *commands.Error {
	switch filepath.Base(path) {
	case ".", "..", string(os.PathSeparator):
		return commands.AppError(commands.CodeInvalid, "invalid entry name")
	}
	return nil
}
