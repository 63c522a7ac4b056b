// dir.go - directory listing helpers.
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

package ufs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReadDir lists the entries of a directory as FileInfo records, sorted
// directories first and then case-insensitively by name.  Hidden entries
// (dot files) are excluded unless hiddenToo is set.
func ReadDir(path string, hiddenToo bool) ([]*FileInfo, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !hiddenToo && isHidden(entry.Name()) {
			continue
		}
		fi, err := Stat(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, fi)
	}

	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	return files, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Rmdir removes an empty directory.  It fails on a non-empty one.
func Rmdir(path string) error {
	fi, err := Stat(path)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return &os.PathError{Op: "rmdir", Path: path, Err: os.ErrInvalid}
	}
	return os.Remove(path)
}

// RmdirAll removes a directory and everything beneath it.
func RmdirAll(path string) error {
	fi, err := Stat(path)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return &os.PathError{Op: "rmdir", Path: path, Err: os.ErrInvalid}
	}
	return os.RemoveAll(path)
}
