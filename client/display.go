// display.go - answer rendering.
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

package client

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/triplex-sh/triplex/core/ufs"
	"github.com/triplex-sh/triplex/core/wire/commands"
)

var errColor = color.New(color.FgRed)

// renderAnswer pretty-prints one Answer per its verb.
func (c *Client) renderAnswer(ans *commands.Answer) {
	if !ans.IsOK() {
		c.renderFailure(ans)
		return
	}

	switch ans.Cmd {
	case "ls", "ll", "la", "stat":
		c.renderListing(ans.Data)
	case "upload":
		c.persistUpload(ans)
	case "exe":
		c.renderExe(ans.Data)
	default:
		for _, line := range ans.Data {
			fmt.Println(line)
		}
	}
}

func (c *Client) renderFailure(ans *commands.Answer) {
	cerr, err := commands.ErrorFromJSON(ans.Message)
	if err != nil {
		errColor.Printf("error %d: %s\n", ans.Code, ans.Message)
		return
	}
	errColor.Printf("%s\n", cerr)
}

func (c *Client) renderListing(data []string) {
	for _, item := range data {
		fi, err := ufs.FileInfoFromJSON(item)
		if err != nil {
			errColor.Printf("malformed listing entry: %v\n", err)
			continue
		}
		fmt.Println(fi.String())
	}
}

func (c *Client) renderExe(data []string) {
	for _, stream := range data {
		if stream != "" {
			fmt.Println(stream)
		}
	}
}

// persistUpload writes the answer's binary payload into a fresh local
// file named after the remote path's basename.
func (c *Client) persistUpload(ans *commands.Answer) {
	if len(ans.Data) == 0 || ans.Data[0] == "" {
		errColor.Println("upload answer without a file name")
		return
	}
	name := filepath.Base(ans.Data[0])
	if err := ufs.WriteNew(name, ans.Binary); err != nil {
		errColor.Printf("failed to write %s: %v\n", name, err)
		return
	}
	fmt.Printf("%s: %d bytes\n", name, len(ans.Binary))
}
