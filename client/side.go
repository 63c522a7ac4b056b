// side.go - local/remote prompt switching.
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
	"os"
	"os/user"

	"github.com/fatih/color"
)

var (
	localPrompt  = color.New(color.FgCyan)
	remotePrompt = color.New(color.FgYellow)
)

// side is the mode register that tracks whether input lines run locally
// or on the remote peer, and renders the prompt accordingly.  It is owned
// by the input loop and never shared.
type side struct {
	remote bool

	localUser  string
	localHost  string
	remoteUser string
	remoteHost string
}

func newSide() *side {
	s := &side{}
	if u, err := user.Current(); err == nil {
		s.localUser = u.Username
	}
	if h, err := os.Hostname(); err == nil {
		s.localHost = h
	}
	return s
}

// setRemote records the remote identity learned from the peer and
// switches the prompt to the remote side.
func (s *side) setRemote(userName, hostName string) {
	s.remoteUser = userName
	s.remoteHost = hostName
	s.remote = true
}

func (s *side) setLocal() {
	s.remote = false
}

func (s *side) prompt() string {
	if s.remote {
		return remotePrompt.Sprintf("%s@%s> ", s.remoteUser, s.remoteHost)
	}
	return localPrompt.Sprintf("%s@%s> ", s.localUser, s.localHost)
}

func (s *side) String() string {
	if s.remote {
		return fmt.Sprintf("remote (%s@%s)", s.remoteUser, s.remoteHost)
	}
	return fmt.Sprintf("local (%s@%s)", s.localUser, s.localHost)
}
