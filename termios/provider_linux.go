//go:build linux && !ecos && !nucleus && !xapi

//
// Copyright 2019-2020 Nestybox, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package termios

import (
	"golang.org/x/sys/unix"

	"github.com/nestybox/sysbox-osal/domain"
)

var _ domain.TermProviderIface = (*termiosProvider)(nil)

type termiosProvider struct {
	fd int
}

func newDefaultProvider() domain.TermProviderIface {
	return &termiosProvider{fd: unix.Stdin}
}

func newTerminalProvider(fd uintptr) domain.TermProviderIface {
	return &termiosProvider{fd: int(fd)}
}

func (tp *termiosProvider) setLflag(flag uint32, on bool) error {
	t, err := unix.IoctlGetTermios(tp.fd, unix.TCGETS)
	if err != nil {
		return err
	}

	if on {
		t.Lflag |= flag
	} else {
		t.Lflag &^= flag
	}

	return unix.IoctlSetTermios(tp.fd, unix.TCSETS, t)
}

func (tp *termiosProvider) SetEcho(on bool) error {
	return tp.setLflag(unix.ECHO, on)
}

func (tp *termiosProvider) SetLineMode(on bool) error {
	return tp.setLflag(unix.ICANON, on)
}

func (tp *termiosProvider) Reboot() error {
	unix.Sync()
	return unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
}
