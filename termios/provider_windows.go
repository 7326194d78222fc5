//go:build windows && !ecos && !nucleus && !xapi

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
	"golang.org/x/sys/windows"

	"github.com/nestybox/sysbox-osal/domain"
)

var _ domain.TermProviderIface = (*consoleProvider)(nil)

type consoleProvider struct {
	h windows.Handle
}

func newDefaultProvider() domain.TermProviderIface {
	return &consoleProvider{h: windows.Stdin}
}

func newTerminalProvider(fd uintptr) domain.TermProviderIface {
	return &consoleProvider{h: windows.Handle(fd)}
}

func (cp *consoleProvider) setMode(flag uint32, on bool) error {
	var mode uint32
	if err := windows.GetConsoleMode(cp.h, &mode); err != nil {
		return err
	}

	if on {
		mode |= flag
	} else {
		mode &^= flag
	}

	return windows.SetConsoleMode(cp.h, mode)
}

func (cp *consoleProvider) SetEcho(on bool) error {
	return cp.setMode(windows.ENABLE_ECHO_INPUT, on)
}

// Echo input requires line input; keypress mode drops both.
func (cp *consoleProvider) SetLineMode(on bool) error {
	if on {
		return cp.setMode(windows.ENABLE_LINE_INPUT, true)
	}
	return cp.setMode(windows.ENABLE_LINE_INPUT|windows.ENABLE_ECHO_INPUT, false)
}

func (cp *consoleProvider) Reboot() error {
	return windows.InitiateSystemShutdownEx(nil, nil, 0, true, true,
		windows.SHTDN_REASON_MAJOR_OTHER|windows.SHTDN_REASON_FLAG_PLANNED)
}
