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

// Package termios covers console echo, keypress (non line buffered) input
// and system reboot.
package termios

import (
	"github.com/sirupsen/logrus"

	"github.com/nestybox/sysbox-osal/domain"
	"github.com/nestybox/sysbox-osal/platform"
)

var _ domain.TermServiceIface = (*termService)(nil)
var _ domain.MiscServiceIface = (*termService)(nil)

type termService struct {
	tp       domain.TermProviderIface
	features domain.Features
}

// TermService bundles the terminal and miscellaneous capabilities, both
// served by the same backend.
type TermService interface {
	domain.TermServiceIface
	domain.MiscServiceIface
}

// NewTermService acts on the process' standard input.
func NewTermService() TermService {
	return NewTermServiceWithProvider(newDefaultProvider(), platform.Features())
}

// NewTermServiceForTerminal acts on the terminal open as 'fd' (a console
// handle on windows).
func NewTermServiceForTerminal(fd uintptr) TermService {
	return NewTermServiceWithProvider(newTerminalProvider(fd), platform.Features())
}

func NewTermServiceWithProvider(tp domain.TermProviderIface, f domain.Features) TermService {
	return &termService{
		tp:       tp,
		features: f,
	}
}

func (ts *termService) setEcho(on bool) {
	if !ts.features.Termios {
		return
	}
	if err := ts.tp.SetEcho(on); err != nil {
		logrus.Warnf("Could not switch terminal echo (on=%t): %v", on, err)
	}
}

func (ts *termService) setLineMode(on bool) {
	if !ts.features.Termios {
		return
	}
	if err := ts.tp.SetLineMode(on); err != nil {
		logrus.Warnf("Could not switch terminal line mode (on=%t): %v", on, err)
	}
}

func (ts *termService) EchoOff() {
	ts.setEcho(false)
}

func (ts *termService) EchoOn() {
	ts.setEcho(true)
}

// KeypressSet makes input available per keystroke, without waiting for a
// newline.
func (ts *termService) KeypressSet() {
	ts.setLineMode(false)
}

func (ts *termService) KeypressReset() {
	ts.setLineMode(true)
}

func (ts *termService) Reboot() {
	if !ts.features.Misc {
		return
	}

	logrus.Info("Rebooting system")

	if err := ts.tp.Reboot(); err != nil {
		logrus.Errorf("Reboot failed: %v", err)
	}
}
