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

//
// Package osal is a thin operating-system abstraction layer. It exposes one
// operation surface (time, sockets, device I/O, physical memory mapping,
// user/driver space copies, terminal control and reboot) that resolves at
// build time to the backends of a single platform. See the 'platform'
// package for the build tags selecting it.
//
package osal

import (
	"github.com/nestybox/sysbox-osal/device"
	"github.com/nestybox/sysbox-osal/domain"
	"github.com/nestybox/sysbox-osal/memmap"
	"github.com/nestybox/sysbox-osal/platform"
	"github.com/nestybox/sysbox-osal/socket"
	"github.com/nestybox/sysbox-osal/termios"
	"github.com/nestybox/sysbox-osal/timer"
	"github.com/nestybox/sysbox-osal/ucopy"
)

// Layer gathers the capability services of the build platform.
type Layer struct {
	Platform domain.Platform
	Features domain.Features

	Time   domain.TimeServiceIface
	Socket domain.SocketServiceIface
	Device domain.DeviceServiceIface
	MemMap domain.MemMapServiceIface
	Copy   domain.CopyServiceIface
	Term   termios.TermService
}

// Config carries the few run-time choices the layer offers.
type Config struct {
	// Memory device used for physical mappings where the platform maps
	// through one. Empty selects the platform default.
	MemDevice string

	// Terminal acted upon by the echo / keypress calls. Negative selects
	// the standard input.
	TermFd int
}

func DefaultConfig() Config {
	return Config{TermFd: -1}
}

func New() *Layer {
	return NewWithConfig(DefaultConfig())
}

func NewWithConfig(cfg Config) *Layer {

	l := &Layer{
		Platform: platform.Current,
		Features: platform.Features(),
		Time:     timer.NewTimeService(),
		Socket:   socket.NewSocketService(),
		Device:   device.NewDeviceService(),
		Copy:     ucopy.NewCopyService(),
	}

	if cfg.MemDevice != "" {
		l.MemMap = memmap.NewMemMapServiceWithDevice(cfg.MemDevice)
	} else {
		l.MemMap = memmap.NewMemMapService()
	}

	if cfg.TermFd >= 0 {
		l.Term = termios.NewTermServiceForTerminal(uintptr(cfg.TermFd))
	} else {
		l.Term = termios.NewTermService()
	}

	return l
}
