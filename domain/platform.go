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

package domain

import "fmt"

//
// Platform identifies the operating-system flavor the layer has been built
// for. Exactly one value is active per build; see the 'platform' package for
// the build constraints that select it.
//
type Platform int

const (
	PlatformUnknown   Platform = iota
	PlatformLinuxDrv           // linux, driver (privileged) space
	PlatformLinuxAppl          // linux, application space
	PlatformWin32
	PlatformEcos
	PlatformNucleus
	PlatformXapi // vxworks / xapi
	PlatformGeneric
)

var platformNames = map[Platform]string{
	PlatformUnknown:   "unknown",
	PlatformLinuxDrv:  "linux-drv",
	PlatformLinuxAppl: "linux-appl",
	PlatformWin32:     "win32",
	PlatformEcos:      "ecos",
	PlatformNucleus:   "nucleus",
	PlatformXapi:      "xapi",
	PlatformGeneric:   "generic",
}

func (p Platform) String() string {
	if name, ok := platformNames[p]; ok {
		return name
	}

	return fmt.Sprintf("platform(%d)", int(p))
}

// HasVirtualMemory tells whether physical addresses must be mapped before
// being accessed. RTOS flavors run with a flat address space.
func (p Platform) HasVirtualMemory() bool {
	switch p {
	case PlatformLinuxDrv, PlatformLinuxAppl, PlatformWin32, PlatformGeneric:
		return true
	}

	return false
}

//
// Features holds the optional capability groups compiled into the layer. The
// defaults are dictated by the platform module; every group can be switched
// off at build time.
//
type Features struct {
	DeviceAccess   bool
	DeviceSelect   bool
	Socket         bool
	SocketShutdown bool
	IPv6           bool
	Termios        bool
	Misc           bool
}

func (f Features) String() string {
	return fmt.Sprintf(
		"device=%t device-select=%t socket=%t socket-shutdown=%t ipv6=%t termios=%t misc=%t",
		f.DeviceAccess, f.DeviceSelect, f.Socket, f.SocketShutdown, f.IPv6,
		f.Termios, f.Misc)
}
