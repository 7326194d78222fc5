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
// Package platform holds the build-time platform discriminant. The platform
// is picked by mutually exclusive build constraints, one file per flavor:
//
//   xapi                                   -> PlatformXapi
//   nucleus (without xapi)                 -> PlatformNucleus
//   ecos (without nucleus, xapi)           -> PlatformEcos
//   linux && ifxos_drv (no rtos tag)       -> PlatformLinuxDrv
//   linux (no rtos tag)                    -> PlatformLinuxAppl
//   windows (no rtos tag)                  -> PlatformWin32
//   anything else                          -> PlatformGeneric
//
// Optional capability groups default to what the platform file enables and
// can be dropped with the ifxos_nodevice, ifxos_nodevselect, ifxos_nosocket,
// ifxos_noshutdown and ifxos_noipv6 tags.
//
package platform

import "github.com/nestybox/sysbox-osal/domain"

// Groups switched off through build tags. Only written by init functions.
var disabled domain.Features

// Features returns the capability groups compiled into this build.
func Features() domain.Features {
	f := defaultFeatures

	if disabled.DeviceAccess {
		f.DeviceAccess = false
	}
	if disabled.DeviceSelect || !f.DeviceAccess {
		f.DeviceSelect = false
	}
	if disabled.Socket {
		f.Socket = false
	}
	if disabled.SocketShutdown || !f.Socket {
		f.SocketShutdown = false
	}
	if disabled.IPv6 || !f.Socket {
		f.IPv6 = false
	}

	return f
}
