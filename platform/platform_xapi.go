//go:build xapi

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

package platform

import "github.com/nestybox/sysbox-osal/domain"

// VxWorks through the XAPI portability interface.
const Current = domain.PlatformXapi

var defaultFeatures = domain.Features{
	DeviceAccess:   true,
	DeviceSelect:   true,
	Socket:         true,
	SocketShutdown: true,
	Misc:           true,
}
