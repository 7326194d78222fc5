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

// MemMapServiceIface maps physical address ranges into the caller's address
// space.
type MemMapServiceIface interface {
	MapPhysicalToVirtual(phys uintptr, size int, name string, virt *uintptr) error
	// UnmapPhysicalToVirtual never fails and may be called any number of
	// times, whether or not a mapping was established.
	UnmapPhysicalToVirtual(phys *uintptr, size int, virt *uintptr) error
}

// MemMapProviderIface is the platform mapping backend. Arguments reaching it
// have been validated already.
type MemMapProviderIface interface {
	Map(phys uintptr, size int, name string) (uintptr, error)
	Unmap(virt uintptr, size int)
}

// CopyServiceIface moves data across the user / driver space boundary. A nil
// result means failure; otherwise the destination buffer (trimmed to 'size')
// is returned.
type CopyServiceIface interface {
	CopyFromUserSpace(to, from []byte, size int) []byte
	CopyToUserSpace(to, from []byte, size int) []byte
}

// CopyProviderIface performs the raw copy and reports how many bytes were
// actually transferred.
type CopyProviderIface interface {
	CopyFromUser(to, from []byte) (int, error)
	CopyToUser(to, from []byte) (int, error)
}
