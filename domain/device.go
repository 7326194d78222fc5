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

//
// DeviceServiceIface is the device I/O capability facade. Descriptors are
// validated (non-negative) and buffers checked (non-nil) before anything is
// forwarded to the backend.
//
type DeviceServiceIface interface {
	Open(name string) (Fd, error)
	Close(fd Fd) error
	Write(fd Fd, data []byte) (int, error)
	Read(fd Fd, buf []byte) (int, error)
	Control(fd Fd, cmd uint, arg uintptr) (int, error)
	Select(maxFd Fd, readIn *FdSet, readOut *FdSet, timeoutMs Time) (int, error)

	FdSet(fd Fd, set *FdSet)
	FdIsSet(fd Fd, set *FdSet) bool
	FdZero(set *FdSet)
}

//
// IOServiceType identifies the device backend flavor.
//
// 1. IODeviceFileService: real device nodes accessed through the kernel.
//
// 2. IOMemDeviceService: in-process device emulation (DEV_IO) where drivers
//    register themselves and device nodes live in a private filesystem.
//
type IOServiceType = int

const (
	Unknown             IOServiceType = iota
	IODeviceFileService               // production, kernel device nodes
	IOMemDeviceService                // dev_io emulation
)

// IOServiceIface is the device backend.
type IOServiceIface interface {
	Open(name string) (Fd, error)
	Close(fd Fd) error
	Read(fd Fd, p []byte) (int, error)
	Write(fd Fd, p []byte) (int, error)
	Ioctl(fd Fd, cmd uint, arg uintptr) (int, error)
	// Select narrows 'ready' (initialized by the caller as a copy of 'watch')
	// to the descriptors with pending input, waiting at most timeoutMs.
	Select(maxFd Fd, watch *FdSet, ready *FdSet, timeoutMs Time) (int, error)
	GetServiceType() IOServiceType
}

//
// DevDriverIface is implemented by drivers plugged into the dev_io emulation.
// The driver sees a per-open context through the DevNodeIface handed to each
// callback.
//
type DevDriverIface interface {
	GetName() string
	GetPath() string
	GetEnabled() bool
	Open(n DevNodeIface) error
	Close(n DevNodeIface) error
	Read(n DevNodeIface, p []byte) (int, error)
	Write(n DevNodeIface, p []byte) (int, error)
	Ioctl(n DevNodeIface, cmd uint, arg uintptr) (int, error)
}

// DevNodeIface is an open dev_io device as seen by its driver.
type DevNodeIface interface {
	Fd() Fd
	Name() string
	// Post queues a message for the application side; it makes the
	// descriptor readable.
	Post(msg []byte)
	// Fetch dequeues the oldest pending message into p and returns the
	// number of bytes copied, 0 when nothing is pending. Message bytes not
	// fitting in p are dropped.
	Fetch(p []byte) int
	Pending() int
}
