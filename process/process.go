//go:build linux

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

package process

import (
	"os"
	"sync"
	"syscall"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/nestybox/sysbox-osal/domain"
)

var _ domain.CopyProviderIface = (*Process)(nil)

//
// Process is the peer whose address space user buffers belong to. Copies
// "from user" read the peer's memory at the address of the user buffer;
// copies "to user" write it.
//
type Process struct {
	pid uint32
}

func NewProcess(pid uint32) *Process {
	return &Process{pid: pid}
}

// Self returns the calling process, the usual peer when user and driver
// space share one address space.
func Self() *Process {
	return &Process{pid: uint32(os.Getpid())}
}

func (p *Process) Pid() uint32 {
	return p.pid
}

var (
	probeOnce sync.Once
	supported bool
)

// Supported reports whether the kernel provides cross memory attach.
func Supported() bool {
	probeOnce.Do(func() {
		_, err := unix.ProcessVMReadv(1, nil, nil, 0)
		supported = err != syscall.ENOSYS
		if !supported {
			logrus.Info("process_vm_readv() not available")
		}
	})

	return supported
}

func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}

// CopyFromUser fills 'to' with the peer's bytes found at the address of
// 'from'.
func (p *Process) CopyFromUser(to, from []byte) (int, error) {
	if len(to) == 0 || len(from) == 0 {
		return 0, nil
	}

	size := len(to)
	if len(from) < size {
		size = len(from)
	}

	return p.ReadMem(to[:size], addrOf(from))
}

// CopyToUser stores 'from' in the peer at the address of 'to'.
func (p *Process) CopyToUser(to, from []byte) (int, error) {
	if len(to) == 0 || len(from) == 0 {
		return 0, nil
	}

	size := len(to)
	if len(from) < size {
		size = len(from)
	}

	return p.WriteMem(addrOf(to), from[:size])
}

// ReadMem reads len(local) bytes at 'remote' in the peer's address space.
func (p *Process) ReadMem(local []byte, remote uintptr) (int, error) {

	size := len(local)
	if size == 0 {
		return 0, nil
	}

	localIov := []unix.Iovec{{Base: &local[0]}}
	localIov[0].SetLen(size)

	remoteIov := []unix.RemoteIovec{
		{
			Base: remote,
			Len:  size,
		},
	}

	// Read from the peer's memory
	n, err := unix.ProcessVMReadv(int(p.pid), localIov, remoteIov, 0)

	if err != nil {
		return n, errors.Errorf("failed to read from mem of pid %d: %s", p.pid, err)
	} else if n != size {
		return n, errors.Errorf("failed to read %d bytes from mem of pid %d: read %d bytes only",
			size, p.pid, n)
	}

	return n, nil
}

// WriteMem writes 'data' at 'remote' in the peer's address space.
func (p *Process) WriteMem(remote uintptr, data []byte) (int, error) {

	size := len(data)
	if size == 0 {
		return 0, nil
	}

	localIov := []unix.Iovec{{Base: &data[0]}}
	localIov[0].SetLen(size)

	remoteIov := []unix.RemoteIovec{
		{
			Base: remote,
			Len:  size,
		},
	}

	// Write to the peer's memory
	n, err := unix.ProcessVMWritev(int(p.pid), localIov, remoteIov, 0)

	if err != nil {
		return n, errors.Errorf("failed to write to mem of pid %d: %s", p.pid, err)
	} else if n != size {
		return n, errors.Errorf("failed to write %d bytes to mem of pid %d: wrote %d bytes only",
			size, p.pid, n)
	}

	return n, nil
}
