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

package sysio

import (
	"golang.org/x/sys/unix"

	"github.com/nestybox/sysbox-osal/domain"
)

var _ domain.IOServiceIface = (*deviceFileService)(nil)

//
// I/O Service providing access to kernel device nodes.
//
type deviceFileService struct{}

func newDeviceFileService() domain.IOServiceIface {
	return &deviceFileService{}
}

func (s *deviceFileService) Open(name string) (domain.Fd, error) {

	fd, err := unix.Open(name, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return domain.InvalidFd, err
	}

	return domain.Fd(fd), nil
}

func (s *deviceFileService) Close(fd domain.Fd) error {
	return unix.Close(int(fd))
}

func (s *deviceFileService) Read(fd domain.Fd, p []byte) (int, error) {
	return unix.Read(int(fd), p)
}

func (s *deviceFileService) Write(fd domain.Fd, p []byte) (int, error) {
	return unix.Write(int(fd), p)
}

// Ioctl hands 'arg' to the driver untouched; its meaning depends on 'cmd'.
func (s *deviceFileService) Ioctl(fd domain.Fd, cmd uint, arg uintptr) (int, error) {

	r1, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(cmd), arg)
	if errno != 0 {
		return -1, errno
	}

	return int(r1), nil
}

func (s *deviceFileService) Select(
	maxFd domain.Fd,
	watch *domain.FdSet,
	ready *domain.FdSet,
	timeoutMs domain.Time) (int, error) {

	var set unix.FdSet
	for _, fd := range watch.Fds(maxFd) {
		set.Set(int(fd))
	}

	tv := unix.NsecToTimeval(int64(timeoutMs) * 1000 * 1000)

	n, err := unix.Select(int(maxFd), &set, nil, nil, &tv)
	if err != nil {
		return -1, err
	}

	ready.Zero()
	for fd := domain.Fd(0); fd < maxFd; fd++ {
		if set.IsSet(int(fd)) {
			ready.Set(fd)
		}
	}

	return n, nil
}

func (s *deviceFileService) GetServiceType() domain.IOServiceType {
	return domain.IODeviceFileService
}
