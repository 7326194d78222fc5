//go:build !linux

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
	"github.com/nestybox/sysbox-osal/domain"
)

// Without a kernel device model every descriptor-based call is refused.
type deviceFileService struct{}

func newDeviceFileService() domain.IOServiceIface {
	return &deviceFileService{}
}

func (s *deviceFileService) Open(name string) (domain.Fd, error) {
	return domain.InvalidFd, domain.Unsupported("device-open")
}

func (s *deviceFileService) Close(fd domain.Fd) error {
	return domain.Unsupported("device-close")
}

func (s *deviceFileService) Read(fd domain.Fd, p []byte) (int, error) {
	return -1, domain.Unsupported("device-read")
}

func (s *deviceFileService) Write(fd domain.Fd, p []byte) (int, error) {
	return -1, domain.Unsupported("device-write")
}

func (s *deviceFileService) Ioctl(fd domain.Fd, cmd uint, arg uintptr) (int, error) {
	return -1, domain.Unsupported("device-ioctl")
}

func (s *deviceFileService) Select(
	maxFd domain.Fd,
	watch *domain.FdSet,
	ready *domain.FdSet,
	timeoutMs domain.Time) (int, error) {

	return -1, domain.Unsupported("device-select")
}

func (s *deviceFileService) GetServiceType() domain.IOServiceType {
	return domain.IODeviceFileService
}
