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

package device

import (
	"github.com/sirupsen/logrus"

	"github.com/nestybox/sysbox-osal/domain"
	"github.com/nestybox/sysbox-osal/platform"
	"github.com/nestybox/sysbox-osal/sysio"
	"github.com/nestybox/sysbox-osal/timer"
)

var _ domain.DeviceServiceIface = (*deviceService)(nil)

type deviceService struct {
	ios      domain.IOServiceIface
	ts       domain.TimeServiceIface
	features domain.Features
}

// NewDeviceService binds the device backend native to the build platform.
func NewDeviceService() domain.DeviceServiceIface {
	return NewDeviceServiceWithIO(
		sysio.NewIOService(defaultIOServiceType),
		timer.NewTimeService(),
		platform.Features())
}

func NewDeviceServiceWithIO(
	ios domain.IOServiceIface,
	ts domain.TimeServiceIface,
	f domain.Features) domain.DeviceServiceIface {

	return &deviceService{
		ios:      ios,
		ts:       ts,
		features: f,
	}
}

func (ds *deviceService) checkFd(op string, fd domain.Fd) error {
	if !ds.features.DeviceAccess {
		logrus.Debugf("%s: device access not built in", op)
		return domain.Unsupported(op)
	}
	if !fd.Valid() {
		logrus.Debugf("%s: invalid descriptor %d", op, fd)
		return domain.Failure(op, nil)
	}

	return nil
}

func (ds *deviceService) Open(name string) (domain.Fd, error) {
	if !ds.features.DeviceAccess {
		return domain.InvalidFd, domain.Unsupported("device-open")
	}
	if name == "" {
		logrus.Debug("device-open: empty device name")
		return domain.InvalidFd, domain.Failure("device-open", nil)
	}

	fd, err := ds.ios.Open(name)
	if err != nil {
		logrus.Errorf("Could not open device %v: %v", name, err)
		return domain.InvalidFd, domain.Failure("device-open", err)
	}

	return fd, nil
}

func (ds *deviceService) Close(fd domain.Fd) error {
	if err := ds.checkFd("device-close", fd); err != nil {
		return err
	}

	if err := ds.ios.Close(fd); err != nil {
		logrus.Errorf("Could not close device fd %d: %v", fd, err)
		return domain.Failure("device-close", err)
	}

	return nil
}

func (ds *deviceService) Write(fd domain.Fd, data []byte) (int, error) {
	if err := ds.checkFd("device-write", fd); err != nil {
		return domain.CountError, err
	}
	if data == nil {
		return domain.CountError, domain.Failure("device-write", nil)
	}

	n, err := ds.ios.Write(fd, data)
	if err != nil {
		logrus.Errorf("Write to device fd %d failed: %v", fd, err)
		return domain.CountError, domain.Failure("device-write", err)
	}

	return n, nil
}

func (ds *deviceService) Read(fd domain.Fd, buf []byte) (int, error) {
	if err := ds.checkFd("device-read", fd); err != nil {
		return domain.CountError, err
	}
	if buf == nil {
		return domain.CountError, domain.Failure("device-read", nil)
	}

	n, err := ds.ios.Read(fd, buf)
	if err != nil {
		logrus.Errorf("Read from device fd %d failed: %v", fd, err)
		return domain.CountError, domain.Failure("device-read", err)
	}

	return n, nil
}

// Control issues a driver specific command; the result is the driver's.
func (ds *deviceService) Control(fd domain.Fd, cmd uint, arg uintptr) (int, error) {
	if err := ds.checkFd("device-control", fd); err != nil {
		return domain.CountError, err
	}

	n, err := ds.ios.Ioctl(fd, cmd, arg)
	if err != nil {
		logrus.Errorf("Control %#x on device fd %d failed: %v", cmd, fd, err)
		return domain.CountError, domain.Failure("device-control", err)
	}

	return n, nil
}

//
// Select waits up to timeoutMs for input on the descriptors of readIn below
// maxFd. Without a read set it is a plain sleep returning 0. readOut, when
// given, receives the ready descriptors.
//
func (ds *deviceService) Select(
	maxFd domain.Fd,
	readIn *domain.FdSet,
	readOut *domain.FdSet,
	timeoutMs domain.Time) (int, error) {

	if !ds.features.DeviceAccess || !ds.features.DeviceSelect {
		logrus.Debug("device-select: device select not built in")
		return domain.CountError, domain.Unsupported("device-select")
	}

	if readIn == nil {
		ds.ts.SleepMilliseconds(timeoutMs)
		return 0, nil
	}

	if maxFd < 0 || maxFd > domain.FdSetSize {
		logrus.Debugf("device-select: descriptor bound %d out of range", maxFd)
		return domain.CountError, domain.Failure("device-select", nil)
	}

	out := readOut
	if out == nil {
		out = &domain.FdSet{}
	}
	*out = *readIn

	n, err := ds.ios.Select(maxFd, readIn, out, timeoutMs)
	if err != nil {
		logrus.Errorf("Device select failed: %v", err)
		return domain.CountError, domain.Failure("device-select", err)
	}

	return n, nil
}

func (ds *deviceService) FdSet(fd domain.Fd, set *domain.FdSet) {
	if !fd.Valid() {
		return
	}
	set.Set(fd)
}

func (ds *deviceService) FdIsSet(fd domain.Fd, set *domain.FdSet) bool {
	if !fd.Valid() {
		return false
	}
	return set.IsSet(fd)
}

func (ds *deviceService) FdZero(set *domain.FdSet) {
	set.Zero()
}
