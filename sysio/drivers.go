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
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nestybox/sysbox-osal/domain"
)

// Echo driver control commands.
const (
	EchoIoctlPending uint = iota + 1 // number of queued messages
	EchoIoctlFlush                   // drop queued messages
)

// DefaultDrivers returns the drivers every dev_io service starts with.
func DefaultDrivers() []domain.DevDriverIface {
	return []domain.DevDriverIface{
		&EchoDriver{
			Name:    "echo",
			Path:    "/dev/echo",
			Enabled: true,
		},
		&NullDriver{
			Name:    "null",
			Path:    "/dev/null",
			Enabled: true,
		},
	}
}

//
// EchoDriver loops every written buffer back to the reader of the same
// descriptor, one message per write.
//
type EchoDriver struct {
	Name    string
	Path    string
	Enabled bool
}

func (d *EchoDriver) Open(n domain.DevNodeIface) error {
	logrus.Debugf("Executing %v Open() method on %v (fd %d)", d.Name, n.Name(), n.Fd())
	return nil
}

func (d *EchoDriver) Close(n domain.DevNodeIface) error {
	logrus.Debugf("Executing %v Close() method on %v (fd %d)", d.Name, n.Name(), n.Fd())
	return nil
}

func (d *EchoDriver) Read(n domain.DevNodeIface, p []byte) (int, error) {
	return n.Fetch(p), nil
}

func (d *EchoDriver) Write(n domain.DevNodeIface, p []byte) (int, error) {
	n.Post(p)
	return len(p), nil
}

func (d *EchoDriver) Ioctl(n domain.DevNodeIface, cmd uint, arg uintptr) (int, error) {

	switch cmd {
	case EchoIoctlPending:
		return n.Pending(), nil

	case EchoIoctlFlush:
		scratch := make([]byte, 0)
		for n.Pending() > 0 {
			n.Fetch(scratch)
		}
		return 0, nil
	}

	logrus.Debugf("%v: unknown ioctl command %#x", d.Name, cmd)

	return -1, errors.Errorf("%v: unknown ioctl command %#x", d.Name, cmd)
}

func (d *EchoDriver) GetName() string {
	return d.Name
}

func (d *EchoDriver) GetPath() string {
	return d.Path
}

func (d *EchoDriver) GetEnabled() bool {
	return d.Enabled
}

// NullDriver discards writes and never has data to read.
type NullDriver struct {
	Name    string
	Path    string
	Enabled bool
}

func (d *NullDriver) Open(n domain.DevNodeIface) error  { return nil }
func (d *NullDriver) Close(n domain.DevNodeIface) error { return nil }

func (d *NullDriver) Read(n domain.DevNodeIface, p []byte) (int, error) {
	return 0, nil
}

func (d *NullDriver) Write(n domain.DevNodeIface, p []byte) (int, error) {
	return len(p), nil
}

func (d *NullDriver) Ioctl(n domain.DevNodeIface, cmd uint, arg uintptr) (int, error) {
	return -1, errors.Errorf("%v: unknown ioctl command %#x", d.Name, cmd)
}

func (d *NullDriver) GetName() string {
	return d.Name
}

func (d *NullDriver) GetPath() string {
	return d.Path
}

func (d *NullDriver) GetEnabled() bool {
	return d.Enabled
}
