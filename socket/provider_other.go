//go:build !linux && !windows

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

package socket

import (
	"github.com/nestybox/sysbox-osal/domain"
)

// Hosts without a supported socket interface.
type otherProvider struct{}

func newDefaultProvider() domain.SocketProviderIface {
	return &otherProvider{}
}

var errNoSockets = domain.Unsupported("sockets on this host")

func (op *otherProvider) Init() error    { return errNoSockets }
func (op *otherProvider) Cleanup() error { return errNoSockets }

func (op *otherProvider) Socket(domain.Family, domain.SocketType) (domain.Fd, error) {
	return domain.InvalidFd, errNoSockets
}

func (op *otherProvider) SetV6Only(domain.Fd) error                    { return errNoSockets }
func (op *otherProvider) Close(domain.Fd) error                        { return errNoSockets }
func (op *otherProvider) Shutdown(domain.Fd, domain.ShutdownHow) error { return errNoSockets }
func (op *otherProvider) Bind(domain.Fd, domain.SockAddr) error        { return errNoSockets }
func (op *otherProvider) Bind6(domain.Fd, domain.SockAddr6) error      { return errNoSockets }
func (op *otherProvider) Listen(domain.Fd, int) error                  { return errNoSockets }
func (op *otherProvider) Connect(domain.Fd, domain.SockAddr) error     { return errNoSockets }

func (op *otherProvider) Accept(domain.Fd) (domain.Fd, domain.SockAddr, error) {
	return domain.InvalidFd, domain.SockAddr{}, errNoSockets
}

func (op *otherProvider) SockName(domain.Fd) (domain.SockAddr, error) {
	return domain.SockAddr{}, errNoSockets
}

func (op *otherProvider) Send(domain.Fd, []byte) (int, error) {
	return domain.CountError, errNoSockets
}

func (op *otherProvider) Recv(domain.Fd, []byte) (int, error) {
	return domain.CountError, errNoSockets
}

func (op *otherProvider) SendTo(domain.Fd, []byte, domain.SockAddr) (int, error) {
	return domain.CountError, errNoSockets
}

func (op *otherProvider) RecvFrom(domain.Fd, []byte) (int, domain.SockAddr, error) {
	return domain.CountError, domain.SockAddr{}, errNoSockets
}

func (op *otherProvider) SendTo6(domain.Fd, []byte, domain.SockAddr6) (int, error) {
	return domain.CountError, errNoSockets
}

func (op *otherProvider) RecvFrom6(domain.Fd, []byte) (int, domain.SockAddr6, error) {
	return domain.CountError, domain.SockAddr6{}, errNoSockets
}

func (op *otherProvider) Select(domain.Fd, *domain.FdSet, *domain.FdSet, *domain.FdSet, *domain.Timeval) (int, error) {
	return domain.CountError, errNoSockets
}
