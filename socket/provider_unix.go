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

package socket

import (
	"golang.org/x/sys/unix"

	"github.com/nestybox/sysbox-osal/domain"
)

var _ domain.SocketProviderIface = (*unixProvider)(nil)

// BSD sockets backend. The rtos flavors built on a linux host reach the
// host stack through it as well.
type unixProvider struct{}

func newDefaultProvider() domain.SocketProviderIface {
	return &unixProvider{}
}

func (up *unixProvider) Init() error    { return nil }
func (up *unixProvider) Cleanup() error { return nil }

func (up *unixProvider) Socket(family domain.Family, t domain.SocketType) (domain.Fd, error) {
	af := unix.AF_INET
	if family == domain.FamilyInet6 {
		af = unix.AF_INET6
	}

	typ, proto := unix.SOCK_STREAM, unix.IPPROTO_TCP
	if t == domain.SocketDgram {
		typ, proto = unix.SOCK_DGRAM, unix.IPPROTO_UDP
	}

	fd, err := unix.Socket(af, typ|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		return domain.InvalidFd, err
	}

	return domain.Fd(fd), nil
}

func (up *unixProvider) SetV6Only(fd domain.Fd) error {
	return unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 1)
}

func (up *unixProvider) Close(fd domain.Fd) error {
	return unix.Close(int(fd))
}

func (up *unixProvider) Shutdown(fd domain.Fd, how domain.ShutdownHow) error {
	var h int

	switch how {
	case domain.ShutdownRd:
		h = unix.SHUT_RD
	case domain.ShutdownWr:
		h = unix.SHUT_WR
	default:
		h = unix.SHUT_RDWR
	}

	return unix.Shutdown(int(fd), h)
}

func toSockaddr4(addr domain.SockAddr) *unix.SockaddrInet4 {
	return &unix.SockaddrInet4{Port: int(addr.Port), Addr: addr.Addr}
}

func toSockaddr6(addr domain.SockAddr6) *unix.SockaddrInet6 {
	return &unix.SockaddrInet6{
		Port:   int(addr.Port),
		ZoneId: addr.ZoneId,
		Addr:   addr.Addr,
	}
}

func fromSockaddr4(sa unix.Sockaddr) domain.SockAddr {
	if sa4, ok := sa.(*unix.SockaddrInet4); ok {
		return domain.SockAddr{Addr: sa4.Addr, Port: uint16(sa4.Port)}
	}

	return domain.SockAddr{}
}

func fromSockaddr6(sa unix.Sockaddr) domain.SockAddr6 {
	if sa6, ok := sa.(*unix.SockaddrInet6); ok {
		return domain.SockAddr6{
			Addr:   sa6.Addr,
			Port:   uint16(sa6.Port),
			ZoneId: sa6.ZoneId,
		}
	}

	return domain.SockAddr6{}
}

func (up *unixProvider) Bind(fd domain.Fd, addr domain.SockAddr) error {
	return unix.Bind(int(fd), toSockaddr4(addr))
}

func (up *unixProvider) Bind6(fd domain.Fd, addr domain.SockAddr6) error {
	return unix.Bind(int(fd), toSockaddr6(addr))
}

func (up *unixProvider) Listen(fd domain.Fd, backlog int) error {
	return unix.Listen(int(fd), backlog)
}

func (up *unixProvider) Accept(fd domain.Fd) (domain.Fd, domain.SockAddr, error) {
	nfd, sa, err := unix.Accept4(int(fd), unix.SOCK_CLOEXEC)
	if err != nil {
		return domain.InvalidFd, domain.SockAddr{}, err
	}

	return domain.Fd(nfd), fromSockaddr4(sa), nil
}

func (up *unixProvider) Connect(fd domain.Fd, addr domain.SockAddr) error {
	return unix.Connect(int(fd), toSockaddr4(addr))
}

func (up *unixProvider) SockName(fd domain.Fd) (domain.SockAddr, error) {
	sa, err := unix.Getsockname(int(fd))
	if err != nil {
		return domain.SockAddr{}, err
	}

	return fromSockaddr4(sa), nil
}

func (up *unixProvider) Send(fd domain.Fd, buf []byte) (int, error) {
	return unix.SendmsgN(int(fd), buf, nil, nil, 0)
}

func (up *unixProvider) Recv(fd domain.Fd, buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(int(fd), buf, 0)
	return n, err
}

func (up *unixProvider) SendTo(fd domain.Fd, buf []byte, addr domain.SockAddr) (int, error) {
	return unix.SendmsgN(int(fd), buf, nil, toSockaddr4(addr), 0)
}

func (up *unixProvider) RecvFrom(fd domain.Fd, buf []byte) (int, domain.SockAddr, error) {
	n, sa, err := unix.Recvfrom(int(fd), buf, 0)
	if err != nil {
		return n, domain.SockAddr{}, err
	}

	return n, fromSockaddr4(sa), nil
}

func (up *unixProvider) SendTo6(fd domain.Fd, buf []byte, addr domain.SockAddr6) (int, error) {
	return unix.SendmsgN(int(fd), buf, nil, toSockaddr6(addr), 0)
}

func (up *unixProvider) RecvFrom6(fd domain.Fd, buf []byte) (int, domain.SockAddr6, error) {
	n, sa, err := unix.Recvfrom(int(fd), buf, 0)
	if err != nil {
		return n, domain.SockAddr6{}, err
	}

	return n, fromSockaddr6(sa), nil
}

func toUnixFdSet(s *domain.FdSet, maxFd domain.Fd) *unix.FdSet {
	if s == nil {
		return nil
	}

	u := &unix.FdSet{}
	for _, fd := range s.Fds(maxFd) {
		u.Set(int(fd))
	}

	return u
}

func fromUnixFdSet(u *unix.FdSet, s *domain.FdSet, maxFd domain.Fd) {
	if u == nil || s == nil {
		return
	}

	s.Zero()
	for fd := domain.Fd(0); fd < maxFd; fd++ {
		if u.IsSet(int(fd)) {
			s.Set(fd)
		}
	}
}

func (up *unixProvider) Select(
	maxFd domain.Fd,
	read, write, except *domain.FdSet,
	timeout *domain.Timeval) (int, error) {

	var tv *unix.Timeval
	if timeout != nil {
		t := unix.NsecToTimeval(timeout.Sec*1e9 + timeout.Usec*1e3)
		tv = &t
	}

	r := toUnixFdSet(read, maxFd)
	w := toUnixFdSet(write, maxFd)
	e := toUnixFdSet(except, maxFd)

	n, err := unix.Select(int(maxFd), r, w, e, tv)
	if err != nil {
		return n, err
	}

	fromUnixFdSet(r, read, maxFd)
	fromUnixFdSet(w, write, maxFd)
	fromUnixFdSet(e, except, maxFd)

	return n, nil
}
