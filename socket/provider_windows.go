//go:build windows

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
	"unsafe"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"github.com/nestybox/sysbox-osal/domain"
)

var _ domain.SocketProviderIface = (*winsockProvider)(nil)

// Entry points x/sys/windows does not wrap.
var (
	modws2_32  = windows.NewLazySystemDLL("ws2_32.dll")
	procAccept = modws2_32.NewProc("accept")
	procSelect = modws2_32.NewProc("select")
	procSend   = modws2_32.NewProc("send")
	procRecv   = modws2_32.NewProc("recv")
)

const socketError = ^uintptr(0) // SOCKET_ERROR / INVALID_SOCKET

// Winsock fd_set layout.
const winFdSetSize = 64

type winFdSet struct {
	count uint32
	array [winFdSetSize]windows.Handle
}

type winsockProvider struct{}

func newDefaultProvider() domain.SocketProviderIface {
	return &winsockProvider{}
}

func (wp *winsockProvider) Init() error {
	var data windows.WSAData
	return windows.WSAStartup(uint32(0x0202), &data)
}

func (wp *winsockProvider) Cleanup() error {
	return windows.WSACleanup()
}

func (wp *winsockProvider) Socket(family domain.Family, t domain.SocketType) (domain.Fd, error) {
	af := windows.AF_INET
	if family == domain.FamilyInet6 {
		af = windows.AF_INET6
	}

	typ, proto := windows.SOCK_STREAM, windows.IPPROTO_TCP
	if t == domain.SocketDgram {
		typ, proto = windows.SOCK_DGRAM, windows.IPPROTO_UDP
	}

	h, err := windows.Socket(af, typ, proto)
	if err != nil {
		return domain.InvalidFd, err
	}
	selectable(domain.Fd(h))

	return domain.Fd(h), nil
}

// SOCKET values are kernel handles, not small indices. A handle beyond the
// FdSet range works for every call but Select, which cannot carry it.
func selectable(fd domain.Fd) bool {
	if fd >= domain.FdSetSize {
		logrus.Warnf("Socket handle %d beyond select range %d", fd, domain.FdSetSize)
		return false
	}

	return true
}

func (wp *winsockProvider) SetV6Only(fd domain.Fd) error {
	return windows.SetsockoptInt(windows.Handle(fd), windows.IPPROTO_IPV6, windows.IPV6_V6ONLY, 1)
}

func (wp *winsockProvider) Close(fd domain.Fd) error {
	return windows.Closesocket(windows.Handle(fd))
}

func (wp *winsockProvider) Shutdown(fd domain.Fd, how domain.ShutdownHow) error {
	var h int

	switch how {
	case domain.ShutdownRd:
		h = windows.SHUT_RD
	case domain.ShutdownWr:
		h = windows.SHUT_WR
	default:
		h = windows.SHUT_RDWR
	}

	return windows.Shutdown(windows.Handle(fd), h)
}

func toSockaddr4(addr domain.SockAddr) *windows.SockaddrInet4 {
	return &windows.SockaddrInet4{Port: int(addr.Port), Addr: addr.Addr}
}

func toSockaddr6(addr domain.SockAddr6) *windows.SockaddrInet6 {
	return &windows.SockaddrInet6{
		Port:   int(addr.Port),
		ZoneId: addr.ZoneId,
		Addr:   addr.Addr,
	}
}

func fromSockaddr4(sa windows.Sockaddr) domain.SockAddr {
	if sa4, ok := sa.(*windows.SockaddrInet4); ok {
		return domain.SockAddr{Addr: sa4.Addr, Port: uint16(sa4.Port)}
	}

	return domain.SockAddr{}
}

func fromSockaddr6(sa windows.Sockaddr) domain.SockAddr6 {
	if sa6, ok := sa.(*windows.SockaddrInet6); ok {
		return domain.SockAddr6{
			Addr:   sa6.Addr,
			Port:   uint16(sa6.Port),
			ZoneId: sa6.ZoneId,
		}
	}

	return domain.SockAddr6{}
}

func (wp *winsockProvider) Bind(fd domain.Fd, addr domain.SockAddr) error {
	return windows.Bind(windows.Handle(fd), toSockaddr4(addr))
}

func (wp *winsockProvider) Bind6(fd domain.Fd, addr domain.SockAddr6) error {
	return windows.Bind(windows.Handle(fd), toSockaddr6(addr))
}

func (wp *winsockProvider) Listen(fd domain.Fd, backlog int) error {
	return windows.Listen(windows.Handle(fd), backlog)
}

func (wp *winsockProvider) Accept(fd domain.Fd) (domain.Fd, domain.SockAddr, error) {
	var (
		rsa windows.RawSockaddrAny
		l   = int32(unsafe.Sizeof(rsa))
	)

	r1, _, e1 := procAccept.Call(
		uintptr(fd),
		uintptr(unsafe.Pointer(&rsa)),
		uintptr(unsafe.Pointer(&l)),
	)
	if r1 == socketError {
		return domain.InvalidFd, domain.SockAddr{}, e1
	}
	selectable(domain.Fd(r1))

	sa, err := rsa.Sockaddr()
	if err != nil {
		return domain.Fd(r1), domain.SockAddr{}, nil
	}

	return domain.Fd(r1), fromSockaddr4(sa), nil
}

func (wp *winsockProvider) Connect(fd domain.Fd, addr domain.SockAddr) error {
	return windows.Connect(windows.Handle(fd), toSockaddr4(addr))
}

func (wp *winsockProvider) SockName(fd domain.Fd) (domain.SockAddr, error) {
	sa, err := windows.Getsockname(windows.Handle(fd))
	if err != nil {
		return domain.SockAddr{}, err
	}

	return fromSockaddr4(sa), nil
}

func xfer(proc *windows.LazyProc, fd domain.Fd, buf []byte) (int, error) {
	r1, _, e1 := proc.Call(
		uintptr(fd),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
		0,
	)
	if int32(r1) == -1 {
		return domain.CountError, e1
	}

	return int(int32(r1)), nil
}

func (wp *winsockProvider) Send(fd domain.Fd, buf []byte) (int, error) {
	return xfer(procSend, fd, buf)
}

func (wp *winsockProvider) Recv(fd domain.Fd, buf []byte) (int, error) {
	return xfer(procRecv, fd, buf)
}

// Winsock sendto transmits the whole datagram or fails.
func (wp *winsockProvider) SendTo(fd domain.Fd, buf []byte, addr domain.SockAddr) (int, error) {
	if err := windows.Sendto(windows.Handle(fd), buf, 0, toSockaddr4(addr)); err != nil {
		return domain.CountError, err
	}

	return len(buf), nil
}

func (wp *winsockProvider) RecvFrom(fd domain.Fd, buf []byte) (int, domain.SockAddr, error) {
	n, sa, err := windows.Recvfrom(windows.Handle(fd), buf, 0)
	if err != nil {
		return domain.CountError, domain.SockAddr{}, err
	}

	return n, fromSockaddr4(sa), nil
}

func (wp *winsockProvider) SendTo6(fd domain.Fd, buf []byte, addr domain.SockAddr6) (int, error) {
	if err := windows.Sendto(windows.Handle(fd), buf, 0, toSockaddr6(addr)); err != nil {
		return domain.CountError, err
	}

	return len(buf), nil
}

func (wp *winsockProvider) RecvFrom6(fd domain.Fd, buf []byte) (int, domain.SockAddr6, error) {
	n, sa, err := windows.Recvfrom(windows.Handle(fd), buf, 0)
	if err != nil {
		return domain.CountError, domain.SockAddr6{}, err
	}

	return n, fromSockaddr6(sa), nil
}

// Winsock sets are socket lists rather than bitmaps; at most winFdSetSize
// sockets per set are handed over.
func toWinFdSet(s *domain.FdSet, maxFd domain.Fd) *winFdSet {
	if s == nil {
		return nil
	}

	w := &winFdSet{}
	for _, fd := range s.Fds(maxFd) {
		if w.count == winFdSetSize {
			break
		}
		w.array[w.count] = windows.Handle(fd)
		w.count++
	}

	return w
}

func fromWinFdSet(w *winFdSet, s *domain.FdSet) {
	if w == nil || s == nil {
		return
	}

	s.Zero()
	for i := uint32(0); i < w.count; i++ {
		s.Set(domain.Fd(w.array[i]))
	}
}

func (wp *winsockProvider) Select(
	maxFd domain.Fd,
	read, write, except *domain.FdSet,
	timeout *domain.Timeval) (int, error) {

	var tv *windows.Timeval
	if timeout != nil {
		tv = &windows.Timeval{
			Sec:  int32(timeout.Sec),
			Usec: int32(timeout.Usec),
		}
	}

	r := toWinFdSet(read, maxFd)
	w := toWinFdSet(write, maxFd)
	e := toWinFdSet(except, maxFd)

	r1, _, e1 := procSelect.Call(
		0, // ignored by winsock
		uintptr(unsafe.Pointer(r)),
		uintptr(unsafe.Pointer(w)),
		uintptr(unsafe.Pointer(e)),
		uintptr(unsafe.Pointer(tv)),
	)
	if int32(r1) == -1 {
		return domain.CountError, e1
	}

	fromWinFdSet(r, read)
	fromWinFdSet(w, write)
	fromWinFdSet(e, except)

	return int(int32(r1)), nil
}
