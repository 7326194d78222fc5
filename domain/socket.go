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

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

type SocketType int

const (
	SocketStream SocketType = iota // tcp
	SocketDgram                    // udp
)

func (t SocketType) String() string {
	switch t {
	case SocketStream:
		return "stream"
	case SocketDgram:
		return "dgram"
	}
	return fmt.Sprintf("socktype(%d)", int(t))
}

type Family int

const (
	FamilyInet Family = iota
	FamilyInet6
)

type ShutdownHow int

const (
	ShutdownRd ShutdownHow = iota
	ShutdownWr
	ShutdownRdWr
)

// Select timeout modes, in milliseconds.
const (
	WaitForever = -1
	NoWait      = 0
)

// Timeval is the seconds + microseconds split handed to select backends.
type Timeval struct {
	Sec  int64
	Usec int64
}

// SockAddr is an IPv4 socket address.
type SockAddr struct {
	Addr [4]byte
	Port uint16
}

// SockAddr6 is an IPv6 socket address.
type SockAddr6 struct {
	Addr   [16]byte
	Port   uint16
	ZoneId uint32
}

// SockAddrFrom converts an IPv4 (or v4-mapped IPv6) address; ok is false
// for anything else.
func SockAddrFrom(ap netip.AddrPort) (sa SockAddr, ok bool) {
	addr := ap.Addr().Unmap()
	if !addr.Is4() {
		return SockAddr{}, false
	}

	return SockAddr{Addr: addr.As4(), Port: ap.Port()}, true
}

func (sa SockAddr) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), sa.Port)
}

func (sa SockAddr) String() string {
	return sa.AddrPort().String()
}

// SockAddr6From converts an IPv6 address; IPv4 addresses come out
// v4-mapped. The zone, numeric or an interface name, becomes the scope id.
// ok is false for an invalid address or an unknown interface.
func SockAddr6From(ap netip.AddrPort) (sa SockAddr6, ok bool) {
	addr := ap.Addr()
	if !addr.IsValid() {
		return SockAddr6{}, false
	}

	zone, ok := zoneId(addr.Zone())
	if !ok {
		return SockAddr6{}, false
	}

	return SockAddr6{Addr: addr.As16(), Port: ap.Port(), ZoneId: zone}, true
}

func zoneId(zone string) (uint32, bool) {
	if zone == "" {
		return 0, true
	}
	if id, err := strconv.ParseUint(zone, 10, 32); err == nil {
		return uint32(id), true
	}

	ifi, err := net.InterfaceByName(zone)
	if err != nil {
		return 0, false
	}

	return uint32(ifi.Index), true
}

// The scope id is rendered as a numeric zone.
func (sa SockAddr6) AddrPort() netip.AddrPort {
	addr := netip.AddrFrom16(sa.Addr)
	if sa.ZoneId != 0 {
		addr = addr.WithZone(strconv.FormatUint(uint64(sa.ZoneId), 10))
	}

	return netip.AddrPortFrom(addr, sa.Port)
}

func (sa SockAddr6) String() string {
	return sa.AddrPort().String()
}

//
// SocketServiceIface is the socket capability facade. Success/failure calls
// return nil or an ErrFailure-matching error; byte-count calls return the
// transferred count, or CountError together with the error.
//
type SocketServiceIface interface {
	Init() error
	Cleanup() error
	Create(t SocketType) (Fd, error)
	Close(fd Fd) error
	Shutdown(fd Fd, how ShutdownHow) error
	Bind(fd Fd, addr *SockAddr) error
	Listen(fd Fd, backlog int) error
	Accept(fd Fd, addr *SockAddr) (Fd, error)
	Connect(fd Fd, addr *SockAddr) error
	LocalAddr(fd Fd, addr *SockAddr) error
	Send(fd Fd, buf []byte) (int, error)
	Recv(fd Fd, buf []byte) (int, error)
	SendTo(fd Fd, buf []byte, addr *SockAddr) (int, error)
	RecvFrom(fd Fd, buf []byte, addr *SockAddr) (int, error)
	Select(maxFd Fd, read, write, except *FdSet, timeoutMs int) int
	Ntoa(addr *SockAddr) string
	Aton(s string, addr *SockAddr) error

	CreateIpV6(t SocketType) (Fd, error)
	BindIpV6(fd Fd, addr *SockAddr6) error
	SendToIpV6(fd Fd, buf []byte, addr *SockAddr6) (int, error)
	RecvFromIpV6(fd Fd, buf []byte, addr *SockAddr6) (int, error)

	FdSet(fd Fd, set *FdSet)
	FdClr(fd Fd, set *FdSet)
	FdIsSet(fd Fd, set *FdSet) bool
	FdZero(set *FdSet)
}

// SocketProviderIface is the platform socket backend.
type SocketProviderIface interface {
	Init() error
	Cleanup() error
	Socket(family Family, t SocketType) (Fd, error)
	SetV6Only(fd Fd) error
	Close(fd Fd) error
	Shutdown(fd Fd, how ShutdownHow) error
	Bind(fd Fd, addr SockAddr) error
	Bind6(fd Fd, addr SockAddr6) error
	Listen(fd Fd, backlog int) error
	Accept(fd Fd) (Fd, SockAddr, error)
	Connect(fd Fd, addr SockAddr) error
	SockName(fd Fd) (SockAddr, error)
	Send(fd Fd, buf []byte) (int, error)
	Recv(fd Fd, buf []byte) (int, error)
	SendTo(fd Fd, buf []byte, addr SockAddr) (int, error)
	RecvFrom(fd Fd, buf []byte) (int, SockAddr, error)
	SendTo6(fd Fd, buf []byte, addr SockAddr6) (int, error)
	RecvFrom6(fd Fd, buf []byte) (int, SockAddr6, error)
	// Select waits on the given sets; a nil timeout waits forever. Sets are
	// narrowed in place to the ready descriptors.
	Select(maxFd Fd, read, write, except *FdSet, timeout *Timeval) (int, error)
}
