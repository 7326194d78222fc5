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
	"net/netip"

	"github.com/sirupsen/logrus"

	"github.com/nestybox/sysbox-osal/domain"
	"github.com/nestybox/sysbox-osal/platform"
)

var _ domain.SocketServiceIface = (*socketService)(nil)

//
// Socket capability facade. Arguments are checked here, so providers only
// ever see valid descriptors, non-empty buffers and non-nil addresses.
//
type socketService struct {
	sp       domain.SocketProviderIface
	features domain.Features
}

func NewSocketService() domain.SocketServiceIface {
	return NewSocketServiceWithProvider(newDefaultProvider(), platform.Features())
}

func NewSocketServiceWithProvider(
	sp domain.SocketProviderIface,
	f domain.Features) domain.SocketServiceIface {

	return &socketService{
		sp:       sp,
		features: f,
	}
}

func (ss *socketService) checkEnabled(op string) error {
	if !ss.features.Socket {
		logrus.Debugf("%s: socket support not built in", op)
		return domain.Unsupported(op)
	}

	return nil
}

func (ss *socketService) checkIPv6(op string) error {
	if err := ss.checkEnabled(op); err != nil {
		return err
	}
	if !ss.features.IPv6 {
		logrus.Debugf("%s: ipv6 support not built in", op)
		return domain.Unsupported(op)
	}

	return nil
}

func (ss *socketService) checkFd(op string, fd domain.Fd) error {
	if err := ss.checkEnabled(op); err != nil {
		return err
	}
	if !fd.Valid() {
		logrus.Debugf("%s: invalid descriptor %d", op, fd)
		return domain.Failure(op, nil)
	}

	return nil
}

// Checks shared by all byte-count calls.
func (ss *socketService) checkXfer(op string, fd domain.Fd, buf []byte) error {
	if err := ss.checkFd(op, fd); err != nil {
		return err
	}
	if len(buf) == 0 {
		logrus.Debugf("%s: empty buffer on descriptor %d", op, fd)
		return domain.Failure(op, nil)
	}

	return nil
}

func validType(t domain.SocketType) bool {
	return t == domain.SocketStream || t == domain.SocketDgram
}

func (ss *socketService) Init() error {
	if err := ss.checkEnabled("socket-init"); err != nil {
		return err
	}

	if err := ss.sp.Init(); err != nil {
		logrus.Errorf("Socket layer initialization failed: %v", err)
		return domain.Failure("socket-init", err)
	}

	return nil
}

func (ss *socketService) Cleanup() error {
	if err := ss.checkEnabled("socket-cleanup"); err != nil {
		return err
	}

	if err := ss.sp.Cleanup(); err != nil {
		logrus.Errorf("Socket layer cleanup failed: %v", err)
		return domain.Failure("socket-cleanup", err)
	}

	return nil
}

func (ss *socketService) create(op string, fam domain.Family, t domain.SocketType) (domain.Fd, error) {
	if !validType(t) {
		logrus.Debugf("%s: unsupported socket type %v", op, t)
		return domain.InvalidFd, domain.Failure(op, nil)
	}

	fd, err := ss.sp.Socket(fam, t)
	if err != nil {
		logrus.Errorf("Could not create %v socket: %v", t, err)
		return domain.InvalidFd, domain.Failure(op, err)
	}

	return fd, nil
}

func (ss *socketService) Create(t domain.SocketType) (domain.Fd, error) {
	if err := ss.checkEnabled("socket-create"); err != nil {
		return domain.InvalidFd, err
	}

	return ss.create("socket-create", domain.FamilyInet, t)
}

func (ss *socketService) Close(fd domain.Fd) error {
	if err := ss.checkFd("socket-close", fd); err != nil {
		return err
	}

	if err := ss.sp.Close(fd); err != nil {
		logrus.Errorf("Could not close socket %d: %v", fd, err)
		return domain.Failure("socket-close", err)
	}

	return nil
}

func (ss *socketService) Shutdown(fd domain.Fd, how domain.ShutdownHow) error {
	if err := ss.checkFd("socket-shutdown", fd); err != nil {
		return err
	}
	if !ss.features.SocketShutdown {
		logrus.Debug("socket-shutdown: shutdown support not built in")
		return domain.Unsupported("socket-shutdown")
	}

	switch how {
	case domain.ShutdownRd, domain.ShutdownWr, domain.ShutdownRdWr:
	default:
		logrus.Debugf("socket-shutdown: invalid mode %d", how)
		return domain.Failure("socket-shutdown", nil)
	}

	if err := ss.sp.Shutdown(fd, how); err != nil {
		logrus.Errorf("Could not shutdown socket %d: %v", fd, err)
		return domain.Failure("socket-shutdown", err)
	}

	return nil
}

func (ss *socketService) Bind(fd domain.Fd, addr *domain.SockAddr) error {
	if err := ss.checkFd("socket-bind", fd); err != nil {
		return err
	}
	if addr == nil {
		return domain.Failure("socket-bind", nil)
	}

	if err := ss.sp.Bind(fd, *addr); err != nil {
		logrus.Errorf("Could not bind socket %d to %v: %v", fd, addr, err)
		return domain.Failure("socket-bind", err)
	}

	return nil
}

func (ss *socketService) Listen(fd domain.Fd, backlog int) error {
	if err := ss.checkFd("socket-listen", fd); err != nil {
		return err
	}

	if err := ss.sp.Listen(fd, backlog); err != nil {
		logrus.Errorf("Could not listen on socket %d: %v", fd, err)
		return domain.Failure("socket-listen", err)
	}

	return nil
}

// Accept waits for an incoming connection. The peer address is written to
// 'addr' when the caller provides one.
func (ss *socketService) Accept(fd domain.Fd, addr *domain.SockAddr) (domain.Fd, error) {
	if err := ss.checkFd("socket-accept", fd); err != nil {
		return domain.InvalidFd, err
	}

	nfd, peer, err := ss.sp.Accept(fd)
	if err != nil {
		logrus.Errorf("Could not accept on socket %d: %v", fd, err)
		return domain.InvalidFd, domain.Failure("socket-accept", err)
	}

	if addr != nil {
		*addr = peer
	}

	return nfd, nil
}

func (ss *socketService) Connect(fd domain.Fd, addr *domain.SockAddr) error {
	if err := ss.checkFd("socket-connect", fd); err != nil {
		return err
	}
	if addr == nil {
		return domain.Failure("socket-connect", nil)
	}

	if err := ss.sp.Connect(fd, *addr); err != nil {
		logrus.Errorf("Could not connect socket %d to %v: %v", fd, addr, err)
		return domain.Failure("socket-connect", err)
	}

	return nil
}

// LocalAddr reports the address 'fd' is bound to, the way to learn the port
// picked by the system after binding to port 0.
func (ss *socketService) LocalAddr(fd domain.Fd, addr *domain.SockAddr) error {
	if err := ss.checkFd("socket-localaddr", fd); err != nil {
		return err
	}
	if addr == nil {
		return domain.Failure("socket-localaddr", nil)
	}

	local, err := ss.sp.SockName(fd)
	if err != nil {
		logrus.Errorf("Could not get local address of socket %d: %v", fd, err)
		return domain.Failure("socket-localaddr", err)
	}
	*addr = local

	return nil
}

func (ss *socketService) Send(fd domain.Fd, buf []byte) (int, error) {
	if err := ss.checkXfer("socket-send", fd, buf); err != nil {
		return domain.CountError, err
	}

	n, err := ss.sp.Send(fd, buf)
	if err != nil {
		logrus.Errorf("Send on socket %d failed: %v", fd, err)
		return domain.CountError, domain.Failure("socket-send", err)
	}

	return n, nil
}

func (ss *socketService) Recv(fd domain.Fd, buf []byte) (int, error) {
	if err := ss.checkXfer("socket-recv", fd, buf); err != nil {
		return domain.CountError, err
	}

	n, err := ss.sp.Recv(fd, buf)
	if err != nil {
		logrus.Errorf("Receive on socket %d failed: %v", fd, err)
		return domain.CountError, domain.Failure("socket-recv", err)
	}

	return n, nil
}

func (ss *socketService) SendTo(fd domain.Fd, buf []byte, addr *domain.SockAddr) (int, error) {
	if err := ss.checkXfer("socket-sendto", fd, buf); err != nil {
		return domain.CountError, err
	}
	if addr == nil {
		return domain.CountError, domain.Failure("socket-sendto", nil)
	}

	n, err := ss.sp.SendTo(fd, buf, *addr)
	if err != nil {
		logrus.Errorf("Send on socket %d to %v failed: %v", fd, addr, err)
		return domain.CountError, domain.Failure("socket-sendto", err)
	}

	return n, nil
}

// RecvFrom receives a datagram and stores its origin in 'addr'.
func (ss *socketService) RecvFrom(fd domain.Fd, buf []byte, addr *domain.SockAddr) (int, error) {
	if err := ss.checkXfer("socket-recvfrom", fd, buf); err != nil {
		return domain.CountError, err
	}
	if addr == nil {
		return domain.CountError, domain.Failure("socket-recvfrom", nil)
	}

	n, from, err := ss.sp.RecvFrom(fd, buf)
	if err != nil {
		logrus.Errorf("Receive on socket %d failed: %v", fd, err)
		return domain.CountError, domain.Failure("socket-recvfrom", err)
	}
	*addr = from

	return n, nil
}

//
// Select waits until one of the descriptors below maxFd (highest descriptor
// plus one, as for select(2)) becomes ready, and narrows the sets to the
// ready ones. timeoutMs is domain.WaitForever, domain.NoWait or a bound in
// milliseconds. Returns the number of ready descriptors, 0 on timeout and a
// negative value on error.
//
func (ss *socketService) Select(
	maxFd domain.Fd,
	read, write, except *domain.FdSet,
	timeoutMs int) int {

	if err := ss.checkEnabled("socket-select"); err != nil {
		return domain.CountError
	}
	if maxFd < 0 || maxFd > domain.FdSetSize {
		logrus.Debugf("socket-select: descriptor bound %d out of range", maxFd)
		return domain.CountError
	}

	var tv *domain.Timeval

	switch {
	case timeoutMs == domain.WaitForever:
	case timeoutMs == domain.NoWait:
		tv = &domain.Timeval{}
	case timeoutMs > 0:
		tv = &domain.Timeval{
			Sec:  int64(timeoutMs / 1000),
			Usec: int64(timeoutMs%1000) * 1000,
		}
	default:
		logrus.Debugf("socket-select: invalid timeout %d", timeoutMs)
		return domain.CountError
	}

	n, err := ss.sp.Select(maxFd, read, write, except, tv)
	if err != nil {
		logrus.Errorf("Select failed: %v", err)
		return domain.CountError
	}

	return n
}

// Ntoa renders the address part of 'addr' in dotted-decimal notation.
func (ss *socketService) Ntoa(addr *domain.SockAddr) string {
	if addr == nil {
		return ""
	}

	return netip.AddrFrom4(addr.Addr).String()
}

// Aton parses a dotted-decimal IPv4 address into 'addr'; the port is left
// untouched.
func (ss *socketService) Aton(s string, addr *domain.SockAddr) error {
	if addr == nil {
		return domain.Failure("socket-aton", nil)
	}

	ip, err := netip.ParseAddr(s)
	if err != nil || !ip.Is4() {
		logrus.Debugf("socket-aton: invalid ipv4 address %q", s)
		return domain.Failure("socket-aton", err)
	}
	addr.Addr = ip.As4()

	return nil
}

// CreateIpV6 creates an IPv6-only socket. Failing to restrict the socket to
// IPv6 traffic is only reported.
func (ss *socketService) CreateIpV6(t domain.SocketType) (domain.Fd, error) {
	if err := ss.checkIPv6("socket-create-ipv6"); err != nil {
		return domain.InvalidFd, err
	}

	fd, err := ss.create("socket-create-ipv6", domain.FamilyInet6, t)
	if err != nil {
		return fd, err
	}

	if err := ss.sp.SetV6Only(fd); err != nil {
		logrus.Warnf("Could not set IPV6_V6ONLY on socket %d: %v", fd, err)
	}

	return fd, nil
}

func (ss *socketService) BindIpV6(fd domain.Fd, addr *domain.SockAddr6) error {
	if err := ss.checkIPv6("socket-bind-ipv6"); err != nil {
		return err
	}
	if err := ss.checkFd("socket-bind-ipv6", fd); err != nil {
		return err
	}
	if addr == nil {
		return domain.Failure("socket-bind-ipv6", nil)
	}

	if err := ss.sp.Bind6(fd, *addr); err != nil {
		logrus.Errorf("Could not bind socket %d to %v: %v", fd, addr, err)
		return domain.Failure("socket-bind-ipv6", err)
	}

	return nil
}

func (ss *socketService) SendToIpV6(fd domain.Fd, buf []byte, addr *domain.SockAddr6) (int, error) {
	if err := ss.checkIPv6("socket-sendto-ipv6"); err != nil {
		return domain.CountError, err
	}
	if err := ss.checkXfer("socket-sendto-ipv6", fd, buf); err != nil {
		return domain.CountError, err
	}
	if addr == nil {
		return domain.CountError, domain.Failure("socket-sendto-ipv6", nil)
	}

	n, err := ss.sp.SendTo6(fd, buf, *addr)
	if err != nil {
		logrus.Errorf("Send on socket %d to %v failed: %v", fd, addr, err)
		return domain.CountError, domain.Failure("socket-sendto-ipv6", err)
	}

	return n, nil
}

func (ss *socketService) RecvFromIpV6(fd domain.Fd, buf []byte, addr *domain.SockAddr6) (int, error) {
	if err := ss.checkIPv6("socket-recvfrom-ipv6"); err != nil {
		return domain.CountError, err
	}
	if err := ss.checkXfer("socket-recvfrom-ipv6", fd, buf); err != nil {
		return domain.CountError, err
	}
	if addr == nil {
		return domain.CountError, domain.Failure("socket-recvfrom-ipv6", nil)
	}

	n, from, err := ss.sp.RecvFrom6(fd, buf)
	if err != nil {
		logrus.Errorf("Receive on socket %d failed: %v", fd, err)
		return domain.CountError, domain.Failure("socket-recvfrom-ipv6", err)
	}
	*addr = from

	return n, nil
}

func (ss *socketService) FdSet(fd domain.Fd, set *domain.FdSet) {
	set.Set(fd)
}

func (ss *socketService) FdClr(fd domain.Fd, set *domain.FdSet) {
	set.Clr(fd)
}

func (ss *socketService) FdIsSet(fd domain.Fd, set *domain.FdSet) bool {
	return set.IsSet(fd)
}

func (ss *socketService) FdZero(set *domain.FdSet) {
	set.Zero()
}
