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
	"errors"
	"io/ioutil"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nestybox/sysbox-osal/domain"
)

func TestMain(m *testing.M) {

	// Disable log generation during UT.
	logrus.SetOutput(ioutil.Discard)

	m.Run()
}

var allFeatures = domain.Features{
	DeviceAccess:   true,
	DeviceSelect:   true,
	Socket:         true,
	SocketShutdown: true,
	IPv6:           true,
}

type socketProviderMock struct {
	mock.Mock
}

func (m *socketProviderMock) Init() error    { return m.Called().Error(0) }
func (m *socketProviderMock) Cleanup() error { return m.Called().Error(0) }

func (m *socketProviderMock) Socket(f domain.Family, t domain.SocketType) (domain.Fd, error) {
	args := m.Called(f, t)
	return args.Get(0).(domain.Fd), args.Error(1)
}

func (m *socketProviderMock) SetV6Only(fd domain.Fd) error { return m.Called(fd).Error(0) }
func (m *socketProviderMock) Close(fd domain.Fd) error     { return m.Called(fd).Error(0) }

func (m *socketProviderMock) Shutdown(fd domain.Fd, how domain.ShutdownHow) error {
	return m.Called(fd, how).Error(0)
}

func (m *socketProviderMock) Bind(fd domain.Fd, addr domain.SockAddr) error {
	return m.Called(fd, addr).Error(0)
}

func (m *socketProviderMock) Bind6(fd domain.Fd, addr domain.SockAddr6) error {
	return m.Called(fd, addr).Error(0)
}

func (m *socketProviderMock) Listen(fd domain.Fd, backlog int) error {
	return m.Called(fd, backlog).Error(0)
}

func (m *socketProviderMock) Accept(fd domain.Fd) (domain.Fd, domain.SockAddr, error) {
	args := m.Called(fd)
	return args.Get(0).(domain.Fd), args.Get(1).(domain.SockAddr), args.Error(2)
}

func (m *socketProviderMock) Connect(fd domain.Fd, addr domain.SockAddr) error {
	return m.Called(fd, addr).Error(0)
}

func (m *socketProviderMock) SockName(fd domain.Fd) (domain.SockAddr, error) {
	args := m.Called(fd)
	return args.Get(0).(domain.SockAddr), args.Error(1)
}

func (m *socketProviderMock) Send(fd domain.Fd, buf []byte) (int, error) {
	args := m.Called(fd, buf)
	return args.Int(0), args.Error(1)
}

func (m *socketProviderMock) Recv(fd domain.Fd, buf []byte) (int, error) {
	args := m.Called(fd, buf)
	return args.Int(0), args.Error(1)
}

func (m *socketProviderMock) SendTo(fd domain.Fd, buf []byte, addr domain.SockAddr) (int, error) {
	args := m.Called(fd, buf, addr)
	return args.Int(0), args.Error(1)
}

func (m *socketProviderMock) RecvFrom(fd domain.Fd, buf []byte) (int, domain.SockAddr, error) {
	args := m.Called(fd, buf)
	return args.Int(0), args.Get(1).(domain.SockAddr), args.Error(2)
}

func (m *socketProviderMock) SendTo6(fd domain.Fd, buf []byte, addr domain.SockAddr6) (int, error) {
	args := m.Called(fd, buf, addr)
	return args.Int(0), args.Error(1)
}

func (m *socketProviderMock) RecvFrom6(fd domain.Fd, buf []byte) (int, domain.SockAddr6, error) {
	args := m.Called(fd, buf)
	return args.Int(0), args.Get(1).(domain.SockAddr6), args.Error(2)
}

func (m *socketProviderMock) Select(
	maxFd domain.Fd,
	r, w, e *domain.FdSet,
	tv *domain.Timeval) (int, error) {

	args := m.Called(maxFd, r, w, e, tv)
	return args.Int(0), args.Error(1)
}

func TestSocketService_IPv6Disabled(t *testing.T) {
	sp := &socketProviderMock{}

	f := allFeatures
	f.IPv6 = false
	ss := NewSocketServiceWithProvider(sp, f)

	fd, err := ss.CreateIpV6(domain.SocketDgram)
	assert.Equal(t, domain.InvalidFd, fd)
	assert.True(t, errors.Is(err, domain.ErrFailure))
	assert.True(t, errors.Is(err, domain.ErrNotSupported))

	assert.Error(t, ss.BindIpV6(3, &domain.SockAddr6{}))

	n, err := ss.SendToIpV6(3, []byte("x"), &domain.SockAddr6{})
	assert.Equal(t, domain.CountError, n)
	assert.Error(t, err)

	n, err = ss.RecvFromIpV6(3, make([]byte, 4), &domain.SockAddr6{})
	assert.Equal(t, domain.CountError, n)
	assert.Error(t, err)

	// Nothing may reach the backend.
	sp.AssertNotCalled(t, "Socket", mock.Anything, mock.Anything)
	sp.AssertNotCalled(t, "Bind6", mock.Anything, mock.Anything)
	sp.AssertNotCalled(t, "SendTo6", mock.Anything, mock.Anything, mock.Anything)
	sp.AssertNotCalled(t, "RecvFrom6", mock.Anything, mock.Anything)
}

func TestSocketService_SocketsDisabled(t *testing.T) {
	sp := &socketProviderMock{}
	ss := NewSocketServiceWithProvider(sp, domain.Features{})

	_, err := ss.Create(domain.SocketStream)
	assert.True(t, errors.Is(err, domain.ErrNotSupported))
	assert.True(t, errors.Is(ss.Init(), domain.ErrNotSupported))
	assert.True(t, errors.Is(ss.Close(3), domain.ErrNotSupported))
	assert.Equal(t, domain.CountError, ss.Select(4, &domain.FdSet{}, nil, nil, domain.NoWait))

	sp.AssertExpectations(t)
}

func TestSocketService_CreateIpV6(t *testing.T) {
	tests := []struct {
		name     string
		v6OnlyEr error
	}{
		{"v6only set", nil},
		{"v6only failure is only reported", errors.New("ENOPROTOOPT")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := &socketProviderMock{}
			sp.On("Socket", domain.FamilyInet6, domain.SocketStream).Return(domain.Fd(7), nil)
			sp.On("SetV6Only", domain.Fd(7)).Return(tt.v6OnlyEr)

			ss := NewSocketServiceWithProvider(sp, allFeatures)

			fd, err := ss.CreateIpV6(domain.SocketStream)
			assert.NoError(t, err)
			assert.Equal(t, domain.Fd(7), fd)

			sp.AssertExpectations(t)
		})
	}
}

func TestSocketService_Validation(t *testing.T) {
	sp := &socketProviderMock{}
	ss := NewSocketServiceWithProvider(sp, allFeatures)

	addr := &domain.SockAddr{Addr: [4]byte{127, 0, 0, 1}, Port: 4000}

	tests := []struct {
		name string
		call func() error
	}{
		{"create bad type", func() error {
			_, err := ss.Create(domain.SocketType(9))
			return err
		}},
		{"close invalid fd", func() error { return ss.Close(domain.InvalidFd) }},
		{"bind nil addr", func() error { return ss.Bind(3, nil) }},
		{"connect nil addr", func() error { return ss.Connect(3, nil) }},
		{"listen invalid fd", func() error { return ss.Listen(-4, 1) }},
		{"shutdown bad mode", func() error { return ss.Shutdown(3, domain.ShutdownHow(7)) }},
		{"send nil buffer", func() error {
			_, err := ss.Send(3, nil)
			return err
		}},
		{"recv empty buffer", func() error {
			_, err := ss.Recv(3, []byte{})
			return err
		}},
		{"sendto nil addr", func() error {
			_, err := ss.SendTo(3, []byte("abc"), nil)
			return err
		}},
		{"recvfrom invalid fd", func() error {
			_, err := ss.RecvFrom(-1, make([]byte, 2), addr)
			return err
		}},
		{"localaddr nil addr", func() error { return ss.LocalAddr(3, nil) }},
		{"accept invalid fd", func() error {
			_, err := ss.Accept(-1, addr)
			return err
		}},
		{"aton bad address", func() error { return ss.Aton("300.1.1.1", addr) }},
		{"aton ipv6 address", func() error { return ss.Aton("::1", addr) }},
		{"aton nil addr", func() error { return ss.Aton("10.0.0.1", nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assert.True(t, errors.Is(err, domain.ErrFailure), "got %v", err)
		})
	}

	// None of the rejected calls made it to the provider.
	assert.Empty(t, sp.Calls)
}

func TestSocketService_ProviderFailure(t *testing.T) {
	sp := &socketProviderMock{}
	sp.On("Send", domain.Fd(3), mock.Anything).Return(0, errors.New("EPIPE"))
	sp.On("Bind", domain.Fd(3), mock.Anything).Return(errors.New("EADDRINUSE"))

	ss := NewSocketServiceWithProvider(sp, allFeatures)

	n, err := ss.Send(3, []byte("abc"))
	assert.Equal(t, domain.CountError, n)
	assert.True(t, errors.Is(err, domain.ErrFailure))

	err = ss.Bind(3, &domain.SockAddr{})
	assert.True(t, errors.Is(err, domain.ErrFailure))
	assert.Contains(t, err.Error(), "EADDRINUSE")

	sp.AssertExpectations(t)
}

func TestSocketService_SelectTimeout(t *testing.T) {
	tests := []struct {
		name      string
		timeoutMs int
		want      *domain.Timeval
	}{
		{"wait forever", domain.WaitForever, nil},
		{"no wait", domain.NoWait, &domain.Timeval{}},
		{"sub second", 250, &domain.Timeval{Sec: 0, Usec: 250000}},
		{"seconds and micros", 2750, &domain.Timeval{Sec: 2, Usec: 750000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := &socketProviderMock{}
			read := &domain.FdSet{}

			sp.On("Select", domain.Fd(5), read, (*domain.FdSet)(nil), (*domain.FdSet)(nil), tt.want).
				Return(1, nil)

			ss := NewSocketServiceWithProvider(sp, allFeatures)
			assert.Equal(t, 1, ss.Select(5, read, nil, nil, tt.timeoutMs))

			sp.AssertExpectations(t)
		})
	}

	// Other negative timeouts are rejected.
	sp := &socketProviderMock{}
	ss := NewSocketServiceWithProvider(sp, allFeatures)
	assert.Equal(t, domain.CountError, ss.Select(5, nil, nil, nil, -7))
	assert.Empty(t, sp.Calls)
}

func TestSocketService_AcceptPeer(t *testing.T) {
	peer := domain.SockAddr{Addr: [4]byte{10, 1, 2, 3}, Port: 5555}

	sp := &socketProviderMock{}
	sp.On("Accept", domain.Fd(3)).Return(domain.Fd(9), peer, nil)

	ss := NewSocketServiceWithProvider(sp, allFeatures)

	var addr domain.SockAddr
	nfd, err := ss.Accept(3, &addr)
	assert.NoError(t, err)
	assert.Equal(t, domain.Fd(9), nfd)
	assert.Equal(t, peer, addr)

	// The peer address is optional.
	nfd, err = ss.Accept(3, nil)
	assert.NoError(t, err)
	assert.Equal(t, domain.Fd(9), nfd)
}

func TestSocketService_NtoaAton(t *testing.T) {
	ss := NewSocketServiceWithProvider(&socketProviderMock{}, allFeatures)

	addr := domain.SockAddr{Port: 80}
	assert.NoError(t, ss.Aton("192.168.0.254", &addr))
	assert.Equal(t, [4]byte{192, 168, 0, 254}, addr.Addr)
	assert.Equal(t, uint16(80), addr.Port)
	assert.Equal(t, "192.168.0.254", ss.Ntoa(&addr))
	assert.Equal(t, "", ss.Ntoa(nil))
}

func TestSocketService_FdHelpers(t *testing.T) {
	ss := NewSocketServiceWithProvider(&socketProviderMock{}, allFeatures)

	var set domain.FdSet
	ss.FdSet(12, &set)
	assert.True(t, ss.FdIsSet(12, &set))
	ss.FdClr(12, &set)
	assert.False(t, ss.FdIsSet(12, &set))
	ss.FdSet(1, &set)
	ss.FdZero(&set)
	assert.Equal(t, 0, set.Count())

	assert.NotPanics(t, func() { ss.FdSet(1, nil) })
	assert.False(t, ss.FdIsSet(1, nil))
}
