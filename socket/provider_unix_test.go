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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestybox/sysbox-osal/domain"
)

func localAddr(t *testing.T, ss domain.SocketServiceIface, fd domain.Fd) domain.SockAddr {
	var addr domain.SockAddr
	require.NoError(t, ss.LocalAddr(fd, &addr))

	return addr
}

func TestUnixProvider_UDPSelfSend(t *testing.T) {
	ss := NewSocketServiceWithProvider(newDefaultProvider(), allFeatures)

	require.NoError(t, ss.Init())
	defer ss.Cleanup()

	fd, err := ss.Create(domain.SocketDgram)
	require.NoError(t, err)

	addr := &domain.SockAddr{}
	require.NoError(t, ss.Aton("127.0.0.1", addr))
	require.NoError(t, ss.Bind(fd, addr))

	self := localAddr(t, ss, fd)
	require.NotZero(t, self.Port)

	payload := []byte("0123456789")
	n, err := ss.SendTo(fd, payload, &self)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	var read domain.FdSet
	ss.FdSet(fd, &read)
	assert.Equal(t, 1, ss.Select(fd+1, &read, nil, nil, 1000))
	assert.True(t, ss.FdIsSet(fd, &read))

	var from domain.SockAddr
	buf := make([]byte, 64)
	n, err = ss.RecvFrom(fd, buf, &from)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, buf[:n])
	assert.Equal(t, self, from)

	assert.NoError(t, ss.Close(fd))
}

func TestUnixProvider_SelectNoWait(t *testing.T) {
	ss := NewSocketServiceWithProvider(newDefaultProvider(), allFeatures)

	fd, err := ss.Create(domain.SocketDgram)
	require.NoError(t, err)
	defer ss.Close(fd)

	addr := &domain.SockAddr{Addr: [4]byte{127, 0, 0, 1}}
	require.NoError(t, ss.Bind(fd, addr))

	var read domain.FdSet
	ss.FdSet(fd, &read)

	// Nothing pending: immediate timeout, set cleared.
	assert.Equal(t, 0, ss.Select(fd+1, &read, nil, nil, domain.NoWait))
	assert.False(t, ss.FdIsSet(fd, &read))
}

func TestUnixProvider_TCPLoopback(t *testing.T) {
	ss := NewSocketServiceWithProvider(newDefaultProvider(), allFeatures)

	lfd, err := ss.Create(domain.SocketStream)
	require.NoError(t, err)
	defer ss.Close(lfd)

	require.NoError(t, ss.Bind(lfd, &domain.SockAddr{Addr: [4]byte{127, 0, 0, 1}}))
	require.NoError(t, ss.Listen(lfd, 1))
	srv := localAddr(t, ss, lfd)

	cfd, err := ss.Create(domain.SocketStream)
	require.NoError(t, err)
	defer ss.Close(cfd)
	require.NoError(t, ss.Connect(cfd, &srv))

	var peer domain.SockAddr
	afd, err := ss.Accept(lfd, &peer)
	require.NoError(t, err)
	defer ss.Close(afd)
	assert.Equal(t, localAddr(t, ss, cfd), peer)

	n, err := ss.Send(cfd, []byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	buf := make([]byte, 4)
	n, err = ss.Recv(afd, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))

	assert.NoError(t, ss.Shutdown(cfd, domain.ShutdownWr))
	n, err = ss.Recv(afd, buf)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}
