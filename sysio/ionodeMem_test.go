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

package sysio_test

import (
	"io/ioutil"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestybox/sysbox-osal/domain"
	"github.com/nestybox/sysbox-osal/sysio"
)

func TestMain(m *testing.M) {

	// Disable log generation during UT.
	logrus.SetOutput(ioutil.Discard)

	m.Run()
}

func newMemService() *sysio.MemDeviceService {
	return sysio.NewMemDeviceService(afero.NewMemMapFs(), sysio.DefaultDrivers())
}

func TestNewIOService(t *testing.T) {
	ios := sysio.NewIOService(domain.IOMemDeviceService)
	assert.Equal(t, domain.IOMemDeviceService, ios.GetServiceType())

	ios = sysio.NewIOService(domain.IODeviceFileService)
	assert.Equal(t, domain.IODeviceFileService, ios.GetServiceType())

	assert.Panics(t, func() { sysio.NewIOService(domain.Unknown) })
}

func TestMemDeviceService_Open(t *testing.T) {

	tests := []struct {
		name    string
		dev     string
		wantErr bool
		prepare func(s *sysio.MemDeviceService)
	}{
		{
			//
			// Test-case 1: Regular Open operation on a driver node. No errors
			// expected.
			//
			name:    "1",
			dev:     "/dev/echo",
			wantErr: false,
		},
		{
			//
			// Test-case 2: Node not present in the device filesystem.
			//
			name:    "2",
			dev:     "/dev/missing",
			wantErr: true,
		},
		{
			//
			// Test-case 3: Minor node extending a driver path, served by
			// that driver.
			//
			name:    "3",
			dev:     "/dev/echo1",
			wantErr: false,
			prepare: func(s *sysio.MemDeviceService) {
				require.NoError(t, s.MkNode("/dev/echo1"))
			},
		},
		{
			//
			// Test-case 4: Node present but its driver is disabled.
			//
			name:    "4",
			dev:     "/dev/off",
			wantErr: true,
			prepare: func(s *sysio.MemDeviceService) {
				require.NoError(t, s.RegisterDriver(&sysio.EchoDriver{
					Name:    "off",
					Path:    "/dev/off",
					Enabled: false,
				}))
			},
		},
		{
			//
			// Test-case 5: Path not normalized.
			//
			name:    "5",
			dev:     "/dev//null",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemService()

			if tt.prepare != nil {
				tt.prepare(s)
			}

			fd, err := s.Open(tt.dev)
			if (err != nil) != tt.wantErr {
				t.Errorf("MemDeviceService.Open() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				assert.True(t, fd.Valid())
				assert.NoError(t, s.Close(fd))
			}
		})
	}
}

// Driver passed by value, with a field that makes it non-comparable.
type tagDriver struct {
	sysio.NullDriver
	tags []string
}

func (d tagDriver) GetName() string  { return d.NullDriver.GetName() }
func (d tagDriver) GetPath() string  { return d.NullDriver.GetPath() }
func (d tagDriver) GetEnabled() bool { return true }

func (d tagDriver) Open(n domain.DevNodeIface) error  { return nil }
func (d tagDriver) Close(n domain.DevNodeIface) error { return nil }

func (d tagDriver) Read(n domain.DevNodeIface, p []byte) (int, error) {
	return 0, nil
}

func (d tagDriver) Write(n domain.DevNodeIface, p []byte) (int, error) {
	return len(p), nil
}

func (d tagDriver) Ioctl(n domain.DevNodeIface, cmd uint, arg uintptr) (int, error) {
	return 0, nil
}

func TestMemDeviceService_UnregisterValueDriver(t *testing.T) {
	s := newMemService()

	d := tagDriver{
		NullDriver: sysio.NullDriver{Name: "tag", Path: "/dev/tag", Enabled: true},
		tags:       []string{"a"},
	}

	require.NoError(t, s.RegisterDriver(d))
	require.NoError(t, s.MkNode("/dev/tag1"))

	// A longer driver path nested under /dev/tag keeps its own nodes.
	nested := &sysio.EchoDriver{Name: "tagx", Path: "/dev/tagx", Enabled: true}
	require.NoError(t, s.RegisterDriver(nested))

	assert.NotPanics(t, func() {
		assert.NoError(t, s.UnregisterDriver(d))
	})

	nodes := s.Nodes()
	assert.NotContains(t, nodes, "/dev/tag")
	assert.NotContains(t, nodes, "/dev/tag1")
	assert.Contains(t, nodes, "/dev/tagx")
}

func TestMemDeviceService_MkNode(t *testing.T) {
	s := newMemService()

	assert.Error(t, s.MkNode("/opt/nodriver"))
	assert.NoError(t, s.MkNode("/dev/echo3"))

	nodes := s.Nodes()
	sort.Strings(nodes)
	assert.Equal(t, []string{"/dev/echo", "/dev/echo3", "/dev/null"}, nodes)
}

func TestMemDeviceService_RegisterDriver(t *testing.T) {
	s := newMemService()

	d := &sysio.EchoDriver{Name: "loop", Path: "/dev/loop", Enabled: true}

	require.NoError(t, s.RegisterDriver(d))
	assert.Error(t, s.RegisterDriver(d), "duplicate registration")
	require.NoError(t, s.MkNode("/dev/loop0"))

	fd, err := s.Open("/dev/loop0")
	require.NoError(t, err)

	require.NoError(t, s.UnregisterDriver(d))
	assert.Error(t, s.UnregisterDriver(d))

	// Nodes gone, open descriptor still served.
	_, err = s.Open("/dev/loop")
	assert.Error(t, err)
	_, err = s.Open("/dev/loop0")
	assert.Error(t, err)
	assert.NotContains(t, s.Nodes(), "/dev/loop0")

	n, err := s.Write(fd, []byte("still here"))
	assert.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.NoError(t, s.Close(fd))
}

func TestMemDeviceService_EchoReadWrite(t *testing.T) {
	s := newMemService()

	fd, err := s.Open("/dev/echo")
	require.NoError(t, err)
	defer s.Close(fd)

	for _, msg := range []string{"first", "second"} {
		n, err := s.Write(fd, []byte(msg))
		require.NoError(t, err)
		assert.Equal(t, len(msg), n)
	}

	pending, err := s.Ioctl(fd, sysio.EchoIoctlPending, 0)
	assert.NoError(t, err)
	assert.Equal(t, 2, pending)

	buf := make([]byte, 16)

	n, err := s.Read(fd, buf)
	assert.NoError(t, err)
	assert.Equal(t, "first", string(buf[:n]))

	_, err = s.Ioctl(fd, sysio.EchoIoctlFlush, 0)
	assert.NoError(t, err)

	n, err = s.Read(fd, buf)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = s.Ioctl(fd, 0x99, 0)
	assert.Error(t, err)
}

func TestMemDeviceService_BadDescriptor(t *testing.T) {
	s := newMemService()

	_, err := s.Read(42, make([]byte, 1))
	assert.Error(t, err)
	_, err = s.Write(42, []byte("x"))
	assert.Error(t, err)
	_, err = s.Ioctl(42, sysio.EchoIoctlPending, 0)
	assert.Error(t, err)
	assert.Error(t, s.Close(42))

	var watch, ready domain.FdSet
	watch.Set(42)
	_, err = s.Select(43, &watch, &ready, 10)
	assert.Error(t, err)
}

func TestMemDeviceService_FdAllocation(t *testing.T) {
	s := newMemService()

	fd0, err := s.Open("/dev/null")
	require.NoError(t, err)
	fd1, err := s.Open("/dev/null")
	require.NoError(t, err)
	fd2, err := s.Open("/dev/echo")
	require.NoError(t, err)

	assert.Equal(t, []domain.Fd{0, 1, 2}, []domain.Fd{fd0, fd1, fd2})

	// Lowest free descriptor is reused.
	require.NoError(t, s.Close(fd1))
	fd, err := s.Open("/dev/echo")
	require.NoError(t, err)
	assert.Equal(t, fd1, fd)
}

func TestMemDeviceService_Select(t *testing.T) {
	s := newMemService()

	quiet, err := s.Open("/dev/echo")
	require.NoError(t, err)
	busy, err := s.Open("/dev/echo")
	require.NoError(t, err)

	var watch domain.FdSet
	watch.Set(quiet)
	watch.Set(busy)

	//
	// Nothing pending: the call times out.
	//
	ready := watch
	start := time.Now()
	n, err := s.Select(busy+1, &watch, &ready, 30)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, time.Since(start) >= 30*time.Millisecond)

	//
	// A message posted while waiting wakes the selector up.
	//
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		s.Write(busy, []byte("wake"))
	}()

	ready = watch
	n, err = s.Select(busy+1, &watch, &ready, 5000)
	wg.Wait()

	assert.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, ready.IsSet(busy))
	assert.False(t, ready.IsSet(quiet))

	//
	// Descriptors at or above maxFd are not watched.
	//
	ready = watch
	n, err = s.Select(busy, &watch, &ready, 0)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}
