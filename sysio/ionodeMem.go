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
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eapache/queue"
	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/nestybox/sysbox-osal/domain"
)

var _ domain.IOServiceIface = (*MemDeviceService)(nil)
var _ domain.DevNodeIface = (*devNode)(nil)

//
// MemDeviceService emulates a driver model in-process (dev_io). Drivers are
// kept in a radix tree keyed by their path, so that a device node is served
// by the driver registered under its longest matching prefix. Device nodes
// are plain files of the service's filesystem.
//
type MemDeviceService struct {
	sync.RWMutex
	fs      afero.Fs
	drivers *iradix.Tree
	nodes   map[domain.Fd]*devNode

	// Closed and replaced on every posted message to wake up selectors.
	wakeMu sync.Mutex
	wake   chan struct{}
}

func NewMemDeviceService(fs afero.Fs, drivers []domain.DevDriverIface) *MemDeviceService {

	s := &MemDeviceService{
		fs:      fs,
		drivers: iradix.New(),
		nodes:   make(map[domain.Fd]*devNode),
		wake:    make(chan struct{}),
	}

	// Register all drivers declared as 'enabled'.
	for _, d := range drivers {
		if d.GetEnabled() {
			if err := s.RegisterDriver(d); err != nil {
				logrus.Warnf("Driver %v not registered: %v", d.GetName(), err)
			}
		}
	}

	return s
}

// RegisterDriver plugs a driver in and creates its device node.
func (s *MemDeviceService) RegisterDriver(d domain.DevDriverIface) error {
	s.Lock()
	defer s.Unlock()

	name := d.GetName()
	path := filepath.Clean(d.GetPath())

	if _, ok := s.drivers.Get([]byte(path)); ok {
		logrus.Debugf("Driver %v already registered", name)
		return errors.Errorf("driver already registered at %v", path)
	}

	if err := s.mknode(path); err != nil {
		return err
	}

	s.drivers, _, _ = s.drivers.Insert([]byte(path), d)
	logrus.Debugf("Registered driver %v at %v", name, path)

	return nil
}

// UnregisterDriver removes the driver and the device nodes it serves. Open
// descriptors stay usable until closed.
func (s *MemDeviceService) UnregisterDriver(d domain.DevDriverIface) error {
	s.Lock()
	defer s.Unlock()

	path := filepath.Clean(d.GetPath())

	if _, ok := s.drivers.Get([]byte(path)); !ok {
		logrus.Debugf("Driver %v not previously registered", d.GetName())
		return errors.Errorf("no driver registered at %v", path)
	}

	var served []string
	for _, node := range s.walkNodes() {
		if drv, ok := s.lookupDriver(node); ok && filepath.Clean(drv.GetPath()) == path {
			served = append(served, node)
		}
	}

	s.drivers, _, _ = s.drivers.Delete([]byte(path))

	for _, node := range served {
		if err := s.fs.Remove(node); err != nil {
			return err
		}
	}

	return nil
}

// MkNode creates an additional device node, typically a minor device whose
// name extends a driver's path ("/dev/echo" serves "/dev/echo1").
func (s *MemDeviceService) MkNode(path string) error {
	s.Lock()
	defer s.Unlock()

	path = filepath.Clean(path)

	if _, _, ok := s.drivers.Root().LongestPrefix([]byte(path)); !ok {
		return errors.Errorf("no driver serving %v", path)
	}

	return s.mknode(path)
}

func (s *MemDeviceService) mknode(path string) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return afero.WriteFile(s.fs, path, nil, 0600)
}

// Nodes lists the device nodes currently present.
func (s *MemDeviceService) Nodes() []string {
	s.RLock()
	defer s.RUnlock()

	return s.walkNodes()
}

func (s *MemDeviceService) walkNodes() []string {
	var nodes []string

	afero.Walk(s.fs, "/", func(path string, info os.FileInfo, err error) error {
		if err == nil && info.Mode().IsRegular() {
			nodes = append(nodes, path)
		}
		return nil
	})

	return nodes
}

func (s *MemDeviceService) lookupDriver(path string) (domain.DevDriverIface, bool) {
	_, v, ok := s.drivers.Root().LongestPrefix([]byte(path))
	if !ok {
		return nil, false
	}

	return v.(domain.DevDriverIface), true
}

// Lowest unused descriptor, as a kernel would hand out.
func (s *MemDeviceService) allocFd() (domain.Fd, bool) {
	for fd := domain.Fd(0); fd < domain.FdSetSize; fd++ {
		if _, ok := s.nodes[fd]; !ok {
			return fd, true
		}
	}

	return domain.InvalidFd, false
}

func (s *MemDeviceService) node(fd domain.Fd) (*devNode, error) {
	s.RLock()
	defer s.RUnlock()

	n, ok := s.nodes[fd]
	if !ok {
		return nil, errors.Errorf("bad descriptor %d", fd)
	}

	return n, nil
}

func (s *MemDeviceService) Open(name string) (domain.Fd, error) {
	path := filepath.Clean(name)

	s.Lock()

	if ok, _ := afero.Exists(s.fs, path); !ok {
		s.Unlock()
		return domain.InvalidFd, errors.Errorf("no such device %v", path)
	}

	d, ok := s.lookupDriver(path)
	if !ok || !d.GetEnabled() {
		s.Unlock()
		return domain.InvalidFd, errors.Errorf("no driver serving %v", path)
	}

	fd, ok := s.allocFd()
	if !ok {
		s.Unlock()
		return domain.InvalidFd, errors.New("too many open devices")
	}

	n := &devNode{
		fd:     fd,
		name:   path,
		driver: d,
		q:      queue.New(),
		svc:    s,
	}
	s.nodes[fd] = n

	s.Unlock()

	// Driver callbacks run unlocked; they may post to the node.
	if err := d.Open(n); err != nil {
		s.Lock()
		delete(s.nodes, fd)
		s.Unlock()
		return domain.InvalidFd, err
	}

	return fd, nil
}

func (s *MemDeviceService) Close(fd domain.Fd) error {
	s.Lock()
	n, ok := s.nodes[fd]
	if !ok {
		s.Unlock()
		return errors.Errorf("bad descriptor %d", fd)
	}
	delete(s.nodes, fd)
	s.Unlock()

	return n.driver.Close(n)
}

func (s *MemDeviceService) Read(fd domain.Fd, p []byte) (int, error) {
	n, err := s.node(fd)
	if err != nil {
		return -1, err
	}

	return n.driver.Read(n, p)
}

func (s *MemDeviceService) Write(fd domain.Fd, p []byte) (int, error) {
	n, err := s.node(fd)
	if err != nil {
		return -1, err
	}

	return n.driver.Write(n, p)
}

func (s *MemDeviceService) Ioctl(fd domain.Fd, cmd uint, arg uintptr) (int, error) {
	n, err := s.node(fd)
	if err != nil {
		return -1, err
	}

	return n.driver.Ioctl(n, cmd, arg)
}

func (s *MemDeviceService) wakeChan() <-chan struct{} {
	s.wakeMu.Lock()
	defer s.wakeMu.Unlock()

	return s.wake
}

func (s *MemDeviceService) wakeup() {
	s.wakeMu.Lock()
	close(s.wake)
	s.wake = make(chan struct{})
	s.wakeMu.Unlock()
}

// collect narrows 'ready' to the watched descriptors with pending messages.
func (s *MemDeviceService) collect(maxFd domain.Fd, watch, ready *domain.FdSet) (int, error) {
	s.RLock()
	defer s.RUnlock()

	var count int

	for _, fd := range watch.Fds(maxFd) {
		n, ok := s.nodes[fd]
		if !ok {
			return -1, errors.Errorf("bad descriptor %d", fd)
		}

		if n.Pending() > 0 {
			ready.Set(fd)
			count++
		} else {
			ready.Clr(fd)
		}
	}

	return count, nil
}

func (s *MemDeviceService) Select(
	maxFd domain.Fd,
	watch *domain.FdSet,
	ready *domain.FdSet,
	timeoutMs domain.Time) (int, error) {

	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)

	for {
		// Grab the channel before checking, so no post can slip in between.
		wake := s.wakeChan()

		count, err := s.collect(maxFd, watch, ready)
		if err != nil || count > 0 {
			return count, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-wake:
		case <-timer.C:
		}
		timer.Stop()
	}
}

func (s *MemDeviceService) GetServiceType() domain.IOServiceType {
	return domain.IOMemDeviceService
}

//
// devNode is an open dev_io device: the per-open context handed to driver
// callbacks, plus the FIFO of messages the driver posted for the
// application.
//
type devNode struct {
	fd     domain.Fd
	name   string
	driver domain.DevDriverIface
	svc    *MemDeviceService

	mu sync.Mutex
	q  *queue.Queue
}

func (n *devNode) Fd() domain.Fd {
	return n.fd
}

func (n *devNode) Name() string {
	return n.name
}

func (n *devNode) Post(msg []byte) {
	m := make([]byte, len(msg))
	copy(m, msg)

	n.mu.Lock()
	n.q.Add(m)
	n.mu.Unlock()

	n.svc.wakeup()
}

func (n *devNode) Fetch(p []byte) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.q.Length() == 0 {
		return 0
	}

	return copy(p, n.q.Remove().([]byte))
}

func (n *devNode) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.q.Length()
}
