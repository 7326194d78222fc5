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

package memmap

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/nestybox/sysbox-osal/domain"
)

const DefaultMemDevice = "/dev/mem"

var _ domain.MemMapProviderIface = (*DevMemProvider)(nil)

type mapping struct {
	data  []byte // page aligned, as returned by mmap
	delta int    // offset of the requested address within data
	size  int
}

//
// DevMemProvider maps physical memory through a memory device file. Live
// mappings are tracked by the address handed out, which is what unmap
// requests carry.
//
type DevMemProvider struct {
	path string

	mu   sync.Mutex
	maps map[uintptr]*mapping
}

func NewDevMemProvider(path string) *DevMemProvider {
	return &DevMemProvider{
		path: path,
		maps: make(map[uintptr]*mapping),
	}
}

func (p *DevMemProvider) Map(phys uintptr, size int, name string) (uintptr, error) {

	fd, err := unix.Open(p.path, unix.O_RDWR|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, errors.Wrapf(err, "open %v", p.path)
	}
	defer unix.Close(fd)

	// mmap offsets must be page aligned.
	pageMask := uintptr(unix.Getpagesize() - 1)
	base := phys &^ pageMask
	delta := int(phys - base)

	data, err := unix.Mmap(fd, int64(base), size+delta, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return 0, errors.Wrapf(err, "mmap %v at %#x", p.path, base)
	}

	virt := uintptr(unsafe.Pointer(&data[0])) + uintptr(delta)

	p.mu.Lock()
	p.maps[virt] = &mapping{data: data, delta: delta, size: size}
	p.mu.Unlock()

	logrus.Debugf("Mapped %v: phys %#x size %d -> %#x", name, phys, size, virt)

	return virt, nil
}

func (p *DevMemProvider) Unmap(virt uintptr, size int) {
	p.mu.Lock()
	m, ok := p.maps[virt]
	delete(p.maps, virt)
	p.mu.Unlock()

	if !ok {
		logrus.Debugf("No mapping at %#x, nothing to release", virt)
		return
	}

	if err := unix.Munmap(m.data); err != nil {
		logrus.Warnf("Could not release mapping at %#x: %v", virt, err)
	}
}

// Window returns the bytes of the mapping handed out as 'virt'.
func (p *DevMemProvider) Window(virt uintptr) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.maps[virt]
	if !ok {
		return nil, false
	}

	return m.data[m.delta : m.delta+m.size], true
}

// Mappings returns the number of live mappings.
func (p *DevMemProvider) Mappings() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.maps)
}
