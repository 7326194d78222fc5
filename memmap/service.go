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
	"github.com/sirupsen/logrus"

	"github.com/nestybox/sysbox-osal/domain"
)

var _ domain.MemMapServiceIface = (*memMapService)(nil)

type memMapService struct {
	mp domain.MemMapProviderIface
}

func NewMemMapService() domain.MemMapServiceIface {
	return NewMemMapServiceWithProvider(newDefaultProvider())
}

// NewMemMapServiceWithDevice maps through the given memory device where the
// platform maps physical memory through a device file.
func NewMemMapServiceWithDevice(path string) domain.MemMapServiceIface {
	return NewMemMapServiceWithProvider(newDeviceProvider(path))
}

func NewMemMapServiceWithProvider(mp domain.MemMapProviderIface) domain.MemMapServiceIface {
	return &memMapService{mp: mp}
}

//
// MapPhysicalToVirtual makes 'size' bytes at physical address 'phys'
// accessible and stores the resulting address in '*virt'. The output slot
// must be present and empty; a non-zero '*virt' is taken as a mapping still
// in use.
//
func (ms *memMapService) MapPhysicalToVirtual(
	phys uintptr,
	size int,
	name string,
	virt *uintptr) error {

	if virt == nil {
		logrus.Debugf("memmap %v: missing output address", name)
		return domain.Failure("memmap-map", nil)
	}
	if *virt != 0 {
		logrus.Debugf("memmap %v: output address in use (%#x)", name, *virt)
		return domain.Failure("memmap-map", nil)
	}
	if size <= 0 {
		logrus.Debugf("memmap %v: invalid size %d", name, size)
		return domain.Failure("memmap-map", nil)
	}

	v, err := ms.mp.Map(phys, size, name)
	if err != nil {
		logrus.Errorf("Could not map %v (phys %#x, size %d): %v", name, phys, size, err)
		return domain.Failure("memmap-map", err)
	}
	*virt = v

	return nil
}

// UnmapPhysicalToVirtual releases what MapPhysicalToVirtual established and
// clears both addresses. Missing or already cleared addresses are fine.
func (ms *memMapService) UnmapPhysicalToVirtual(phys *uintptr, size int, virt *uintptr) error {

	if virt != nil {
		if *virt != 0 {
			ms.mp.Unmap(*virt, size)
		}
		*virt = 0
	}
	if phys != nil {
		*phys = 0
	}

	return nil
}
