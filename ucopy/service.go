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

// Package ucopy moves buffers between user and driver space.
package ucopy

import (
	"github.com/sirupsen/logrus"

	"github.com/nestybox/sysbox-osal/domain"
)

var _ domain.CopyServiceIface = (*copyService)(nil)

type copyService struct {
	cp domain.CopyProviderIface
}

func NewCopyService() domain.CopyServiceIface {
	return NewCopyServiceWithProvider(newDefaultProvider())
}

func NewCopyServiceWithProvider(cp domain.CopyProviderIface) domain.CopyServiceIface {
	return &copyService{cp: cp}
}

func sizeOk(op string, to, from []byte, size int) bool {
	if to == nil || from == nil {
		logrus.Debugf("%s: missing buffer", op)
		return false
	}
	if size <= 0 || size > len(to) || size > len(from) {
		logrus.Debugf("%s: invalid size %d (to %d, from %d)", op, size, len(to), len(from))
		return false
	}

	return true
}

// CopyFromUserSpace copies 'size' bytes of the user buffer 'from' into 'to'.
// Returns to[:size], or nil if the whole range could not be copied.
func (cs *copyService) CopyFromUserSpace(to, from []byte, size int) []byte {
	if !sizeOk("copy-from-user", to, from, size) {
		return nil
	}

	n, err := cs.cp.CopyFromUser(to[:size], from[:size])
	if err != nil || n != size {
		logrus.Errorf("Copy from user space failed (%d of %d bytes): %v", n, size, err)
		return nil
	}

	return to[:size]
}

// CopyToUserSpace copies 'size' bytes of 'from' into the user buffer 'to'.
func (cs *copyService) CopyToUserSpace(to, from []byte, size int) []byte {
	if !sizeOk("copy-to-user", to, from, size) {
		return nil
	}

	n, err := cs.cp.CopyToUser(to[:size], from[:size])
	if err != nil || n != size {
		logrus.Errorf("Copy to user space failed (%d of %d bytes): %v", n, size, err)
		return nil
	}

	return to[:size]
}
