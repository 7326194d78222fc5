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

// Fd is an opaque descriptor identifying an open device or socket. It is owned
// by the caller that obtained it until explicitly closed.
type Fd int

const InvalidFd Fd = -1

func (fd Fd) Valid() bool {
	return fd >= 0
}

// FdSetSize is the capacity of an FdSet, matching FD_SETSIZE on linux.
const FdSetSize = 1024

const fdBitsPerWord = 64

//
// FdSet is the descriptor set used for multiplexed waits. Backends translate
// it to their native representation. Methods are safe on a nil set: mutators
// do nothing and IsSet reports false. Descriptors outside [0, FdSetSize) are
// ignored.
//
type FdSet struct {
	Bits [FdSetSize / fdBitsPerWord]uint64
}

func fdInRange(fd Fd) bool {
	return fd >= 0 && fd < FdSetSize
}

func (s *FdSet) Set(fd Fd) {
	if s == nil || !fdInRange(fd) {
		return
	}
	s.Bits[fd/fdBitsPerWord] |= 1 << (uint(fd) % fdBitsPerWord)
}

func (s *FdSet) Clr(fd Fd) {
	if s == nil || !fdInRange(fd) {
		return
	}
	s.Bits[fd/fdBitsPerWord] &^= 1 << (uint(fd) % fdBitsPerWord)
}

func (s *FdSet) IsSet(fd Fd) bool {
	if s == nil || !fdInRange(fd) {
		return false
	}

	return s.Bits[fd/fdBitsPerWord]&(1<<(uint(fd)%fdBitsPerWord)) != 0
}

func (s *FdSet) Zero() {
	if s == nil {
		return
	}
	s.Bits = [FdSetSize / fdBitsPerWord]uint64{}
}

// Count returns the number of descriptors present in the set.
func (s *FdSet) Count() int {
	if s == nil {
		return 0
	}

	var n int
	for fd := Fd(0); fd < FdSetSize; fd++ {
		if s.IsSet(fd) {
			n++
		}
	}

	return n
}

// Fds returns the descriptors present in the set below 'max', in ascending
// order.
func (s *FdSet) Fds(max Fd) []Fd {
	if s == nil {
		return nil
	}
	if max > FdSetSize {
		max = FdSetSize
	}

	var fds []Fd
	for fd := Fd(0); fd < max; fd++ {
		if s.IsSet(fd) {
			fds = append(fds, fd)
		}
	}

	return fds
}
