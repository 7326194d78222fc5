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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFdSet_SetClrIsSet(t *testing.T) {
	var s FdSet

	tests := []struct {
		name string
		fd   Fd
		want bool
	}{
		{"first", 0, true},
		{"word boundary low", 63, true},
		{"word boundary high", 64, true},
		{"last", FdSetSize - 1, true},
		{"negative", -1, false},
		{"beyond capacity", FdSetSize, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.Set(tt.fd)
			assert.Equal(t, tt.want, s.IsSet(tt.fd))

			s.Clr(tt.fd)
			assert.False(t, s.IsSet(tt.fd))
		})
	}

	assert.Equal(t, 0, s.Count())
}

func TestFdSet_Nil(t *testing.T) {
	var s *FdSet

	assert.NotPanics(t, func() {
		s.Set(3)
		s.Clr(3)
		s.Zero()
	})
	assert.False(t, s.IsSet(3))
	assert.Equal(t, 0, s.Count())
	assert.Nil(t, s.Fds(FdSetSize))
}

func TestFdSet_ZeroAndFds(t *testing.T) {
	var s FdSet

	for _, fd := range []Fd{9, 2, 130, 700} {
		s.Set(fd)
	}

	assert.Equal(t, 4, s.Count())
	assert.Equal(t, []Fd{2, 9, 130}, s.Fds(700))
	assert.Equal(t, []Fd{2, 9, 130, 700}, s.Fds(FdSetSize+10))

	s.Zero()
	assert.Equal(t, 0, s.Count())
	assert.Empty(t, s.Fds(FdSetSize))
}

func TestFd_Valid(t *testing.T) {
	assert.True(t, Fd(0).Valid())
	assert.True(t, Fd(17).Valid())
	assert.False(t, InvalidFd.Valid())
}
