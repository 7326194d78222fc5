//go:build windows

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

package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nestybox/sysbox-osal/domain"
)

func TestWindowsProvider_Elapsed(t *testing.T) {
	wp := newWindowsProvider()

	t0 := wp.ElapsedTimeMSecGet(0)
	assert.NotZero(t, t0)

	wp.MSecSleep(50)

	delta := wp.ElapsedTimeMSecGet(t0)
	// The tick counter advances in scheduler quanta of 10-16ms.
	assert.True(t, delta >= 30 && delta < 5000, "delta %d", delta)

	s0 := wp.ElapsedTimeSecGet(0)
	assert.True(t, wp.ElapsedTimeSecGet(s0) <= domain.Time(1))
}
