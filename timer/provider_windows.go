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
	"time"

	"golang.org/x/sys/windows"

	"github.com/nestybox/sysbox-osal/domain"
)

// windowsProvider uses the Win32 scheduler and tick counter.
type windowsProvider struct{}

func newWindowsProvider() *windowsProvider {
	return &windowsProvider{}
}

// The Win32 scheduler has millisecond granularity; microsecond requests are
// rounded up so the wait is never shorter than asked.
func (wp *windowsProvider) USecSleep(us domain.Time) {
	windows.SleepEx(uint32((uint64(us)+999)/1000), false)
}

// SleepEx(0) relinquishes the rest of the time slice.
func (wp *windowsProvider) MSecSleep(ms domain.Time) {
	windows.SleepEx(ms, false)
}

func (wp *windowsProvider) SecSleep(sec domain.Time) {
	if sec == 0 {
		windows.SleepEx(0, false)
		return
	}
	for ; sec > 0; sec-- {
		windows.SleepEx(1000, false)
	}
}

// Milliseconds since boot, the GetTickCount64 counter.
func bootMSec() uint64 {
	return uint64(windows.DurationSinceBoot().Milliseconds())
}

func (wp *windowsProvider) ElapsedTimeMSecGet(ref domain.Time) domain.Time {
	return domain.Time(bootMSec()) - ref
}

func (wp *windowsProvider) ElapsedTimeSecGet(ref domain.Time) domain.Time {
	return domain.Time(bootMSec()/1000) - ref
}

func (wp *windowsProvider) SysTimeGet() domain.Time {
	return domain.Time(time.Now().Unix())
}
