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

package timer

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/nestybox/sysbox-osal/domain"
)

// linuxProvider drives the kernel clocks directly.
type linuxProvider struct{}

func newLinuxProvider() *linuxProvider {
	return &linuxProvider{}
}

// nanoSleep sleeps for the time held in 'ts'. When interrupted by a signal
// the kernel leaves the remaining time in 'ts' and the sleep is resumed.
func nanoSleep(ts *unix.Timespec) {
	for {
		err := unix.Nanosleep(ts, ts)
		if err == nil {
			return
		}
		if err == unix.EINTR {
			continue
		}

		logrus.Warnf("nanosleep failed: %v", err)
		return
	}
}

func (lp *linuxProvider) USecSleep(us domain.Time) {
	ts := unix.NsecToTimespec(int64(us) * 1000)
	nanoSleep(&ts)
}

func (lp *linuxProvider) MSecSleep(ms domain.Time) {
	ts := unix.NsecToTimespec(int64(ms) * 1000 * 1000)
	nanoSleep(&ts)
}

func (lp *linuxProvider) SecSleep(sec domain.Time) {
	ts := unix.NsecToTimespec(int64(sec) * 1000 * 1000 * 1000)
	nanoSleep(&ts)
}

func monotonic() (unix.Timespec, bool) {
	var ts unix.Timespec

	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		logrus.Errorf("clock_gettime(CLOCK_MONOTONIC) failed: %v", err)
		return ts, false
	}

	return ts, true
}

func (lp *linuxProvider) ElapsedTimeMSecGet(ref domain.Time) domain.Time {
	ts, ok := monotonic()
	if !ok {
		return 0
	}

	now := domain.Time(uint64(ts.Sec)*1000 + uint64(ts.Nsec)/1000000)

	return now - ref
}

func (lp *linuxProvider) ElapsedTimeSecGet(ref domain.Time) domain.Time {
	ts, ok := monotonic()
	if !ok {
		return 0
	}

	return domain.Time(ts.Sec) - ref
}

func (lp *linuxProvider) SysTimeGet() domain.Time {
	t, err := unix.Time(nil)
	if err != nil {
		return 0
	}

	return domain.Time(t)
}
