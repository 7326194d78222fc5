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
	"github.com/nestybox/sysbox-osal/domain"
)

// Ensure timeService implements the time facade.
var _ domain.TimeServiceIface = (*timeService)(nil)

type timeService struct {
	tp domain.TimeProviderIface // platform time backend
}

// NewTimeService returns the time facade bound to the backend selected for
// this build.
func NewTimeService() domain.TimeServiceIface {
	return NewTimeServiceWithProvider(newDefaultProvider())
}

func NewTimeServiceWithProvider(tp domain.TimeProviderIface) domain.TimeServiceIface {
	return &timeService{tp: tp}
}

func (ts *timeService) SleepMicroseconds(us domain.Time) {
	ts.tp.USecSleep(us)
}

func (ts *timeService) SleepMilliseconds(ms domain.Time) {
	ts.tp.MSecSleep(ms)
}

func (ts *timeService) SleepSeconds(sec domain.Time) {
	ts.tp.SecSleep(sec)
}

// ElapsedMillisecondsSince returns the current monotonic time in ms when 'ref'
// is zero, and the time elapsed since 'ref' otherwise.
func (ts *timeService) ElapsedMillisecondsSince(ref domain.Time) domain.Time {
	return ts.tp.ElapsedTimeMSecGet(ref)
}

func (ts *timeService) ElapsedSecondsSince(ref domain.Time) domain.Time {
	return ts.tp.ElapsedTimeSecGet(ref)
}

func (ts *timeService) CurrentWallClockSeconds() domain.Time {
	return ts.tp.SysTimeGet()
}
