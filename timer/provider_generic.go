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
	"runtime"
	"time"

	"github.com/nestybox/sysbox-osal/domain"
)

// genericProvider relies on the Go runtime clock and timers only.
type genericProvider struct {
	start time.Time
}

func newGenericProvider() *genericProvider {
	return &genericProvider{start: time.Now()}
}

func (gp *genericProvider) sleep(d time.Duration) {
	if d == 0 {
		runtime.Gosched()
		return
	}
	time.Sleep(d)
}

func (gp *genericProvider) USecSleep(us domain.Time) {
	gp.sleep(time.Duration(us) * time.Microsecond)
}

func (gp *genericProvider) MSecSleep(ms domain.Time) {
	gp.sleep(time.Duration(ms) * time.Millisecond)
}

func (gp *genericProvider) SecSleep(sec domain.Time) {
	gp.sleep(time.Duration(sec) * time.Second)
}

func (gp *genericProvider) ElapsedTimeMSecGet(ref domain.Time) domain.Time {
	now := domain.Time(uint64(time.Since(gp.start).Milliseconds()))
	return now - ref
}

func (gp *genericProvider) ElapsedTimeSecGet(ref domain.Time) domain.Time {
	now := domain.Time(uint64(time.Since(gp.start) / time.Second))
	return now - ref
}

func (gp *genericProvider) SysTimeGet() domain.Time {
	return domain.Time(time.Now().Unix())
}
