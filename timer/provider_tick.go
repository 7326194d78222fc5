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
	"math"
	"runtime"
	"time"

	"github.com/nestybox/sysbox-osal/domain"
)

// Highest second count the 32-bit millisecond tick counter can express.
const tickMaxSec = domain.Time(math.MaxUint32 / 1000)

//
// tickProvider mimics the RTOS kernels (eCos, Nucleus, XAPI): time is a 32-bit
// millisecond tick counter started at boot, millisecond sleeps go through the
// scheduler and microsecond sleeps are calibrated busy waits.
//
type tickProvider struct {
	boot  time.Time
	delay *busyDelay
	ticks func() domain.Time // overridable for wraparound tests
}

func newTickProvider() *tickProvider {
	tp := &tickProvider{
		boot:  time.Now(),
		delay: &busyDelay{},
	}
	tp.ticks = tp.bootTicks

	return tp
}

// Truncation to 32 bits is the counter rollover.
func (tp *tickProvider) bootTicks() domain.Time {
	return domain.Time(uint64(time.Since(tp.boot).Milliseconds()))
}

// USecSleep never calls the scheduler.
func (tp *tickProvider) USecSleep(us domain.Time) {
	tp.delay.Delay(us)
}

// MSecSleep with a zero argument forces a reschedule.
func (tp *tickProvider) MSecSleep(ms domain.Time) {
	if ms == 0 {
		runtime.Gosched()
		return
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func (tp *tickProvider) SecSleep(sec domain.Time) {
	if sec == 0 {
		runtime.Gosched()
		return
	}
	time.Sleep(time.Duration(sec) * time.Second)
}

// Even with a wraparound of the tick counter the unsigned difference is the
// right delta.
func (tp *tickProvider) ElapsedTimeMSecGet(ref domain.Time) domain.Time {
	return tp.ticks() - ref
}

func (tp *tickProvider) ElapsedTimeSecGet(ref domain.Time) domain.Time {
	cur := tp.ticks() / 1000

	if ref == 0 {
		return cur
	}
	if cur >= ref {
		return cur - ref
	}

	return tickMaxSec - ref + cur
}

func (tp *tickProvider) SysTimeGet() domain.Time {
	return domain.Time(time.Now().Unix())
}
