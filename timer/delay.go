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
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nestybox/sysbox-osal/domain"
)

// Minimum window the calibration spin has to cover to be trusted.
const calibrationWindow = 2 * time.Millisecond

// Written by spin() so the compiler keeps the loop.
var spinSink uint64

func spin(n uint64) {
	var s uint64
	for i := uint64(0); i < n; i++ {
		s += i
	}
	spinSink = s
}

//
// busyDelay implements microsecond waits without involving the scheduler,
// the way tick-based kernels do it: a spin loop whose per-microsecond
// iteration count is calibrated on first use. The count is the only
// process-wide mutable state of the layer; calibration is serialized and
// its result published atomically.
//
type busyDelay struct {
	mu    sync.Mutex
	loops atomic.Uint64 // spin iterations per microsecond, 0 = uncalibrated
}

// Delay busy-waits for 'us' microseconds. Passing domain.RecalibrateUs only
// recomputes the calibration.
func (d *busyDelay) Delay(us domain.Time) {
	if us == domain.RecalibrateUs {
		d.calibrate(true)
		return
	}

	loops := d.loops.Load()
	if loops == 0 {
		loops = d.calibrate(false)
	}

	spin(uint64(us) * loops)
}

// LoopsPerUsec returns the current calibration, computing it if needed.
func (d *busyDelay) LoopsPerUsec() uint64 {
	if loops := d.loops.Load(); loops != 0 {
		return loops
	}
	return d.calibrate(false)
}

func (d *busyDelay) calibrate(force bool) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Somebody else calibrated while we were waiting for the lock.
	if loops := d.loops.Load(); loops != 0 && !force {
		return loops
	}

	var (
		n       uint64 = 1 << 10
		elapsed time.Duration
	)

	for {
		start := time.Now()
		spin(n)
		elapsed = time.Since(start)

		if elapsed >= calibrationWindow || n >= 1<<40 {
			break
		}
		n <<= 1
	}

	usecs := uint64(elapsed.Microseconds())
	if usecs == 0 {
		usecs = 1
	}

	loops := n / usecs
	if loops == 0 {
		loops = 1
	}

	d.loops.Store(loops)

	logrus.Debugf("Busy-wait calibrated to %d loops/us (%d loops in %v)",
		loops, n, elapsed)

	return loops
}
