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
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinuxProvider_SleepSurvivesSignals(t *testing.T) {
	sigs := make(chan os.Signal, 64)
	signal.Notify(sigs, syscall.SIGUSR1)
	defer signal.Stop(sigs)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				syscall.Kill(os.Getpid(), syscall.SIGUSR1)
			}
		}
	}()

	lp := newLinuxProvider()

	start := time.Now()
	lp.MSecSleep(60)
	elapsed := time.Since(start)
	close(done)

	assert.True(t, elapsed >= 60*time.Millisecond, "slept %v", elapsed)
}

func TestLinuxProvider_USecSleep(t *testing.T) {
	lp := newLinuxProvider()

	start := time.Now()
	lp.USecSleep(1500)

	assert.True(t, time.Since(start) >= 1500*time.Microsecond)
}
