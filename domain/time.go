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

// Time values are 32-bit unsigned quantities; elapsed-time arithmetic relies
// on their wraparound.
type Time = uint32

// RecalibrateUs passed as a microsecond sleep time forces the busy-wait
// calibration to be recomputed on tick-based platforms.
const RecalibrateUs Time = 0xffffffff

//
// TimeServiceIface is the time capability facade. None of its methods can
// fail observably: backend errors collapse into a zero result.
//
type TimeServiceIface interface {
	SleepMicroseconds(us Time)
	SleepMilliseconds(ms Time)
	SleepSeconds(sec Time)
	ElapsedMillisecondsSince(ref Time) Time
	ElapsedSecondsSince(ref Time) Time
	CurrentWallClockSeconds() Time
}

//
// TimeProviderIface is implemented by every platform time backend. The
// facade adds nothing but logging on top of it, so providers own the
// platform-specific semantics (wraparound, interrupted-sleep recovery).
//
type TimeProviderIface interface {
	USecSleep(us Time)
	MSecSleep(ms Time)
	SecSleep(sec Time)
	ElapsedTimeMSecGet(ref Time) Time
	ElapsedTimeSecGet(ref Time) Time
	SysTimeGet() Time
}
