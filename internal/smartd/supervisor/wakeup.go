// Copyright 2024 Clyso GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package supervisor

import (
	"time"

	"github.com/metalbox-io/smartd-go/internal/smartd/registrar"
)

// clockJumpGrace is how far actual sleep may overrun the requested
// interval before the supervisor assumes a resume from system standby
//.
const clockJumpGrace = 60 * time.Second

// resumeSettle is the I/O-settle pause inserted after a detected
// standby resume, before the next check pass runs.
const resumeSettle = 20 * time.Second

// nextWakeup computes the global wakeup time for the next cycle (spec
// §4.9). With no per-device checktime overrides, it wakes at
// now + interval - ((now - prevWakeup) mod interval). When any device
// carries its own CheckInterval, each device's own next wakeup is
// computed from its own interval and the earliest wins; devices whose
// individual wakeup falls after the earliest are marked skip for the
// next cycle.
func nextWakeup(devices []*registrar.EnrolledDevice, globalInterval time.Duration, prevWakeup, now time.Time) time.Time {
	anyOverride := false
	for _, d := range devices {
		if d.Config.CheckInterval > 0 {
			anyOverride = true
			break
		}
	}

	if !anyOverride {
		if prevWakeup.IsZero() {
			return now.Add(globalInterval)
		}
		elapsed := now.Sub(prevWakeup) % globalInterval
		return now.Add(globalInterval - elapsed)
	}

	earliest := now.Add(globalInterval)
	for _, d := range devices {
		interval := d.Config.CheckInterval
		if interval <= 0 {
			interval = globalInterval
		}
		candidate := now.Add(interval)
		if candidate.Before(earliest) {
			earliest = candidate
		}
	}

	for _, d := range devices {
		interval := d.Config.CheckInterval
		if interval <= 0 {
			interval = globalInterval
		}
		d.Temp.Skip = now.Add(interval).After(earliest)
	}

	return earliest
}

// detectClockJump reports whether the actual elapsed sleep overran the
// requested duration by more than clockJumpGrace, indicating a resume
// from system standby.
func detectClockJump(requested, actual time.Duration) bool {
	return actual-requested > clockJumpGrace
}
