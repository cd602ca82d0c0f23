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

package check

import (
	"time"

	"github.com/metalbox-io/smartd-go/internal/smartd/devconfig"
	"github.com/metalbox-io/smartd-go/internal/smartd/state"
)

// minDelayTrailer is subtracted from the interval when arming the
// startup grace deadline, so the window closes slightly before the next
// check is due rather than exactly on it.
const minDelayTrailer = 60 * time.Second

// updateTemperature implements the per-cycle temperature logic (spec
// §4.6.1): first-cycle arming of the startup grace deadline, monotonic
// max, grace-gated min, change-line thresholding, and the
// critical/informational/recovery classification.
func updateTemperature(persist *state.PersistState, temp *state.TempState, th devconfig.TempThresholds, current int, now time.Time, interval time.Duration) TemperatureOutcome {
	prev := temp.LastTemperature
	firstCycle := persist.TemperatureMin == 0 && persist.TemperatureMax == 0

	if firstCycle {
		persist.TemperatureMin = current
		persist.TemperatureMax = current
		temp.TempMinDelayDeadline = now.Add(interval - minDelayTrailer)
		temp.LastTemperature = current
		return TemperatureOutcome{Current: current, ChangedLine: true}
	}

	minMoved, maxMoved := false, false

	if current > persist.TemperatureMax {
		persist.TemperatureMax = current
		maxMoved = true
	}

	inGrace := now.Before(temp.TempMinDelayDeadline)
	if current < persist.TemperatureMin {
		if !inGrace || current < persist.TemperatureMin-1 {
			persist.TemperatureMin = current
			minMoved = true
		}
	}

	changed := minMoved || maxMoved
	if th.Diff > 0 {
		diff := current - prev
		if diff < 0 {
			diff = -diff
		}
		if diff >= th.Diff {
			changed = true
		}
	}

	temp.LastTemperature = current

	outcome := TemperatureOutcome{Current: current, ChangedLine: changed}
	switch {
	case th.Critical > 0 && current >= th.Critical:
		outcome.Critical = true
	case th.Info > 0 && current >= th.Info:
		outcome.Informational = true
	}

	clearAt := th.Info
	if th.Critical > 0 {
		recover := th.Critical - 5
		if clearAt == 0 || recover < clearAt {
			clearAt = recover
		}
	}
	if clearAt > 0 && current < clearAt && !outcome.Critical && !outcome.Informational {
		outcome.Recovered = true
	}

	return outcome
}
