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
	"context"
	"time"

	"github.com/metalbox-io/smartd-go/internal/smartd/devconfig"
	"github.com/metalbox-io/smartd-go/internal/smartd/state"
	"github.com/metalbox-io/smartd-go/internal/smartd/transport"
)

func powerModeDisallowed(policy devconfig.PowerSkipMode, mode transport.PowerMode) bool {
	switch policy {
	case devconfig.PowerSkipSleep:
		return mode == transport.PowerModeSleeping
	case devconfig.PowerSkipStandby:
		return mode == transport.PowerModeSleeping || mode == transport.PowerModeStandby
	case devconfig.PowerSkipIdle:
		return mode == transport.PowerModeSleeping || mode == transport.PowerModeStandby || mode == transport.PowerModeIdle
	default:
		return false
	}
}

// shouldSkipForPowerMode implements the step 1's power-mode skip
// policy, including the repeat cap and the temperature-grace-deadline
// reset when a run of skips ends.
func shouldSkipForPowerMode(ctx context.Context, ata transport.ATACommands, policy devconfig.PowerSkipPolicy, temp *state.TempState) bool {
	mode, err := ata.CheckPowerMode(ctx)
	if err != nil {
		temp.PowerModeCheckFailed = true
		return false
	}
	temp.PowerModeCheckFailed = false

	if !powerModeDisallowed(policy.Mode, mode) {
		if temp.ConsecutiveSkipped > 0 {
			temp.ConsecutiveSkipped = 0
			temp.TempMinDelayDeadline = time.Time{}
		}
		return false
	}

	if policy.RepeatCap > 0 && temp.ConsecutiveSkipped >= policy.RepeatCap {
		temp.ConsecutiveSkipped = 0
		return false
	}

	temp.ConsecutiveSkipped++
	temp.LastSkippedPowerMode = mode.String()
	return true
}
