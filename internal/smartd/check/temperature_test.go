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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalbox-io/smartd-go/internal/smartd/devconfig"
	"github.com/metalbox-io/smartd-go/internal/smartd/state"
)

// TestUpdateTemperatureCriticalThenRecovery covers the case:
// -W 0,0,60, cur=62 reaches critical; next cycle cur=54 (<= 60-5=55)
// recovers.
func TestUpdateTemperatureCriticalThenRecovery(t *testing.T) {
	persist := state.NewPersistState()
	temp := state.NewTempState()
	th := devconfig.TempThresholds{Critical: 60}
	now := time.Now()

	first := updateTemperature(persist, temp, th, 40, now, DefaultInterval)
	require.False(t, first.Critical)

	second := updateTemperature(persist, temp, th, 62, now.Add(time.Minute), DefaultInterval)
	assert.True(t, second.Critical)

	third := updateTemperature(persist, temp, th, 54, now.Add(2*time.Minute), DefaultInterval)
	assert.False(t, third.Critical)
	assert.False(t, third.Informational)
	assert.True(t, third.Recovered)
}

func TestUpdateTemperatureFirstCycleArmsGraceDeadline(t *testing.T) {
	persist := state.NewPersistState()
	temp := state.NewTempState()
	now := time.Now()

	outcome := updateTemperature(persist, temp, devconfig.TempThresholds{}, 35, now, DefaultInterval)
	assert.Equal(t, 35, outcome.Current)
	assert.Equal(t, 35, persist.TemperatureMin)
	assert.Equal(t, 35, persist.TemperatureMax)
	assert.True(t, temp.TempMinDelayDeadline.After(now))
}

// TestUpdateTemperatureMinHoldsDuringGraceUnlessClear verifies invariant
// I3: the minimum is only narrowed during the grace window when the
// reading clearly (by more than 1 degree) undercuts the stored minimum.
func TestUpdateTemperatureMinHoldsDuringGraceUnlessClear(t *testing.T) {
	persist := state.NewPersistState()
	temp := state.NewTempState()
	now := time.Now()

	updateTemperature(persist, temp, devconfig.TempThresholds{}, 40, now, DefaultInterval)

	updateTemperature(persist, temp, devconfig.TempThresholds{}, 39, now.Add(time.Minute), DefaultInterval)
	assert.Equal(t, 40, persist.TemperatureMin, "small dip during grace should not narrow the minimum")

	updateTemperature(persist, temp, devconfig.TempThresholds{}, 20, now.Add(2*time.Minute), DefaultInterval)
	assert.Equal(t, 20, persist.TemperatureMin, "a clear drop during grace still narrows the minimum")
}

func TestUpdateTemperatureMaxIsMonotonic(t *testing.T) {
	persist := state.NewPersistState()
	temp := state.NewTempState()
	now := time.Now()

	updateTemperature(persist, temp, devconfig.TempThresholds{}, 50, now, DefaultInterval)
	updateTemperature(persist, temp, devconfig.TempThresholds{}, 45, now.Add(time.Hour), DefaultInterval)
	assert.Equal(t, 50, persist.TemperatureMax)

	updateTemperature(persist, temp, devconfig.TempThresholds{}, 55, now.Add(2*time.Hour), DefaultInterval)
	assert.Equal(t, 55, persist.TemperatureMax)
}

func TestUpdateTemperatureChangeLineOnDiffThreshold(t *testing.T) {
	persist := state.NewPersistState()
	temp := state.NewTempState()
	now := time.Now()
	th := devconfig.TempThresholds{Diff: 3}

	updateTemperature(persist, temp, th, 50, now, DefaultInterval)
	updateTemperature(persist, temp, th, 70, now.Add(time.Hour), DefaultInterval) // widens max to 70

	outcome := updateTemperature(persist, temp, th, 69, now.Add(2*time.Hour), DefaultInterval)
	assert.False(t, outcome.ChangedLine, "a 1-degree move under the 3-degree diff threshold, within the established range, should not log")

	outcome = updateTemperature(persist, temp, th, 65, now.Add(3*time.Hour), DefaultInterval)
	assert.True(t, outcome.ChangedLine)
}
