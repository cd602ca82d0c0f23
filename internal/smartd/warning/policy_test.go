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

package warning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/metalbox-io/smartd-go/internal/smartd/devconfig"
	"github.com/metalbox-io/smartd-go/internal/smartd/state"
)

func TestAllowedOnceNeverRepeats(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh := state.WarningThrottle{}
	assert.True(t, Allowed(devconfig.WarnPolicyOnce, fresh, now))

	sent := Increment(fresh, now)
	assert.False(t, Allowed(devconfig.WarnPolicyOnce, sent, now.Add(365*24*time.Hour)))
}

func TestAllowedAlwaysAlwaysAllows(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	throttle := Increment(state.WarningThrottle{}, now)
	assert.True(t, Allowed(devconfig.WarnPolicyAlways, throttle, now))
	assert.True(t, Allowed(devconfig.WarnPolicyAlways, throttle, now.Add(time.Second)))
}

func TestAllowedDailyRequiresElapsedDay(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	throttle := Increment(state.WarningThrottle{}, now)

	assert.False(t, Allowed(devconfig.WarnPolicyDaily, throttle, now.Add(23*time.Hour)))
	assert.True(t, Allowed(devconfig.WarnPolicyDaily, throttle, now.Add(24*time.Hour)))
}

// TestAllowedDiminishingGapDoubles walks the diminishing policy through
// several dispatches and checks the gap before each is allowed matches
// 2^min(n-2,5) days, where n is the dispatch number about to be sent.
func TestAllowedDiminishingGapDoubles(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	throttle := state.WarningThrottle{}

	wantGapDays := []int{1, 2, 4, 8, 16, 32, 32, 32}
	for _, days := range wantGapDays {
		require := assert.New(t)
		require.True(Allowed(devconfig.WarnPolicyDiminishing, throttle, now), "expected allowed before gap %d", days)
		throttle = Increment(throttle, now)

		justBefore := now.Add(time.Duration(days)*24*time.Hour - time.Minute)
		require.False(Allowed(devconfig.WarnPolicyDiminishing, throttle, justBefore), "gap %d: should not be allowed early", days)

		atGap := now.Add(time.Duration(days) * 24 * time.Hour)
		require.True(Allowed(devconfig.WarnPolicyDiminishing, throttle, atGap), "gap %d: should be allowed once elapsed", days)
		now = atGap
	}
}

func TestAllowedTestAndExecAlwaysAllow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	throttle := Increment(state.WarningThrottle{}, now)
	assert.True(t, Allowed(devconfig.WarnPolicyTest, throttle, now))
	assert.True(t, Allowed(devconfig.WarnPolicyExec, throttle, now))
}

func TestAllowedUnsetPolicyDenies(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, Allowed(devconfig.WarnPolicyUnset, state.WarningThrottle{}, now))
}

func TestIncrementSetsFirstSentOnlyOnce(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	throttle := Increment(state.WarningThrottle{}, t0)
	assert.Equal(t, t0, throttle.FirstSent)
	assert.Equal(t, int64(1), throttle.Count)

	t1 := t0.Add(time.Hour)
	throttle = Increment(throttle, t1)
	assert.Equal(t, t0, throttle.FirstSent, "first-sent must not move on later dispatches")
	assert.Equal(t, int64(2), throttle.Count)
	assert.Equal(t, t1, throttle.LastSent)
}

func TestResetClearsThrottle(t *testing.T) {
	assert.Equal(t, state.WarningThrottle{}, Reset())
}
