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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalbox-io/smartd-go/internal/smartd/devconfig"
	"github.com/metalbox-io/smartd-go/internal/smartd/state"
)

// TestPipelineRaiseDailyNoRepeatWithinWindow covers the case:
// reload preserves throttles, so a daily-policy warning dispatched once
// must not dispatch again for the same condition within 24h even across
// a fresh Pipeline (simulating a SIGHUP reload that reparses config but
// reuses the persisted state).
func TestPipelineRaiseDailyNoRepeatWithinWindow(t *testing.T) {
	persist := state.NewPersistState()
	var sends int
	p := &Pipeline{
		Warning: devconfig.WarningConfig{ExecPath: "/bin/true", Policy: devconfig.WarnPolicyDaily},
		Send:    func(context.Context, Dispatch) error { sends++; return nil },
	}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dispatched := p.Raise(context.Background(), persist, TypeUsage, "/dev/sda", "ata", "/dev/sda", "info", "usage warning", now)
	require.True(t, dispatched)
	assert.Equal(t, 1, sends)
	assert.Equal(t, int64(1), persist.Warnings[string(TypeUsage)].Count)

	// Reload: fresh pipeline, same persisted throttle, condition still
	// present 6 hours later.
	reloaded := &Pipeline{
		Warning: devconfig.WarningConfig{ExecPath: "/bin/true", Policy: devconfig.WarnPolicyDaily},
		Send:    func(context.Context, Dispatch) error { sends++; return nil },
	}
	dispatched = reloaded.Raise(context.Background(), persist, TypeUsage, "/dev/sda", "ata", "/dev/sda", "info", "usage warning", now.Add(6*time.Hour))
	assert.False(t, dispatched)
	assert.Equal(t, 1, sends, "no dispatch should occur before the daily window elapses")

	dispatched = reloaded.Raise(context.Background(), persist, TypeUsage, "/dev/sda", "ata", "/dev/sda", "info", "usage warning", now.Add(24*time.Hour))
	assert.True(t, dispatched)
	assert.Equal(t, 2, sends)
}

func TestPipelineRaiseSkipsWhenNoDestination(t *testing.T) {
	persist := state.NewPersistState()
	p := &Pipeline{
		Warning: devconfig.WarningConfig{Policy: devconfig.WarnPolicyAlways},
		Send:    func(context.Context, Dispatch) error { t.Fatal("Send must not be called"); return nil },
	}
	dispatched := p.Raise(context.Background(), persist, TypeHealth, "", "", "", "", "", time.Now())
	assert.False(t, dispatched)
}

func TestPipelineClearRemovesThrottle(t *testing.T) {
	persist := state.NewPersistState()
	persist.Warnings[string(TypeTemperature)] = state.WarningThrottle{Count: 3}
	p := &Pipeline{}
	p.Clear(persist, TypeTemperature)
	_, ok := persist.Warnings[string(TypeTemperature)]
	assert.False(t, ok)
}
