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

	"github.com/stretchr/testify/assert"

	"github.com/metalbox-io/smartd-go/internal/smartd/state"
)

func TestEvaluateSelfTestLogIncreaseIsCritical(t *testing.T) {
	persist := state.NewPersistState()
	persist.SelfTestErrorCount = 1
	persist.SelfTestErrorHour = 100

	outcome := evaluateSelfTestLog(persist, 2, 150)
	assert.True(t, outcome.Increased)
	assert.Equal(t, 2, persist.SelfTestErrorCount)
	assert.Equal(t, uint16(150), persist.SelfTestErrorHour)
}

func TestEvaluateSelfTestLogSameCountNewHour(t *testing.T) {
	persist := state.NewPersistState()
	persist.SelfTestErrorCount = 1
	persist.SelfTestErrorHour = 100

	outcome := evaluateSelfTestLog(persist, 1, 400)
	assert.True(t, outcome.NewHour)
	assert.False(t, outcome.Increased)
}

func TestEvaluateSelfTestLogDecreaseClears(t *testing.T) {
	persist := state.NewPersistState()
	persist.SelfTestErrorCount = 3
	persist.SelfTestErrorHour = 100

	outcome := evaluateSelfTestLog(persist, 0, 0)
	assert.True(t, outcome.Decreased)
	assert.Equal(t, 0, persist.SelfTestErrorCount)
}

func TestEvaluateSelfTestLogUnchangedIsQuiet(t *testing.T) {
	persist := state.NewPersistState()
	persist.SelfTestErrorCount = 1
	persist.SelfTestErrorHour = 100

	outcome := evaluateSelfTestLog(persist, 1, 100)
	assert.False(t, outcome.Increased)
	assert.False(t, outcome.Decreased)
	assert.False(t, outcome.NewHour)
}
