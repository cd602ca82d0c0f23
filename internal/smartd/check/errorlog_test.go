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

	"github.com/metalbox-io/smartd-go/internal/smartd/decode"
	"github.com/metalbox-io/smartd-go/internal/smartd/state"
	"github.com/metalbox-io/smartd-go/internal/smartd/transport"
)

func TestEvaluateErrorCountATARaisesOnAnyIncrease(t *testing.T) {
	persist := state.NewPersistState()
	persist.ATAErrorCount = 2

	assert.True(t, evaluateErrorCount(persist, transport.KindATA, 3, nil))
	assert.Equal(t, 3, persist.ATAErrorCount)

	assert.False(t, evaluateErrorCount(persist, transport.KindATA, 3, nil))
}

func TestEvaluateErrorCountNVMeRequiresDeviceRelatedEntry(t *testing.T) {
	persist := state.NewPersistState()
	persist.NVMeErrorCount = 0

	entries := []decode.NVMeErrorLogEntry{
		{ErrorCount: 2, StatusCode: 0x0005}, // transport abort, not device-related
	}
	assert.False(t, evaluateErrorCount(persist, transport.KindNVMe, 1, entries))
	assert.Equal(t, 1, persist.NVMeErrorCount)
}

func TestEvaluateErrorCountNVMeRaisesOnDeviceRelatedEntry(t *testing.T) {
	persist := state.NewPersistState()
	persist.NVMeErrorCount = 0

	entries := []decode.NVMeErrorLogEntry{
		{ErrorCount: 2, StatusCode: 0x0100}, // device-related media/data error
	}
	assert.True(t, evaluateErrorCount(persist, transport.KindNVMe, 1, entries))
}
