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

import "github.com/metalbox-io/smartd-go/internal/smartd/state"

// evaluateSelfTestLog implements the step 6: compares a freshly
// walked self-test log (errCount, errHour) against the stored snapshot
// and updates it in place.
func evaluateSelfTestLog(persist *state.PersistState, errCount int, errHour uint16) SelfTestLogOutcome {
	prevCount := persist.SelfTestErrorCount
	prevHour := persist.SelfTestErrorHour

	outcome := SelfTestLogOutcome{ErrorCount: errCount, ErrorHour: errHour}

	switch {
	case errCount > prevCount:
		outcome.Increased = true
	case errCount < prevCount:
		outcome.Decreased = true
	case errCount > 0 && errHour != prevHour:
		// Same count, different hour: the circular log wrapped and
		// reports a different most-recent failure than last cycle saw.
		outcome.NewHour = true
	}

	persist.SelfTestErrorCount = errCount
	persist.SelfTestErrorHour = errHour
	return outcome
}
