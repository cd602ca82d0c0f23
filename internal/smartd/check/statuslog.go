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
	"github.com/metalbox-io/smartd-go/internal/smartd/decode"
	"github.com/metalbox-io/smartd-go/internal/smartd/state"
)

// evaluateOfflineStatus implements the offline-data-collection half of
// the: a transition is reported whenever the decoded status
// (never-started/completed-ok/in-progress/suspended/aborted-by-host/
// aborted-fatal-error) differs from the prior cycle's, with
// aborted-fatal-error critical.
func evaluateOfflineStatus(temp *state.TempState, raw uint8) (*StatusTransition, error) {
	cur := uint8(decode.DecodeOfflineDataCollectionStatus(raw))
	if !temp.HaveOfflineStatus {
		temp.HaveOfflineStatus = true
		temp.LastOfflineStatus = cur
		return nil, nil
	}
	if cur == temp.LastOfflineStatus {
		return nil, nil
	}
	t := &StatusTransition{
		From:     temp.LastOfflineStatus,
		To:       cur,
		Critical: decode.OfflineDataCollectionStatus(cur).IsCritical(),
	}
	temp.LastOfflineStatus = cur
	return t, nil
}

// evaluateSelfTestStatus implements self-test-execution status transition
// detection: transitions are compared on the decoded status code, not the
// in-progress percent-remaining nibble, so a running test's percentage
// ticking up does not itself generate a transition line.
func evaluateSelfTestStatus(temp *state.TempState, raw uint8) (*StatusTransition, error) {
	decoded := decode.DecodeSelfTestExecutionStatus(raw)
	cur := uint8(decoded.Status)
	if !temp.HaveSelfTestStatus {
		temp.HaveSelfTestStatus = true
		temp.LastSelfTestStatus = cur
		return nil, nil
	}
	if cur == temp.LastSelfTestStatus {
		return nil, nil
	}
	t := &StatusTransition{
		From:     temp.LastSelfTestStatus,
		To:       cur,
		Critical: decoded.Status.IsCritical(),
	}
	temp.LastSelfTestStatus = cur
	return t, nil
}
