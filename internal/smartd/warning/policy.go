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

// Package warning implements the rate-limited warning pipeline (spec
// §4.8): per-type throttle policy evaluation and the external-process
// dispatch that actually notifies an operator.
package warning

import (
	"time"

	"github.com/metalbox-io/smartd-go/internal/smartd/devconfig"
	"github.com/metalbox-io/smartd-go/internal/smartd/state"
)

// MessageType enumerates the warning types the lists; Type zero
// (TypeEmailTest) is reserved for the non-persistent test email.
type MessageType string

const (
	TypeHealth                     MessageType = "Health"
	TypeUsage                      MessageType = "Usage"
	TypeSelfTest                   MessageType = "SelfTest"
	TypeErrorCount                 MessageType = "ErrorCount"
	TypeFailedHealthCheck          MessageType = "FailedHealthCheck"
	TypeFailedReadSmartData        MessageType = "FailedReadSmartData"
	TypeFailedReadSmartErrorLog    MessageType = "FailedReadSmartErrorLog"
	TypeFailedReadSmartSelfTestLog MessageType = "FailedReadSmartSelfTestLog"
	TypeFailedOpenDevice            MessageType = "FailedOpenDevice"
	TypeCurrentPendingSector       MessageType = "CurrentPendingSector"
	TypeOfflineUncorrectableSector MessageType = "OfflineUncorrectableSector"
	TypeTemperature                MessageType = "Temperature"
	TypeEmailTest                  MessageType = "EmailTest" // non-persistent
)

// dayDiminishingCap is the exponent cap in 2^min(n-2,5) days, where n is
// the dispatch number about to be sent (throttle.Count+1).
const dayDiminishingCap = 5

// Allowed evaluates the rate-limit policy for one dispatch attempt given
// the type's current throttle record.
func Allowed(policy devconfig.WarningPolicyKind, throttle state.WarningThrottle, now time.Time) bool {
	switch policy {
	case devconfig.WarnPolicyOnce:
		return throttle.Count == 0
	case devconfig.WarnPolicyAlways:
		return true
	case devconfig.WarnPolicyDaily:
		return throttle.Count == 0 || now.Sub(throttle.LastSent) >= 24*time.Hour
	case devconfig.WarnPolicyDiminishing:
		if throttle.Count == 0 {
			return true
		}
		n := throttle.Count + 1
		exp := n - 2
		if exp > dayDiminishingCap {
			exp = dayDiminishingCap
		}
		gap := time.Duration(1<<uint(exp)) * 24 * time.Hour
		return now.Sub(throttle.LastSent) >= gap
	case devconfig.WarnPolicyTest:
		return true
	case devconfig.WarnPolicyExec:
		return true
	default:
		return false
	}
}

// Increment records a successful dispatch (invariant I4: counters only
// increment when a dispatch is actually attempted).
func Increment(throttle state.WarningThrottle, now time.Time) state.WarningThrottle {
	if throttle.Count == 0 {
		throttle.FirstSent = now
	}
	throttle.Count++
	throttle.LastSent = now
	return throttle
}

// Reset clears a type's throttle record when the underlying condition
// clears (temperature drop, zero pending sectors, a successful log read).
func Reset() state.WarningThrottle {
	return state.WarningThrottle{}
}
