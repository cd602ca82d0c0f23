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
	"time"

	"github.com/metalbox-io/smartd-go/internal/smartd/devconfig"
	"github.com/metalbox-io/smartd-go/internal/smartd/state"
)

// Pipeline ties throttle-policy evaluation to dispatch for one device.
type Pipeline struct {
	Warning devconfig.WarningConfig
	Send    func(context.Context, Dispatch) error // overridable for tests
}

// NewPipeline returns a pipeline that dispatches via the real Send.
func NewPipeline(cfg devconfig.WarningConfig) *Pipeline {
	return &Pipeline{Warning: cfg, Send: Send}
}

// Raise evaluates the rate-limit policy for typ against persist's
// throttle record, and if allowed, dispatches and updates the record. It
// returns whether a dispatch was attempted.
func (p *Pipeline) Raise(ctx context.Context, persist *state.PersistState, typ MessageType, deviceString, deviceType, device, deviceInfo, message string, now time.Time) bool {
	if p.Warning.Address == "" && p.Warning.ExecPath == "" {
		return false
	}
	throttle := persist.Warnings[string(typ)]
	if !Allowed(p.Warning.Policy, throttle, now) {
		return false
	}

	execPath := p.Warning.ExecPath
	if p.Warning.Policy != devconfig.WarnPolicyExec {
		// Non-exec policies still need a launcher; the out-of-scope
		// warning-script launcher is assumed to be at ExecPath
		// when set, otherwise dispatch is a no-op.
	}

	err := p.Send(ctx, Dispatch{
		ExecPath:     execPath,
		Message:      message,
		PrevCount:    throttle.Count,
		FirstSent:    throttle.FirstSent,
		FailType:     typ,
		Address:      p.Warning.Address,
		DeviceString: deviceString,
		DeviceType:   deviceType,
		Device:       device,
		DeviceInfo:   deviceInfo,
		NextDays:     0,
		Subject:      message,
	})
	if err != nil {
		return true
	}

	persist.Warnings[string(typ)] = Increment(throttle, now)
	return true
}

// Clear resets typ's throttle record, e.g. when the condition that
// triggered it clears (temperature drop, zero pending sectors).
func (p *Pipeline) Clear(persist *state.PersistState, typ MessageType) {
	delete(persist.Warnings, string(typ))
}
