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
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metalbox-io/smartd-go/internal/smartd/decode"
	"github.com/metalbox-io/smartd-go/internal/smartd/devconfig"
	"github.com/metalbox-io/smartd-go/internal/smartd/registrar"
	"github.com/metalbox-io/smartd-go/internal/smartd/selftest"
	"github.com/metalbox-io/smartd-go/internal/smartd/state"
	"github.com/metalbox-io/smartd-go/internal/smartd/transport"
	"github.com/metalbox-io/smartd-go/internal/smartd/warning"
)

func runNVMe(ctx context.Context, dev *registrar.EnrolledDevice, sched *selftest.Schedule, pipe *warning.Pipeline, now time.Time, deviceString, deviceInfo string) error {
	cfg := dev.Config
	persist := dev.Persist
	temp := dev.Temp

	nv, ok := dev.Device.AsNVMe()
	if !ok {
		return fmt.Errorf("check %s: device reports nvme but AsNVMe failed", deviceString)
	}

	raw, err := nv.GetSMARTHealthLog(ctx, 0)
	if err != nil {
		pipe.Raise(ctx, persist, warning.TypeFailedReadSmartData, deviceString, "nvme", deviceString, deviceInfo,
			"NVMe SMART/health log read failed", now)
		return fmt.Errorf("read nvme health log %s: %w", deviceString, err)
	}
	health, err := decode.DecodeNVMeHealthLog(raw)
	if err != nil {
		return fmt.Errorf("decode nvme health log %s: %w", deviceString, err)
	}
	pipe.Clear(persist, warning.TypeFailedReadSmartData)

	if cfg.Concerns.Has(devconfig.ConcernHealth) {
		mask := cfg.NVMeHealthMask
		if mask == 0 {
			mask = 0xff
		}
		if critical, message := evaluateNVMeHealth(mask, health); critical {
			pipe.Raise(ctx, persist, warning.TypeHealth, deviceString, "nvme", deviceString, deviceInfo, message, now)
		}
	}

	outcome := updateTemperature(persist, temp, cfg.TempThresholds, health.TemperatureCelsius, now, effectiveInterval(cfg))
	applyTemperatureOutcome(ctx, pipe, persist, deviceString, deviceInfo, outcome, now)

	prevHealth := persist.NVMeHealth
	if health.AvailableSpare < prevHealth.AvailableSpare {
		log.Info().Str("device", deviceString).Uint8("available_spare", health.AvailableSpare).Msg("nvme available spare decreased")
	}
	mediaErrors := health.MediaErrors.Display()
	persist.NVMeHealth = state.NVMeHealthSubset{
		AvailableSpare: health.AvailableSpare,
		PercentUsed:    health.PercentageUsed,
		MediaErrors:    mediaErrors,
	}

	if cfg.Concerns.Has(devconfig.ConcernErrorLog) {
		errRaw, err := nv.GetErrorInfoLog(ctx, 16)
		if err != nil {
			pipe.Raise(ctx, persist, warning.TypeFailedReadSmartErrorLog, deviceString, "nvme", deviceString, deviceInfo,
				"NVMe error info log read failed", now)
		} else {
			entries := decodeNVMeErrorEntries(errRaw)
			count := 0
			for _, e := range entries {
				if !e.IsUnused() {
					count++
				}
			}
			if evaluateErrorCount(persist, transport.KindNVMe, count, entries) {
				pipe.Raise(ctx, persist, warning.TypeErrorCount, deviceString, "nvme", deviceString, deviceInfo,
					fmt.Sprintf("NVMe error log entry count increased to %d", count), now)
			}
		}
	}

	if cfg.Concerns.Has(devconfig.ConcernSelfTestLog) {
		stRaw, err := nv.GetSelfTestLog(ctx)
		if err != nil {
			pipe.Raise(ctx, persist, warning.TypeFailedReadSmartSelfTestLog, deviceString, "nvme", deviceString, deviceInfo,
				"NVMe self-test log read failed", now)
		} else if stLog, err := decode.DecodeNVMeSelfTestLog(stRaw); err == nil {
			for _, e := range stLog.Results {
				if e.Result.IsCritical() {
					pipe.Raise(ctx, persist, warning.TypeSelfTest, deviceString, "nvme", deviceString, deviceInfo,
						"NVMe self-test log reported a non-passing result", now)
					break
				}
			}
			if sched != nil && !stLog.IsTestRunning() {
				maybeStartNVMeSelfTest(ctx, dev, nv, sched, now)
			}
		}
	}

	temp.MustWrite = true
	temp.AttrlogValid = true
	temp.AttrlogProtocol = "nvme"
	return nil
}

// decodeNVMeErrorEntries decodes a buffer of contiguous 64-byte NVMe
// error-log entries, tolerating a short trailing remainder.
func decodeNVMeErrorEntries(raw []byte) []decode.NVMeErrorLogEntry {
	const entrySize = 64
	var entries []decode.NVMeErrorLogEntry
	for off := 0; off+entrySize <= len(raw); off += entrySize {
		e, err := decode.DecodeNVMeErrorLogEntry(raw[off : off+entrySize])
		if err != nil {
			break
		}
		entries = append(entries, e)
	}
	return entries
}

func evaluateNVMeHealth(mask uint8, health decode.NVMeHealthLog) (critical bool, message string) {
	if health.CriticalWarning.AnyMasked(mask) {
		return true, decode.FormatNVMeCriticalWarning(health.CriticalWarning.Raw, mask)
	}
	return false, ""
}

func maybeStartNVMeSelfTest(ctx context.Context, dev *registrar.EnrolledDevice, nv transport.NVMeCommands, sched *selftest.Schedule, now time.Time) {
	persist := dev.Persist
	temp := dev.Temp

	capable := func(typ selftest.TestType) bool {
		switch typ {
		case selftest.TypeShort:
			return !temp.NotCapShort
		case selftest.TypeLong:
			return !temp.NotCapLong
		default:
			return false // NVMe has no conveyance/selective/offline-immediate equivalent
		}
	}

	candidate, newWatermark := sched.Evaluate(persist.NextScheduledTest, now, capable)
	persist.NextScheduledTest = newWatermark
	temp.MustWrite = true
	if candidate == nil {
		return
	}
	if err := selftest.StartNVMeTest(ctx, nv, candidate.Type, 0); err != nil {
		log.Warn().Str("device", dev.Config.Name).Err(err).Msg("failed to start scheduled nvme self-test")
	}
}
