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

// Package check implements one monitoring cycle for one enrolled device
//: open, health, SMART data, attribute diffing, self-test and
// error logs, status transitions, and the self-test scheduler hand-off,
// wired against the transport, decode, state, registrar, selftest and
// warning packages.
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

// DefaultInterval arms the temperature startup-grace deadline (spec
// §4.6.1) when a device has no per-device checktime override.
const DefaultInterval = 30 * time.Minute

// ataTemperatureAttributeID is the well-known SMART attribute id carrying
// the drive's current temperature in its raw value's low byte.
const ataTemperatureAttributeID int64 = 194

// Run executes one monitoring cycle for one enrolled device. Errors returned are cycle failures the supervisor logs and
// moves past; they never abort the whole daemon.
func Run(ctx context.Context, dev *registrar.EnrolledDevice, sched *selftest.Schedule, pipe *warning.Pipeline, now time.Time) error {
	cfg := dev.Config
	temp := dev.Temp
	temp.MustWrite = false
	temp.Skip = false

	deviceString := cfg.Name
	deviceInfo := warning.FormatDeviceInfo(dev.Identity, dev.Kind.String())

	if err := dev.Device.Open(ctx); err != nil {
		return handleOpenFailure(ctx, dev, pipe, deviceString, deviceInfo, err, now)
	}
	defer dev.Device.Close()

	// Step 1: power-mode skip policy. The exec-based transport batches
	// identify/health/attributes into one smartctl invocation, so there is
	// no cheaper standalone probe to check power mode before paying the
	// cost of opening; this re-checks it against the device already
	// opened for this cycle instead.
	if dev.Kind == transport.KindATA && cfg.PowerSkip.Mode != devconfig.PowerSkipNever {
		if ata, ok := dev.Device.AsATA(); ok {
			if shouldSkipForPowerMode(ctx, ata, cfg.PowerSkip, temp) {
				temp.Skip = true
				return nil
			}
		}
	}

	switch dev.Kind {
	case transport.KindATA:
		return runATA(ctx, dev, sched, pipe, now, deviceString, deviceInfo)
	case transport.KindSCSI:
		return runSCSI(ctx, dev, pipe, now, deviceString, deviceInfo)
	case transport.KindNVMe:
		return runNVMe(ctx, dev, sched, pipe, now, deviceString, deviceInfo)
	default:
		return fmt.Errorf("check %s: transport reports no protocol", deviceString)
	}
}

func handleOpenFailure(ctx context.Context, dev *registrar.EnrolledDevice, pipe *warning.Pipeline, deviceString, deviceInfo string, err error, now time.Time) error {
	if dev.Config.Removable {
		log.Info().Str("device", deviceString).Err(err).Msg("removable device not present this cycle")
		dev.Temp.Removed = true
		return nil
	}
	pipe.Raise(ctx, dev.Persist, warning.TypeFailedOpenDevice, deviceString, dev.Kind.String(), deviceString, deviceInfo,
		fmt.Sprintf("Device open failed: %s", deviceString), now)
	return fmt.Errorf("open %s: %w", deviceString, err)
}

func runATA(ctx context.Context, dev *registrar.EnrolledDevice, sched *selftest.Schedule, pipe *warning.Pipeline, now time.Time, deviceString, deviceInfo string) error {
	cfg := dev.Config
	persist := dev.Persist
	temp := dev.Temp

	ata, ok := dev.Device.AsATA()
	if !ok {
		return fmt.Errorf("check %s: device reports ata but AsATA failed", deviceString)
	}

	// Step 3: health.
	if cfg.Concerns.Has(devconfig.ConcernHealth) {
		status, err := ata.SmartStatus(ctx)
		switch {
		case err != nil:
			pipe.Raise(ctx, persist, warning.TypeFailedHealthCheck, deviceString, "ata", deviceString, deviceInfo,
				"SMART health status check failed", now)
		case status < 0:
			pipe.Raise(ctx, persist, warning.TypeFailedHealthCheck, deviceString, "ata", deviceString, deviceInfo,
				"SMART health status unsupported or unavailable", now)
		case status == 1:
			pipe.Raise(ctx, persist, warning.TypeHealth, deviceString, "ata", deviceString, deviceInfo,
				"SMART overall-health self-assessment test result: FAILED", now)
		}
	}

	// Step 4: SMART data + temperature.
	table, err := ata.ReadSMARTData(ctx)
	if err != nil {
		pipe.Raise(ctx, persist, warning.TypeFailedReadSmartData, deviceString, "ata", deviceString, deviceInfo,
			"Read SMART data failed", now)
		return fmt.Errorf("read smart data %s: %w", deviceString, err)
	}
	pipe.Clear(persist, warning.TypeFailedReadSmartData)

	if cur, ok := lookupATATemperature(table); ok {
		outcome := updateTemperature(persist, temp, cfg.TempThresholds, cur, now, effectiveInterval(cfg))
		applyTemperatureOutcome(ctx, pipe, persist, deviceString, deviceInfo, outcome, now)
	}

	// Step 5: attributes.
	changes, failedUsage, pending := ProcessATAAttributes(cfg, persist, table)
	for _, c := range changes {
		logAttributeChange(deviceString, c)
		if c.Critical {
			pipe.Raise(ctx, persist, warning.TypeUsage, deviceString, "ata", deviceString, deviceInfo,
				fmt.Sprintf("Attribute: %d (%s) changed from %d to %d", c.ID, c.Name, c.Prev, c.Current), now)
		}
	}
	for _, a := range failedUsage {
		pipe.Raise(ctx, persist, warning.TypeUsage, deviceString, "ata", deviceString, deviceInfo,
			fmt.Sprintf("Attribute: %d (%s) failed usage threshold", a.ID, a.Name), now)
	}
	for _, p := range pending {
		typ, label := warning.TypeOfflineUncorrectableSector, "Offline uncorrectable"
		if p.Current {
			typ, label = warning.TypeCurrentPendingSector, "Currently unreadable (pending)"
		}
		pipe.Raise(ctx, persist, typ, deviceString, "ata", deviceString, deviceInfo,
			fmt.Sprintf("%d %s sectors", p.Count, label), now)
	}

	// Step 6: self-test log.
	if cfg.Concerns.Has(devconfig.ConcernSelfTestLog) {
		raw, err := ata.ReadSMARTSelfTestLog(ctx)
		if err != nil {
			pipe.Raise(ctx, persist, warning.TypeFailedReadSmartSelfTestLog, deviceString, "ata", deviceString, deviceInfo,
				"Read SMART self-test log failed", now)
		} else if stLog, err := decode.DecodeATASelfTestLog(raw); err == nil {
			errCount, errHour, _ := decode.WalkSelfTestLog(stLog)
			outcome := evaluateSelfTestLog(persist, errCount, errHour)
			switch {
			case outcome.Increased || outcome.NewHour:
				pipe.Raise(ctx, persist, warning.TypeSelfTest, deviceString, "ata", deviceString, deviceInfo,
					fmt.Sprintf("Self-test log error count is %d at lifetime hour %d", outcome.ErrorCount, outcome.ErrorHour), now)
			case outcome.Decreased:
				log.Info().Str("device", deviceString).Int("count", outcome.ErrorCount).Msg("self-test error count decreased")
				pipe.Clear(persist, warning.TypeSelfTest)
			}
		}
	}

	// Step 7: error log.
	if cfg.Concerns.Has(devconfig.ConcernErrorLog) {
		count, err := ata.ReadSMARTErrorLog(ctx)
		if err != nil {
			pipe.Raise(ctx, persist, warning.TypeFailedReadSmartErrorLog, deviceString, "ata", deviceString, deviceInfo,
				"Read SMART error log failed", now)
		} else if evaluateErrorCount(persist, transport.KindATA, count, nil) {
			pipe.Raise(ctx, persist, warning.TypeErrorCount, deviceString, "ata", deviceString, deviceInfo,
				fmt.Sprintf("ATA error count increased to %d", count), now)
		}
	}

	// Step 8: offline/self-test status transitions.
	if cfg.ReportOfflineNS {
		if raw, err := ata.OfflineDataCollectionStatus(ctx); err == nil {
			if t, _ := evaluateOfflineStatus(temp, raw); t != nil {
				logStatusTransition(deviceString, "offline-data-collection", t)
			}
		}
	}
	if cfg.ReportSelftestNS {
		if raw, err := ata.SelfTestExecutionStatus(ctx); err == nil {
			if t, _ := evaluateSelfTestStatus(temp, raw); t != nil {
				logStatusTransition(deviceString, "self-test-execution", t)
			}
		}
	}

	// Step 9: self-test scheduler.
	if sched != nil {
		maybeStartATASelfTest(ctx, dev, ata, sched, now)
	}

	temp.MustWrite = true
	temp.AttrlogValid = true
	temp.AttrlogProtocol = "ata"
	return nil
}

func effectiveInterval(cfg *devconfig.DevConfig) time.Duration {
	if cfg.CheckInterval > 0 {
		return cfg.CheckInterval
	}
	return DefaultInterval
}

func lookupATATemperature(table transport.ATAAttributeTable) (int, bool) {
	for _, r := range table.Rows {
		if r.ID == ataTemperatureAttributeID {
			raw48 := decode.DecodeRaw48(r.Raw)
			return int(raw48 & 0xff), true
		}
	}
	return 0, false
}

func applyTemperatureOutcome(ctx context.Context, pipe *warning.Pipeline, persist *state.PersistState, deviceString, deviceInfo string, outcome TemperatureOutcome, now time.Time) {
	if outcome.ChangedLine {
		log.Info().Str("device", deviceString).Int("temperature", outcome.Current).
			Int("min", persist.TemperatureMin).Int("max", persist.TemperatureMax).Msg("temperature changed")
	}
	switch {
	case outcome.Critical:
		pipe.Raise(ctx, persist, warning.TypeTemperature, deviceString, "", deviceString, deviceInfo,
			fmt.Sprintf("Temperature %d reached critical limit", outcome.Current), now)
	case outcome.Informational:
		log.Info().Str("device", deviceString).Int("temperature", outcome.Current).Msg("temperature informational limit reached")
	case outcome.Recovered:
		log.Info().Str("device", deviceString).Int("temperature", outcome.Current).Msg("temperature dropped below clear threshold")
		pipe.Clear(persist, warning.TypeTemperature)
	}
}

func logAttributeChange(deviceString string, c AttributeChange) {
	ev := log.Info()
	if c.Critical {
		ev = log.Error()
	}
	ev.Str("device", deviceString).Int64("attribute", c.ID).Str("name", c.Name).
		Uint8("prev", c.Prev).Uint8("current", c.Current).
		Msg(fmt.Sprintf("SMART Attribute: %d (%s) changed from %d to %d", c.ID, c.Name, c.Prev, c.Current))
}

func logStatusTransition(deviceString, label string, t *StatusTransition) {
	ev := log.Info()
	if t.Critical {
		ev = log.Error()
	}
	ev.Str("device", deviceString).Str("transition", label).
		Uint8("from", t.From).Uint8("to", t.To).Msg(label + " status changed")
}

func maybeStartATASelfTest(ctx context.Context, dev *registrar.EnrolledDevice, ata transport.ATACommands, sched *selftest.Schedule, now time.Time) {
	persist := dev.Persist
	temp := dev.Temp

	if status, err := ata.SelfTestExecutionStatus(ctx); err == nil && selftest.ATARunning(status) {
		return
	}

	capable := func(typ selftest.TestType) bool {
		switch typ {
		case selftest.TypeShort:
			return !temp.NotCapShort
		case selftest.TypeLong:
			return !temp.NotCapLong
		case selftest.TypeConveyance:
			return !temp.NotCapConveyance
		case selftest.TypeSelNext, selftest.TypeSelCont, selftest.TypeSelRedo:
			return !temp.NotCapSelective
		case selftest.TypeOfflineImm:
			return !temp.NotCapOffline
		default:
			return true
		}
	}

	candidate, newWatermark := sched.Evaluate(persist.NextScheduledTest, now, capable)
	persist.NextScheduledTest = newWatermark
	temp.MustWrite = true
	if candidate == nil {
		return
	}
	if candidate.Old {
		log.Info().Str("device", dev.Config.Name).Str("test", string(candidate.Type)).Msg("old scheduled self-test starting now")
	}
	if err := selftest.StartATATest(ctx, ata, candidate.Type, persist.SelectiveTestLastStart, persist.SelectiveTestLastEnd); err != nil {
		log.Warn().Str("device", dev.Config.Name).Err(err).Msg("failed to start scheduled self-test")
	}
}
