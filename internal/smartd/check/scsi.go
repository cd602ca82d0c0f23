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

	"github.com/metalbox-io/smartd-go/internal/smartd/decode"
	"github.com/metalbox-io/smartd-go/internal/smartd/devconfig"
	"github.com/metalbox-io/smartd-go/internal/smartd/registrar"
	"github.com/metalbox-io/smartd-go/internal/smartd/warning"
)

func runSCSI(ctx context.Context, dev *registrar.EnrolledDevice, pipe *warning.Pipeline, now time.Time, deviceString, deviceInfo string) error {
	cfg := dev.Config
	persist := dev.Persist
	temp := dev.Temp

	scsi, ok := dev.Device.AsSCSI()
	if !ok {
		return fmt.Errorf("check %s: device reports scsi but AsSCSI failed", deviceString)
	}

	if cfg.Concerns.Has(devconfig.ConcernHealth) {
		pageBytes, err := scsi.LogSenseIEPage(ctx)
		if err != nil {
			pipe.Raise(ctx, persist, warning.TypeFailedHealthCheck, deviceString, "scsi", deviceString, deviceInfo,
				"SCSI informational exceptions log sense failed", now)
		} else {
			health := decode.DecodeIEPage(decode.DecodeIEPageBytes(pageBytes), true)
			if health.Class == decode.SCSIHealthFailure {
				pipe.Raise(ctx, persist, warning.TypeHealth, deviceString, "scsi", deviceString, deviceInfo, health.Message, now)
			}
		}
	}

	if tempBytes, err := scsi.LogSenseTemperature(ctx); err == nil {
		if cur, ok := decode.DecodeTemperatureLogBytes(tempBytes); ok {
			outcome := updateTemperature(persist, temp, cfg.TempThresholds, int(cur), now, effectiveInterval(cfg))
			applyTemperatureOutcome(ctx, pipe, persist, deviceString, deviceInfo, outcome, now)
		}
	}

	if cfg.Concerns.Has(devconfig.ConcernErrorLog) {
		if _, err := scsi.LogSenseErrorCounters(ctx); err != nil {
			pipe.Raise(ctx, persist, warning.TypeFailedReadSmartErrorLog, deviceString, "scsi", deviceString, deviceInfo,
				"SCSI log-sense error counters read failed", now)
		}
	}

	if err := scsi.TestUnitReady(ctx); err != nil {
		pipe.Raise(ctx, persist, warning.TypeFailedHealthCheck, deviceString, "scsi", deviceString, deviceInfo,
			"SCSI test-unit-ready failed", now)
	}

	temp.MustWrite = true
	temp.AttrlogValid = true
	temp.AttrlogProtocol = "scsi"
	return nil
}
