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

package supervisor

import (
	"fmt"
	"time"

	"github.com/metalbox-io/smartd-go/internal/smartd/registrar"
	"github.com/metalbox-io/smartd-go/internal/smartd/state"
)

// appendAttrLogRow writes one cycle's attribute-log row for dev,
// dispatching on the protocol that filled dev.Temp this cycle (spec
// §4.4). The ATA row is reconstructed from the full PersistState
// attribute snapshot the check engine just wrote; SCSI and NVMe rows
// are built from the conservative subset PersistState carries for those
// protocols, since their full per-cycle readings are not themselves
// persisted (see DESIGN.md).
func appendAttrLogRow(dev *registrar.EnrolledDevice, now time.Time) error {
	switch dev.Temp.AttrlogProtocol {
	case "ata":
		snapshots := make([]state.AttributeSnapshot, 0, len(dev.Persist.Attributes))
		for _, a := range dev.Persist.Attributes {
			snapshots = append(snapshots, a)
		}
		return state.AppendATARow(dev.AttrLogPath, state.ATAAttrLogRow{Timestamp: now, Attributes: snapshots})
	case "scsi":
		return state.AppendSCSIRow(dev.AttrLogPath, now,
			state.SCSIErrorCounters{}, state.SCSIErrorCounters{}, state.SCSIErrorCounters{},
			0, dev.Temp.LastTemperature)
	case "nvme":
		return state.AppendNVMeRow(dev.AttrLogPath, now, state.NVMeAttrLogFields{
			Temperature:    dev.Temp.LastTemperature,
			AvailableSpare: dev.Persist.NVMeHealth.AvailableSpare,
			PercentageUsed: dev.Persist.NVMeHealth.PercentUsed,
			MediaErrors:    dev.Persist.NVMeHealth.MediaErrors,
		})
	default:
		return fmt.Errorf("attribute log: unknown protocol tag %q for %s", dev.Temp.AttrlogProtocol, dev.Config.Name)
	}
}
