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
	"github.com/metalbox-io/smartd-go/internal/smartd/devconfig"
	"github.com/metalbox-io/smartd-go/internal/smartd/state"
	"github.com/metalbox-io/smartd-go/internal/smartd/transport"
)

// ProcessATAAttributes decodes and classifies every attribute row against
// its prior snapshot, producing the set of loggable normalized-value
// changes, newly-failed usage attributes (when `-f` is set), and
// pending/uncorrectable sector events from `-C`/`-U`. persist.Attributes
// is updated in place to this cycle's snapshot for every row read,
// regardless of flags: `-I` only suppresses the prefail/usage
// change-report for an id, and `-i` only suppresses its `-f`
// failed-usage warning — neither drops the attribute from the snapshot.
func ProcessATAAttributes(cfg *devconfig.DevConfig, persist *state.PersistState, table transport.ATAAttributeTable) (changes []AttributeChange, failedUsage []AttributeChange, pending []PendingSectorEvent) {
	next := make(map[int64]state.AttributeSnapshot, len(table.Rows))

	for _, raw := range table.Rows {
		flags := cfg.AttributeFlags[raw.ID]

		prior, hadPrior := persist.Attributes[raw.ID]
		threshold := -1
		if t, ok := table.Thresholds[raw.ID]; ok {
			threshold = t
		}

		decoded := decode.DecodeATAAttribute(raw, threshold, hadPrior)
		if name, ok := cfg.AttributeRemap[raw.ID]; ok {
			decoded.Name = name
		}
		raw48 := decode.DecodeRaw48(raw.Raw)

		next[raw.ID] = state.AttributeSnapshot{
			ID:         raw.ID,
			Normalized: decoded.Current,
			Worst:      decoded.Worst,
			Raw48:      raw48,
			Reserved:   raw.Reserved,
		}

		if !flags.IgnoreFailure && cfg.FlagFailedUsage && decoded.State == decode.StateFailedNow {
			// Newly failed this cycle: no prior snapshot, or the prior
			// normalized value was still above threshold.
			if !hadPrior || prior.Normalized > uint8(threshold) {
				failedUsage = append(failedUsage, AttributeChange{ID: raw.ID, Name: decoded.Name})
			}
		}

		if !flags.Ignore {
			tracksPrefail := decoded.Prefail && cfg.Concerns.Has(devconfig.ConcernPrefailChanges)
			tracksUsage := !decoded.Prefail && cfg.Concerns.Has(devconfig.ConcernUsageChanges)
			normalizedChanged := hadPrior && prior.Normalized != decoded.Current
			rawChanged := hadPrior && flags.TrackRaw && prior.Raw48 != raw48

			if (tracksPrefail || tracksUsage) && (normalizedChanged || rawChanged) {
				critical := (normalizedChanged && flags.TreatAsCritical) || (rawChanged && flags.RawCritical)
				changes = append(changes, AttributeChange{
					ID:         raw.ID,
					Name:       decoded.Name,
					Prev:       prior.Normalized,
					Current:    decoded.Current,
					Critical:   critical,
					PrevRaw:    prior.Raw48,
					CurrentRaw: raw48,
					RawChanged: rawChanged,
				})
			}
		}
	}

	for _, spec := range cfg.PendingSectorAttrs {
		raw, ok := next[spec.AttributeID]
		if !ok {
			continue
		}
		prior := persist.Attributes[spec.AttributeID]
		switch {
		case spec.IncreaseOnly:
			if raw.Raw48 > prior.Raw48 {
				pending = append(pending, PendingSectorEvent{Current: spec.Current, Count: raw.Raw48})
			}
		case raw.Raw48 > 0:
			pending = append(pending, PendingSectorEvent{Current: spec.Current, Count: raw.Raw48})
		}
	}

	persist.Attributes = next
	return changes, failedUsage, pending
}
