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

package state

import (
	"fmt"
	"sort"
	"strings"
)

// Encode renders a PersistState as the line-oriented `key = integer` text
// format from the. Zero-valued scalars are omitted entirely so that
// a file only ever grows the keys a device has actually exercised.
func Encode(s *PersistState) string {
	var b strings.Builder
	put := func(key string, v int64) {
		if v == 0 {
			return
		}
		fmt.Fprintf(&b, "%s = %d\n", key, v)
	}

	put("temperature-min", int64(s.TemperatureMin))
	put("temperature-max", int64(s.TemperatureMax))
	put("selftest-errorcount", int64(s.SelfTestErrorCount))
	put("selftest-errorhour", int64(s.SelfTestErrorHour))
	if !s.NextScheduledTest.IsZero() {
		put("next-scheduled-test", s.NextScheduledTest.Unix())
	}
	put("selective-test-last-start", int64(s.SelectiveTestLastStart))
	put("selective-test-last-end", int64(s.SelectiveTestLastEnd))
	put("ata-error-count", int64(s.ATAErrorCount))
	put("nvme-error-count", int64(s.NVMeErrorCount))
	put("nvme-available-spare", int64(s.NVMeHealth.AvailableSpare))
	put("nvme-percent-used", int64(s.NVMeHealth.PercentUsed))
	put("nvme-media-errors", int64(s.NVMeHealth.MediaErrors))

	ids := make([]int64, 0, len(s.Attributes))
	for id := range s.Attributes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		a := s.Attributes[id]
		prefix := fmt.Sprintf("ata-smart-attribute.%d", id)
		put(prefix+".id", a.ID)
		put(prefix+".val", int64(a.Normalized))
		put(prefix+".worst", int64(a.Worst))
		put(prefix+".raw", int64(a.Raw48))
		put(prefix+".resvd", int64(a.Reserved))
	}

	types := make([]string, 0, len(s.Warnings))
	for t := range s.Warnings {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		w := s.Warnings[t]
		prefix := "mail." + t
		put(prefix+".count", w.Count)
		if !w.FirstSent.IsZero() {
			put(prefix+".first-sent-time", w.FirstSent.Unix())
		}
		if !w.LastSent.IsZero() {
			put(prefix+".last-sent-time", w.LastSent.Unix())
		}
	}

	return b.String()
}
