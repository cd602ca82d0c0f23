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
	"github.com/metalbox-io/smartd-go/internal/smartd/transport"
)

// evaluateErrorCount implements the step 7: ATA raises on any
// count increase; NVMe additionally requires one of the newly appended
// entries to be device-related rather than a transport/protocol abort.
// entries is nil for ATA, where the façade only exposes a summary count.
func evaluateErrorCount(persist *state.PersistState, kind transport.Kind, count int, entries []decode.NVMeErrorLogEntry) bool {
	if kind == transport.KindNVMe {
		prev := persist.NVMeErrorCount
		persist.NVMeErrorCount = count
		if count <= prev {
			return false
		}
		added := count - prev
		if added > len(entries) {
			added = len(entries)
		}
		for _, e := range entries[:added] {
			if e.IsDeviceRelated() {
				return true
			}
		}
		return false
	}

	prev := persist.ATAErrorCount
	persist.ATAErrorCount = count
	return count > prev
}
