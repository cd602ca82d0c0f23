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

package registrar

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/metalbox-io/smartd-go/internal/smartd/transport"
)

var titleCaser = cases.Title(language.English)

// BuildIdentity formats the canonical identity string the requires:
// vendor/model/serial/WWN/capacity, with NVMe NSID appended when the
// controller supports multiple namespaces.
func BuildIdentity(id transport.Identity, kind transport.Kind) string {
	vendor := strings.TrimSpace(id.Vendor)
	if vendor != "" {
		vendor = titleCaser.String(strings.ToLower(vendor))
	}

	var b strings.Builder
	if vendor != "" {
		fmt.Fprintf(&b, "%s ", vendor)
	}
	fmt.Fprintf(&b, "%s", strings.TrimSpace(id.Model))
	if id.Serial != "" {
		fmt.Fprintf(&b, " S/N:%s", id.Serial)
	}
	if id.WWN != "" {
		fmt.Fprintf(&b, " WWN:%s", id.WWN)
	}
	if id.CapacityByte > 0 {
		fmt.Fprintf(&b, " %s", formatCapacity(id.CapacityByte))
	}
	if kind == transport.KindNVMe && id.MultiNS {
		fmt.Fprintf(&b, " NSID:%d", id.NamespaceID)
	}
	return b.String()
}

func formatCapacity(bytes uint64) string {
	const (
		gb = 1_000_000_000
		tb = 1_000_000_000_000
	)
	if bytes >= tb {
		return fmt.Sprintf("%.2fTB", float64(bytes)/float64(tb))
	}
	return fmt.Sprintf("%.2fGB", float64(bytes)/float64(gb))
}
