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
	"os"
	"sort"
	"strings"
	"time"
)

// ATAAttrLogRow is one cycle's worth of attribute readings for an ATA
// device, as handed to AppendATARow.
type ATAAttrLogRow struct {
	Timestamp  time.Time
	Attributes []AttributeSnapshot
}

// AppendATARow appends one tab-separated attribute-log line: leading
// local-time stamp, then `id;normalized;raw;` per present attribute
//.
func AppendATARow(path string, row ATAAttrLogRow) error {
	ids := make([]int64, len(row.Attributes))
	byID := make(map[int64]AttributeSnapshot, len(row.Attributes))
	for i, a := range row.Attributes {
		ids[i] = a.ID
		byID[a.ID] = a
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	fmt.Fprintf(&b, "%s;", row.Timestamp.Local().Format("2006-01-02 15:04:05"))
	for _, id := range ids {
		a := byID[id]
		fmt.Fprintf(&b, "\t%d;%d;%d;", a.ID, a.Normalized, a.Raw48)
	}
	b.WriteByte('\n')
	return appendLine(path, b.String())
}

// SCSIErrorCounters mirrors decode.SCSIErrorCounterGroup without importing
// the decode package, keeping state free of a dependency on protocol
// semantics it doesn't need to understand.
type SCSIErrorCounters struct {
	TotalErrorsCorrected int64
	TotalUncorrected      int64
	GigabytesProcessed    float64
}

// AppendSCSIRow appends a SCSI attribute-log row: labeled error-counter
// groups followed by non-medium-errors and temperature.
func AppendSCSIRow(path string, ts time.Time, read, write, verify SCSIErrorCounters, nonMediumErrors int64, temperature int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s;", ts.Local().Format("2006-01-02 15:04:05"))
	writeGroup := func(label string, g SCSIErrorCounters) {
		fmt.Fprintf(&b, "\t%s;%d;%d;%.3f;", label, g.TotalErrorsCorrected, g.TotalUncorrected, g.GigabytesProcessed)
	}
	writeGroup("read", read)
	writeGroup("write", write)
	writeGroup("verify", verify)
	fmt.Fprintf(&b, "\tnon-medium-errors;%d;", nonMediumErrors)
	fmt.Fprintf(&b, "\ttemperature;%d;", temperature)
	b.WriteByte('\n')
	return appendLine(path, b.String())
}

// NVMeAttrLogFields is the fixed set of named fields an NVMe attribute-log
// row emits, matching the SMART/health decode.
type NVMeAttrLogFields struct {
	CriticalWarning uint8
	Temperature     int
	AvailableSpare  uint8
	PercentageUsed  uint8
	DataUnitsRead   uint64
	DataUnitsWritten uint64
	PowerCycles      uint64
	PowerOnHours     uint64
	UnsafeShutdowns  uint64
	MediaErrors      uint64
}

// AppendNVMeRow appends an NVMe attribute-log row.
func AppendNVMeRow(path string, ts time.Time, f NVMeAttrLogFields) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s;", ts.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "\tcritical-warning;%d;", f.CriticalWarning)
	fmt.Fprintf(&b, "\ttemperature;%d;", f.Temperature)
	fmt.Fprintf(&b, "\tavailable-spare;%d;", f.AvailableSpare)
	fmt.Fprintf(&b, "\tpercentage-used;%d;", f.PercentageUsed)
	fmt.Fprintf(&b, "\tdata-units-read;%d;", f.DataUnitsRead)
	fmt.Fprintf(&b, "\tdata-units-written;%d;", f.DataUnitsWritten)
	fmt.Fprintf(&b, "\tpower-cycles;%d;", f.PowerCycles)
	fmt.Fprintf(&b, "\tpower-on-hours;%d;", f.PowerOnHours)
	fmt.Fprintf(&b, "\tunsafe-shutdowns;%d;", f.UnsafeShutdowns)
	fmt.Fprintf(&b, "\tmedia-errors;%d;", f.MediaErrors)
	b.WriteByte('\n')
	return appendLine(path, b.String())
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, attrLogMode)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line)
	return err
}
