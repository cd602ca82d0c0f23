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

package decode

import "fmt"

// ATAAttributeRaw is the on-wire shape of one SMART attribute table row, as
// returned by the transport façade's ReadSMARTData.
type ATAAttributeRaw struct {
	ID       int64
	Flags    uint16 // bit0 = prefail
	Current  uint8
	Worst    uint8
	Raw      [6]byte
	Reserved uint8 // vendor-specific reserved byte some drives tuck extra data into
}

const ataFlagPrefail = 1 << 0

// IsPrefail reports whether the attribute's flags mark it as a
// failure-predicting ("prefail") attribute, as opposed to a usage/wear
// counter.
func (a ATAAttributeRaw) IsPrefail() bool {
	return a.Flags&ataFlagPrefail != 0
}

// DecodeRaw48 assembles the little-endian 48-bit raw value:
// raw[0] | raw[1]<<8 | raw[2]<<16 | raw[3]<<24 | raw[4]<<32 | raw[5]<<40.
func DecodeRaw48(raw [6]byte) uint64 {
	return uint64(raw[0]) |
		uint64(raw[1])<<8 |
		uint64(raw[2])<<16 |
		uint64(raw[3])<<24 |
		uint64(raw[4])<<32 |
		uint64(raw[5])<<40
}

// AttributeState classifies one attribute row against its threshold.
type AttributeState int

const (
	StateNonExisting AttributeState = iota
	StateNoThreshold
	StateNoNormval
	StatePassing
	StateFailedNow
	StateFailedPast
)

// ATAAttribute is one decoded, classified SMART attribute.
type ATAAttribute struct {
	ID        int64
	Name      string
	Prefail   bool
	Current   uint8
	Worst     uint8
	Threshold uint8
	Raw48     uint64
	State     AttributeState
}

// DecodeATAAttribute decodes one raw attribute row, resolving its name from
// the well-known table (or leaving it blank for a vendor-specific id), and
// classifying its state against the paired threshold row. threshold < 0
// means "no threshold entry was present for this id" (StateNoThreshold).
func DecodeATAAttribute(raw ATAAttributeRaw, threshold int, everExisted bool) ATAAttribute {
	name, knownPrefail, known := LookupATAAttributeName(raw.ID)
	prefail := raw.IsPrefail()
	if known {
		prefail = knownPrefail || prefail
	}

	a := ATAAttribute{
		ID:      raw.ID,
		Name:    name,
		Prefail: prefail,
		Current: raw.Current,
		Worst:   raw.Worst,
		Raw48:   DecodeRaw48(raw.Raw),
	}

	switch {
	case raw.ID == 0 && !everExisted:
		a.State = StateNonExisting
	case threshold < 0:
		a.State = StateNoThreshold
	case raw.Current == 0:
		a.State = StateNoNormval
	default:
		a.Threshold = uint8(threshold)
		if int(raw.Current) <= threshold {
			a.State = StateFailedNow
		} else if int(raw.Worst) <= threshold {
			a.State = StateFailedPast
		} else {
			a.State = StatePassing
		}
	}
	return a
}

// OfflineDataCollectionStatus is the ATA SMART offline-data-collection
// status byte, high-level decode.
type OfflineDataCollectionStatus int

const (
	OfflineNeverStarted OfflineDataCollectionStatus = iota
	OfflineCompletedOK
	OfflineInProgress
	OfflineSuspendedByHost
	OfflineAbortedByHost
	OfflineAbortedFatalError
	OfflineUnknown
)

// DecodeOfflineDataCollectionStatus decodes the raw status byte returned in
// the SMART data structure.
func DecodeOfflineDataCollectionStatus(raw uint8) OfflineDataCollectionStatus {
	switch raw & 0x7f {
	case 0x00:
		return OfflineNeverStarted
	case 0x02:
		return OfflineCompletedOK
	case 0x03:
		if raw&0x80 != 0 {
			return OfflineInProgress
		}
		return OfflineUnknown
	case 0x04:
		return OfflineSuspendedByHost
	case 0x05:
		return OfflineAbortedByHost
	case 0x06:
		return OfflineAbortedFatalError
	default:
		return OfflineUnknown
	}
}

// IsCritical reports whether a transition into this offline status is a
// critical-severity event.
func (s OfflineDataCollectionStatus) IsCritical() bool {
	return s == OfflineAbortedFatalError
}

// SelfTestExecutionStatus is the decoded high nibble of the ATA
// self-test-execution-status byte.
type SelfTestExecutionStatus int

const (
	SelfTestCompletedOK SelfTestExecutionStatus = iota
	SelfTestAbortedByHost
	SelfTestInterruptedByReset
	SelfTestFatalOrUnknown
	SelfTestCompletedUnknownFail
	SelfTestCompletedElectricalFail
	SelfTestCompletedServoFail
	SelfTestCompletedReadFail
	SelfTestCompletedHandling
	SelfTestInProgress
)

// DecodedSelfTestStatus is the full decode of the status byte, including
// the in-progress percent-remaining case.
type DecodedSelfTestStatus struct {
	Status          SelfTestExecutionStatus
	PercentRemaining int // valid only when Status == SelfTestInProgress
}

// DecodeSelfTestExecutionStatus decodes the ATA self-test-execution-status
// byte. High nibble 0xf with low nibble N means "in progress, N0% remaining".
func DecodeSelfTestExecutionStatus(raw uint8) DecodedSelfTestStatus {
	hi := raw >> 4
	lo := raw & 0x0f
	if hi == 0xf {
		return DecodedSelfTestStatus{Status: SelfTestInProgress, PercentRemaining: int(lo) * 10}
	}
	if int(hi) <= 8 {
		return DecodedSelfTestStatus{Status: SelfTestExecutionStatus(hi)}
	}
	return DecodedSelfTestStatus{Status: SelfTestFatalOrUnknown}
}

// IsCritical reports whether this status represents a critical-severity
// self-test completion.
func (s SelfTestExecutionStatus) IsCritical() bool {
	return s >= SelfTestFatalOrUnknown && s != SelfTestInProgress
}

// ATASelfTestLogEntry is one row of the 21-entry circular self-test log.
type ATASelfTestLogEntry struct {
	SelfTestNumber uint8 // low 7 bits identify the test type; bit7 unused here
	Status         uint8 // high nibble per DecodeSelfTestExecutionStatus
	LifetimeHours  uint16
}

// ATASelfTestLog is the decoded 21-entry circular self-test log.
type ATASelfTestLog struct {
	MostRecentIndex int // index of the newest entry
	Entries         [21]ATASelfTestLogEntry
}

// DecodeATASelfTestLog decodes the 512-byte ATA SMART self-test log
// (ACS self-test log data structure): 2-byte revision header, 21 24-byte
// descriptor entries starting at offset 2, and a 1-based "index of most
// recent test" byte at offset 507 (0 = no test ever logged).
func DecodeATASelfTestLog(raw []byte) (ATASelfTestLog, error) {
	if len(raw) < 508 {
		return ATASelfTestLog{}, fmt.Errorf("ata self-test log: short read (%d bytes)", len(raw))
	}
	var log ATASelfTestLog
	for i := 0; i < 21; i++ {
		off := 2 + i*24
		log.Entries[i] = ATASelfTestLogEntry{
			SelfTestNumber: raw[off] & 0x7f,
			Status:         raw[off+1],
			LifetimeHours:  uint16(raw[off+2]) | uint16(raw[off+3])<<8,
		}
	}
	mostRecent := raw[507]
	if mostRecent == 0 {
		log.MostRecentIndex = 0
	} else {
		log.MostRecentIndex = int(mostRecent-1) % 21
	}
	return log, nil
}

// selfTestNumberExtendedCompleted is self-test-number low 7 bits == 0x02,
// the "extended self-test" type marker used to find the stop point in the
// backward walk.
const selfTestNumberExtendedCompleted = 0x02

// WalkSelfTestLog implements the backward walk of the ATA self-test
// log: starting at the newest entry, walk toward the oldest, stopping at
// (not counting) the first "completed-without-error extended self-test"
// entry. Entries whose status high nibble is in [0x3, 0x8] count as
// failures; errCount is the failure count and errHour is the lifetime-hour
// timestamp of the first (i.e. most recent) failure encountered.
func WalkSelfTestLog(log ATASelfTestLog) (errCount int, errHour uint16, haveError bool) {
	n := len(log.Entries)
	for step := 0; step < n; step++ {
		idx := (log.MostRecentIndex - step + n) % n
		e := log.Entries[idx]
		if e.SelfTestNumber == 0 && e.Status == 0 && e.LifetimeHours == 0 {
			// Unused slot: the log hasn't wrapped yet, nothing older to see.
			break
		}
		hi := e.Status >> 4
		if e.SelfTestNumber&0x7f == selfTestNumberExtendedCompleted && hi == 0x00 {
			break
		}
		if hi >= 0x3 && hi <= 0x8 {
			if !haveError {
				errHour = e.LifetimeHours
				haveError = true
			}
			errCount++
		}
	}
	return errCount, errHour, haveError
}
