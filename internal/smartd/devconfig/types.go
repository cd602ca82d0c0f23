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

// Package devconfig implements the declarative per-device monitoring
// directive grammar: a line-oriented config file with
// continuation lines, comments, a DEVICESCAN sentinel, and a DEFAULT
// pseudo-entry, parsed into DevConfig entries the registrar consumes.
package devconfig

import "time"

// ScanSentinel is the device-field value that means "expand into one
// entry per discovered device at registration time".
const ScanSentinel = "DEVICESCAN"

// DefaultEntry is the pseudo-device name that resets the defaults applied
// to subsequent entries instead of describing a real device.
const DefaultEntry = "DEFAULT"

// Concern is one bit of the monitoring-concern bitset.
type Concern uint16

const (
	ConcernHealth Concern = 1 << iota
	ConcernUsageFailed
	ConcernPrefailChanges
	ConcernUsageChanges
	ConcernSelfTestLog
	ConcernErrorLog
	ConcernExtendedErrorLog
	ConcernOfflineStatus
	ConcernSelfTestStatus
	ConcernTemperature

	// ConcernAll is the canonical subset `-a` enables, and what an entry
	// with no monitoring directives implies.
	ConcernAll = ConcernHealth | ConcernUsageFailed | ConcernPrefailChanges |
		ConcernUsageChanges | ConcernSelfTestLog | ConcernErrorLog |
		ConcernOfflineStatus | ConcernSelfTestStatus | ConcernTemperature
)

func (c Concern) Has(bit Concern) bool { return c&bit != 0 }

// AttributeFlags are the per-attribute-id behavior overrides from `-r`,
// `-R`, `-i`, `-I` (`-v` fills DevConfig.AttributeRemap instead).
type AttributeFlags struct {
	Ignore          bool // -I: suppress prefail/usage change-report tracking only
	IgnoreFailure   bool // -i: suppress the -f failed-usage warning only
	PrintRaw        bool
	TrackRaw        bool
	TreatAsCritical bool // -r!: normalized-value changes report critical
	RawCritical     bool // -R!: raw-value changes report critical
}

// PendingSectorSpec is one `-C`/`-U` directive: which attribute id counts
// pending/uncorrectable sectors, and whether only increases are reported.
type PendingSectorSpec struct {
	AttributeID  int64
	IncreaseOnly bool
	Current      bool // true for -C (current pending), false for -U (offline uncorrectable)
}

// TempThresholds are the `-W D,I,C` values.
type TempThresholds struct {
	Diff     int
	Info     int
	Critical int
}

// WarningPolicyKind enumerates the `-M` frequency policies.
type WarningPolicyKind int

const (
	WarnPolicyUnset WarningPolicyKind = iota
	WarnPolicyOnce
	WarnPolicyAlways
	WarnPolicyDaily
	WarnPolicyDiminishing
	WarnPolicyTest
	WarnPolicyExec
)

// PowerSkipMode enumerates `-n`'s power-mode skip policy.
type PowerSkipMode int

const (
	PowerSkipNever PowerSkipMode = iota
	PowerSkipSleep
	PowerSkipStandby
	PowerSkipIdle
)

// PowerSkipPolicy is the parsed `-n` directive.
type PowerSkipPolicy struct {
	Mode      PowerSkipMode
	RepeatCap int // 0 = no cap
	Quiet     bool
}

// ATATweaks are the one-shot settings from `-e`, applied by the
// registrar at enrollment. SCTERCRead and SCTERCWrite here are not set
// by the parser: `-l scterc,R,W` fills DevConfig.SCTERCRead/SCTERCWrite,
// which the registrar applies.
type ATATweaks struct {
	AAM           *int
	APM           *int
	ReadLookahead *bool
	StandbyTimer  *int
	WriteCache    *bool
	DSN           *bool
	SecurityFreeze bool
	SCTERCRead    *int
	SCTERCWrite   *int
}

// SelfTestSchedule is the `-s REGEX` directive plus the stagger/limit
// that parameterize offset evaluation.
type SelfTestSchedule struct {
	Pattern string
	Stagger int
	Limit   int
}

// WarningConfig is the `-m`/`-M` warning-destination directive pair.
type WarningConfig struct {
	Address     string
	ExecPath    string
	Policy      WarningPolicyKind
	NoMailerOK  bool // true if address was the literal "<nomailer>"
}

// DevConfig is one immutable, fully-parsed device entry. It is
// constructed by the configuration parser or synthesized by scan
// expansion, then filled in by the registrar after probe.
type DevConfig struct {
	Name              string // as written in the config file
	TypeHint          string // the -d value, e.g. "", "ata", "scsi", "nvme", "auto"; "-d ignore"/"-d removable" set IgnoreDevice/Removable instead
	Removable         bool
	IgnoreDevice      bool

	Identity string // filled in by the registrar after probe

	CheckInterval time.Duration // 0 = use global

	Concerns Concern

	AttributeFlags map[int64]AttributeFlags

	PendingSectorAttrs []PendingSectorSpec

	TempThresholds TempThresholds

	NVMeHealthMask uint8 // -H MASK

	FlagFailedUsage bool // -f

	ReportOfflineNS  bool
	ReportSelftestNS bool
	SCTERCRead       int
	SCTERCWrite      int

	Tweaks ATATweaks

	SelfTest SelfTestSchedule

	Warning WarningConfig

	PowerSkip PowerSkipPolicy

	AttributeRemap map[int64]string

	FirmwareBugWorkarounds []string

	Permissive bool // -T permissive

	SourceFile string
	SourceLine int
}

// NewDevConfig returns a DevConfig with its maps initialized and the
// implicit defaults the describes (an entry with no monitoring
// directives implies -a).
func NewDevConfig() *DevConfig {
	return &DevConfig{
		Concerns:       ConcernAll,
		AttributeFlags: make(map[int64]AttributeFlags),
		AttributeRemap: make(map[int64]string),
	}
}

// Clone returns a deep-enough copy suitable for use as the next entry's
// starting point after a DEFAULT line.
func (d *DevConfig) Clone() *DevConfig {
	c := *d
	c.AttributeFlags = make(map[int64]AttributeFlags, len(d.AttributeFlags))
	for k, v := range d.AttributeFlags {
		c.AttributeFlags[k] = v
	}
	c.AttributeRemap = make(map[int64]string, len(d.AttributeRemap))
	for k, v := range d.AttributeRemap {
		c.AttributeRemap[k] = v
	}
	c.PendingSectorAttrs = append([]PendingSectorSpec(nil), d.PendingSectorAttrs...)
	c.FirmwareBugWorkarounds = append([]string(nil), d.FirmwareBugWorkarounds...)
	return &c
}
