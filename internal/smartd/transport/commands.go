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

package transport

import (
	"context"

	"github.com/metalbox-io/smartd-go/internal/smartd/decode"
)

// Identity is the canonical set of fields every protocol's identify/
// inquiry command can supply, used by the registrar to build the
// canonical identity string.
type Identity struct {
	Vendor       string
	Model        string
	Serial       string
	WWN          string
	CapacityByte uint64
	NamespaceID  uint32 // NVMe only; 0 if the controller has a single namespace
	MultiNS      bool   // true if the NVMe controller supports multiple namespaces
}

// ATAAttributeTable is the raw SMART attribute data block: one row per
// attribute plus the paired threshold table (index-aligned by id). Rows are
// decode.ATAAttributeRaw directly, so callers pass the wire-shaped rows
// straight into decode.DecodeATAAttribute without an intermediate copy.
type ATAAttributeTable struct {
	Rows       []decode.ATAAttributeRaw
	Thresholds map[int64]int // id -> threshold, absent means no threshold row
}

// ATACommands is the ATA/SATA command set.
type ATACommands interface {
	Identify(ctx context.Context) (Identity, error)
	ReadSMARTData(ctx context.Context) (ATAAttributeTable, error)
	ReadSMARTThresholds(ctx context.Context) (map[int64]int, error)
	ReadSMARTErrorLog(ctx context.Context) (count int, err error)
	ReadSMARTSelfTestLog(ctx context.Context) ([]byte, error) // 21*12 raw bytes, decode package interprets
	ReadLogDirectory(ctx context.Context) (map[int]bool, error)
	SmartStatus(ctx context.Context) (int, error) // -1 unsupported, 0 passed, 1 failing
	SetFeature(ctx context.Context, feature string, value int) error
	SelftestImmediate(ctx context.Context, subcommand byte) error
	SelectiveSelftestWrite(ctx context.Context, startLBA, endLBA uint64, mode byte) error
	SCTERCSet(ctx context.Context, readSeconds, writeSeconds int) error
	CheckPowerMode(ctx context.Context) (PowerMode, error)
	OfflineDataCollectionStatus(ctx context.Context) (uint8, error)
	SelfTestExecutionStatus(ctx context.Context) (uint8, error)
}

// SCSICommands is the SAS/SCSI command set.
type SCSICommands interface {
	Inquiry(ctx context.Context) (Identity, error)
	VPDPage(ctx context.Context, page byte) ([]byte, error)
	ModeSenseIEPage(ctx context.Context) ([]byte, error)
	LogSenseIEPage(ctx context.Context) ([]byte, error)
	LogSenseTemperature(ctx context.Context) ([]byte, error)
	LogSenseErrorCounters(ctx context.Context) ([]byte, error) // read/write/verify, caller slices
	LogSenseNonMediumErrors(ctx context.Context) ([]byte, error)
	LogSenseSelfTestResults(ctx context.Context) ([]byte, error)
	TestUnitReady(ctx context.Context) error
	StartSelftest(ctx context.Context, code byte) error
}

// NVMeCommands is the NVMe admin command set.
type NVMeCommands interface {
	IdentifyController(ctx context.Context) (Identity, error)
	IdentifyNamespace(ctx context.Context, nsid uint32) (Identity, error)
	GetSMARTHealthLog(ctx context.Context, nsid uint32) ([]byte, error)
	GetErrorInfoLog(ctx context.Context, numEntries int) ([]byte, error)
	GetSelfTestLog(ctx context.Context) ([]byte, error)
	GetLogPage(ctx context.Context, logID uint8, nsid uint32, size int) ([]byte, error)
	SelfTest(ctx context.Context, code byte, nsid uint32) error
}
