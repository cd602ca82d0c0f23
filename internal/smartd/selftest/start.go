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

package selftest

import "context"

const (
	ataSubcommandShort      byte = 0x01
	ataSubcommandExtended   byte = 0x02
	ataSubcommandConveyance byte = 0x03
	ataSubcommandSelective  byte = 0x04

	nvmeCodeShort    byte = 0x1
	nvmeCodeExtended byte = 0x2
)

// ATAStarter is the subset of transport.ATACommands StartATATest needs.
type ATAStarter interface {
	SelftestImmediate(ctx context.Context, subcommand byte) error
	SelectiveSelftestWrite(ctx context.Context, startLBA, endLBA uint64, mode byte) error
}

// StartATATest issues the protocol-specific command for a chosen test
// type.
func StartATATest(ctx context.Context, ata ATAStarter, typ TestType, lastStart, lastEnd uint64) error {
	switch typ {
	case TypeSelNext, TypeSelCont, TypeSelRedo:
		mode := selectiveModeByte(typ)
		return ata.SelectiveSelftestWrite(ctx, lastStart, lastEnd, mode)
	case TypeLong:
		return ata.SelftestImmediate(ctx, ataSubcommandExtended)
	case TypeShort:
		return ata.SelftestImmediate(ctx, ataSubcommandShort)
	case TypeConveyance:
		return ata.SelftestImmediate(ctx, ataSubcommandConveyance)
	case TypeOfflineImm:
		return ata.SelftestImmediate(ctx, 0x00)
	default:
		return nil
	}
}

func selectiveModeByte(typ TestType) byte {
	switch typ {
	case TypeSelNext:
		return 0x00
	case TypeSelCont:
		return 0x01
	case TypeSelRedo:
		return 0x02
	default:
		return 0x00
	}
}

// NVMeStarter is the subset of transport.NVMeCommands StartNVMeTest needs.
type NVMeStarter interface {
	SelfTest(ctx context.Context, code byte, nsid uint32) error
}

// StartNVMeTest issues the NVMe self-test admin command with the
// short/extended code; the conveyance and selective test types have no
// NVMe equivalent and are rejected by the caller before reaching here.
func StartNVMeTest(ctx context.Context, nv NVMeStarter, typ TestType, nsid uint32) error {
	switch typ {
	case TypeLong:
		return nv.SelfTest(ctx, nvmeCodeExtended, nsid)
	case TypeShort:
		return nv.SelfTest(ctx, nvmeCodeShort, nsid)
	default:
		return nil
	}
}

// ATARunning reports whether an ATA self-test is already in progress
// (execution-status high nibble == 0xf); the scheduler skips a cycle
// without error when this is true.
func ATARunning(selfTestExecStatus uint8) bool {
	return selfTestExecStatus>>4 == 0xf
}

// NVMeRunning reports whether an NVMe self-test is already in progress.
func NVMeRunning(currentOpType byte) bool {
	return currentOpType != 0
}
