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
	"encoding/binary"
	"fmt"

	"github.com/metalbox-io/smartd-go/internal/smartd/decode"
)

// execATA implements ATACommands on top of an already-opened ExecDevice.
type execATA ExecDevice

func (d *execATA) dev() *ExecDevice { return (*ExecDevice)(d) }

func (d *execATA) Identify(ctx context.Context) (Identity, error) {
	if d.dev().out == nil {
		return Identity{}, &Error{Class: ErrBadResponse, Op: "identify", Err: fmt.Errorf("device not opened")}
	}
	return identityFromOutput(d.dev().out), nil
}

// ReadSMARTData reconstructs the raw attribute table rows from smartctl's
// already-decoded JSON, since smartctl never hands back the wire bytes.
// flags.value is the real flag byte, raw.value is the assembled 48-bit raw
// counter; we pack it back into 6 little-endian bytes so the decode
// package's DecodeRaw48 round-trips it exactly.
func (d *execATA) ReadSMARTData(ctx context.Context) (ATAAttributeTable, error) {
	out := d.dev().out
	if out == nil || out.ATASmartAttributes == nil {
		return ATAAttributeTable{}, &Error{Class: ErrUnsupportedCmd, Op: "read smart data", Err: fmt.Errorf("no ata_smart_attributes in response")}
	}
	table := ATAAttributeTable{
		Rows:       make([]decode.ATAAttributeRaw, 0, len(out.ATASmartAttributes.Table)),
		Thresholds: make(map[int64]int, len(out.ATASmartAttributes.Table)),
	}
	for _, e := range out.ATASmartAttributes.Table {
		var raw6 [6]byte
		var buf8 [8]byte
		binary.LittleEndian.PutUint64(buf8[:], uint64(e.Raw.Value))
		copy(raw6[:], buf8[:6])

		table.Rows = append(table.Rows, decode.ATAAttributeRaw{
			ID:      e.ID,
			Flags:   uint16(e.Flags.Value),
			Current: uint8(e.Value),
			Worst:   uint8(e.Worst),
			Raw:     raw6,
		})
		table.Thresholds[e.ID] = int(e.Thresh)
	}
	return table, nil
}

func (d *execATA) ReadSMARTThresholds(ctx context.Context) (map[int64]int, error) {
	table, err := d.ReadSMARTData(ctx)
	if err != nil {
		return nil, err
	}
	return table.Thresholds, nil
}

func (d *execATA) ReadSMARTErrorLog(ctx context.Context) (int, error) {
	out := d.dev().out
	if out != nil && out.ATASmartErrorLog != nil {
		return int(out.ATASmartErrorLog.Count), nil
	}
	logOut, err := d.dev().runLog(ctx, "--log=error")
	if err != nil {
		return 0, err
	}
	if logOut.ATASmartErrorLog == nil {
		return 0, nil
	}
	return int(logOut.ATASmartErrorLog.Count), nil
}

// ReadSMARTSelfTestLog reconstructs a synthetic 512-byte ATA self-test log
// buffer from smartctl's decoded self-test table, so decode.DecodeATASelfTestLog
// can be reused verbatim instead of this backend duplicating its layout
// knowledge. This is an approximation: smartctl's table is already
// newest-first, so the index byte is always 1 (newest entry in slot 0)
// and row i is stored in slot (21-i)%21, where the decoder's backward
// walk from slot 0 visits the JSON rows in order.
func (d *execATA) ReadSMARTSelfTestLog(ctx context.Context) ([]byte, error) {
	logOut, err := d.dev().runLog(ctx, "--log=selftest")
	if err != nil {
		return nil, err
	}
	if logOut.ATASmartSelfTest == nil {
		return nil, &Error{Class: ErrUnsupportedCmd, Op: "read self-test log", Err: fmt.Errorf("no ata_smart_self_test_log in response")}
	}
	raw := make([]byte, 512)
	if len(logOut.ATASmartSelfTest.Table) > 0 {
		raw[507] = 1
	}
	for i, e := range logOut.ATASmartSelfTest.Table {
		if i >= 21 {
			break
		}
		off := 2 + ((21-i)%21)*24
		raw[off] = byte(e.Num) & 0x7f
		raw[off+1] = byte(e.Status.Value)
		binary.LittleEndian.PutUint16(raw[off+2:off+4], uint16(e.LifetimeHours))
	}
	return raw, nil
}

func (d *execATA) ReadLogDirectory(ctx context.Context) (map[int]bool, error) {
	// smartctl's combined -j output doesn't expose the raw GPL/SMART log
	// directory; report only the logs this backend itself already knows
	// how to fetch.
	return map[int]bool{0x06: true, 0x01: true}, nil
}

func (d *execATA) SmartStatus(ctx context.Context) (int, error) {
	out := d.dev().out
	if out == nil || out.SmartStatus == nil {
		return -1, nil
	}
	if out.SmartStatus.Passed {
		return 0, nil
	}
	return 1, nil
}

func (d *execATA) SetFeature(ctx context.Context, feature string, value int) error {
	_, err := d.dev().runLog(ctx, "-s", fmt.Sprintf("%s,%d", feature, value))
	return err
}

func (d *execATA) SelftestImmediate(ctx context.Context, subcommand byte) error {
	_, err := d.dev().runLog(ctx, "-t", fmt.Sprintf("0x%02x", subcommand))
	return err
}

func (d *execATA) SelectiveSelftestWrite(ctx context.Context, startLBA, endLBA uint64, mode byte) error {
	_, err := d.dev().runLog(ctx, "-t", fmt.Sprintf("select,%d-%d", startLBA, endLBA))
	return err
}

func (d *execATA) SCTERCSet(ctx context.Context, readSeconds, writeSeconds int) error {
	_, err := d.dev().runLog(ctx, "-l", fmt.Sprintf("scterc,%d,%d", readSeconds, writeSeconds))
	return err
}

func (d *execATA) CheckPowerMode(ctx context.Context) (PowerMode, error) {
	// smartctl's -n flag reports power mode as an exit-status bit, not a
	// JSON field; without a dedicated probe this backend reports unknown
	// and lets the caller fall back to always-checking.
	return PowerModeUnknown, nil
}

func (d *execATA) OfflineDataCollectionStatus(ctx context.Context) (uint8, error) {
	out := d.dev().out
	if out == nil || out.ATASmartData == nil {
		return 0, &Error{Class: ErrUnsupportedCmd, Op: "offline status", Err: fmt.Errorf("no ata_smart_data in response")}
	}
	return uint8(out.ATASmartData.OfflineDataCollection.Status.Value), nil
}

func (d *execATA) SelfTestExecutionStatus(ctx context.Context) (uint8, error) {
	out := d.dev().out
	if out == nil || out.ATASmartData == nil {
		return 0, &Error{Class: ErrUnsupportedCmd, Op: "self-test status", Err: fmt.Errorf("no ata_smart_data in response")}
	}
	return uint8(out.ATASmartData.SelfTest.Status.Value), nil
}
