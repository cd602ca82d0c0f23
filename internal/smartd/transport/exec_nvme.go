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
)

// execNVMe implements NVMeCommands on top of an already-opened ExecDevice.
type execNVMe ExecDevice

func (d *execNVMe) dev() *ExecDevice { return (*ExecDevice)(d) }

func (d *execNVMe) IdentifyController(ctx context.Context) (Identity, error) {
	if d.dev().out == nil {
		return Identity{}, &Error{Class: ErrBadResponse, Op: "identify controller", Err: fmt.Errorf("device not opened")}
	}
	id := identityFromOutput(d.dev().out)
	id.MultiNS = true
	return id, nil
}

func (d *execNVMe) IdentifyNamespace(ctx context.Context, nsid uint32) (Identity, error) {
	id, err := d.IdentifyController(ctx)
	if err != nil {
		return Identity{}, err
	}
	id.NamespaceID = nsid
	return id, nil
}

// GetSMARTHealthLog reconstructs a synthetic 512-byte NVMe SMART/health
// log page from smartctl's already-decoded fields, so that
// decode.DecodeNVMeHealthLog can be used unmodified downstream. Celsius is
// converted back to Kelvin; 128-bit counters are packed with Hi=0, which
// is exact for every value smartctl's int64 JSON fields can represent.
func (d *execNVMe) GetSMARTHealthLog(ctx context.Context, nsid uint32) ([]byte, error) {
	out := d.dev().out
	if out == nil || out.NVMeHealthLog == nil {
		return nil, &Error{Class: ErrUnsupportedCmd, Op: "get smart health log", Err: fmt.Errorf("no nvme_smart_health_information_log in response")}
	}
	h := out.NVMeHealthLog
	raw := make([]byte, 512)
	raw[0] = byte(h.CriticalWarning)
	binary.LittleEndian.PutUint16(raw[1:3], uint16(h.Temperature+273))
	raw[3] = byte(h.AvailableSpare)
	raw[4] = byte(h.AvailableSpareThreshold)
	raw[5] = byte(h.PercentageUsed)
	putUint128 := func(off int, v int64) {
		binary.LittleEndian.PutUint64(raw[off:off+8], uint64(v))
	}
	putUint128(32, h.DataUnitsRead)
	putUint128(48, h.DataUnitsWritten)
	putUint128(64, h.HostReads)
	putUint128(80, h.HostWrites)
	putUint128(96, h.ControllerBusyTime)
	putUint128(112, h.PowerCycles)
	putUint128(128, h.PowerOnHours)
	putUint128(144, h.UnsafeShutdowns)
	putUint128(160, h.MediaErrors)
	putUint128(176, h.NumErrLogEntries)
	binary.LittleEndian.PutUint32(raw[192:196], uint32(h.WarningTempTime))
	binary.LittleEndian.PutUint32(raw[196:200], uint32(h.CriticalCompTime))
	for i, sensor := range h.TemperatureSensors {
		if i >= 8 {
			break
		}
		if sensor == 0 {
			continue
		}
		binary.LittleEndian.PutUint16(raw[200+i*2:202+i*2], uint16(sensor+273))
	}
	return raw, nil
}

func (d *execNVMe) GetErrorInfoLog(ctx context.Context, numEntries int) ([]byte, error) {
	// smartctl's brief JSON format doesn't emit the raw NVMe error-info
	// log entries; report none rather than fabricate entries we cannot
	// ground in anything smartctl actually told us.
	return make([]byte, 0), nil
}

// GetSelfTestLog reconstructs a synthetic 564-byte NVMe self-test log page
// from smartctl's decoded self-test table.
func (d *execNVMe) GetSelfTestLog(ctx context.Context) ([]byte, error) {
	out := d.dev().out
	if out == nil || out.NVMeSelfTestLog == nil {
		return make([]byte, 564), nil
	}
	s := out.NVMeSelfTestLog
	raw := make([]byte, 564)
	raw[0] = byte(s.CurrentSelfTestOperation.Value)
	raw[1] = byte(s.CurrentSelfTestCompletionPercent)
	for i, e := range s.Table {
		if i >= 20 {
			break
		}
		off := 4 + i*28
		opType := byte(0)
		raw[off] = (opType << 4) | byte(e.SelfTestResult.Value)
		binary.LittleEndian.PutUint64(raw[off+20:off+28], uint64(e.PowerOnHours))
	}
	return raw, nil
}

func (d *execNVMe) GetLogPage(ctx context.Context, logID uint8, nsid uint32, size int) ([]byte, error) {
	switch logID {
	case 0x02:
		return d.GetSMARTHealthLog(ctx, nsid)
	case 0x06:
		return d.GetSelfTestLog(ctx)
	default:
		return nil, &Error{Class: ErrUnsupportedCmd, Op: "get log page", Err: fmt.Errorf("log page 0x%02x not wired in this backend", logID)}
	}
}

func (d *execNVMe) SelfTest(ctx context.Context, code byte, nsid uint32) error {
	_, err := d.dev().runLog(ctx, "-t", fmt.Sprintf("0x%02x", code))
	return err
}
