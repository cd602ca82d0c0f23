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

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNVMeCriticalWarningAndFormat(t *testing.T) {
	w := DecodeNVMeCriticalWarning(0x03)
	assert.True(t, w.AvailableSpareLow)
	assert.True(t, w.TemperatureThresholdExceeded)
	assert.False(t, w.ReliabilityDegraded)

	assert.True(t, w.AnyMasked(0x01))
	assert.False(t, w.AnyMasked(0x04))

	msg := FormatNVMeCriticalWarning(0x03, 0x01)
	assert.Equal(t, "LowSpare, [Temperature]", msg)
}

func TestDecodeTemperatureKelvin(t *testing.T) {
	assert.Equal(t, 27, DecodeTemperatureKelvin(300))
	assert.Equal(t, 0, DecodeTemperatureKelvin(273))
}

func buildHealthLogBytes(t *testing.T) []byte {
	t.Helper()
	raw := make([]byte, 512)
	raw[0] = 0x01 // low spare
	binary.LittleEndian.PutUint16(raw[1:3], 300)
	raw[3] = 90  // available spare
	raw[4] = 10  // spare threshold
	raw[5] = 5   // percentage used
	binary.LittleEndian.PutUint64(raw[32:40], 123456) // data units read lo
	binary.LittleEndian.PutUint64(raw[128:136], 9999) // power-on-hours lo
	binary.LittleEndian.PutUint32(raw[192:196], 11)   // warning temp time
	binary.LittleEndian.PutUint32(raw[196:200], 22)   // critical temp time
	binary.LittleEndian.PutUint16(raw[200:202], 310)  // sensor 1: 310K = 37C
	return raw
}

func TestDecodeNVMeHealthLog(t *testing.T) {
	raw := buildHealthLogBytes(t)
	h, err := DecodeNVMeHealthLog(raw)
	require.NoError(t, err)
	assert.Equal(t, 27, h.TemperatureCelsius)
	assert.EqualValues(t, 90, h.AvailableSpare)
	assert.EqualValues(t, 123456, h.DataUnitsRead.Lo)
	assert.EqualValues(t, 9999, h.PowerOnHours.Lo)
	assert.EqualValues(t, 11, h.WarningTempTime)
	assert.EqualValues(t, 37, h.TemperatureSensors[0])
}

func TestDecodeNVMeHealthLogShortBuffer(t *testing.T) {
	_, err := DecodeNVMeHealthLog(make([]byte, 10))
	assert.Error(t, err)
}

func TestUint128Display(t *testing.T) {
	v := Uint128{Lo: 42}
	assert.EqualValues(t, 42, v.Display())

	v = Uint128{Hi: 1, Lo: 42}
	assert.Equal(t, uint64(1<<64-1), v.Display())
}

func buildErrorLogEntry(errCount uint64, statusField uint16) []byte {
	raw := make([]byte, 64)
	binary.LittleEndian.PutUint64(raw[0:8], errCount)
	binary.LittleEndian.PutUint16(raw[10:12], statusField)
	return raw
}

func TestDecodeNVMeErrorLogEntryDeviceRelated(t *testing.T) {
	// status code 0x01 (not invalid-field, not abort) shifted into bits 1..15
	raw := buildErrorLogEntry(1, 0x01<<1)
	e, err := DecodeNVMeErrorLogEntry(raw)
	require.NoError(t, err)
	assert.False(t, e.IsUnused())
	assert.True(t, e.IsDeviceRelated())

	raw = buildErrorLogEntry(1, 0x02<<1) // invalid field
	e, _ = DecodeNVMeErrorLogEntry(raw)
	assert.False(t, e.IsDeviceRelated())

	raw = buildErrorLogEntry(0, 0)
	e, _ = DecodeNVMeErrorLogEntry(raw)
	assert.True(t, e.IsUnused())
}

func TestDecodeNVMeSelfTestLogCurrentOperation(t *testing.T) {
	raw := make([]byte, 564)
	raw[0] = 0x02 // extended self-test running
	raw[1] = 0x1e // 30% remaining
	log, err := DecodeNVMeSelfTestLog(raw)
	require.NoError(t, err)
	assert.Equal(t, NVMeSelfTestOpExtended, log.CurrentOpType)
	assert.Equal(t, 30, log.CurrentPercentRemain)
	assert.True(t, log.IsTestRunning())
}

func TestNVMeSelfTestResultCritical(t *testing.T) {
	assert.False(t, NVMeSelfTestCompletedOK.IsCritical())
	assert.True(t, NVMeSelfTestAbortedSelfTestCmd.IsCritical())
	assert.False(t, NVMeSelfTestUnused.IsCritical())
}
