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
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := NewPersistState()
	s.TemperatureMin = 20
	s.TemperatureMax = 55
	s.SelfTestErrorCount = 2
	s.SelfTestErrorHour = 1234
	s.NextScheduledTest = time.Unix(1700000000, 0)
	s.ATAErrorCount = 3
	s.Attributes[5] = AttributeSnapshot{ID: 5, Normalized: 100, Worst: 90, Raw48: 42}
	s.Warnings["Usage"] = WarningThrottle{Count: 2, FirstSent: time.Unix(1690000000, 0), LastSent: time.Unix(1690100000, 0)}

	text := Encode(s)
	got, err := Decode(text)
	require.NoError(t, err)

	assert.Equal(t, s.TemperatureMin, got.TemperatureMin)
	assert.Equal(t, s.TemperatureMax, got.TemperatureMax)
	assert.Equal(t, s.SelfTestErrorCount, got.SelfTestErrorCount)
	assert.Equal(t, s.SelfTestErrorHour, got.SelfTestErrorHour)
	assert.Equal(t, s.NextScheduledTest.Unix(), got.NextScheduledTest.Unix())
	assert.Equal(t, s.Attributes[5], got.Attributes[5])
	assert.Equal(t, s.Warnings["Usage"].Count, got.Warnings["Usage"].Count)
	assert.Equal(t, s.Warnings["Usage"].FirstSent.Unix(), got.Warnings["Usage"].FirstSent.Unix())
}

// TestEncodeDecodeRoundTripProperty exercises the round-trip
// invariant across many randomly generated states with integer fields in
// their declared ranges.
func TestEncodeDecodeRoundTripProperty(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		s := NewPersistState()
		s.TemperatureMin = r.Intn(100)
		s.TemperatureMax = r.Intn(100)
		s.SelfTestErrorCount = r.Intn(50)
		s.ATAErrorCount = r.Intn(50)
		if r.Intn(2) == 0 {
			s.Attributes[int64(5+r.Intn(10))] = AttributeSnapshot{
				ID:         int64(5 + r.Intn(10)),
				Normalized: uint8(r.Intn(255)),
				Worst:      uint8(r.Intn(255)),
				Raw48:      uint64(r.Intn(1 << 30)),
			}
		}

		text := Encode(s)
		got, err := Decode(text)
		require.NoError(t, err)
		assert.Equal(t, s.TemperatureMin, got.TemperatureMin)
		assert.Equal(t, s.TemperatureMax, got.TemperatureMax)
		assert.Equal(t, s.SelfTestErrorCount, got.SelfTestErrorCount)
		assert.Equal(t, s.ATAErrorCount, got.ATAErrorCount)
	}
}

func TestDecodeToleratesUnknownLines(t *testing.T) {
	text := "temperature-min = 10\nsome-future-key = 99\n"
	s, err := Decode(text)
	require.NoError(t, err)
	assert.Equal(t, 10, s.TemperatureMin)
}

func TestDecodeRejectsWhollyUnparseableFile(t *testing.T) {
	_, err := Decode("this is not a state file at all\nneither is this")
	assert.Error(t, err)
}

func TestSaveLoadAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "smartd.dev1.state")

	s := NewPersistState()
	s.TemperatureMax = 50
	require.NoError(t, Save(path, s))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, loaded.TemperatureMax)

	s.TemperatureMax = 60
	require.NoError(t, Save(path, s))
	assert.FileExists(t, path+"~")

	loaded, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 60, loaded.TemperatureMax)
}

func TestLoadMissingFileReturnsFreshState(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.state"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.TemperatureMax)
}
