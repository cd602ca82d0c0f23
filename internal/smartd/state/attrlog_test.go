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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendATARowFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartd.dev1.attrlog")
	ts := time.Date(2026, 8, 6, 12, 30, 0, 0, time.Local)

	require.NoError(t, AppendATARow(path, ATAAttrLogRow{
		Timestamp:  ts,
		Attributes: []AttributeSnapshot{{ID: 5, Normalized: 100, Raw48: 0}},
	}))
	require.NoError(t, AppendATARow(path, ATAAttrLogRow{
		Timestamp:  ts.Add(time.Minute),
		Attributes: []AttributeSnapshot{{ID: 5, Normalized: 99, Raw48: 1}},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2026-08-06 12:30:00;")
	assert.Contains(t, string(data), "5;99;1;")
}

func TestAppendNVMeRowFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartd.nvme0.attrlog")
	require.NoError(t, AppendNVMeRow(path, time.Now(), NVMeAttrLogFields{
		Temperature:    35,
		AvailableSpare: 97,
		PowerOnHours:   1234,
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "power-on-hours;1234;")
}
