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

package warning

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSkipsWhenExecPathEmpty(t *testing.T) {
	err := Send(context.Background(), Dispatch{})
	assert.NoError(t, err)
}

// TestSendPassesEnvironmentContract writes a tiny shell script that dumps
// the SMARTD_* variables it was given and asserts they round-trip, per
// the env-var contract.
func TestSendPassesEnvironmentContract(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("spawns a shell script")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "warn.sh")
	out := filepath.Join(dir, "out.txt")
	body := "#!/bin/sh\n" +
		"{ echo \"$SMARTD_MESSAGE\"; echo \"$SMARTD_FAILTYPE\"; echo \"$SMARTD_DEVICE\"; echo \"$SMARTD_PREVCNT\"; } > " + out + "\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o700))

	firstSent := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	err := Send(context.Background(), Dispatch{
		ExecPath:  script,
		Message:   "disk temperature critical",
		FailType:  TypeTemperature,
		Device:    "/dev/sda",
		PrevCount: 3,
		FirstSent: firstSent,
	})
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "disk temperature critical\nTemperature\n/dev/sda\n3\n", string(got))
}

func TestSendCapturesNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("spawns a shell script")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fail.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 7\n"), 0o700))

	err := Send(context.Background(), Dispatch{ExecPath: script, FailType: TypeHealth})
	require.Error(t, err)
}

func TestLimitedWriterCapsAtMax(t *testing.T) {
	var buf bytes.Buffer
	w := &limitedWriter{buf: &buf, max: 8}

	n, err := w.Write([]byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 10, n) // Write reports the input length, not bytes kept
	assert.Equal(t, 8, buf.Len())
	assert.Equal(t, "01234567", buf.String())

	n, err = w.Write([]byte("more"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 8, buf.Len(), "writer must not grow past max once full")
}

func TestFormatDeviceInfo(t *testing.T) {
	got := FormatDeviceInfo("Seagate ST4000 S/N ABC123", "ata")
	assert.Equal(t, "Seagate ST4000 S/N ABC123 [ata]", got)
}
