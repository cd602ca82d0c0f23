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

package devconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smartd.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseBasicEntry(t *testing.T) {
	path := writeTempConfig(t, "/dev/sda -a -m admin@example.com -M daily\n")
	entries, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/dev/sda", entries[0].Name)
	assert.Equal(t, "admin@example.com", entries[0].Warning.Address)
	assert.Equal(t, WarnPolicyDaily, entries[0].Warning.Policy)
	assert.Equal(t, ConcernAll, entries[0].Concerns)
}

func TestParseContinuationLine(t *testing.T) {
	path := writeTempConfig(t, "/dev/sda -H \\\n  -l selftest\n")
	entries, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Concerns.Has(ConcernHealth))
	assert.True(t, entries[0].Concerns.Has(ConcernSelfTestLog))
}

func TestParseCommentsIgnored(t *testing.T) {
	path := writeTempConfig(t, "# a comment\n/dev/sda -a # trailing comment\n")
	entries, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestParseDefaultAppliesToSubsequentEntries(t *testing.T) {
	path := writeTempConfig(t, "DEFAULT -M once\n/dev/sda -a\n/dev/sdb -a -M always\n")
	entries, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, WarnPolicyOnce, entries[0].Warning.Policy)
	assert.Equal(t, WarnPolicyAlways, entries[1].Warning.Policy)
}

func TestParseScanSentinel(t *testing.T) {
	path := writeTempConfig(t, "DEVICESCAN -a -m root\n")
	entries, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ScanSentinel, entries[0].Name)
}

func TestParseUnknownDirectiveFatal(t *testing.T) {
	path := writeTempConfig(t, "/dev/sda -Z\n")
	_, err := ParseFile(path)
	require.Error(t, err)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Line)
}

func TestParseMissingArgumentFatal(t *testing.T) {
	path := writeTempConfig(t, "/dev/sda -m\n")
	_, err := ParseFile(path)
	require.Error(t, err)
}

func TestParsePendingSectorIncreaseOnly(t *testing.T) {
	path := writeTempConfig(t, "/dev/sda -C 197+ -U 198\n")
	entries, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, entries[0].PendingSectorAttrs, 2)
	assert.True(t, entries[0].PendingSectorAttrs[0].IncreaseOnly)
	assert.False(t, entries[0].PendingSectorAttrs[1].IncreaseOnly)
}

func TestParseNoMailerRequiresExec(t *testing.T) {
	path := writeTempConfig(t, "/dev/sda -m <nomailer>\n")
	_, err := ParseFile(path)
	require.Error(t, err)
}

func TestParseTemperatureThresholds(t *testing.T) {
	path := writeTempConfig(t, "/dev/sda -W 0,0,60\n")
	entries, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, TempThresholds{Diff: 0, Info: 0, Critical: 60}, entries[0].TempThresholds)
}

func TestParseAttributeFlagsCritical(t *testing.T) {
	path := writeTempConfig(t, "/dev/sda -R 5!\n")
	entries, err := ParseFile(path)
	require.NoError(t, err)
	flags := entries[0].AttributeFlags[5]
	assert.True(t, flags.PrintRaw)
	assert.True(t, flags.RawCritical)
	assert.False(t, flags.TreatAsCritical, "-R! sets RawCritical, not TreatAsCritical")
}

func TestParseAttributeFlagsNormalizedCritical(t *testing.T) {
	path := writeTempConfig(t, "/dev/sda -r 5!\n")
	entries, err := ParseFile(path)
	require.NoError(t, err)
	flags := entries[0].AttributeFlags[5]
	assert.True(t, flags.TrackRaw)
	assert.True(t, flags.TreatAsCritical)
	assert.False(t, flags.RawCritical, "-r! sets TreatAsCritical, not RawCritical")
}

func TestParseAttributeFlagsIgnoreAndIgnoreFailure(t *testing.T) {
	path := writeTempConfig(t, "/dev/sda -i 5 -I 197\n")
	entries, err := ParseFile(path)
	require.NoError(t, err)
	assert.True(t, entries[0].AttributeFlags[5].IgnoreFailure, "-i sets IgnoreFailure")
	assert.False(t, entries[0].AttributeFlags[5].Ignore)
	assert.True(t, entries[0].AttributeFlags[197].Ignore, "-I sets Ignore")
	assert.False(t, entries[0].AttributeFlags[197].IgnoreFailure)
}
