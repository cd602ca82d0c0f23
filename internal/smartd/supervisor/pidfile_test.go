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

package supervisor

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePIDFileWritesOwnPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartd.pid")
	require.NoError(t, writePIDFile(path))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(contents))
}

func TestWritePIDFileBlankPathIsNoop(t *testing.T) {
	assert.NoError(t, writePIDFile(""))
}

func TestWritePIDFileOverwritesStaleEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartd.pid")
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0o644))

	require.NoError(t, writePIDFile(path))
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(contents))
}

func TestRemovePIDFileDeletesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartd.pid")
	require.NoError(t, writePIDFile(path))

	removePIDFile(path)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRemovePIDFileMissingFileIsQuiet(t *testing.T) {
	removePIDFile(filepath.Join(t.TempDir(), "does-not-exist.pid"))
}
