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

	"github.com/rs/zerolog/log"
)

const (
	stateFileMode = 0o600
	attrLogMode   = 0o644
)

// Load reads a device's state file. A missing file is not an error — it
// means this device has never been registered before — and yields a
// fresh, zero-valued state.
func Load(path string) (*PersistState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewPersistState(), nil
		}
		return nil, err
	}
	s, err := Decode(string(data))
	if err != nil {
		log.Warn().Str("path", path).Err(err).Msg("state file unparseable, starting fresh")
		return NewPersistState(), nil
	}
	return s, nil
}

// Save atomically replaces the state file at path: the new content is
// written to a temp file and closed, the previous generation is renamed
// to a "~"-suffixed sibling, then the temp file is renamed into place.
// A crash mid-write must never leave a partial file where the live one
// used to be.
func Save(path string, s *PersistState) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(Encode(s)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, stateFileMode); err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+"~")
	}
	return os.Rename(tmpName, path)
}

// PathsFor computes the state and attribute-log file paths for a device's
// canonical identity string, the way the registrar wires them in at
// enrollment time.
func PathsFor(dir, identity string) (statePath, attrLogPath string) {
	safe := sanitizeForFilename(identity)
	return filepath.Join(dir, "smartd."+safe+".state"),
		filepath.Join(dir, "smartd."+safe+".attrlog")
}

func sanitizeForFilename(s string) string {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b[i] = c
		default:
			b[i] = '_'
		}
	}
	return string(b)
}
