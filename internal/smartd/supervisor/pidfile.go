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
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// writePIDFile exclusively claims path for this process: an
// existing file naming a still-running process is refused, a stale file
// naming a dead process is overwritten.
func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	if existing, err := os.ReadFile(path); err == nil {
		if pid, perr := strconv.Atoi(strings.TrimSpace(string(existing))); perr == nil && pid > 0 && processAlive(pid) {
			return fmt.Errorf("pid file %s already claimed by running process %d", path, pid)
		}
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

// removePIDFile deletes the PID file on normal exit, ignoring a file
// that is already gone.
func removePIDFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		_ = err // best effort; a failed cleanup at shutdown is not fatal
	}
}

// processAlive reports whether pid names a live process, using the
// signal-0 probe convention (FindProcess never fails on Unix; sending
// signal 0 is the actual liveness check).
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
