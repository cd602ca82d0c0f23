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
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// maxDrainBytes is the "up to the first 1 MiB" cap the places on
// logging a child warning process's captured output.
const maxDrainBytes = 1 << 20

// Dispatch is everything the child warning process's environment-variable
// contract needs.
type Dispatch struct {
	ExecPath     string
	Message      string
	PrevCount    int64
	FirstSent    time.Time
	FailType     MessageType
	Address      string
	DeviceString string
	DeviceType   string
	Device       string
	DeviceInfo   string
	NextDays     int
	Subject      string
}

// Send spawns the configured warning executable with the SMARTD_*
// environment contract, drains its stdout/stderr, and logs its exit
// status. If the executable path is empty, dispatch is skipped silently
//.
func Send(ctx context.Context, d Dispatch) error {
	if d.ExecPath == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, d.ExecPath)
	cmd.Env = append(cmd.Env,
		"SMARTD_MAILER="+d.ExecPath,
		"SMARTD_MESSAGE="+d.Message,
		"SMARTD_PREVCNT="+strconv.FormatInt(d.PrevCount, 10),
		"SMARTD_TFIRST="+d.FirstSent.Format(time.RFC1123),
		"SMARTD_TFIRSTEPOCH="+strconv.FormatInt(d.FirstSent.Unix(), 10),
		"SMARTD_FAILTYPE="+string(d.FailType),
		"SMARTD_ADDRESS="+d.Address,
		"SMARTD_DEVICESTRING="+d.DeviceString,
		"SMARTD_DEVICETYPE="+d.DeviceType,
		"SMARTD_DEVICE="+d.Device,
		"SMARTD_DEVICEINFO="+d.DeviceInfo,
		"SMARTD_NEXTDAYS="+strconv.Itoa(d.NextDays),
		"SMARTD_SUBJECT="+d.Subject,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{buf: &stdout, max: maxDrainBytes}
	cmd.Stderr = &limitedWriter{buf: &stderr, max: maxDrainBytes}

	err := cmd.Run()
	logExit(d, err, stdout.String(), stderr.String())
	return err
}

func logExit(d Dispatch, err error, stdout, stderr string) {
	ev := log.Info()
	if err != nil {
		ev = log.Warn()
	}
	ev = ev.Str("device", d.Device).Str("type", string(d.FailType)).Str("exec", d.ExecPath)

	if stdout != "" {
		ev = ev.Str("stdout", stdout)
	}
	if stderr != "" {
		ev = ev.Str("stderr", stderr)
	}

	if err == nil {
		ev.Msg("warning dispatch exited normally")
		return
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			switch {
			case status.Signaled():
				ev.Str("signal", status.Signal().String()).Msg("warning dispatch was signaled")
				return
			case status.Stopped():
				ev.Msg("warning dispatch was stopped")
				return
			}
		}
		ev.Int("exit_code", exitErr.ExitCode()).Msg("warning dispatch exited non-zero")
		return
	}
	ev.Err(err).Msg("warning dispatch failed to start")
}

// limitedWriter caps captured output at max bytes, matching the
// "up to the first 1 MiB is logged verbatim".
type limitedWriter struct {
	buf *bytes.Buffer
	max int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	remaining := w.max - w.buf.Len()
	if remaining <= 0 {
		return n, nil
	}
	if len(p) > remaining {
		p = p[:remaining]
	}
	if _, err := w.buf.Write(p); err != nil {
		return 0, err
	}
	return n, nil
}

var _ io.Writer = (*limitedWriter)(nil)

// FormatDeviceInfo is a small helper building the human-readable
// SMARTD_DEVICEINFO value dispatchers pass through.
func FormatDeviceInfo(identity string, kind string) string {
	return fmt.Sprintf("%s [%s]", identity, kind)
}
