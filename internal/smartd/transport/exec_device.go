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
	"encoding/json"
	"fmt"
	"os/exec"
)

// ExecDevice is the concrete Device backend that drives the smartctl
// binary, the way smartctlhelper.go in the retrieval pack drives it, and
// adapts its JSON output into the raw structures the decode package
// expects. It is the one Device implementation this daemon ships; other
// transports (direct ioctl/SPTI/CAM) are the out-of-scope external
// collaborator described in package transport's doc comment.
type ExecDevice struct {
	path        string
	requestKind Kind
	runner      commandRunner

	kind   Kind
	out    *smartctlOutput
	lastOp string
	lastErr error
}

// commandRunner abstracts exec.Command for tests.
type commandRunner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "smartctl", args...)
	return cmd.Output()
}

// NewExecDevice constructs a device bound to a path (e.g. /dev/sda) and an
// optional forced protocol kind (KindAuto lets smartctl decide).
func NewExecDevice(path string, kind Kind) *ExecDevice {
	return &ExecDevice{path: path, requestKind: kind, runner: execRunner{}}
}

// SmartctlInstalled reports whether the smartctl binary is on PATH, mirroring
// checkSmartctlInstalled in the retrieval pack.
func SmartctlInstalled() bool {
	_, err := exec.LookPath("smartctl")
	return err == nil
}

func (d *ExecDevice) Open(ctx context.Context) error {
	args := []string{"--json", "--info", "--health", "--attributes",
		"--tolerance=verypermissive", "--nocheck=standby", "--format=brief", "--log=error"}
	if d.requestKind != KindAuto {
		args = append(args, "-d", d.requestKind.String())
	}
	args = append(args, d.path)

	raw, err := d.runner.Run(ctx, args...)
	if err != nil && len(raw) == 0 {
		d.lastErr = &Error{Class: ErrIO, Op: "open", Err: err}
		return d.lastErr
	}
	var out smartctlOutput
	if jsonErr := json.Unmarshal(raw, &out); jsonErr != nil {
		d.lastErr = &Error{Class: ErrBadResponse, Op: "open", Err: jsonErr}
		return d.lastErr
	}
	d.out = &out
	switch out.Device.Type {
	case "ata":
		d.kind = KindATA
	case "scsi":
		d.kind = KindSCSI
	case "nvme":
		d.kind = KindNVMe
	default:
		d.lastErr = &Error{Class: ErrUnsupportedCmd, Op: "open", Err: fmt.Errorf("unrecognized device type %q", out.Device.Type)}
		return d.lastErr
	}
	return nil
}

func (d *ExecDevice) Close() error { return nil }

func (d *ExecDevice) IsATA() bool  { return d.kind == KindATA }
func (d *ExecDevice) IsSCSI() bool { return d.kind == KindSCSI }
func (d *ExecDevice) IsNVMe() bool { return d.kind == KindNVMe }

func (d *ExecDevice) LastError() error { return d.lastErr }

func (d *ExecDevice) AsATA() (ATACommands, bool) {
	if d.kind != KindATA {
		return nil, false
	}
	return (*execATA)(d), true
}

func (d *ExecDevice) AsSCSI() (SCSICommands, bool) {
	if d.kind != KindSCSI {
		return nil, false
	}
	return (*execSCSI)(d), true
}

func (d *ExecDevice) AsNVMe() (NVMeCommands, bool) {
	if d.kind != KindNVMe {
		return nil, false
	}
	return (*execNVMe)(d), true
}

// runLog re-invokes smartctl asking for one specific log page, the way the
// daemon needs to when the one combined Open() call didn't request it.
func (d *ExecDevice) runLog(ctx context.Context, logArgs ...string) (*smartctlOutput, error) {
	args := append([]string{"--json"}, logArgs...)
	args = append(args, d.path)
	raw, err := d.runner.Run(ctx, args...)
	if err != nil && len(raw) == 0 {
		return nil, &Error{Class: ErrIO, Op: "log", Err: err}
	}
	var out smartctlOutput
	if jsonErr := json.Unmarshal(raw, &out); jsonErr != nil {
		return nil, &Error{Class: ErrBadResponse, Op: "log", Err: jsonErr}
	}
	return &out, nil
}

func identityFromOutput(out *smartctlOutput) Identity {
	id := Identity{
		Model:       out.ModelName,
		Serial:      out.SerialNumber,
		NamespaceID: out.NVMeNamespaceID,
	}
	if out.ModelFamily != "" {
		id.Vendor = out.ModelFamily
	}
	if out.WWN != nil {
		id.WWN = fmt.Sprintf("%x-%06x-%09x", out.WWN.NAA, out.WWN.OUI, out.WWN.ID)
	}
	if out.UserCapacity != nil {
		id.CapacityByte = uint64(out.UserCapacity.Bytes)
	}
	return id
}
