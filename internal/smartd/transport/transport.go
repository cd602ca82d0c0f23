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

// Package transport defines the uniform open/close/command façade over
// ATA, SCSI and NVMe devices. The façade never interprets
// semantics of what it reads back — that is the decode package's job — it
// only knows how to get bytes on and off a device.
//
// The actual pass-through ioctl/SPTI/CAM/NVMe-admin plumbing is an
// out-of-scope external collaborator; the concrete backend in this
// package instead drives the smartctl helper binary and
// adapts its output into the raw structures the decode package
// expects.
package transport

import "context"

// Kind identifies which protocol family a device speaks.
type Kind int

const (
	KindAuto Kind = iota
	KindATA
	KindSCSI
	KindNVMe
)

func (k Kind) String() string {
	switch k {
	case KindATA:
		return "ata"
	case KindSCSI:
		return "scsi"
	case KindNVMe:
		return "nvme"
	default:
		return "auto"
	}
}

// ErrorClass is the typed error taxonomy a façade method can fail with,
//.
type ErrorClass int

const (
	ErrIO ErrorClass = iota
	ErrUnsupportedCmd
	ErrBadResponse
	ErrNotReady
	ErrNoMedium
	ErrBecomingReady
)

func (c ErrorClass) String() string {
	switch c {
	case ErrUnsupportedCmd:
		return "unsupported command"
	case ErrBadResponse:
		return "bad response"
	case ErrNotReady:
		return "device not ready"
	case ErrNoMedium:
		return "no medium"
	case ErrBecomingReady:
		return "device becoming ready"
	default:
		return "i/o error"
	}
}

// Error is the typed transport error every façade method returns on
// failure instead of a bare error string.
type Error struct {
	Class ErrorClass
	Op    string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Class.String() + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Class.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Device is the polymorphic capability set every protocol backend
// implements. Individual ATA/SCSI/NVMe methods live on the
// narrower ATACommands/SCSICommands/NVMeCommands interfaces returned by
// AsATA/AsSCSI/AsNVMe; Device itself only carries what's common to all three.
type Device interface {
	Open(ctx context.Context) error
	Close() error
	IsATA() bool
	IsSCSI() bool
	IsNVMe() bool
	LastError() error

	AsATA() (ATACommands, bool)
	AsSCSI() (SCSICommands, bool)
	AsNVMe() (NVMeCommands, bool)
}

// PowerMode is the decoded ATA CHECK POWER MODE response.
type PowerMode int

const (
	PowerModeUnknown PowerMode = iota
	PowerModeActive
	PowerModeIdle
	PowerModeStandby
	PowerModeSleeping
)

func (m PowerMode) String() string {
	switch m {
	case PowerModeActive:
		return "active"
	case PowerModeIdle:
		return "idle"
	case PowerModeStandby:
		return "standby"
	case PowerModeSleeping:
		return "sleeping"
	default:
		return "unknown"
	}
}
