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

package registrar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalbox-io/smartd-go/internal/smartd/devconfig"
	"github.com/metalbox-io/smartd-go/internal/smartd/transport"
)

// fakeATADevice is a minimal transport.Device + transport.ATACommands
// double used to drive the registrar without a real device or smartctl.
type fakeATADevice struct {
	identity transport.Identity
}

func (f *fakeATADevice) Open(ctx context.Context) error { return nil }
func (f *fakeATADevice) Close() error                    { return nil }
func (f *fakeATADevice) IsATA() bool                     { return true }
func (f *fakeATADevice) IsSCSI() bool                    { return false }
func (f *fakeATADevice) IsNVMe() bool                    { return false }
func (f *fakeATADevice) LastError() error                { return nil }
func (f *fakeATADevice) AsATA() (transport.ATACommands, bool)  { return f, true }
func (f *fakeATADevice) AsSCSI() (transport.SCSICommands, bool) { return nil, false }
func (f *fakeATADevice) AsNVMe() (transport.NVMeCommands, bool) { return nil, false }

func (f *fakeATADevice) Identify(ctx context.Context) (transport.Identity, error) { return f.identity, nil }
func (f *fakeATADevice) ReadSMARTData(ctx context.Context) (transport.ATAAttributeTable, error) {
	return transport.ATAAttributeTable{}, nil
}
func (f *fakeATADevice) ReadSMARTThresholds(ctx context.Context) (map[int64]int, error) { return nil, nil }
func (f *fakeATADevice) ReadSMARTErrorLog(ctx context.Context) (int, error)             { return 0, nil }
func (f *fakeATADevice) ReadSMARTSelfTestLog(ctx context.Context) ([]byte, error)       { return nil, nil }
func (f *fakeATADevice) ReadLogDirectory(ctx context.Context) (map[int]bool, error) {
	return map[int]bool{0x06: true, 0x01: true}, nil
}
func (f *fakeATADevice) SmartStatus(ctx context.Context) (int, error)               { return 0, nil }
func (f *fakeATADevice) SetFeature(ctx context.Context, feature string, value int) error { return nil }
func (f *fakeATADevice) SelftestImmediate(ctx context.Context, subcommand byte) error    { return nil }
func (f *fakeATADevice) SelectiveSelftestWrite(ctx context.Context, s, e uint64, m byte) error { return nil }
func (f *fakeATADevice) SCTERCSet(ctx context.Context, r, w int) error                   { return nil }
func (f *fakeATADevice) CheckPowerMode(ctx context.Context) (transport.PowerMode, error) {
	return transport.PowerModeActive, nil
}
func (f *fakeATADevice) OfflineDataCollectionStatus(ctx context.Context) (uint8, error) { return 0, nil }
func (f *fakeATADevice) SelfTestExecutionStatus(ctx context.Context) (uint8, error)     { return 0, nil }

func TestRegisterEnrollsDevice(t *testing.T) {
	id := transport.Identity{Vendor: "SEAGATE", Model: "ST1000", Serial: "AB1", CapacityByte: 1_000_000_000_000}
	dir := t.TempDir()
	r := New(dir, func(path string, kind transport.Kind) transport.Device {
		return &fakeATADevice{identity: id}
	})

	cfg := devconfig.NewDevConfig()
	cfg.Name = "/dev/sda"

	enrolled, err := r.Register(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, enrolled)
	assert.Contains(t, enrolled.Identity, "ST1000")
	assert.Contains(t, enrolled.Identity, "AB1")
	assert.Len(t, r.Enrolled(), 1)
}

// TestRegisterDuplicateIdentityEnrollsOnce exercises the duplicate
// identity invariant: two entries with equal canonical identity strings
// enroll exactly one device.
func TestRegisterDuplicateIdentityEnrollsOnce(t *testing.T) {
	id := transport.Identity{Vendor: "SEAGATE", Model: "ST1000", Serial: "AB1", CapacityByte: 1_000_000_000_000}
	dir := t.TempDir()
	r := New(dir, func(path string, kind transport.Kind) transport.Device {
		return &fakeATADevice{identity: id}
	})

	cfg1 := devconfig.NewDevConfig()
	cfg1.Name = "/dev/sda"
	cfg2 := devconfig.NewDevConfig()
	cfg2.Name = "/dev/sdb" // different path, same underlying identity

	e1, err := r.Register(context.Background(), cfg1)
	require.NoError(t, err)
	require.NotNil(t, e1)

	e2, err := r.Register(context.Background(), cfg2)
	require.NoError(t, err)
	assert.Nil(t, e2)

	assert.Len(t, r.Enrolled(), 1)
}

func TestBuildIdentityIncludesNSIDWhenMultiNamespace(t *testing.T) {
	id := transport.Identity{Model: "NVME DRIVE", NamespaceID: 2, MultiNS: true}
	got := BuildIdentity(id, transport.KindNVMe)
	assert.Contains(t, got, "NSID:2")
}
