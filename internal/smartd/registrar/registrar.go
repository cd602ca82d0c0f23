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

// Package registrar probes, classifies, deduplicates, and enrolls devices
// for monitoring: one DevConfig in, one EnrolledDevice out,
// with prior state loaded and one-shot ATA tweaks applied.
package registrar

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metalbox-io/smartd-go/internal/smartd/devconfig"
	"github.com/metalbox-io/smartd-go/internal/smartd/state"
	"github.com/metalbox-io/smartd-go/internal/smartd/transport"
)

// Capabilities caches the per-protocol capability probe results a device
// exposed at registration, consulted by the check engine and self-test
// scheduler without re-probing every cycle.
type Capabilities struct {
	SmartEnabled   bool
	SelfTestLog    bool
	ErrorLog       bool
	SCTERC         bool
	ShortTest      bool
	LongTest       bool
	ConveyanceTest bool
	SelectiveTest  bool
	OfflineTest    bool
}

// EnrolledDevice is one successfully registered device: its immutable
// config, open-capable transport handle, canonical identity, persisted
// state, transient state, and the file paths its state lives at.
type EnrolledDevice struct {
	Config *devconfig.DevConfig
	Device transport.Device
	Kind   transport.Kind

	Identity     string
	Capabilities Capabilities

	Persist *state.PersistState
	Temp    *state.TempState

	StatePath   string
	AttrLogPath string
}

// Opener constructs an unopened transport.Device for a config entry; the
// registrar owns calling Open/probing/closing. Production wiring uses
// transport.NewExecDevice; tests substitute a fake.
type Opener func(path string, kind transport.Kind) transport.Device

// Registrar tracks the enrolled set for one configuration generation and
// detects duplicate identities (invariant I1).
type Registrar struct {
	stateDir string
	open     Opener
	seen     map[string]*EnrolledDevice
	enrolled []*EnrolledDevice
}

// New returns an empty registrar rooted at stateDir, the directory state
// and attribute-log files are written under.
func New(stateDir string, open Opener) *Registrar {
	return &Registrar{
		stateDir: stateDir,
		open:     open,
		seen:     make(map[string]*EnrolledDevice),
	}
}

// Enrolled returns the devices successfully registered so far, in
// enrollment order.
func (r *Registrar) Enrolled() []*EnrolledDevice { return r.enrolled }

func typeHintToKind(hint string) transport.Kind {
	switch hint {
	case "ata", "sat":
		return transport.KindATA
	case "scsi":
		return transport.KindSCSI
	case "nvme":
		return transport.KindNVMe
	default:
		return transport.KindAuto
	}
}

// Register probes and enrolls one configuration entry, per the eight
// steps of the. A duplicate identity is skipped (not an error); any
// other registration failure is returned to the caller, who decides
// fatality based on the entry's removable/quit policy.
func (r *Registrar) Register(ctx context.Context, cfg *devconfig.DevConfig) (*EnrolledDevice, error) {
	if cfg.IgnoreDevice {
		return nil, nil
	}

	dev := r.open(cfg.Name, typeHintToKind(cfg.TypeHint))
	if err := dev.Open(ctx); err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Name, err)
	}

	var identity transport.Identity
	var kind transport.Kind
	var caps Capabilities

	switch {
	case dev.IsATA():
		kind = transport.KindATA
		ata, _ := dev.AsATA()
		id, err := ata.Identify(ctx)
		if err != nil {
			return nil, fmt.Errorf("identify %s: %w", cfg.Name, err)
		}
		identity = id
		caps = probeATACapabilities(ctx, ata)
	case dev.IsSCSI():
		kind = transport.KindSCSI
		scsi, _ := dev.AsSCSI()
		id, err := scsi.Inquiry(ctx)
		if err != nil {
			return nil, fmt.Errorf("inquiry %s: %w", cfg.Name, err)
		}
		identity = id
		caps = Capabilities{SmartEnabled: true, ErrorLog: true}
	case dev.IsNVMe():
		kind = transport.KindNVMe
		nv, _ := dev.AsNVMe()
		id, err := nv.IdentifyController(ctx)
		if err != nil {
			return nil, fmt.Errorf("identify controller %s: %w", cfg.Name, err)
		}
		identity = id
		caps = Capabilities{SmartEnabled: true, ErrorLog: true, ShortTest: true, LongTest: true}
	default:
		return nil, fmt.Errorf("device %s: transport reports no protocol", cfg.Name)
	}

	canonical := BuildIdentity(identity, kind)
	if existing, dup := r.seen[canonical]; dup {
		log.Info().Str("device", cfg.Name).Str("identity", canonical).
			Str("duplicate_of", existing.Config.Name).Msg("skipping duplicate device identity")
		_ = dev.Close()
		return nil, nil
	}

	if kind == transport.KindATA {
		if ata, ok := dev.AsATA(); ok {
			applyATATweaks(ctx, ata, cfg)
		}
	}

	statePath, attrLogPath := state.PathsFor(r.stateDir, canonical)
	persist, err := state.Load(statePath)
	if err != nil {
		return nil, fmt.Errorf("load state for %s: %w", cfg.Name, err)
	}
	if persist.NextScheduledTest.IsZero() {
		persist.NextScheduledTest = time.Now()
	}

	enrolled := &EnrolledDevice{
		Config:       cfg,
		Device:       dev,
		Kind:         kind,
		Identity:     canonical,
		Capabilities: caps,
		Persist:      persist,
		Temp:         state.NewTempState(),
		StatePath:    statePath,
		AttrLogPath:  attrLogPath,
	}
	cfg.Identity = canonical

	r.seen[canonical] = enrolled
	r.enrolled = append(r.enrolled, enrolled)
	return enrolled, nil
}

func probeATACapabilities(ctx context.Context, ata transport.ATACommands) Capabilities {
	caps := Capabilities{SmartEnabled: true}
	if status, err := ata.SmartStatus(ctx); err == nil && status >= 0 {
		caps.SmartEnabled = true
	}
	if dir, err := ata.ReadLogDirectory(ctx); err == nil {
		caps.SelfTestLog = dir[0x06]
		caps.ErrorLog = dir[0x01]
	}
	caps.ShortTest = true
	caps.LongTest = true
	caps.ConveyanceTest = true
	caps.SelectiveTest = true
	caps.OfflineTest = true
	return caps
}

func applyATATweaks(ctx context.Context, ata transport.ATACommands, cfg *devconfig.DevConfig) {
	t := cfg.Tweaks
	if t.AAM != nil {
		_ = ata.SetFeature(ctx, "aam", *t.AAM)
	}
	if t.APM != nil {
		_ = ata.SetFeature(ctx, "apm", *t.APM)
	}
	if t.ReadLookahead != nil {
		v := 0
		if *t.ReadLookahead {
			v = 1
		}
		_ = ata.SetFeature(ctx, "lookahead", v)
	}
	if t.StandbyTimer != nil {
		_ = ata.SetFeature(ctx, "standby", *t.StandbyTimer)
	}
	if t.WriteCache != nil {
		v := 0
		if *t.WriteCache {
			v = 1
		}
		_ = ata.SetFeature(ctx, "wcache", v)
	}
	if t.DSN != nil {
		v := 0
		if *t.DSN {
			v = 1
		}
		_ = ata.SetFeature(ctx, "dsn", v)
	}
	if t.SecurityFreeze {
		_ = ata.SetFeature(ctx, "security-freeze", 1)
	}
	if cfg.SCTERCRead != 0 || cfg.SCTERCWrite != 0 {
		_ = ata.SCTERCSet(ctx, cfg.SCTERCRead, cfg.SCTERCWrite)
	}
}
