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

// Package state holds the per-device persistent and transient state: the
// line-oriented key/value file format, its atomic-replace write path, and
// the attribute-log row writer. Nothing here talks to a device; it only
// knows how to turn a PersistState into bytes and back.
package state

import "time"

// AttributeSnapshot is one ATA SMART attribute row as carried in
// PersistState, keyed by attribute id within PersistState.Attributes.
type AttributeSnapshot struct {
	ID         int64
	Normalized uint8
	Worst      uint8
	Raw48      uint64
	Reserved   uint8
}

// WarningThrottle is the per-message-type dispatch history described in
// the: how many times a warning of this type has been sent, and
// when the first and most recent dispatch happened.
type WarningThrottle struct {
	Count     int64
	FirstSent time.Time
	LastSent  time.Time
}

// NVMeHealthSubset is the slice of the NVMe health log PersistState needs
// to remember across cycles to detect degradation.
type NVMeHealthSubset struct {
	AvailableSpare uint8
	PercentUsed    uint8
	MediaErrors    uint64
}

// PersistState is the per-device state that survives restarts, written to
// disk after every cycle that changes it.
type PersistState struct {
	TemperatureMin int
	TemperatureMax int

	SelfTestErrorCount int
	SelfTestErrorHour  uint16

	NextScheduledTest time.Time

	SelectiveTestLastStart uint64
	SelectiveTestLastEnd   uint64

	Attributes map[int64]AttributeSnapshot

	ATAErrorCount  int
	NVMeErrorCount int

	NVMeHealth NVMeHealthSubset

	Warnings map[string]WarningThrottle
}

// NewPersistState returns a zero-valued state with its maps initialized,
// ready to be mutated by the check engine.
func NewPersistState() *PersistState {
	return &PersistState{
		Attributes: make(map[int64]AttributeSnapshot),
		Warnings:   make(map[string]WarningThrottle),
	}
}

// TempState is in-memory-only, per the; it is rebuilt at registration
// and discarded at reload or shutdown.
type TempState struct {
	MustWrite bool
	Skip      bool

	NextWakeup time.Time

	NotCapShort      bool
	NotCapLong       bool
	NotCapConveyance bool
	NotCapSelective  bool
	NotCapOffline    bool

	LastTemperature      int
	TempMinDelayDeadline time.Time

	Removed              bool
	PowerModeCheckFailed bool
	ConsecutiveSkipped   int
	LastSkippedPowerMode string

	AttrlogValid    bool
	AttrlogProtocol string

	HaveOfflineStatus  bool
	LastOfflineStatus  uint8
	HaveSelfTestStatus bool
	LastSelfTestStatus uint8
}

// NewTempState returns a freshly-registered device's transient state.
func NewTempState() *TempState {
	return &TempState{}
}
