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

package check

// AttributeChange is one ATA attribute whose normalized value moved
// between cycles.
type AttributeChange struct {
	ID         int64
	Name       string
	Prev       uint8
	Current    uint8
	Critical   bool
	PrevRaw    uint64
	CurrentRaw uint64
	RawChanged bool
}

// PendingSectorEvent is a reportable `-C`/`-U` pending/uncorrectable
// sector count.
type PendingSectorEvent struct {
	Current bool // true for -C (current pending), false for -U (offline uncorrectable)
	Count   uint64
}

// TemperatureOutcome is what the temperature step decided
// for one cycle's reading.
type TemperatureOutcome struct {
	Current       int
	ChangedLine   bool
	Critical      bool
	Informational bool
	Recovered     bool
}

// StatusTransition is a change in an ATA offline-data-collection or
// self-test-execution status byte between cycles.
type StatusTransition struct {
	From, To uint8
	Critical bool
}

// SelfTestLogOutcome is the result of re-reading and re-walking the ATA
// self-test log for one cycle.
type SelfTestLogOutcome struct {
	ErrorCount int
	ErrorHour  uint16
	Increased  bool
	Decreased  bool
	NewHour    bool
}
