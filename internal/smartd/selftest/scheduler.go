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

// Package selftest implements the self-test scheduler: a
// calendar-regex expression matched against a canonical
// T/MM/DD/d/HH[:OOO[-LLL]] pattern string to decide when a device's next
// self-test should start.
package selftest

import (
	"fmt"
	"regexp"
	"time"
)

// TestType is one of the seven self-test kinds the scheduler recognizes.
type TestType byte

const (
	TypeLong       TestType = 'L'
	TypeOfflineImm TestType = 'O'
	TypeSelNext    TestType = 'n'
	TypeSelCont    TestType = 'c'
	TypeSelRedo    TestType = 'r'
	TypeShort      TestType = 'S'
	TypeConveyance TestType = 'C'
)

// priorityOrder is the scanning order: L > n > c > r > S > C > O.
var priorityOrder = []TestType{TypeLong, TypeSelNext, TypeSelCont, TypeSelRedo, TypeShort, TypeConveyance, TypeOfflineImm}

// Schedule is a compiled self-test expression, ready to be evaluated
// repeatedly against advancing wall-clock time.
type Schedule struct {
	re      *regexp.Regexp
	stagger int
	limit   int
}

// Compile compiles a device's `-s REGEX` pattern once per reload and
// reuses the compiled form. stagger and limit come from the device's
// SelfTestSchedule; limit 0 means the default 999 applies.
func Compile(pattern string, stagger, limit int) (*Schedule, error) {
	if limit <= 0 {
		limit = 999
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("self-test schedule: invalid regex %q: %w", pattern, err)
	}
	return &Schedule{re: re, stagger: stagger, limit: limit}, nil
}

// Candidate is the scheduler's decision for one cycle: which test type to
// run, and the hour it was matched against.
type Candidate struct {
	Type TestType
	Time time.Time
	Old  bool // true if this hour is strictly before the current hour bucket
}

// CapabilityCheck reports whether the device can run a given test type;
// the scheduler skips types the device lacks.
type CapabilityCheck func(TestType) bool

// offsetToken finds literal ":OOO[-LLL]" stagger-offset tokens embedded in
// the user's pattern text, per the `:OOO[-LLL]` grammar.
var offsetToken = regexp.MustCompile(`:([0-9]{1,3})(?:-([0-9]{1,3}))?`)

type offsetSpec struct {
	offset int
	limit  int
}

func (s *Schedule) offsets() []offsetSpec {
	specs := []offsetSpec{{offset: 0, limit: s.limit}}
	for _, m := range offsetToken.FindAllStringSubmatch(s.re.String(), -1) {
		var off, lim int
		fmt.Sscanf(m[1], "%d", &off)
		lim = s.limit
		if m[2] != "" {
			fmt.Sscanf(m[2], "%d", &lim)
		}
		specs = append(specs, offsetSpec{offset: off, limit: lim})
	}
	return specs
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func canonicalPattern(typ TestType, t time.Time) string {
	return fmt.Sprintf("%c/%02d/%02d/%d/%02d", typ, int(t.Month()), t.Day(), isoWeekday(t), t.Hour())
}

// AdjustWatermark corrects a stored next-scheduled-test watermark for
// clock skew before Evaluate walks forward from it: a watermark more
// than an hour in the future is pulled back to now, and one more than
// 90 days in the past is moved up to now minus 90 days.
func AdjustWatermark(watermark, now time.Time) time.Time {
	if watermark.After(now) && watermark.Sub(now) > time.Hour {
		return now
	}
	if now.Sub(watermark) > 90*24*time.Hour {
		return now.Add(-90 * 24 * time.Hour)
	}
	return watermark
}

// Evaluate walks from watermark forward to now, one hour at a time,
// looking for the highest-priority matching test type at the first hour
// that matches anything. It returns the chosen
// candidate (nil if none matched) and the watermark's new value.
func (s *Schedule) Evaluate(watermark, now time.Time, capable CapabilityCheck) (*Candidate, time.Time) {
	watermark = AdjustWatermark(watermark, now)

	nowHour := now.Truncate(time.Hour)
	cursor := watermark.Truncate(time.Hour).Add(time.Hour)
	if cursor.After(nowHour) {
		cursor = nowHour.Add(time.Hour)
		return nil, cursor
	}

	specs := s.offsets()
	var found *Candidate

	for h := cursor; !h.After(nowHour) && found == nil; h = h.Add(time.Hour) {
		for _, typ := range priorityOrder {
			if capable != nil && !capable(typ) {
				continue
			}
			matched := false
			for _, spec := range specs {
				mod := spec.limit + 1
				shiftHours := 0
				if mod > 0 {
					shiftHours = (s.stagger * spec.offset) % mod
				}
				adjusted := h.Add(-time.Duration(shiftHours) * time.Hour)
				if s.re.MatchString(canonicalPattern(typ, adjusted)) {
					matched = true
					break
				}
			}
			if matched {
				found = &Candidate{Type: typ, Time: h, Old: h.Before(nowHour)}
				break
			}
		}
	}

	newWatermark := nowHour.Add(time.Hour)
	return found, newWatermark
}
