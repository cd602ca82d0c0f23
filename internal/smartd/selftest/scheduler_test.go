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

package selftest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEvaluateLongTestOnSunday covers the case: regex
// "L/../../7/02" evaluated at Sunday 02:17 with watermark 01:00 selects
// the long self-test at 02:00.
func TestEvaluateLongTestOnSunday(t *testing.T) {
	sched, err := Compile("L/../../7/02", 0, 0)
	require.NoError(t, err)

	// 2026-08-09 is a Sunday.
	watermark := time.Date(2026, 8, 9, 1, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 9, 2, 17, 0, 0, time.UTC)

	candidate, _ := sched.Evaluate(watermark, now, nil)
	require.NotNil(t, candidate)
	assert.Equal(t, TypeLong, candidate.Type)
	assert.Equal(t, 2, candidate.Time.Hour())
}

func TestEvaluateDeterministic(t *testing.T) {
	sched, err := Compile("S/../.././..", 0, 0)
	require.NoError(t, err)
	watermark := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)

	c1, w1 := sched.Evaluate(watermark, now, nil)
	c2, w2 := sched.Evaluate(watermark, now, nil)
	require.NotNil(t, c1)
	require.NotNil(t, c2)
	assert.Equal(t, c1.Type, c2.Type)
	assert.Equal(t, c1.Time, c2.Time)
	assert.Equal(t, w1, w2)
}

// TestEvaluatePriorityOrdering exercises the priority-ordering
// invariant: when both a long and short test match the same hour, the
// scheduler picks long (L > ... > S).
func TestEvaluatePriorityOrdering(t *testing.T) {
	sched, err := Compile("L/../.././..|S/../.././..", 0, 0)
	require.NoError(t, err)
	watermark := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)

	candidate, _ := sched.Evaluate(watermark, now, nil)
	require.NotNil(t, candidate)
	assert.Equal(t, TypeLong, candidate.Type)
}

func TestEvaluateSkipsUncapableTestTypes(t *testing.T) {
	sched, err := Compile("L/../.././..|S/../.././..", 0, 0)
	require.NoError(t, err)
	watermark := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)

	capable := func(typ TestType) bool { return typ != TypeLong }
	candidate, _ := sched.Evaluate(watermark, now, capable)
	require.NotNil(t, candidate)
	assert.Equal(t, TypeShort, candidate.Type)
}

func TestEvaluateNoMatchReturnsNil(t *testing.T) {
	sched, err := Compile("L/../.././03", 0, 0)
	require.NoError(t, err)
	watermark := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)

	candidate, newWatermark := sched.Evaluate(watermark, now, nil)
	assert.Nil(t, candidate)
	assert.True(t, newWatermark.After(now) || newWatermark.Equal(now.Truncate(time.Hour).Add(time.Hour)))
}

func TestAdjustWatermarkSnapsBackwardJump(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	watermark := now.Add(2 * time.Hour)
	got := AdjustWatermark(watermark, now)
	assert.Equal(t, now, got)
}

func TestAdjustWatermarkClampsForwardJump(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	watermark := now.Add(-100 * 24 * time.Hour)
	got := AdjustWatermark(watermark, now)
	assert.Equal(t, now.Add(-90*24*time.Hour), got)
}

func TestCompileInvalidRegexFails(t *testing.T) {
	_, err := Compile("L/(unterminated", 0, 0)
	assert.Error(t, err)
}
