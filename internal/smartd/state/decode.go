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

package state

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// keyLine matches one `key = value` line, tolerating surrounding
// whitespace; anything that doesn't match this shape is an "invalid" line
//, tolerated as long as at least one line in the file did
// parse.
var keyLine = regexp.MustCompile(`^\s*([A-Za-z0-9_.\-]+)\s*=\s*(-?[0-9]+)\s*$`)

var attrKey = regexp.MustCompile(`^ata-smart-attribute\.([0-9]+)\.(id|val|worst|raw|resvd)$`)
var mailKey = regexp.MustCompile(`^mail\.([A-Za-z0-9_]+)\.(count|first-sent-time|last-sent-time)$`)

// Decode parses the line-oriented key/value format written by Encode. It
// never fails on individual unrecognized lines — only a file in which no
// line parses at all is rejected.
func Decode(text string) (*PersistState, error) {
	s := NewPersistState()
	parsed := 0

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := keyLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key, valStr := m[1], m[2]
		val, err := strconv.ParseInt(valStr, 10, 64)
		if err != nil {
			continue
		}
		if applyKey(s, key, val) {
			parsed++
		}
	}

	if parsed == 0 && strings.TrimSpace(text) != "" {
		return nil, fmt.Errorf("state: no recognizable key/value lines in file")
	}
	return s, nil
}

func applyKey(s *PersistState, key string, val int64) bool {
	switch key {
	case "temperature-min":
		s.TemperatureMin = int(val)
		return true
	case "temperature-max":
		s.TemperatureMax = int(val)
		return true
	case "selftest-errorcount":
		s.SelfTestErrorCount = int(val)
		return true
	case "selftest-errorhour":
		s.SelfTestErrorHour = uint16(val)
		return true
	case "next-scheduled-test":
		s.NextScheduledTest = time.Unix(val, 0)
		return true
	case "selective-test-last-start":
		s.SelectiveTestLastStart = uint64(val)
		return true
	case "selective-test-last-end":
		s.SelectiveTestLastEnd = uint64(val)
		return true
	case "ata-error-count":
		s.ATAErrorCount = int(val)
		return true
	case "nvme-error-count":
		s.NVMeErrorCount = int(val)
		return true
	case "nvme-available-spare":
		s.NVMeHealth.AvailableSpare = uint8(val)
		return true
	case "nvme-percent-used":
		s.NVMeHealth.PercentUsed = uint8(val)
		return true
	case "nvme-media-errors":
		s.NVMeHealth.MediaErrors = uint64(val)
		return true
	}

	if m := attrKey.FindStringSubmatch(key); m != nil {
		id, _ := strconv.ParseInt(m[1], 10, 64)
		a := s.Attributes[id]
		a.ID = id
		switch m[2] {
		case "id":
			a.ID = val
		case "val":
			a.Normalized = uint8(val)
		case "worst":
			a.Worst = uint8(val)
		case "raw":
			a.Raw48 = uint64(val)
		case "resvd":
			a.Reserved = uint8(val)
		}
		s.Attributes[id] = a
		return true
	}

	if m := mailKey.FindStringSubmatch(key); m != nil {
		typ := m[1]
		w := s.Warnings[typ]
		switch m[2] {
		case "count":
			w.Count = val
		case "first-sent-time":
			w.FirstSent = time.Unix(val, 0)
		case "last-sent-time":
			w.LastSent = time.Unix(val, 0)
		}
		s.Warnings[typ] = w
		return true
	}

	return false
}
