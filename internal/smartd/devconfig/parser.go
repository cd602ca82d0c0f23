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

package devconfig

import (
	"bufio"
	"os"
	"strings"
)

// ParseFile reads and parses a device configuration file, returning one
// DevConfig per non-DEFAULT entry line, in file order.
func ParseFile(path string) ([]*DevConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse parses config content from an already-open file (such as
// os.Stdin for "-"), tagging diagnostics with sourceName.
func Parse(r *os.File, sourceName string) ([]*DevConfig, error) {
	lines, err := spliceContinuations(r)
	if err != nil {
		return nil, err
	}

	defaults := NewDevConfig()
	var entries []*DevConfig

	for _, pl := range lines {
		text := stripComment(pl.text)
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		name := fields[0]
		args := fields[1:]

		if name == DefaultEntry {
			cfg, err := parseEntry(NewDevConfig(), args, sourceName, pl.line)
			if err != nil {
				return nil, err
			}
			defaults = cfg
			continue
		}

		cfg, err := parseEntry(defaults.Clone(), args, sourceName, pl.line)
		if err != nil {
			return nil, err
		}
		cfg.Name = name
		cfg.SourceFile = sourceName
		cfg.SourceLine = pl.line
		entries = append(entries, cfg)
	}

	return entries, nil
}

type physicalLine struct {
	text string
	line int // 1-based line number of the first physical line in this logical line
}

// spliceContinuations joins lines ending in a backslash continuation
// marker with the following line, preserving the starting line number of
// each resulting logical line for diagnostics.
func spliceContinuations(r *os.File) ([]physicalLine, error) {
	scanner := bufio.NewScanner(r)
	var out []physicalLine
	var cur strings.Builder
	startLine := 0
	lineNo := 0

	flush := func() {
		if startLine != 0 {
			out = append(out, physicalLine{text: cur.String(), line: startLine})
			cur.Reset()
			startLine = 0
		}
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if startLine == 0 {
			startLine = lineNo
		} else {
			cur.WriteByte(' ')
		}

		trimmed := strings.TrimRight(line, " \t")
		if strings.HasSuffix(trimmed, "\\") {
			cur.WriteString(strings.TrimSuffix(trimmed, "\\"))
			continue
		}
		cur.WriteString(line)
		flush()
	}
	flush()
	return out, scanner.Err()
}

func stripComment(line string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuote = !inQuote
		case '#':
			if !inQuote {
				return line[:i]
			}
		}
	}
	return line
}
