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
	"strconv"
	"strings"
)

// parseEntry walks one entry's directive tokens, mutating a clone of the
// running defaults. Unknown tokens, missing arguments, and out-of-range
// integers are fatal.
func parseEntry(cfg *DevConfig, tokens []string, file string, line int) (*DevConfig, error) {
	explicitConcern := false
	i := 0
	next := func(directive string) (string, error) {
		i++
		if i >= len(tokens) {
			return "", fatalf(file, line, "directive %s requires an argument", directive)
		}
		return tokens[i], nil
	}

	for ; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok == "-d":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			if v == "ignore" {
				cfg.IgnoreDevice = true
			} else if v == "removable" {
				cfg.Removable = true
			} else {
				cfg.TypeHint = v
			}

		case tok == "-T":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			switch v {
			case "normal":
				cfg.Permissive = false
			case "permissive":
				cfg.Permissive = true
			default:
				return nil, fatalf(file, line, "-T expects normal|permissive, got %q", v)
			}

		case tok == "-H":
			cfg.Concerns |= ConcernHealth
			explicitConcern = true
			if i+1 < len(tokens) && strings.HasPrefix(tokens[i+1], "0x") {
				i++
				mask, err := strconv.ParseUint(strings.TrimPrefix(tokens[i], "0x"), 16, 8)
				if err != nil {
					return nil, fatalf(file, line, "-H mask %q is not a valid hex byte", tokens[i])
				}
				cfg.NVMeHealthMask = uint8(mask)
			} else {
				cfg.NVMeHealthMask = 0xff
			}

		case tok == "-f":
			cfg.FlagFailedUsage = true

		case tok == "-t":
			cfg.Concerns |= ConcernPrefailChanges | ConcernUsageChanges
			explicitConcern = true
		case tok == "-p":
			cfg.Concerns |= ConcernPrefailChanges
			explicitConcern = true
		case tok == "-u":
			cfg.Concerns |= ConcernUsageChanges
			explicitConcern = true

		case tok == "-l":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			if err := applyLogDirective(cfg, v, file, line); err != nil {
				return nil, err
			}
			explicitConcern = true

		case tok == "-s":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			cfg.SelfTest.Pattern = v

		case tok == "-o":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			if v != "on" && v != "off" {
				return nil, fatalf(file, line, "-o expects on|off, got %q", v)
			}

		case tok == "-S":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			if v != "on" && v != "off" {
				return nil, fatalf(file, line, "-S expects on|off, got %q", v)
			}

		case tok == "-n":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			if err := applyPowerSkip(cfg, v, file, line); err != nil {
				return nil, err
			}

		case tok == "-m":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			if v == "<nomailer>" {
				cfg.Warning.NoMailerOK = true
			}
			cfg.Warning.Address = v

		case tok == "-M":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			if err := applyWarningPolicy(cfg, v, tokens, &i, file, line); err != nil {
				return nil, err
			}

		case tok == "-r" || tok == "-R" || tok == "-i" || tok == "-I":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			if err := applyAttrFlag(cfg, tok, v, file, line); err != nil {
				return nil, err
			}

		case tok == "-C" || tok == "-U":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			increaseOnly := strings.HasSuffix(v, "+")
			idStr := strings.TrimSuffix(v, "+")
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return nil, fatalf(file, line, "%s expects an attribute id, got %q", tok, v)
			}
			cfg.PendingSectorAttrs = append(cfg.PendingSectorAttrs, PendingSectorSpec{AttributeID: id, IncreaseOnly: increaseOnly, Current: tok == "-C"})

		case tok == "-W":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			parts := strings.Split(v, ",")
			if len(parts) != 3 {
				return nil, fatalf(file, line, "-W expects D,I,C, got %q", v)
			}
			d, err1 := strconv.Atoi(parts[0])
			in, err2 := strconv.Atoi(parts[1])
			c, err3 := strconv.Atoi(parts[2])
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, fatalf(file, line, "-W values must be integers, got %q", v)
			}
			cfg.TempThresholds = TempThresholds{Diff: d, Info: in, Critical: c}
			cfg.Concerns |= ConcernTemperature
			explicitConcern = true

		case tok == "-v":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			if err := applyAttrRemap(cfg, v, file, line); err != nil {
				return nil, err
			}

		case tok == "-P":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			switch v {
			case "use", "ignore", "show", "showall":
			default:
				return nil, fatalf(file, line, "-P expects use|ignore|show|showall, got %q", v)
			}

		case tok == "-F":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			cfg.FirmwareBugWorkarounds = append(cfg.FirmwareBugWorkarounds, v)

		case tok == "-e":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			if err := applyATATweak(cfg, v, file, line); err != nil {
				return nil, err
			}

		case tok == "-c":
			v, err := next(tok)
			if err != nil {
				return nil, err
			}
			if !strings.HasPrefix(v, "i=") {
				return nil, fatalf(file, line, "-c expects i=N, got %q", v)
			}

		case tok == "-a":
			cfg.Concerns = ConcernAll
			explicitConcern = true

		default:
			return nil, fatalf(file, line, "unrecognized directive %q", tok)
		}
	}

	if cfg.Warning.Policy == WarnPolicyExec && cfg.Warning.ExecPath == "" {
		return nil, fatalf(file, line, "-M exec requires a path argument")
	}
	if cfg.Warning.NoMailerOK && cfg.Warning.Policy != WarnPolicyExec {
		return nil, fatalf(file, line, "-m <nomailer> requires -M exec")
	}
	if !explicitConcern {
		cfg.Concerns = ConcernAll
	}
	return cfg, nil
}

func applyLogDirective(cfg *DevConfig, v, file string, line int) error {
	switch {
	case v == "selftest":
		cfg.Concerns |= ConcernSelfTestLog
	case v == "error":
		cfg.Concerns |= ConcernErrorLog
	case v == "xerror":
		cfg.Concerns |= ConcernExtendedErrorLog
	case strings.HasPrefix(v, "offlinests"):
		cfg.Concerns |= ConcernOfflineStatus
		cfg.ReportOfflineNS = strings.Contains(v, ",ns")
	case strings.HasPrefix(v, "selfteststs"):
		cfg.Concerns |= ConcernSelfTestStatus
		cfg.ReportSelftestNS = strings.Contains(v, ",ns")
	case strings.HasPrefix(v, "scterc,"):
		parts := strings.Split(strings.TrimPrefix(v, "scterc,"), ",")
		if len(parts) != 2 {
			return fatalf(file, line, "-l scterc,R,W expects two values, got %q", v)
		}
		r, err1 := strconv.Atoi(parts[0])
		w, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return fatalf(file, line, "-l scterc,R,W values must be integers, got %q", v)
		}
		cfg.SCTERCRead, cfg.SCTERCWrite = r, w
	default:
		return fatalf(file, line, "unrecognized -l argument %q", v)
	}
	return nil
}

func applyPowerSkip(cfg *DevConfig, v, file string, line int) error {
	parts := strings.Split(v, ",")
	mode := parts[0]
	p := PowerSkipPolicy{}
	switch mode {
	case "never":
		p.Mode = PowerSkipNever
	case "sleep":
		p.Mode = PowerSkipSleep
	case "standby":
		p.Mode = PowerSkipStandby
	case "idle":
		p.Mode = PowerSkipIdle
	default:
		return fatalf(file, line, "-n expects never|sleep|standby|idle, got %q", v)
	}
	for _, extra := range parts[1:] {
		if extra == "q" {
			p.Quiet = true
			continue
		}
		n, err := strconv.Atoi(extra)
		if err != nil {
			return fatalf(file, line, "-n repeat-cap must be an integer, got %q", extra)
		}
		p.RepeatCap = n
	}
	cfg.PowerSkip = p
	return nil
}

func applyWarningPolicy(cfg *DevConfig, v string, tokens []string, i *int, file string, line int) error {
	switch v {
	case "once":
		cfg.Warning.Policy = WarnPolicyOnce
	case "always":
		cfg.Warning.Policy = WarnPolicyAlways
	case "daily":
		cfg.Warning.Policy = WarnPolicyDaily
	case "diminishing":
		cfg.Warning.Policy = WarnPolicyDiminishing
	case "test":
		cfg.Warning.Policy = WarnPolicyTest
	case "exec":
		cfg.Warning.Policy = WarnPolicyExec
		*i++
		if *i >= len(tokens) {
			return fatalf(file, line, "-M exec requires a path argument")
		}
		cfg.Warning.ExecPath = tokens[*i]
	default:
		return fatalf(file, line, "unrecognized -M argument %q", v)
	}
	return nil
}

func applyAttrFlag(cfg *DevConfig, directive, v, file string, line int) error {
	critical := strings.HasSuffix(v, "!")
	idStr := strings.TrimSuffix(v, "!")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return fatalf(file, line, "%s expects an attribute id, got %q", directive, v)
	}
	flags := cfg.AttributeFlags[id]
	switch directive {
	case "-r":
		flags.TrackRaw = true
		flags.TreatAsCritical = flags.TreatAsCritical || critical
	case "-R":
		flags.PrintRaw = true
		flags.TrackRaw = true
		flags.RawCritical = flags.RawCritical || critical
	case "-i":
		flags.IgnoreFailure = true
	case "-I":
		flags.Ignore = true
	}
	cfg.AttributeFlags[id] = flags
	return nil
}

func applyAttrRemap(cfg *DevConfig, v, file string, line int) error {
	parts := strings.SplitN(v, ",", 2)
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return fatalf(file, line, "-v expects N,SPEC, got %q", v)
	}
	if len(parts) == 2 {
		cfg.AttributeRemap[id] = parts[1]
	}
	return nil
}

func applyATATweak(cfg *DevConfig, v, file string, line int) error {
	parts := strings.Split(v, ",")
	feature := parts[0]
	arg := ""
	if len(parts) > 1 {
		arg = parts[1]
	}
	switch feature {
	case "aam":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fatalf(file, line, "-e aam requires a numeric level, got %q", arg)
		}
		cfg.Tweaks.AAM = &n
	case "apm":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fatalf(file, line, "-e apm requires a numeric level, got %q", arg)
		}
		cfg.Tweaks.APM = &n
	case "lookahead":
		b := arg == "on"
		cfg.Tweaks.ReadLookahead = &b
	case "standby":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fatalf(file, line, "-e standby requires a numeric timer value, got %q", arg)
		}
		cfg.Tweaks.StandbyTimer = &n
	case "wcache":
		b := arg == "on"
		cfg.Tweaks.WriteCache = &b
	case "dsn":
		b := arg == "on"
		cfg.Tweaks.DSN = &b
	case "security-freeze":
		cfg.Tweaks.SecurityFreeze = true
	default:
		return fatalf(file, line, "unrecognized -e feature %q", feature)
	}
	return nil
}
