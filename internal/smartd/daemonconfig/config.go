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

// Package daemonconfig loads the operational defaults that sit above the
// per-device directive grammar in devconfig: where the daemon keeps its
// state files, where the PID file lives, and which sinks are enabled.
package daemonconfig

import (
	"fmt"

	"github.com/spf13/viper"
)

// Defaults holds daemon-wide operational settings, distinct from the
// device directive file parsed by devconfig.
type Defaults struct {
	StateDir    string `mapstructure:"state_dir"`
	AttrLogDir  string `mapstructure:"attrlog_dir"`
	PIDFile     string `mapstructure:"pid_file"`
	Facility    string `mapstructure:"facility"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	NATSUrl     string `mapstructure:"nats_url"`
}

// DefaultDefaults returns the built-in values used when no defaults file
// is configured, mirroring smartd's own compiled-in paths.
func DefaultDefaults() Defaults {
	return Defaults{
		StateDir:    "/var/lib/smartd",
		AttrLogDir:  "/var/lib/smartd",
		PIDFile:     "/var/run/smartd.pid",
		Facility:    "daemon",
		MetricsAddr: "",
		NATSUrl:     "",
	}
}

// Load reads an optional YAML defaults file, typically pointed to by the
// SMARTD_DEFAULTS_FILE environment variable. A blank path returns the
// built-in defaults untouched; a present path must parse.
func Load(path string) (Defaults, error) {
	d := DefaultDefaults()
	if path == "" {
		return d, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("state_dir", d.StateDir)
	v.SetDefault("attrlog_dir", d.AttrLogDir)
	v.SetDefault("pid_file", d.PIDFile)
	v.SetDefault("facility", d.Facility)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("nats_url", d.NATSUrl)

	if err := v.ReadInConfig(); err != nil {
		return d, fmt.Errorf("read defaults file %s: %w", path, err)
	}
	if err := v.Unmarshal(&d); err != nil {
		return d, fmt.Errorf("decode defaults file %s: %w", path, err)
	}
	return d, nil
}
