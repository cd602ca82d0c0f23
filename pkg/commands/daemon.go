// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and prysm contributors
//
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/metalbox-io/smartd-go/internal/smartd/daemonconfig"
	"github.com/metalbox-io/smartd-go/internal/smartd/devconfig"
	"github.com/metalbox-io/smartd-go/internal/smartd/supervisor"
	"github.com/metalbox-io/smartd-go/internal/smartd/transport"
)

// daemonFlags mirrors the short-form flag list; fields are filled
// in by cobra and merged with SMARTD_* environment overrides before a
// supervisor.Config is built.
var daemonFlags struct {
	configFile    string
	attrLogPrefix string
	saveStatePath string
	driveDB       string // -B: accepted and stored, never consulted
	debug         bool
	showDirectives bool
	interval      int
	facility      string
	noFork        bool
	pidFile       string
	quitMode      string
	report        string
	warnExec      string
	dropPrivUser  string // -u: accepted and stored, never consulted; privilege drop is left to the process supervisor (systemd User=)
	metricsAddr   string
	natsURL       string
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the monitoring loop continuously",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSupervisor(cmd.Context(), false)
	},
}

var checkCmd = &cobra.Command{
	Use:     "check",
	Aliases: []string{"onecheck"},
	Short:   "Run exactly one check pass over every configured device and exit (-q onecheck)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSupervisor(cmd.Context(), true)
	},
}

func init() {
	registerDaemonFlags(daemonCmd)
	registerDaemonFlags(checkCmd)
}

func registerDaemonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&daemonFlags.configFile, "configfile", "c", getEnv("SMARTD_CONFIGFILE", "/etc/smartd.conf"), "device directive file, or - for stdin")
	f.StringVarP(&daemonFlags.attrLogPrefix, "attrlog", "A", getEnv("SMARTD_ATTRLOG", ""), "attribute-log directory prefix (accepted, not consulted: attribute logs are written beside the state files; - does not disable them)")
	f.StringVarP(&daemonFlags.saveStatePath, "savestates", "s", getEnv("SMARTD_SAVESTATES", ""), "state-file directory prefix; - keeps the defaults file's state directory and does not disable state files")
	f.StringVarP(&daemonFlags.driveDB, "drivedb", "B", getEnv("SMARTD_DRIVEDB", ""), "path to an external drive database file (accepted, not consulted)")
	f.BoolVarP(&daemonFlags.debug, "debug", "d", getEnvBool("SMARTD_DEBUG", false), "run in the foreground with console logging and SIGINT-as-reload")
	f.BoolVarP(&daemonFlags.showDirectives, "showdirectives", "D", false, "print the configuration-file directive grammar and exit")
	f.IntVarP(&daemonFlags.interval, "interval", "i", getEnvInt("SMARTD_INTERVAL", 1800), "global checktime interval in seconds")
	f.StringVarP(&daemonFlags.facility, "logfacility", "l", getEnv("SMARTD_LOGFACILITY", "daemon"), "syslog facility name")
	f.BoolVarP(&daemonFlags.noFork, "no-fork", "n", getEnvBool("SMARTD_NOFORK", false), "do not fork a background process")
	f.StringVarP(&daemonFlags.pidFile, "pidfile", "p", getEnv("SMARTD_PIDFILE", ""), "PID file path")
	f.StringVarP(&daemonFlags.quitMode, "quit", "q", getEnv("SMARTD_QUIT", "never"), "when to quit: nodev, nodev0, nodevstartup, nodev0startup, errors, never, onecheck, showtests")
	f.StringVarP(&daemonFlags.report, "report", "r", "", "TYPE[,N]: log ioctls of the given type")
	f.StringVarP(&daemonFlags.warnExec, "warnexec", "w", getEnv("SMARTD_WARNEXEC", ""), "default warning-script path (accepted, not consulted; devices use their own -M exec path)")
	f.StringVarP(&daemonFlags.dropPrivUser, "warn-as-user", "u", getEnv("SMARTD_DROPPRIV", ""), "user to drop privileges to after startup (accepted, not enforced; use a process supervisor's User= instead)")
	f.StringVar(&daemonFlags.metricsAddr, "metrics-addr", getEnv("SMARTD_METRICS_ADDR", ""), "optional Prometheus /metrics listen address")
	f.StringVar(&daemonFlags.natsURL, "nats-url", getEnv("SMARTD_NATS_URL", ""), "optional NATS URL to publish warning dispatches to")
}

// runSupervisor builds a supervisor.Config from the resolved flags plus
// the optional daemonconfig defaults file, and serves it. runOnce maps
// both the `check` subcommand and `-q onecheck`.
func runSupervisor(ctx context.Context, runOnce bool) error {
	if daemonFlags.showDirectives {
		fmt.Println("see the device directive grammar documentation for the full syntax")
		return nil
	}
	if daemonFlags.quitMode == "onecheck" {
		runOnce = true
	}

	defaults, err := daemonconfig.Load(getEnv("SMARTD_DEFAULTS_FILE", ""))
	if err != nil {
		return fmt.Errorf("load operational defaults: %w", err)
	}

	stateDir := defaults.StateDir
	if daemonFlags.saveStatePath != "" && daemonFlags.saveStatePath != "-" {
		stateDir = daemonFlags.saveStatePath
	}
	attrLogDir := defaults.AttrLogDir
	if daemonFlags.attrLogPrefix != "" && daemonFlags.attrLogPrefix != "-" {
		attrLogDir = daemonFlags.attrLogPrefix
	}
	pidFile := defaults.PIDFile
	if daemonFlags.pidFile != "" {
		pidFile = daemonFlags.pidFile
	}
	metricsAddr := defaults.MetricsAddr
	if daemonFlags.metricsAddr != "" {
		metricsAddr = daemonFlags.metricsAddr
	}
	natsURL := defaults.NATSUrl
	if daemonFlags.natsURL != "" {
		natsURL = daemonFlags.natsURL
	}

	cfg := supervisor.Config{
		ConfigPath:     daemonFlags.configFile,
		StateDir:       stateDir,
		AttrLogDir:     attrLogDir,
		PIDPath:        pidFile,
		GlobalInterval: time.Duration(daemonFlags.interval) * time.Second,
		DebugMode:      daemonFlags.debug,
		Opener:         transport.NewExecDevice,
	}

	if metricsAddr != "" {
		cfg.Metrics = newMetricsSink(metricsAddr)
	}
	if natsURL != "" {
		if err := attachEventsSink(&cfg, natsURL); err != nil {
			log.Error().Err(err).Msg("nats events sink unavailable, continuing without it")
		}
	}

	s := supervisor.New(cfg)
	if err := s.Serve(ctx, runOnce); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
	return nil
}

// exitCodeFor maps a fatal startup error to the nearest exit code: 2 for
// a device-config syntax error, 5 for a missing config file, 6 for one
// that exists but can't be read, and 10 (generic internal error) for
// everything else this daemon can actually produce — it doesn't
// distinguish every listed cause (fork/out-of-memory are Go-runtime
// concerns this implementation doesn't raise itself).
func exitCodeFor(err error) int {
	var parseErr *devconfig.ParseError
	switch {
	case errors.As(err, &parseErr):
		return 2
	case errors.Is(err, fs.ErrNotExist):
		return 5
	case errors.Is(err, fs.ErrPermission):
		return 6
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return 6
	}
	return 10
}
