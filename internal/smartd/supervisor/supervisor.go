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

// Package supervisor runs the cooperative monitoring loop:
// register devices, run one check cycle per wakeup, flush state and
// attribute-log files, compute the next wakeup, sleep, and react to
// signals at the sleep boundary.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metalbox-io/smartd-go/internal/smartd/check"
	"github.com/metalbox-io/smartd-go/internal/smartd/devconfig"
	"github.com/metalbox-io/smartd-go/internal/smartd/registrar"
	"github.com/metalbox-io/smartd-go/internal/smartd/selftest"
	"github.com/metalbox-io/smartd-go/internal/smartd/state"
	"github.com/metalbox-io/smartd-go/internal/smartd/warning"
)

// Config wires the one-time, startup-supplied settings the supervisor
// needs; everything per-cycle is recomputed from the enrolled set.
type Config struct {
	ConfigPath     string
	StateDir       string
	AttrLogDir     string
	PIDPath        string
	GlobalInterval time.Duration
	DebugMode      bool
	Opener         registrar.Opener

	// Metrics and Events are both nil unless their respective CLI flags
	// or the operational defaults file enabled them; a nil sink is simply
	// skipped every cycle.
	Metrics *Metrics
	Events  *Events

	// ReadyNotify, if set, is called once after the first registration
	// pass succeeds (systemd-style readiness, the). Production
	// wiring passes a sd_notify helper; tests leave it nil.
	ReadyNotify func()
}

// Supervisor holds one run's registrar, compiled self-test schedules,
// and the atomic signal flags its signal handlers and sleep loop share.
type Supervisor struct {
	cfg Config
	reg *registrar.Registrar

	schedules map[string]*selftest.Schedule

	prevWakeup time.Time

	shutdownRequested atomic.Bool
	reloadRequested   atomic.Bool
	wakeRequested     atomic.Bool
	debugToggle       atomic.Bool
}

// New returns a supervisor ready to register devices against cfg.
func New(cfg Config) *Supervisor {
	return &Supervisor{
		cfg:       cfg,
		reg:       registrar.New(cfg.StateDir, cfg.Opener),
		schedules: make(map[string]*selftest.Schedule),
	}
}

// RequestShutdown, RequestReload, RequestWake, and ToggleDebug are the
// only operations a signal handler may perform: flip a flag the main
// loop polls at its next sleep boundary. They're exported so the cobra
// command layer can wire os/signal.Notify without the supervisor owning
// process-global signal state.
func (s *Supervisor) RequestShutdown() { s.shutdownRequested.Store(true) }
func (s *Supervisor) RequestReload()   { s.reloadRequested.Store(true) }
func (s *Supervisor) RequestWake()     { s.wakeRequested.Store(true) }
func (s *Supervisor) ToggleDebug()     { s.debugToggle.Store(!s.debugToggle.Load()) }

// registerAll parses the config file and registers every entry, logging
// (not failing) a single device's registration error unless the entry
// is non-removable, per the fatality rule.
func (s *Supervisor) registerAll(ctx context.Context) error {
	entries, err := devconfig.ParseFile(s.cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("parse device config %s: %w", s.cfg.ConfigPath, err)
	}

	for _, cfg := range entries {
		enrolled, err := s.reg.Register(ctx, cfg)
		if err != nil {
			if cfg.Removable {
				log.Warn().Str("device", cfg.Name).Err(err).Msg("registration failed for removable device, continuing")
				continue
			}
			return fmt.Errorf("register %s: %w", cfg.Name, err)
		}
		if enrolled == nil {
			continue // ignored or duplicate
		}
		if cfg.SelfTest.Pattern != "" {
			sched, err := selftest.Compile(cfg.SelfTest.Pattern, cfg.SelfTest.Stagger, cfg.SelfTest.Limit)
			if err != nil {
				log.Error().Str("device", cfg.Name).Err(err).Msg("invalid self-test schedule, self-tests disabled for device")
				continue
			}
			s.schedules[enrolled.Identity] = sched
		}
	}
	return nil
}

// scheduleFor returns the compiled self-test schedule for an enrolled
// device, or nil if it carries no `-s` directive.
func (s *Supervisor) scheduleFor(dev *registrar.EnrolledDevice) *selftest.Schedule {
	return s.schedules[dev.Identity]
}

// runCycle runs one check pass over every non-skipped enrolled device,
// flushing persisted state and attribute-log rows as it goes, and
// returns the per-device errors that occurred (the cycle as a whole
// never aborts on one device's failure, per the).
func (s *Supervisor) runCycle(ctx context.Context, now time.Time) []error {
	var errs []error
	for _, dev := range s.reg.Enrolled() {
		if dev.Temp.Skip {
			dev.Temp.Skip = false
			continue
		}

		pipe := warning.NewPipeline(dev.Config.Warning)
		if s.cfg.Events != nil {
			send := pipe.Send
			pipe.Send = func(ctx context.Context, d warning.Dispatch) error {
				s.cfg.Events.PublishDispatch(d)
				return send(ctx, d)
			}
		}
		if err := check.Run(ctx, dev, s.scheduleFor(dev), pipe, now); err != nil {
			errs = append(errs, fmt.Errorf("check %s: %w", dev.Config.Name, err))
		}

		if dev.Temp.MustWrite {
			if err := state.Save(dev.StatePath, dev.Persist); err != nil {
				errs = append(errs, fmt.Errorf("save state %s: %w", dev.Config.Name, err))
			}
		}
		if dev.Temp.AttrlogValid {
			if err := appendAttrLogRow(dev, now); err != nil {
				errs = append(errs, fmt.Errorf("append attribute log %s: %w", dev.Config.Name, err))
			}
		}

		if s.cfg.Metrics != nil {
			s.cfg.Metrics.Observe(dev)
		}
	}
	return errs
}

// flushReload saves every enrolled device's state unconditionally
// before tearing down for a SIGHUP reload.
func (s *Supervisor) flushReload() {
	for _, dev := range s.reg.Enrolled() {
		if err := state.Save(dev.StatePath, dev.Persist); err != nil {
			log.Error().Str("device", dev.Config.Name).Err(err).Msg("save state before reload failed")
		}
	}
}

// reload tears down the enrolled set and re-registers from the config
// file, preserving each device's on-disk state (loaded fresh by the new
// Registrar from the same state directory).
func (s *Supervisor) reload(ctx context.Context) error {
	s.flushReload()
	s.reg = registrar.New(s.cfg.StateDir, s.cfg.Opener)
	s.schedules = make(map[string]*selftest.Schedule)
	return s.registerAll(ctx)
}

// Serve runs the supervisor until ctx is cancelled or a shutdown signal
// is requested. runOnce, when true, runs exactly one cycle and returns
// (the `check`/`-q onecheck` CLI path); otherwise it loops forever.
func (s *Supervisor) Serve(ctx context.Context, runOnce bool) error {
	if err := s.registerAll(ctx); err != nil {
		return err
	}
	if err := writePIDFile(s.cfg.PIDPath); err != nil {
		return err
	}
	defer removePIDFile(s.cfg.PIDPath)

	if s.cfg.ReadyNotify != nil {
		s.cfg.ReadyNotify()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go s.dispatchSignals(sigCh)

	for {
		now := time.Now()
		for _, err := range s.runCycle(ctx, now) {
			log.Error().Err(err).Msg("check cycle error")
		}
		s.prevWakeup = now

		if runOnce {
			return nil
		}
		if s.shutdownRequested.Load() {
			return nil
		}

		if err := s.sleepUntilNext(ctx, now); err != nil {
			return err
		}
		if s.shutdownRequested.Load() {
			return nil
		}
		if s.reloadRequested.Swap(false) {
			if err := s.reload(ctx); err != nil {
				log.Error().Err(err).Msg("reload failed")
			}
		}
	}
}

// dispatchSignals translates OS signals into the atomic request flags
// polled at sleep boundaries; it performs no other work beyond that —
// signal handlers only flip atomic flags, never touch shared state directly.
func (s *Supervisor) dispatchSignals(sigCh <-chan os.Signal) {
	for sig := range sigCh {
		switch sig {
		case syscall.SIGTERM, syscall.SIGQUIT:
			s.RequestShutdown()
		case syscall.SIGHUP:
			s.RequestReload()
		case syscall.SIGINT:
			if s.cfg.DebugMode {
				s.RequestReload()
			} else {
				s.RequestShutdown()
			}
		case syscall.SIGUSR1:
			s.RequestWake()
		case syscall.SIGUSR2:
			s.ToggleDebug()
		}
	}
}

// sleepUntilNext blocks until the computed wakeup time, ctx cancellation,
// or an immediate-wake/shutdown/reload request, applying the clock-jump
// resume settle when the actual sleep overran the request.
func (s *Supervisor) sleepUntilNext(ctx context.Context, now time.Time) error {
	wake := nextWakeup(s.reg.Enrolled(), s.cfg.GlobalInterval, s.prevWakeup, now)
	requested := wake.Sub(now)
	if requested < 0 {
		requested = 0
	}

	timer := time.NewTimer(requested)
	defer timer.Stop()

	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	case <-s.pollWakeOrShutdown(pollCtx):
	}

	actual := time.Since(now)
	if detectClockJump(requested, actual) {
		log.Warn().Dur("requested", requested).Dur("actual", actual).Msg("clock jump detected, assuming standby resume")
		time.Sleep(resumeSettle)
	}
	return nil
}

// pollWakeOrShutdown returns a channel that fires as soon as a
// shutdown/reload/wake request flag is set, polled on a short ticker so
// SIGUSR1 can interrupt an in-progress sleep without the signal handler
// touching the timer directly.
func (s *Supervisor) pollWakeOrShutdown(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				close(done)
				return
			case <-ticker.C:
				if s.shutdownRequested.Load() || s.reloadRequested.Load() || s.wakeRequested.Swap(false) {
					close(done)
					return
				}
			}
		}
	}()
	return done
}
