// Package shell hosts the orchestrator: it registers the running session,
// triggers activation and forwards platform callbacks from a single
// goroutine.
package shell

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_perm/internal/config"
	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
)

// ErrIdleTimeout is returned when no callback arrives within IdleTimeout.
var ErrIdleTimeout = errors.New("timed out waiting for platform callbacks")

// Config holds hosting shell configuration.
type Config struct {
	PackageID   string
	Level       domain.CapabilityLevel
	IdleTimeout time.Duration // Zero waits forever
	Watch       bool          // Keep running and re-activate on profile change
	ProfilePath string        // Profile watched in Watch mode
}

// DefaultConfig returns default shell configuration.
func DefaultConfig() Config {
	return Config{
		PackageID:   "io.ionic.starter",
		Level:       domain.LevelExtendedMedia,
		IdleTimeout: 2 * time.Minute,
	}
}

// ProfileLoader reads the capability level from a profile file.
type ProfileLoader func(path string) (domain.CapabilityLevel, error)

// LoadProfileLevel is the default ProfileLoader.
func LoadProfileLevel(path string) (domain.CapabilityLevel, error) {
	p, err := config.Load(path)
	if err != nil {
		return 0, err
	}
	return p.Level(), nil
}

// Shell runs activation passes and pumps platform callbacks into the
// orchestrator.
type Shell struct {
	config       Config
	orchestrator domain.Orchestrator
	events       domain.EventSource
	sessions     domain.SessionRegistry
	pm           domain.ProcessManager
	recorder     *Recorder
	loadProfile  ProfileLoader
	logger       *zap.Logger

	session     domain.Session
	activations atomic.Int64
	ignored     atomic.Int64
}

// New creates a hosting shell. recorder must be the presenter the
// orchestrator reports to; it may be nil when results are not needed.
func New(
	config Config,
	orchestrator domain.Orchestrator,
	events domain.EventSource,
	sessions domain.SessionRegistry,
	pm domain.ProcessManager,
	recorder *Recorder,
	logger *zap.Logger,
) *Shell {
	if recorder == nil {
		recorder = NewRecorder(nil)
	}
	return &Shell{
		config:       config,
		orchestrator: orchestrator,
		events:       events,
		sessions:     sessions,
		pm:           pm,
		recorder:     recorder,
		loadProfile:  LoadProfileLevel,
		logger:       logger,
	}
}

// SetProfileLoader replaces how watch mode reads the profile (for testing).
func (s *Shell) SetProfileLoader(loader ProfileLoader) {
	s.loadProfile = loader
}

// Run activates once and pumps callbacks. Without Watch it returns once no
// request is outstanding. With Watch it runs until ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	s.session = domain.Session{
		PID:       s.pm.GetCurrentPID(),
		PackageID: s.config.PackageID,
		StartedAt: time.Now(),
	}

	s.logger.Info("shell started",
		zap.Int("pid", s.session.PID),
		zap.String("package", s.config.PackageID),
		zap.Bool("watch", s.config.Watch))

	if err := s.activate(ctx, s.config.Level); err != nil {
		return err
	}

	if !s.config.Watch {
		return s.Pump(ctx)
	}
	return s.watch(ctx)
}

// Pump forwards callbacks until the orchestrator is quiescent.
func (s *Shell) Pump(ctx context.Context) error {
	idle := newIdleTimer(s.config.IdleTimeout)
	defer idle.stop()

	for !s.orchestrator.Quiescent() {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-s.events.Events():
			s.forward(ctx, ev)
			idle.reset()

		case <-idle.c():
			return fmt.Errorf("%w after %s", ErrIdleTimeout, s.config.IdleTimeout)
		}
	}
	return nil
}

// watch keeps forwarding callbacks and re-activates when the profile is
// rewritten.
func (s *Shell) watch(ctx context.Context) error {
	var (
		fsEvents <-chan fsnotify.Event
		fsErrors <-chan error
		baseName string
	)

	if s.config.ProfilePath != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create profile watcher: %w", err)
		}
		defer watcher.Close()

		// Watch the directory; editors often replace the file.
		if err := watcher.Add(filepath.Dir(s.config.ProfilePath)); err != nil {
			return fmt.Errorf("failed to watch profile: %w", err)
		}
		fsEvents, fsErrors = watcher.Events, watcher.Errors
		baseName = filepath.Base(s.config.ProfilePath)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shell stopping")
			return ctx.Err()

		case ev := <-s.events.Events():
			s.forward(ctx, ev)

		case event, ok := <-fsEvents:
			if !ok {
				fsEvents = nil
				continue
			}
			if filepath.Base(event.Name) != baseName {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.reload(ctx)

		case err, ok := <-fsErrors:
			if !ok {
				fsErrors = nil
				continue
			}
			s.logger.Warn("profile watcher error", zap.Error(err))
		}
	}
}

// reload re-reads the level and re-activates, simulating an app restart.
func (s *Shell) reload(ctx context.Context) {
	level, err := s.loadProfile(s.config.ProfilePath)
	if err != nil {
		s.logger.Warn("failed to reload profile, keeping previous level",
			zap.String("path", s.config.ProfilePath),
			zap.Error(err))
		return
	}
	s.logger.Info("profile changed, re-activating", zap.Int("level", int(level)))
	if err := s.activate(ctx, level); err != nil {
		s.logger.Error("re-activation failed", zap.Error(err))
	}
}

func (s *Shell) activate(ctx context.Context, level domain.CapabilityLevel) error {
	s.session.Level = int(level)
	s.session.LastActivation = time.Now()
	if err := s.sessions.RegisterSession(s.session); err != nil {
		s.logger.Error("failed to register session", zap.Error(err))
		return err
	}

	report, err := s.orchestrator.Activate(ctx, level)
	if err != nil {
		return fmt.Errorf("activation failed: %w", err)
	}
	s.activations.Add(1)

	s.logger.Info("activation dispatched",
		zap.Int("level", int(report.Level)),
		zap.Int("evaluated", report.Evaluated),
		zap.Strings("pending", report.Pending.IDs),
		zap.Int("dispatched", len(report.Dispatched)),
		zap.Int64("duration_ms", report.DurationMs))
	return nil
}

func (s *Shell) forward(ctx context.Context, ev domain.PlatformEvent) {
	var consumed bool
	switch ev.Kind {
	case domain.EventBatchResult:
		consumed = s.orchestrator.HandleBatchResult(ctx, ev.Token, ev.Outcomes)
	case domain.EventSettingsReturn:
		consumed = s.orchestrator.HandleSettingsReturn(ctx, ev.Token)
	default:
		s.logger.Warn("unknown platform event", zap.String("kind", string(ev.Kind)))
	}
	if !consumed {
		s.ignored.Add(1)
	}
}

// Report describes what the shell observed so far.
type Report struct {
	Activations int
	Ignored     int
	Summaries   []domain.Summary
	Specials    []domain.SpecialResult
}

// Report returns the observed activations and results. Safe to call while
// Run is in progress.
func (s *Shell) Report() Report {
	summaries, specials := s.recorder.Results()
	return Report{
		Activations: int(s.activations.Load()),
		Ignored:     int(s.ignored.Load()),
		Summaries:   summaries,
		Specials:    specials,
	}
}

// idleTimer is a resettable timer; a zero duration never fires.
type idleTimer struct {
	d     time.Duration
	timer *time.Timer
}

func newIdleTimer(d time.Duration) *idleTimer {
	t := &idleTimer{d: d}
	if d > 0 {
		t.timer = time.NewTimer(d)
	}
	return t
}

func (t *idleTimer) c() <-chan time.Time {
	if t.timer == nil {
		return nil
	}
	return t.timer.C
}

func (t *idleTimer) reset() {
	if t.timer == nil {
		return
	}
	if !t.timer.Stop() {
		select {
		case <-t.timer.C:
		default:
		}
	}
	t.timer.Reset(t.d)
}

func (t *idleTimer) stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}
