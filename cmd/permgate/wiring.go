package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/app_perm/internal/catalog"
	"github.com/eliteGoblin/focusd/app_perm/internal/config"
	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
	"github.com/eliteGoblin/focusd/app_perm/internal/infra"
	"github.com/eliteGoblin/focusd/app_perm/internal/shell"
	"github.com/eliteGoblin/focusd/app_perm/internal/usecase"
)

// device is the simulated device plus the orchestrator hosted on it.
type device struct {
	profile      config.Profile
	store        infra.Store
	registry     *catalog.Registry
	platform     *infra.SimulatedPlatform
	orchestrator *usecase.OrchestratorImpl
	recorder     *shell.Recorder
	pm           domain.ProcessManager
}

// loadProfile reads --profile (or defaults) and applies flag overrides.
func loadProfile(cmd *cobra.Command) (config.Profile, error) {
	p := config.Default()
	if profilePath != "" {
		loaded, err := config.Load(profilePath)
		if err != nil {
			return p, err
		}
		p = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("level") {
		p.CapabilityLevel = levelFlag
	}
	if flags.Changed("data-dir") {
		p.DataDir = dataDirFlag
	}
	if flags.Changed("store") {
		p.Store = storeFlag
	}
	p.DataDir = infra.ExpandHome(p.DataDir)

	if err := config.Validate(p); err != nil {
		return p, err
	}
	return p, nil
}

// openDevice wires the store, platform and orchestrator for one command.
func openDevice(p config.Profile, logger *zap.Logger) (*device, error) {
	store, err := infra.OpenStore(p.StoreKind(), p.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open grant store: %w", err)
	}

	var prompter domain.Prompter
	if p.Interactive {
		prompter = infra.NewInteractivePrompter(os.Stdin, os.Stdout)
	} else {
		rules, err := p.Prompter()
		if err != nil {
			store.Close()
			return nil, err
		}
		prompter = rules
	}

	registry := catalog.NewRegistry()
	platform := infra.NewSimulatedPlatform(p.PlatformConfig(), store, prompter, logger)
	recorder := shell.NewRecorder(infra.MultiPresenter{
		infra.NewConsolePresenter(os.Stdout, verbose),
		infra.NewLogPresenter(logger),
	})

	orchConfig := usecase.DefaultOrchestratorConfig()
	orchConfig.PackageID = p.PackageID

	return &device{
		profile:      p,
		store:        store,
		registry:     registry,
		platform:     platform,
		orchestrator: usecase.NewOrchestrator(orchConfig, registry, platform, recorder, logger),
		recorder:     recorder,
		pm:           infra.NewProcessManager(),
	}, nil
}

func (d *device) Close() error {
	return d.store.Close()
}

// newShell builds the hosting shell for this device.
func (d *device) newShell(watch bool, timeout time.Duration, logger *zap.Logger) *shell.Shell {
	c := shell.DefaultConfig()
	c.PackageID = d.profile.PackageID
	c.Level = d.profile.Level()
	c.IdleTimeout = timeout
	c.Watch = watch
	c.ProfilePath = profilePath
	return shell.New(c, d.orchestrator, d.platform, d.store, d.pm, d.recorder, logger)
}

// resolveID accepts a full identifier, a bare name ("CAMERA") or a special
// grant ID ("special:draw_overlay").
func resolveID(registry *catalog.Registry, arg string) (string, error) {
	for _, f := range registry.Families() {
		if f.IsSpecial() && arg == f.SpecialID() {
			return arg, nil
		}
	}

	id := arg
	if !strings.ContainsAny(id, ".:") {
		id = catalog.PermissionPrefix + strings.ToUpper(id)
	}
	if _, _, err := registry.Lookup(id); err != nil {
		return "", fmt.Errorf("%s: %w", arg, err)
	}
	return id, nil
}

// newLogger logs to --log-file as JSON, otherwise to stderr in development
// format (warnings only unless --verbose).
func newLogger() *zap.Logger {
	if logFile != "" {
		return createLogger(logFile)
	}
	config := zap.NewDevelopmentConfig()
	if !verbose {
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func createLogger(path string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{path}
	config.ErrorOutputPaths = []string{path}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}
