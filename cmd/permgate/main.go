// Package main is the CLI entry point for permgate.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_perm/internal/catalog"
	"github.com/eliteGoblin/focusd/app_perm/internal/config"
	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
	"github.com/eliteGoblin/focusd/app_perm/internal/infra"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "permgate",
	Short: "Startup permission orchestrator for a simulated device",
	Long: `permgate runs the startup permission pass of an app against a simulated
device: it checks every permission the device's capability level supports,
asks for the missing runtime permissions in one prompt, and opens the
all-files and overlay settings screens when those grants are missing.

Grant state lives in the device's data directory and survives between runs.`,
	Version:      Version,
	SilenceUsage: true,
}

var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Run the startup permission pass",
	Long: `Evaluates the catalog for the device level and dispatches the batch,
all-files and overlay requests, then waits for their results.
With --watch it keeps running and re-activates whenever the profile changes.`,
	RunE: runActivate,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the device's grant state",
	Long:  `Shows every permission applicable at the device level, the special grants and the last session.`,
	RunE:  runStatus,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List permission families applicable at a level",
	RunE:  runCatalog,
}

var grantCmd = &cobra.Command{
	Use:   "grant <permission>",
	Short: "Grant a permission on the device (as if changed in system settings)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetGrant(domain.Granted),
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <permission>",
	Short: "Revoke a permission on the device (as if changed in system settings)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetGrant(domain.NotGranted),
}

var requestCmd = &cobra.Command{
	Use:   "request <permission>",
	Short: "Request a single runtime permission",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequest,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear every stored grant on the device",
	RunE:  runReset,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the device profile JSON Schema",
	RunE:  runSchema,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	profilePath string
	levelFlag   int
	dataDirFlag string
	storeFlag   string
	logFile     string
	verbose     bool

	watch      bool
	timeout    time.Duration
	jsonOutput bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&profilePath, "profile", "", "Device profile (.yaml, .toml or .json)")
	pf.IntVar(&levelFlag, "level", 0, "Override the device capability level")
	pf.StringVar(&dataDirFlag, "data-dir", "", "Override the device data directory")
	pf.StringVar(&storeFlag, "store", "", "Override the grant store (file|encrypted)")
	pf.StringVar(&logFile, "log-file", "", "Write JSON logs to this file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	activateCmd.Flags().BoolVar(&watch, "watch", false, "Keep running and re-activate on profile change")
	activateCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Give up waiting for results after this long (0 waits forever)")
	requestCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Give up waiting for the result after this long")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(grantCmd)
	rootCmd.AddCommand(revokeCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}

// signalContext is canceled on SIGINT/SIGTERM.
func signalContext(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

func runActivate(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	profile, err := loadProfile(cmd)
	if err != nil {
		return err
	}
	dev, err := openDevice(profile, logger)
	if err != nil {
		return err
	}
	defer dev.Close()

	ctx, cancel := signalContext(logger)
	defer cancel()

	fmt.Printf("\n=== permgate Activation (level %d) ===\n", profile.CapabilityLevel)

	sh := dev.newShell(watch, timeout, logger)
	runErr := sh.Run(ctx)
	if watch && errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	report := sh.Report()
	fmt.Printf("\nActivations: %d\n", report.Activations)
	if report.Ignored > 0 {
		fmt.Printf("Stale callbacks ignored: %d\n", report.Ignored)
	}
	fmt.Printf("All standard permissions granted: %s\n",
		yesNo(dev.orchestrator.AllStandardGranted(context.Background(), profile.Level())))
	fmt.Println("======================================")

	return runErr
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	profile, err := loadProfile(cmd)
	if err != nil {
		return err
	}
	dev, err := openDevice(profile, logger)
	if err != nil {
		return err
	}
	defer dev.Close()

	ctx := context.Background()
	level := profile.Level()

	fmt.Println("\n=== permgate Status ===")
	fmt.Printf("Package: %s\n", profile.PackageID)
	fmt.Printf("Capability level: %d\n", level)
	fmt.Printf("Grant store: %s (%s)\n", dev.store.Path(), profile.Store)
	if host, err := infra.DescribeHost(); err == nil {
		fmt.Printf("Host: %s (%s %s)\n", host.Hostname, host.Platform, host.PlatformVersion)
	}

	session, err := dev.store.LastSession()
	switch {
	case errors.Is(err, domain.ErrNotRegistered):
		fmt.Println("Last session: none")
	case err != nil:
		fmt.Printf("Last session: unreadable (%v)\n", err)
	default:
		state := "exited"
		if dev.pm.IsRunning(session.PID) {
			state = "running"
		}
		fmt.Printf("Last session: PID %d (%s), level %d, last activation %s ago\n",
			session.PID, state, session.Level,
			time.Since(session.LastActivation).Round(time.Second))
	}

	shown := make(map[string]bool)
	for _, def := range dev.registry.DefinitionsFor(level) {
		fmt.Printf("\n[%s] %s\n", def.Family, def.Name)
		ids := def.IDs()
		if def.Family.IsSpecial() {
			ids = []string{def.Family.SpecialID()}
		}
		for _, id := range ids {
			status, err := dev.platform.QueryGrantStatus(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("  %-48s %s\n", id, status)
			shown[id] = true
		}
	}

	// Grants stored at a higher level stay on the device.
	stored, err := dev.store.All()
	if err != nil {
		return err
	}
	var other []string
	for _, id := range sortedKeys(stored) {
		if !shown[id] {
			other = append(other, id)
		}
	}
	if len(other) > 0 {
		fmt.Println("\n[not applicable at this level]")
		for _, id := range other {
			fmt.Printf("  %-48s %s\n", id, stored[id])
		}
	}

	fmt.Printf("\nAll standard permissions granted: %s\n",
		yesNo(dev.orchestrator.AllStandardGranted(ctx, level)))
	fmt.Println("=======================")
	return nil
}

func runCatalog(cmd *cobra.Command, args []string) error {
	profile, err := loadProfile(cmd)
	if err != nil {
		return err
	}

	level := profile.Level()
	fmt.Printf("\n=== Permission Catalog (level %d) ===\n", level)

	for _, def := range catalog.NewRegistry().DefinitionsFor(level) {
		fmt.Printf("\n[%s] %s (from level %d)\n", def.Family, def.Name, def.MinLevel)
		if def.Family.IsSpecial() {
			fmt.Printf("  settings grant: %s\n", def.Family.SpecialID())
			continue
		}
		for _, p := range def.Permissions {
			if p.Since > def.MinLevel {
				fmt.Printf("    - %s (from level %d)\n", p.ID, p.Since)
			} else {
				fmt.Printf("    - %s\n", p.ID)
			}
		}
	}

	fmt.Println("\n=====================================")
	return nil
}

func runSetGrant(status domain.GrantStatus) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		profile, err := loadProfile(cmd)
		if err != nil {
			return err
		}
		dev, err := openDevice(profile, zap.NewNop())
		if err != nil {
			return err
		}
		defer dev.Close()

		id, err := resolveID(dev.registry, args[0])
		if err != nil {
			return err
		}
		if err := dev.store.Set(id, status); err != nil {
			return fmt.Errorf("failed to update %s: %w", id, err)
		}
		fmt.Printf("%s: %s\n", id, status)
		return nil
	}
}

func runRequest(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	profile, err := loadProfile(cmd)
	if err != nil {
		return err
	}
	dev, err := openDevice(profile, logger)
	if err != nil {
		return err
	}
	defer dev.Close()

	id, err := resolveID(dev.registry, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	level := dev.profile.Level()
	issued, err := dev.orchestrator.RequestPermission(ctx, level, id)
	if !issued {
		msg, err := skippedRequest(id, level, err)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	}
	return dev.newShell(false, timeout, logger).Pump(ctx)
}

func runReset(cmd *cobra.Command, args []string) error {
	profile, err := loadProfile(cmd)
	if err != nil {
		return err
	}
	store, err := infra.OpenStore(profile.StoreKind(), profile.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear grants: %w", err)
	}
	fmt.Printf("Cleared all grants in %s\n", store.Path())
	return nil
}

func runSchema(cmd *cobra.Command, args []string) error {
	schema, err := config.Schema()
	if err != nil {
		return err
	}
	fmt.Println(string(schema))
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("permgate %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

// skippedRequest explains a single request that was not issued.
func skippedRequest(id string, level domain.CapabilityLevel, err error) (string, error) {
	switch {
	case errors.Is(err, domain.ErrNotApplicable):
		return fmt.Sprintf("%s does not apply at capability level %d", id, level), nil
	case err != nil:
		return "", err
	default:
		return fmt.Sprintf("%s is already granted", id), nil
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func sortedKeys(m map[string]domain.GrantStatus) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
