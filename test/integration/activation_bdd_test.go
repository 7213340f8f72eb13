//go:build integration

package integration

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_perm/internal/catalog"
	"github.com/eliteGoblin/focusd/app_perm/internal/config"
	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
	"github.com/eliteGoblin/focusd/app_perm/internal/infra"
	"github.com/eliteGoblin/focusd/app_perm/internal/shell"
	"github.com/eliteGoblin/focusd/app_perm/internal/usecase"
	"github.com/eliteGoblin/focusd/app_perm/test/fixtures"
)

// app is one launch of the app on a fake device.
type app struct {
	store        infra.Store
	platform     *infra.SimulatedPlatform
	orchestrator *usecase.OrchestratorImpl
	shell        *shell.Shell
}

func launch(dev *fixtures.FakeDevice) *app {
	store, err := dev.OpenStore()
	Expect(err).NotTo(HaveOccurred())

	prompter, err := dev.Profile.Prompter()
	Expect(err).NotTo(HaveOccurred())

	logger := zap.NewNop()
	platform := infra.NewSimulatedPlatform(dev.Profile.PlatformConfig(), store, prompter, logger)
	recorder := shell.NewRecorder(nil)

	orchConfig := usecase.DefaultOrchestratorConfig()
	orchConfig.PackageID = dev.Profile.PackageID
	orch := usecase.NewOrchestrator(orchConfig, catalog.NewRegistry(), platform, recorder, logger)

	shellConfig := shell.DefaultConfig()
	shellConfig.PackageID = dev.Profile.PackageID
	shellConfig.Level = dev.Profile.Level()
	shellConfig.IdleTimeout = 10 * time.Second

	return &app{
		store:        store,
		platform:     platform,
		orchestrator: orch,
		shell:        shell.New(shellConfig, orch, platform, store, infra.NewProcessManager(), recorder, logger),
	}
}

func (a *app) close() {
	a.store.Close()
}

func methods(calls []infra.PlatformCall) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Method
	}
	return out
}

func runtimeIDs(level domain.CapabilityLevel) []string {
	var ids []string
	for _, def := range catalog.NewRegistry().DefinitionsFor(level) {
		ids = append(ids, def.IDs()...)
	}
	return ids
}

var _ = Describe("Startup permission pass", func() {
	var (
		tmpDir string
		dev    *fixtures.FakeDevice
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "permgate-integration-*")
		Expect(err).NotTo(HaveOccurred())
		dev = fixtures.NewFakeDevice(tmpDir)
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Context("on a fresh level 33 device where the user allows everything", func() {
		It("asks once for every runtime permission and opens both settings screens", func() {
			a := launch(dev)
			defer a.close()

			Expect(a.shell.Run(context.Background())).To(Succeed())

			Expect(methods(a.platform.Calls())).To(Equal([]string{
				"RequestBatch",
				"NavigateToAllFilesSettings",
				"NavigateToOverlaySettings",
			}))

			report := a.shell.Report()
			Expect(report.Summaries).To(HaveLen(1))
			Expect(report.Summaries[0].Granted).To(Equal(len(runtimeIDs(domain.LevelExtendedMedia))))
			Expect(report.Summaries[0].Denied).To(BeZero())
			Expect(report.Specials).To(HaveLen(2))

			Expect(a.orchestrator.AllStandardGranted(context.Background(), domain.LevelExtendedMedia)).To(BeTrue())
		})
	})

	Context("when the user denies SMS and the overlay", func() {
		It("counts the denials and reports the overlay as denied", func() {
			dev.Deny("*SMS").Deny("special:draw_overlay")
			a := launch(dev)
			defer a.close()

			Expect(a.shell.Run(context.Background())).To(Succeed())

			report := a.shell.Report()
			Expect(report.Summaries).To(HaveLen(1))
			Expect(report.Summaries[0].DeniedIDs).To(ConsistOf(
				"android.permission.READ_SMS",
				"android.permission.SEND_SMS",
			))

			granted := make(map[domain.Family]bool)
			for _, r := range report.Specials {
				granted[r.Family] = r.Granted
			}
			Expect(granted).To(Equal(map[domain.Family]bool{
				domain.FamilyAllFilesAccess: true,
				domain.FamilyDrawOverlay:    false,
			}))
			Expect(a.orchestrator.AllStandardGranted(context.Background(), domain.LevelExtendedMedia)).To(BeFalse())
		})
	})

	Context("when the app-specific all-files screen is unsupported", func() {
		It("falls back to the general screen under the same token", func() {
			dev.Profile.AllFilesSettingsSupported = false
			a := launch(dev)
			defer a.close()

			Expect(a.shell.Run(context.Background())).To(Succeed())

			calls := a.platform.Calls()
			Expect(methods(calls)).To(ContainElements(
				"NavigateToAllFilesSettings",
				"NavigateToAllFilesSettingsFallback",
			))
			Expect(calls[1].Token).To(Equal(calls[2].Token))

			var allFiles []domain.SpecialResult
			for _, r := range a.shell.Report().Specials {
				if r.Family == domain.FamilyAllFilesAccess {
					allFiles = append(allFiles, r)
				}
			}
			Expect(allFiles).To(HaveLen(1))
			Expect(allFiles[0].Granted).To(BeTrue())
		})
	})

	Context("on a level 22 device", func() {
		It("never opens a settings screen", func() {
			dev.Profile.CapabilityLevel = 22
			a := launch(dev)
			defer a.close()

			Expect(a.shell.Run(context.Background())).To(Succeed())
			Expect(methods(a.platform.Calls())).To(Equal([]string{"RequestBatch"}))
			Expect(a.shell.Report().Specials).To(BeEmpty())
		})
	})

	Context("when every permission is already granted", func() {
		It("reports the full count without prompting", func() {
			ids := append(runtimeIDs(domain.LevelExtendedMedia),
				domain.FamilyAllFilesAccess.SpecialID(),
				domain.FamilyDrawOverlay.SpecialID())
			Expect(dev.GrantAll(ids...)).To(Succeed())

			a := launch(dev)
			defer a.close()

			Expect(a.shell.Run(context.Background())).To(Succeed())
			Expect(a.platform.Calls()).To(BeEmpty())

			report := a.shell.Report()
			Expect(report.Summaries).To(HaveLen(1))
			Expect(report.Summaries[0].Granted).To(Equal(len(runtimeIDs(domain.LevelExtendedMedia))))
			Expect(report.Summaries[0].Denied).To(BeZero())
		})
	})

	Context("across app launches", func() {
		It("only asks again for what was denied", func() {
			dev.Deny("android.permission.CAMERA")
			first := launch(dev)
			Expect(first.shell.Run(context.Background())).To(Succeed())
			first.close()

			dev.Profile.Answers = nil
			second := launch(dev)
			defer second.close()
			Expect(second.shell.Run(context.Background())).To(Succeed())

			calls := second.platform.Calls()
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].IDs).To(Equal([]string{"android.permission.CAMERA"}))
			Expect(calls[0].Token).To(Equal(usecase.DefaultFirstToken))
		})

		It("keeps session data in the encrypted store", func() {
			dev.Profile.Store = "encrypted"
			a := launch(dev)
			Expect(a.shell.Run(context.Background())).To(Succeed())
			a.close()

			store, err := dev.OpenStore()
			Expect(err).NotTo(HaveOccurred())
			defer store.Close()

			session, err := store.LastSession()
			Expect(err).NotTo(HaveOccurred())
			Expect(session.PID).To(Equal(os.Getpid()))
			Expect(session.Level).To(Equal(int(domain.LevelExtendedMedia)))
		})
	})

	Context("when a callback from an earlier pass arrives late", func() {
		It("ignores it and keeps waiting for the current one", func() {
			dev.Deny("android.permission.CAMERA")
			a := launch(dev)
			defer a.close()

			ctx := context.Background()
			Expect(a.shell.Run(ctx)).To(Succeed())
			firstToken := a.platform.Calls()[0].Token

			// The app comes back to the foreground; CAMERA is still missing.
			_, err := a.orchestrator.Activate(ctx, domain.LevelExtendedMedia)
			Expect(err).NotTo(HaveOccurred())
			current := a.orchestrator.PendingToken(domain.ProtocolBatch)
			Expect(current).To(BeNumerically(">", firstToken))

			Expect(a.orchestrator.HandleBatchResult(ctx, firstToken, []domain.PermissionOutcome{
				{ID: "android.permission.CAMERA", Status: domain.Granted},
			})).To(BeFalse())
			Expect(a.orchestrator.Quiescent()).To(BeFalse())

			Expect(a.shell.Pump(ctx)).To(Succeed())
			Expect(a.orchestrator.Quiescent()).To(BeTrue())
			Expect(a.orchestrator.LastSummary().Token).To(Equal(current))
			Expect(a.orchestrator.LastSummary().DeniedIDs).To(Equal([]string{"android.permission.CAMERA"}))
		})
	})

	Context("with a profile on disk", func() {
		It("loads back the profile the fixture wrote", func() {
			dev.Deny("special:*")
			dev.Profile.CapabilityLevel = 30
			Expect(dev.WriteProfile()).To(Succeed())

			loaded, err := config.Load(dev.ProfilePath())
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(dev.Profile))
		})
	})
})
