package infra

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
)

// ConsolePresenter prints toast-style messages.
type ConsolePresenter struct {
	out     io.Writer
	verbose bool
}

// NewConsolePresenter creates a presenter writing to out. Verbose also
// lists each granted/denied identifier.
func NewConsolePresenter(out io.Writer, verbose bool) *ConsolePresenter {
	return &ConsolePresenter{out: out, verbose: verbose}
}

func (p *ConsolePresenter) ShowSummary(summary domain.Summary) {
	if p.verbose {
		for _, id := range summary.GrantedIDs {
			fmt.Fprintf(p.out, "  ✓ %s\n", id)
		}
		for _, id := range summary.DeniedIDs {
			fmt.Fprintf(p.out, "  ✗ %s\n", id)
		}
	}
	fmt.Fprintf(p.out, "Permissions - Granted: %d, Denied: %d\n", summary.Granted, summary.Denied)
}

func (p *ConsolePresenter) ShowSpecialResult(result domain.SpecialResult) {
	verdict := "denied"
	if result.Granted {
		verdict = "granted"
	}
	fmt.Fprintf(p.out, "%s permission %s\n", specialLabel(result.Family), verdict)
}

func specialLabel(f domain.Family) string {
	switch f {
	case domain.FamilyAllFilesAccess:
		return "External storage"
	case domain.FamilyDrawOverlay:
		return "System alert window"
	default:
		return string(f)
	}
}

// LogPresenter reports results as structured log entries.
type LogPresenter struct {
	logger *zap.Logger
}

// NewLogPresenter creates a presenter backed by logger.
func NewLogPresenter(logger *zap.Logger) *LogPresenter {
	return &LogPresenter{logger: logger}
}

func (p *LogPresenter) ShowSummary(summary domain.Summary) {
	p.logger.Info("permissions summary",
		zap.Int("granted", summary.Granted),
		zap.Int("denied", summary.Denied),
		zap.Strings("denied_ids", summary.DeniedIDs))
}

func (p *LogPresenter) ShowSpecialResult(result domain.SpecialResult) {
	p.logger.Info("special permission result",
		zap.String("family", string(result.Family)),
		zap.Bool("granted", result.Granted))
}

// MultiPresenter fans results out to several presenters.
type MultiPresenter []domain.Presenter

func (m MultiPresenter) ShowSummary(summary domain.Summary) {
	for _, p := range m {
		p.ShowSummary(summary)
	}
}

func (m MultiPresenter) ShowSpecialResult(result domain.SpecialResult) {
	for _, p := range m {
		p.ShowSpecialResult(result)
	}
}

var (
	_ domain.Presenter = (*ConsolePresenter)(nil)
	_ domain.Presenter = (*LogPresenter)(nil)
	_ domain.Presenter = MultiPresenter(nil)
)
