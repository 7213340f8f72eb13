// Package usecase contains application business logic.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
)

// DefaultFirstToken is the first correlation token handed out by an orchestrator.
const DefaultFirstToken domain.Token = 1001

// OrchestratorConfig holds orchestrator configuration.
type OrchestratorConfig struct {
	PackageID  string       // Identifier passed to settings screens
	FirstToken domain.Token // First correlation token to allocate
}

// DefaultOrchestratorConfig returns default orchestrator configuration.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		PackageID:  "io.ionic.starter",
		FirstToken: DefaultFirstToken,
	}
}

// OrchestratorImpl implements domain.Orchestrator.
// It is driven from a single goroutine (the hosting shell's event loop)
// and holds no locks.
type OrchestratorImpl struct {
	config    OrchestratorConfig
	catalog   domain.Catalog
	platform  domain.Platform
	presenter domain.Presenter
	logger    *zap.Logger

	nextToken   domain.Token
	batch       batchProtocol
	allFiles    specialProtocol
	overlay     specialProtocol
	lastSummary *domain.Summary
}

// NewOrchestrator creates a new permission orchestrator.
func NewOrchestrator(
	config OrchestratorConfig,
	catalog domain.Catalog,
	platform domain.Platform,
	presenter domain.Presenter,
	logger *zap.Logger,
) *OrchestratorImpl {
	if config.FirstToken <= domain.NoToken {
		config.FirstToken = DefaultFirstToken
	}
	if presenter == nil {
		presenter = nopPresenter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &OrchestratorImpl{
		config:    config,
		catalog:   catalog,
		platform:  platform,
		presenter: presenter,
		logger:    logger,
		nextToken: config.FirstToken,
		batch:     batchProtocol{state: domain.StateIdle},
	}
	if platform != nil {
		o.allFiles = newAllFilesProtocol(platform, config.PackageID)
		o.overlay = newOverlayProtocol(platform, config.PackageID)
	}
	return o
}

// Activate runs one orchestration pass: evaluate the catalog for level and
// dispatch the batch, all-files and overlay protocols in that order.
// No protocol waits for another to resolve.
func (o *OrchestratorImpl) Activate(ctx context.Context, level domain.CapabilityLevel) (*domain.ActivationReport, error) {
	if o.catalog == nil || o.platform == nil {
		return nil, errors.New("orchestrator requires a catalog and a platform")
	}

	start := time.Now()
	report := &domain.ActivationReport{
		Level:      level,
		Dispatched: make(map[domain.Protocol]domain.Token),
		States:     make(map[domain.Protocol]domain.ProtocolState),
		StartedAt:  start,
	}

	o.resetProtocols()

	defs := o.catalog.DefinitionsFor(level)
	o.logger.Info("activation started",
		zap.Int("level", int(level)),
		zap.Int("families", len(defs)))

	o.dispatchBatch(ctx, defs, report)
	o.dispatchSpecial(ctx, &o.allFiles, defs, report)
	o.dispatchSpecial(ctx, &o.overlay, defs, report)

	for _, p := range domain.Protocols {
		report.States[p] = o.State(p)
	}
	report.DurationMs = time.Since(start).Milliseconds()

	return report, nil
}

// resetProtocols applies the re-activation rule: every protocol that is not
// awaiting a callback goes back to idle. A protocol still awaiting one keeps
// its token and is not dispatched again until it resolves.
func (o *OrchestratorImpl) resetProtocols() {
	if !o.batch.reset() {
		o.logger.Debug("batch request still pending, not re-dispatching",
			zap.Int("token", int(o.batch.pending.Token)))
	}
	for _, p := range []*specialProtocol{&o.allFiles, &o.overlay} {
		if !p.reset() {
			o.logger.Debug("settings flow still pending, not re-dispatching",
				zap.String("protocol", string(p.protocol)),
				zap.Int("token", int(p.token)))
		}
	}
}

func (o *OrchestratorImpl) dispatchBatch(ctx context.Context, defs []domain.Definition, report *domain.ActivationReport) {
	if o.batch.state == domain.StateRequested {
		report.Pending = o.batch.pending
		return
	}

	eval := Evaluate(ctx, o.platform, defs, o.logger)
	report.Evaluated = len(eval.Evaluated)

	if len(eval.NotGranted) == 0 {
		// Nothing to ask for: report immediately, no callback expected.
		o.emitSummary(domain.Summary{
			Granted:    len(eval.Evaluated),
			GrantedIDs: eval.Evaluated,
			DeniedIDs:  []string{},
		})
		return
	}

	token := o.allocateToken()
	if err := o.platform.RequestBatch(ctx, eval.NotGranted, token); err != nil {
		o.logger.Warn("batch request failed",
			zap.Int("token", int(token)),
			zap.Int("count", len(eval.NotGranted)),
			zap.Error(err))
		return
	}

	o.batch.state = domain.StateRequested
	o.batch.pending = domain.PendingRequest{Token: token, IDs: eval.NotGranted}
	report.Pending = o.batch.pending
	report.Dispatched[domain.ProtocolBatch] = token

	o.logger.Info("requested runtime permissions",
		zap.Int("token", int(token)),
		zap.Strings("permissions", eval.NotGranted))
}

func (o *OrchestratorImpl) dispatchSpecial(ctx context.Context, p *specialProtocol, defs []domain.Definition, report *domain.ActivationReport) {
	if p.state == domain.StateRequested || !hasFamily(defs, p.family) {
		return
	}

	granted, err := p.query(ctx)
	if err != nil {
		o.logger.Warn("special grant query failed, treating as not granted",
			zap.String("family", string(p.family)),
			zap.Error(err))
		granted = false
	}
	p.state = domain.StateChecked
	if granted {
		o.logger.Debug("special grant already held", zap.String("family", string(p.family)))
		return
	}

	token := o.allocateToken()
	err = p.navigate(ctx, token)
	if errors.Is(err, domain.ErrUnsupportedTarget) && p.fallback != nil {
		o.logger.Info("preferred settings screen unsupported, using fallback",
			zap.String("family", string(p.family)),
			zap.Int("token", int(token)))
		p.usedFallback = true
		err = p.fallback(ctx, token)
	}
	if err != nil {
		o.logger.Warn("settings navigation failed",
			zap.String("family", string(p.family)),
			zap.Int("token", int(token)),
			zap.Error(err))
		p.state = domain.StateIdle
		return
	}

	p.state = domain.StateRequested
	p.token = token
	report.Dispatched[p.protocol] = token

	o.logger.Info("opened settings for special grant",
		zap.String("family", string(p.family)),
		zap.Int("token", int(token)),
		zap.Bool("fallback", p.usedFallback))
}

// RequestPermission requests a single runtime identifier through the batch
// protocol. Only identifiers applicable at level are queried. Returns true if
// a request was issued.
func (o *OrchestratorImpl) RequestPermission(ctx context.Context, level domain.CapabilityLevel, id string) (bool, error) {
	if o.catalog == nil || o.platform == nil {
		return false, errors.New("orchestrator requires a catalog and a platform")
	}
	if _, _, err := o.catalog.Lookup(id); err != nil {
		return false, err
	}
	if !applicable(o.catalog.DefinitionsFor(level), id) {
		return false, fmt.Errorf("%w: %s at level %d", domain.ErrNotApplicable, id, level)
	}
	if o.batch.state == domain.StateRequested {
		o.logger.Debug("batch request pending, single request skipped",
			zap.String("permission", id))
		return false, nil
	}

	status, err := o.platform.QueryGrantStatus(ctx, id)
	if err != nil {
		o.logger.Warn("grant query failed, treating as not granted",
			zap.String("permission", id),
			zap.Error(err))
	} else if status == domain.Granted {
		return false, nil
	}

	token := o.allocateToken()
	ids := []string{id}
	if err := o.platform.RequestBatch(ctx, ids, token); err != nil {
		return false, fmt.Errorf("failed to request %s: %w", id, err)
	}

	o.batch.state = domain.StateRequested
	o.batch.pending = domain.PendingRequest{Token: token, IDs: ids}
	o.logger.Info("requested single permission",
		zap.String("permission", id),
		zap.Int("token", int(token)))
	return true, nil
}

func (o *OrchestratorImpl) allocateToken() domain.Token {
	t := o.nextToken
	o.nextToken++
	return t
}

func applicable(defs []domain.Definition, id string) bool {
	for _, d := range defs {
		for _, p := range d.Permissions {
			if p.ID == id {
				return true
			}
		}
	}
	return false
}

func hasFamily(defs []domain.Definition, family domain.Family) bool {
	for _, d := range defs {
		if d.Family == family {
			return true
		}
	}
	return false
}

type nopPresenter struct{}

func (nopPresenter) ShowSummary(domain.Summary)             {}
func (nopPresenter) ShowSpecialResult(domain.SpecialResult) {}

// Ensure OrchestratorImpl implements domain.Orchestrator.
var _ domain.Orchestrator = (*OrchestratorImpl)(nil)
