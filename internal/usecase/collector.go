package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
)

// HandleBatchResult consumes the platform's batched callback.
// Callbacks whose token is not the pending batch token are stale and ignored.
func (o *OrchestratorImpl) HandleBatchResult(ctx context.Context, token domain.Token, outcomes []domain.PermissionOutcome) bool {
	if !o.batch.matches(token) {
		o.logger.Debug("ignoring stale batch callback",
			zap.Int("token", int(token)),
			zap.Int("pending", int(o.batch.pending.Token)))
		return false
	}

	summary := tally(o.batch.pending, outcomes, o.logger)
	o.batch.state = domain.StateResolved
	o.emitSummary(summary)
	return true
}

// tally counts each pending identifier exactly once. Outcomes are matched by
// position first, then by identifier; identifiers missing from the callback
// (interrupted prompt) count as denied.
func tally(pending domain.PendingRequest, outcomes []domain.PermissionOutcome, logger *zap.Logger) domain.Summary {
	summary := domain.Summary{
		Token:      pending.Token,
		GrantedIDs: make([]string, 0, len(pending.IDs)),
		DeniedIDs:  make([]string, 0),
	}

	byID := make(map[string]domain.GrantStatus, len(outcomes))
	for _, out := range outcomes {
		byID[out.ID] = out.Status
	}

	for i, id := range pending.IDs {
		var status domain.GrantStatus
		switch s, ok := byID[id]; {
		case i < len(outcomes) && outcomes[i].ID == id:
			status = outcomes[i].Status
		case ok:
			logger.Warn("batch outcome out of request order",
				zap.String("permission", id),
				zap.Int("position", i))
			status = s
		default:
			logger.Debug("permission missing from batch outcome, counting as denied",
				zap.String("permission", id))
			status = domain.NotGranted
		}

		if status == domain.Granted {
			summary.Granted++
			summary.GrantedIDs = append(summary.GrantedIDs, id)
			logger.Info("permission granted", zap.String("permission", id))
		} else {
			summary.Denied++
			summary.DeniedIDs = append(summary.DeniedIDs, id)
			logger.Info("permission denied", zap.String("permission", id))
		}
	}

	if len(outcomes) > len(pending.IDs) {
		logger.Warn("batch outcome carries unrequested entries",
			zap.Int("requested", len(pending.IDs)),
			zap.Int("received", len(outcomes)))
	}

	return summary
}

// HandleSettingsReturn consumes the return from a settings screen. The
// navigation carries no payload, so the platform is queried again.
func (o *OrchestratorImpl) HandleSettingsReturn(ctx context.Context, token domain.Token) bool {
	for _, p := range []*specialProtocol{&o.allFiles, &o.overlay} {
		if !p.matches(token) {
			continue
		}

		granted, err := p.query(ctx)
		if err != nil {
			o.logger.Warn("special grant re-query failed, reporting denied",
				zap.String("family", string(p.family)),
				zap.Error(err))
			granted = false
		}
		p.state = domain.StateResolved

		o.logger.Info("settings flow resolved",
			zap.String("family", string(p.family)),
			zap.Int("token", int(token)),
			zap.Bool("granted", granted))
		o.presenter.ShowSpecialResult(domain.SpecialResult{
			Family:  p.family,
			Token:   token,
			Granted: granted,
		})
		return true
	}

	o.logger.Debug("ignoring stale settings callback", zap.Int("token", int(token)))
	return false
}

// AllStandardGranted reports whether every standard identifier applicable at
// level is granted. Read-only; safe before any activation.
func (o *OrchestratorImpl) AllStandardGranted(ctx context.Context, level domain.CapabilityLevel) bool {
	if o.catalog == nil || o.platform == nil {
		return false
	}
	for _, def := range o.catalog.DefinitionsFor(level) {
		if def.Family != domain.FamilyStandard {
			continue
		}
		for _, id := range def.IDs() {
			status, err := o.platform.QueryGrantStatus(ctx, id)
			if err != nil || status != domain.Granted {
				return false
			}
		}
	}
	return true
}

// Quiescent reports whether no protocol is awaiting a callback.
func (o *OrchestratorImpl) Quiescent() bool {
	return o.batch.state != domain.StateRequested &&
		o.allFiles.state != domain.StateRequested &&
		o.overlay.state != domain.StateRequested
}

// State returns the current state of a protocol.
func (o *OrchestratorImpl) State(p domain.Protocol) domain.ProtocolState {
	var s domain.ProtocolState
	switch p {
	case domain.ProtocolBatch:
		s = o.batch.state
	case domain.ProtocolAllFiles:
		s = o.allFiles.state
	case domain.ProtocolOverlay:
		s = o.overlay.state
	}
	if s == "" {
		return domain.StateIdle
	}
	return s
}

// PendingToken returns the token a protocol is waiting on, or NoToken.
func (o *OrchestratorImpl) PendingToken(p domain.Protocol) domain.Token {
	switch p {
	case domain.ProtocolBatch:
		if o.batch.state == domain.StateRequested {
			return o.batch.pending.Token
		}
	case domain.ProtocolAllFiles:
		if o.allFiles.state == domain.StateRequested {
			return o.allFiles.token
		}
	case domain.ProtocolOverlay:
		if o.overlay.state == domain.StateRequested {
			return o.overlay.token
		}
	}
	return domain.NoToken
}

// LastSummary returns the most recent batch summary, or nil.
func (o *OrchestratorImpl) LastSummary() *domain.Summary {
	return o.lastSummary
}

func (o *OrchestratorImpl) emitSummary(summary domain.Summary) {
	o.lastSummary = &summary
	o.logger.Info("permission summary",
		zap.Int("token", int(summary.Token)),
		zap.Int("granted", summary.Granted),
		zap.Int("denied", summary.Denied))
	o.presenter.ShowSummary(summary)
}
