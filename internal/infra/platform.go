package infra

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
)

// ErrEventBufferFull is returned when no callback slot is free. The request
// is rejected before anything is prompted or persisted.
var ErrEventBufferFull = errors.New("platform event buffer full")

// minEventBuffer holds one callback per protocol, the most an orchestrator
// keeps in flight.
var minEventBuffer = len(domain.Protocols)

// PlatformConfig holds simulated device configuration.
type PlatformConfig struct {
	// AllFilesSettingsSupported is false on devices that cannot resolve the
	// app-specific all-files screen.
	AllFilesSettingsSupported bool
	// EventBuffer is raised to one slot per protocol when smaller.
	EventBuffer               int
}

// DefaultPlatformConfig returns default simulated device configuration.
func DefaultPlatformConfig() PlatformConfig {
	return PlatformConfig{
		AllFilesSettingsSupported: true,
		EventBuffer:               16,
	}
}

// PlatformCall records one request made to the simulated platform.
type PlatformCall struct {
	Method    string
	IDs       []string
	PackageID string
	Token     domain.Token
}

// SimulatedPlatform implements domain.Platform over a grant store. Prompts
// are answered by a domain.Prompter and outcomes are delivered
// asynchronously on Events().
type SimulatedPlatform struct {
	config   PlatformConfig
	store    domain.GrantStore
	prompter domain.Prompter
	logger   *zap.Logger
	events   chan domain.PlatformEvent

	mu    sync.Mutex
	calls []PlatformCall

	// sendMu serializes flows so a slot checked free stays free until sent.
	sendMu sync.Mutex
}

// NewSimulatedPlatform creates a simulated device platform.
func NewSimulatedPlatform(config PlatformConfig, store domain.GrantStore, prompter domain.Prompter, logger *zap.Logger) *SimulatedPlatform {
	if config.EventBuffer <= 0 {
		config.EventBuffer = DefaultPlatformConfig().EventBuffer
	}
	if config.EventBuffer < minEventBuffer {
		config.EventBuffer = minEventBuffer
	}
	return &SimulatedPlatform{
		config:   config,
		store:    store,
		prompter: prompter,
		logger:   logger,
		events:   make(chan domain.PlatformEvent, config.EventBuffer),
	}
}

// Events returns the callback channel.
func (p *SimulatedPlatform) Events() <-chan domain.PlatformEvent {
	return p.events
}

// Calls returns a copy of the recorded requests.
func (p *SimulatedPlatform) Calls() []PlatformCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PlatformCall(nil), p.calls...)
}

// QueryGrantStatus reads the device's stored grant.
func (p *SimulatedPlatform) QueryGrantStatus(ctx context.Context, id string) (domain.GrantStatus, error) {
	return p.store.Get(id)
}

// RequestBatch prompts for every id and delivers one batch result. If an
// answer cannot be persisted, prompting stops and the result carries only
// the answers that were stored.
func (p *SimulatedPlatform) RequestBatch(ctx context.Context, ids []string, token domain.Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if err := p.reserve(token); err != nil {
		return err
	}
	p.record(PlatformCall{Method: "RequestBatch", IDs: append([]string(nil), ids...), Token: token})

	outcomes := make([]domain.PermissionOutcome, 0, len(ids))
	for _, id := range ids {
		status := p.ask(ctx, id)
		if err := p.store.Set(id, status); err != nil {
			p.logger.Error("failed to persist answer, delivering partial result",
				zap.String("permission", id),
				zap.Int("token", int(token)),
				zap.Int("stored", len(outcomes)),
				zap.Error(err))
			break
		}
		outcomes = append(outcomes, domain.PermissionOutcome{ID: id, Status: status})
	}

	p.deliver(domain.PlatformEvent{Kind: domain.EventBatchResult, Token: token, Outcomes: outcomes})
	return nil
}

// NavigateToAllFilesSettings opens the app-specific all-files screen.
func (p *SimulatedPlatform) NavigateToAllFilesSettings(ctx context.Context, packageID string, token domain.Token) error {
	p.record(PlatformCall{Method: "NavigateToAllFilesSettings", PackageID: packageID, Token: token})
	if !p.config.AllFilesSettingsSupported {
		return fmt.Errorf("all files settings for %s: %w", packageID, domain.ErrUnsupportedTarget)
	}
	return p.settingsFlow(ctx, domain.FamilyAllFilesAccess, token)
}

// NavigateToAllFilesSettingsFallback opens the general all-files screen.
func (p *SimulatedPlatform) NavigateToAllFilesSettingsFallback(ctx context.Context, token domain.Token) error {
	p.record(PlatformCall{Method: "NavigateToAllFilesSettingsFallback", Token: token})
	return p.settingsFlow(ctx, domain.FamilyAllFilesAccess, token)
}

// NavigateToOverlaySettings opens the overlay permission screen.
func (p *SimulatedPlatform) NavigateToOverlaySettings(ctx context.Context, packageID string, token domain.Token) error {
	p.record(PlatformCall{Method: "NavigateToOverlaySettings", PackageID: packageID, Token: token})
	return p.settingsFlow(ctx, domain.FamilyDrawOverlay, token)
}

// AllFilesGranted reports the stored manage-all-files grant.
func (p *SimulatedPlatform) AllFilesGranted(ctx context.Context) (bool, error) {
	return p.specialGranted(domain.FamilyAllFilesAccess)
}

// OverlayGranted reports the stored draw-on-top grant.
func (p *SimulatedPlatform) OverlayGranted(ctx context.Context) (bool, error) {
	return p.specialGranted(domain.FamilyDrawOverlay)
}

// settingsFlow simulates the user toggling the grant and pressing back.
// The return event carries no payload.
func (p *SimulatedPlatform) settingsFlow(ctx context.Context, family domain.Family, token domain.Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if err := p.reserve(token); err != nil {
		return err
	}
	status := p.ask(ctx, family.SpecialID())
	if err := p.store.Set(family.SpecialID(), status); err != nil {
		return fmt.Errorf("failed to persist %s: %w", family, err)
	}
	p.deliver(domain.PlatformEvent{Kind: domain.EventSettingsReturn, Token: token})
	return nil
}

func (p *SimulatedPlatform) specialGranted(family domain.Family) (bool, error) {
	status, err := p.store.Get(family.SpecialID())
	if err != nil {
		return false, err
	}
	return status == domain.Granted, nil
}

// ask treats a failing prompt as a dismissed dialog.
func (p *SimulatedPlatform) ask(ctx context.Context, id string) domain.GrantStatus {
	status, err := p.prompter.Answer(ctx, id)
	if err != nil {
		p.logger.Warn("prompt failed, treating as denied",
			zap.String("permission", id),
			zap.Error(err))
		return domain.NotGranted
	}
	return status
}

func (p *SimulatedPlatform) record(call PlatformCall) {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
}

// reserve fails when the callback could not be queued. Callers hold sendMu.
func (p *SimulatedPlatform) reserve(token domain.Token) error {
	if len(p.events) < cap(p.events) {
		return nil
	}
	p.logger.Warn("event buffer full, request rejected",
		zap.Int("token", int(token)),
		zap.Int("buffer", cap(p.events)))
	return fmt.Errorf("token %d: %w", token, ErrEventBufferFull)
}

// deliver queues a callback into the slot reserve found free. Readers only
// drain the channel, so the send never blocks.
func (p *SimulatedPlatform) deliver(ev domain.PlatformEvent) {
	p.events <- ev
}

// Ensure SimulatedPlatform implements the platform interfaces.
var _ domain.Platform = (*SimulatedPlatform)(nil)
var _ domain.EventSource = (*SimulatedPlatform)(nil)
