package usecase

import (
	"context"

	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
)

// batchProtocol is the runtime-permission state machine:
// idle -> requested -> resolved.
type batchProtocol struct {
	state   domain.ProtocolState
	pending domain.PendingRequest
}

// reset returns the protocol to idle unless a callback is still owed.
func (p *batchProtocol) reset() bool {
	if p.state == domain.StateRequested {
		return false
	}
	p.state = domain.StateIdle
	p.pending = domain.PendingRequest{}
	return true
}

func (p *batchProtocol) matches(token domain.Token) bool {
	return p.state == domain.StateRequested && p.pending.Token == token
}

// specialProtocol is a settings-screen grant state machine:
// idle -> checked -> requested -> resolved.
type specialProtocol struct {
	protocol domain.Protocol
	family   domain.Family
	state    domain.ProtocolState
	token    domain.Token

	// usedFallback records that the preferred screen was unsupported.
	usedFallback bool

	query    func(ctx context.Context) (bool, error)
	navigate func(ctx context.Context, token domain.Token) error
	fallback func(ctx context.Context, token domain.Token) error // nil when none
}

func (p *specialProtocol) reset() bool {
	if p.state == domain.StateRequested {
		return false
	}
	p.state = domain.StateIdle
	p.token = domain.NoToken
	p.usedFallback = false
	return true
}

func (p *specialProtocol) matches(token domain.Token) bool {
	return p.state == domain.StateRequested && p.token == token
}

func newAllFilesProtocol(platform domain.Platform, packageID string) specialProtocol {
	return specialProtocol{
		protocol: domain.ProtocolAllFiles,
		family:   domain.FamilyAllFilesAccess,
		state:    domain.StateIdle,
		query:    platform.AllFilesGranted,
		navigate: func(ctx context.Context, token domain.Token) error {
			return platform.NavigateToAllFilesSettings(ctx, packageID, token)
		},
		fallback: platform.NavigateToAllFilesSettingsFallback,
	}
}

func newOverlayProtocol(platform domain.Platform, packageID string) specialProtocol {
	return specialProtocol{
		protocol: domain.ProtocolOverlay,
		family:   domain.FamilyDrawOverlay,
		state:    domain.StateIdle,
		query:    platform.OverlayGranted,
		navigate: func(ctx context.Context, token domain.Token) error {
			return platform.NavigateToOverlaySettings(ctx, packageID, token)
		},
	}
}
