package usecase

import (
	"context"
	"errors"

	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
)

// mockPlatform implements domain.Platform for testing
type mockPlatform struct {
	grants          map[string]domain.GrantStatus
	queryErr        map[string]error
	allFilesGranted bool
	overlayGranted  bool
	allFilesTarget  error // returned by the preferred all-files navigation
	fallbackErr     error
	overlayErr      error
	batchErr        error

	queried       []string
	batches       []batchCall
	navigations   []navigationCall
	specialChecks []domain.Family
}

type batchCall struct {
	ids   []string
	token domain.Token
}

type navigationCall struct {
	target    string
	packageID string
	token     domain.Token
}

func newMockPlatform() *mockPlatform {
	return &mockPlatform{grants: make(map[string]domain.GrantStatus)}
}

func (m *mockPlatform) grantAll(ids ...string) {
	for _, id := range ids {
		m.grants[id] = domain.Granted
	}
}

func (m *mockPlatform) QueryGrantStatus(ctx context.Context, id string) (domain.GrantStatus, error) {
	m.queried = append(m.queried, id)
	if err := m.queryErr[id]; err != nil {
		return domain.NotGranted, err
	}
	if s, ok := m.grants[id]; ok {
		return s, nil
	}
	return domain.NotGranted, nil
}

func (m *mockPlatform) RequestBatch(ctx context.Context, ids []string, token domain.Token) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	m.batches = append(m.batches, batchCall{ids: append([]string(nil), ids...), token: token})
	return nil
}

func (m *mockPlatform) NavigateToAllFilesSettings(ctx context.Context, packageID string, token domain.Token) error {
	m.navigations = append(m.navigations, navigationCall{target: "all_files", packageID: packageID, token: token})
	return m.allFilesTarget
}

func (m *mockPlatform) NavigateToAllFilesSettingsFallback(ctx context.Context, token domain.Token) error {
	m.navigations = append(m.navigations, navigationCall{target: "all_files_fallback", token: token})
	return m.fallbackErr
}

func (m *mockPlatform) NavigateToOverlaySettings(ctx context.Context, packageID string, token domain.Token) error {
	m.navigations = append(m.navigations, navigationCall{target: "overlay", packageID: packageID, token: token})
	return m.overlayErr
}

func (m *mockPlatform) AllFilesGranted(ctx context.Context) (bool, error) {
	m.specialChecks = append(m.specialChecks, domain.FamilyAllFilesAccess)
	return m.allFilesGranted, nil
}

func (m *mockPlatform) OverlayGranted(ctx context.Context) (bool, error) {
	m.specialChecks = append(m.specialChecks, domain.FamilyDrawOverlay)
	return m.overlayGranted, nil
}

// mockPresenter records everything shown
type mockPresenter struct {
	summaries []domain.Summary
	specials  []domain.SpecialResult
}

func (m *mockPresenter) ShowSummary(summary domain.Summary) {
	m.summaries = append(m.summaries, summary)
}

func (m *mockPresenter) ShowSpecialResult(result domain.SpecialResult) {
	m.specials = append(m.specials, result)
}

// mockCatalog implements domain.Catalog with fixed definitions
type mockCatalog struct {
	defs []domain.Definition
}

func (m *mockCatalog) DefinitionsFor(level domain.CapabilityLevel) []domain.Definition {
	var out []domain.Definition
	for _, d := range m.defs {
		if d.MinLevel > level {
			continue
		}
		var ps []domain.Permission
		for _, p := range d.Permissions {
			if p.Since <= level {
				ps = append(ps, p)
			}
		}
		d.Permissions = ps
		out = append(out, d)
	}
	return out
}

func (m *mockCatalog) Get(family domain.Family) (domain.Definition, bool) {
	for _, d := range m.defs {
		if d.Family == family {
			return d, true
		}
	}
	return domain.Definition{}, false
}

func (m *mockCatalog) Lookup(id string) (domain.Family, domain.Permission, error) {
	for _, d := range m.defs {
		for _, p := range d.Permissions {
			if p.ID == id {
				return d.Family, p, nil
			}
		}
	}
	return "", domain.Permission{}, domain.ErrUnknownPermission
}

func perms(ids ...string) []domain.Permission {
	out := make([]domain.Permission, len(ids))
	for i, id := range ids {
		out[i] = domain.Permission{ID: id}
	}
	return out
}

// abcCatalog is standard [A, B, C] plus both special grants at their usual levels.
func abcCatalog() *mockCatalog {
	return &mockCatalog{defs: []domain.Definition{
		{Family: domain.FamilyStandard, MinLevel: domain.LevelBase, Permissions: perms("A", "B", "C")},
		{Family: domain.FamilyAllFilesAccess, MinLevel: domain.LevelAllFiles},
		{Family: domain.FamilyDrawOverlay, MinLevel: domain.LevelOverlay},
	}}
}

var errPlatform = errors.New("platform unavailable")
