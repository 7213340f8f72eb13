package catalog

import "github.com/eliteGoblin/focusd/app_perm/internal/domain"

// AllFilesAccessFamily is the manage-all-files settings grant.
type AllFilesAccessFamily struct{}

// NewAllFilesAccessFamily creates the all-files special grant.
func NewAllFilesAccessFamily() *AllFilesAccessFamily {
	return &AllFilesAccessFamily{}
}

func (f *AllFilesAccessFamily) Family() domain.Family {
	return domain.FamilyAllFilesAccess
}

func (f *AllFilesAccessFamily) Name() string {
	return "All files access"
}

func (f *AllFilesAccessFamily) MinLevel() domain.CapabilityLevel {
	return domain.LevelAllFiles
}

func (f *AllFilesAccessFamily) Permissions() []domain.Permission {
	return nil
}

// DrawOverlayFamily is the draw-on-top settings grant.
type DrawOverlayFamily struct{}

// NewDrawOverlayFamily creates the overlay special grant.
func NewDrawOverlayFamily() *DrawOverlayFamily {
	return &DrawOverlayFamily{}
}

func (f *DrawOverlayFamily) Family() domain.Family {
	return domain.FamilyDrawOverlay
}

func (f *DrawOverlayFamily) Name() string {
	return "Display over other apps"
}

func (f *DrawOverlayFamily) MinLevel() domain.CapabilityLevel {
	return domain.LevelOverlay
}

func (f *DrawOverlayFamily) Permissions() []domain.Permission {
	return nil
}

var (
	_ FamilyPolicy = (*AllFilesAccessFamily)(nil)
	_ FamilyPolicy = (*DrawOverlayFamily)(nil)
)
