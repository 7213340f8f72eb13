// Package catalog implements the Strategy pattern for permission families.
// Each family (standard, media, bluetooth, special grants) defines its own
// minimum level and identifier list.
package catalog

import "github.com/eliteGoblin/focusd/app_perm/internal/domain"

// PermissionPrefix is the namespace of platform permission identifiers.
const PermissionPrefix = "android.permission."

// FamilyPolicy defines the strategy interface for one permission family.
type FamilyPolicy interface {
	// Family returns the family tag (e.g., "standard", "bluetooth").
	Family() domain.Family

	// Name returns human-readable name for display.
	Name() string

	// MinLevel returns the lowest capability level at which the family applies.
	MinLevel() domain.CapabilityLevel

	// Permissions returns the ordered identifiers.
	// Special families return nil.
	Permissions() []domain.Permission
}

// ToDefinition converts a FamilyPolicy to a domain.Definition entity.
func ToDefinition(fp FamilyPolicy) domain.Definition {
	return domain.Definition{
		Family:      fp.Family(),
		Name:        fp.Name(),
		MinLevel:    fp.MinLevel(),
		Permissions: fp.Permissions(),
	}
}

func permissions(names ...string) []domain.Permission {
	perms := make([]domain.Permission, len(names))
	for i, n := range names {
		perms[i] = domain.Permission{ID: PermissionPrefix + n}
	}
	return perms
}
