package catalog

import (
	"fmt"

	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
)

// Registry holds all permission families in dispatch order.
// Built once at process start and never mutated afterwards.
type Registry struct {
	families []FamilyPolicy
	index    map[domain.Family]int
}

// NewRegistry creates a registry with the default families.
// Order matters: it is the order identifiers appear in the batched prompt.
func NewRegistry() *Registry {
	return NewRegistryWithFamilies(
		NewStandardFamily(),
		NewExtendedMediaFamily(),
		NewBluetoothFamily(),
		NewAllFilesAccessFamily(),
		NewDrawOverlayFamily(),
	)
}

// NewRegistryWithFamilies creates a registry with custom families (for testing).
// A family registered twice keeps its first position.
func NewRegistryWithFamilies(families ...FamilyPolicy) *Registry {
	r := &Registry{
		families: make([]FamilyPolicy, 0, len(families)),
		index:    make(map[domain.Family]int),
	}
	for _, f := range families {
		if _, ok := r.index[f.Family()]; ok {
			continue
		}
		r.index[f.Family()] = len(r.families)
		r.families = append(r.families, f)
	}
	return r
}

// DefinitionsFor returns the families whose minimum level is satisfied,
// each restricted to the identifiers meaningful at level.
func (r *Registry) DefinitionsFor(level domain.CapabilityLevel) []domain.Definition {
	defs := make([]domain.Definition, 0, len(r.families))
	for _, f := range r.families {
		if f.MinLevel() > level {
			continue
		}
		def := ToDefinition(f)
		perms := make([]domain.Permission, 0, len(def.Permissions))
		for _, p := range def.Permissions {
			if p.Since <= level {
				perms = append(perms, p)
			}
		}
		def.Permissions = perms
		defs = append(defs, def)
	}
	return defs
}

// Get returns the unfiltered definition of a family.
func (r *Registry) Get(family domain.Family) (domain.Definition, bool) {
	i, ok := r.index[family]
	if !ok {
		return domain.Definition{}, false
	}
	return ToDefinition(r.families[i]), true
}

// All returns all definitions regardless of level.
func (r *Registry) All() []domain.Definition {
	defs := make([]domain.Definition, len(r.families))
	for i, f := range r.families {
		defs[i] = ToDefinition(f)
	}
	return defs
}

// Families returns the family tags in dispatch order.
func (r *Registry) Families() []domain.Family {
	tags := make([]domain.Family, len(r.families))
	for i, f := range r.families {
		tags[i] = f.Family()
	}
	return tags
}

// Lookup returns the family and entry that define a permission identifier.
func (r *Registry) Lookup(id string) (domain.Family, domain.Permission, error) {
	for _, f := range r.families {
		for _, p := range f.Permissions() {
			if p.ID == id {
				return f.Family(), p, nil
			}
		}
	}
	return "", domain.Permission{}, fmt.Errorf("%w: %s", domain.ErrUnknownPermission, id)
}

// Ensure Registry implements domain.Catalog.
var _ domain.Catalog = (*Registry)(nil)
