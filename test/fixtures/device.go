// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/app_perm/internal/config"
	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
	"github.com/eliteGoblin/focusd/app_perm/internal/infra"
)

// FakeDevice lays out a simulated device: a profile file and a data
// directory holding its grant store.
type FakeDevice struct {
	Dir     string
	Profile config.Profile
}

// NewFakeDevice creates a device rooted at dir with the default profile.
func NewFakeDevice(dir string) *FakeDevice {
	p := config.Default()
	p.DataDir = filepath.Join(dir, "data")
	return &FakeDevice{Dir: dir, Profile: p}
}

// ProfilePath is where WriteProfile writes the profile.
func (d *FakeDevice) ProfilePath() string {
	return filepath.Join(d.Dir, "device.yaml")
}

// WriteProfile writes the current profile as YAML.
func (d *FakeDevice) WriteProfile() error {
	data, err := yaml.Marshal(d.Profile)
	if err != nil {
		return err
	}
	return os.WriteFile(d.ProfilePath(), data, 0600)
}

// Deny makes the simulated user deny identifiers matching pattern.
func (d *FakeDevice) Deny(pattern string) *FakeDevice {
	d.Profile.Answers = append(d.Profile.Answers, config.AnswerRule{Match: pattern, Answer: config.AnswerDeny})
	return d
}

// OpenStore opens the device's grant store.
func (d *FakeDevice) OpenStore() (infra.Store, error) {
	return infra.OpenStore(d.Profile.StoreKind(), d.Profile.DataDir)
}

// Seed stores the given statuses before the app starts.
func (d *FakeDevice) Seed(grants map[string]domain.GrantStatus) error {
	store, err := d.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	for id, status := range grants {
		if err := store.Set(id, status); err != nil {
			return err
		}
	}
	return nil
}

// GrantAll seeds every identifier as granted.
func (d *FakeDevice) GrantAll(ids ...string) error {
	grants := make(map[string]domain.GrantStatus, len(ids))
	for _, id := range ids {
		grants[id] = domain.Granted
	}
	return d.Seed(grants)
}
