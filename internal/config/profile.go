// Package config loads the simulated device profile.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
	"github.com/eliteGoblin/focusd/app_perm/internal/infra"
)

// Answer is a profile-level prompt answer.
type Answer string

const (
	AnswerGrant Answer = "grant"
	AnswerDeny  Answer = "deny"
)

// Status converts the answer to a grant status.
func (a Answer) Status() domain.GrantStatus {
	if a == AnswerDeny {
		return domain.NotGranted
	}
	return domain.Granted
}

// AnswerRule answers prompts whose identifier matches a doublestar glob.
type AnswerRule struct {
	Match  string `json:"match" yaml:"match" toml:"match" jsonschema:"required,minLength=1"`
	Answer Answer `json:"answer" yaml:"answer" toml:"answer" jsonschema:"required,enum=grant,enum=deny"`
}

// Profile describes the simulated device and how its user answers prompts.
type Profile struct {
	PackageID                 string       `json:"package_id" yaml:"package_id" toml:"package_id" jsonschema:"minLength=1"`
	CapabilityLevel           int          `json:"capability_level" yaml:"capability_level" toml:"capability_level" jsonschema:"minimum=1,maximum=99"`
	DataDir                   string       `json:"data_dir" yaml:"data_dir" toml:"data_dir" jsonschema:"minLength=1"`
	Store                     string       `json:"store" yaml:"store" toml:"store" jsonschema:"enum=file,enum=encrypted"`
	AllFilesSettingsSupported bool         `json:"all_files_settings_supported" yaml:"all_files_settings_supported" toml:"all_files_settings_supported"`
	DefaultAnswer             Answer       `json:"default_answer" yaml:"default_answer" toml:"default_answer" jsonschema:"enum=grant,enum=deny"`
	Answers                   []AnswerRule `json:"answers,omitempty" yaml:"answers,omitempty" toml:"answers,omitempty"`
	Interactive               bool         `json:"interactive" yaml:"interactive" toml:"interactive"`
}

// Default returns the default device profile.
func Default() Profile {
	return Profile{
		PackageID:                 "io.ionic.starter",
		CapabilityLevel:           int(domain.LevelExtendedMedia),
		DataDir:                   "~/.permgate",
		Store:                     string(infra.StoreFile),
		AllFilesSettingsSupported: true,
		DefaultAnswer:             AnswerGrant,
	}
}

// Load reads a profile file; the format is chosen by extension. Fields
// absent from the file keep their defaults.
func Load(path string) (Profile, error) {
	p := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read profile: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	case ".toml":
		_, err = toml.NewDecoder(bytes.NewReader(data)).Decode(&p)
	case ".json":
		err = json.Unmarshal(data, &p)
	default:
		return p, fmt.Errorf("unsupported profile format %q", ext)
	}
	if err != nil {
		return p, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}

	if err := Validate(p); err != nil {
		return p, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	p.DataDir = infra.ExpandHome(p.DataDir)
	return p, nil
}

// Level returns the capability level as a domain value.
func (p Profile) Level() domain.CapabilityLevel {
	return domain.CapabilityLevel(p.CapabilityLevel)
}

// StoreKind returns the grant store backend.
func (p Profile) StoreKind() infra.StoreKind {
	return infra.StoreKind(p.Store)
}

// PlatformConfig returns the simulated device configuration.
func (p Profile) PlatformConfig() infra.PlatformConfig {
	c := infra.DefaultPlatformConfig()
	c.AllFilesSettingsSupported = p.AllFilesSettingsSupported
	return c
}

// Prompter builds the rule-based prompter for the profile's answers.
func (p Profile) Prompter() (*infra.RulePrompter, error) {
	rules := make([]infra.AnswerRule, len(p.Answers))
	for i, r := range p.Answers {
		rules[i] = infra.AnswerRule{Match: r.Match, Answer: r.Answer.Status()}
	}
	return infra.NewRulePrompter(rules, p.DefaultAnswer.Status())
}
