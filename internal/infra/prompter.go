package infra

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
)

// AnswerRule maps an identifier glob to the simulated user's answer.
// Example: {Match: "android.permission.*SMS*", Answer: not_granted}
type AnswerRule struct {
	Match  string
	Answer domain.GrantStatus
}

// RulePrompter answers prompts from an ordered rule list; the first
// matching rule wins, otherwise the default answer applies.
type RulePrompter struct {
	rules    []AnswerRule
	fallback domain.GrantStatus
}

// NewRulePrompter validates the rule patterns and builds a prompter.
func NewRulePrompter(rules []AnswerRule, fallback domain.GrantStatus) (*RulePrompter, error) {
	for _, r := range rules {
		if !doublestar.ValidatePattern(r.Match) {
			return nil, fmt.Errorf("invalid answer pattern %q", r.Match)
		}
	}
	if fallback == "" {
		fallback = domain.Granted
	}
	return &RulePrompter{
		rules:    append([]AnswerRule(nil), rules...),
		fallback: fallback,
	}, nil
}

// Answer returns the answer of the first rule matching id.
func (p *RulePrompter) Answer(ctx context.Context, id string) (domain.GrantStatus, error) {
	if err := ctx.Err(); err != nil {
		return domain.NotGranted, err
	}
	for _, r := range p.rules {
		if ok, _ := doublestar.Match(r.Match, id); ok {
			return r.Answer, nil
		}
	}
	return p.fallback, nil
}

// InteractivePrompter asks a human on a terminal.
type InteractivePrompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewInteractivePrompter creates a prompter reading answers from in.
func NewInteractivePrompter(in io.Reader, out io.Writer) *InteractivePrompter {
	return &InteractivePrompter{in: bufio.NewScanner(in), out: out}
}

// Answer prints a y/N question. Anything but y/yes denies, as does EOF.
func (p *InteractivePrompter) Answer(ctx context.Context, id string) (domain.GrantStatus, error) {
	if err := ctx.Err(); err != nil {
		return domain.NotGranted, err
	}
	fmt.Fprintf(p.out, "Allow %s? [y/N] ", DisplayName(id))
	if !p.in.Scan() {
		fmt.Fprintln(p.out)
		return domain.NotGranted, p.in.Err()
	}
	switch strings.ToLower(strings.TrimSpace(p.in.Text())) {
	case "y", "yes":
		return domain.Granted, nil
	default:
		return domain.NotGranted, nil
	}
}

// DisplayName shortens an identifier for humans.
// "android.permission.CAMERA" -> "CAMERA", "special:draw_overlay" -> "draw_overlay".
func DisplayName(id string) string {
	if i := strings.LastIndexAny(id, ".:"); i >= 0 && i < len(id)-1 {
		return id[i+1:]
	}
	return id
}

var (
	_ domain.Prompter = (*RulePrompter)(nil)
	_ domain.Prompter = (*InteractivePrompter)(nil)
)
