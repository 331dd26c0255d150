// Package rules turns declarative match rules into hook handlers.
//
// A rule inspects one field of the payload and, when it matches, returns a
// fixed decision:
//
//	- name: no-force-push
//	  stage: PreToolUse
//	  tools: [Bash]
//	  field: command
//	  pattern: 'git\s+push\s+.*--force'
//	  decision: deny
//	  reason: force pushes need a human
package rules

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/fasthooks/pkg/domain"
)

// Rule is the declarative form, as read from configuration.
type Rule struct {
	Name     string          `yaml:"name" mapstructure:"name"`
	Stage    domain.Stage    `yaml:"stage" mapstructure:"stage"`
	Tools    []string        `yaml:"tools,omitempty" mapstructure:"tools"`
	Field    string          `yaml:"field" mapstructure:"field"`
	Pattern  string          `yaml:"pattern,omitempty" mapstructure:"pattern"`
	Contains string          `yaml:"contains,omitempty" mapstructure:"contains"`
	Decision domain.Decision `yaml:"decision" mapstructure:"decision"`
	Reason   string          `yaml:"reason,omitempty" mapstructure:"reason"`
}

// Compiled is a validated rule ready to run.
type Compiled struct {
	Rule
	re *regexp.Regexp
}

// Compile validates r and compiles its pattern.
func Compile(r Rule) (*Compiled, error) {
	if r.Name == "" {
		return nil, errors.New("rule has no name")
	}
	if !r.Stage.Valid() {
		return nil, fmt.Errorf("rule %s: %w: %q", r.Name, domain.ErrUnknownStage, r.Stage)
	}
	if r.Field == "" {
		return nil, fmt.Errorf("rule %s: field is required", r.Name)
	}
	if r.Pattern == "" && r.Contains == "" {
		return nil, fmt.Errorf("rule %s: pattern or contains is required", r.Name)
	}
	if len(r.Tools) > 0 && !r.Stage.IsToolStage() {
		return nil, fmt.Errorf("rule %s: tools only apply to tool stages", r.Name)
	}

	decision, err := domain.ParseDecision(string(r.Decision))
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", r.Name, err)
	}
	r.Decision = decision
	if r.Reason == "" {
		r.Reason = "matched rule " + r.Name
	}

	c := &Compiled{Rule: r}
	if r.Pattern != "" {
		c.re, err = regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: invalid pattern: %w", r.Name, err)
		}
	}
	return c, nil
}

// CompileAll compiles every rule, reporting all failures at once.
func CompileAll(rules []Rule) ([]*Compiled, error) {
	out := make([]*Compiled, 0, len(rules))
	var errs []error
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if seen[r.Name] {
			errs = append(errs, fmt.Errorf("rule %s: duplicate name", r.Name))
			continue
		}
		seen[r.Name] = true
		c, err := Compile(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Match reports whether the rule fires for in.
func (c *Compiled) Match(in *domain.Input) bool {
	value, ok := in.Field(c.Field)
	if !ok {
		return false
	}
	if c.Contains != "" && !strings.Contains(strings.ToLower(value), strings.ToLower(c.Contains)) {
		return false
	}
	if c.re != nil && !c.re.MatchString(value) {
		return false
	}
	return true
}

// Handler returns the rule as a handler. A non-matching payload yields no
// opinion.
func (c *Compiled) Handler() domain.HandlerFunc {
	return func(_ context.Context, in *domain.Input) (*domain.Response, error) {
		if !c.Match(in) {
			return nil, nil
		}
		return &domain.Response{Decision: c.Decision, Reason: c.Reason}, nil
	}
}
