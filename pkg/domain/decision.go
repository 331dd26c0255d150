package domain

import (
	"fmt"
	"strings"
)

// Decision is the outcome a handler (or a whole chain) reports for one hook
// invocation. The zero value is Allow.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
	Block Decision = "block"
)

// severity orders decisions by restrictiveness: allow < deny < block.
var severity = map[Decision]int{
	Allow: 0,
	Deny:  1,
	Block: 2,
}

// Severity returns the rank of the decision. Unknown and empty decisions rank
// as Allow.
func (d Decision) Severity() int {
	return severity[d]
}

// Normalize maps the empty decision to Allow and leaves known values untouched.
func (d Decision) Normalize() Decision {
	if d == "" {
		return Allow
	}
	return d
}

// IsRestrictive reports whether the decision is stricter than Allow.
func (d Decision) IsRestrictive() bool {
	return d.Severity() > 0
}

// Valid reports whether d is one of the three known decisions.
func (d Decision) Valid() bool {
	_, ok := severity[d]
	return ok
}

func (d Decision) String() string {
	return string(d.Normalize())
}

// Max returns the more restrictive of two decisions.
func Max(a, b Decision) Decision {
	if b.Severity() > a.Severity() {
		return b.Normalize()
	}
	return a.Normalize()
}

// Aggregate folds decisions into the most restrictive one.
// An empty set aggregates to Allow.
func Aggregate(decisions ...Decision) Decision {
	out := Allow
	for _, d := range decisions {
		out = Max(out, d)
	}
	return out
}

// ParseDecision converts a case-insensitive string into a Decision.
// The empty string parses as Allow.
func ParseDecision(s string) (Decision, error) {
	d := Decision(strings.ToLower(strings.TrimSpace(s))).Normalize()
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDecision, s)
	}
	return d, nil
}
