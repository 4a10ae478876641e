// Package accesscontrol classifies tables against configured deny/read-only/
// whitelist pattern lists. It is deny-by-default for the deny list (listed
// tables are always denied) and allow-by-default for the others: a table not
// mentioned in the read-only list is implicitly writable, and a table not
// mentioned in a whitelist is implicitly outside it.
//
// Adapted from the gateway's role→table→capability authorization model,
// generalized from role-scoped grants to flat pattern-list membership since
// escape hatches and access-control checkers operate without a user/role
// concept.
package accesscontrol

import (
	"strings"
	"sync"
)

// PatternKind controls how a pattern is matched against a table name.
type PatternKind int

const (
	// PatternExact matches the table name verbatim.
	PatternExact PatternKind = iota
	// PatternPrefix matches table names starting with the pattern's prefix
	// (pattern written as "prefix*").
	PatternPrefix
	// PatternMapperID matches MyBatis-style mapper/statement IDs by substring,
	// e.g. "com.acme.orders.OrderMapper.delete*".
	PatternMapperID
)

// Pattern is one entry in a table classification list.
type Pattern struct {
	Kind PatternKind
	Text string
}

// ParsePattern builds a Pattern from configuration text: a trailing "*"
// marks a prefix pattern, text with more than one "." marks a mapper-ID
// pattern, anything else is matched exactly.
func ParsePattern(raw string) Pattern {
	raw = strings.TrimSpace(raw)
	if strings.HasSuffix(raw, "*") {
		return Pattern{Kind: PatternPrefix, Text: strings.TrimSuffix(raw, "*")}
	}
	if strings.Contains(raw, ".") && strings.Count(raw, ".") > 1 {
		return Pattern{Kind: PatternMapperID, Text: raw}
	}
	return Pattern{Kind: PatternExact, Text: raw}
}

func (p Pattern) matches(candidate string) bool {
	switch p.Kind {
	case PatternPrefix:
		return strings.HasPrefix(candidate, p.Text)
	case PatternMapperID:
		return strings.Contains(candidate, strings.TrimSuffix(p.Text, "*"))
	default:
		return candidate == p.Text
	}
}

// List is a mutex-guarded set of patterns usable concurrently from checkers.
type List struct {
	mu       sync.RWMutex
	patterns []Pattern
}

// NewList builds a List from raw configuration strings.
func NewList(raw []string) *List {
	patterns := make([]Pattern, 0, len(raw))
	for _, r := range raw {
		patterns = append(patterns, ParsePattern(r))
	}
	return &List{patterns: patterns}
}

// Matches reports whether candidate (a table name, or a mapper statement ID)
// matches any pattern in the list.
func (l *List) Matches(candidate string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range l.patterns {
		if p.matches(candidate) {
			return true
		}
	}
	return false
}

// Add appends a pattern to the list at runtime (e.g. from an admin API).
func (l *List) Add(raw string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.patterns = append(l.patterns, ParsePattern(raw))
}

// Registry bundles the three classification lists a deployment configures:
// denied tables (never accessible), read-only tables (writes forbidden), and
// whitelisted tables (exempt from specific checkers via escape hatch).
type Registry struct {
	Denied    *List
	ReadOnly  *List
	Whitelist *List
}

// NewRegistry builds a Registry from raw configuration strings.
func NewRegistry(denied, readOnly, whitelist []string) *Registry {
	return &Registry{
		Denied:    NewList(denied),
		ReadOnly:  NewList(readOnly),
		Whitelist: NewList(whitelist),
	}
}

// IsDenied reports whether table is on the deny list.
func (r *Registry) IsDenied(table string) bool {
	return r.Denied.Matches(table)
}

// IsReadOnly reports whether table is on the read-only list.
func (r *Registry) IsReadOnly(table string) bool {
	return r.ReadOnly.Matches(table)
}

// IsWhitelisted reports whether table or mapper ID is exempt via the
// escape-hatch whitelist.
func (r *Registry) IsWhitelisted(candidate string) bool {
	return r.Whitelist.Matches(candidate)
}
