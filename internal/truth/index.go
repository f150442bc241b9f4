// Package truth loads per-family plugin truth data and serves immutable,
// binary-searchable pattern indexes with atomic hot-swap reloads.
package truth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/veridoc/veridoc/pkg/models"
)

// lookupPrefixLen is the normalized-prefix length used to bound the binary
// search range. Candidates sharing this prefix are returned for scoring; the
// detector decides how close they really are.
const lookupPrefixLen = 3

// entry is one (normalizedPattern, pluginID) pair in the sorted index.
type entry struct {
	pattern  string
	pluginID string
}

// Index is an immutable, fully-built snapshot of one family's truth data.
// Readers never need a lock: a reload builds a new Index off to the side and
// the cache swaps the active pointer.
type Index struct {
	family  string
	hash    string
	entries []entry
	defs    map[string]*models.PluginDefinition
	// order preserves definition order for deterministic rule evaluation.
	order []string
}

// Family returns the family this index was built for.
func (ix *Index) Family() string { return ix.family }

// Hash returns the hex sha256 digest of the raw source data the index was
// built from.
func (ix *Index) Hash() string { return ix.hash }

// PluginCount returns the number of plugin definitions in the index.
func (ix *Index) PluginCount() int { return len(ix.order) }

// PatternCount returns the number of indexed pattern entries.
func (ix *Index) PatternCount() int { return len(ix.entries) }

// Definition returns the definition for the given plugin id, or nil.
func (ix *Index) Definition(id string) *models.PluginDefinition {
	return ix.defs[id]
}

// PluginIDs returns all plugin ids in definition order.
func (ix *Index) PluginIDs() []string {
	ids := make([]string, len(ix.order))
	copy(ids, ix.order)
	return ids
}

// Normalize case-folds a pattern or candidate and collapses runs of
// whitespace to single spaces. Both sides of every lookup go through this.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Lookup returns candidate plugin ids for the given text in O(log n + k):
// a binary search positions the scan at the first entry sharing the text's
// normalized prefix, then collects ids until the prefix no longer matches.
// The result is deduplicated and ordered by the sorted entry order, so the
// same text always yields the same candidate list.
func (ix *Index) Lookup(text string) []string {
	norm := Normalize(text)
	if norm == "" {
		return nil
	}

	prefix := norm
	if len(prefix) > lookupPrefixLen {
		prefix = prefix[:lookupPrefixLen]
	}

	lo := sort.Search(len(ix.entries), func(i int) bool {
		return ix.entries[i].pattern >= prefix
	})

	var ids []string
	seen := make(map[string]bool)
	for i := lo; i < len(ix.entries); i++ {
		if !strings.HasPrefix(ix.entries[i].pattern, prefix) {
			break
		}
		if !seen[ix.entries[i].pluginID] {
			seen[ix.entries[i].pluginID] = true
			ids = append(ids, ix.entries[i].pluginID)
		}
	}
	return ids
}

// RuleViolation describes one violated combination rule.
type RuleViolation struct {
	// PluginID is the plugin whose definition owns the violated rule.
	PluginID string
	// RuleID identifies the rule within the definition.
	RuleID string
	// Message is a human-readable description of the violation.
	Message string
}

// CombinationCheck is the outcome of evaluating a declared plugin set
// against the family's combination rules.
type CombinationCheck struct {
	// Allowed is true when no rule was violated.
	Allowed bool
	// Violations lists every violated rule in rule-definition order.
	Violations []RuleViolation
}

// CheckCombination evaluates the declared plugin ids against all combination
// rules. Every violated rule is reported, not just the first, in
// rule-definition order so the result is deterministic.
func (ix *Index) CheckCombination(pluginIDs []string) CombinationCheck {
	declared := make(map[string]bool, len(pluginIDs))
	for _, id := range pluginIDs {
		declared[id] = true
	}

	check := CombinationCheck{Allowed: true}
	for _, id := range ix.order {
		if !declared[id] {
			continue
		}
		def := ix.defs[id]
		for _, rule := range def.Rules {
			if v, ok := evaluateRule(id, rule, declared); ok {
				check.Allowed = false
				check.Violations = append(check.Violations, v)
			}
		}
	}
	return check
}

// evaluateRule checks a single rule against the declared set. It returns the
// violation and true when the rule is violated.
func evaluateRule(owner string, rule models.CombinationRule, declared map[string]bool) (RuleViolation, bool) {
	if len(rule.Forbid) > 0 {
		all := true
		for _, id := range rule.Forbid {
			if !declared[id] {
				all = false
				break
			}
		}
		if all {
			return RuleViolation{
				PluginID: owner,
				RuleID:   rule.ID,
				Message:  fmt.Sprintf("plugin %q must not be combined with %s", owner, strings.Join(rule.Forbid, ", ")),
			}, true
		}
	}

	if len(rule.Require) > 0 {
		var missing []string
		for _, id := range rule.Require {
			if !declared[id] {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return RuleViolation{
				PluginID: owner,
				RuleID:   rule.ID,
				Message:  fmt.Sprintf("plugin %q requires %s", owner, strings.Join(missing, ", ")),
			}, true
		}
	}

	return RuleViolation{}, false
}

// contentHash returns the hex sha256 digest of raw truth-data bytes.
func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// buildIndex parses raw family data and builds a sorted pattern index.
// The returned Index is complete and immutable before anyone can see it.
func buildIndex(family string, data []byte, hash string) (*Index, error) {
	doc, err := parseFamily(family, data)
	if err != nil {
		return nil, err
	}

	ix := &Index{
		family: family,
		hash:   hash,
		defs:   make(map[string]*models.PluginDefinition, len(doc.Plugins)),
	}

	for i := range doc.Plugins {
		def := &doc.Plugins[i]
		def.Family = family
		if _, dup := ix.defs[def.ID]; dup {
			return nil, fmt.Errorf("duplicate plugin id %q", def.ID)
		}
		ix.defs[def.ID] = def
		ix.order = append(ix.order, def.ID)

		for _, p := range def.Patterns {
			norm := Normalize(p)
			if norm == "" {
				return nil, fmt.Errorf("plugin %q has an empty pattern", def.ID)
			}
			ix.entries = append(ix.entries, entry{pattern: norm, pluginID: def.ID})
		}
	}

	sort.Slice(ix.entries, func(i, j int) bool {
		if ix.entries[i].pattern != ix.entries[j].pattern {
			return ix.entries[i].pattern < ix.entries[j].pattern
		}
		return ix.entries[i].pluginID < ix.entries[j].pluginID
	})

	return ix, nil
}
