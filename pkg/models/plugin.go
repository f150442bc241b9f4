package models

// CombinationRule declares a co-occurrence constraint owned by a plugin
// definition. A rule with Forbid is violated when the owning plugin and all
// forbidden plugins appear together; a rule with Require is violated when the
// owning plugin appears without every required plugin.
type CombinationRule struct {
	// ID identifies the rule in violation reports.
	ID string `yaml:"id" json:"id"`
	// Forbid lists plugin ids that must not all co-occur with the owner.
	Forbid []string `yaml:"forbid,omitempty" json:"forbid,omitempty"`
	// Require lists plugin ids that must accompany the owner.
	Require []string `yaml:"require,omitempty" json:"require,omitempty"`
}

// PluginDefinition describes one plugin in a family's truth data: its
// detection patterns and the combination rules it participates in.
// Definitions are immutable once loaded; a truth reload replaces them
// wholesale.
type PluginDefinition struct {
	// ID is the canonical plugin identifier.
	ID string `yaml:"id" json:"id"`
	// Family is the truth-data family the plugin belongs to.
	Family string `yaml:"family,omitempty" json:"family"`
	// Patterns is the ordered list of detection patterns and aliases.
	Patterns []string `yaml:"patterns" json:"patterns"`
	// Rules lists combination constraints owned by this plugin.
	Rules []CombinationRule `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// Span is a half-open [Start, End) byte range within document content.
type Span struct {
	// Start is the inclusive start offset.
	Start int `json:"start"`
	// End is the exclusive end offset.
	End int `json:"end"`
}

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Detection is a single fuzzy plugin match within document content.
type Detection struct {
	// PluginID is the matched plugin.
	PluginID string `json:"plugin_id"`
	// Confidence is the composite match confidence, in [0,1].
	Confidence float64 `json:"confidence"`
	// Span is the matched byte range in the original content.
	Span Span `json:"span"`
	// AlgorithmScores holds the raw per-signal scores that produced the
	// composite confidence, keyed by signal name.
	AlgorithmScores map[string]float64 `json:"algorithm_scores,omitempty"`
}
