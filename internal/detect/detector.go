// Package detect finds plugin references in document content by fuzzy
// matching windows of text against a family's truth index.
package detect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/veridoc/veridoc/internal/truth"
	"github.com/veridoc/veridoc/pkg/models"
)

// Similarity-signal names recorded in Detection.AlgorithmScores.
const (
	signalEditRatio    = "edit_ratio"
	signalTokenOverlap = "token_overlap"
)

// Config carries the detector's tunables. Weights and the acceptance
// threshold always come from configuration, never constants.
type Config struct {
	// WindowSize is the maximum number of tokens per candidate window.
	WindowSize int
	// EditWeight scales the edit-distance similarity signal.
	EditWeight float64
	// TokenWeight scales the token-overlap similarity signal.
	TokenWeight float64
	// MinConfidence drops detections scoring below it.
	MinConfidence float64
}

// Validate checks the config for usable values.
func (c Config) Validate() error {
	if c.WindowSize < 1 {
		return fmt.Errorf("window size must be at least 1, got %d", c.WindowSize)
	}
	if c.EditWeight < 0 || c.TokenWeight < 0 {
		return fmt.Errorf("signal weights must be non-negative, got edit=%v token=%v", c.EditWeight, c.TokenWeight)
	}
	if c.EditWeight+c.TokenWeight == 0 {
		return fmt.Errorf("at least one signal weight must be positive")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be in [0,1], got %v", c.MinConfidence)
	}
	return nil
}

// Detector scores content windows against a truth index. Stateless apart
// from config, so one Detector serves concurrent workflows.
type Detector struct {
	cfg Config
}

// New creates a Detector with the given config.
func New(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("detector config: %w", err)
	}
	return &Detector{cfg: cfg}, nil
}

// Detect returns confidence-scored plugin detections for the content,
// sorted by (span start, descending confidence, plugin id). Overlapping
// detections of the same plugin are collapsed to the highest-confidence
// one. The result depends only on content, index and config, so repeated
// calls yield identical lists.
func (d *Detector) Detect(content string, ix *truth.Index) []models.Detection {
	tokens := tokenize(content)
	if len(tokens) == 0 {
		return nil
	}

	var raw []models.Detection
	for width := 1; width <= d.cfg.WindowSize; width++ {
		for i := 0; i+width <= len(tokens); i++ {
			window := tokens[i : i+width]
			raw = append(raw, d.scoreWindow(window, ix)...)
		}
	}

	deduped := dedupe(raw)
	sortDetections(deduped)
	return deduped
}

// scoreWindow scores one token window against every candidate the index
// returns for it.
func (d *Detector) scoreWindow(window []token, ix *truth.Index) []models.Detection {
	parts := make([]string, len(window))
	for i, tok := range window {
		parts[i] = tok.text
	}
	text := strings.Join(parts, " ")

	candidates := ix.Lookup(text)
	if len(candidates) == 0 {
		return nil
	}

	span := models.Span{Start: window[0].start, End: window[len(window)-1].end}

	var out []models.Detection
	for _, id := range candidates {
		def := ix.Definition(id)
		if def == nil {
			continue
		}
		confidence, scores := d.scoreCandidate(text, def)
		if confidence < d.cfg.MinConfidence {
			continue
		}
		out = append(out, models.Detection{
			PluginID:        id,
			Confidence:      confidence,
			Span:            span,
			AlgorithmScores: scores,
		})
	}
	return out
}

// scoreCandidate returns the best composite score over the definition's
// patterns, plus the winning pattern's raw signal scores.
func (d *Detector) scoreCandidate(text string, def *models.PluginDefinition) (float64, map[string]float64) {
	best := -1.0
	var bestScores map[string]float64

	for _, pattern := range def.Patterns {
		norm := truth.Normalize(pattern)
		edit := editRatio(text, norm)
		overlap := tokenOverlap(text, norm)
		composite := (d.cfg.EditWeight*edit + d.cfg.TokenWeight*overlap) /
			(d.cfg.EditWeight + d.cfg.TokenWeight)
		if composite > best {
			best = composite
			bestScores = map[string]float64{
				signalEditRatio:    edit,
				signalTokenOverlap: overlap,
			}
		}
	}

	return best, bestScores
}

// tokenOverlap is the Jaccard ratio of the two strings' word sets.
func tokenOverlap(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}

	shared := 0
	for w := range setA {
		if setB[w] {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

// dedupe collapses overlapping detections of the same plugin to the single
// highest-confidence one. Confidence ties prefer the smaller start offset.
func dedupe(detections []models.Detection) []models.Detection {
	if len(detections) < 2 {
		return detections
	}

	ordered := make([]models.Detection, len(detections))
	copy(ordered, detections)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.PluginID != b.PluginID {
			return a.PluginID < b.PluginID
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Span.Start < b.Span.Start
	})

	kept := make([]models.Detection, 0, len(ordered))
	for _, det := range ordered {
		overlaps := false
		for _, k := range kept {
			if k.PluginID == det.PluginID && k.Span.Overlaps(det.Span) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, det)
		}
	}
	return kept
}

// sortDetections applies the output ordering contract.
func sortDetections(detections []models.Detection) {
	sort.SliceStable(detections, func(i, j int) bool {
		a, b := detections[i], detections[j]
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.PluginID < b.PluginID
	})
}
