package domain

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleSet holds the scoring vocabulary: the danger-rating text scale, the
// display labels, and the keyword sets the text factors count. It is loadable
// from a YAML file so the rules stay auditable without a code change; the
// compiled-in defaults match the documented v1 behavior.
type RuleSet struct {
	// DangerScale maps lowercased provider rating text to a danger level.
	// "limited" is a legacy synonym some centers used for Low.
	DangerScale map[string]DangerLevel `yaml:"danger_scale"`

	// DangerLabels maps danger levels to display labels. Unmapped levels
	// render as "Unknown".
	DangerLabels map[DangerLevel]string `yaml:"danger_labels"`

	WindSlabKeywords []string `yaml:"wind_slab_keywords"`
	WetSlideKeywords []string `yaml:"wet_slide_keywords"`
}

// DefaultRules returns the built-in scoring vocabulary.
func DefaultRules() *RuleSet {
	return &RuleSet{
		DangerScale: map[string]DangerLevel{
			"low":          DangerLow,
			"limited":      DangerLow,
			"moderate":     DangerModerate,
			"considerable": DangerConsiderable,
			"high":         DangerHigh,
			"extreme":      DangerExtreme,
		},
		DangerLabels: map[DangerLevel]string{
			DangerLow:          "Low",
			DangerModerate:     "Moderate",
			DangerConsiderable: "Considerable",
			DangerHigh:         "High",
			DangerExtreme:      "Extreme",
		},
		WindSlabKeywords: []string{
			"wind slab", "wind loading", "wind-loaded", "cross-loaded",
			"leeward", "drifting snow", "wind crust", "wind affected",
		},
		WetSlideKeywords: []string{
			"wet", "warming", "rain", "isothermal", "melt", "solar",
			"wet loose", "wet slab", "point release",
		},
	}
}

// LoadRules reads a rule set from a YAML file. Fields omitted from the file
// keep their default values, so a partial override file is valid.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	rules := DefaultRules()
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	rules.normalize()
	return rules, nil
}

// normalize lowercases the lookup vocabulary so matching stays
// case-insensitive regardless of how the file was written.
func (r *RuleSet) normalize() {
	scale := make(map[string]DangerLevel, len(r.DangerScale))
	for k, v := range r.DangerScale {
		scale[strings.ToLower(strings.TrimSpace(k))] = v
	}
	r.DangerScale = scale

	for i, kw := range r.WindSlabKeywords {
		r.WindSlabKeywords[i] = strings.ToLower(kw)
	}
	for i, kw := range r.WetSlideKeywords {
		r.WetSlideKeywords[i] = strings.ToLower(kw)
	}
}

// ParseDangerRating converts provider rating text to a danger level by
// case-insensitive exact lookup. Unrecognized or empty text yields
// DangerUnknown, never an error.
func (r *RuleSet) ParseDangerRating(s string) DangerLevel {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DangerUnknown
	}
	return r.DangerScale[s]
}

// DangerLabel returns the display label for a danger level, "Unknown" when
// the level has no mapping.
func (r *RuleSet) DangerLabel(d DangerLevel) string {
	if label, ok := r.DangerLabels[d]; ok {
		return label
	}
	return "Unknown"
}
