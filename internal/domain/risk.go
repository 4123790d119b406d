package domain

import (
	"fmt"
	"strings"
)

// Factor point caps. The five maxima sum to exactly 100, so the final clamp
// is a safety net rather than a reachable branch.
const (
	maxDangerPoints    = 40
	maxWindSlabPoints  = 20
	maxNewSnowPoints   = 20
	maxWetSlidePoints  = 10
	maxFreshnessPoints = 10

	maxScore = 100
)

// Scorer computes explainable risk indexes from canonical forecast and
// weather records using an injected rule set. It is stateless apart from the
// rules and performs no I/O.
type Scorer struct {
	rules *RuleSet
}

// NewScorer creates a Scorer. Pass nil rules to use the default vocabulary.
func NewScorer(rules *RuleSet) *Scorer {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Scorer{rules: rules}
}

// Rules exposes the scorer's vocabulary, used by the boundary layer for
// danger labels.
func (s *Scorer) Rules() *RuleSet { return s.rules }

// KeywordScore counts how many distinct keywords appear in text,
// case-insensitive. Repeated occurrences of one keyword count once.
func KeywordScore(text string, keywords []string) int {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits
}

// combinedText joins the forecast's discussion and problems blob for keyword
// scanning.
func combinedText(f *Forecast) string {
	parts := make([]string, 0, 2)
	if f.Discussion != "" {
		parts = append(parts, f.Discussion)
	}
	if f.ProblemsJSON != "" {
		parts = append(parts, f.ProblemsJSON)
	}
	return strings.Join(parts, " ")
}

// DangerFactor scores the alpine danger rating: min(rating x 8, 40). An
// absent rating scores zero and reads as Unknown.
func (s *Scorer) DangerFactor(f *Forecast, _ *WeatherSnapshot) RiskFactor {
	danger := int(f.DangerAlpine)
	pts := min(danger*8, maxDangerPoints)
	return RiskFactor{
		Name:      "Avalanche Danger Rating",
		Points:    pts,
		MaxPoints: maxDangerPoints,
		Reason: fmt.Sprintf("Danger rated %s (%d/5) × 8 = %d pts",
			s.rules.DangerLabel(f.DangerAlpine), danger, pts),
	}
}

// WindSlabFactor scores wind-loading signals in the forecast text:
// min(distinct keyword hits x 5, 20).
func (s *Scorer) WindSlabFactor(f *Forecast, _ *WeatherSnapshot) RiskFactor {
	hits := KeywordScore(combinedText(f), s.rules.WindSlabKeywords)
	pts := min(hits*5, maxWindSlabPoints)
	return RiskFactor{
		Name:      "Wind Slab Signals",
		Points:    pts,
		MaxPoints: maxWindSlabPoints,
		Reason:    fmt.Sprintf("Found %d wind-related keyword(s) in forecast text (%d pts)", hits, pts),
	}
}

// NewSnowFactor scores 24h snowfall in buckets: >=12in 20, >=6in 14, >=3in 8,
// >0in 4. Absent weather data scores zero with an explicit no-data reason.
func (s *Scorer) NewSnowFactor(_ *Forecast, w *WeatherSnapshot) RiskFactor {
	if w == nil || w.NewSnow24hIn == nil {
		return RiskFactor{
			Name:      "New Snow Load",
			Points:    0,
			MaxPoints: maxNewSnowPoints,
			Reason:    "No weather data available",
		}
	}

	snow := *w.NewSnow24hIn
	var pts int
	switch {
	case snow >= 12:
		pts = 20
	case snow >= 6:
		pts = 14
	case snow >= 3:
		pts = 8
	case snow > 0:
		pts = 4
	}
	return RiskFactor{
		Name:      "New Snow Load",
		Points:    pts,
		MaxPoints: maxNewSnowPoints,
		Reason:    fmt.Sprintf("%g\" new snow in 24h → %d pts", snow, pts),
	}
}

// WetSlideFactor scores warming and wet-slide signals in the forecast text:
// min(distinct keyword hits x 2, 10).
func (s *Scorer) WetSlideFactor(f *Forecast, _ *WeatherSnapshot) RiskFactor {
	hits := KeywordScore(combinedText(f), s.rules.WetSlideKeywords)
	pts := min(hits*2, maxWetSlidePoints)
	return RiskFactor{
		Name:      "Wet Slide / Warming Signals",
		Points:    pts,
		MaxPoints: maxWetSlidePoints,
		Reason:    fmt.Sprintf("Found %d warming/wet keyword(s) in forecast text (%d pts)", hits, pts),
	}
}

// FreshnessFactor scores time since fetch: within 6h 10 pts, within 24h 5
// pts, older 0. A zero fetch timestamp scores zero.
func (s *Scorer) FreshnessFactor(f *Forecast, _ *WeatherSnapshot) RiskFactor {
	factor := RiskFactor{
		Name:      "Data Freshness",
		MaxPoints: maxFreshnessPoints,
	}

	if f.FetchedAt.IsZero() {
		factor.Reason = "Fetch time unknown"
		return factor
	}

	hoursOld := clock.Now().UTC().Sub(f.FetchedAt.UTC()).Hours()
	switch {
	case hoursOld <= 6:
		factor.Points = 10
		factor.Reason = fmt.Sprintf("Data fetched %.1fh ago (fresh)", hoursOld)
	case hoursOld <= 24:
		factor.Points = 5
		factor.Reason = fmt.Sprintf("Data fetched %.1fh ago (same day)", hoursOld)
	default:
		factor.Reason = fmt.Sprintf("Data fetched %.1fh ago (stale)", hoursOld)
	}
	return factor
}

// ComputeRiskIndex evaluates all five factors in fixed reporting order, sums
// their points (clamped to 100), and estimates confidence from data
// completeness: 50 base for the forecast itself, +30 with a weather snapshot,
// +20 with discussion text. It always produces a value, degrading gracefully
// on partial input.
func (s *Scorer) ComputeRiskIndex(f *Forecast, w *WeatherSnapshot) RiskIndex {
	factors := []RiskFactor{
		s.DangerFactor(f, w),
		s.WindSlabFactor(f, w),
		s.NewSnowFactor(f, w),
		s.WetSlideFactor(f, w),
		s.FreshnessFactor(f, w),
	}

	total := 0
	for _, factor := range factors {
		total += factor.Points
	}

	confidence := 50
	if w != nil {
		confidence += 30
	}
	if f.Discussion != "" {
		confidence += 20
	}

	return RiskIndex{
		Score:      min(total, maxScore),
		Factors:    factors,
		Confidence: min(confidence, 100),
	}
}
