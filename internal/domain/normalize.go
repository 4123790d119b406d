package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// forecastDateLayout matches the provider's issue-date strings, e.g.
// "Thursday, February 26, 2026". A time suffix may follow after " - ".
const forecastDateLayout = "Monday, January 2, 2006"

var (
	tagRe = regexp.MustCompile(`<[^>]+>`)

	// entityReplacer expands the HTML entities the provider actually emits in
	// its text fields.
	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&quot;", `"`,
		"&#039;", "'",
		"&lt;", "<",
		"&gt;", ">",
	)
)

// CleanText strips markup from a provider text field: entities are expanded,
// tags removed, and the provider's doubled carriage returns collapsed to
// paragraph breaks. Malformed markup is tolerated by best-effort stripping.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = entityReplacer.Replace(s)
	s = tagRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\r", "\n\n")
	return strings.TrimSpace(s)
}

// ParseForecastDate parses a provider issue-date string, ignoring any
// " - <time>" suffix. On any failure it falls back to today's date and
// reports ok=false so callers can count and log the fallback; fabricating a
// plausible date masks data-quality problems, so the substitution must never
// be silent.
func ParseForecastDate(s string) (t time.Time, ok bool) {
	datePart, _, _ := strings.Cut(s, " - ")
	parsed, err := time.Parse(forecastDateLayout, strings.TrimSpace(datePart))
	if err != nil {
		now := clock.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), false
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), true
}

// ParseRoseDominant extracts a dominant value from the provider's danger rose
// string: 24 comma-separated pixel/color codes, one per aspect at one
// elevation. The exact code-to-danger mapping is unresolved in the provider's
// schema, so this returns the maximum non-zero code as a known-approximate
// signal. It never overrides the overall danger rating.
func ParseRoseDominant(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	maxVal := 0
	found := false
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return 0, false
		}
		found = true
		if v > maxVal {
			maxVal = v
		}
	}
	return maxVal, found
}

// BuildForecast maps one provider advisory into the canonical Forecast for a
// zone. The provider publishes a single aggregate danger rating, so it is
// replicated across all three elevation bands. Pass nil rules to use the
// default vocabulary. dateFellBack reports that the issue date was
// unparseable and today's date was substituted.
func BuildForecast(adv Advisory, zone Zone, rules *RuleSet) (f Forecast, dateFellBack bool) {
	if rules == nil {
		rules = DefaultRules()
	}

	date, ok := ParseForecastDate(adv.DateIssued)
	danger := rules.ParseDangerRating(adv.OverallDangerRating)

	f = Forecast{
		ForecastDate:        date,
		DangerAlpine:        danger,
		DangerTreeline:      danger,
		DangerBelowTreeline: danger,
		Discussion:          CleanText(adv.CurrentConditions),
		FetchedAt:           clock.Now().UTC(),
		SourceURL:           zone.ForecastURL,
	}
	f.SetProblems(map[string]string{
		"bottom_line":          CleanText(adv.BottomLine),
		"recent_activity":      CleanText(adv.RecentActivity),
		"special_announcement": CleanText(adv.SpecialAnnouncement),
	})

	return f, !ok
}
