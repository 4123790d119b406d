// Package domain models avalanche forecast and mountain weather data and
// scores them into an explainable risk index.
//
// # Data Source
//
// Forecasts originate from the Utah Avalanche Center (UAC) per-zone JSON
// endpoints, e.g. https://utahavalanchecenter.org/forecast/salt-lake/json.
// Each payload wraps a list of advisories; the first element carries the
// current advisory. An empty list is a valid "no current advisory" state,
// common in the off-season.
//
// # Provider Data Conventions
//
// Issue date format:
//
//	"Thursday, February 26, 2026 - 7:01am"
//	The portion before " - " is the forecast date; the time suffix is
//	discarded. An unparseable date falls back to today's date. That fallback
//	is documented v1 behavior and is surfaced through a metric and a warning
//	log rather than silently, because it can mask provider format changes.
//
// Danger rating text:
//
//	"low", "limited", "moderate", "considerable", "high", "extreme",
//	matched case-insensitively. "limited" is a legacy synonym for Low.
//	The provider publishes one aggregate rating per advisory, so v1
//	replicates it across the alpine, treeline, and below-treeline bands.
//	Unrecognized text yields an unknown (zero) rating, shown as "Unknown".
//
// Danger rose:
//
//	24 comma-separated numeric codes, one per aspect at one elevation. The
//	values appear to be pixel/color codes whose mapping to danger levels is
//	unresolved in the provider's schema. [ParseRoseDominant] extracts the
//	maximum non-zero code as a known-approximate signal; it is never used to
//	override the overall rating, pending clarification from the provider.
//
// Text fields:
//
//	bottom_line, recent_activity, special_announcement, current_conditions
//	arrive as HTML fragments. [CleanText] expands common entities, strips
//	tags, and collapses the provider's doubled carriage returns into
//	paragraph breaks.
//
// # Risk Index
//
// Five factors are scored in fixed reporting order against a [RuleSet]:
//
//	Avalanche Danger Rating      max 40  min(alpine rating × 8, 40)
//	Wind Slab Signals            max 20  min(distinct keyword hits × 5, 20)
//	New Snow Load                max 20  bucketed 24h snowfall
//	Wet Slide / Warming Signals  max 10  min(distinct keyword hits × 2, 10)
//	Data Freshness               max 10  hours since fetch
//
// The maxima sum to exactly 100; the total is clamped there as a safety net.
// Confidence is a separate 0-100 completeness estimate: 50 for having a
// forecast at all, +30 with a weather snapshot, +20 with discussion text.
// Every factor's reason string states the raw measurement and the derived
// points; it is a user-facing audit trail, not incidental logging.
package domain
