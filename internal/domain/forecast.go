package domain

import (
	"encoding/json"
	"time"
)

// DangerLevel is a normalized rating on the North American Avalanche Danger
// Scale. Zero means the provider did not publish a recognizable rating.
type DangerLevel int

const (
	DangerUnknown      DangerLevel = 0
	DangerLow          DangerLevel = 1
	DangerModerate     DangerLevel = 2
	DangerConsiderable DangerLevel = 3
	DangerHigh         DangerLevel = 4
	DangerExtreme      DangerLevel = 5
)

// Zone is the static descriptor for one forecast zone, supplied by
// configuration. It carries everything needed to fetch the zone's advisory
// and to create its Region row.
type Zone struct {
	Slug        string   `yaml:"slug" json:"slug"`
	Name        string   `yaml:"name" json:"name"`
	Center      string   `yaml:"center" json:"center"`
	State       string   `yaml:"state" json:"state"`
	Lat         *float64 `yaml:"lat" json:"lat,omitempty"`
	Lon         *float64 `yaml:"lon" json:"lon,omitempty"`
	ForecastURL string   `yaml:"forecast_url" json:"forecast_url"`
}

// Region is the immutable reference row for one forecast zone. Created once
// per zone via get-or-create on the slug, never deleted.
type Region struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Center      string    `gorm:"size:100;not null" json:"center"`
	State       string    `gorm:"size:50;not null" json:"state"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
	ForecastURL string    `gorm:"size:500" json:"forecast_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Region) TableName() string { return "regions" }

// Forecast is the canonical, provider-agnostic record of one day's avalanche
// forecast for one region. At most one row exists per (region, forecast date);
// re-ingestion replaces the row in place.
type Forecast struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RegionID     uint      `gorm:"not null;uniqueIndex:uq_forecast_region_date" json:"region_id"`
	ForecastDate time.Time `gorm:"type:date;not null;uniqueIndex:uq_forecast_region_date" json:"forecast_date"`

	DangerAlpine        DangerLevel `json:"danger_alpine"`
	DangerTreeline      DangerLevel `json:"danger_treeline"`
	DangerBelowTreeline DangerLevel `json:"danger_below_treeline"`

	// ProblemsJSON holds the named advisory text fields (bottom line, recent
	// activity, special announcement) as a single JSON object.
	ProblemsJSON string `gorm:"type:text" json:"-"`
	Discussion   string `gorm:"type:text" json:"discussion,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
	SourceURL string    `gorm:"size:500" json:"source_url,omitempty"`
}

func (Forecast) TableName() string { return "avalanche_forecasts" }

// Problems decodes the stored problems blob. A malformed blob degrades to an
// empty map rather than surfacing a parse error.
func (f *Forecast) Problems() map[string]string {
	if f.ProblemsJSON == "" {
		return map[string]string{}
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(f.ProblemsJSON), &m); err != nil {
		return map[string]string{}
	}
	return m
}

// SetProblems serializes the named text fields into the problems blob.
func (f *Forecast) SetProblems(m map[string]string) {
	data, err := json.Marshal(m)
	if err != nil {
		f.ProblemsJSON = ""
		return
	}
	f.ProblemsJSON = string(data)
}

// WeatherSnapshot is one day's weather observation for a region, sourced by
// an external collector. All measurements are optional; scoring treats the
// whole snapshot as optional too.
type WeatherSnapshot struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RegionID     uint      `gorm:"not null;uniqueIndex:uq_weather_region_date" json:"region_id"`
	ForecastDate time.Time `gorm:"type:date;not null;uniqueIndex:uq_weather_region_date" json:"forecast_date"`

	NewSnow24hIn *float64 `json:"new_snow_24h_in,omitempty"`
	NewSnow72hIn *float64 `json:"new_snow_72h_in,omitempty"`

	WindSpeedMPH  *float64 `json:"wind_speed_mph,omitempty"`
	WindDirection string   `gorm:"size:10" json:"wind_direction,omitempty"`
	WindGustMPH   *float64 `json:"wind_gust_mph,omitempty"`

	TempHighF *float64 `json:"temp_high_f,omitempty"`
	TempLowF  *float64 `json:"temp_low_f,omitempty"`
	TempTrend string   `gorm:"size:20" json:"temp_trend,omitempty"` // "rising", "falling", "steady"

	FetchedAt time.Time `json:"fetched_at"`
}

func (WeatherSnapshot) TableName() string { return "weather_snapshots" }

// Advisory is the useful subset of one provider advisory payload. The
// provider wraps it as {"advisories":[{"advisory":{...}}]}.
type Advisory struct {
	DateIssued          string `json:"date_issued"`
	OverallDangerRating string `json:"overall_danger_rating"`
	DangerRose          string `json:"overall_danger_rose"`
	BottomLine          string `json:"bottom_line"`
	RecentActivity      string `json:"recent_activity"`
	SpecialAnnouncement string `json:"special_announcement"`
	CurrentConditions   string `json:"current_conditions"`
}

// RiskFactor is one independently scored signal contributing to the risk
// index. Reason is a user-facing audit trail stating the raw measurement and
// the derived points.
type RiskFactor struct {
	Name      string `json:"name"`
	Points    int    `json:"points"`
	MaxPoints int    `json:"max_points"`
	Reason    string `json:"reason"`
}

// RiskIndex is the composite result: factors in fixed reporting order, a
// clamped 0-100 score, and a 0-100 data-completeness confidence.
type RiskIndex struct {
	Score      int          `json:"score"`
	Factors    []RiskFactor `json:"factors"`
	Confidence int          `json:"confidence"`
}
