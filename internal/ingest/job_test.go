package ingest_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slopesignal/slope-signal/internal/domain"
	"github.com/slopesignal/slope-signal/internal/ingest"
	"github.com/slopesignal/slope-signal/internal/observability"
)

// --- mocks ---

type mockFetcher struct {
	advisories map[string]*domain.Advisory
	errs       map[string]error
	failTimes  map[string]int // transient failure count per URL before success
	calls      map[string]int
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		advisories: map[string]*domain.Advisory{},
		errs:       map[string]error{},
		failTimes:  map[string]int{},
		calls:      map[string]int{},
	}
}

func (m *mockFetcher) FetchAdvisory(_ context.Context, url string) (*domain.Advisory, error) {
	m.calls[url]++
	if n := m.failTimes[url]; n > 0 && m.calls[url] <= n {
		return nil, errors.New("transient network error")
	}
	if err := m.errs[url]; err != nil {
		return nil, err
	}
	return m.advisories[url], nil
}

type mockStore struct {
	regions      map[string]domain.Region
	forecasts    map[string]domain.Forecast // keyed by slug|date
	nextID       uint
	upsertErrs   map[string]error // keyed by slug
	regionBySlug map[uint]string
}

func newMockStore() *mockStore {
	return &mockStore{
		regions:      map[string]domain.Region{},
		forecasts:    map[string]domain.Forecast{},
		upsertErrs:   map[string]error{},
		regionBySlug: map[uint]string{},
	}
}

func (m *mockStore) GetOrCreateRegion(_ context.Context, zone domain.Zone) (domain.Region, error) {
	if r, ok := m.regions[zone.Slug]; ok {
		return r, nil
	}
	m.nextID++
	r := domain.Region{ID: m.nextID, Slug: zone.Slug, Name: zone.Name}
	m.regions[zone.Slug] = r
	m.regionBySlug[r.ID] = zone.Slug
	return r, nil
}

func (m *mockStore) UpsertForecast(_ context.Context, f *domain.Forecast) (bool, error) {
	slug := m.regionBySlug[f.RegionID]
	if err := m.upsertErrs[slug]; err != nil {
		return false, err
	}
	key := slug + "|" + f.ForecastDate.Format(time.DateOnly)
	_, existed := m.forecasts[key]
	m.forecasts[key] = *f
	return !existed, nil
}

// --- helpers ---

var testNow = time.Date(2026, 2, 26, 14, 30, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testZone(slug string) domain.Zone {
	return domain.Zone{
		Slug:        slug,
		Name:        "Test " + slug,
		Center:      "UAC",
		State:       "UT",
		ForecastURL: "https://example.org/forecast/" + slug + "/json",
	}
}

func testAdvisory() *domain.Advisory {
	return &domain.Advisory{
		DateIssued:          "Thursday, February 26, 2026 - 7:01am",
		OverallDangerRating: "Considerable",
		BottomLine:          "Dangerous conditions persist.",
		CurrentConditions:   "Wind loading on leeward slopes.",
	}
}

func newJob(f *mockFetcher, s *mockStore, retries int, zones ...domain.Zone) *ingest.Job {
	return ingest.New(f, s, zones, nil, testLogger(), observability.NewMetricsForTesting(), retries)
}

// shrinkBackoff drops the retry delay to a millisecond so retry-path tests
// finish without real sleeps.
func shrinkBackoff(t *testing.T) {
	t.Helper()
	ingest.SetRetryBackoffBase(time.Millisecond)
	t.Cleanup(func() { ingest.SetRetryBackoffBase(0) })
}

// --- tests ---

func TestJob_Run_HappyPath(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(testNow))
	t.Cleanup(func() { domain.SetClock(nil) })

	zone := testZone("uac-salt-lake")
	fetcher := newMockFetcher()
	fetcher.advisories[zone.ForecastURL] = testAdvisory()
	st := newMockStore()

	job := newJob(fetcher, st, 0, zone)
	require.NoError(t, job.Run(context.Background()))

	stored, ok := st.forecasts["uac-salt-lake|2026-02-26"]
	require.True(t, ok)
	assert.Equal(t, domain.DangerConsiderable, stored.DangerAlpine)
	assert.Equal(t, domain.DangerConsiderable, stored.DangerTreeline)
	assert.Equal(t, domain.DangerConsiderable, stored.DangerBelowTreeline)
	assert.Equal(t, zone.ForecastURL, stored.SourceURL)

	wantProblems := map[string]string{
		"bottom_line":          "Dangerous conditions persist.",
		"recent_activity":      "",
		"special_announcement": "",
	}
	if diff := cmp.Diff(wantProblems, stored.Problems()); diff != "" {
		t.Errorf("problems mismatch (-want +got):\n%s", diff)
	}

	assert.NoError(t, job.CheckReadiness(context.Background()))
}

func TestJob_Run_IdempotentReingest(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(testNow))
	t.Cleanup(func() { domain.SetClock(nil) })

	zone := testZone("uac-ogden")
	fetcher := newMockFetcher()
	fetcher.advisories[zone.ForecastURL] = testAdvisory()
	st := newMockStore()
	job := newJob(fetcher, st, 0, zone)

	require.NoError(t, job.Run(context.Background()))

	// Second run an hour later: still exactly one record, carrying the
	// second run's fetch timestamp.
	domain.SetClock(clockwork.NewFakeClockAt(testNow.Add(time.Hour)))
	require.NoError(t, job.Run(context.Background()))

	assert.Len(t, st.forecasts, 1)
	stored := st.forecasts["uac-ogden|2026-02-26"]
	assert.Equal(t, testNow.Add(time.Hour), stored.FetchedAt)
}

func TestJob_Run_ZoneFailureIsIsolated(t *testing.T) {
	zoneA := testZone("uac-salt-lake")
	zoneB := testZone("uac-ogden")
	zoneC := testZone("uac-provo")

	fetcher := newMockFetcher()
	fetcher.advisories[zoneA.ForecastURL] = testAdvisory()
	fetcher.errs[zoneB.ForecastURL] = errors.New("connection refused")
	fetcher.advisories[zoneC.ForecastURL] = testAdvisory()
	st := newMockStore()

	job := newJob(fetcher, st, 0, zoneA, zoneB, zoneC)
	require.NoError(t, job.Run(context.Background()))

	assert.Len(t, st.forecasts, 2)
	assert.NotContains(t, st.regions, "uac-ogden")
}

func TestJob_Run_StoreFailureIsIsolated(t *testing.T) {
	zoneA := testZone("uac-salt-lake")
	zoneB := testZone("uac-ogden")

	fetcher := newMockFetcher()
	fetcher.advisories[zoneA.ForecastURL] = testAdvisory()
	fetcher.advisories[zoneB.ForecastURL] = testAdvisory()
	st := newMockStore()
	st.upsertErrs["uac-salt-lake"] = errors.New("deadlock detected")

	job := newJob(fetcher, st, 0, zoneA, zoneB)
	require.NoError(t, job.Run(context.Background()))

	assert.Len(t, st.forecasts, 1)
}

func TestJob_Run_NoAdvisoryIsNotAnError(t *testing.T) {
	zone := testZone("uac-provo")
	fetcher := newMockFetcher()
	fetcher.advisories[zone.ForecastURL] = nil
	st := newMockStore()

	job := newJob(fetcher, st, 0, zone)
	require.NoError(t, job.Run(context.Background()))

	assert.Empty(t, st.forecasts)
	assert.Empty(t, st.regions)
}

func TestJob_Run_RetriesTransientFetchFailure(t *testing.T) {
	shrinkBackoff(t)

	zone := testZone("uac-salt-lake")
	fetcher := newMockFetcher()
	fetcher.advisories[zone.ForecastURL] = testAdvisory()
	fetcher.failTimes[zone.ForecastURL] = 2
	st := newMockStore()

	job := newJob(fetcher, st, 3, zone)
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 3, fetcher.calls[zone.ForecastURL])
	assert.Len(t, st.forecasts, 1)
}

func TestJob_Run_ExhaustedRetriesSkipZoneOnly(t *testing.T) {
	shrinkBackoff(t)

	zoneA := testZone("uac-salt-lake")
	zoneB := testZone("uac-ogden")

	fetcher := newMockFetcher()
	fetcher.errs[zoneA.ForecastURL] = errors.New("timeout")
	fetcher.advisories[zoneB.ForecastURL] = testAdvisory()
	st := newMockStore()

	job := newJob(fetcher, st, 1, zoneA, zoneB)
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 2, fetcher.calls[zoneA.ForecastURL])
	assert.Len(t, st.forecasts, 1)
}

func TestJob_CheckReadiness(t *testing.T) {
	zone := testZone("uac-salt-lake")
	fetcher := newMockFetcher()
	fetcher.errs[zone.ForecastURL] = errors.New("down")
	st := newMockStore()
	job := newJob(fetcher, st, 0, zone)

	assert.Error(t, job.CheckReadiness(context.Background()))

	require.NoError(t, job.Run(context.Background()))
	assert.Error(t, job.CheckReadiness(context.Background()), "failed run stays unready")
}

func TestJob_Run_CancelledContext(t *testing.T) {
	zone := testZone("uac-salt-lake")
	fetcher := newMockFetcher()
	fetcher.advisories[zone.ForecastURL] = testAdvisory()
	st := newMockStore()
	job := newJob(fetcher, st, 0, zone)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := job.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, st.forecasts)
}
