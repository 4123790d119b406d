// Package ingest runs the forecast ingestion job: for each configured zone,
// fetch the provider advisory, normalize it into a canonical forecast, and
// upsert it. Zones are processed sequentially and independently; one zone's
// failure never aborts the rest of the run.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/slopesignal/slope-signal/internal/domain"
	"github.com/slopesignal/slope-signal/internal/observability"
)

// AdvisoryFetcher retrieves the current advisory for a zone URL. A nil
// advisory with a nil error means the zone has no current advisory.
type AdvisoryFetcher interface {
	FetchAdvisory(ctx context.Context, url string) (*domain.Advisory, error)
}

// ForecastStore is the write surface the job needs from the repository.
type ForecastStore interface {
	GetOrCreateRegion(ctx context.Context, zone domain.Zone) (domain.Region, error)
	UpsertForecast(ctx context.Context, f *domain.Forecast) (created bool, err error)
}

// Job ingests all configured zones once per Run call.
type Job struct {
	fetcher AdvisoryFetcher
	store   ForecastStore
	zones   []domain.Zone
	rules   *domain.RuleSet
	logger  *slog.Logger
	metrics *observability.Metrics
	retries int
	ready   atomic.Bool
}

// New creates a Job. retries is the number of additional fetch attempts after
// the first; pass 0 to disable retrying.
func New(fetcher AdvisoryFetcher, store ForecastStore, zones []domain.Zone, rules *domain.RuleSet,
	logger *slog.Logger, metrics *observability.Metrics, retries int) *Job {
	if rules == nil {
		rules = domain.DefaultRules()
	}
	return &Job{
		fetcher: fetcher,
		store:   store,
		zones:   zones,
		rules:   rules,
		logger:  logger,
		metrics: metrics,
		retries: retries,
	}
}

// CheckReadiness returns nil once at least one zone has been ingested
// successfully.
func (j *Job) CheckReadiness(_ context.Context) error {
	if !j.ready.Load() {
		return errors.New("no zone has been ingested yet")
	}
	return nil
}

// Run ingests every configured zone sequentially. Per-zone failures are
// logged and counted; partial-batch success is the normal outcome. Run only
// returns an error when the context is cancelled mid-batch.
func (j *Job) Run(ctx context.Context) error {
	j.logger.Info("ingest run starting", "zones", len(j.zones))
	j.metrics.IngestRunning.Set(1)
	defer j.metrics.IngestRunning.Set(0)

	for _, zone := range j.zones {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := j.ingestZone(ctx, zone); err != nil {
			j.metrics.ZoneIngests.WithLabelValues("error").Inc()
			j.logger.Error("zone ingest failed", "zone", zone.Slug, "error", err)
			continue
		}
	}

	j.logger.Info("ingest run complete")
	return nil
}

// ingestZone fetches, normalizes, and upserts one zone's advisory.
func (j *Job) ingestZone(ctx context.Context, zone domain.Zone) error {
	start := time.Now()
	adv, err := j.fetchWithRetry(ctx, zone.ForecastURL)
	j.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("fetch %s: %w", zone.ForecastURL, err)
	}

	if adv == nil {
		j.metrics.ZoneIngests.WithLabelValues("no_advisory").Inc()
		j.logger.Info("no current advisory", "zone", zone.Slug)
		return nil
	}

	forecast, dateFellBack := domain.BuildForecast(*adv, zone, j.rules)
	if dateFellBack {
		j.metrics.DateParseFallbacks.Inc()
		j.logger.Warn("unparseable issue date, using today",
			"zone", zone.Slug, "date_issued", adv.DateIssued)
	}

	region, err := j.store.GetOrCreateRegion(ctx, zone)
	if err != nil {
		return err
	}
	forecast.RegionID = region.ID

	created, err := j.store.UpsertForecast(ctx, &forecast)
	if err != nil {
		return err
	}

	result := "updated"
	if created {
		result = "inserted"
	}
	j.metrics.ForecastsWritten.WithLabelValues(result).Inc()
	j.metrics.ZoneIngests.WithLabelValues("ok").Inc()
	j.ready.Store(true)

	j.logger.Info("forecast stored",
		"zone", zone.Slug,
		"date", forecast.ForecastDate.Format(time.DateOnly),
		"danger", int(forecast.DangerAlpine),
		"result", result,
	)
	return nil
}

// Retry delays start at retryBackoffBase, double per attempt, and cap at
// retryBackoffMax. Keeps a flaky provider from stalling the whole run while
// still riding out brief outages.
const (
	defaultRetryBackoffBase = 500 * time.Millisecond
	retryBackoffMax         = 10 * time.Second
)

// retryBackoffBase is package-level so tests can shrink it and exercise the
// retry path without real sleeps.
var retryBackoffBase = defaultRetryBackoffBase

// SetRetryBackoffBase overrides the initial retry delay. Pass 0 or a
// negative duration to reset to the default.
func SetRetryBackoffBase(d time.Duration) {
	if d <= 0 {
		retryBackoffBase = defaultRetryBackoffBase
		return
	}
	retryBackoffBase = d
}

// fetchWithRetry fetches an advisory with bounded exponential backoff.
// Exhausted retries fail only this zone.
func (j *Job) fetchWithRetry(ctx context.Context, url string) (*domain.Advisory, error) {
	backoff := retryBackoffBase

	var lastErr error
	for attempt := 0; attempt <= j.retries; attempt++ {
		if attempt > 0 {
			if !sleepWithContext(ctx, backoff) {
				return nil, ctx.Err()
			}
			backoff = nextBackoff(backoff, retryBackoffMax)
		}

		adv, err := j.fetcher.FetchAdvisory(ctx, url)
		if err == nil {
			return adv, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		j.logger.Warn("fetch attempt failed", "url", url, "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("after %d attempts: %w", j.retries+1, lastErr)
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
