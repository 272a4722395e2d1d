// Package fetcher orchestrates data retrieval for a validated DataSpec.
//
// A Client implementation talks to the actual backend; DataFetcher fans out
// one fetch per aliased entry with bounded concurrency and optional rate
// limiting, and hands back the results keyed by alias.
package fetcher

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/3leaps/gotide/internal/config"
	"github.com/3leaps/gotide/internal/observability"
	"github.com/3leaps/gotide/pkg/dataspec"
	"github.com/3leaps/gotide/pkg/series"
)

// Client retrieves data for single spec entries. Implementations own
// transport concerns: authentication, retries, backoff. Failures should be
// returned as (or wrap) the package's sentinel errors so callers can
// classify them.
type Client interface {
	// FetchDataPoints retrieves the data points selected by one
	// TimeSeriesSpec as a single-column table.
	FetchDataPoints(ctx context.Context, spec dataspec.TimeSeriesSpec) (*series.Table, error)

	// FetchFile retrieves the raw bytes of one file.
	FetchFile(ctx context.Context, spec dataspec.FileSpec) ([]byte, error)
}

// Config controls fetch fan-out.
type Config struct {
	// Concurrency bounds the number of in-flight fetches.
	Concurrency int

	// RateLimit caps fetches per second across all workers. 0 disables
	// rate limiting.
	RateLimit float64

	// Timeout bounds a single fetch call. 0 disables the per-call bound.
	Timeout time.Duration
}

// DefaultConfig returns the default fetch configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency: 8,
		RateLimit:   0,
		Timeout:     30 * time.Second,
	}
}

// DataFetcher issues fetches for every aliased entry of one DataSpec.
//
// The spec is copied on the way in and on the way out, so neither the caller
// nor a Client implementation can mutate the fetcher's view of it. A
// DataFetcher is safe for concurrent use.
type DataFetcher struct {
	client Client
	spec   *dataspec.DataSpec
	config Config
	logger *zap.Logger
	runID  string

	// Rate limiter (nil if unlimited)
	limiter *rate.Limiter
}

// Option configures a DataFetcher.
type Option func(*DataFetcher)

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *DataFetcher) {
		f.logger = logger
	}
}

// New creates a DataFetcher over a validated DataSpec.
func New(client Client, spec *dataspec.DataSpec, cfg Config, opts ...Option) (*DataFetcher, error) {
	// Apply defaults for zero values
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}

	// Copying doubles as validation: an invalid spec never gets a fetcher.
	copied, err := spec.Copy()
	if err != nil {
		return nil, err
	}

	f := &DataFetcher{
		client: client,
		spec:   copied,
		config: cfg,
		logger: zap.NewNop(),
		runID:  uuid.NewString(),
	}
	if cfg.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// NewFromEnvironment creates a DataFetcher configured from GOTIDE_*
// environment variables, with a production logger at the configured level.
func NewFromEnvironment(client Client, spec *dataspec.DataSpec) (*DataFetcher, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return New(client, spec, Config{
		Concurrency: cfg.Fetch.Concurrency,
		RateLimit:   cfg.Fetch.RateLimit,
		Timeout:     cfg.Fetch.Timeout,
	}, WithLogger(logger))
}

// RunID returns the correlation ID attached to this fetcher's log entries.
func (f *DataFetcher) RunID() string {
	return f.runID
}

// Spec returns an independent copy of the fetcher's DataSpec.
func (f *DataFetcher) Spec() (*dataspec.DataSpec, error) {
	return f.spec.Copy()
}

// TimeSeriesAliases returns the declared time series aliases, sorted.
func (f *DataFetcher) TimeSeriesAliases() []string {
	aliases := make([]string, 0, len(f.spec.TimeSeries))
	for alias := range f.spec.TimeSeries {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// FileAliases returns the declared file aliases, sorted.
func (f *DataFetcher) FileAliases() []string {
	aliases := make([]string, 0, len(f.spec.Files))
	for alias := range f.spec.Files {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// TimeSeriesSpec returns the spec entry for one alias.
func (f *DataFetcher) TimeSeriesSpec(alias string) (dataspec.TimeSeriesSpec, error) {
	spec, ok := f.spec.TimeSeries[alias]
	if !ok {
		return dataspec.TimeSeriesSpec{}, &TransportError{Op: "TimeSeriesSpec", Alias: alias, Err: ErrUnknownAlias}
	}
	return spec, nil
}

// FetchTimeSeries fetches data points for the given aliases, or for every
// declared time series alias when none are given. Fetches run concurrently,
// bounded by the configured concurrency; the first failure cancels the rest
// and is returned.
func (f *DataFetcher) FetchTimeSeries(ctx context.Context, aliases ...string) (map[string]*series.Table, error) {
	if len(aliases) == 0 {
		aliases = f.TimeSeriesAliases()
	}
	specs := make(map[string]dataspec.TimeSeriesSpec, len(aliases))
	for _, alias := range aliases {
		spec, ok := f.spec.TimeSeries[alias]
		if !ok {
			return nil, &TransportError{Op: "FetchTimeSeries", Alias: alias, Err: ErrUnknownAlias}
		}
		specs[alias] = spec
	}

	f.logger.Debug("Fetching time series",
		zap.String("run_id", f.runID),
		zap.Strings("aliases", aliases))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, f.config.Concurrency)

	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	var mu sync.Mutex
	results := make(map[string]*series.Table, len(specs))

	for alias, spec := range specs {
		// Acquire semaphore or bail on cancellation. Only release a
		// semaphore slot we actually acquired.
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(alias string, spec dataspec.TimeSeriesSpec) {
			defer wg.Done()
			defer func() { <-sem }()

			table, err := f.fetchOne(ctx, alias, spec)
			if err != nil {
				errOnce.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			mu.Lock()
			results[alias] = table
			mu.Unlock()
		}(alias, spec)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.logger.Info("Fetched time series",
		zap.String("run_id", f.runID),
		zap.Int("count", len(results)))
	return results, nil
}

func (f *DataFetcher) fetchOne(ctx context.Context, alias string, spec dataspec.TimeSeriesSpec) (*series.Table, error) {
	if err := f.waitForRateLimit(ctx); err != nil {
		return nil, err
	}
	if f.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()
	}

	table, err := f.client.FetchDataPoints(ctx, spec)
	if err != nil {
		f.logger.Warn("Fetch failed",
			zap.String("run_id", f.runID),
			zap.String("alias", alias),
			zap.Error(err))
		return nil, &TransportError{Op: "FetchDataPoints", Alias: alias, Err: err}
	}
	return table, nil
}

// FetchFile fetches the bytes of one declared file alias.
func (f *DataFetcher) FetchFile(ctx context.Context, alias string) ([]byte, error) {
	spec, ok := f.spec.Files[alias]
	if !ok {
		return nil, &TransportError{Op: "FetchFile", Alias: alias, Err: ErrUnknownAlias}
	}

	if err := f.waitForRateLimit(ctx); err != nil {
		return nil, err
	}
	if f.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()
	}

	data, err := f.client.FetchFile(ctx, spec)
	if err != nil {
		f.logger.Warn("File fetch failed",
			zap.String("run_id", f.runID),
			zap.String("alias", alias),
			zap.Error(err))
		return nil, &TransportError{Op: "FetchFile", Alias: alias, Err: err}
	}
	return data, nil
}

// waitForRateLimit blocks until the limiter admits one fetch.
func (f *DataFetcher) waitForRateLimit(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	return f.limiter.Wait(ctx)
}
