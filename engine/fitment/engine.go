// Package fitment orchestrates the parsing and validation pipeline: it
// composes the mapping resolver, the parser, and the validator with a
// reference-data provider, adding read-through caches, batch processing, and
// race-free hot reload of the mapping table.
package fitment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/fitmentiq/fitment-engine/engine/domain"
	"github.com/fitmentiq/fitment-engine/engine/mapping"
	"github.com/fitmentiq/fitment-engine/engine/parser"
	"github.com/fitmentiq/fitment-engine/engine/validate"
	"github.com/fitmentiq/fitment-engine/pkg/cache"
	"github.com/fitmentiq/fitment-engine/pkg/fn"
	"github.com/fitmentiq/fitment-engine/pkg/metrics"
)

const tracerName = "engine/fitment"

// Engine is the fitment mapping orchestrator. Construct one per mapping
// table; instances are independent and safe for concurrent use. The mapping
// table is swapped atomically on refresh and the two reference caches are
// cleared with it, so a reload never requires a restart.
type Engine struct {
	provider Provider
	resolver *mapping.Resolver
	parser   *parser.Parser
	log      *slog.Logger
	workers  int

	terms     *cache.Cache[int64, domain.PartTerminology]
	positions *cache.Cache[int64, []domain.PCDBPosition]

	processed  *metrics.Counter
	failed     *metrics.Counter
	batchItems *metrics.Counter
	byStatus   map[domain.Status]*metrics.Counter
	latency    *metrics.Histogram
}

// Option configures an Engine.
type Option func(*config)

type config struct {
	logger      *slog.Logger
	workers     int
	cacheSize   int
	maxFitments int
	presentYear int
	registry    *metrics.Registry
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithWorkers bounds batch concurrency. Defaults to 4.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithCacheSize bounds the terminology and position caches. Defaults to 256
// entries each.
func WithCacheSize(n int) Option {
	return func(c *config) { c.cacheSize = n }
}

// WithMaxFitments caps a single application's expansion. Zero (the default)
// leaves it unbounded.
func WithMaxFitments(n int) Option {
	return func(c *config) { c.maxFitments = n }
}

// WithPresentYear pins the year open-ended ranges resolve to.
func WithPresentYear(year int) Option {
	return func(c *config) { c.presentYear = year }
}

// WithMetrics registers engine metrics on the given registry.
func WithMetrics(r *metrics.Registry) Option {
	return func(c *config) { c.registry = r }
}

// New creates an Engine over the given provider. The mapping table is not
// loaded yet; call RefreshMappings or LoadMappings before processing, or let
// the first ProcessApplication trigger a lazy refresh.
func New(provider Provider, opts ...Option) *Engine {
	cfg := config{
		logger:    slog.Default(),
		workers:   4,
		cacheSize: 256,
	}
	for _, o := range opts {
		o(&cfg)
	}

	resolver := mapping.NewResolver()
	parserOpts := []parser.Option{parser.WithMaxFitments(cfg.maxFitments)}
	if cfg.presentYear > 0 {
		parserOpts = append(parserOpts, parser.WithPresentYear(cfg.presentYear))
	}

	e := &Engine{
		provider:  provider,
		resolver:  resolver,
		parser:    parser.New(resolver, parserOpts...),
		log:       cfg.logger,
		workers:   cfg.workers,
		terms:     cache.New[int64, domain.PartTerminology](cfg.cacheSize),
		positions: cache.New[int64, []domain.PCDBPosition](cfg.cacheSize),
	}
	if cfg.registry != nil {
		e.processed = cfg.registry.Counter("fitment_applications_total", "Applications processed")
		e.failed = cfg.registry.Counter("fitment_parse_failures_total", "Applications that failed to parse")
		e.batchItems = cfg.registry.Counter("fitment_batch_items_total", "Inputs received through batch processing")
		e.byStatus = map[domain.Status]*metrics.Counter{
			domain.StatusValid:   cfg.registry.Counter(metrics.WithLabels("fitment_results_total", "status", "valid"), "Validation results by status"),
			domain.StatusWarning: cfg.registry.Counter(metrics.WithLabels("fitment_results_total", "status", "warning"), ""),
			domain.StatusError:   cfg.registry.Counter(metrics.WithLabels("fitment_results_total", "status", "error"), ""),
		}
		e.latency = cfg.registry.Histogram("fitment_process_seconds", "Application processing latency", nil)
	}
	return e
}

// LoadMappings replaces the mapping table from an already-materialized rule
// set (a static configuration source). Caches are invalidated alongside.
func (e *Engine) LoadMappings(mappings []domain.ModelMapping) error {
	if err := e.resolver.Load(mappings); err != nil {
		return err
	}
	e.ClearCaches()
	e.log.Info("mapping table loaded", "mappings", len(mappings))
	return nil
}

// RefreshMappings fetches the mapping rules from the provider and hot-swaps
// the table. The swap is atomic: readers mid-resolve keep the old snapshot.
// Both reference caches are invalidated, since the underlying reference data
// may change out of band together with the mappings.
func (e *Engine) RefreshMappings(ctx context.Context) error {
	mappings, err := e.provider.ModelMappings(ctx)
	if err != nil {
		return domain.NewMappingError("refresh mappings", err)
	}
	return e.LoadMappings(mappings)
}

// ClearCaches drops the terminology and position caches.
func (e *Engine) ClearCaches() {
	e.terms.Clear()
	e.positions.Clear()
}

// CacheStats returns hit/miss counters for the two reference caches.
func (e *Engine) CacheStats() (terms, positions cache.Stats) {
	return e.terms.Stats(), e.positions.Stats()
}

// Mappings returns the active mapping table in insertion order.
func (e *Engine) Mappings() []domain.ModelMapping {
	return e.resolver.Mappings()
}

// PartTerminology is a read-through, memoized terminology lookup.
func (e *Engine) PartTerminology(ctx context.Context, id int64) (domain.PartTerminology, error) {
	if t, ok := e.terms.Get(id); ok {
		return t, nil
	}
	t, err := e.provider.PartTerminology(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.PartTerminology{}, err
		}
		return domain.PartTerminology{}, domain.NewMappingError("get part terminology", err)
	}
	e.terms.Set(id, t)
	return t, nil
}

// PCDBPositions is a read-through, memoized position lookup.
func (e *Engine) PCDBPositions(ctx context.Context, id int64) ([]domain.PCDBPosition, error) {
	if p, ok := e.positions.Get(id); ok {
		return p, nil
	}
	p, err := e.provider.PCDBPositions(ctx, id)
	if err != nil {
		return nil, domain.NewMappingError("get pcdb positions", err)
	}
	e.positions.Set(id, p)
	return p, nil
}

// VCDBVehicles is an unmemoized pass-through vehicle query.
func (e *Engine) VCDBVehicles(ctx context.Context, filter domain.VehicleFilter) ([]domain.VCDBVehicle, error) {
	vehicles, err := e.provider.VCDBVehicles(ctx, filter)
	if err != nil {
		return nil, domain.NewMappingError("get vcdb vehicles", err)
	}
	return vehicles, nil
}

// ProcessApplication parses one application string, expands it, and
// validates every candidate fitment against the vehicle subset matching its
// (year, make, model) and the allowed positions for the part type. One
// result is returned per expanded candidate; duplicates from ambiguous
// vehicle matches are deliberate, so downstream review can disambiguate.
func (e *Engine) ProcessApplication(ctx context.Context, text string, terminologyID int64) ([]domain.ValidationResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "fitment.process")
	defer span.End()
	start := time.Now()

	if err := e.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	if _, err := e.PartTerminology(ctx, terminologyID); err != nil {
		return nil, err
	}
	pcdb, err := e.PCDBPositions(ctx, terminologyID)
	if err != nil {
		return nil, err
	}
	allowed := validate.AllowedPositions(pcdb)

	app, err := e.parser.ParseApplication(text)
	if err != nil {
		if e.failed != nil {
			e.failed.Inc()
		}
		return nil, err
	}
	fitments, err := e.parser.Expand(app)
	if err != nil {
		return nil, err
	}

	// One vehicle fetch per distinct (year, make, model) in the expansion.
	subsets := make(map[string][]domain.VCDBVehicle)
	for _, f := range fitments {
		key := vehicleKey(f)
		if _, ok := subsets[key]; ok {
			continue
		}
		vehicles, err := e.VCDBVehicles(ctx, domain.VehicleFilter{Year: f.Year, Make: f.Make, Model: f.Model})
		if err != nil {
			return nil, err
		}
		subsets[key] = vehicles
	}

	results := make([]domain.ValidationResult, len(fitments))
	for i, f := range fitments {
		results[i] = validate.Fitment(f, subsets[vehicleKey(f)], allowed)
		if c, ok := e.byStatus[results[i].Status]; ok {
			c.Inc()
		}
	}

	if e.processed != nil {
		e.processed.Inc()
	}
	if e.latency != nil {
		e.latency.Since(start)
	}
	e.log.Debug("application processed",
		"text", text,
		"fitments", len(fitments),
		"duration", time.Since(start),
	)
	return results, nil
}

// BatchItem is the outcome for one input of a batch. A parse failure leaves
// Results empty and records the error note; it never aborts the rest of the
// batch.
type BatchItem struct {
	Results []domain.ValidationResult `json:"results"`
	Error   string                    `json:"error,omitempty"`
}

// BatchProcess processes every input independently on a bounded worker pool,
// keyed by input text. Parse failures are recorded per input. Provider or
// configuration failures are fatal to the whole batch and propagate, since
// missing reference data invalidates all subsequent parsing. Cancellation is
// honored between items, not mid-item.
func (e *Engine) BatchProcess(ctx context.Context, texts []string, terminologyID int64) (map[string]BatchItem, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "fitment.batch")
	defer span.End()

	if err := e.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	if e.batchItems != nil {
		e.batchItems.Add(int64(len(texts)))
	}
	// Warm the reference caches up front so a missing part type fails the
	// batch before any work is fanned out.
	if _, err := e.PartTerminology(ctx, terminologyID); err != nil {
		return nil, err
	}
	if _, err := e.PCDBPositions(ctx, terminologyID); err != nil {
		return nil, err
	}

	type keyed struct {
		text string
		item BatchItem
	}
	outcomes := fn.ParMapResult(texts, e.workers, func(text string) fn.Result[keyed] {
		if err := ctx.Err(); err != nil {
			return fn.Err[keyed](err)
		}
		results, err := e.ProcessApplication(ctx, text, terminologyID)
		if err != nil {
			if domain.IsParseError(err) {
				return fn.Ok(keyed{text: text, item: BatchItem{Results: []domain.ValidationResult{}, Error: err.Error()}})
			}
			return fn.Err[keyed](err)
		}
		return fn.Ok(keyed{text: text, item: BatchItem{Results: results}})
	})

	out := make(map[string]BatchItem, len(texts))
	for _, r := range outcomes {
		k, err := r.Unwrap()
		if err != nil {
			return nil, err
		}
		out[k.text] = k.item
	}
	e.log.Info("batch processed", "inputs", len(texts), "outputs", len(out))
	return out, nil
}

// SaveMappingResults delegates result persistence to the provider.
func (e *Engine) SaveMappingResults(ctx context.Context, productID string, results []domain.ValidationResult) error {
	if err := e.provider.SaveMappingResults(ctx, productID, results); err != nil {
		return domain.NewMappingError("save mapping results", err)
	}
	return nil
}

// ensureLoaded lazily performs the first mapping refresh.
func (e *Engine) ensureLoaded(ctx context.Context) error {
	if e.resolver.Loaded() {
		return nil
	}
	return e.RefreshMappings(ctx)
}

func vehicleKey(f domain.PartFitment) string {
	return fmt.Sprintf("%d|%s|%s", f.Year, strings.ToLower(f.Make), strings.ToLower(f.Model))
}
