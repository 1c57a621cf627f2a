package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"qsr-dashboard/internal/catalog"
	"qsr-dashboard/internal/models"
	"qsr-dashboard/internal/observability"
	"qsr-dashboard/internal/pipeline"
)

// ErrNotLoaded is returned by every view until a dataset has been loaded.
var ErrNotLoaded = errors.New("dataset not loaded")

// Analytics holds the melted sales sheet and computes dashboard views from it.
// The dataset is replaced wholesale on load and never modified, so views only
// hold the read lock long enough to take a reference.
type Analytics struct {
	mu       sync.RWMutex
	dataset  *Dataset
	pipeline *pipeline.Pipeline
	cache    *datasetCache
	sheet    string

	recordsProcessed atomic.Int64
	viewsComputed    atomic.Int64

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.Metrics
}

type Option func(*Analytics)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analytics) { a.logger = logger }
}

func WithCatalogs(reg *catalog.Registry) Option {
	return func(a *Analytics) { a.pipeline = pipeline.New(reg) }
}

// WithCache enables the gob dataset cache in dir.
func WithCache(dir string) Option {
	return func(a *Analytics) {
		if dir != "" {
			a.cache = &datasetCache{dir: dir}
		}
	}
}

// WithSheet names the worksheet to read; the first sheet is used otherwise.
func WithSheet(name string) Option {
	return func(a *Analytics) { a.sheet = name }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(a *Analytics) { a.tracer = tracer }
}

func WithMetrics(metrics *observability.Metrics) Option {
	return func(a *Analytics) { a.metrics = metrics }
}

func NewAnalytics(opts ...Option) *Analytics {
	a := &Analytics{
		pipeline: pipeline.New(nil),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analytics) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// SetData installs an already melted dataset.
func (a *Analytics) SetData(obs []models.Observation) {
	products := make([]string, 0)
	seen := make(map[string]struct{})
	for i := range obs {
		if _, ok := seen[obs[i].Item]; !ok {
			seen[obs[i].Item] = struct{}{}
			products = append(products, obs[i].Item)
		}
	}
	a.install(&Dataset{
		Source:       "memory",
		Observations: obs,
		Products:     products,
		LoadedAt:     time.Now(),
	})
}

func (a *Analytics) install(ds *Dataset) {
	a.mu.Lock()
	a.dataset = ds
	a.mu.Unlock()
	a.recordsProcessed.Store(int64(len(ds.Observations)))
}

// LoadFromFile reads and melts the sales sheet at path, reusing the cache
// while it is newer than the file.
func (a *Analytics) LoadFromFile(ctx context.Context, path string) (err error) {
	ctx, span := observability.StartSpan(ctx, a.tracer, "analytics.load", attribute.String("source", path))
	defer func() { observability.EndSpan(span, err) }()

	if a.cache != nil {
		if cached, cacheErr := a.cache.load(path, a.sheet); cacheErr == nil {
			a.install(cached)
			a.metrics.ObserveLoad(len(cached.Observations), 0)
			a.logger.InfoContext(ctx, "loaded from cache", "records", len(cached.Observations))
			return nil
		}
	}

	start := time.Now()
	a.logger.InfoContext(ctx, "processing sales sheet", "filename", path)

	sheet, err := ReadSheet(path, a.sheet)
	if err != nil {
		return fmt.Errorf("read sheet: %w", err)
	}
	if sheet.Skipped > 0 {
		a.logger.WarnContext(ctx, "skipped rows with unreadable dates", "rows", sheet.Skipped)
	}

	obs, err := Melt(ctx, sheet)
	if err != nil {
		return fmt.Errorf("melt sheet: %w", err)
	}

	if missing := a.pipeline.Catalogs().Uncatalogued(sheet.Products); len(missing) > 0 {
		a.logger.WarnContext(ctx, "products outside every catalog are excluded from views",
			"count", len(missing),
			"products", missing)
	}

	ds := &Dataset{
		Source:       path,
		Sheet:        a.sheet,
		Observations: obs,
		Products:     sheet.Products,
		Skipped:      sheet.Skipped,
		LoadedAt:     time.Now(),
	}
	a.install(ds)

	if a.cache != nil {
		if err := a.cache.save(ds); err != nil {
			a.logger.WarnContext(ctx, "failed to save cache", "error", err)
		}
	}

	duration := time.Since(start)
	a.metrics.ObserveLoad(len(obs), duration)
	a.logger.InfoContext(ctx, "sales sheet processing complete",
		"products", len(sheet.Products),
		"rows", len(sheet.Rows),
		"records", len(obs),
		"duration", duration)

	return nil
}

func (a *Analytics) observations() ([]models.Observation, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.dataset == nil {
		return nil, ErrNotLoaded
	}
	return a.dataset.Observations, nil
}

func (a *Analytics) startView(ctx context.Context, view string, group catalog.GroupID) (context.Context, trace.Span) {
	return observability.StartSpan(ctx, a.tracer, "analytics."+view,
		attribute.String("view", view),
		attribute.String("group", string(group)))
}

func (a *Analytics) finishView(ctx context.Context, span trace.Span, view string, noData bool, err error) {
	a.viewsComputed.Add(1)
	a.metrics.ObserveView(view, noData)
	span.SetAttributes(attribute.Bool("no_data", noData))
	if noData {
		a.logger.DebugContext(ctx, "selection has no data", "view", view)
	}
	observability.EndSpan(span, err)
}

// Bounds reports the first and last date of the group's rows.
func (a *Analytics) Bounds(ctx context.Context, group catalog.GroupID) (bounds models.DateBounds, err error) {
	ctx, span := a.startView(ctx, "bounds", group)
	defer func() { a.finishView(ctx, span, "bounds", errors.Is(err, pipeline.ErrNoData), err) }()

	obs, err := a.observations()
	if err != nil {
		return models.DateBounds{}, err
	}
	return a.pipeline.DateBounds(obs, group)
}

// Options lists the values still selectable at every level of the cascade.
func (a *Analytics) Options(ctx context.Context, q Query) (opts models.FilterOptions, err error) {
	ctx, span := a.startView(ctx, "options", q.Group)
	defer func() { a.finishView(ctx, span, "options", len(opts.Items) == 0, err) }()

	obs, err := a.observations()
	if err != nil {
		return models.FilterOptions{}, err
	}
	return a.pipeline.Options(obs, q.Criteria()), nil
}

// Hourly filters to one hour, aggregates by product and reports the selected
// product's share of the quantity sold.
func (a *Analytics) Hourly(ctx context.Context, q Query) (view HourlyView, err error) {
	ctx, span := a.startView(ctx, "hourly", q.Group)
	defer func() { a.finishView(ctx, span, "hourly", view.NoData, err) }()

	obs, err := a.observations()
	if err != nil {
		return HourlyView{}, err
	}

	filtered := a.pipeline.FilterChain(obs, q.Criteria())
	atHour, hour := pipeline.ByTime(filtered, q.Hour)

	table := pipeline.ContributionPercentage(
		pipeline.Aggregate(atHour, pipeline.DimensionItem, q.Agg),
		pipeline.Quantity,
	)
	view = HourlyView{Hour: hour, Table: table}

	cards, cardsErr := pipeline.SummaryCards(table)
	if cardsErr != nil {
		view.NoData = true
		view.Cards.Function = table.Function
		return view, nil
	}
	view.Cards = cards

	share, shareErr := pipeline.Share(table, q.Item, pipeline.Quantity)
	if shareErr != nil {
		// The selected product sold nothing at this hour; fall back to the top row.
		share, _ = pipeline.Share(table, "", pipeline.Quantity)
	}
	view.Share = share
	view.Product = share.Key
	return view, nil
}

// Product filters to one product, aggregates by hour and projects the chosen
// feature into a trend series.
func (a *Analytics) Product(ctx context.Context, q Query) (view ProductView, err error) {
	ctx, span := a.startView(ctx, "product", q.Group)
	defer func() { a.finishView(ctx, span, "product", view.NoData, err) }()

	obs, err := a.observations()
	if err != nil {
		return ProductView{}, err
	}

	feature := q.Feature
	if feature == "" {
		feature = pipeline.Quantity
	}

	filtered := a.pipeline.FilterChain(obs, q.Criteria())
	ofItem, item := pipeline.ByItem(filtered, q.Item)

	table := pipeline.ContributionPercentage(
		pipeline.Aggregate(ofItem, pipeline.DimensionTime, q.Agg),
		pipeline.Quantity,
	)
	view = ProductView{
		Item:    item,
		Feature: string(feature),
		Table:   table,
		Trend:   pipeline.Trend(table, feature),
	}

	share, shareErr := pipeline.Share(table, q.Hour, pipeline.Quantity)
	if shareErr != nil {
		share, shareErr = pipeline.Share(table, "", pipeline.Quantity)
	}
	if shareErr != nil {
		view.NoData = true
		return view, nil
	}
	view.Share = share
	view.Hour = share.Key
	return view, nil
}

// Compare filters both sides concurrently and joins them hour by hour.
func (a *Analytics) Compare(ctx context.Context, q CompareQuery) (view CompareView, err error) {
	ctx, span := a.startView(ctx, "compare", q.Group)
	defer func() { a.finishView(ctx, span, "compare", view.NoData, err) }()

	obs, err := a.observations()
	if err != nil {
		return CompareView{}, err
	}

	var left, right []models.Observation
	var leftItem, rightItem string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		left, leftItem = pipeline.ByItem(a.pipeline.FilterChain(obs, q.Left.criteria(q.Group)), q.Left.Item)
		return gctx.Err()
	})
	g.Go(func() error {
		right, rightItem = pipeline.ByItem(a.pipeline.FilterChain(obs, q.Right.criteria(q.Group)), q.Right.Item)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return CompareView{}, err
	}

	agg := q.Agg
	if agg == "" {
		agg = pipeline.DefaultAggFunc
	}
	metric := q.Metric
	if metric == "" {
		metric = pipeline.Quantity
	}

	rows := pipeline.Compare(left, right, agg, metric)
	return CompareView{
		LeftItem:  leftItem,
		RightItem: rightItem,
		Function:  string(agg),
		Metric:    string(metric),
		Rows:      rows,
		NoData:    len(rows) == 0,
	}, nil
}

// Correlation pairs two numeric features over every hour of the whole sheet.
func (a *Analytics) Correlation(ctx context.Context, x, y string) (view CorrelationView, err error) {
	ctx, span := a.startView(ctx, "correlation", "")
	defer func() { a.finishView(ctx, span, "correlation", view.NoData, err) }()

	obs, err := a.observations()
	if err != nil {
		return CorrelationView{}, err
	}

	c, corrErr := pipeline.Correlate(obs, x, y)
	view = CorrelationView{Correlation: c, NoData: corrErr != nil}
	return view, nil
}

// Catalogs lists every product group and how many of its products the loaded
// sheet contains.
func (a *Analytics) Catalogs() []CatalogInfo {
	a.mu.RLock()
	var products []string
	if a.dataset != nil {
		products = a.dataset.Products
	}
	a.mu.RUnlock()

	all := a.pipeline.Catalogs().All()
	out := make([]CatalogInfo, 0, len(all))
	for _, c := range all {
		present := 0
		for _, p := range products {
			if c.Contains(p) {
				present++
			}
		}
		out = append(out, CatalogInfo{ID: c.ID, Label: c.Label, Items: c.Items(), Present: present})
	}
	return out
}

func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := map[string]any{
		"loaded":         a.dataset != nil,
		"record_count":   a.recordsProcessed.Load(),
		"views_computed": a.viewsComputed.Load(),
		"cache_enabled":  a.cache != nil,
	}
	if a.dataset != nil {
		stats["source"] = a.dataset.Source
		stats["last_processed"] = a.dataset.LoadedAt
		stats["products"] = len(a.dataset.Products)
		stats["skipped_rows"] = a.dataset.Skipped
		stats["uncatalogued"] = len(a.pipeline.Catalogs().Uncatalogued(a.dataset.Products))
	}
	return stats
}
