package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"retail-insights/internal/models"
	"retail-insights/internal/observability"
)

// ErrNoData is returned when no dataset was configured or supplied.
var ErrNoData = errors.New("no dataset loaded")

// Engine names used for metrics and spans.
const (
	EngineQuality    = "data_quality"
	EnginePromotions = "promotions"
	EnginePricing    = "pricing"
)

// Analytics owns the process-wide dataset and runs the engines over it.
// The dataset is loaded once, lazily, and never mutated afterwards.
type Analytics struct {
	mu      sync.RWMutex
	loadMu  sync.Mutex
	dataset *models.Dataset

	source    string
	loadOpts  LoadOptions
	promoOpts PromotionOptions
	logger    *slog.Logger
	metrics   *observability.Metrics
}

type Option func(*Analytics)

// WithSource configures the file loaded on first use.
func WithSource(path string, opts LoadOptions) Option {
	return func(a *Analytics) {
		a.source = path
		a.loadOpts = opts
	}
}

func WithPromotionOptions(opts PromotionOptions) Option {
	return func(a *Analytics) { a.promoOpts = opts }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analytics) { a.logger = logger }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(a *Analytics) { a.metrics = m }
}

func NewAnalytics(opts ...Option) *Analytics {
	a := &Analytics{
		promoOpts: DefaultPromotionOptions(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.loadOpts.Logger == nil {
		a.loadOpts.Logger = a.logger
	}
	return a
}

// SetData installs an in-memory dataset, replacing any loaded one.
func (a *Analytics) SetData(rows []models.Transaction) {
	ds := models.NewDataset(rows, "memory")

	a.mu.Lock()
	a.dataset = ds
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.SetDataset(ds.Len(), 0)
	}
}

// Load reads the configured source, replacing the current dataset.
func (a *Analytics) Load(ctx context.Context) error {
	a.loadMu.Lock()
	defer a.loadMu.Unlock()
	return a.load(ctx)
}

func (a *Analytics) load(ctx context.Context) error {
	if a.source == "" {
		return ErrNoData
	}

	start := time.Now()
	ds, err := LoadDataset(ctx, a.source, a.loadOpts)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.dataset = ds
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.SetDataset(ds.Len(), time.Since(start))
	}
	return nil
}

// Dataset returns the loaded dataset, loading it on first use.
func (a *Analytics) Dataset(ctx context.Context) (*models.Dataset, error) {
	a.mu.RLock()
	ds := a.dataset
	a.mu.RUnlock()
	if ds != nil {
		return ds, nil
	}

	a.loadMu.Lock()
	defer a.loadMu.Unlock()

	a.mu.RLock()
	ds = a.dataset
	a.mu.RUnlock()
	if ds != nil {
		return ds, nil
	}

	if err := a.load(ctx); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dataset, nil
}

func (a *Analytics) Loaded() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dataset != nil
}

func (a *Analytics) RecordCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dataset.Len()
}

// PromotionOptions reports the detection parameters in effect.
func (a *Analytics) PromotionOptions() PromotionOptions {
	return a.promoOpts
}

// run resolves the dataset and times one engine invocation.
func run[T any](ctx context.Context, a *Analytics, engine string, fn func(*models.Dataset) T) (T, error) {
	ctx, span := observability.StartSpan(ctx, engine)
	span.SetTag("engine", engine)

	var result T
	ds, err := a.Dataset(ctx)
	if err == nil {
		result = fn(ds)
	} else {
		span.SetError(err)
	}

	duration := span.Finish()
	span.Log(ctx, a.logger)
	if a.metrics != nil {
		a.metrics.ObserveEngine(engine, duration, err)
	}
	return result, err
}

func (a *Analytics) QualityReport(ctx context.Context) (*models.QualityReport, error) {
	return run(ctx, a, EngineQuality, func(ds *models.Dataset) *models.QualityReport {
		return NewQualityChecker(ds).SummaryReport()
	})
}

func (a *Analytics) PromotionKPIs(ctx context.Context, supplier string) (models.PromotionKPIs, error) {
	return run(ctx, a, EnginePromotions, func(ds *models.Dataset) models.PromotionKPIs {
		return NewPromotionAnalyzer(ds, a.promoOpts).CalculateKPIs(supplier)
	})
}

func (a *Analytics) PromotionBreakdown(ctx context.Context, supplier string) (models.PromotionBreakdown, error) {
	return run(ctx, a, EnginePromotions, func(ds *models.Dataset) models.PromotionBreakdown {
		return NewPromotionAnalyzer(ds, a.promoOpts).SupplierBreakdown(supplier)
	})
}

func (a *Analytics) PricePositioning(ctx context.Context, target string) (models.OverallPositioning, error) {
	return run(ctx, a, EnginePricing, func(ds *models.Dataset) models.OverallPositioning {
		return NewPricingAnalyzer(ds).OverallPositioning(target)
	})
}

func (a *Analytics) StoreLevelIndex(ctx context.Context, target string) ([]models.StoreCategoryIndex, error) {
	return run(ctx, a, EnginePricing, func(ds *models.Dataset) []models.StoreCategoryIndex {
		return NewPricingAnalyzer(ds).StoreLevelIndex(target)
	})
}

func (a *Analytics) PricingInsights(ctx context.Context, target string) ([]string, error) {
	return run(ctx, a, EnginePricing, func(ds *models.Dataset) []string {
		return NewPricingAnalyzer(ds).PricingInsights(target)
	})
}

func (a *Analytics) CompareSuppliers(ctx context.Context, category, section string) ([]models.SupplierComparison, error) {
	return run(ctx, a, EnginePricing, func(ds *models.Dataset) []models.SupplierComparison {
		return NewPricingAnalyzer(ds).CompareSuppliers(category, section)
	})
}

func (a *Analytics) PricingDetail(ctx context.Context, target string) (models.PricingDetail, error) {
	return run(ctx, a, EnginePricing, func(ds *models.Dataset) models.PricingDetail {
		return NewPricingAnalyzer(ds).DetailedComparison(target)
	})
}

// Stats is used for monitoring.
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := map[string]any{
		"data_loaded":    a.dataset != nil,
		"record_count":   a.dataset.Len(),
		"source":         a.source,
		"discount_pct":   a.promoOpts.DiscountThreshold * 100,
		"min_promo_days": a.promoOpts.MinDays,
	}
	if a.dataset != nil {
		stats["source"] = a.dataset.Source()
		stats["last_processed"] = a.dataset.LoadedAt()
	}
	return stats
}
