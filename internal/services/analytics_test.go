package services

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-insights/internal/models"
	"retail-insights/internal/observability"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewAnalytics(t *testing.T) {
	a := NewAnalytics()
	require.NotNil(t, a)
	assert.NotNil(t, a.logger)
	assert.Equal(t, DefaultPromotionOptions(), a.PromotionOptions())
	assert.False(t, a.Loaded())
	assert.Zero(t, a.RecordCount())
}

func TestAnalytics_NoData(t *testing.T) {
	a := NewAnalytics(WithLogger(quietLogger()))

	_, err := a.QualityReport(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
	_, err = a.PromotionKPIs(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoData)
	_, err = a.PricingDetail(context.Background(), "X")
	assert.ErrorIs(t, err, ErrNoData)
	assert.ErrorIs(t, a.Load(context.Background()), ErrNoData)
}

func TestAnalytics_SetData(t *testing.T) {
	a := NewAnalytics(WithLogger(quietLogger()))
	a.SetData(threeStoreScenario())

	assert.True(t, a.Loaded())
	assert.Equal(t, 30, a.RecordCount())

	report, err := a.QualityReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, report.Overview.TotalRecords)
	assert.Equal(t, 3, report.Overview.NumStores)

	kpis, err := a.PromotionKPIs(context.Background(), "bidco")
	require.NoError(t, err)
	assert.Equal(t, 1, kpis.Summary.SKUsWithPromos)

	breakdown, err := a.PromotionBreakdown(context.Background(), "bidco")
	require.NoError(t, err)
	assert.Equal(t, kpis, breakdown.KPIs)
}

func TestAnalytics_LazyLoadFromSource(t *testing.T) {
	path := writeFile(t, "sales.csv", csvHeader+
		"S1,TARGET,1,Item,Oils,A,2024-01-01,3,36,11\n"+
		"S1,RIVAL,2,Item,Oils,A,2024-01-01,1,10,10\n")

	a := NewAnalytics(
		WithSource(path, LoadOptions{}),
		WithLogger(quietLogger()),
	)
	assert.False(t, a.Loaded())

	overall, err := a.PricePositioning(context.Background(), "TARGET")
	require.NoError(t, err)
	assert.True(t, a.Loaded())
	assert.Equal(t, 2, a.RecordCount())
	require.NotNil(t, overall.OverallPriceIndex)
	assert.InDelta(t, 120.0, *overall.OverallPriceIndex, 1e-9)

	rows, err := a.StoreLevelIndex(context.Background(), "TARGET")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	suppliers, err := a.CompareSuppliers(context.Background(), "Oils", "A")
	require.NoError(t, err)
	assert.Len(t, suppliers, 2)

	insights, err := a.PricingInsights(context.Background(), "TARGET")
	require.NoError(t, err)
	assert.NotEmpty(t, insights)

	stats := a.Stats()
	assert.Equal(t, true, stats["data_loaded"])
	assert.Equal(t, 2, stats["record_count"])
	assert.Equal(t, path, stats["source"])
	assert.Contains(t, stats, "last_processed")
}

func TestAnalytics_LoadSchemaError(t *testing.T) {
	path := writeFile(t, "sales.csv", "Store Name,Quantity\nS1,1\n")
	a := NewAnalytics(WithSource(path, LoadOptions{}), WithLogger(quietLogger()))

	_, err := a.QualityReport(context.Background())
	var schemaErr *models.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
	assert.False(t, a.Loaded())
}

func TestAnalytics_PromotionOptions(t *testing.T) {
	opts := PromotionOptions{DiscountThreshold: 0.25, MinDays: 1}
	a := NewAnalytics(WithPromotionOptions(opts), WithLogger(quietLogger()))
	a.SetData(threeStoreScenario())

	kpis, err := a.PromotionKPIs(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, kpis.Summary.SKUsWithPromos)
	assert.Equal(t, 25.0, a.Stats()["discount_pct"])
	assert.Equal(t, 1, a.Stats()["min_promo_days"])
}

func TestAnalytics_Metrics(t *testing.T) {
	m := observability.NewMetrics()
	a := NewAnalytics(WithMetrics(m), WithLogger(quietLogger()))

	_, err := a.QualityReport(context.Background())
	require.Error(t, err)

	a.SetData(threeStoreScenario())
	_, err = a.PricingDetail(context.Background(), bidco)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `retail_insights_engine_runs_total{engine="data_quality",outcome="error"} 1`)
	assert.Contains(t, body, `retail_insights_engine_runs_total{engine="pricing",outcome="ok"} 1`)
	assert.Contains(t, body, "retail_insights_dataset_rows 30")
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	path := writeFile(t, "sales.csv", csvHeader+
		"S1,TARGET,1,Item,Oils,A,2024-01-01,3,36,11\n"+
		"S1,RIVAL,2,Item,Oils,A,2024-01-01,1,10,10\n")
	a := NewAnalytics(WithSource(path, LoadOptions{}), WithLogger(quietLogger()))

	var wg sync.WaitGroup
	errs := make(chan error, 30)
	for range 10 {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := a.QualityReport(context.Background())
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := a.PromotionKPIs(context.Background(), "")
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := a.PricingDetail(context.Background(), "TARGET")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 2, a.RecordCount())
}
