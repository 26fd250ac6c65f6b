package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"retail-insights/internal/config"
	"retail-insights/internal/models"
	"retail-insights/internal/observability"
	"retail-insights/internal/services"
	"retail-insights/internal/ui/templates"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() *config.Config {
	return &config.Config{
		Data: config.DataConfig{File: "Test_Data.xlsx", LoadTimeout: time.Minute},
		Analysis: config.AnalysisConfig{
			DiscountThreshold: 0.10,
			MinPromoDays:      2,
			PromoSupplier:     "BIDCO",
			PriceSupplier:     "BIDCO AFRICA LIMITED",
		},
		Security: config.SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8084"},
			TrustedProxies: []string{"127.0.0.1"},
		},
	}
}

func row(store, supplier, item string, day int, qty, sales, rrp float64) models.Transaction {
	return models.Transaction{
		Store:         store,
		Supplier:      models.StringPtr(supplier),
		ItemCode:      item,
		Description:   "Item " + item,
		SubDepartment: "Oils",
		Section:       "Cooking Oil",
		SaleDate:      time.Date(2024, 1, 1+day, 0, 0, 0, 0, time.UTC),
		Quantity:      qty,
		TotalSales:    sales,
		RRP:           models.FloatPtr(rrp),
	}
}

func newTestAnalytics(metrics *observability.Metrics) *services.Analytics {
	a := newAnalytics(testConfig(), testLogger(), metrics)
	a.SetData([]models.Transaction{
		row("Westlands", "BIDCO AFRICA LIMITED", "1001", 0, 5, 500, 100),
		row("Westlands", "BIDCO AFRICA LIMITED", "1001", 1, 10, 800, 100),
		row("Westlands", "BIDCO AFRICA LIMITED", "1001", 2, 10, 800, 100),
		row("Westlands", "KAPA OIL REFINERIES", "2001", 0, 4, 400, 110),
		row("Karen", "BIDCO AFRICA LIMITED", "1001", 0, 2, 220, 100),
		row("Karen", "KAPA OIL REFINERIES", "2001", 0, 2, 200, 110),
	})
	return a
}

func newTestHandler(cfg *config.Config) (http.Handler, *observability.Metrics) {
	metrics := observability.NewMetrics()
	return newHandler(cfg, newTestAnalytics(metrics), metrics, newRateLimiter(cfg), testLogger()), metrics
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestServer_Routes(t *testing.T) {
	handler, _ := newTestHandler(testConfig())

	tests := []struct {
		name        string
		path        string
		status      int
		contentType string
	}{
		{"dashboard", "/", http.StatusOK, "text/html"},
		{"health", "/health", http.StatusOK, "application/json"},
		{"stats", "/admin/stats", http.StatusOK, "application/json"},
		{"metrics", "/metrics", http.StatusOK, "text/plain"},
		{"data quality", "/api/data-quality", http.StatusOK, "application/json"},
		{"promo summary", "/api/promo-summary", http.StatusOK, "application/json"},
		{"price index", "/api/price-index?view=detailed", http.StatusOK, "application/json"},
		{"supplier comparison", "/api/supplier-comparison?category=Oils", http.StatusOK, "application/json"},
		{"supplier comparison without category", "/api/supplier-comparison", http.StatusBadRequest, "application/json"},
		{"sse data quality", "/sse/data-quality", http.StatusOK, "text/event-stream"},
		{"sse promotions", "/sse/promotions", http.StatusOK, "text/event-stream"},
		{"sse pricing", "/sse/pricing", http.StatusOK, "text/event-stream"},
		{"sse refresh all", "/sse/refresh-all", http.StatusOK, "text/event-stream"},
		{"unknown path", "/api/store-revenue", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(handler, tt.path)
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, tt.contentType) {
				t.Errorf("expected content-type containing %q, got %q", tt.contentType, ct)
			}
		})
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	handler, _ := newTestHandler(testConfig())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/data-quality", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, w.Code)
	}
}

func TestServer_JSONResponse(t *testing.T) {
	handler, _ := newTestHandler(testConfig())

	w := get(handler, "/api/price-index")
	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Supplier       string `json:"supplier"`
			OverallMetrics struct {
				PriceIndex  *float64 `json:"price_index"`
				Positioning string   `json:"positioning"`
			} `json:"overall_metrics"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if !response.Success {
		t.Error("expected success to be true")
	}
	if response.Data.Supplier != "BIDCO AFRICA LIMITED" {
		t.Errorf("expected configured price supplier, got %q", response.Data.Supplier)
	}
	if response.Data.OverallMetrics.PriceIndex == nil {
		t.Fatal("expected an overall price index")
	}
	if response.Data.OverallMetrics.Positioning == "" {
		t.Error("expected a positioning label")
	}
}

func TestServer_Headers(t *testing.T) {
	handler, _ := newTestHandler(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:8084")
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("expected request id to be echoed, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:8084" {
		t.Errorf("expected allowed origin, got %q", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}

	w = get(handler, "/health")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("a request id should be generated")
	}
}

func TestServer_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableRateLimit = true
	cfg.Security.RateLimitRPS = 1
	cfg.Security.RateLimitBurst = 1
	handler, _ := newTestHandler(cfg)

	if w := get(handler, "/api/promo-summary"); w.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", w.Code)
	}
	if w := get(handler, "/api/promo-summary"); w.Code != http.StatusTooManyRequests {
		t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, w.Code)
	}
	if w := get(handler, "/health"); w.Code != http.StatusOK {
		t.Errorf("health checks are not rate limited, got %d", w.Code)
	}
}

func TestServer_RequestMetrics(t *testing.T) {
	handler, _ := newTestHandler(testConfig())

	get(handler, "/api/data-quality")
	get(handler, "/nowhere")

	body := get(handler, "/metrics").Body.String()
	for _, want := range []string{
		`retail_insights_http_requests_total{method="GET",route="GET /api/data-quality",status="200"} 1`,
		`retail_insights_http_requests_total{method="GET",route="unmatched",status="404"} 1`,
		`retail_insights_engine_runs_total{engine="data_quality",outcome="ok"} 1`,
		"retail_insights_dataset_rows 6",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics should contain %s", want)
		}
	}
}

func TestServer_PromoSummarySingleEngineRun(t *testing.T) {
	handler, _ := newTestHandler(testConfig())

	if rec := get(handler, "/api/promo-summary"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := get(handler, "/metrics").Body.String()
	want := `retail_insights_engine_runs_total{engine="promotions",outcome="ok"} 1`
	if !strings.Contains(body, want) {
		t.Errorf("one promo summary should run the promotion engine once; metrics:\n%s", body)
	}
}

func TestServer_ErrorHandling(t *testing.T) {
	cfg := testConfig()
	cfg.Data.File = "missing.xlsx"
	metrics := observability.NewMetrics()
	analytics := newAnalytics(cfg, testLogger(), metrics)
	handler := newHandler(cfg, analytics, metrics, newRateLimiter(cfg), testLogger())

	w := get(handler, "/api/data-quality")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}

	var response struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if response.Success {
		t.Error("expected success to be false")
	}
	if response.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("expected INTERNAL_ERROR, got %q", response.Error.Code)
	}
	if response.Error.RequestID == "" {
		t.Error("error response should carry the request id")
	}

	health := get(handler, "/health")
	if health.Code != http.StatusOK {
		t.Errorf("health should not depend on data, got %d", health.Code)
	}
}

func TestDashboardTemplate(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	dashboardHandler(templates.DashboardProps{
		PromoSupplier: "BIDCO",
		PriceSupplier: "BIDCO AFRICA LIMITED",
	})(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"Retail Insights Dashboard",
		"@get('/sse/refresh-all')",
		`id="quality-content"`,
		`id="promotions-content"`,
		`id="pricing-content"`,
		"Price Index: BIDCO AFRICA LIMITED",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard should contain %q", want)
		}
	}
}

func TestDashboardTemplate_Title(t *testing.T) {
	var sb strings.Builder
	err := templates.Dashboard(templates.DashboardProps{Title: "Store Ops"}).Render(context.Background(), &sb)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(sb.String(), "<title>Store Ops</title>") {
		t.Error("custom title should be rendered")
	}
}
