package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"retail-insights/internal/models"
	"retail-insights/internal/services"
)

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	handlers := NewSSEHandlers(analytics, testDefaults, testLogger())

	if handlers.analytics != analytics {
		t.Error("NewSSEHandlers() should set analytics field")
	}
	if handlers.logger == nil {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func checkSSEHeaders(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected cache-control 'no-cache', got %q", cc)
	}
}

func TestSSEHandlers_Panels(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testDefaults, testLogger())

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		target   string
		targetID string
		contains []string
	}{
		{
			name:     "data quality",
			handler:  handlers.HandleDataQuality,
			target:   "/sse/data-quality",
			targetID: "quality-content",
			contains: []string{"Westlands", "Key issues: none found", "qualityOverview"},
		},
		{
			name:     "promotions",
			handler:  handlers.HandlePromotions,
			target:   "/sse/promotions",
			targetID: "promotions-content",
			contains: []string{"Item 1001", "promoSummary", `"promoSupplier":"BIDCO"`},
		},
		{
			name:     "pricing",
			handler:  handlers.HandlePricing,
			target:   "/sse/pricing?supplier=KAPA%20OIL%20REFINERIES",
			targetID: "pricing-content",
			contains: []string{"Cooking Oil", "pricePositioning", `"priceSupplier":"KAPA OIL REFINERIES"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(tt.handler, tt.target)
			checkSSEHeaders(t, w)

			body := w.Body.String()
			if !strings.Contains(body, "datastar-patch-elements") {
				t.Error("response should patch elements")
			}
			if !strings.Contains(body, "datastar-patch-signals") {
				t.Error("response should patch signals")
			}
			if !strings.Contains(body, `id="`+tt.targetID+`"`) {
				t.Errorf("response should target #%s", tt.targetID)
			}
			if !strings.Contains(body, "<table") {
				t.Error("response should contain HTML table")
			}
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Errorf("response should contain %q", want)
				}
			}
		})
	}
}

func TestSSEHandlers_HandleRefreshAll(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testDefaults, testLogger())

	w := serve(handlers.HandleRefreshAll, "/sse/refresh-all")
	checkSSEHeaders(t, w)

	body := w.Body.String()
	quality := strings.Index(body, `id="quality-content"`)
	promos := strings.Index(body, `id="promotions-content"`)
	pricing := strings.Index(body, `id="pricing-content"`)
	if quality < 0 || promos < 0 || pricing < 0 {
		t.Fatalf("refresh-all should patch every panel, got indexes %d %d %d", quality, promos, pricing)
	}
	if !(quality < promos && promos < pricing) {
		t.Error("panels should be streamed in a fixed order")
	}
}

func TestSSEHandlers_NoData(t *testing.T) {
	handlers := NewSSEHandlers(services.NewAnalytics(services.WithLogger(testLogger())), testDefaults, testLogger())

	w := serve(handlers.HandleRefreshAll, "/sse/refresh-all")
	checkSSEHeaders(t, w)

	body := w.Body.String()
	if got := strings.Count(body, `class="error"`); got != 3 {
		t.Errorf("expected 3 error fragments, got %d", got)
	}
	if strings.Contains(body, "datastar-patch-signals") {
		t.Error("failed panels should not patch signals")
	}
}

func TestSSEHandlers_qualityPatch(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testDefaults, testLogger())

	p, err := handlers.qualityPatch(context.Background())
	if err != nil {
		t.Fatalf("qualityPatch() error: %v", err)
	}
	if !strings.Contains(p.html, "<tbody>") {
		t.Error("quality patch should render a table body")
	}
	for _, key := range []string{"qualityOverview", "storeHealthSummary", "supplierHealthSummary", "outliersSummary"} {
		if _, ok := p.signals[key]; !ok {
			t.Errorf("quality patch should carry signal %q", key)
		}
	}
}

func TestLimitRows(t *testing.T) {
	rows := make([]models.HealthScore, maxTableRows+10)
	if got := len(limitRows(rows)); got != maxTableRows {
		t.Errorf("expected %d rows, got %d", maxTableRows, got)
	}
	if got := len(limitRows(rows[:3])); got != 3 {
		t.Errorf("expected 3 rows, got %d", got)
	}
}

func TestTemplateEscaping(t *testing.T) {
	html, err := render(promoTableTemplate, map[string]any{
		"Rows": []models.SKUPromotion{{ItemCode: "1", Description: "<script>alert(1)</script>"}},
	})
	if err != nil {
		t.Fatalf("render() error: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("descriptions should be HTML escaped")
	}

	html, err = render(pricingTableTemplate, map[string]any{
		"Rows": []models.CategorySummary{{SubDepartment: "Oils", Section: "Cooking Oil"}},
	})
	if err != nil {
		t.Fatalf("render() error: %v", err)
	}
	if !strings.Contains(html, "n/a") {
		t.Error("undefined indexes should render as n/a")
	}
}
