package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"
	"golang.org/x/sync/errgroup"

	"retail-insights/internal/services"
)

const maxTableRows = 50

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"opt": func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.1f", *v)
	},
}

var qualityTableTemplate = template.Must(template.New("qualityTable").Funcs(funcs).Parse(`
<div id="quality-content">
<p class="issues">Key issues: {{.Issues}}</p>
<table class="modern-table">
<thead><tr><th>Store</th><th>Records</th><th>Missing %</th><th>Outlier %</th><th>Duplicate %</th><th>Score</th><th>Category</th></tr></thead>
<tbody>
{{range .Rows}}<tr>
<td>{{.Entity}}</td>
<td>{{.TotalRecords}}</td>
<td>{{money .MissingRate}}</td>
<td>{{money .OutlierRate}}</td>
<td>{{money .DuplicateRate}}</td>
<td><strong>{{money .HealthScore}}</strong></td>
<td><span class="category-badge">{{.Category}}</span></td>
</tr>{{end}}
</tbody>
</table>
</div>`))

var promoTableTemplate = template.Must(template.New("promoTable").Funcs(funcs).Parse(`
<div id="promotions-content">
<table class="modern-table">
<thead><tr><th>SKU</th><th>Description</th><th>Supplier</th><th>Uplift %</th><th>Coverage %</th><th>Promo Discount %</th></tr></thead>
<tbody>
{{range .Rows}}<tr>
<td>{{.ItemCode}}</td>
<td>{{.Description}}</td>
<td>{{.Supplier}}</td>
<td><strong>{{money .QuantityUpliftPct}}</strong></td>
<td>{{money .PromoCoveragePct}}</td>
<td>{{money .AvgDiscountPctPromo}}</td>
</tr>{{end}}
</tbody>
</table>
<ul class="insights">{{range .Insights}}<li>{{.}}</li>{{end}}</ul>
</div>`))

var pricingTableTemplate = template.Must(template.New("pricingTable").Funcs(funcs).Parse(`
<div id="pricing-content">
<table class="modern-table">
<thead><tr><th>Sub-Department</th><th>Section</th><th>Price Index</th><th>Avg Price</th><th>Market Price</th><th>Quantity</th></tr></thead>
<tbody>
{{range .Rows}}<tr>
<td>{{.SubDepartment}}</td>
<td>{{.Section}}</td>
<td><strong>{{opt .PriceIndex}}</strong></td>
<td>{{money .AvgUnitPrice}}</td>
<td>{{opt .MarketAvgUnitPrice}}</td>
<td>{{money .TotalQuantity}}</td>
</tr>{{end}}
</tbody>
</table>
<ul class="insights">{{range .Insights}}<li>{{.}}</li>{{end}}</ul>
</div>`))

var errorTemplate = template.Must(template.New("error").Parse(
	`<div id="{{.ID}}" class="error">Unable to load data: {{.Message}}</div>`))

type SSEHandlers struct {
	analytics *services.Analytics
	defaults  Defaults
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, defaults Defaults, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		defaults:  defaults,
		logger:    logger,
	}
}

// patch is one rendered panel: an HTML fragment plus the signals that go with it.
type patch struct {
	html    string
	signals map[string]any
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf strings.Builder
	err := tmpl.Execute(&buf, data)
	return buf.String(), err
}

func (h *SSEHandlers) qualityPatch(ctx context.Context) (patch, error) {
	report, err := h.analytics.QualityReport(ctx)
	if err != nil {
		return patch{}, err
	}

	html, err := render(qualityTableTemplate, map[string]any{
		"Rows":   limitRows(report.StoreHealth),
		"Issues": services.DescribeIssues(report.KeyIssues),
	})
	if err != nil {
		return patch{}, fmt.Errorf("render quality table: %w", err)
	}

	return patch{html: html, signals: map[string]any{
		"qualityOverview":       report.Overview,
		"storeHealthSummary":    services.SummarizeHealth(report.StoreHealth),
		"supplierHealthSummary": services.SummarizeHealth(report.SupplierHealth),
		"outliersSummary":       report.OutliersSummary,
	}}, nil
}

func (h *SSEHandlers) promotionsPatch(ctx context.Context, supplier string) (patch, error) {
	breakdown, err := h.analytics.PromotionBreakdown(ctx, supplier)
	if err != nil {
		return patch{}, err
	}

	html, err := render(promoTableTemplate, map[string]any{
		"Rows":     breakdown.KPIs.TopPerformingSKUs,
		"Insights": breakdown.Insights,
	})
	if err != nil {
		return patch{}, fmt.Errorf("render promotions table: %w", err)
	}

	return patch{html: html, signals: map[string]any{
		"promoSupplier": supplier,
		"promoSummary":  breakdown.KPIs.Summary,
	}}, nil
}

func (h *SSEHandlers) pricingPatch(ctx context.Context, supplier string) (patch, error) {
	detail, err := h.analytics.PricingDetail(ctx, supplier)
	if err != nil {
		return patch{}, err
	}

	html, err := render(pricingTableTemplate, map[string]any{
		"Rows":     detail.CategorySummary,
		"Insights": detail.Insights,
	})
	if err != nil {
		return patch{}, fmt.Errorf("render pricing table: %w", err)
	}

	return patch{html: html, signals: map[string]any{
		"priceSupplier":    supplier,
		"priceIndex":       detail.Overall.OverallPriceIndex,
		"pricePositioning": detail.Overall.OverallPositioning,
		"positioningMix":   detail.Overall.PositioningDistribution,
	}}, nil
}

func limitRows[T any](rows []T) []T {
	if len(rows) > maxTableRows {
		return rows[:maxTableRows]
	}
	return rows
}

// send writes a panel, or an error fragment in its place.
func (h *SSEHandlers) send(sse *datastar.ServerSentEventGenerator, targetID string, p patch, err error) {
	if err != nil {
		h.logger.Error("build panel", "target", targetID, "error", err)
		html, renderErr := render(errorTemplate, map[string]string{"ID": targetID, "Message": err.Error()})
		if renderErr == nil {
			sse.PatchElements(html)
		}
		return
	}

	if len(p.signals) > 0 {
		jsonData, err := json.Marshal(p.signals)
		if err != nil {
			h.logger.Error("marshal signals", "target", targetID, "error", err)
			return
		}
		sse.PatchSignals(jsonData)
	}
	sse.PatchElements(p.html)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) supplierParam(r *http.Request, fallback string) string {
	if v := strings.TrimSpace(r.URL.Query().Get("supplier")); v != "" {
		return v
	}
	return fallback
}

func (h *SSEHandlers) HandleDataQuality(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	p, err := h.qualityPatch(r.Context())
	h.send(sse, "quality-content", p, err)
	flush(w)
}

func (h *SSEHandlers) HandlePromotions(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	p, err := h.promotionsPatch(r.Context(), h.supplierParam(r, h.defaults.PromoSupplier))
	h.send(sse, "promotions-content", p, err)
	flush(w)
}

func (h *SSEHandlers) HandlePricing(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	p, err := h.pricingPatch(r.Context(), h.supplierParam(r, h.defaults.PriceSupplier))
	h.send(sse, "pricing-content", p, err)
	flush(w)
}

// HandleRefreshAll builds the three panels concurrently, then streams them in
// a fixed order. A failing panel does not prevent the others from rendering.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	var (
		quality, promos, pricing          patch
		qualityErr, promosErr, pricingErr error
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		quality, qualityErr = h.qualityPatch(ctx)
		return nil
	})
	g.Go(func() error {
		promos, promosErr = h.promotionsPatch(ctx, h.defaults.PromoSupplier)
		return nil
	})
	g.Go(func() error {
		pricing, pricingErr = h.pricingPatch(ctx, h.defaults.PriceSupplier)
		return nil
	})
	g.Wait()

	h.send(sse, "quality-content", quality, qualityErr)
	h.send(sse, "promotions-content", promos, promosErr)
	h.send(sse, "pricing-content", pricing, pricingErr)
	flush(w)
}
