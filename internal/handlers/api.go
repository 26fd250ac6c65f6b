package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"retail-insights/internal/errors"
	"retail-insights/internal/models"
	"retail-insights/internal/observability"
	"retail-insights/internal/services"
)

const cacheControl = "public, max-age=300"

// Defaults carries the suppliers analysed when a request names none.
type Defaults struct {
	PromoSupplier string
	PriceSupplier string
}

type APIHandlers struct {
	analytics *services.Analytics
	defaults  Defaults
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, defaults Defaults, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		defaults:  defaults,
		logger:    logger,
	}
}

// writeError maps service failures onto the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if stderrors.Is(err, services.ErrNoData) {
		err = errors.ServiceUnavailable("Sales data has not been loaded")
	}
	errors.WriteError(w, logger, err, observability.GetRequestID(r.Context()))
}

func writeCached(w http.ResponseWriter, data any) {
	w.Header().Set("Cache-Control", cacheControl)
	errors.WriteSuccess(w, data)
}

type HealthGroup struct {
	Scores  []models.HealthScore `json:"scores"`
	Summary models.HealthSummary `json:"summary"`
}

type DataIssues struct {
	MissingValues   []models.MissingValue `json:"missing_values"`
	DuplicatesCount int                   `json:"duplicates_count"`
	Outliers        map[string]int        `json:"outliers"`
	KeyIssues       []string              `json:"key_issues"`
}

type DataQualityResponse struct {
	Overview       models.DatasetOverview `json:"overview"`
	DataIssues     DataIssues             `json:"data_issues"`
	StoreHealth    HealthGroup            `json:"store_health"`
	SupplierHealth HealthGroup            `json:"supplier_health"`
}

func (h *APIHandlers) HandleDataQuality(w http.ResponseWriter, r *http.Request) {
	q, err := parseQualityQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	report, err := h.analytics.QualityReport(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	filter := services.HealthFilter{MinScore: q.MinScore, Category: q.Category}
	stores := services.FilterHealth(report.StoreHealth, filter)
	suppliers := services.FilterHealth(report.SupplierHealth, filter)

	writeCached(w, DataQualityResponse{
		Overview: report.Overview,
		DataIssues: DataIssues{
			MissingValues:   report.MissingValues,
			DuplicatesCount: report.DuplicatesCount,
			Outliers:        report.OutliersSummary,
			KeyIssues:       report.KeyIssues,
		},
		StoreHealth:    HealthGroup{Scores: stores, Summary: services.SummarizeHealth(stores)},
		SupplierHealth: HealthGroup{Scores: suppliers, Summary: services.SummarizeHealth(suppliers)},
	})
}

type PromoSummaryResponse struct {
	Supplier           string                            `json:"supplier"`
	Summary            models.PromotionSummary           `json:"summary"`
	TopPerformingSKUs  []models.SKUPromotion             `json:"top_performing_skus"`
	CommercialInsights []string                          `json:"commercial_insights"`
	TopPromoStores     []models.StorePromoPerformance    `json:"top_promo_stores"`
	CategoryBreakdown  []models.CategoryPromoPerformance `json:"category_breakdown"`
	Methodology        map[string]string                 `json:"methodology"`
}

func (h *APIHandlers) HandlePromoSummary(w http.ResponseWriter, r *http.Request) {
	q, err := parsePromoQuery(r.URL.Query(), h.defaults.PromoSupplier)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	breakdown, err := h.analytics.PromotionBreakdown(r.Context(), q.Supplier)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeCached(w, PromoSummaryResponse{
		Supplier:           q.Supplier,
		Summary:            breakdown.KPIs.Summary,
		TopPerformingSKUs:  breakdown.KPIs.TopPerformingSKUs,
		CommercialInsights: breakdown.Insights,
		TopPromoStores:     breakdown.TopPromoStores,
		CategoryBreakdown:  breakdown.CategoryBreakdown,
		Methodology:        promoMethodology(h.analytics.PromotionOptions()),
	})
}

func promoMethodology(opts services.PromotionOptions) map[string]string {
	return map[string]string{
		"promo_detection":      opts.Describe(),
		"uplift_calculation":   "(Promo quantity - Baseline quantity) / Baseline quantity * 100",
		"coverage_calculation": "Stores running promo / Total stores * 100",
	}
}

type PriceOverall struct {
	PriceIndex              *float64       `json:"price_index"`
	Positioning             string         `json:"positioning"`
	PositioningDistribution map[string]int `json:"positioning_distribution"`
}

type CategoryInsights struct {
	PremiumCategories  []models.CategoryIndex `json:"premium_categories"`
	DiscountCategories []models.CategoryIndex `json:"discount_categories"`
}

type PriceIndexResponse struct {
	Supplier          string                      `json:"supplier"`
	OverallMetrics    PriceOverall                `json:"overall_metrics"`
	TopCategories     []models.CategorySummary    `json:"top_categories"`
	CategoryInsights  CategoryInsights            `json:"category_insights"`
	StrategicInsights []string                    `json:"strategic_insights"`
	Methodology       map[string]string           `json:"methodology"`
	StoreLevelData    []models.StoreCategoryIndex `json:"store_level_data,omitempty"`
}

var priceMethodology = map[string]string{
	"price_index_calculation": "Price Index = (Supplier Avg Unit Price / Market Avg Unit Price) * 100",
	"market_definition":       "All competitors in same Sub-Department + Section + Store",
	"unit_price":              "Total Sales / Quantity (realized transaction price)",
}

func (h *APIHandlers) HandlePriceIndex(w http.ResponseWriter, r *http.Request) {
	q, err := parsePriceQuery(r.URL.Query(), h.defaults.PriceSupplier)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	detail, err := h.analytics.PricingDetail(r.Context(), q.Supplier)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	overall := detail.Overall
	resp := PriceIndexResponse{
		Supplier: q.Supplier,
		OverallMetrics: PriceOverall{
			PriceIndex:              overall.OverallPriceIndex,
			Positioning:             overall.OverallPositioning,
			PositioningDistribution: overall.PositioningDistribution,
		},
		TopCategories: overall.TopCategories,
		CategoryInsights: CategoryInsights{
			PremiumCategories:  overall.PremiumCategories,
			DiscountCategories: overall.DiscountCategories,
		},
		StrategicInsights: detail.Insights,
		Methodology:       priceMethodology,
	}
	if q.View == ViewDetailed {
		resp.StoreLevelData = detail.StoreLevel
	}

	writeCached(w, resp)
}

type SupplierComparisonResponse struct {
	Category  string                      `json:"category"`
	Section   string                      `json:"section,omitempty"`
	Suppliers []models.SupplierComparison `json:"suppliers"`
}

func (h *APIHandlers) HandleSupplierComparison(w http.ResponseWriter, r *http.Request) {
	q, err := parseComparisonQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	suppliers, err := h.analytics.CompareSuppliers(r.Context(), q.Category, q.Section)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeCached(w, SupplierComparisonResponse{
		Category:  q.Category,
		Section:   q.Section,
		Suppliers: suppliers,
	})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]any{
		"status":        "healthy",
		"data_loaded":   h.analytics.Loaded(),
		"records_count": h.analytics.RecordCount(),
		"timestamp":     time.Now().Format(time.RFC3339),
		"version":       "1.0.0",
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}
