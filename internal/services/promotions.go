package services

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"retail-insights/internal/models"
)

const (
	DefaultDiscountThreshold = 0.10
	DefaultMinPromoDays      = 2

	topSKUCount        = 10
	topPromoStoreCount = 10

	lowCoveragePct     = 50
	scaleUpUpliftPct   = 50
	scaleUpCoveragePct = 30
)

type PromotionOptions struct {
	// DiscountThreshold is the minimum discount below RRP, as a fraction, for a promo day.
	DiscountThreshold float64
	// MinDays is the minimum number of promo days a store/SKU pair needs across the dataset.
	MinDays int
}

func DefaultPromotionOptions() PromotionOptions {
	return PromotionOptions{
		DiscountThreshold: DefaultDiscountThreshold,
		MinDays:           DefaultMinPromoDays,
	}
}

// Describe renders the detection rule in words.
func (o PromotionOptions) Describe() string {
	return fmt.Sprintf("SKU on promo when unit price is >=%.0f%% below RRP for >=%d days",
		o.DiscountThreshold*100, o.MinDays)
}

// PromotionAnalyzer detects promotional pricing and measures its effect per SKU.
type PromotionAnalyzer struct {
	rows []models.Transaction
	opts PromotionOptions
}

// NewPromotionAnalyzer keeps only rows with a positive quantity and a valid RRP.
func NewPromotionAnalyzer(ds *models.Dataset, opts PromotionOptions) *PromotionAnalyzer {
	var rows []models.Transaction
	for _, t := range ds.Rows() {
		if _, ok := t.UnitPrice(); !ok {
			continue
		}
		if _, ok := t.ValidRRP(); !ok {
			continue
		}
		rows = append(rows, t)
	}
	return &PromotionAnalyzer{rows: rows, opts: opts}
}

func pairKey(t models.Transaction) string {
	return t.Store + "|" + t.ItemCode
}

// DetectPromotions flags promo rows in two passes: discount-day counts per
// store/SKU pair first, then the count is joined back onto every row.
func (p *PromotionAnalyzer) DetectPromotions() []models.PromoRow {
	threshold := p.opts.DiscountThreshold * 100

	out := make([]models.PromoRow, len(p.rows))
	counts := make(map[string]int)
	for i, t := range p.rows {
		price, _ := t.UnitPrice()
		discount, _ := t.DiscountPct()
		out[i] = models.PromoRow{
			Transaction: t,
			UnitPrice:   price,
			DiscountPct: discount,
			IsPromoDay:  discount >= threshold,
		}
		if out[i].IsPromoDay {
			counts[pairKey(t)]++
		}
	}

	for i := range out {
		out[i].PromoDayCount = counts[pairKey(out[i].Transaction)]
		out[i].OnPromotion = out[i].IsPromoDay && out[i].PromoDayCount >= p.opts.MinDays
	}
	return out
}

// supplierMatcher matches rows whose supplier contains filter under Unicode
// case folding. Rows without a supplier never match a non-empty filter.
func supplierMatcher(filter string) func(models.Transaction) bool {
	if filter == "" {
		return func(models.Transaction) bool { return true }
	}
	fold := cases.Fold()
	needle := fold.String(filter)
	return func(t models.Transaction) bool {
		return t.Supplier != nil && strings.Contains(fold.String(*t.Supplier), needle)
	}
}

func (p *PromotionAnalyzer) filtered(filter string) []models.PromoRow {
	rows := p.DetectPromotions()
	if filter == "" {
		return rows
	}
	matches := supplierMatcher(filter)
	return slices.DeleteFunc(rows, func(r models.PromoRow) bool {
		return !matches(r.Transaction)
	})
}

type skuKey struct {
	itemCode    string
	description string
	supplier    string
}

func (k skuKey) compare(o skuKey) int {
	if c := strings.Compare(k.itemCode, o.itemCode); c != 0 {
		return c
	}
	if c := strings.Compare(k.description, o.description); c != 0 {
		return c
	}
	return strings.Compare(k.supplier, o.supplier)
}

// sideAgg is one side (baseline or promo) of a SKU's performance.
type sideAgg struct {
	quantity float64
	sales    float64
	stores   set
	days     set
	price    meanAcc
	rrp      meanAcc
	discount meanAcc
}

// aggregateSide groups the rows whose promotion flag equals onPromo by SKU.
func aggregateSide(rows []models.PromoRow, onPromo bool) map[skuKey]*sideAgg {
	aggs := make(map[skuKey]*sideAgg)
	for _, r := range rows {
		if r.OnPromotion != onPromo || r.Supplier == nil {
			continue
		}
		key := skuKey{r.ItemCode, r.Description, *r.Supplier}
		a := aggs[key]
		if a == nil {
			a = &sideAgg{stores: make(set), days: make(set)}
			aggs[key] = a
		}
		a.quantity += r.Quantity
		a.sales += r.TotalSales
		a.stores.add(r.Store)
		a.days.add(r.SaleDate.Format(models.DateLayout))
		a.price.add(r.UnitPrice)
		rrp, _ := r.ValidRRP()
		a.rrp.add(rrp)
		a.discount.add(r.DiscountPct)
	}
	return aggs
}

// CalculateKPIs joins the baseline and promo aggregates per SKU.
func (p *PromotionAnalyzer) CalculateKPIs(supplierFilter string) models.PromotionKPIs {
	return calculateKPIs(p.filtered(supplierFilter))
}

func calculateKPIs(rows []models.PromoRow) models.PromotionKPIs {
	totalStores := make(set)
	for _, r := range rows {
		totalStores.add(r.Store)
	}

	baseline := aggregateSide(rows, false)
	promo := aggregateSide(rows, true)

	keys := make([]skuKey, 0, len(baseline)+len(promo))
	for k := range baseline {
		keys = append(keys, k)
	}
	for k := range promo {
		if _, ok := baseline[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, skuKey.compare)

	detail := make([]models.SKUPromotion, 0, len(keys))
	for _, k := range keys {
		sku := models.SKUPromotion{
			ItemCode:    k.itemCode,
			Description: k.description,
			Supplier:    k.supplier,
		}
		if b := baseline[k]; b != nil {
			sku.TotalQuantityBaseline = b.quantity
			sku.TotalSalesBaseline = b.sales
			sku.StoreCountBaseline = len(b.stores)
			sku.DayCountBaseline = len(b.days)
			sku.AvgUnitPriceBaseline = b.price.value()
			sku.AvgRRPBaseline = b.rrp.value()
			sku.AvgDiscountPctBaseline = b.discount.value()
		}
		pr := promo[k]
		if pr != nil {
			sku.TotalQuantityPromo = pr.quantity
			sku.TotalSalesPromo = pr.sales
			sku.StoreCountPromo = len(pr.stores)
			sku.DayCountPromo = len(pr.days)
			sku.AvgUnitPricePromo = pr.price.value()
			sku.AvgRRPPromo = pr.rrp.value()
			sku.AvgDiscountPctPromo = pr.discount.value()
		}

		// Uplift is only measured when both sides exist.
		if pr != nil && sku.TotalQuantityBaseline > 0 {
			sku.QuantityUpliftPct = (sku.TotalQuantityPromo - sku.TotalQuantityBaseline) / sku.TotalQuantityBaseline * 100
		}
		sku.PromoCoveragePct = pct(float64(sku.StoreCountPromo), float64(len(totalStores)))

		detail = append(detail, sku)
	}

	top := slices.Clone(detail)
	slices.SortStableFunc(top, func(a, b models.SKUPromotion) int {
		if a.QuantityUpliftPct > b.QuantityUpliftPct {
			return -1
		}
		if a.QuantityUpliftPct < b.QuantityUpliftPct {
			return 1
		}
		return 0
	})

	return models.PromotionKPIs{
		Summary:           summarizePromotions(detail),
		TopPerformingSKUs: head(top, topSKUCount),
		DetailedData:      detail,
	}
}

func summarizePromotions(detail []models.SKUPromotion) models.PromotionSummary {
	summary := models.PromotionSummary{TotalSKUsAnalyzed: len(detail)}
	var uplift, coverage, discount meanAcc
	for _, sku := range detail {
		if sku.PromoCoveragePct > 0 {
			summary.SKUsWithPromos++
		}
		if sku.QuantityUpliftPct > 0 {
			uplift.add(sku.QuantityUpliftPct)
		}
		if sku.AvgDiscountPctPromo > 0 {
			discount.add(sku.AvgDiscountPctPromo)
		}
		coverage.add(sku.PromoCoveragePct)
	}
	summary.AvgPromoUplift = uplift.value()
	summary.AvgPromoCoverage = coverage.value()
	summary.AvgDiscountDepth = discount.value()
	return summary
}

// CommercialInsights turns the KPI table into statements for brand managers.
func (p *PromotionAnalyzer) CommercialInsights(supplierFilter string) []string {
	kpis := p.CalculateKPIs(supplierFilter)
	return commercialInsights(kpis, supplierLabel(supplierFilter))
}

func supplierLabel(filter string) string {
	if filter == "" {
		return "all"
	}
	return filter
}

func commercialInsights(kpis models.PromotionKPIs, label string) []string {
	insights := []string{}
	summary := kpis.Summary

	if summary.AvgPromoUplift > 0 {
		insights = append(insights, fmt.Sprintf(
			"Promotions drive an average %.1f%% quantity uplift for %s SKUs, with an average discount depth of %.1f%%.",
			summary.AvgPromoUplift, label, summary.AvgDiscountDepth))
	}

	if summary.AvgPromoCoverage < lowCoveragePct {
		insights = append(insights, fmt.Sprintf(
			"Promo coverage is low at %.1f%% of stores on average. Expanding promotional execution to more stores could drive significant volume gains.",
			summary.AvgPromoCoverage))
	}

	if len(kpis.TopPerformingSKUs) > 0 {
		top := kpis.TopPerformingSKUs[0]
		insights = append(insights, fmt.Sprintf(
			"Top performer: '%s' delivers %.1f%% uplift with %.1f%% store coverage at %.1f%% discount.",
			top.Description, top.QuantityUpliftPct, top.PromoCoveragePct, top.AvgDiscountPctPromo))
	}

	for _, sku := range kpis.TopPerformingSKUs {
		if sku.QuantityUpliftPct > scaleUpUpliftPct && sku.PromoCoveragePct < scaleUpCoveragePct {
			insights = append(insights, fmt.Sprintf(
				"Opportunity: '%s' shows %.1f%% uplift but only runs in %.1f%% of stores. Scale this promo for higher ROI.",
				sku.Description, sku.QuantityUpliftPct, sku.PromoCoveragePct))
			break
		}
	}
	return insights
}

// SupplierBreakdown is the full promotion view for one filter: KPIs, insights,
// and store and category promo performance, from a single detection pass.
func (p *PromotionAnalyzer) SupplierBreakdown(supplierFilter string) models.PromotionBreakdown {
	rows := p.filtered(supplierFilter)
	kpis := calculateKPIs(rows)
	return models.PromotionBreakdown{
		KPIs:              kpis,
		Insights:          commercialInsights(kpis, supplierLabel(supplierFilter)),
		TopPromoStores:    head(storePromoPerformance(rows), topPromoStoreCount),
		CategoryBreakdown: categoryPromoPerformance(rows),
	}
}

func storePromoPerformance(rows []models.PromoRow) []models.StorePromoPerformance {
	type acc struct {
		qty, sales float64
		skus       set
		discount   meanAcc
	}
	stores := make(map[string]*acc)
	for _, r := range rows {
		if !r.OnPromotion {
			continue
		}
		a := stores[r.Store]
		if a == nil {
			a = &acc{skus: make(set)}
			stores[r.Store] = a
		}
		a.qty += r.Quantity
		a.sales += r.TotalSales
		a.skus.add(r.ItemCode)
		a.discount.add(r.DiscountPct)
	}

	result := make([]models.StorePromoPerformance, 0, len(stores))
	for _, store := range sortedKeys(stores) {
		a := stores[store]
		result = append(result, models.StorePromoPerformance{
			Store:         store,
			PromoQuantity: a.qty,
			PromoSales:    a.sales,
			SKUCount:      len(a.skus),
			AvgDiscount:   a.discount.value(),
		})
	}
	slices.SortStableFunc(result, func(a, b models.StorePromoPerformance) int {
		if a.PromoSales > b.PromoSales {
			return -1
		}
		if a.PromoSales < b.PromoSales {
			return 1
		}
		return 0
	})
	return result
}

func categoryPromoPerformance(rows []models.PromoRow) []models.CategoryPromoPerformance {
	type key struct {
		subDept, section string
		onPromo          bool
	}
	type acc struct {
		qty, sales float64
		discount   meanAcc
	}
	groups := make(map[key]*acc)
	for _, r := range rows {
		k := key{r.SubDepartment, r.Section, r.OnPromotion}
		a := groups[k]
		if a == nil {
			a = &acc{}
			groups[k] = a
		}
		a.qty += r.Quantity
		a.sales += r.TotalSales
		a.discount.add(r.DiscountPct)
	}

	result := make([]models.CategoryPromoPerformance, 0, len(groups))
	for k, a := range groups {
		result = append(result, models.CategoryPromoPerformance{
			SubDepartment:  k.subDept,
			Section:        k.section,
			OnPromotion:    k.onPromo,
			Quantity:       a.qty,
			TotalSales:     a.sales,
			AvgDiscountPct: a.discount.value(),
		})
	}
	slices.SortFunc(result, func(a, b models.CategoryPromoPerformance) int {
		if c := strings.Compare(a.SubDepartment, b.SubDepartment); c != 0 {
			return c
		}
		if c := strings.Compare(a.Section, b.Section); c != 0 {
			return c
		}
		switch {
		case a.OnPromotion == b.OnPromotion:
			return 0
		case !a.OnPromotion:
			return -1
		default:
			return 1
		}
	})
	return result
}
