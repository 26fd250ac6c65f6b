package services

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"retail-insights/internal/models"
)

const (
	topCategoryCount      = 10
	detailCategoryCount   = 20
	extremeCategoryCount  = 5
	storeVarianceWarnStdv = 10
)

// PricingAnalyzer benchmarks a supplier's realized prices against
// competitors in the same store, sub-department and section.
type PricingAnalyzer struct {
	rows []pricedRow
}

type pricedRow struct {
	models.Transaction
	supplier  string
	unitPrice float64
	discount  float64
	hasDisc   bool
}

// NewPricingAnalyzer keeps rows with a unit price and a supplier. RRP is optional.
func NewPricingAnalyzer(ds *models.Dataset) *PricingAnalyzer {
	var rows []pricedRow
	for _, t := range ds.Rows() {
		price, ok := t.UnitPrice()
		if !ok || t.Supplier == nil {
			continue
		}
		disc, hasDisc := t.DiscountPct()
		rows = append(rows, pricedRow{
			Transaction: t,
			supplier:    *t.Supplier,
			unitPrice:   price,
			discount:    disc,
			hasDisc:     hasDisc,
		})
	}
	return &PricingAnalyzer{rows: rows}
}

// Positioning labels an index. Lower bounds are inclusive.
func Positioning(index *float64) string {
	if index == nil {
		return models.PositionNoCompetition
	}
	switch v := *index; {
	case v >= 110:
		return models.PositionPremium
	case v >= 105:
		return models.PositionSlightPremium
	case v >= 95:
		return models.PositionAtMarket
	case v >= 90:
		return models.PositionSlightDiscount
	default:
		return models.PositionDiscount
	}
}

type marketKey struct {
	store, subDept, section string
}

func (k marketKey) compare(o marketKey) int {
	return cmp.Or(
		strings.Compare(k.store, o.store),
		strings.Compare(k.subDept, o.subDept),
		strings.Compare(k.section, o.section),
	)
}

type supplierAgg struct {
	price    meanAcc
	rrp      meanAcc
	discount meanAcc
	qty      float64
	sales    float64
}

func (a *supplierAgg) add(r pricedRow) {
	a.price.add(r.unitPrice)
	// Zero RRPs still count towards the average, only nulls are skipped.
	if r.RRP != nil {
		a.rrp.add(*r.RRP)
	}
	a.discount.addOpt(r.discount, r.hasDisc)
	a.qty += r.Quantity
	a.sales += r.TotalSales
}

// StoreLevelIndex returns one row per store/category where the target sells.
// The market average is the simple mean of every other supplier's mean price.
func (p *PricingAnalyzer) StoreLevelIndex(target string) []models.StoreCategoryIndex {
	perSupplier := make(map[marketKey]map[string]*supplierAgg)
	for _, r := range p.rows {
		k := marketKey{r.Store, r.SubDepartment, r.Section}
		if perSupplier[k] == nil {
			perSupplier[k] = make(map[string]*supplierAgg)
		}
		a := perSupplier[k][r.supplier]
		if a == nil {
			a = &supplierAgg{}
			perSupplier[k][r.supplier] = a
		}
		a.add(r)
	}

	keys := make([]marketKey, 0, len(perSupplier))
	for k := range perSupplier {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, marketKey.compare)

	result := []models.StoreCategoryIndex{}
	for _, k := range keys {
		suppliers := perSupplier[k]
		own, ok := suppliers[target]
		if !ok {
			continue
		}

		row := models.StoreCategoryIndex{
			Store:              k.store,
			SubDepartment:      k.subDept,
			Section:            k.section,
			Supplier:           target,
			AvgUnitPrice:       own.price.value(),
			AvgRRP:             own.rrp.ptr(),
			TotalQuantity:      own.qty,
			TotalSales:         own.sales,
			AvgDiscountFromRRP: own.discount.ptr(),
		}

		var marketPrice, marketRRP meanAcc
		var marketQty float64
		competitors := 0
		for name, a := range suppliers {
			if name == target {
				continue
			}
			competitors++
			marketPrice.add(a.price.value())
			if v := a.rrp.ptr(); v != nil {
				marketRRP.add(*v)
			}
			marketQty += a.qty
		}
		if competitors > 0 {
			row.MarketAvgUnitPrice = marketPrice.ptr()
			row.MarketAvgRRP = marketRRP.ptr()
			row.MarketTotalQuantity = ptrOf(marketQty)
		}

		if m := row.MarketAvgUnitPrice; m != nil && *m > 0 {
			row.PriceIndex = ptrOf(row.AvgUnitPrice / *m * 100)
		}
		row.Positioning = Positioning(row.PriceIndex)

		if m := row.MarketAvgRRP; m != nil && *m > 0 && row.AvgRRP != nil {
			row.RRPVsMarketPct = ptrOf((*row.AvgRRP - *m) / *m * 100)
		}

		result = append(result, row)
	}
	return result
}

// OverallPositioning weights every defined store-level index by the
// target's volume in that store/category.
func (p *PricingAnalyzer) OverallPositioning(target string) models.OverallPositioning {
	return overallPositioning(target, p.StoreLevelIndex(target))
}

func overallPositioning(target string, storeIndex []models.StoreCategoryIndex) models.OverallPositioning {
	var weighted, weights float64
	dist := make(map[string]int)
	for _, r := range storeIndex {
		dist[r.Positioning]++
		if r.PriceIndex == nil {
			continue
		}
		weighted += *r.PriceIndex * r.TotalQuantity
		weights += r.TotalQuantity
	}

	var overall *float64
	if weights > 0 {
		overall = ptrOf(weighted / weights)
	}

	return models.OverallPositioning{
		Supplier:                target,
		OverallPriceIndex:       overall,
		OverallPositioning:      Positioning(overall),
		PositioningDistribution: dist,
		TopCategories:           head(categorySummaries(storeIndex), topCategoryCount),
		PremiumCategories:       extremeCategories(storeIndex, true),
		DiscountCategories:      extremeCategories(storeIndex, false),
	}
}

type categoryKey struct {
	subDept, section string
}

func (k categoryKey) compare(o categoryKey) int {
	return cmp.Or(strings.Compare(k.subDept, o.subDept), strings.Compare(k.section, o.section))
}

// categorySummaries rolls store-level rows up to sub-department and section,
// largest volume first.
func categorySummaries(storeIndex []models.StoreCategoryIndex) []models.CategorySummary {
	type acc struct {
		index, price, market, discount meanAcc
		qty                            float64
	}
	groups := make(map[categoryKey]*acc)
	for _, r := range storeIndex {
		k := categoryKey{r.SubDepartment, r.Section}
		a := groups[k]
		if a == nil {
			a = &acc{}
			groups[k] = a
		}
		if r.PriceIndex != nil {
			a.index.add(*r.PriceIndex)
		}
		a.price.add(r.AvgUnitPrice)
		if r.MarketAvgUnitPrice != nil {
			a.market.add(*r.MarketAvgUnitPrice)
		}
		if r.AvgDiscountFromRRP != nil {
			a.discount.add(*r.AvgDiscountFromRRP)
		}
		a.qty += r.TotalQuantity
	}

	keys := make([]categoryKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, categoryKey.compare)

	result := make([]models.CategorySummary, 0, len(keys))
	for _, k := range keys {
		a := groups[k]
		result = append(result, models.CategorySummary{
			SubDepartment:      k.subDept,
			Section:            k.section,
			PriceIndex:         a.index.ptr(),
			AvgUnitPrice:       a.price.value(),
			MarketAvgUnitPrice: a.market.ptr(),
			TotalQuantity:      a.qty,
			AvgDiscountFromRRP: a.discount.ptr(),
		})
	}
	slices.SortStableFunc(result, func(a, b models.CategorySummary) int {
		return cmp.Compare(b.TotalQuantity, a.TotalQuantity)
	})
	return result
}

// extremeCategories averages the index of premium (or discount) positioned
// rows per category and returns the most extreme five.
func extremeCategories(storeIndex []models.StoreCategoryIndex, premium bool) []models.CategoryIndex {
	groups := make(map[categoryKey]*meanAcc)
	for _, r := range storeIndex {
		if r.PriceIndex == nil || !isExtreme(r.Positioning, premium) {
			continue
		}
		k := categoryKey{r.SubDepartment, r.Section}
		if groups[k] == nil {
			groups[k] = &meanAcc{}
		}
		groups[k].add(*r.PriceIndex)
	}

	result := make([]models.CategoryIndex, 0, len(groups))
	for k, a := range groups {
		result = append(result, models.CategoryIndex{
			SubDepartment: k.subDept,
			Section:       k.section,
			PriceIndex:    a.value(),
		})
	}
	slices.SortFunc(result, func(a, b models.CategoryIndex) int {
		c := cmp.Compare(a.PriceIndex, b.PriceIndex)
		if premium {
			c = -c
		}
		return cmp.Or(c, categoryKey{a.SubDepartment, a.Section}.compare(categoryKey{b.SubDepartment, b.Section}))
	})
	return head(result, extremeCategoryCount)
}

func isExtreme(positioning string, premium bool) bool {
	if premium {
		return positioning == models.PositionPremium || positioning == models.PositionSlightPremium
	}
	return positioning == models.PositionDiscount || positioning == models.PositionSlightDiscount
}

// CompareSuppliers ranks every supplier in a sub-department, optionally
// narrowed to one section, from most to least expensive.
func (p *PricingAnalyzer) CompareSuppliers(category, section string) []models.SupplierComparison {
	type acc struct {
		supplierAgg
		stores set
	}
	groups := make(map[string]*acc)
	var totalQty, totalSales float64
	for _, r := range p.rows {
		if r.SubDepartment != category || (section != "" && r.Section != section) {
			continue
		}
		a := groups[r.supplier]
		if a == nil {
			a = &acc{stores: make(set)}
			groups[r.supplier] = a
		}
		a.add(r)
		a.stores.add(r.Store)
		totalQty += r.Quantity
		totalSales += r.TotalSales
	}

	result := make([]models.SupplierComparison, 0, len(groups))
	for _, name := range sortedKeys(groups) {
		a := groups[name]
		result = append(result, models.SupplierComparison{
			Supplier:           name,
			AvgUnitPrice:       a.price.value(),
			AvgRRP:             a.rrp.ptr(),
			TotalQuantity:      a.qty,
			TotalSales:         a.sales,
			AvgDiscountFromRRP: a.discount.ptr(),
			StoreCount:         len(a.stores),
			QuantitySharePct:   pct(a.qty, totalQty),
			ValueSharePct:      pct(a.sales, totalSales),
		})
	}
	slices.SortStableFunc(result, func(a, b models.SupplierComparison) int {
		return cmp.Compare(b.AvgUnitPrice, a.AvgUnitPrice)
	})
	for i := range result {
		result[i].PriceRank = i + 1
	}
	return result
}

// PricingInsights explains the target's positioning in plain sentences.
func (p *PricingAnalyzer) PricingInsights(target string) []string {
	storeIndex := p.StoreLevelIndex(target)
	return pricingInsights(target, overallPositioning(target, storeIndex), storeIndex)
}

func pricingInsights(target string, overall models.OverallPositioning, storeIndex []models.StoreCategoryIndex) []string {
	insights := []string{}

	if overall.OverallPriceIndex == nil {
		insights = append(insights, fmt.Sprintf(
			"%s has no same-category competitors in any store, so no price index could be computed (%s).",
			target, overall.OverallPositioning))
	} else {
		insights = append(insights, fmt.Sprintf(
			"%s's overall price index is %.1f (%s). Across all categories, %s is positioned %s relative to competitors.",
			target, *overall.OverallPriceIndex, overall.OverallPositioning, target, strings.ToLower(overall.OverallPositioning)))
	}

	if len(overall.PositioningDistribution) > 1 {
		common, count := mostCommon(overall.PositioningDistribution)
		insights = append(insights, fmt.Sprintf(
			"Pricing strategy varies by store: %d observations show '%s' positioning, suggesting inconsistent competitive positioning across markets.",
			count, common))
	}

	if len(overall.PremiumCategories) > 0 {
		top := overall.PremiumCategories[0]
		insights = append(insights, fmt.Sprintf(
			"Highest premium category: %s where %s prices are %.1f%% above market average. Consider if premium pricing is supported by brand strength or if price reductions could drive volume.",
			top.Label(), target, top.PriceIndex-100))
	}

	if len(overall.DiscountCategories) > 0 {
		top := overall.DiscountCategories[0]
		insights = append(insights, fmt.Sprintf(
			"Deepest discount category: %s where %s prices are %.1f%% below market. Evaluate if this aggressive pricing is necessary or if there's opportunity to improve margins.",
			top.Label(), target, 100-top.PriceIndex))
	}

	if stdev, ok := storeIndexStdDev(storeIndex); ok && stdev > storeVarianceWarnStdv {
		insights = append(insights, fmt.Sprintf(
			"Price positioning varies significantly across stores (std dev: %.1f). Consider harmonizing pricing strategy for consistent brand positioning.",
			stdev))
	}
	return insights
}

// mostCommon breaks ties alphabetically so the answer is stable.
func mostCommon(dist map[string]int) (string, int) {
	var best string
	bestCount := -1
	for _, name := range sortedKeys(dist) {
		if dist[name] > bestCount {
			best, bestCount = name, dist[name]
		}
	}
	return best, bestCount
}

// storeIndexStdDev is the sample deviation of each store's mean index.
func storeIndexStdDev(storeIndex []models.StoreCategoryIndex) (float64, bool) {
	perStore := make(map[string]*meanAcc)
	for _, r := range storeIndex {
		if r.PriceIndex == nil {
			continue
		}
		if perStore[r.Store] == nil {
			perStore[r.Store] = &meanAcc{}
		}
		perStore[r.Store].add(*r.PriceIndex)
	}

	means := make([]float64, 0, len(perStore))
	for _, store := range sortedKeys(perStore) {
		means = append(means, perStore[store].value())
	}
	return sampleStdDev(means)
}

// DetailedComparison bundles everything the detailed pricing view needs.
func (p *PricingAnalyzer) DetailedComparison(target string) models.PricingDetail {
	storeIndex := p.StoreLevelIndex(target)
	overall := overallPositioning(target, storeIndex)
	return models.PricingDetail{
		Overall:         overall,
		StoreLevel:      storeIndex,
		CategorySummary: head(categorySummaries(storeIndex), detailCategoryCount),
		Insights:        pricingInsights(target, overall, storeIndex),
	}
}
