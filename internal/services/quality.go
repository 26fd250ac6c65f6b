package services

import (
	"fmt"
	"slices"
	"strings"

	"retail-insights/internal/models"
)

// Health score weights. They sum to 100.
const (
	missingWeight   = 30
	outlierWeight   = 40
	duplicateWeight = 30

	extremeHighFactor = 10
	extremeLowFactor  = 0.01

	healthListSize = 10
	poorThreshold  = 60
)

// QualityChecker scores how trustworthy the dataset is per store and supplier.
type QualityChecker struct {
	rows []models.Transaction
}

func NewQualityChecker(ds *models.Dataset) *QualityChecker {
	return &QualityChecker{rows: ds.Rows()}
}

// HealthCategory maps a score to its band. Lower bounds are inclusive.
func HealthCategory(score float64) string {
	switch {
	case score >= 90:
		return models.HealthExcellent
	case score >= 75:
		return models.HealthGood
	case score >= 60:
		return models.HealthFair
	default:
		return models.HealthPoor
	}
}

func (q *QualityChecker) MissingValues() []models.MissingValue {
	result := []models.MissingValue{}
	if len(q.rows) == 0 {
		return result
	}

	for _, col := range models.Columns {
		count := 0
		for _, t := range q.rows {
			if t.IsMissing(col) {
				count++
			}
		}
		if count > 0 {
			result = append(result, models.MissingValue{
				Column:       col,
				MissingCount: count,
				MissingPct:   pct(float64(count), float64(len(q.rows))),
			})
		}
	}
	return result
}

// Duplicates returns every natural-key group with more than one member.
func (q *QualityChecker) Duplicates() []models.DuplicateCluster {
	clusters := make(map[string]*models.DuplicateCluster)
	for _, t := range q.rows {
		key := t.DedupKey()
		c := clusters[key]
		if c == nil {
			c = &models.DuplicateCluster{
				Store:    t.Store,
				ItemCode: t.ItemCode,
				SaleDate: t.SaleDate,
			}
			clusters[key] = c
		}
		c.Rows++
		c.Quantity += t.Quantity
		c.TotalSales += t.TotalSales
	}

	result := []models.DuplicateCluster{}
	for _, key := range sortedKeys(clusters) {
		if c := clusters[key]; c.Rows > 1 {
			result = append(result, *c)
		}
	}
	return result
}

// Outliers flags suspicious rows into independent buckets. Empty buckets are omitted.
func (q *QualityChecker) Outliers() map[string][]models.OutlierRow {
	buckets := make(map[string][]models.OutlierRow)
	for _, t := range q.rows {
		if t.Quantity < 0 {
			buckets[models.OutlierNegativeQuantity] = append(buckets[models.OutlierNegativeQuantity], outlierRow(t))
		}
		if zeroQtyWithSales(t) {
			buckets[models.OutlierZeroQtyWithSales] = append(buckets[models.OutlierZeroQtyWithSales], outlierRow(t))
		}
		if t.TotalSales < 0 {
			buckets[models.OutlierNegativeSales] = append(buckets[models.OutlierNegativeSales], outlierRow(t))
		}

		price, ok := t.UnitPrice()
		if !ok {
			continue
		}
		rrp, ok := t.ValidRRP()
		if !ok {
			continue
		}
		switch {
		case price > rrp*extremeHighFactor:
			buckets[models.OutlierExtremeHighPrice] = append(buckets[models.OutlierExtremeHighPrice], outlierRow(t))
		case price < rrp*extremeLowFactor:
			buckets[models.OutlierExtremeLowPrice] = append(buckets[models.OutlierExtremeLowPrice], outlierRow(t))
		}
	}
	return buckets
}

func zeroQtyWithSales(t models.Transaction) bool {
	return t.HasQuantity() && t.Quantity == 0 && t.HasTotalSales() && t.TotalSales > 0
}

func outlierRow(t models.Transaction) models.OutlierRow {
	row := models.OutlierRow{
		Store:       t.Store,
		Supplier:    t.SupplierName(),
		Description: t.Description,
		Quantity:    t.Quantity,
		TotalSales:  t.TotalSales,
		RRP:         t.RRP,
	}
	if !t.SaleDate.IsZero() {
		row.SaleDate = t.SaleDate.Format(models.DateLayout)
	}
	if price, ok := t.UnitPrice(); ok {
		row.UnitPrice = &price
	}
	return row
}

func (q *QualityChecker) OutlierSummary() map[string]int {
	summary := make(map[string]int)
	for name, rows := range q.Outliers() {
		summary[name] = len(rows)
	}
	return summary
}

// healthRule describes how one entity type is scored.
type healthRule struct {
	key            func(models.Transaction) (string, bool)
	criticalFields []string
	zeroQtyOutlier bool
}

var storeRule = healthRule{
	key:            func(t models.Transaction) (string, bool) { return t.Store, true },
	criticalFields: []string{models.ColSupplier, models.ColRRP},
}

var supplierRule = healthRule{
	key: func(t models.Transaction) (string, bool) {
		if t.Supplier == nil {
			return "", false
		}
		return *t.Supplier, true
	},
	criticalFields: []string{models.ColRRP},
	zeroQtyOutlier: true,
}

func (q *QualityChecker) StoreHealth() []models.HealthScore {
	return q.health(storeRule)
}

func (q *QualityChecker) SupplierHealth() []models.HealthScore {
	return q.health(supplierRule)
}

func (q *QualityChecker) health(rule healthRule) []models.HealthScore {
	groups := make(map[string][]models.Transaction)
	var order []string
	for _, t := range q.rows {
		key, ok := rule.key(t)
		if !ok {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], t)
	}

	scores := make([]models.HealthScore, 0, len(order))
	for _, key := range order {
		scores = append(scores, scoreGroup(key, groups[key], rule))
	}

	slices.SortStableFunc(scores, func(a, b models.HealthScore) int {
		if a.HealthScore > b.HealthScore {
			return -1
		}
		if a.HealthScore < b.HealthScore {
			return 1
		}
		return 0
	})
	return scores
}

func scoreGroup(entity string, rows []models.Transaction, rule healthRule) models.HealthScore {
	total := float64(len(rows))

	var missing, outliers, duplicates int
	seen := make(set)
	for _, t := range rows {
		for _, col := range rule.criticalFields {
			if t.IsMissing(col) {
				missing++
			}
		}

		if t.Quantity < 0 {
			outliers++
		}
		if t.TotalSales < 0 {
			outliers++
		}
		if rule.zeroQtyOutlier && zeroQtyWithSales(t) {
			outliers++
		}

		key := t.DedupKey()
		if _, dup := seen[key]; dup {
			duplicates++
		} else {
			seen.add(key)
		}
	}

	missingRate := float64(missing) / (total * float64(len(rule.criticalFields)))
	outlierRate := float64(outliers) / total
	dupRate := float64(duplicates) / total

	score := max(0, (1-missingRate)*missingWeight) +
		max(0, (1-outlierRate)*outlierWeight) +
		max(0, (1-dupRate)*duplicateWeight)

	return models.HealthScore{
		Entity:        entity,
		TotalRecords:  len(rows),
		MissingRate:   round2(missingRate * 100),
		OutlierRate:   round2(outlierRate * 100),
		DuplicateRate: round2(dupRate * 100),
		HealthScore:   round2(score),
		Category:      HealthCategory(score),
	}
}

// HealthFilter narrows health scores the way the data-quality endpoint does.
type HealthFilter struct {
	MinScore *float64
	Category string
}

func FilterHealth(scores []models.HealthScore, f HealthFilter) []models.HealthScore {
	result := make([]models.HealthScore, 0, len(scores))
	for _, s := range scores {
		if f.MinScore != nil && s.HealthScore < *f.MinScore {
			continue
		}
		if f.Category != "" && s.Category != f.Category {
			continue
		}
		result = append(result, s)
	}
	return result
}

func SummarizeHealth(scores []models.HealthScore) models.HealthSummary {
	summary := models.HealthSummary{Total: len(scores)}
	var avg meanAcc
	for _, s := range scores {
		avg.add(s.HealthScore)
		switch s.Category {
		case models.HealthExcellent:
			summary.ExcellentCount++
		case models.HealthPoor:
			summary.PoorCount++
		}
	}
	summary.AvgScore = round2(avg.value())
	return summary
}

func (q *QualityChecker) Overview() models.DatasetOverview {
	stores, suppliers, skus := make(set), make(set), make(set)
	var first, last string
	for _, t := range q.rows {
		if t.Store != "" {
			stores.add(t.Store)
		}
		if t.Supplier != nil {
			suppliers.add(*t.Supplier)
		}
		if t.ItemCode != "" {
			skus.add(t.ItemCode)
		}
		if t.SaleDate.IsZero() {
			continue
		}
		d := t.SaleDate.Format(models.DateLayout)
		if first == "" || d < first {
			first = d
		}
		if last == "" || d > last {
			last = d
		}
	}

	overview := models.DatasetOverview{
		TotalRecords: len(q.rows),
		StartDate:    first,
		EndDate:      last,
		NumStores:    len(stores),
		NumSuppliers: len(suppliers),
		NumSKUs:      len(skus),
	}
	if first != "" {
		overview.DateRange = first + " to " + last
	}
	return overview
}

func (q *QualityChecker) SummaryReport() *models.QualityReport {
	missing := q.MissingValues()
	duplicates := q.Duplicates()
	outliers := q.OutlierSummary()
	storeHealth := q.StoreHealth()
	supplierHealth := q.SupplierHealth()

	return &models.QualityReport{
		Overview:               q.Overview(),
		MissingValues:          missing,
		DuplicatesCount:        len(duplicates),
		OutliersSummary:        outliers,
		StoreHealth:            storeHealth,
		SupplierHealth:         supplierHealth,
		StoreHealthTop10:       head(storeHealth, healthListSize),
		StoreHealthBottom10:    tail(storeHealth, healthListSize),
		SupplierHealthTop10:    head(supplierHealth, healthListSize),
		SupplierHealthBottom10: tail(supplierHealth, healthListSize),
		KeyIssues:              keyIssues(missing, len(duplicates), outliers, storeHealth, supplierHealth),
	}
}

func keyIssues(missing []models.MissingValue, duplicates int, outliers map[string]int,
	storeHealth, supplierHealth []models.HealthScore) []string {

	issues := []string{}
	for _, m := range missing {
		if m.Column == models.ColSupplier || m.Column == models.ColRRP {
			issues = append(issues, fmt.Sprintf("%s: %d missing (%.2f%%)", m.Column, m.MissingCount, m.MissingPct))
		}
	}

	if duplicates > 0 {
		issues = append(issues, fmt.Sprintf("Found %d duplicate records", duplicates))
	}

	for _, name := range models.OutlierBuckets {
		if n := outliers[name]; n > 0 {
			issues = append(issues, fmt.Sprintf("%s: %d records", name, n))
		}
	}

	if n := countBelow(storeHealth, poorThreshold); n > 0 {
		issues = append(issues, fmt.Sprintf("%d stores with poor data quality (score < %d)", n, poorThreshold))
	}
	if n := countBelow(supplierHealth, poorThreshold); n > 0 {
		issues = append(issues, fmt.Sprintf("%d suppliers with poor data quality (score < %d)", n, poorThreshold))
	}
	return issues
}

func countBelow(scores []models.HealthScore, threshold float64) int {
	n := 0
	for _, s := range scores {
		if s.HealthScore < threshold {
			n++
		}
	}
	return n
}

// DescribeIssues renders key issues for display, including the empty case.
func DescribeIssues(issues []string) string {
	if len(issues) == 0 {
		return "none found"
	}
	return strings.Join(issues, "; ")
}
