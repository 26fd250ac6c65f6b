package models

import "time"

// Health categories, checked from the top.
const (
	HealthExcellent = "Excellent"
	HealthGood      = "Good"
	HealthFair      = "Fair"
	HealthPoor      = "Poor"
)

type MissingValue struct {
	Column       string  `json:"column"`
	MissingCount int     `json:"missing_count"`
	MissingPct   float64 `json:"missing_pct"`
}

type DuplicateCluster struct {
	Store      string    `json:"store"`
	ItemCode   string    `json:"item_code"`
	SaleDate   time.Time `json:"sale_date"`
	Rows       int       `json:"rows"`
	Quantity   float64   `json:"quantity"`
	TotalSales float64   `json:"total_sales"`
}

// OutlierRow is the slim projection reported for a flagged transaction.
type OutlierRow struct {
	Store       string   `json:"store"`
	Supplier    string   `json:"supplier"`
	Description string   `json:"description"`
	SaleDate    string   `json:"sale_date"`
	Quantity    float64  `json:"quantity"`
	TotalSales  float64  `json:"total_sales"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	RRP         *float64 `json:"rrp,omitempty"`
}

// Outlier bucket names.
const (
	OutlierNegativeQuantity = "negative_quantity"
	OutlierZeroQtyWithSales = "zero_qty_with_sales"
	OutlierNegativeSales    = "negative_sales"
	OutlierExtremeHighPrice = "extreme_high_price"
	OutlierExtremeLowPrice  = "extreme_low_price"
)

// OutlierBuckets lists bucket names in reporting order.
var OutlierBuckets = []string{
	OutlierNegativeQuantity,
	OutlierZeroQtyWithSales,
	OutlierNegativeSales,
	OutlierExtremeHighPrice,
	OutlierExtremeLowPrice,
}

type HealthScore struct {
	Entity        string  `json:"entity"`
	TotalRecords  int     `json:"total_records"`
	MissingRate   float64 `json:"missing_rate"`
	OutlierRate   float64 `json:"outlier_rate"`
	DuplicateRate float64 `json:"duplicate_rate"`
	HealthScore   float64 `json:"health_score"`
	Category      string  `json:"category"`
}

type HealthSummary struct {
	Total          int     `json:"total"`
	AvgScore       float64 `json:"avg_score"`
	ExcellentCount int     `json:"excellent_count"`
	PoorCount      int     `json:"poor_count"`
}

type DatasetOverview struct {
	TotalRecords int    `json:"total_records"`
	DateRange    string `json:"date_range"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	NumStores    int    `json:"num_stores"`
	NumSuppliers int    `json:"num_suppliers"`
	NumSKUs      int    `json:"num_skus"`
}

type QualityReport struct {
	Overview               DatasetOverview `json:"overview"`
	MissingValues          []MissingValue  `json:"missing_values"`
	DuplicatesCount        int             `json:"duplicates_count"`
	OutliersSummary        map[string]int  `json:"outliers_summary"`
	StoreHealth            []HealthScore   `json:"store_health"`
	SupplierHealth         []HealthScore   `json:"supplier_health"`
	StoreHealthTop10       []HealthScore   `json:"store_health_top_10"`
	StoreHealthBottom10    []HealthScore   `json:"store_health_bottom_10"`
	SupplierHealthTop10    []HealthScore   `json:"supplier_health_top_10"`
	SupplierHealthBottom10 []HealthScore   `json:"supplier_health_bottom_10"`
	KeyIssues              []string        `json:"key_issues"`
}
