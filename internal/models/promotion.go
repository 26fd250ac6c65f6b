package models

// PromoRow is a valid transaction annotated with its promotion state.
type PromoRow struct {
	Transaction
	UnitPrice     float64
	DiscountPct   float64
	IsPromoDay    bool
	PromoDayCount int
	OnPromotion   bool
}

// SKUPromotion holds baseline and promo aggregates side by side for one SKU.
type SKUPromotion struct {
	ItemCode    string `json:"item_code"`
	Description string `json:"description"`
	Supplier    string `json:"supplier"`

	TotalQuantityBaseline  float64 `json:"total_quantity_baseline"`
	TotalQuantityPromo     float64 `json:"total_quantity_promo"`
	TotalSalesBaseline     float64 `json:"total_sales_baseline"`
	TotalSalesPromo        float64 `json:"total_sales_promo"`
	StoreCountBaseline     int     `json:"store_count_baseline"`
	StoreCountPromo        int     `json:"store_count_promo"`
	DayCountBaseline       int     `json:"day_count_baseline"`
	DayCountPromo          int     `json:"day_count_promo"`
	AvgUnitPriceBaseline   float64 `json:"avg_unit_price_baseline"`
	AvgUnitPricePromo      float64 `json:"avg_unit_price_promo"`
	AvgRRPBaseline         float64 `json:"avg_rrp_baseline"`
	AvgRRPPromo            float64 `json:"avg_rrp_promo"`
	AvgDiscountPctBaseline float64 `json:"avg_discount_pct_baseline"`
	AvgDiscountPctPromo    float64 `json:"avg_discount_pct_promo"`

	QuantityUpliftPct float64 `json:"quantity_uplift_pct"`
	PromoCoveragePct  float64 `json:"promo_coverage_pct"`
}

type PromotionSummary struct {
	TotalSKUsAnalyzed int     `json:"total_skus_analyzed"`
	SKUsWithPromos    int     `json:"skus_with_promos"`
	AvgPromoUplift    float64 `json:"avg_promo_uplift"`
	AvgPromoCoverage  float64 `json:"avg_promo_coverage"`
	AvgDiscountDepth  float64 `json:"avg_discount_depth"`
}

type PromotionKPIs struct {
	Summary           PromotionSummary `json:"summary"`
	TopPerformingSKUs []SKUPromotion   `json:"top_performing_skus"`
	DetailedData      []SKUPromotion   `json:"detailed_data"`
}

type StorePromoPerformance struct {
	Store         string  `json:"store"`
	PromoQuantity float64 `json:"promo_quantity"`
	PromoSales    float64 `json:"promo_sales"`
	SKUCount      int     `json:"sku_count"`
	AvgDiscount   float64 `json:"avg_discount"`
}

type CategoryPromoPerformance struct {
	SubDepartment  string  `json:"sub_department"`
	Section        string  `json:"section"`
	OnPromotion    bool    `json:"on_promotion"`
	Quantity       float64 `json:"quantity"`
	TotalSales     float64 `json:"total_sales"`
	AvgDiscountPct float64 `json:"avg_discount_pct"`
}

type PromotionBreakdown struct {
	KPIs              PromotionKPIs              `json:"kpis"`
	Insights          []string                   `json:"commercial_insights"`
	TopPromoStores    []StorePromoPerformance    `json:"top_promo_stores"`
	CategoryBreakdown []CategoryPromoPerformance `json:"category_breakdown"`
}
