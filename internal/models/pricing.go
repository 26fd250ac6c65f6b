package models

// Price positioning labels.
const (
	PositionPremium        = "Premium"
	PositionSlightPremium  = "Slight Premium"
	PositionAtMarket       = "At Market"
	PositionSlightDiscount = "Slight Discount"
	PositionDiscount       = "Discount"
	PositionNoCompetition  = "No Competition"
)

// StoreCategoryIndex compares the target supplier with its competitors in
// one store, sub-department and section. Nil pointers mean undefined.
type StoreCategoryIndex struct {
	Store         string `json:"store"`
	SubDepartment string `json:"sub_department"`
	Section       string `json:"section"`
	Supplier      string `json:"supplier"`

	AvgUnitPrice       float64  `json:"avg_unit_price"`
	AvgRRP             *float64 `json:"avg_rrp"`
	TotalQuantity      float64  `json:"total_quantity"`
	TotalSales         float64  `json:"total_sales"`
	AvgDiscountFromRRP *float64 `json:"avg_discount_from_rrp"`

	MarketAvgUnitPrice  *float64 `json:"market_avg_unit_price"`
	MarketAvgRRP        *float64 `json:"market_avg_rrp"`
	MarketTotalQuantity *float64 `json:"market_total_quantity"`

	PriceIndex     *float64 `json:"price_index"`
	Positioning    string   `json:"positioning"`
	RRPVsMarketPct *float64 `json:"rrp_vs_market_pct"`
}

type CategorySummary struct {
	SubDepartment      string   `json:"sub_department"`
	Section            string   `json:"section"`
	PriceIndex         *float64 `json:"price_index"`
	AvgUnitPrice       float64  `json:"avg_unit_price"`
	MarketAvgUnitPrice *float64 `json:"market_avg_unit_price"`
	TotalQuantity      float64  `json:"total_quantity"`
	AvgDiscountFromRRP *float64 `json:"avg_discount_from_rrp"`
}

type CategoryIndex struct {
	SubDepartment string  `json:"sub_department"`
	Section       string  `json:"section"`
	PriceIndex    float64 `json:"price_index"`
}

// Label renders the category as "Sub-Department / Section".
func (c CategoryIndex) Label() string {
	return c.SubDepartment + " / " + c.Section
}

type OverallPositioning struct {
	Supplier                string            `json:"supplier"`
	OverallPriceIndex       *float64          `json:"overall_price_index"`
	OverallPositioning      string            `json:"overall_positioning"`
	PositioningDistribution map[string]int    `json:"positioning_distribution"`
	TopCategories           []CategorySummary `json:"top_categories"`
	PremiumCategories       []CategoryIndex   `json:"premium_categories"`
	DiscountCategories      []CategoryIndex   `json:"discount_categories"`
}

type SupplierComparison struct {
	Supplier           string   `json:"supplier"`
	AvgUnitPrice       float64  `json:"avg_unit_price"`
	AvgRRP             *float64 `json:"avg_rrp"`
	TotalQuantity      float64  `json:"total_quantity"`
	TotalSales         float64  `json:"total_sales"`
	AvgDiscountFromRRP *float64 `json:"avg_discount_from_rrp"`
	StoreCount         int      `json:"store_count"`
	QuantitySharePct   float64  `json:"quantity_share_pct"`
	ValueSharePct      float64  `json:"value_share_pct"`
	PriceRank          int      `json:"price_rank"`
}

type PricingDetail struct {
	Overall         OverallPositioning   `json:"overall_metrics"`
	StoreLevel      []StoreCategoryIndex `json:"store_level_data"`
	CategorySummary []CategorySummary    `json:"category_summary"`
	Insights        []string             `json:"pricing_insights"`
}
