package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"retail-insights/internal/models"
	"retail-insights/internal/services"
)

type qualityOutput struct {
	Report          *models.QualityReport `json:"report"`
	StoreSummary    models.HealthSummary  `json:"store_summary"`
	SupplierSummary models.HealthSummary  `json:"supplier_summary"`
}

func (c *cli) qualityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quality",
		Short: "Score data quality per store and supplier",
		RunE: func(cmd *cobra.Command, args []string) error {
			category := c.v.GetString("category")
			if category != "" && !slices.Contains([]string{
				models.HealthExcellent, models.HealthGood, models.HealthFair, models.HealthPoor,
			}, category) {
				return fmt.Errorf("unknown health category %q", category)
			}

			ds, err := c.dataset(cmd)
			if err != nil {
				return err
			}

			report := services.NewQualityChecker(ds).SummaryReport()
			filter := services.HealthFilter{Category: category}
			if cmd.Flags().Changed("min-score") {
				minScore := c.v.GetFloat64("min-score")
				filter.MinScore = &minScore
			}
			report.StoreHealth = services.FilterHealth(report.StoreHealth, filter)
			report.SupplierHealth = services.FilterHealth(report.SupplierHealth, filter)

			return c.print(cmd.OutOrStdout(), qualityOutput{
				Report:          report,
				StoreSummary:    services.SummarizeHealth(report.StoreHealth),
				SupplierSummary: services.SummarizeHealth(report.SupplierHealth),
			})
		},
	}
	cmd.Flags().Float64("min-score", 0, "only list entities scoring at least this")
	cmd.Flags().String("category", "", "only list entities in this category (Excellent, Good, Fair, Poor)")
	return cmd
}

type promotionsOutput struct {
	Supplier    string `json:"supplier"`
	Methodology string `json:"methodology"`
	models.PromotionBreakdown
}

func (c *cli) promotionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promotions",
		Short: "Detect promotions and measure uplift, coverage and discount depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := services.PromotionOptions{
				DiscountThreshold: c.v.GetFloat64("discount-threshold"),
				MinDays:           c.v.GetInt("min-days"),
			}
			if opts.DiscountThreshold <= 0 || opts.DiscountThreshold >= 1 {
				return fmt.Errorf("discount threshold must be between 0 and 1, got %g", opts.DiscountThreshold)
			}
			if opts.MinDays < 1 {
				return fmt.Errorf("min days must be at least 1, got %d", opts.MinDays)
			}

			ds, err := c.dataset(cmd)
			if err != nil {
				return err
			}

			supplier := c.v.GetString("supplier")
			return c.print(cmd.OutOrStdout(), promotionsOutput{
				Supplier:           supplier,
				Methodology:        opts.Describe(),
				PromotionBreakdown: services.NewPromotionAnalyzer(ds, opts).SupplierBreakdown(supplier),
			})
		},
	}
	cmd.Flags().String("supplier", "BIDCO", "case-insensitive supplier substring; empty for all suppliers")
	cmd.Flags().Float64("discount-threshold", services.DefaultDiscountThreshold, "minimum discount below RRP for a promo day, as a fraction")
	cmd.Flags().Int("min-days", services.DefaultMinPromoDays, "minimum promo days per store and SKU")
	return cmd
}

func (c *cli) pricingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pricing",
		Short: "Benchmark a supplier's prices against competitors",
		RunE: func(cmd *cobra.Command, args []string) error {
			view := c.v.GetString("view")
			if view != "summary" && view != "detailed" {
				return fmt.Errorf("view must be summary or detailed, got %q", view)
			}

			ds, err := c.dataset(cmd)
			if err != nil {
				return err
			}

			detail := services.NewPricingAnalyzer(ds).DetailedComparison(c.v.GetString("supplier"))
			if view == "summary" {
				detail.StoreLevel = nil
			}
			return c.print(cmd.OutOrStdout(), detail)
		},
	}
	cmd.Flags().String("supplier", "BIDCO AFRICA LIMITED", "exact supplier name to benchmark")
	cmd.Flags().String("view", "summary", "summary or detailed (adds store-level rows)")
	return cmd
}

func (c *cli) compareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Rank suppliers in one sub-department by average unit price",
		RunE: func(cmd *cobra.Command, args []string) error {
			category := c.v.GetString("category")
			if category == "" {
				return fmt.Errorf("--category is required")
			}

			ds, err := c.dataset(cmd)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(),
				services.NewPricingAnalyzer(ds).CompareSuppliers(category, c.v.GetString("section")))
		},
	}
	cmd.Flags().String("category", "", "sub-department to compare")
	cmd.Flags().String("section", "", "optional section within the sub-department")
	return cmd
}
