package handlers

import (
	"net/url"
	"strings"
	"testing"

	"retail-insights/internal/errors"
	"retail-insights/internal/models"
)

func TestParseQualityQuery(t *testing.T) {
	q, err := parseQualityQuery(url.Values{"min_score": {" 75.5 "}, "category": {"Good"}})
	if err != nil {
		t.Fatalf("parseQualityQuery() error: %v", err)
	}
	if q.MinScore == nil || *q.MinScore != 75.5 {
		t.Errorf("expected min_score 75.5, got %v", q.MinScore)
	}
	if q.Category != "Good" {
		t.Errorf("expected category Good, got %q", q.Category)
	}

	q, err = parseQualityQuery(url.Values{})
	if err != nil || q.MinScore != nil || q.Category != "" {
		t.Errorf("empty query should be valid and unfiltered, got %+v, %v", q, err)
	}

	_, err = parseQualityQuery(url.Values{"min_score": {"-1"}})
	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T", err)
	}
	if appErr.Code != errors.CodeValidation {
		t.Errorf("expected validation error, got %s", appErr.Code)
	}
	if !strings.Contains(appErr.Details, "min_score must be greater than or equal to 0") {
		t.Errorf("unexpected details: %q", appErr.Details)
	}
}

func TestParsePromoQuery(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		want   string
	}{
		{"absent uses default", url.Values{}, "BIDCO"},
		{"explicit supplier", url.Values{"supplier": {" KAPA "}}, "KAPA"},
		{"explicit empty means all", url.Values{"supplier": {""}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := parsePromoQuery(tt.values, "BIDCO")
			if err != nil {
				t.Fatalf("parsePromoQuery() error: %v", err)
			}
			if q.Supplier != tt.want {
				t.Errorf("expected supplier %q, got %q", tt.want, q.Supplier)
			}
		})
	}

	_, err := parsePromoQuery(url.Values{"supplier": {strings.Repeat("x", 201)}}, "BIDCO")
	if err == nil || !strings.Contains(err.(*errors.AppError).Details, "supplier must be at most 200 characters") {
		t.Errorf("expected length validation error, got %v", err)
	}
}

func TestParsePriceQuery(t *testing.T) {
	q, err := parsePriceQuery(url.Values{}, "BIDCO AFRICA LIMITED")
	if err != nil {
		t.Fatalf("parsePriceQuery() error: %v", err)
	}
	if q.Supplier != "BIDCO AFRICA LIMITED" || q.View != ViewSummary {
		t.Errorf("unexpected defaults: %+v", q)
	}

	q, err = parsePriceQuery(url.Values{"view": {"detailed"}, "supplier": {"KAPA"}}, "BIDCO AFRICA LIMITED")
	if err != nil || q.View != ViewDetailed || q.Supplier != "KAPA" {
		t.Errorf("unexpected result: %+v, %v", q, err)
	}

	_, err = parsePriceQuery(url.Values{"view": {"raw"}}, "BIDCO AFRICA LIMITED")
	if err == nil || !strings.Contains(err.(*errors.AppError).Details, "view must be one of: summary, detailed") {
		t.Errorf("expected oneof error, got %v", err)
	}

	_, err = parsePriceQuery(url.Values{}, "")
	if err == nil || !strings.Contains(err.(*errors.AppError).Details, "supplier is required") {
		t.Errorf("expected required error, got %v", err)
	}
}

func TestParseComparisonQuery(t *testing.T) {
	q, err := parseComparisonQuery(url.Values{"category": {"Oils"}, "section": {"Cooking Oil"}})
	if err != nil {
		t.Fatalf("parseComparisonQuery() error: %v", err)
	}
	if q.Category != "Oils" || q.Section != "Cooking Oil" {
		t.Errorf("unexpected result: %+v", q)
	}

	_, err = parseComparisonQuery(url.Values{"section": {"Cooking Oil"}})
	if err == nil || !strings.Contains(err.(*errors.AppError).Details, "category is required") {
		t.Errorf("expected required error, got %v", err)
	}
}

func TestQualityCategoriesMatchValidation(t *testing.T) {
	categories := []string{models.HealthExcellent, models.HealthGood, models.HealthFair, models.HealthPoor}
	for _, category := range categories {
		if _, err := parseQualityQuery(url.Values{"category": {category}}); err != nil {
			t.Errorf("category %q should be accepted: %v", category, err)
		}
	}
}
