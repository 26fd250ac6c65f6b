package handlers

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"retail-insights/internal/errors"
)

const (
	ViewSummary  = "summary"
	ViewDetailed = "detailed"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("query"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

type qualityQuery struct {
	MinScore *float64 `query:"min_score" validate:"omitempty,gte=0,lte=100"`
	Category string   `query:"category" validate:"omitempty,oneof=Excellent Good Fair Poor"`
}

type promoQuery struct {
	Supplier string `query:"supplier" validate:"max=200"`
}

type priceQuery struct {
	Supplier string `query:"supplier" validate:"required,max=200"`
	View     string `query:"view" validate:"oneof=summary detailed"`
}

type comparisonQuery struct {
	Category string `query:"category" validate:"required,max=200"`
	Section  string `query:"section" validate:"max=200"`
}

func parseQualityQuery(values url.Values) (qualityQuery, error) {
	q := qualityQuery{Category: strings.TrimSpace(values.Get("category"))}
	if raw := strings.TrimSpace(values.Get("min_score")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return q, errors.Validation(fmt.Sprintf("min_score must be a number, got %q", raw))
		}
		q.MinScore = &v
	}
	return q, validateQuery(q)
}

// parsePromoQuery falls back to the configured supplier only when the
// parameter is absent; an explicit empty value means every supplier.
func parsePromoQuery(values url.Values, defaultSupplier string) (promoQuery, error) {
	q := promoQuery{Supplier: defaultSupplier}
	if values.Has("supplier") {
		q.Supplier = strings.TrimSpace(values.Get("supplier"))
	}
	return q, validateQuery(q)
}

func parsePriceQuery(values url.Values, defaultSupplier string) (priceQuery, error) {
	q := priceQuery{
		Supplier: strings.TrimSpace(values.Get("supplier")),
		View:     strings.TrimSpace(values.Get("view")),
	}
	if q.Supplier == "" {
		q.Supplier = defaultSupplier
	}
	if q.View == "" {
		q.View = ViewSummary
	}
	return q, validateQuery(q)
}

func parseComparisonQuery(values url.Values) (comparisonQuery, error) {
	q := comparisonQuery{
		Category: strings.TrimSpace(values.Get("category")),
		Section:  strings.TrimSpace(values.Get("section")),
	}
	return q, validateQuery(q)
}

func validateQuery(q any) error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(err, errors.CodeValidation, "invalid query parameters")
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return errors.Validation("invalid query parameters").WithDetails(strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
