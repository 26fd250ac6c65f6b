package services

import (
	"time"

	"retail-insights/internal/models"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// sale builds a fully populated row. Price is total sales over quantity.
func sale(store, supplier, item string, day int, qty, sales, rrp float64) models.Transaction {
	return models.Transaction{
		Store:         store,
		Supplier:      models.StringPtr(supplier),
		ItemCode:      item,
		Description:   "Item " + item,
		SubDepartment: "Oils",
		Section:       "Cooking Oil",
		SaleDate:      day0.AddDate(0, 0, day),
		Quantity:      qty,
		TotalSales:    sales,
		RRP:           models.FloatPtr(rrp),
	}
}

func inCategory(t models.Transaction, subDept, section string) models.Transaction {
	t.SubDepartment = subDept
	t.Section = section
	return t
}

func newDataset(rows ...models.Transaction) *models.Dataset {
	return models.NewDataset(rows, "test")
}
