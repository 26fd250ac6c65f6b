package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_UnitPrice(t *testing.T) {
	tests := []struct {
		name  string
		qty   float64
		sales float64
		want  float64
		ok    bool
	}{
		{"positive quantity", 4, 100, 25, true},
		{"zero quantity", 0, 100, 0, false},
		{"negative quantity", -5, 100, 0, false},
		{"zero sales", 2, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Transaction{Quantity: tt.qty, TotalSales: tt.sales}.UnitPrice()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransaction_DiscountPct(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want float64
		ok   bool
	}{
		{"below rrp", Transaction{Quantity: 1, TotalSales: 75, RRP: FloatPtr(100)}, 25, true},
		{"above rrp", Transaction{Quantity: 1, TotalSales: 125, RRP: FloatPtr(100)}, -25, true},
		{"missing rrp", Transaction{Quantity: 1, TotalSales: 75}, 0, false},
		{"zero rrp", Transaction{Quantity: 1, TotalSales: 75, RRP: FloatPtr(0)}, 0, false},
		{"negative rrp", Transaction{Quantity: 1, TotalSales: 75, RRP: FloatPtr(-1)}, 0, false},
		{"no unit price", Transaction{Quantity: 0, TotalSales: 75, RRP: FloatPtr(100)}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.tx.DiscountPct()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransaction_IsMissing(t *testing.T) {
	tx := Transaction{Store: "S1", ItemCode: "1"}
	assert.False(t, tx.IsMissing(ColStore))
	assert.True(t, tx.IsMissing(ColSupplier))
	assert.True(t, tx.IsMissing(ColRRP))
	assert.True(t, tx.IsMissing(ColSaleDate))
	assert.False(t, tx.IsMissing(ColQuantity))
	assert.Equal(t, "", tx.SupplierName())

	tx.Supplier = StringPtr("BIDCO")
	tx.SaleDate = time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	assert.False(t, tx.IsMissing(ColSupplier))
	assert.Equal(t, "BIDCO", tx.SupplierName())
	assert.Equal(t, "S1|1|2024-02-29", tx.DedupKey())
}

func TestTransaction_NullNumbers(t *testing.T) {
	tx := Transaction{Quantity: 2, TotalSales: 100, RRP: FloatPtr(60)}
	_, ok := tx.UnitPrice()
	require.True(t, ok)

	noSales := tx
	noSales.TotalSales = 0
	noSales.Nulls = NullTotalSales
	_, ok = noSales.UnitPrice()
	assert.False(t, ok)
	_, ok = noSales.DiscountPct()
	assert.False(t, ok)
	assert.True(t, noSales.IsMissing(ColTotalSales))
	assert.False(t, noSales.IsMissing(ColQuantity))

	noQty := tx
	noQty.Quantity = 0
	noQty.Nulls = NullQuantity
	assert.True(t, noQty.IsMissing(ColQuantity))
	assert.False(t, noQty.HasQuantity())
	assert.True(t, noQty.HasTotalSales())
}

func TestValidateColumns(t *testing.T) {
	header := []string{" RRP", "Store Name", "Supplier", "Item_Code", "Description", "Sub-Department",
		"Section", "Date Of Sale", "Quantity", "Total Sales ", "Extra"}

	index, err := ValidateColumns(header)
	require.NoError(t, err)
	assert.Equal(t, 0, index[ColRRP])
	assert.Equal(t, 9, index[ColTotalSales])

	_, err = ValidateColumns([]string{"Store Name", "Quantity"})
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Len(t, schemaErr.Missing, len(Columns)-2)
	assert.Contains(t, err.Error(), "missing required columns: Supplier, Item_Code")

	_, err = ValidateColumns([]string{"store name", "supplier"})
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Missing, ColStore)
}

func TestDataset(t *testing.T) {
	rows := []Transaction{{Store: "S1"}, {Store: "S2"}}
	ds := NewDataset(rows, "memory")
	rows[0].Store = "changed"

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, "memory", ds.Source())
	assert.False(t, ds.LoadedAt().IsZero())

	got := ds.Rows()
	assert.Equal(t, "S1", got[0].Store)
	got[1].Store = "changed"
	assert.Equal(t, "S2", ds.Rows()[1].Store)

	var empty *Dataset
	assert.Zero(t, empty.Len())
	assert.Nil(t, empty.Rows())
}
