package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Column names of the ingestion contract. They are matched exactly.
const (
	ColStore         = "Store Name"
	ColSupplier      = "Supplier"
	ColItemCode      = "Item_Code"
	ColDescription   = "Description"
	ColSubDepartment = "Sub-Department"
	ColSection       = "Section"
	ColSaleDate      = "Date Of Sale"
	ColQuantity      = "Quantity"
	ColTotalSales    = "Total Sales"
	ColRRP           = "RRP"
)

// Columns lists the required columns in contract order.
var Columns = []string{
	ColStore, ColSupplier, ColItemCode, ColDescription, ColSubDepartment,
	ColSection, ColSaleDate, ColQuantity, ColTotalSales, ColRRP,
}

const DateLayout = "2006-01-02"

// NullMask flags numeric columns whose cell was empty or unreadable. A null
// cell is stored as zero with its bit set.
type NullMask uint8

const (
	NullQuantity NullMask = 1 << iota
	NullTotalSales
)

type Transaction struct {
	Store         string
	Supplier      *string
	ItemCode      string
	Description   string
	SubDepartment string
	Section       string
	SaleDate      time.Time
	Quantity      float64
	TotalSales    float64
	RRP           *float64
	Nulls         NullMask
}

func (t Transaction) HasQuantity() bool   { return t.Nulls&NullQuantity == 0 }
func (t Transaction) HasTotalSales() bool { return t.Nulls&NullTotalSales == 0 }

// UnitPrice is defined only for rows with a positive quantity and known sales.
func (t Transaction) UnitPrice() (float64, bool) {
	if !t.HasQuantity() || !t.HasTotalSales() || t.Quantity <= 0 {
		return 0, false
	}
	return t.TotalSales / t.Quantity, true
}

// ValidRRP reports the RRP when it is present and positive.
func (t Transaction) ValidRRP() (float64, bool) {
	if t.RRP == nil || *t.RRP <= 0 {
		return 0, false
	}
	return *t.RRP, true
}

// DiscountPct is the realized discount below RRP, in percent.
func (t Transaction) DiscountPct() (float64, bool) {
	rrp, ok := t.ValidRRP()
	if !ok {
		return 0, false
	}
	price, ok := t.UnitPrice()
	if !ok {
		return 0, false
	}
	return (rrp - price) / rrp * 100, true
}

func (t Transaction) SupplierName() string {
	if t.Supplier == nil {
		return ""
	}
	return *t.Supplier
}

// DedupKey is the natural key shared by duplicate rows.
func (t Transaction) DedupKey() string {
	return t.Store + "|" + t.ItemCode + "|" + t.SaleDate.Format(DateLayout)
}

// IsMissing reports whether the named column is null for this row.
func (t Transaction) IsMissing(column string) bool {
	switch column {
	case ColStore:
		return t.Store == ""
	case ColSupplier:
		return t.Supplier == nil
	case ColItemCode:
		return t.ItemCode == ""
	case ColDescription:
		return t.Description == ""
	case ColSubDepartment:
		return t.SubDepartment == ""
	case ColSection:
		return t.Section == ""
	case ColSaleDate:
		return t.SaleDate.IsZero()
	case ColQuantity:
		return !t.HasQuantity()
	case ColTotalSales:
		return !t.HasTotalSales()
	case ColRRP:
		return t.RRP == nil
	default:
		return false
	}
}

// SchemaError is returned when the source table violates the column contract.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// ValidateColumns checks a header row against the column contract and
// returns the index of every required column.
func ValidateColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}
	return index, nil
}

// Dataset is the read-only transaction table handed to every engine.
type Dataset struct {
	rows     []Transaction
	source   string
	loadedAt time.Time
}

func NewDataset(rows []Transaction, source string) *Dataset {
	return &Dataset{
		rows:     slices.Clone(rows),
		source:   source,
		loadedAt: time.Now(),
	}
}

// Rows returns a private copy of the table.
func (d *Dataset) Rows() []Transaction {
	if d == nil {
		return nil
	}
	return slices.Clone(d.rows)
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

func (d *Dataset) Source() string { return d.source }
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// StringPtr and FloatPtr build nullable fields.
func StringPtr(s string) *string { return &s }
func FloatPtr(f float64) *float64 { return &f }
