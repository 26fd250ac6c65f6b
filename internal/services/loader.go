package services

import (
	"context"
	"encoding/csv"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"retail-insights/internal/models"
)

const (
	batchSize       = 10000
	maxWorkers      = 10
	cacheVersion    = "v2"
	defaultCacheDir = ".cache"
)

var ErrNoValidRows = errors.New("no valid records found")

// dateLayouts are tried in order for text dates. Numeric cells are Excel serials.
var dateLayouts = []string{
	models.DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02-Jan-2006",
	"2 Jan 2006",
}

type LoadOptions struct {
	// Sheet selects the worksheet of an .xlsx file. Empty means the first sheet.
	Sheet    string
	CacheDir string
	UseCache bool
	Logger   *slog.Logger
}

// LoadDataset reads a sales extract (.xlsx or .csv), validates its columns
// and parses rows in parallel batches. Unreadable cells load as null.
func LoadDataset(ctx context.Context, path string, opts LoadOptions) (*models.Dataset, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.CacheDir == "" {
		opts.CacheDir = defaultCacheDir
	}

	if opts.UseCache {
		if snap, err := loadSnapshot(opts.CacheDir, path, opts.Sheet); err == nil {
			info, err := os.Stat(path)
			if err == nil && info.ModTime().Before(snap.CachedAt) {
				logger.Info("loaded dataset from cache", "path", path, "records", len(snap.Rows))
				return models.NewDataset(snap.Rows, path), nil
			}
		}
	}

	start := time.Now()
	records, err := readRecords(path, opts.Sheet)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: empty file", path)
	}

	header := slices.Clone(records[0])
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	index, err := models.ValidateColumns(header)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	rows, invalid, err := parseRecords(ctx, records[1:], index)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read %s: %w", path, ErrNoValidRows)
	}

	duration := time.Since(start)
	logger.Info("dataset loaded",
		"path", path,
		"records", len(rows),
		"invalid_cells", invalid,
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(len(rows))/duration.Seconds()))

	if opts.UseCache {
		if err := saveSnapshot(opts.CacheDir, path, opts.Sheet, rows); err != nil {
			logger.Warn("failed to save cache", "error", err)
		}
	}

	return models.NewDataset(rows, path), nil
}

func readRecords(path, sheet string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(path, sheet)
	case ".csv":
		return readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

func readWorkbook(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if sheet == "" {
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	} else if !slices.Contains(sheets, sheet) {
		return nil, fmt.Errorf("sheet %q not found in %s", sheet, path)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseRecords keeps source order so first-appearance orderings downstream
// are deterministic. It also returns how many cells were unreadable and
// loaded as null.
func parseRecords(ctx context.Context, records [][]string, index map[string]int) ([]models.Transaction, int, error) {
	rows := make([]models.Transaction, 0, len(records))
	invalid := 0

	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		batch, bad, err := parseBatch(ctx, records[start:end], index)
		if err != nil {
			return nil, 0, err
		}
		rows = append(rows, batch...)
		invalid += bad
	}
	return rows, invalid, nil
}

func parseBatch(ctx context.Context, batch [][]string, index map[string]int) ([]models.Transaction, int, error) {
	type parsed struct {
		tx      models.Transaction
		invalid int
		blank   bool
	}
	out := make([]parsed, len(batch))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i, record := range batch {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if isBlank(record) {
				out[i].blank = true
				return nil
			}
			tx, invalid := parseTransaction(record, index)
			out[i] = parsed{tx: tx, invalid: invalid}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	rows := make([]models.Transaction, 0, len(batch))
	invalid := 0
	for _, p := range out {
		if p.blank {
			continue
		}
		rows = append(rows, p.tx)
		invalid += p.invalid
	}
	return rows, invalid, nil
}

// naTokens are the spreadsheet and pandas spellings of an empty cell.
var naTokens = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true, "-1.#QNAN": true,
	"-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true, "<NA>": true, "N/A": true,
	"NA": true, "NULL": true, "NaN": true, "None": true, "n/a": true, "nan": true, "null": true,
}

func isBlank(record []string) bool {
	for _, v := range record {
		if !naTokens[strings.TrimSpace(v)] {
			return false
		}
	}
	return true
}

// parseTransaction never rejects a row. Unreadable numbers and dates load as
// null so the quality checks can report them; the count of such cells is
// returned.
func parseTransaction(record []string, index map[string]int) (models.Transaction, int) {
	field := func(col string) string {
		i := index[col]
		if i >= len(record) {
			return ""
		}
		v := strings.TrimSpace(record[i])
		if naTokens[v] {
			return ""
		}
		return v
	}

	tx := models.Transaction{
		Store:         field(models.ColStore),
		ItemCode:      field(models.ColItemCode),
		Description:   field(models.ColDescription),
		SubDepartment: field(models.ColSubDepartment),
		Section:       field(models.ColSection),
	}
	invalid := 0

	number := func(col string) (float64, bool) {
		s := field(col)
		if s == "" {
			return 0, false
		}
		v, err := parseNumber(s)
		if err != nil {
			invalid++
			return 0, false
		}
		return v, true
	}

	if v, ok := number(models.ColQuantity); ok {
		tx.Quantity = v
	} else {
		tx.Nulls |= models.NullQuantity
	}
	if v, ok := number(models.ColTotalSales); ok {
		tx.TotalSales = v
	} else {
		tx.Nulls |= models.NullTotalSales
	}
	if v, ok := number(models.ColRRP); ok {
		tx.RRP = &v
	}

	if s := field(models.ColSupplier); s != "" {
		tx.Supplier = &s
	}

	if s := field(models.ColSaleDate); s != "" {
		if d, err := parseDate(s); err == nil {
			tx.SaleDate = d
		} else {
			invalid++
		}
	}

	return tx, invalid
}

// parseNumber accepts thousands separators and rejects NaN and infinities.
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return v, nil
}

// parseDate normalizes to midnight UTC; time of day is not part of the model.
func parseDate(s string) (time.Time, error) {
	if serial, err := parseNumber(s); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("date %q: %w", s, err)
		}
		return truncateDay(t), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// snapshot is the parsed input persisted between runs. Analysis results are
// always recomputed.
type snapshot struct {
	Rows     []models.Transaction
	CachedAt time.Time
}

func snapshotFilename(dir, path, sheet string) string {
	key := strings.ReplaceAll(path, string(filepath.Separator), "_")
	if sheet != "" {
		key += "_" + sheet
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.gob", key, cacheVersion))
}

func saveSnapshot(dir, path, sheet string, rows []models.Transaction) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(snapshotFilename(dir, path, sheet))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(snapshot{Rows: rows, CachedAt: time.Now()})
}

func loadSnapshot(dir, path, sheet string) (*snapshot, error) {
	file, err := os.Open(snapshotFilename(dir, path, sheet))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
