package service

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"trade-review/internal/models"
)

// ErrSchemaNotFound is returned when the required logical columns cannot be
// resolved from the header row. The whole ingestion aborts, no partial
// import occurs.
var ErrSchemaNotFound = errors.New("required columns not found")

// Header candidates per logical column, in priority order. Matching is a
// substring scan over normalized header text: the first header containing
// any candidate wins outright.
var (
	packingItemCodeColumns = []string{"item code", "item_code", "code", "product code"}
	quantityColumns        = []string{"quantity", "qty", "amount"}
	packingPriceColumns    = []string{"price", "unit price", "unit_price", "cost"}

	tableItemCodeColumns = []string{"item code", "item_code", "code"}
	priceListColumns     = []string{"price", "unit price", "unit_price"}
	dutyRateColumns      = []string{"rate", "duty rate", "duty_rate", "tax rate"}
)

type ExcelService struct{}

func NewExcelService() *ExcelService {
	return &ExcelService{}
}

// ParsePackingList extracts packing list items from a spreadsheet buffer.
// Every data row is emitted regardless of field problems: absent or
// malformed fields stay nil and contribute a validation error message.
func (s *ExcelService) ParsePackingList(r io.Reader) ([]models.ParsedItem, error) {
	rows, err := readSheet(r)
	if err != nil {
		return nil, err
	}

	headers := normalizeHeaders(rows[0])
	codeCol := findColumn(headers, packingItemCodeColumns)
	qtyCol := findColumn(headers, quantityColumns)
	priceCol := findColumn(headers, packingPriceColumns)
	if codeCol < 0 || qtyCol < 0 || priceCol < 0 {
		return nil, fmt.Errorf("%w. Expected: Item Code, Quantity, Price", ErrSchemaNotFound)
	}

	items := make([]models.ParsedItem, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		item := models.ParsedItem{
			Row:              i,
			ItemCode:         parseCode(getCellValue(row, codeCol)),
			Quantity:         parseNumber(getCellValue(row, qtyCol)),
			Price:            parseNumber(getCellValue(row, priceCol)),
			ValidationErrors: []string{},
		}
		item.ValidationErrors = validateItemFields(item)
		items = append(items, item)
	}

	return items, nil
}

// ParsePriceList extracts an item code to unit price map. Unlike packing
// list parsing, rows with a missing code or a non-positive price are
// dropped from the map and reported by row number instead.
func (s *ExcelService) ParsePriceList(r io.Reader) (*models.TableImportResult, error) {
	rows, err := readSheet(r)
	if err != nil {
		return nil, err
	}

	headers := normalizeHeaders(rows[0])
	codeCol := findColumn(headers, tableItemCodeColumns)
	priceCol := findColumn(headers, priceListColumns)
	if codeCol < 0 || priceCol < 0 {
		return nil, fmt.Errorf("%w. Expected: Item Code, Price", ErrSchemaNotFound)
	}

	result := newTableImportResult(len(rows) - 1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		code := strings.TrimSpace(getCellValue(row, codeCol))
		price := parseNumber(getCellValue(row, priceCol))

		if code != "" && price != nil && *price > 0 {
			result.Values[code] = *price
		} else {
			result.RowErrors = append(result.RowErrors, fmt.Sprintf("Row %d: Invalid item code or price", i))
		}
	}
	result.ValidCount = len(result.Values)

	return result, nil
}

// ParseDutyRates extracts an item code to duty rate map. A zero rate is
// valid (duty free), negative rates are rejected.
func (s *ExcelService) ParseDutyRates(r io.Reader) (*models.TableImportResult, error) {
	rows, err := readSheet(r)
	if err != nil {
		return nil, err
	}

	headers := normalizeHeaders(rows[0])
	codeCol := findColumn(headers, tableItemCodeColumns)
	rateCol := findColumn(headers, dutyRateColumns)
	if codeCol < 0 || rateCol < 0 {
		return nil, fmt.Errorf("%w. Expected: Item Code, Rate", ErrSchemaNotFound)
	}

	result := newTableImportResult(len(rows) - 1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		code := strings.TrimSpace(getCellValue(row, codeCol))
		rate := parseNumber(getCellValue(row, rateCol))

		if code != "" && rate != nil && *rate >= 0 {
			result.Values[code] = *rate
		} else {
			result.RowErrors = append(result.RowErrors, fmt.Sprintf("Row %d: Invalid item code or rate", i))
		}
	}
	result.ValidCount = len(result.Values)

	return result, nil
}

// validateItemFields applies the field checks in fixed order: item code,
// quantity, price. Failing checks accumulate, the row is kept either way.
func validateItemFields(item models.ParsedItem) []string {
	errs := []string{}
	if item.ItemCode == nil {
		errs = append(errs, "Missing item code")
	}
	if item.Quantity == nil || *item.Quantity <= 0 {
		errs = append(errs, "Invalid quantity")
	}
	if item.Price == nil || *item.Price <= 0 {
		errs = append(errs, "Invalid price")
	}
	return errs
}

func readSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file has no header row", ErrSchemaNotFound)
	}

	return rows, nil
}

func normalizeHeaders(header []string) []string {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return normalized
}

// findColumn scans headers in original order and returns the index of the
// first header containing any of the candidate substrings, or -1.
func findColumn(headers []string, candidates []string) int {
	for i, h := range headers {
		for _, name := range candidates {
			if strings.Contains(h, name) {
				return i
			}
		}
	}
	return -1
}

func newTableImportResult(totalRows int) *models.TableImportResult {
	return &models.TableImportResult{
		Values:     map[string]float64{},
		RowErrors:  []string{},
		TotalRows:  totalRows,
		ImportTime: time.Now(),
	}
}

func getCellValue(row []string, index int) string {
	if index < len(row) {
		return row[index]
	}
	return ""
}

// parseCode trims an item code cell, returning nil for an empty cell.
func parseCode(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// parseNumber coerces a numeric cell, tolerating thousand separators.
// Returns nil when the cell is empty or not a number.
func parseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
