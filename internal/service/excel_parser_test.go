package service

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes the rows into the first sheet of an in-memory
// workbook and returns it as a reader.
func buildWorkbook(t *testing.T, rows [][]interface{}) io.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, value))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestParsePackingList(t *testing.T) {
	svc := NewExcelService()

	r := buildWorkbook(t, [][]interface{}{
		{"Item Code", "Quantity", "Price"},
		{"A001", 10, 100.50},
		{"B002", 5, 120.00},
	})

	items, err := svc.ParsePackingList(r)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, 1, items[0].Row)
	require.NotNil(t, items[0].ItemCode)
	assert.Equal(t, "A001", *items[0].ItemCode)
	require.NotNil(t, items[0].Quantity)
	assert.Equal(t, float64(10), *items[0].Quantity)
	require.NotNil(t, items[0].Price)
	assert.Equal(t, 100.50, *items[0].Price)
	assert.Empty(t, items[0].ValidationErrors)

	assert.Equal(t, 2, items[1].Row)
	assert.Equal(t, "B002", *items[1].ItemCode)
}

func TestParsePackingListHeaderVariants(t *testing.T) {
	svc := NewExcelService()

	cases := []struct {
		name    string
		headers []interface{}
	}{
		{"exact", []interface{}{"Item Code", "Quantity", "Price"}},
		{"underscores", []interface{}{"item_code", "qty", "unit_price"}},
		{"padded mixed case", []interface{}{"  Item_Code  ", "AMOUNT", "Cost"}},
		{"substring", []interface{}{"Product Code (SKU)", "Order Quantity", "Unit Price (USD)"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := buildWorkbook(t, [][]interface{}{
				tc.headers,
				{"A001", 1, 100.50},
			})
			items, err := svc.ParsePackingList(r)
			require.NoError(t, err)
			require.Len(t, items, 1)
			require.NotNil(t, items[0].ItemCode)
			assert.Equal(t, "A001", *items[0].ItemCode)
			assert.Empty(t, items[0].ValidationErrors)
		})
	}
}

func TestParsePackingListKeepsInvalidRows(t *testing.T) {
	svc := NewExcelService()

	r := buildWorkbook(t, [][]interface{}{
		{"Item Code", "Quantity", "Price"},
		{"A001", 10, 100.50},
		{"", 5, 120.00},
		{"C003", "abc", 50.00},
		{"D004", 2, -1},
	})

	items, err := svc.ParsePackingList(r)
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Empty(t, items[0].ValidationErrors)

	assert.Nil(t, items[1].ItemCode)
	assert.Equal(t, []string{"Missing item code"}, items[1].ValidationErrors)

	assert.Nil(t, items[2].Quantity)
	assert.Equal(t, []string{"Invalid quantity"}, items[2].ValidationErrors)

	assert.Equal(t, []string{"Invalid price"}, items[3].ValidationErrors)
}

func TestParsePackingListMultipleFieldErrors(t *testing.T) {
	svc := NewExcelService()

	r := buildWorkbook(t, [][]interface{}{
		{"Item Code", "Quantity", "Price"},
		{"", "x", "y"},
	})

	items, err := svc.ParsePackingList(r)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"Missing item code", "Invalid quantity", "Invalid price"}, items[0].ValidationErrors)
}

func TestParsePackingListThousandSeparators(t *testing.T) {
	svc := NewExcelService()

	r := buildWorkbook(t, [][]interface{}{
		{"Item Code", "Quantity", "Price"},
		{"A001", "1,000", "1,234.56"},
	})

	items, err := svc.ParsePackingList(r)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Quantity)
	assert.Equal(t, float64(1000), *items[0].Quantity)
	require.NotNil(t, items[0].Price)
	assert.Equal(t, 1234.56, *items[0].Price)
}

func TestParsePackingListSchemaNotFound(t *testing.T) {
	svc := NewExcelService()

	r := buildWorkbook(t, [][]interface{}{
		{"Description", "Weight", "Origin"},
		{"widget", 12, "CN"},
	})

	_, err := svc.ParsePackingList(r)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaNotFound)
	assert.Contains(t, err.Error(), "Expected: Item Code, Quantity, Price")
}

func TestParsePriceListDropsBadRows(t *testing.T) {
	svc := NewExcelService()

	r := buildWorkbook(t, [][]interface{}{
		{"Item Code", "Unit Price"},
		{"A001", 100.50},
		{"A002", 150.75},
		{"", 99.00},
		{"B001", -5},
		{"B002", 120.00},
	})

	result, err := svc.ParsePriceList(r)
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalRows)
	assert.Equal(t, 3, result.ValidCount)
	assert.Equal(t, map[string]float64{
		"A001": 100.50,
		"A002": 150.75,
		"B002": 120.00,
	}, result.Values)
	assert.Equal(t, []string{
		"Row 3: Invalid item code or price",
		"Row 4: Invalid item code or price",
	}, result.RowErrors)
}

func TestParsePriceListRejectsZeroPrice(t *testing.T) {
	svc := NewExcelService()

	r := buildWorkbook(t, [][]interface{}{
		{"Code", "Price"},
		{"A001", 0},
	})

	result, err := svc.ParsePriceList(r)
	require.NoError(t, err)
	assert.Empty(t, result.Values)
	assert.Equal(t, []string{"Row 1: Invalid item code or price"}, result.RowErrors)
}

func TestParseDutyRatesAcceptsZeroRate(t *testing.T) {
	svc := NewExcelService()

	r := buildWorkbook(t, [][]interface{}{
		{"Item Code", "Duty Rate"},
		{"8471.30", 0},
		{"6204.43", 12.5},
		{"9999.99", -1},
	})

	result, err := svc.ParseDutyRates(r)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		"8471.30": 0,
		"6204.43": 12.5,
	}, result.Values)
	assert.Equal(t, []string{"Row 3: Invalid item code or rate"}, result.RowErrors)
}

func TestParsePriceListSchemaNotFound(t *testing.T) {
	svc := NewExcelService()

	r := buildWorkbook(t, [][]interface{}{
		{"SKU Number", "Value"},
	})

	_, err := svc.ParsePriceList(r)
	assert.ErrorIs(t, err, ErrSchemaNotFound)
	assert.Contains(t, err.Error(), "Expected: Item Code, Price")
}

func TestReadSheetRejectsGarbage(t *testing.T) {
	svc := NewExcelService()

	_, err := svc.ParsePackingList(bytes.NewReader([]byte("not a spreadsheet")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open Excel file")
}

func TestFindColumnPriority(t *testing.T) {
	// The first matching header wins, scanning headers in order.
	headers := normalizeHeaders([]string{"Barcode", "Quantity", "Price"})
	assert.Equal(t, 0, findColumn(headers, packingItemCodeColumns))

	headers = normalizeHeaders([]string{"Description", "Item Code", "Price"})
	assert.Equal(t, 1, findColumn(headers, packingItemCodeColumns))

	assert.Equal(t, -1, findColumn(normalizeHeaders([]string{"a", "b"}), quantityColumns))
}

func TestParseNumber(t *testing.T) {
	assert.Nil(t, parseNumber(""))
	assert.Nil(t, parseNumber("  "))
	assert.Nil(t, parseNumber("abc"))

	v := parseNumber(" 42.5 ")
	require.NotNil(t, v)
	assert.Equal(t, 42.5, *v)
}
