package service

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Template workbooks for the three upload types. Sample rows use codes
// that exist in the matching price list template so a round trip through
// upload and reconciliation succeeds out of the box.

func (s *ExcelService) GeneratePackingListTemplate(w io.Writer) error {
	headers := []string{"Item Code", "Description", "Quantity", "Unit Price"}
	rows := [][]interface{}{
		{"A001", "Product A - Standard", 100, 100.50},
		{"A002", "Product A - Premium", 50, 150.75},
		{"B001", "Product B - Basic", 75, 80.00},
		{"A003", "Product A - Deluxe", 25, 200.25},
		{"B002", "Product B - Premium", 40, 120.00},
	}
	return writeTemplate(w, "Packing List", headers, rows, []float64{12, 30, 12, 12})
}

func (s *ExcelService) GeneratePriceListTemplate(w io.Writer) error {
	headers := []string{"Item Code", "Description", "Unit Price (USD)", "Category"}
	rows := [][]interface{}{
		{"A001", "Product A - Standard", 100.50, "Category A"},
		{"A002", "Product A - Premium", 150.75, "Category A"},
		{"A003", "Product A - Deluxe", 200.25, "Category A"},
		{"B001", "Product B - Basic", 80.00, "Category B"},
		{"B002", "Product B - Premium", 120.00, "Category B"},
	}
	return writeTemplate(w, "Price List", headers, rows, []float64{12, 30, 18, 15})
}

func (s *ExcelService) GenerateDutyRateTemplate(w io.Writer) error {
	headers := []string{"Item Code", "Description", "Duty Rate (%)", "Notes"}
	rows := [][]interface{}{
		{"8471.30.00", "Portable computers", 0.00, "Duty free for educational use"},
		{"8471.41.00", "Processing units", 5.00, "Standard rate applies"},
		{"8471.49.00", "System units", 7.50, "Special rate for assembled units"},
		{"8471.50.00", "Processing units", 10.00, "Higher rate for standalone units"},
		{"8471.60.00", "Input/output units", 2.50, "Reduced rate for peripherals"},
	}
	return writeTemplate(w, "Duty Rates", headers, rows, []float64{14, 25, 14, 35})
}

func writeTemplate(w io.Writer, sheetName string, headers []string, rows [][]interface{}, widths []float64) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	// Write headers
	for i, header := range headers {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(sheetName, cell, header)
	}

	// Set header style
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(headers)-1)), headerStyle)

	// Write sample data
	for rowIdx, rowData := range rows {
		row := rowIdx + 2
		for colIdx, value := range rowData {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	// Set column widths
	for i, width := range widths {
		colName := getColumnName(i)
		f.SetColWidth(sheetName, colName, colName, width)
	}

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	_, err = f.WriteTo(w)
	return err
}

func getColumnName(index int) string {
	result := ""
	for index >= 0 {
		result = string(rune('A'+(index%26))) + result
		index = index/26 - 1
	}
	return result
}
