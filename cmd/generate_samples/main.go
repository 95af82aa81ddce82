package main

import (
	"fmt"
	"os"
	"path/filepath"

	"trade-review/internal/service"
)

// Writes sample workbooks for manual testing of the upload endpoints.
func main() {
	outDir := "sample_files"
	if len(os.Args) > 1 {
		outDir = os.Args[1]
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		fmt.Printf("Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	excelService := service.NewExcelService()

	files := []struct {
		name     string
		generate func(f *os.File) error
	}{
		{"sample_packing_list.xlsx", func(f *os.File) error { return excelService.GeneratePackingListTemplate(f) }},
		{"sample_price_list.xlsx", func(f *os.File) error { return excelService.GeneratePriceListTemplate(f) }},
		{"sample_duty_rates.xlsx", func(f *os.File) error { return excelService.GenerateDutyRateTemplate(f) }},
	}

	for _, file := range files {
		path := filepath.Join(outDir, file.name)
		out, err := os.Create(path)
		if err != nil {
			fmt.Printf("Error creating %s: %v\n", path, err)
			os.Exit(1)
		}
		if err := file.generate(out); err != nil {
			out.Close()
			fmt.Printf("Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		out.Close()
		fmt.Printf("Created %s\n", path)
	}
}
