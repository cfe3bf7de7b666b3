package report

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nicholascarismo/inventory-checker-bot/internal"
	"github.com/nicholascarismo/inventory-checker-bot/internal/inventory"
)

type Row struct {
	Category    string
	Subcategory string
	SKU         string
	Suffix      string
	Available   int
	Stock       string
}

// CollectRows flattens the snapshot through the query service, so exported
// rows carry the same dedupe and ordering as interactive lookups. Empty
// filters act as wildcards.
func CollectRows(idx *inventory.Index, query *inventory.QueryService, category, subcategory string) []Row {
	category = strings.ToUpper(strings.TrimSpace(category))
	subcategory = strings.ToUpper(strings.TrimSpace(subcategory))

	var rows []Row
	for _, cat := range idx.SortedCategories() {
		if category != "" && cat != category {
			continue
		}
		for _, sub := range idx.SortedSubcategories(cat) {
			if subcategory != "" && sub != subcategory {
				continue
			}
			for _, e := range query.Lookup(cat, sub, internal.SortAlpha, internal.StockWithOOS) {
				stock := "in_stock"
				if e.Available <= 0 {
					stock = "out_of_stock"
				}
				rows = append(rows, Row{
					Category:    cat,
					Subcategory: sub,
					SKU:         e.SKU,
					Suffix:      e.Suffix,
					Available:   e.Available,
					Stock:       stock,
				})
			}
		}
	}
	return rows
}

func ExportRowsToXLSX(rows []Row, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"category", "subcategory", "sku", "suffix", "available", "stock"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.Category)
		set(2, row.Subcategory)
		set(3, row.SKU)
		set(4, row.Suffix)
		set(5, row.Available)
		set(6, row.Stock)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
