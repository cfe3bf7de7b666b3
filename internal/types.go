package internal

import "strings"

type SortMode string

type StockFilter string

const (
	SortAlpha   SortMode = "alpha"
	SortQtyDesc SortMode = "qty_desc"

	StockInOnly  StockFilter = "in_only"
	StockWithOOS StockFilter = "with_oos"
)

type RawRecord struct {
	SKU          string `json:"sku"`
	Title        string `json:"title"`
	ProductTitle string `json:"productTitle"`
	Available    int    `json:"available"`
}

type VariantEntry struct {
	SKU       string `json:"sku"`
	Suffix    string `json:"suffix"`
	Available int    `json:"available"`
}

func ParseSortMode(v string) (SortMode, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "alpha", "":
		return SortAlpha, true
	case "qty", "qty_desc", "qtydesc":
		return SortQtyDesc, true
	default:
		return "", false
	}
}

func ParseStockFilter(v string) (StockFilter, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "in", "in_only", "instock", "":
		return StockInOnly, true
	case "all", "with_oos", "withoos":
		return StockWithOOS, true
	default:
		return "", false
	}
}
