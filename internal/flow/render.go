package flow

import (
	"fmt"
	"strings"

	"github.com/nicholascarismo/inventory-checker-bot/internal"
	"github.com/nicholascarismo/inventory-checker-bot/internal/chat"
	"github.com/nicholascarismo/inventory-checker-bot/internal/inventory"
)

const formTitle = "Inventory lookup"

const indexNotReadyNotice = "The inventory index has not been built yet. Try again in a few minutes."

func categoryOptions(idx *inventory.Index, priority []string) []chat.Option {
	seen := map[string]struct{}{}
	var out []chat.Option
	for _, p := range priority {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, present := idx.Categories[p]; !present {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, chat.Option{Value: p, Label: p})
	}
	for _, c := range idx.SortedCategories() {
		if _, dup := seen[c]; dup {
			continue
		}
		out = append(out, chat.Option{Value: c, Label: c})
	}
	return out
}

func subcategoryOptions(idx *inventory.Index, category string, limit int) []chat.Option {
	subs := idx.SortedSubcategories(category)
	if limit > 0 && len(subs) > limit {
		subs = subs[:limit]
	}
	out := make([]chat.Option, 0, len(subs))
	for _, s := range subs {
		out = append(out, chat.Option{Value: s, Label: s})
	}
	return out
}

func renderForm(sess Session, idx *inventory.Index, priority []string, optionLimit int) chat.FormSpec {
	subOpts := []chat.Option{{Value: SubcategoryNone, Label: "Pick a category first"}}
	if sess.Category != "" {
		subOpts = append(subOpts, subcategoryOptions(idx, sess.Category, optionLimit)...)
	}

	return chat.FormSpec{
		Title:       formTitle,
		Destination: sess.Destination,
		Actor:       sess.Actor,
		SubmitLabel: "Check stock",
		Fields: []chat.Field{
			{ID: "category", Label: "Category", Selected: sess.Category, Options: categoryOptions(idx, priority)},
			{ID: "subcategory", Label: "Subcategory", Selected: sess.Subcategory, Options: subOpts},
			{ID: "sort", Label: "Sort by", Selected: string(sess.Sort), Options: []chat.Option{
				{Value: string(internal.SortAlpha), Label: "Name (A to Z)"},
				{Value: string(internal.SortQtyDesc), Label: "Quantity (high to low)"},
			}},
			{ID: "stock", Label: "Stock", Selected: string(sess.Stock), Options: []chat.Option{
				{Value: string(internal.StockInOnly), Label: "In stock only"},
				{Value: string(internal.StockWithOOS), Label: "Include out of stock"},
			}},
		},
	}
}

func noMatchesMessage(sess Session) string {
	return fmt.Sprintf("No matches for %s / %s.", sess.Category, sess.Subcategory)
}

// renderResultChunks caps each message at maxLines variant lines; the header
// rides on the first chunk only.
func renderResultChunks(sess Session, entries []internal.VariantEntry, maxLines int) []string {
	if maxLines <= 0 {
		maxLines = 40
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("• %s: qty %d", e.SKU, e.Available))
	}

	header := fmt.Sprintf("%s / %s: %d variants", sess.Category, sess.Subcategory, len(entries))

	var chunks []string
	for start := 0; start < len(lines); start += maxLines {
		end := start + maxLines
		if end > len(lines) {
			end = len(lines)
		}
		body := strings.Join(lines[start:end], "\n")
		if start == 0 {
			chunks = append(chunks, header+"\n"+body)
		} else {
			chunks = append(chunks, body)
		}
	}
	return chunks
}
