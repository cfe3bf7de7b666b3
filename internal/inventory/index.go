package inventory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nicholascarismo/inventory-checker-bot/internal"
	"github.com/nicholascarismo/inventory-checker-bot/internal/sku"
)

type Key struct {
	Category    string
	Subcategory string
}

// Index is one complete snapshot; never mutated after Build returns.
type Index struct {
	Version       string
	BuiltAt       time.Time
	Scanned       int
	Categories    map[string]struct{}
	Subcategories map[string]map[string]struct{}
	InStock       map[Key][]internal.VariantEntry
	OutOfStock    map[Key][]internal.VariantEntry
}

func NewEmptyIndex() *Index {
	return &Index{
		Categories:    map[string]struct{}{},
		Subcategories: map[string]map[string]struct{}{},
		InStock:       map[Key][]internal.VariantEntry{},
		OutOfStock:    map[Key][]internal.VariantEntry{},
	}
}

func (idx *Index) VariantCount() int {
	total := 0
	for _, entries := range idx.InStock {
		total += len(entries)
	}
	for _, entries := range idx.OutOfStock {
		total += len(entries)
	}
	return total
}

func (idx *Index) SortedCategories() []string {
	out := make([]string, 0, len(idx.Categories))
	for c := range idx.Categories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (idx *Index) SortedSubcategories(category string) []string {
	subs := idx.Subcategories[category]
	out := make([]string, 0, len(subs))
	for s := range subs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (idx *Index) register(category, subcategory string) {
	idx.Categories[category] = struct{}{}
	subs, ok := idx.Subcategories[category]
	if !ok {
		subs = map[string]struct{}{}
		idx.Subcategories[category] = subs
	}
	subs[subcategory] = struct{}{}
}

type Page struct {
	Records    []internal.RawRecord
	HasMore    bool
	NextCursor string
}

type PageSource interface {
	FetchPage(ctx context.Context, cursor string) (Page, error)
}

type Builder struct {
	src    PageSource
	parser sku.Parser
	marker string
}

func NewBuilder(src PageSource, parser sku.Parser, internalMarker string) *Builder {
	return &Builder{
		src:    src,
		parser: parser,
		marker: strings.ToUpper(strings.TrimSpace(internalMarker)),
	}
}

// Build walks the remote pages to exhaustion and assembles a fresh snapshot.
// Any fetch error aborts the build; a partial index never escapes.
func (b *Builder) Build(ctx context.Context) (*Index, error) {
	idx := NewEmptyIndex()
	idx.Version = uuid.NewString()
	idx.BuiltAt = time.Now().UTC()

	cursor := ""
	seen := map[string]struct{}{}
	for {
		page, err := b.src.FetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}

		for _, rec := range page.Records {
			idx.Scanned++
			RecordsScanned.Inc()

			parsed, ok := b.parser.Parse(rec.SKU)
			if !ok {
				RecordsRejected.Inc()
				continue
			}

			entry := internal.VariantEntry{
				SKU:       strings.ToUpper(strings.TrimSpace(rec.SKU)),
				Suffix:    parsed.Suffix,
				Available: rec.Available,
			}
			key := Key{Category: parsed.Category, Subcategory: parsed.Subcategory}

			if rec.Available > 0 {
				idx.register(parsed.Category, parsed.Subcategory)
				idx.InStock[key] = append(idx.InStock[key], entry)
				continue
			}
			if b.marker != "" && strings.Contains(strings.ToUpper(rec.ProductTitle), b.marker) {
				// Internal-only stock neither surfaces as out of stock nor registers its key.
				continue
			}
			idx.register(parsed.Category, parsed.Subcategory)
			idx.OutOfStock[key] = append(idx.OutOfStock[key], entry)
		}

		if !page.HasMore || page.NextCursor == "" || len(page.Records) == 0 {
			break
		}
		if _, dup := seen[page.NextCursor]; dup {
			break
		}
		seen[page.NextCursor] = struct{}{}
		cursor = page.NextCursor
	}

	return idx, nil
}
