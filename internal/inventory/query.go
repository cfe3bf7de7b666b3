package inventory

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nicholascarismo/inventory-checker-bot/internal"
)

type queryKey struct {
	version     string
	category    string
	subcategory string
	sort        internal.SortMode
	stock       internal.StockFilter
}

// QueryService answers lookups against the store's current snapshot, caching
// results per snapshot version so a replaced index invalidates old entries.
type QueryService struct {
	store *Store
	cache *lru.Cache[queryKey, []internal.VariantEntry]
}

func NewQueryService(store *Store, cacheSize int) *QueryService {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, _ := lru.New[queryKey, []internal.VariantEntry](cacheSize)
	return &QueryService{store: store, cache: cache}
}

// Lookup returns the deduplicated, ordered variants for one classification
// key. Callers must not mutate the returned slice.
func (q *QueryService) Lookup(category, subcategory string, sortMode internal.SortMode, stock internal.StockFilter) []internal.VariantEntry {
	idx := q.store.Current()
	category = strings.ToUpper(strings.TrimSpace(category))
	subcategory = strings.ToUpper(strings.TrimSpace(subcategory))

	ck := queryKey{version: idx.Version, category: category, subcategory: subcategory, sort: sortMode, stock: stock}
	if cached, ok := q.cache.Get(ck); ok {
		Lookups.WithLabelValues("cached").Inc()
		return cached
	}

	key := Key{Category: category, Subcategory: subcategory}
	entries := make([]internal.VariantEntry, 0, len(idx.InStock[key])+len(idx.OutOfStock[key]))
	entries = append(entries, idx.InStock[key]...)
	if stock == internal.StockWithOOS {
		entries = append(entries, idx.OutOfStock[key]...)
	}

	entries = dedupe(entries)
	sortEntries(entries, sortMode)

	q.cache.Add(ck, entries)
	if len(entries) == 0 {
		Lookups.WithLabelValues("empty").Inc()
	} else {
		Lookups.WithLabelValues("hit").Inc()
	}
	return entries
}

// dedupe keeps the higher available quantity at the first occurrence's position.
func dedupe(entries []internal.VariantEntry) []internal.VariantEntry {
	if len(entries) < 2 {
		return entries
	}
	out := make([]internal.VariantEntry, 0, len(entries))
	pos := map[string]int{}
	for _, e := range entries {
		id := strings.ToUpper(strings.TrimSpace(e.SKU))
		if at, ok := pos[id]; ok {
			if e.Available > out[at].Available {
				out[at] = e
			}
			continue
		}
		pos[id] = len(out)
		out = append(out, e)
	}
	return out
}

func sortEntries(entries []internal.VariantEntry, mode internal.SortMode) {
	switch mode {
	case internal.SortQtyDesc:
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Available > entries[j].Available })
	default:
		sort.SliceStable(entries, func(i, j int) bool { return alphaKey(entries[i]) < alphaKey(entries[j]) })
	}
}

func alphaKey(e internal.VariantEntry) string {
	if e.Suffix != "" {
		return e.Suffix
	}
	return e.SKU
}
