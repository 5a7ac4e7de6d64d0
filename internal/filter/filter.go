package filter

import (
	"slices"

	"section8map/internal/dataset"
	"section8map/internal/logger"
	"section8map/internal/memo"
	"section8map/internal/metrics"
	"section8map/internal/types"
)

// Engine narrows a table by region and subregion, memoizing every result by
// its exact arguments.
type Engine struct {
	cache *memo.Cache[*dataset.Table]
}

// NewEngine creates an engine with an empty cache. m may be nil.
func NewEngine(m *metrics.Metrics) *Engine {
	c := memo.New[*dataset.Table]()
	c.OnHit = m.IncCacheHit
	c.OnMiss = m.IncCacheMiss
	return &Engine{cache: c}
}

// Filter returns the rows of t in region (when non-empty) whose subregion is in
// subregions (when non-empty). dwellingTypes takes part in the cache key but is
// not applied here; dwelling type is narrowed per county by the render pass.
func (e *Engine) Filter(t *dataset.Table, region string, subregions, dwellingTypes []string) *dataset.Table {
	key, err := memo.Key(t.ID(), region, canonical(subregions), canonical(dwellingTypes))
	if err != nil {
		logger.Log.Warnf("filter: %v; computing without cache", err)
		return Apply(t, region, subregions, dwellingTypes)
	}
	return e.cache.GetOrCompute(key, func() *dataset.Table {
		return Apply(t, region, subregions, dwellingTypes)
	})
}

// CachedResults reports how many distinct argument tuples have been computed.
func (e *Engine) CachedResults() int {
	return e.cache.Len()
}

// Apply is the uncached filter.
func Apply(t *dataset.Table, region string, subregions, _ []string) *dataset.Table {
	members := make(map[string]bool, len(subregions))
	for _, s := range subregions {
		members[s] = true
	}
	return t.Where(func(p types.Property) bool {
		if region != "" && p.Region != region {
			return false
		}
		if len(members) > 0 && !members[p.Subregion] {
			return false
		}
		return true
	})
}

// canonical sorts and de-duplicates a set-valued argument. nil and empty encode
// the same way.
func canonical(set []string) []string {
	out := make([]string, 0, len(set))
	out = append(out, set...)
	slices.Sort(out)
	return slices.Compact(out)
}
