package boundary

import (
	"fmt"
	"math"
	"strings"

	shp "github.com/jonas-p/go-shp"
)

// Feature is a county polygon (possibly multi-part) with its bounding box.
type Feature struct {
	Parts  [][][2]float64 // Each part is a closed ring of [lat, lon] points
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Contains reports whether lat/lon falls inside any ring of f.
func (f Feature) Contains(lat, lon float64) bool {
	if lat < f.MinLat || lat > f.MaxLat || lon < f.MinLon || lon > f.MaxLon {
		return false // quick bbox reject
	}
	for _, ring := range f.Parts {
		if pointInPolygon(lat, lon, ring) {
			return true
		}
	}
	return false
}

// Outline is every feature registered for one county.
type Outline []Feature

// Contains reports whether lat/lon lies inside any feature of o.
func (o Outline) Contains(lat, lon float64) bool {
	for _, f := range o {
		if f.Contains(lat, lon) {
			return true
		}
	}
	return false
}

// Center returns the middle of the bounding box enclosing all features.
func (o Outline) Center() (lat, lon float64) {
	minLat, minLon := math.MaxFloat64, math.MaxFloat64
	maxLat, maxLon := -math.MaxFloat64, -math.MaxFloat64
	for _, f := range o {
		minLat, maxLat = math.Min(minLat, f.MinLat), math.Max(maxLat, f.MaxLat)
		minLon, maxLon = math.Min(minLon, f.MinLon), math.Max(maxLon, f.MaxLon)
	}
	return (minLat + maxLat) / 2, (minLon + maxLon) / 2
}

// Set holds county outlines keyed by normalized region and county name.
// The zero value and a nil *Set are empty.
type Set struct {
	byKey map[string]Outline
	// regional is false when the layer has no region attribute; lookups then
	// match on the county name alone.
	regional bool
}

// Load reads the polygon shapefile at path. nameField names the attribute holding
// the county name; regionField, when non-empty, the attribute holding its state.
func Load(path, nameField, regionField string) (*Set, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open boundary shapefile %s: %w", path, err)
	}
	defer r.Close()

	nameIdx, regionIdx := -1, -1
	for i, f := range r.Fields() {
		switch strings.TrimSpace(f.String()) {
		case nameField:
			nameIdx = i
		case regionField:
			if regionField != "" {
				regionIdx = i
			}
		}
	}
	if nameIdx < 0 {
		return nil, fmt.Errorf("boundary shapefile %s has no %s attribute", path, nameField)
	}
	if regionField != "" && regionIdx < 0 {
		return nil, fmt.Errorf("boundary shapefile %s has no %s attribute", path, regionField)
	}

	set := &Set{byKey: make(map[string]Outline), regional: regionIdx >= 0}
	for r.Next() {
		idx, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		region := ""
		if regionIdx >= 0 {
			region = r.ReadAttribute(idx, regionIdx)
		}
		set.Add(region, r.ReadAttribute(idx, nameIdx), FromPolygon(poly))
	}
	return set, nil
}

// FromPolygon splits a shapefile polygon into rings, tracking the bounding box.
// Shapefile points are X=lon, Y=lat.
func FromPolygon(poly *shp.Polygon) Feature {
	numParts := len(poly.Parts)
	parts := make([][][2]float64, numParts)

	minLat, minLon := math.MaxFloat64, math.MaxFloat64
	maxLat, maxLon := -math.MaxFloat64, -math.MaxFloat64

	for partIdx := 0; partIdx < numParts; partIdx++ {
		start := poly.Parts[partIdx]
		end := int32(len(poly.Points))
		if partIdx+1 < numParts {
			end = poly.Parts[partIdx+1]
		}
		ring := make([][2]float64, 0, int(end-start))
		for i := start; i < end; i++ {
			pt := poly.Points[i]
			ring = append(ring, [2]float64{pt.Y, pt.X})
			minLat = math.Min(minLat, pt.Y)
			maxLat = math.Max(maxLat, pt.Y)
			minLon = math.Min(minLon, pt.X)
			maxLon = math.Max(maxLon, pt.X)
		}
		parts[partIdx] = ring
	}
	return Feature{Parts: parts, MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
}

// Add registers f under region/name.
func (s *Set) Add(region, name string, f Feature) {
	if s.byKey == nil {
		s.byKey = make(map[string]Outline)
	}
	if region != "" && len(s.byKey) == 0 {
		s.regional = true
	}
	k := s.key(region, name)
	s.byKey[k] = append(s.byKey[k], f)
}

// Outline returns the features of a county. ok is false when none is known.
func (s *Set) Outline(region, name string) (Outline, bool) {
	if s == nil || len(s.byKey) == 0 {
		return nil, false
	}
	fs, ok := s.byKey[s.key(region, name)]
	return fs, ok
}

// Len returns the number of distinct counties.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byKey)
}

func (s *Set) key(region, name string) string {
	if !s.regional {
		return normalize(name)
	}
	return normalize(region) + "|" + normalize(name)
}

// normalize produces a canonical county key: upper case, collapsed whitespace,
// without a trailing "COUNTY" and without DBF null padding.
func normalize(name string) string {
	name = strings.ToUpper(strings.Trim(name, "\x00 \t"))
	name = strings.Join(strings.Fields(name), " ")
	return strings.TrimSuffix(name, " COUNTY")
}

// pointInPolygon implements the ray-casting algorithm for testing whether a
// point is inside a polygon ring of [lat, lon] points.
func pointInPolygon(lat, lon float64, ring [][2]float64) bool {
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		yi, xi := ring[i][0], ring[i][1]
		yj, xj := ring[j][0], ring[j][1]
		intersect := ((yi > lat) != (yj > lat)) && (lon < (xj-xi)*(lat-yi)/(yj-yi)+xi)
		if intersect {
			inside = !inside
		}
		j = i
	}
	return inside
}
