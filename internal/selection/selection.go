package selection

import (
	"net/url"
	"slices"
	"sort"
	"strings"
)

// All is the per-county option that disables a filter.
const All = "All"

// Query parameter names.
const (
	ParamRegion       = "region"
	ParamSubregion    = "subregion"
	ParamDwellingType = "type"
	prefixBedrooms    = "bedrooms."
	prefixDwelling    = "type."
)

// SubregionChoice holds the radio selections of one county. Empty means All.
type SubregionChoice struct {
	Bedrooms     string `json:"bedrooms"`
	DwellingType string `json:"dwellingType"`
}

// State is the complete user selection driving one render pass.
type State struct {
	Region        string                     `json:"region"`
	Subregions    []string                   `json:"subregions"`
	DwellingTypes []string                   `json:"dwellingTypes"`
	PerSubregion  map[string]SubregionChoice `json:"perSubregion"`
}

// Choice returns the radio selections for sub with blanks resolved to All.
func (s State) Choice(sub string) SubregionChoice {
	c := s.PerSubregion[sub]
	if c.Bedrooms == "" {
		c.Bedrooms = All
	}
	if c.DwellingType == "" {
		c.DwellingType = All
	}
	return c
}

// WithRegion selects region. Changing the region drops the county selections,
// which belong to the previous region.
func (s State) WithRegion(region string) State {
	out := s.clone()
	if region != s.Region {
		out.Subregions = nil
		out.PerSubregion = nil
	}
	out.Region = region
	return out
}

// WithSubregions replaces the county selection, keeping first-seen order.
func (s State) WithSubregions(subs []string) State {
	out := s.clone()
	out.Subregions = dedupe(subs)
	return out
}

// WithDwellingTypes replaces the global dwelling-type selection. nil restores
// the default (all types); an empty slice selects none.
func (s State) WithDwellingTypes(types []string) State {
	out := s.clone()
	out.DwellingTypes = dedupe(types)
	return out
}

// WithBedrooms sets the bedroom radio of sub.
func (s State) WithBedrooms(sub, bedrooms string) State {
	out := s.clone()
	c := out.PerSubregion[sub]
	c.Bedrooms = bedrooms
	out.PerSubregion[sub] = c
	return out
}

// WithDwellingType sets the dwelling-type radio of sub.
func (s State) WithDwellingType(sub, dwellingType string) State {
	out := s.clone()
	c := out.PerSubregion[sub]
	c.DwellingType = dwellingType
	out.PerSubregion[sub] = c
	return out
}

func (s State) clone() State {
	out := State{
		Region:        s.Region,
		Subregions:    slices.Clone(s.Subregions),
		DwellingTypes: slices.Clone(s.DwellingTypes),
		PerSubregion:  make(map[string]SubregionChoice, len(s.PerSubregion)),
	}
	for k, v := range s.PerSubregion {
		out.PerSubregion[k] = v
	}
	return out
}

// FromQuery decodes a selection from form values:
//
//	region=CA&subregion=Los+Angeles&type=SINGLE_FAMILY&bedrooms.Los+Angeles=3&type.Los+Angeles=CONDO
//
// An absent type parameter means the default; a present but blank one selects none.
func FromQuery(v url.Values) State {
	s := State{
		Region:        strings.TrimSpace(v.Get(ParamRegion)),
		Subregions:    dedupe(v[ParamSubregion]),
		DwellingTypes: dedupe(v[ParamDwellingType]),
		PerSubregion:  make(map[string]SubregionChoice),
	}
	for key, vals := range v {
		if len(vals) == 0 {
			continue
		}
		switch {
		case strings.HasPrefix(key, prefixBedrooms):
			sub := strings.TrimPrefix(key, prefixBedrooms)
			c := s.PerSubregion[sub]
			c.Bedrooms = vals[0]
			s.PerSubregion[sub] = c
		case strings.HasPrefix(key, prefixDwelling):
			sub := strings.TrimPrefix(key, prefixDwelling)
			c := s.PerSubregion[sub]
			c.DwellingType = vals[0]
			s.PerSubregion[sub] = c
		}
	}
	return s
}

// Query encodes s so that FromQuery(s.Query()) reproduces it.
func (s State) Query() url.Values {
	v := url.Values{}
	if s.Region != "" {
		v.Set(ParamRegion, s.Region)
	}
	for _, sub := range s.Subregions {
		v.Add(ParamSubregion, sub)
	}
	for _, t := range s.DwellingTypes {
		v.Add(ParamDwellingType, t)
	}
	if s.DwellingTypes != nil && len(s.DwellingTypes) == 0 {
		v.Set(ParamDwellingType, "")
	}
	subs := make([]string, 0, len(s.PerSubregion))
	for sub := range s.PerSubregion {
		subs = append(subs, sub)
	}
	sort.Strings(subs)
	for _, sub := range subs {
		c := s.PerSubregion[sub]
		if c.Bedrooms != "" {
			v.Set(prefixBedrooms+sub, c.Bedrooms)
		}
		if c.DwellingType != "" {
			v.Set(prefixDwelling+sub, c.DwellingType)
		}
	}
	return v
}

// dedupe trims values and drops blanks and repeats. A nil input stays nil; a
// non-nil input yields a non-nil result, so "none selected" differs from "not given".
func dedupe(in []string) []string {
	if in == nil {
		return nil
	}
	out := []string{}
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
