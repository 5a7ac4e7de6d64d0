package types

import (
	"strconv"
	"strings"
)

// Property is one listing row of the Section 8 dataset.
// Numeric display columns are kept as the raw text from the source; parse on demand.
type Property struct {
	ID        string `json:"zpid"`
	DetailURL string `json:"detailUrl"`

	Region    string `json:"state"`
	Subregion string `json:"county"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`

	Bedrooms   string `json:"bedrooms"`
	LivingArea string `json:"livingArea"`
	YearBuilt  string `json:"yearBuilt"`
	HomeType   string `json:"homeType"`

	PricePerSqFt     string `json:"priceSqFoot"`
	FairMarketRent   string `json:"fmr"`
	LastSoldPrice    string `json:"lastSoldPrice"`
	RentToPriceRatio string `json:"priceToRentRatio"`

	Section8 int `json:"section8"`

	SchoolDistance string `json:"schoolsMeanDistance"`
	Description    string `json:"description"`
}

// Eligible reports whether the listing participates in the Section 8 program.
func (p Property) Eligible() bool {
	return p.Section8 == 1
}

// Coordinates returns the parsed latitude/longitude. ok is false when either is
// blank, unparseable or outside the WGS-84 range.
func (p Property) Coordinates() (lat, lon float64, ok bool) {
	lat, lon, ok = ParseLatLon(p.Latitude, p.Longitude)
	if !ok {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// BedroomCount parses the bedroom column.
func (p Property) BedroomCount() (float64, bool) {
	return ParseNumber(p.Bedrooms)
}

func ParseLatLon(latStr, lonStr string) (float64, float64, bool) {
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	return lat, lon, err1 == nil && err2 == nil
}

// ParseNumber accepts plain and dollar/thousands-formatted numbers ("$1,250.00").
func ParseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// NormalizeNumeric rewrites float-formatted integers the way a spreadsheet export
// prints them ("3.0") to their shortest form ("3"). Non-numeric text is returned trimmed.
func NormalizeNumeric(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseFlag parses a 0/1 indicator, tolerating float formatting ("1.0").
func ParseFlag(s string) (int, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	switch v {
	case 0:
		return 0, true
	case 1:
		return 1, true
	}
	return 0, false
}
