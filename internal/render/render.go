package render

import (
	"fmt"
	"slices"
	"sort"
	"strconv"

	"section8map/internal/boundary"
	"section8map/internal/dataset"
	"section8map/internal/filter"
	"section8map/internal/logger"
	"section8map/internal/metrics"
	"section8map/internal/selection"
	"section8map/internal/types"
)

const (
	Title = "Section-8 Properties Map"

	PromptSelectRegion    = "Please select a state to view the data."
	PromptSelectSubregion = "Please select at least one county to view the data."
)

// Outcome is where one county's render pass ended.
type Outcome string

const (
	OutcomeRendered Outcome = "rendered"
	OutcomeWarned   Outcome = "warned"
	OutcomeErrored  Outcome = "errored"
)

// ViewModel is everything a front-end needs to draw the dashboard.
type ViewModel struct {
	Title string `json:"title"`

	// Options for the global widgets.
	Regions       []string `json:"regions"`
	Subregions    []string `json:"subregions"`
	DwellingTypes []string `json:"dwellingTypes"`

	// Selection is the state actually rendered, defaults resolved.
	Selection selection.State `json:"selection"`

	Prompt   string          `json:"prompt,omitempty"`
	Counties []SubregionView `json:"counties"`
}

// SubregionView is the rendered block of one selected county.
type SubregionView struct {
	Name    string `json:"name"`
	Heading string `json:"heading"`

	BedroomOptions  []string                  `json:"bedroomOptions"`
	DwellingOptions []string                  `json:"dwellingOptions"`
	Choice          selection.SubregionChoice `json:"choice"`

	Eligible    int `json:"eligible"`
	NotEligible int `json:"notEligible"`

	Outcome Outcome       `json:"outcome"`
	Warning string        `json:"warning,omitempty"`
	Error   string        `json:"error,omitempty"`
	Map     *MapView      `json:"map,omitempty"`
	Listing []EligibleRow `json:"listing,omitempty"`
}

// EligibleRow is one line of the Section 8 properties table.
type EligibleRow struct {
	ID               string `json:"zpid"`
	DetailURL        string `json:"detailUrl_InfoTOD"`
	PricePerSqFt     string `json:"price_sq_foot"`
	Bedrooms         string `json:"bedrooms"`
	FairMarketRent   string `json:"FRM"`
	YearBuilt        string `json:"yearBuilt"`
	SchoolDistance   string `json:"SCHOOLSMeandistance"`
	RentToPriceRatio string `json:"price_to_rent_ratio_InfoTOD"`
	LivingArea       string `json:"livingArea"`
	LastSoldPrice    string `json:"lastSoldPrice"`
	Description      string `json:"description"`
}

// ListingColumns are the table headers, in EligibleRow field order.
var ListingColumns = []string{
	dataset.ColID,
	dataset.ColDetailURL,
	dataset.ColPricePerSqFt,
	dataset.ColBedrooms,
	dataset.ColFairMarketRent,
	dataset.ColYearBuilt,
	dataset.ColSchoolDistance,
	dataset.ColRentToPriceRatio,
	dataset.ColLivingArea,
	dataset.ColLastSoldPrice,
	dataset.ColDescription,
}

// Cells returns the row values in ListingColumns order.
func (r EligibleRow) Cells() []string {
	return []string{
		r.ID, r.DetailURL, r.PricePerSqFt, r.Bedrooms, r.FairMarketRent, r.YearBuilt,
		r.SchoolDistance, r.RentToPriceRatio, r.LivingArea, r.LastSoldPrice, r.Description,
	}
}

// Renderer turns a selection into a ViewModel. It holds no selection state;
// every call recomputes from its arguments.
type Renderer struct {
	Engine      *filter.Engine
	Boundaries  *boundary.Set
	MapboxToken string
	Metrics     *metrics.Metrics
}

// Render runs one full pass over t for state s.
func (r *Renderer) Render(t *dataset.Table, s selection.State) ViewModel {
	r.Metrics.IncRenderPasses()

	vm := ViewModel{
		Title:         Title,
		Regions:       t.Distinct(func(p types.Property) string { return p.Region }),
		DwellingTypes: t.Distinct(func(p types.Property) string { return p.HomeType }),
	}

	if s.Region == "" && len(vm.Regions) > 0 {
		s = s.WithRegion(vm.Regions[0])
	}
	if s.DwellingTypes == nil {
		s = s.WithDwellingTypes(vm.DwellingTypes)
	} else {
		s = s.WithDwellingTypes(known(s.DwellingTypes, vm.DwellingTypes))
	}
	vm.Selection = s

	// Only values present in the table reach the filter cache; it is never evicted.
	if !slices.Contains(vm.Regions, s.Region) {
		vm.Prompt = PromptSelectRegion
		return vm
	}

	inRegion := r.Engine.Filter(t, s.Region, nil, nil)
	vm.Subregions = inRegion.Distinct(func(p types.Property) string { return p.Subregion })

	if len(s.Subregions) == 0 {
		vm.Prompt = PromptSelectSubregion
		return vm
	}

	// Unknown counties still get a block, which warns that there is no data.
	selected := r.Engine.Filter(t, s.Region, known(s.Subregions, vm.Subregions), s.DwellingTypes)
	for _, sub := range s.Subregions {
		cv := r.renderSubregion(selected, s, sub, vm.DwellingTypes)
		r.Metrics.ObserveOutcome(string(cv.Outcome))
		vm.Counties = append(vm.Counties, cv)
	}
	return vm
}

// known keeps the values of sel that appear in options, in sel order. The
// result is non-nil whenever sel is.
func known(sel, options []string) []string {
	if sel == nil {
		return nil
	}
	out := []string{}
	for _, v := range sel {
		if slices.Contains(options, v) {
			out = append(out, v)
		}
	}
	return out
}

func (r *Renderer) renderSubregion(selected *dataset.Table, s selection.State, sub string, dwellingTypes []string) SubregionView {
	county := selected.Where(func(p types.Property) bool { return p.Subregion == sub })
	choice := s.Choice(sub)

	cv := SubregionView{
		Name:            sub,
		Heading:         sub + " County",
		BedroomOptions:  BedroomOptions(county),
		DwellingOptions: append([]string{selection.All}, dwellingTypes...),
		Choice:          choice,
		Eligible:        county.Count(types.Property.Eligible),
		NotEligible:     county.Count(func(p types.Property) bool { return p.Section8 == 0 }),
	}

	if choice.Bedrooms != selection.All {
		county = county.Where(func(p types.Property) bool { return p.Bedrooms == choice.Bedrooms })
	}
	if choice.DwellingType != selection.All {
		county = county.Where(func(p types.Property) bool { return p.HomeType == choice.DwellingType })
	}

	if county.Empty() {
		cv.Outcome = OutcomeWarned
		cv.Warning = fmt.Sprintf("No data available for %s County with the selected filters.", sub)
		return cv
	}

	outline, _ := r.Boundaries.Outline(s.Region, sub)
	mv, err := BuildMap(county.Rows(), outline, r.MapboxToken)
	if err != nil {
		logger.Log.Warnf("Map for %s County: %v", sub, err)
		cv.Outcome = OutcomeErrored
		cv.Error = fmt.Sprintf("Error creating the map for %s: %v", sub, err)
		return cv
	}
	cv.Map = mv
	cv.Listing = EligibleRows(county)
	cv.Outcome = OutcomeRendered
	return cv
}

// BedroomOptions returns All followed by the distinct bedroom values of t,
// numerically ascending. Non-numeric values sort after numbers.
func BedroomOptions(t *dataset.Table) []string {
	vals := t.Distinct(func(p types.Property) string { return p.Bedrooms })
	sort.SliceStable(vals, func(i, j int) bool {
		a, errA := strconv.ParseFloat(vals[i], 64)
		b, errB := strconv.ParseFloat(vals[j], 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return vals[i] < vals[j]
	})
	return append([]string{selection.All}, vals...)
}

// EligibleRows lists the Section 8 rows of t.
func EligibleRows(t *dataset.Table) []EligibleRow {
	var out []EligibleRow
	t.Each(func(p types.Property) {
		if !p.Eligible() {
			return
		}
		out = append(out, EligibleRow{
			ID:               p.ID,
			DetailURL:        p.DetailURL,
			PricePerSqFt:     p.PricePerSqFt,
			Bedrooms:         p.Bedrooms,
			FairMarketRent:   p.FairMarketRent,
			YearBuilt:        p.YearBuilt,
			SchoolDistance:   p.SchoolDistance,
			RentToPriceRatio: p.RentToPriceRatio,
			LivingArea:       p.LivingArea,
			LastSoldPrice:    p.LastSoldPrice,
			Description:      p.Description,
		})
	})
	return out
}
