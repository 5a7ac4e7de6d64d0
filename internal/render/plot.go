package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/umahmood/haversine"

	"section8map/internal/boundary"
	"section8map/internal/types"
)

// ErrPlotConstruction is returned when a county subset cannot be drawn.
var ErrPlotConstruction = errors.New("cannot build map")

const (
	mapStyle    = "carto-positron"
	mapHeight   = 600
	defaultZoom = 10
	minZoom     = 3
	maxZoom     = 15

	earthCircumferenceKm = 40075.0
)

// Figure is a Plotly figure; the page passes it to Plotly.newPlot unchanged.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

type Trace struct {
	Type          string     `json:"type"`
	Mode          string     `json:"mode"`
	Name          string     `json:"name,omitempty"`
	Lat           []*float64 `json:"lat"`
	Lon           []*float64 `json:"lon"`
	Marker        *Marker    `json:"marker,omitempty"`
	Line          *Line      `json:"line,omitempty"`
	CustomData    [][]string `json:"customdata,omitempty"`
	HoverTemplate string     `json:"hovertemplate,omitempty"`
	HoverInfo     string     `json:"hoverinfo,omitempty"`
	ShowLegend    bool       `json:"showlegend"`
}

type Marker struct {
	Color      []int     `json:"color"`
	ColorScale [][]any   `json:"colorscale"`
	CMin       float64   `json:"cmin"`
	CMax       float64   `json:"cmax"`
	Size       int       `json:"size"`
	ShowScale  bool      `json:"showscale"`
	ColorBar   *ColorBar `json:"colorbar,omitempty"`
}

type ColorBar struct {
	Title    BarTitle `json:"title"`
	TickVals []int    `json:"tickvals"`
	TickText []string `json:"ticktext"`
}

type BarTitle struct {
	Text string `json:"text"`
}

type Line struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

type Layout struct {
	Mapbox     Mapbox `json:"mapbox"`
	Margin     Margin `json:"margin"`
	Height     int    `json:"height"`
	ShowLegend bool   `json:"showlegend"`
}

type Mapbox struct {
	Style       string `json:"style"`
	Zoom        int    `json:"zoom"`
	Center      LatLon `json:"center"`
	AccessToken string `json:"accesstoken,omitempty"`
}

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Margin struct {
	R int `json:"r"`
	T int `json:"t"`
	L int `json:"l"`
	B int `json:"b"`
}

// MapView is a county map plus data-quality counts.
type MapView struct {
	Figure *Figure `json:"figure"`
	// Unmapped counts rows without usable coordinates.
	Unmapped int `json:"unmapped"`
	// OutsideBoundary counts mapped rows falling outside the county outline.
	OutsideBoundary int `json:"outsideBoundary"`
}

// BuildMap draws one marker per mappable row colored by the Section 8 flag
// (0 red, 1 green), plus the county outline when one is given.
func BuildMap(rows []types.Property, outline boundary.Outline, token string) (*MapView, error) {
	var (
		points   Trace
		view     MapView
		sumLat   float64
		sumLon   float64
		minLat   = math.MaxFloat64
		minLon   = math.MaxFloat64
		maxLat   = -math.MaxFloat64
		maxLon   = -math.MaxFloat64
		color    []int
		custom   [][]string
		hasShape = len(outline) > 0
	)

	for _, p := range rows {
		lat, lon, ok := p.Coordinates()
		if !ok {
			view.Unmapped++
			continue
		}
		if hasShape && !outline.Contains(lat, lon) {
			view.OutsideBoundary++
		}
		points.Lat = append(points.Lat, ptr(lat))
		points.Lon = append(points.Lon, ptr(lon))
		color = append(color, p.Section8)
		custom = append(custom, []string{p.ID, p.DetailURL})

		sumLat += lat
		sumLon += lon
		minLat, maxLat = math.Min(minLat, lat), math.Max(maxLat, lat)
		minLon, maxLon = math.Min(minLon, lon), math.Max(maxLon, lon)
	}

	n := len(points.Lat)
	if n == 0 {
		return nil, fmt.Errorf("%w: none of %d rows has valid latitude/longitude", ErrPlotConstruction, len(rows))
	}

	points.Type = "scattermapbox"
	points.Mode = "markers"
	points.Name = "Section 8"
	points.CustomData = custom
	points.HoverTemplate = "zpid=%{customdata[0]}<br>detailUrl_InfoTOD=%{customdata[1]}<extra></extra>"
	points.Marker = &Marker{
		Color:      color,
		ColorScale: [][]any{{0, "red"}, {1, "green"}},
		CMin:       0,
		CMax:       1,
		Size:       9,
		ShowScale:  true,
		ColorBar: &ColorBar{
			Title:    BarTitle{Text: "Section 8"},
			TickVals: []int{0, 1},
			TickText: []string{"No", "Yes"},
		},
	}

	center := LatLon{Lat: sumLat / float64(n), Lon: sumLon / float64(n)}
	data := []Trace{points}
	if hasShape {
		center.Lat, center.Lon = outline.Center()
		data = append([]Trace{outlineTrace(outline)}, data...)
	}

	view.Figure = &Figure{
		Data: data,
		Layout: Layout{
			Mapbox: Mapbox{
				Style:       mapStyle,
				Zoom:        zoomFor(minLat, minLon, maxLat, maxLon),
				Center:      center,
				AccessToken: token,
			},
			Height: mapHeight,
		},
	}
	return &view, nil
}

// zoomFor picks a zoom level whose tile width roughly fits the bbox diagonal.
func zoomFor(minLat, minLon, maxLat, maxLon float64) int {
	_, km := haversine.Distance(
		haversine.Coord{Lat: minLat, Lon: minLon},
		haversine.Coord{Lat: maxLat, Lon: maxLon},
	)
	if km < 0.5 {
		return defaultZoom
	}
	z := int(math.Floor(math.Log2(earthCircumferenceKm/km))) + 1
	return max(minZoom, min(maxZoom, z))
}

// outlineTrace draws every ring as a line; null points separate rings.
func outlineTrace(outline boundary.Outline) Trace {
	t := Trace{
		Type:      "scattermapbox",
		Mode:      "lines",
		Name:      "County",
		Line:      &Line{Color: "#444", Width: 1.5},
		HoverInfo: "skip",
	}
	for _, f := range outline {
		for _, ring := range f.Parts {
			for _, pt := range ring {
				t.Lat = append(t.Lat, ptr(pt[0]))
				t.Lon = append(t.Lon, ptr(pt[1]))
			}
			t.Lat = append(t.Lat, nil)
			t.Lon = append(t.Lon, nil)
		}
	}
	return t
}

func ptr(v float64) *float64 {
	return &v
}
