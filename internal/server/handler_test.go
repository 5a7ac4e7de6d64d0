package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"section8map/internal/boundary"
	"section8map/internal/dataset"
	"section8map/internal/filter"
	"section8map/internal/metrics"
	"section8map/internal/render"
	"section8map/internal/types"
)

var _ TableProvider = (*dataset.Loader)(nil)

type staticTable struct {
	table *dataset.Table
	err   error
}

func (s staticTable) Load() (*dataset.Table, error) {
	return s.table, s.err
}

func newTestRouter(t *testing.T, data TableProvider) *gin.Engine {
	router, _ := newTestServer(t, data)
	return router
}

func newTestServer(t *testing.T, data TableProvider) (*gin.Engine, *filter.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	renderer := &render.Renderer{Engine: filter.NewEngine(m), Metrics: m}
	return NewRouter(NewDashboardHandler(data, renderer), reg), renderer.Engine
}

func fixture() staticTable {
	return staticTable{table: dataset.NewTable([]types.Property{
		{ID: "1", Region: "CA", Subregion: "Los Angeles", Latitude: "34.05", Longitude: "-118.25", Bedrooms: "3", HomeType: "SINGLE_FAMILY", Section8: 1},
		{ID: "2", Region: "CA", Subregion: "Los Angeles", Latitude: "34.06", Longitude: "-118.24", Bedrooms: "2", HomeType: "CONDO", Section8: 0},
		{ID: "3", Region: "CA", Subregion: "Los Angeles", Latitude: "34.07", Longitude: "-118.23", Bedrooms: "3", HomeType: "SINGLE_FAMILY", Section8: 1},
		{ID: "4", Region: "TX", Subregion: "Tarrant", Latitude: "32.75", Longitude: "-97.33", Bedrooms: "4", HomeType: "TOWNHOUSE", Section8: 0},
	})}
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestView(t *testing.T) {
	router := newTestRouter(t, fixture())

	w := get(router, "/api/view?region=CA&subregion=Los+Angeles")
	require.Equal(t, http.StatusOK, w.Code)

	var vm render.ViewModel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vm))
	assert.Equal(t, render.Title, vm.Title)
	require.Len(t, vm.Counties, 1)
	assert.Equal(t, 2, vm.Counties[0].Eligible)
	assert.Equal(t, 1, vm.Counties[0].NotEligible)
	assert.Len(t, vm.Counties[0].Listing, 2)
	assert.Equal(t, render.OutcomeRendered, vm.Counties[0].Outcome)
}

func TestViewPerCountyQuery(t *testing.T) {
	router := newTestRouter(t, fixture())

	w := get(router, "/api/view?region=CA&subregion=Los+Angeles&bedrooms.Los+Angeles=5")
	require.Equal(t, http.StatusOK, w.Code)

	var vm render.ViewModel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vm))
	require.Len(t, vm.Counties, 1)
	assert.Equal(t, render.OutcomeWarned, vm.Counties[0].Outcome)
	assert.Equal(t, "No data available for Los Angeles County with the selected filters.", vm.Counties[0].Warning)
}

func TestViewPromptsForCounty(t *testing.T) {
	router := newTestRouter(t, fixture())

	w := get(router, "/api/view")
	require.Equal(t, http.StatusOK, w.Code)

	var vm render.ViewModel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vm))
	assert.Equal(t, "CA", vm.Selection.Region)
	assert.Equal(t, render.PromptSelectSubregion, vm.Prompt)
	assert.Empty(t, vm.Counties)
}

func TestOptionEndpoints(t *testing.T) {
	router := newTestRouter(t, fixture())

	t.Run("regions", func(t *testing.T) {
		w := get(router, "/api/regions")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"regions":["CA","TX"]}`, w.Body.String())
	})

	t.Run("subregions", func(t *testing.T) {
		w := get(router, "/api/regions/TX/subregions")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"region":"TX","subregions":["Tarrant"]}`, w.Body.String())
	})

	t.Run("unknown region", func(t *testing.T) {
		w := get(router, "/api/regions/NY/subregions")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Unknown state: NY")
	})

	t.Run("dwelling types", func(t *testing.T) {
		w := get(router, "/api/dwelling-types")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"dwellingTypes":["SINGLE_FAMILY","CONDO","TOWNHOUSE"]}`, w.Body.String())
	})
}

func TestPage(t *testing.T) {
	router := newTestRouter(t, fixture())

	w := get(router, "/?region=CA&subregion=Los+Angeles")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<title>Section-8 Properties Map</title>")
	assert.Contains(t, body, "Los Angeles County")
	assert.Contains(t, body, "Plotly.newPlot")
	assert.Contains(t, body, `name="bedrooms.Los Angeles"`)
}

func TestPagePrompt(t *testing.T) {
	router := newTestRouter(t, fixture())

	w := get(router, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), render.PromptSelectSubregion)
	assert.NotContains(t, w.Body.String(), "Plotly.newPlot")
}

func TestDatasetUnavailable(t *testing.T) {
	router := newTestRouter(t, staticTable{err: dataset.ErrDataUnavailable})

	for _, target := range []string{"/", "/api/view", "/api/regions", "/api/dwelling-types"} {
		w := get(router, target)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, target)
	}

	w := get(router, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, fixture())

	w := get(router, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","records":4}`, w.Body.String())

	get(router, "/api/view?region=CA&subregion=Los+Angeles")
	w = get(router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "section8map_render_passes_total 1")
	assert.Contains(t, w.Body.String(), `section8map_subregion_renders_total{outcome="rendered"} 1`)
}

func TestUnknownQueryValuesDoNotGrowFilterCache(t *testing.T) {
	router, engine := newTestServer(t, fixture())

	for i := 0; i < 200; i++ {
		assert.Equal(t, http.StatusNotFound, get(router, fmt.Sprintf("/api/regions/bogus%d/subregions", i)).Code)
		assert.Equal(t, http.StatusOK, get(router, fmt.Sprintf("/api/view?region=bogus%d&subregion=x", i)).Code)
		assert.Equal(t, http.StatusOK, get(router, fmt.Sprintf("/api/view?region=CA&subregion=x%d&type=y%d", i, i)).Code)
	}
	assert.Equal(t, 1, engine.CachedResults(), "only the CA region entry is stored")

	w := get(router, "/api/view?region=bogus&subregion=x")
	var vm render.ViewModel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vm))
	assert.Equal(t, render.PromptSelectRegion, vm.Prompt)
	assert.Empty(t, vm.Counties)
}

func TestPageKeepsEmptyHomeTypeSelection(t *testing.T) {
	router := newTestRouter(t, fixture())

	w := get(router, "/api/view?region=CA&subregion=Los+Angeles&type=")
	require.Equal(t, http.StatusOK, w.Code)

	var vm render.ViewModel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vm))
	assert.NotNil(t, vm.Selection.DwellingTypes)
	assert.Empty(t, vm.Selection.DwellingTypes)

	page := get(router, "/?region=CA&subregion=Los+Angeles")
	assert.Contains(t, page.Body.String(), `<input type="hidden" name="type" value="">`)
}

func TestPageReportsListingsOutsideOutline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	bounds := &boundary.Set{}
	bounds.Add("", "Los Angeles", boundary.Feature{
		Parts:  [][][2]float64{{{34, -118.3}, {34, -118.2}, {34.055, -118.2}, {34.055, -118.3}, {34, -118.3}}},
		MinLat: 34, MaxLat: 34.055,
		MinLon: -118.3, MaxLon: -118.2,
	})
	reg := prometheus.NewRegistry()
	renderer := &render.Renderer{Engine: filter.NewEngine(nil), Boundaries: bounds}
	router := NewRouter(NewDashboardHandler(fixture(), renderer), reg)

	w := get(router, "/?region=CA&subregion=Los+Angeles")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2 properties fall outside the county outline.")
}
