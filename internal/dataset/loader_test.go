package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"section8map/internal/types"
)

func row(id, state, county, flag string) map[string]string {
	return map[string]string{
		ColID:        id,
		ColDetailURL: "https://example.com/homedetails/" + id,
		ColRegion:    state,
		ColSubregion: county,
		ColLatitude:  "34.05",
		ColLongitude: "-118.25",
		ColBedrooms:  "3.0",
		ColHomeType:  "SINGLE_FAMILY",
		ColSection8:  flag,
	}
}

func writeCSV(t *testing.T, header []string, rows ...map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write(header))
	for _, r := range rows {
		rec := make([]string, len(header))
		for i, h := range header {
			rec[i] = r[h]
		}
		require.NoError(t, w.Write(rec))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return path
}

func TestLoaderReadsRecordsInFileOrder(t *testing.T) {
	desc := row("2", "CA", "Los Angeles", "0")
	desc[ColDescription] = `Charming 3BR, near "downtown", updated kitchen`
	path := writeCSV(t, Columns,
		row("1", "CA", "Los Angeles", "1"),
		desc,
		row("3", "TX", "Tarrant", "1.0"),
	)

	table, err := NewLoader(path).Load()
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	rows := table.Rows()
	assert.Equal(t, []string{"1", "2", "3"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})
	assert.Equal(t, `Charming 3BR, near "downtown", updated kitchen`, rows[1].Description)
	assert.Equal(t, "3", rows[0].Bedrooms)
	assert.Equal(t, 1, rows[2].Section8)
	assert.Equal(t, "Tarrant", rows[2].Subregion)
}

func TestLoaderSupportsOtherDelimiters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	w.Comma = '|'
	require.NoError(t, w.Write(Columns))
	rec := make([]string, len(Columns))
	r := row("7", "FL", "Orange", "1")
	for i, c := range Columns {
		rec[i] = r[c]
	}
	require.NoError(t, w.Write(rec))
	w.Flush()
	require.NoError(t, f.Close())

	table, err := NewLoader(path, WithDelimiter('|')).Load()
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "Orange", table.Rows()[0].Subregion)
}

func TestLoaderMemoizesFirstResult(t *testing.T) {
	path := writeCSV(t, Columns, row("1", "CA", "Los Angeles", "1"))
	loader := NewLoader(path)

	first, err := loader.Load()
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	second, err := loader.Load()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestLoaderSkipsRowsWithoutRegion(t *testing.T) {
	path := writeCSV(t, Columns,
		row("1", "CA", "Los Angeles", "1"),
		row("2", "", "Los Angeles", "0"),
		row("3", "CA", "", "0"),
	)

	table, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestLoaderDataUnavailable(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := NewLoader(filepath.Join(t.TempDir(), "nope.csv")).Load()
		require.ErrorIs(t, err, ErrDataUnavailable)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.csv")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		_, err := NewLoader(path).Load()
		require.ErrorIs(t, err, ErrDataUnavailable)
	})

	t.Run("missing column", func(t *testing.T) {
		path := writeCSV(t, Columns[:len(Columns)-1], row("1", "CA", "Los Angeles", "1"))
		_, err := NewLoader(path).Load()
		require.ErrorIs(t, err, ErrDataUnavailable)
		assert.Contains(t, err.Error(), ColDescription)
	})

	t.Run("invalid eligibility flag", func(t *testing.T) {
		path := writeCSV(t, Columns,
			row("1", "CA", "Los Angeles", "1"),
			row("2", "CA", "Los Angeles", "yes"),
		)
		_, err := NewLoader(path).Load()
		require.ErrorIs(t, err, ErrDataUnavailable)
		assert.Contains(t, err.Error(), "line 3")
	})

	t.Run("failure is memoized too", func(t *testing.T) {
		loader := NewLoader(filepath.Join(t.TempDir(), "nope.csv"))
		_, err1 := loader.Load()
		table, err2 := loader.Load()
		assert.Nil(t, table)
		assert.Equal(t, err1, err2)
	})
}

type fakeSource struct {
	calls int
	rows  []types.Property
	err   error
}

func (f *fakeSource) Listings(context.Context) ([]types.Property, error) {
	f.calls++
	return f.rows, f.err
}

func TestLoaderWithSource(t *testing.T) {
	t.Run("reads once", func(t *testing.T) {
		src := &fakeSource{rows: []types.Property{{ID: "1", Region: "CA", Subregion: "Kern"}}}
		loader := NewLoader("", WithSource(src))

		for i := 0; i < 3; i++ {
			table, err := loader.Load()
			require.NoError(t, err)
			assert.Equal(t, 1, table.Len())
		}
		assert.Equal(t, 1, src.calls)
	})

	t.Run("wraps source errors", func(t *testing.T) {
		src := &fakeSource{err: errors.New("connection reset")}
		_, err := NewLoader("", WithSource(src)).Load()
		require.ErrorIs(t, err, ErrDataUnavailable)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestParseRecord(t *testing.T) {
	p, skip, err := ParseRecord(map[string]string{
		ColID:        "20533.0",
		ColRegion:    " CA ",
		ColSubregion: "Kern",
		ColSection8:  "0.0",
		ColYearBuilt: "1978.0",
	})
	require.NoError(t, err)
	assert.False(t, skip)
	assert.Equal(t, "20533", p.ID)
	assert.Equal(t, "CA", p.Region)
	assert.Equal(t, "1978", p.YearBuilt)
	assert.Equal(t, 0, p.Section8)

	_, _, err = ParseRecord(map[string]string{ColRegion: "CA", ColSubregion: "Kern", ColSection8: "2"})
	assert.ErrorIs(t, err, ErrDataUnavailable)
}
