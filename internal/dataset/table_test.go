package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"section8map/internal/types"
)

func TestTableViewsAreIndependent(t *testing.T) {
	src := []types.Property{
		{ID: "1", Subregion: "Kern", Section8: 1},
		{ID: "2", Subregion: "Kern", Section8: 0},
		{ID: "3", Subregion: "Fresno", Section8: 1},
	}
	table := NewTable(src)

	src[0].ID = "mutated"
	assert.Equal(t, "1", table.Rows()[0].ID, "NewTable copies its input")

	rows := table.Rows()
	rows[1].ID = "mutated"
	assert.Equal(t, "2", table.Rows()[1].ID, "Rows returns a copy")

	kern := table.Where(func(p types.Property) bool { return p.Subregion == "Kern" })
	assert.Equal(t, 2, kern.Len())
	assert.Equal(t, 3, table.Len())
	assert.NotEqual(t, table.ID(), kern.ID())
}

func TestTableCountAndDistinct(t *testing.T) {
	table := NewTable([]types.Property{
		{Subregion: "Kern", Section8: 1},
		{Subregion: "Fresno", Section8: 0},
		{Subregion: "Kern", Section8: 1},
		{Subregion: "", Section8: 0},
	})

	assert.Equal(t, 2, table.Count(types.Property.Eligible))
	assert.Equal(t, []string{"Kern", "Fresno"}, table.Distinct(func(p types.Property) string { return p.Subregion }))
}

func TestEmptyTable(t *testing.T) {
	table := NewTable(nil)
	assert.True(t, table.Empty())
	assert.Empty(t, table.Rows())
	assert.True(t, table.Where(func(types.Property) bool { return true }).Empty())
	assert.Nil(t, table.Distinct(func(p types.Property) string { return p.Region }))
}
