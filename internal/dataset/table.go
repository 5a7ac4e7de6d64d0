package dataset

import (
	"sync/atomic"

	"section8map/internal/types"
)

var nextTableID atomic.Uint64

// Table is an immutable view over property records. Every operation returns a
// new view; the rows of an existing table are never modified.
type Table struct {
	id   uint64
	rows []types.Property
}

// NewTable copies rows into a new table.
func NewTable(rows []types.Property) *Table {
	cp := make([]types.Property, len(rows))
	copy(cp, rows)
	return newTable(cp)
}

func newTable(rows []types.Property) *Table {
	return &Table{id: nextTableID.Add(1), rows: rows}
}

// ID identifies this view for memoization keys. Two views never share an ID.
func (t *Table) ID() uint64 {
	return t.id
}

func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) Empty() bool {
	return len(t.rows) == 0
}

// Rows returns a copy of the records in source order.
func (t *Table) Rows() []types.Property {
	cp := make([]types.Property, len(t.rows))
	copy(cp, t.rows)
	return cp
}

// Each calls fn for every row in order without copying the slice.
func (t *Table) Each(fn func(types.Property)) {
	for _, p := range t.rows {
		fn(p)
	}
}

// Where returns the rows matching keep.
func (t *Table) Where(keep func(types.Property) bool) *Table {
	var out []types.Property
	for _, p := range t.rows {
		if keep(p) {
			out = append(out, p)
		}
	}
	return newTable(out)
}

// Count returns how many rows match pred.
func (t *Table) Count(pred func(types.Property) bool) int {
	n := 0
	for _, p := range t.rows {
		if pred(p) {
			n++
		}
	}
	return n
}

// Distinct returns the non-blank values of col in first-seen order.
func (t *Table) Distinct(col func(types.Property) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range t.rows {
		v := col(p)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
