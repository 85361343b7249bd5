// Package overlay turns accumulated edit operations into cover-and-text
// drawing primitives. Edits are keyed geometrically so resubmitting the
// same region replaces the earlier edit instead of stacking a second
// overlay on top of it.
package overlay

import (
	"sort"

	"github.com/RodrigoAbrao/editor-pdf/geo"
)

// Align selects the horizontal placement of text inside the edit rect.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// EditOperation is one user-submitted replacement of a text region.
type EditOperation struct {
	Page         int      `json:"page" validate:"gte=0"`
	Rect         geo.Rect `json:"rect"`
	OriginalText string   `json:"original_text"`
	NewText      string   `json:"new_text"`
	Font         string   `json:"font"`
	FontSize     float64  `json:"font_size" validate:"gte=0"`
	Color        string   `json:"color" validate:"omitempty,hexcolor"`
	Align        Align    `json:"align,omitempty" validate:"omitempty,oneof=left center right"`
	Wrap         bool     `json:"wrap,omitempty"`
}

type editEntry struct {
	op  EditOperation
	seq int
}

// EditSet accumulates edits keyed by (page, x0, y0) on a tolerance grid.
// Submitting an edit whose rect origin lies within tolerance of an
// existing edit on the same page replaces it; composition order is the
// order edits were last put into the set.
type EditSet struct {
	tolerance float64
	entries   map[geo.Key]*editEntry
	seq       int
}

// NewEditSet builds an empty set. A tolerance of zero or less falls back
// to the one-point default grid.
func NewEditSet(tolerance float64) *EditSet {
	if tolerance <= 0 {
		tolerance = 1
	}
	return &EditSet{
		tolerance: tolerance,
		entries:   make(map[geo.Key]*editEntry),
	}
}

// Tolerance returns the grid spacing edits are matched with.
func (s *EditSet) Tolerance() float64 { return s.tolerance }

// Put inserts an edit, replacing any existing edit within tolerance of
// the same region. The replaced edit moves to the end of the order.
func (s *EditSet) Put(op EditOperation) {
	s.seq++
	if entry := s.lookup(op.Page, op.Rect); entry != nil {
		entry.op = op
		entry.seq = s.seq
		return
	}
	s.entries[geo.KeyOf(op.Page, op.Rect, s.tolerance)] = &editEntry{op: op, seq: s.seq}
}

// lookup finds the entry matching the rect's region, checking the cell
// and its neighbours since near coordinates can quantize apart.
func (s *EditSet) lookup(page int, r geo.Rect) *editEntry {
	key := geo.KeyOf(page, r, s.tolerance)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			k := geo.Key{Page: key.Page, QX: key.QX + dx, QY: key.QY + dy}
			entry, ok := s.entries[k]
			if ok && geo.SameRegion(entry.op.Rect, r, s.tolerance) {
				return entry
			}
		}
	}
	return nil
}

// Match returns the accumulated edit for the given region, if any.
func (s *EditSet) Match(page int, r geo.Rect) (EditOperation, bool) {
	if entry := s.lookup(page, r); entry != nil {
		return entry.op, true
	}
	return EditOperation{}, false
}

// Len reports the number of distinct edit regions.
func (s *EditSet) Len() int { return len(s.entries) }

// Ops returns every edit in last-put order.
func (s *EditSet) Ops() []EditOperation {
	entries := make([]*editEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	ops := make([]EditOperation, len(entries))
	for i, e := range entries {
		ops[i] = e.op
	}
	return ops
}

// ByPage groups the edits per page, each group in last-put order.
func (s *EditSet) ByPage() map[int][]EditOperation {
	out := make(map[int][]EditOperation)
	for _, op := range s.Ops() {
		out[op.Page] = append(out[op.Page], op)
	}
	return out
}
