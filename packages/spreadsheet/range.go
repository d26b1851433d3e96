package spreadsheet

import "iter"

// Range represents a lazy range type for memory-efficient formula evaluation
type Range interface {
	GetBounds() CellRange
	Iterate() iter.Seq2[CellAddress, Primitive]
	IterateValues() iter.Seq[Primitive]
}

// valueRange implements Range by resolving each cell through the evaluation
// context when iterated, so no values are copied up front
type valueRange struct {
	bounds CellRange
	ctx    EvalContext
}

var _ Range = (*valueRange)(nil)

// GetBounds returns the range boundaries
func (r *valueRange) GetBounds() CellRange {
	return r.bounds
}

// Iterate returns an iterator over all cells in the range with their values.
// empty cells yield nil.
func (r *valueRange) Iterate() iter.Seq2[CellAddress, Primitive] {
	return func(yield func(CellAddress, Primitive) bool) {
		for addr := range r.bounds.Cells() {
			if !yield(addr, r.ctx.Lookup(addr)) {
				return
			}
		}
	}
}

// IterateValues returns an iterator over cell values in the range
func (r *valueRange) IterateValues() iter.Seq[Primitive] {
	return func(yield func(Primitive) bool) {
		for _, value := range r.Iterate() {
			if !yield(value) {
				return
			}
		}
	}
}
