package spreadsheet

import "slices"

// Worksheet is the value store: a sparse map of the cells that carry
// content or a declared type. absent cells read as empty.
type Worksheet struct {
	bounds Bounds
	cells  map[CellAddress]*Cell
}

// NewWorksheet creates an empty worksheet with the given extent
func NewWorksheet(bounds Bounds) *Worksheet {
	return &Worksheet{
		bounds: bounds,
		cells:  make(map[CellAddress]*Cell),
	}
}

// Bounds returns the addressable extent
func (w *Worksheet) Bounds() Bounds {
	return w.bounds
}

// GetCell returns the stored cell, or nil when the address is empty
func (w *Worksheet) GetCell(addr CellAddress) *Cell {
	return w.cells[addr]
}

// SetCell stores cell at addr. a cell with no content and no declared type
// is dropped instead, keeping storage sparse.
func (w *Worksheet) SetCell(addr CellAddress, cell *Cell) {
	if cell == nil || cell.isEmpty() {
		delete(w.cells, addr)
		return
	}
	w.cells[addr] = cell
}

// RemoveCell deletes whatever is stored at addr
func (w *Worksheet) RemoveCell(addr CellAddress) {
	delete(w.cells, addr)
}

// SetFormulaResult records a computed result on an existing cell
func (w *Worksheet) SetFormulaResult(addr CellAddress, result cellResult) {
	cell, exists := w.cells[addr]
	if !exists {
		return
	}
	if result.Err != nil {
		cell.Value = nil
		cell.Err = result.Err
		return
	}
	cell.Value = result.Value
	cell.Err = nil
}

// GetTotalCells returns the number of stored cells
func (w *Worksheet) GetTotalCells() int {
	return len(w.cells)
}

// Addresses returns every stored address sorted by row, then column
func (w *Worksheet) Addresses() []CellAddress {
	result := make([]CellAddress, 0, len(w.cells))
	for addr := range w.cells {
		result = append(result, addr)
	}
	slices.SortFunc(result, CellAddress.Compare)
	return result
}
