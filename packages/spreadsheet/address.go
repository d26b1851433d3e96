package spreadsheet

import (
	"cmp"
	"fmt"
	"iter"
	"strings"

	"fortio.org/safecast"
	"github.com/xuri/excelize/v2"
)

// CellAddress identifies a single cell. Column is zero-based (A=0), Row is
// one-based, matching the text form "<letters><digits>".
type CellAddress struct {
	Column uint32
	Row    uint32
}

// ParseAddress parses text such as "A1" or "aa12" into a CellAddress
func ParseAddress(text string) (CellAddress, error) {
	if !isCellShape(text) {
		return CellAddress{}, NewSpreadsheetError(ErrorCodeParse, fmt.Sprintf("invalid cell reference: %q", text))
	}
	col, row, err := excelize.CellNameToCoordinates(strings.ToUpper(text))
	if err != nil {
		return CellAddress{}, NewSpreadsheetError(ErrorCodeParse, fmt.Sprintf("invalid cell reference %q: %v", text, err))
	}
	column, err := safecast.Conv[uint32](col - 1)
	if err != nil {
		return CellAddress{}, NewSpreadsheetError(ErrorCodeParse, fmt.Sprintf("column out of range in %q", text))
	}
	r, err := safecast.Conv[uint32](row)
	if err != nil {
		return CellAddress{}, NewSpreadsheetError(ErrorCodeParse, fmt.Sprintf("row out of range in %q", text))
	}
	return CellAddress{Column: column, Row: r}, nil
}

// MustParseAddress is ParseAddress for literals known to be valid
func MustParseAddress(text string) CellAddress {
	addr, err := ParseAddress(text)
	if err != nil {
		panic(err)
	}
	return addr
}

// String renders the address in canonical uppercase form, e.g. "B12"
func (a CellAddress) String() string {
	name, err := excelize.CoordinatesToCellName(int(a.Column)+1, int(a.Row))
	if err != nil {
		return fmt.Sprintf("R%dC%d", a.Row, a.Column+1)
	}
	return name
}

// ColumnName returns the letter part of the address
func (a CellAddress) ColumnName() string {
	name, err := excelize.ColumnNumberToName(int(a.Column) + 1)
	if err != nil {
		return ""
	}
	return name
}

// Compare orders addresses by row, then column
func (a CellAddress) Compare(b CellAddress) int {
	if c := cmp.Compare(a.Row, b.Row); c != 0 {
		return c
	}
	return cmp.Compare(a.Column, b.Column)
}

// isCellShape checks for at least one ASCII letter followed by at least one
// digit and nothing else
func isCellShape(s string) bool {
	letterEnd := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' {
			letterEnd = i + 1
		} else {
			break
		}
	}
	if letterEnd == 0 || letterEnd == len(s) {
		return false
	}
	for i := letterEnd; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// CellRange is a rectangular block of cells, always normalized so Start is
// the top-left corner and End the bottom-right
type CellRange struct {
	Start CellAddress
	End   CellAddress
}

// NewCellRange builds a normalized range from two corners in any order
func NewCellRange(a, b CellAddress) CellRange {
	return CellRange{
		Start: CellAddress{Column: min(a.Column, b.Column), Row: min(a.Row, b.Row)},
		End:   CellAddress{Column: max(a.Column, b.Column), Row: max(a.Row, b.Row)},
	}
}

// ParseRange parses text such as "A1:B3". "B3:A1" yields the same range.
func ParseRange(text string) (CellRange, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 2 {
		return CellRange{}, NewSpreadsheetError(ErrorCodeParse, fmt.Sprintf("invalid range: %q", text))
	}
	start, err := ParseAddress(parts[0])
	if err != nil {
		return CellRange{}, err
	}
	end, err := ParseAddress(parts[1])
	if err != nil {
		return CellRange{}, err
	}
	return NewCellRange(start, end), nil
}

func (r CellRange) String() string {
	return r.Start.String() + ":" + r.End.String()
}

// Rows returns the number of rows covered
func (r CellRange) Rows() int {
	return int(r.End.Row-r.Start.Row) + 1
}

// Cols returns the number of columns covered
func (r CellRange) Cols() int {
	return int(r.End.Column-r.Start.Column) + 1
}

// Size returns the number of cells covered
func (r CellRange) Size() int {
	return r.Rows() * r.Cols()
}

// Contains checks if a cell is within the range
func (r CellRange) Contains(addr CellAddress) bool {
	return addr.Row >= r.Start.Row && addr.Row <= r.End.Row &&
		addr.Column >= r.Start.Column && addr.Column <= r.End.Column
}

// Cells yields every address of the range in row-major order. the sequence
// is lazy and can be ranged over any number of times.
func (r CellRange) Cells() iter.Seq[CellAddress] {
	return func(yield func(CellAddress) bool) {
		for row := r.Start.Row; row <= r.End.Row; row++ {
			for col := r.Start.Column; col <= r.End.Column; col++ {
				if !yield(CellAddress{Column: col, Row: row}) {
					return
				}
			}
		}
	}
}

// Bounds is the addressable extent of a grid
type Bounds struct {
	MaxRows    uint32
	MaxColumns uint32
}

// Contains reports whether addr lies inside the grid
func (b Bounds) Contains(addr CellAddress) bool {
	return addr.Row >= 1 && addr.Row <= b.MaxRows && addr.Column < b.MaxColumns
}

// ContainsRange reports whether every cell of r lies inside the grid
func (b Bounds) ContainsRange(r CellRange) bool {
	return b.Contains(r.Start) && b.Contains(r.End)
}
