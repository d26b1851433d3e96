package spreadsheet

import "strings"

// Primitive represents basic spreadsheet value types.
// types:
//   - float64: numeric values
//   - string: text values (including dates, which keep their entered text)
//   - bool: boolean values (TRUE/FALSE)
//   - nil: empty cells
//   - *SpreadsheetError: error values (#DIV/0!, #REF!, etc.)
//   - Range: only while evaluating a function argument, never stored
type Primitive any

// ErrorCode identifies the computational error kinds a formula can produce.
// they are stored on the cell and propagate through dependents unchanged.
type ErrorCode uint8

const (
	ErrorCodeRef   ErrorCode = 1 // #REF! - reference outside the grid
	ErrorCodeCycle ErrorCode = 2 // #CYCLE! - circular reference
	ErrorCodeType  ErrorCode = 3 // #VALUE! - wrong type of operand
	ErrorCodeArity ErrorCode = 4 // #N/A - wrong number or shape of arguments
	ErrorCodeParse ErrorCode = 5 // #NAME? - formula could not be parsed
	ErrorCodeDiv0  ErrorCode = 6 // #DIV/0! - division by zero
)

// ErrorMapper maps error codes to the text shown in a cell
var ErrorMapper = map[ErrorCode]string{
	ErrorCodeRef:   "#REF!",
	ErrorCodeCycle: "#CYCLE!",
	ErrorCodeType:  "#VALUE!",
	ErrorCodeArity: "#N/A",
	ErrorCodeParse: "#NAME?",
	ErrorCodeDiv0:  "#DIV/0!",
}

var errorKindNames = map[ErrorCode]string{
	ErrorCodeRef:   "RefError",
	ErrorCodeCycle: "CycleError",
	ErrorCodeType:  "TypeError",
	ErrorCodeArity: "ArityError",
	ErrorCodeParse: "ParseError",
	ErrorCodeDiv0:  "DivideByZero",
}

// String returns the error kind name, e.g. "DivideByZero"
func (c ErrorCode) String() string {
	if name, ok := errorKindNames[c]; ok {
		return name
	}
	return "UnknownError"
}

// Display returns the in-cell representation, e.g. "#DIV/0!"
func (c ErrorCode) Display() string {
	if text, ok := ErrorMapper[c]; ok {
		return text
	}
	return "#ERROR!"
}

// SpreadsheetError preserves error code for display in cells
type SpreadsheetError struct {
	ErrorCode ErrorCode
	Message   string
}

func (e *SpreadsheetError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorCode.Display()
}

func NewSpreadsheetError(code ErrorCode, message string) *SpreadsheetError {
	if message == "" {
		message = code.Display()
	}
	return &SpreadsheetError{
		ErrorCode: code,
		Message:   message,
	}
}

// DataType is the declared (or inferred) type of a cell's literal content
type DataType uint8

const (
	DataTypeAuto   DataType = 0
	DataTypeText   DataType = 1
	DataTypeNumber DataType = 2
	DataTypeDate   DataType = 3
)

var dataTypeNames = map[DataType]string{
	DataTypeAuto:   "auto",
	DataTypeText:   "text",
	DataTypeNumber: "number",
	DataTypeDate:   "date",
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseDataType resolves a type name such as "number" (case-insensitive)
func ParseDataType(name string) (DataType, bool) {
	for t, n := range dataTypeNames {
		if strings.EqualFold(n, name) {
			return t, true
		}
	}
	return DataTypeAuto, false
}

// Cell is the single typed record kept for every non-empty address. Value
// and Err are mutually exclusive: a cell either computed a scalar or failed.
type Cell struct {
	Content      string            // literal text, or formula text without the trigger
	IsFormula    bool              // whether Content is a formula
	FormulaID    uint32            // formula table ID for formula cells
	DeclaredType DataType          // user-declared type, Auto by default
	InferredType DataType          // display type derived from the literal
	Value        Primitive         // last computed scalar
	Err          *SpreadsheetError // last computed error
}

// isEmpty reports whether the cell carries nothing worth storing
func (c *Cell) isEmpty() bool {
	return c.Content == "" && c.DeclaredType == DataTypeAuto
}

// result returns the cell's computed value, or its error as a value
func (c *Cell) result() Primitive {
	if c == nil {
		return nil
	}
	if c.Err != nil {
		return c.Err
	}
	return c.Value
}

// CellView is the read-only projection of a cell handed to collaborators
type CellView struct {
	Address      CellAddress
	Content      string
	IsFormula    bool
	Value        Primitive
	Display      string
	Err          *SpreadsheetError
	DeclaredType DataType
	InferredType DataType
}

func newCellView(addr CellAddress, cell *Cell) CellView {
	view := CellView{Address: addr}
	if cell == nil {
		return view
	}
	view.Content = cell.Content
	view.IsFormula = cell.IsFormula
	view.Value = cell.Value
	view.Err = cell.Err
	view.DeclaredType = cell.DeclaredType
	view.InferredType = cell.InferredType
	if cell.Err != nil {
		view.Display = cell.Err.ErrorCode.Display()
	} else {
		view.Display = toString(cell.Value)
	}
	return view
}
