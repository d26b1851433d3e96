package spreadsheet

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BuiltInFunctions contains all spreadsheet built-in functions. each method
// receives arguments already checked against its registered shape.
type BuiltInFunctions struct {
	lang language.Tag
}

// NewDefaultBuiltInFunctions creates a BuiltInFunctions with default
// implementations
func NewDefaultBuiltInFunctions() *BuiltInFunctions {
	return &BuiltInFunctions{lang: language.Und}
}

// NewBuiltinRegistry returns a registry populated with every built-in
func NewBuiltinRegistry() *Registry {
	bf := NewDefaultBuiltInFunctions()
	r := NewRegistry()
	for _, spec := range bf.Specs() {
		if err := r.Register(spec); err != nil {
			panic(err)
		}
	}
	return r
}

// Specs declares the shape of every built-in
func (bf *BuiltInFunctions) Specs() []FunctionSpec {
	oneRange := []ArgKind{ArgRange}
	oneScalar := []ArgKind{ArgScalar}
	return []FunctionSpec{
		{Name: "SUM", Params: oneRange, Eval: bf.SUM},
		{Name: "AVERAGE", Params: oneRange, Eval: bf.AVERAGE},
		{Name: "COUNT", Params: oneRange, Eval: bf.COUNT},
		{Name: "MAX", Params: oneRange, Eval: bf.MAX},
		{Name: "MIN", Params: oneRange, Eval: bf.MIN},
		{Name: "TRIM", Params: oneScalar, Eval: bf.TRIM},
		{Name: "UPPER", Params: oneScalar, Eval: bf.UPPER},
		{Name: "LOWER", Params: oneScalar, Eval: bf.LOWER},
		{Name: "LEN", Params: oneScalar, Eval: bf.LEN},
		{Name: "ABS", Params: oneScalar, Eval: bf.ABS},
		{Name: "ROUND", Params: []ArgKind{ArgScalar, ArgScalar}, Optional: 1, Eval: bf.ROUND},
		{Name: "CONCATENATE", Params: oneScalar, Variadic: true, Eval: bf.CONCATENATE},
		{Name: "FIND_AND_REPLACE", Params: []ArgKind{ArgScalar, ArgScalar, ArgScalar}, Eval: bf.FIND_AND_REPLACE},
	}
}

// checkForError returns the error if value is a *SpreadsheetError, nil otherwise
func checkForError(value Primitive) *SpreadsheetError {
	if err, ok := value.(*SpreadsheetError); ok {
		return err
	}
	return nil
}

// aggregateValues walks a range argument. every non-empty cell contributes
// a value, text and booleans as 0; numeric reports how many were real
// numbers. the first error cell wins.
func aggregateValues(arg Primitive) (values []float64, numeric int, err error) {
	r, ok := arg.(Range)
	if !ok {
		return nil, 0, NewSpreadsheetError(ErrorCodeArity, "expected a range argument")
	}
	for value := range r.IterateValues() {
		if spreadsheetErr := checkForError(value); spreadsheetErr != nil {
			return nil, 0, spreadsheetErr
		}
		switch v := value.(type) {
		case nil:
			continue
		case float64:
			if !math.IsNaN(v) {
				values = append(values, v)
				numeric++
				continue
			}
		}
		values = append(values, 0)
	}
	return values, numeric, nil
}

func sumOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}

func (bf *BuiltInFunctions) SUM(args []Primitive) (Primitive, error) {
	values, _, err := aggregateValues(args[0])
	if err != nil {
		return nil, err
	}
	return sumOf(values), nil
}

// AVERAGE divides by every non-empty cell, so text lowers the mean
func (bf *BuiltInFunctions) AVERAGE(args []Primitive) (Primitive, error) {
	values, _, err := aggregateValues(args[0])
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, NewSpreadsheetError(ErrorCodeDiv0, "AVERAGE of an empty range")
	}
	return sumOf(values) / float64(len(values)), nil
}

func (bf *BuiltInFunctions) COUNT(args []Primitive) (Primitive, error) {
	_, numeric, err := aggregateValues(args[0])
	if err != nil {
		return nil, err
	}
	return float64(numeric), nil
}

// MAX returns 0 when the range is empty
func (bf *BuiltInFunctions) MAX(args []Primitive) (Primitive, error) {
	values, _, err := aggregateValues(args[0])
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return 0.0, nil
	}
	return slices.Max(values), nil
}

// MIN returns 0 when the range is empty
func (bf *BuiltInFunctions) MIN(args []Primitive) (Primitive, error) {
	values, _, err := aggregateValues(args[0])
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return 0.0, nil
	}
	return slices.Min(values), nil
}

func (bf *BuiltInFunctions) TRIM(args []Primitive) (Primitive, error) {
	return strings.TrimSpace(toString(args[0])), nil
}

func (bf *BuiltInFunctions) UPPER(args []Primitive) (Primitive, error) {
	// casers keep state, so one per call
	return cases.Upper(bf.lang).String(toString(args[0])), nil
}

func (bf *BuiltInFunctions) LOWER(args []Primitive) (Primitive, error) {
	return cases.Lower(bf.lang).String(toString(args[0])), nil
}

func (bf *BuiltInFunctions) LEN(args []Primitive) (Primitive, error) {
	return float64(utf8.RuneCountInString(toString(args[0]))), nil
}

func (bf *BuiltInFunctions) ABS(args []Primitive) (Primitive, error) {
	num, ok := toNumber(args[0])
	if !ok {
		return nil, NewSpreadsheetError(ErrorCodeType, "ABS requires a numeric argument")
	}
	return math.Abs(num), nil
}

func (bf *BuiltInFunctions) ROUND(args []Primitive) (Primitive, error) {
	num, ok := toNumber(args[0])
	if !ok {
		return nil, NewSpreadsheetError(ErrorCodeType, "ROUND requires a numeric first argument")
	}

	places := 0.0
	if len(args) == 2 {
		places, ok = toNumber(args[1])
		if !ok {
			return nil, NewSpreadsheetError(ErrorCodeType, "ROUND requires a numeric second argument")
		}
	}

	multiplier := math.Pow(10, math.Trunc(places))
	return math.Round(num*multiplier) / multiplier, nil
}

func (bf *BuiltInFunctions) CONCATENATE(args []Primitive) (Primitive, error) {
	var result strings.Builder
	for _, arg := range args {
		result.WriteString(toString(arg))
	}
	return result.String(), nil
}

// FIND_AND_REPLACE replaces every case-sensitive occurrence of the second
// argument in the first with the third
func (bf *BuiltInFunctions) FIND_AND_REPLACE(args []Primitive) (Primitive, error) {
	text, old, replacement := toString(args[0]), toString(args[1]), toString(args[2])
	if old == "" {
		return text, nil
	}
	return strings.ReplaceAll(text, old, replacement), nil
}

// toNumber converts value to number, returning ok=false if conversion fails.
// empty is 0, booleans are 1/0 and numeric-looking text parses.
func toNumber(value Primitive) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		if v == "" {
			return 0, true
		}
		num, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return num, true
	case nil:
		return 0, true
	default:
		return 0, false
	}
}

// toString converts value to its display text
func toString(value Primitive) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return formatNumber(v)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case *SpreadsheetError:
		return v.ErrorCode.Display()
	default:
		return fmt.Sprint(value)
	}
}

// formatNumber renders a number without trailing zeros, e.g. 3 or 2.5.
// fractions show 15 significant digits, so 0.1+0.2 displays as 0.3 while
// the stored value keeps full precision.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', 15, 64)
}
