package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rangeOf(t *testing.T, ctx EvalContext, text string) Range {
	t.Helper()
	r, err := ParseRange(text)
	require.NoError(t, err)
	return &valueRange{bounds: r, ctx: ctx}
}

func TestAggregateFunctions(t *testing.T) {
	bf := NewDefaultBuiltInFunctions()
	ctx := newMapContext(map[string]Primitive{
		"A1": 10.0,
		"A2": 20.0,
		"A3": 30.0,
		"B1": 4.0,
		"B2": "abc",
		"B3": -2.0,
		"C1": "hello",
		"D1": 0.1,
		"D2": 0.2,
	})

	tests := []struct {
		name     string
		fn       FunctionImpl
		rng      string
		expected Primitive
	}{
		{"SUM numbers", bf.SUM, "A1:A3", 60.0},
		{"SUM counts text as zero", bf.SUM, "B1:B5", 2.0},
		{"SUM decimals", bf.SUM, "D1:D2", 0.3},
		{"SUM empty range", bf.SUM, "Z1:Z5", 0.0},
		{"AVERAGE numbers", bf.AVERAGE, "A1:A3", 20.0},
		{"AVERAGE counts text as zero", bf.AVERAGE, "B1:B3", 2.0 / 3.0},
		{"COUNT numbers", bf.COUNT, "A1:A3", 3.0},
		{"COUNT excludes text", bf.COUNT, "B1:B3", 2.0},
		{"COUNT empty range", bf.COUNT, "Z1:Z5", 0.0},
		{"MAX numbers", bf.MAX, "A1:A3", 30.0},
		{"MAX with text", bf.MAX, "B2:B3", 0.0},
		{"MAX empty range", bf.MAX, "Z1:Z5", 0.0},
		{"MAX only text", bf.MAX, "C1:C1", 0.0},
		{"MIN numbers", bf.MIN, "A1:A3", 10.0},
		{"MIN negative", bf.MIN, "B1:B3", -2.0},
		{"MIN empty range", bf.MIN, "Z1:Z5", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.fn([]Primitive{rangeOf(t, ctx, tt.rng)})
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, result, 1e-12)
		})
	}
}

func TestAverageOfEmptyRange(t *testing.T) {
	bf := NewDefaultBuiltInFunctions()
	ctx := newMapContext(nil)

	_, err := bf.AVERAGE([]Primitive{rangeOf(t, ctx, "A1:A10")})
	require.Error(t, err)

	var spreadsheetErr *SpreadsheetError
	require.ErrorAs(t, err, &spreadsheetErr)
	assert.Equal(t, ErrorCodeDiv0, spreadsheetErr.ErrorCode)
}

func TestAggregatePropagatesErrors(t *testing.T) {
	bf := NewDefaultBuiltInFunctions()
	ref := NewSpreadsheetError(ErrorCodeRef, "")
	ctx := newMapContext(map[string]Primitive{"A1": 1.0, "A2": ref})

	for name, fn := range map[string]FunctionImpl{
		"SUM": bf.SUM, "AVERAGE": bf.AVERAGE, "COUNT": bf.COUNT, "MAX": bf.MAX, "MIN": bf.MIN,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := fn([]Primitive{rangeOf(t, ctx, "A1:A3")})
			assert.Same(t, ref, err)
		})
	}
}

func TestTextFunctions(t *testing.T) {
	bf := NewDefaultBuiltInFunctions()

	tests := []struct {
		name     string
		fn       FunctionImpl
		args     []Primitive
		expected Primitive
	}{
		{"TRIM", bf.TRIM, []Primitive{"  hello  "}, "hello"},
		{"TRIM number", bf.TRIM, []Primitive{42.0}, "42"},
		{"TRIM empty", bf.TRIM, []Primitive{nil}, ""},
		{"UPPER", bf.UPPER, []Primitive{"hello"}, "HELLO"},
		{"UPPER unicode", bf.UPPER, []Primitive{"straße"}, "STRASSE"},
		{"LOWER", bf.LOWER, []Primitive{"HeLLo"}, "hello"},
		{"LEN", bf.LEN, []Primitive{"héllo"}, 5.0},
		{"CONCATENATE", bf.CONCATENATE, []Primitive{"a", 1.0, true}, "a1TRUE"},
		{"FIND_AND_REPLACE", bf.FIND_AND_REPLACE, []Primitive{"a-b-c", "-", "+"}, "a+b+c"},
		{"FIND_AND_REPLACE case sensitive", bf.FIND_AND_REPLACE, []Primitive{"Aa", "a", "x"}, "Ax"},
		{"FIND_AND_REPLACE empty needle", bf.FIND_AND_REPLACE, []Primitive{"abc", "", "x"}, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.fn(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestMathFunctions(t *testing.T) {
	bf := NewDefaultBuiltInFunctions()

	result, err := bf.ABS([]Primitive{-3.5})
	require.NoError(t, err)
	assert.Equal(t, 3.5, result)

	result, err = bf.ROUND([]Primitive{2.346, 2.0})
	require.NoError(t, err)
	assert.InDelta(t, 2.35, result, 1e-12)

	result, err = bf.ROUND([]Primitive{2.5})
	require.NoError(t, err)
	assert.Equal(t, 3.0, result)

	_, err = bf.ABS([]Primitive{"abc"})
	var spreadsheetErr *SpreadsheetError
	require.ErrorAs(t, err, &spreadsheetErr)
	assert.Equal(t, ErrorCodeType, spreadsheetErr.ErrorCode)
}

func TestRegistry(t *testing.T) {
	t.Run("built-ins are registered", func(t *testing.T) {
		names := DefaultRegistry().Names()
		for _, name := range []string{"SUM", "AVERAGE", "MAX", "MIN", "COUNT", "TRIM", "UPPER", "LOWER"} {
			assert.Contains(t, names, name)
		}
	})

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		spec, ok := DefaultRegistry().Lookup("sum")
		require.True(t, ok)
		assert.Equal(t, "SUM", spec.Name)
	})

	t.Run("custom function needs no parser change", func(t *testing.T) {
		r := NewBuiltinRegistry()
		require.NoError(t, r.Register(FunctionSpec{
			Name:   "double",
			Params: []ArgKind{ArgScalar},
			Eval: func(args []Primitive) (Primitive, error) {
				num, _ := toNumber(args[0])
				return num * 2, nil
			},
		}))

		ast, err := ParseFormula("DOUBLE(A1)+1", r)
		require.NoError(t, err)
		result := evaluateFormula(ast, newMapContext(map[string]Primitive{"A1": 4.0}))
		assert.Equal(t, 9.0, result.Value)

		_, err = ParseFormula("DOUBLE(A1)", nil)
		assert.Error(t, err, "default registry must not see the custom function")
	})

	t.Run("invalid specs are rejected", func(t *testing.T) {
		r := NewRegistry()
		assert.Error(t, r.Register(FunctionSpec{Name: "", Eval: NewDefaultBuiltInFunctions().SUM}))
		assert.Error(t, r.Register(FunctionSpec{Name: "NOOP"}))
		assert.Error(t, r.Register(FunctionSpec{Name: "BAD", Params: []ArgKind{ArgScalar}, Optional: 2, Eval: NewDefaultBuiltInFunctions().SUM}))
	})
}

func TestArity(t *testing.T) {
	spec, ok := DefaultRegistry().Lookup("ROUND")
	require.True(t, ok)
	assert.Error(t, spec.checkArity(0))
	assert.NoError(t, spec.checkArity(1))
	assert.NoError(t, spec.checkArity(2))
	assert.Error(t, spec.checkArity(3))

	concat, ok := DefaultRegistry().Lookup("CONCATENATE")
	require.True(t, ok)
	assert.Error(t, concat.checkArity(0))
	assert.NoError(t, concat.checkArity(7))
	assert.Equal(t, ArgScalar, concat.kindAt(6))
}
