package spreadsheet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLiteral(t *testing.T) {
	a1 := MustParseAddress("A1")

	tests := []struct {
		name     string
		declared DataType
		text     string
		valid    bool
	}{
		{"number integer", DataTypeNumber, "42", true},
		{"number signed decimal", DataTypeNumber, "-12.50", true},
		{"number leading plus", DataTypeNumber, "+3", true},
		{"number bare fraction", DataTypeNumber, ".5", true},
		{"number trailing point", DataTypeNumber, "5.", true},
		{"number text", DataTypeNumber, "abc", false},
		{"number with unit", DataTypeNumber, "12kg", false},
		{"number exponent", DataTypeNumber, "1e3", false},
		{"number spaces", DataTypeNumber, " 1", false},
		{"date us order", DataTypeDate, "12/31/2024", true},
		{"date iso order", DataTypeDate, "2024/02/29", true},
		{"date not a leap year", DataTypeDate, "2023/02/29", false},
		{"date month out of range", DataTypeDate, "13/01/2024", false},
		{"date dashes", DataTypeDate, "2024-01-01", false},
		{"date text", DataTypeDate, "tomorrow", false},
		{"empty always allowed", DataTypeNumber, "", true},
		{"empty date allowed", DataTypeDate, "", true},
		{"text accepts anything", DataTypeText, "12/31/2024", true},
		{"auto accepts anything", DataTypeAuto, "whatever", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLiteral(a1, tt.declared, tt.text)
			if tt.valid {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var editErr *EditError
			require.ErrorAs(t, err, &editErr)
			assert.Equal(t, EditKindValidation, editErr.Kind)
			assert.Equal(t, "A1", editErr.Address)
			assert.Contains(t, editErr.Error(), tt.declared.String())
		})
	}
}

func TestInferType(t *testing.T) {
	assert.Equal(t, DataTypeAuto, InferType(""))
	assert.Equal(t, DataTypeNumber, InferType("10"))
	assert.Equal(t, DataTypeNumber, InferType("-0.25"))
	assert.Equal(t, DataTypeDate, InferType("01/15/2025"))
	assert.Equal(t, DataTypeDate, InferType("2025/01/15"))
	assert.Equal(t, DataTypeText, InferType("hello"))
	assert.Equal(t, DataTypeText, InferType("2025/15/01"))
}

func TestLiteralValue(t *testing.T) {
	tests := []struct {
		name     string
		declared DataType
		text     string
		value    Primitive
		inferred DataType
	}{
		{"auto number", DataTypeAuto, "10", 10.0, DataTypeNumber},
		{"auto date", DataTypeAuto, "01/15/2025", "01/15/2025", DataTypeDate},
		{"auto text", DataTypeAuto, "hello", "hello", DataTypeText},
		{"auto empty", DataTypeAuto, "", nil, DataTypeAuto},
		{"text keeps numeric text", DataTypeText, "10", "10", DataTypeText},
		{"number", DataTypeNumber, "2.5", 2.5, DataTypeNumber},
		{"number over stale text", DataTypeNumber, "abc", "abc", DataTypeText},
		{"date", DataTypeDate, "2025/01/15", "2025/01/15", DataTypeDate},
		{"date over stale text", DataTypeDate, "abc", "abc", DataTypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, inferred := LiteralValue(tt.declared, tt.text)
			assert.Equal(t, tt.value, value)
			assert.Equal(t, tt.inferred, inferred)
		})
	}
}

func TestParseDataType(t *testing.T) {
	for _, name := range []string{"auto", "text", "number", "date"} {
		dt, ok := ParseDataType(name)
		require.True(t, ok, name)
		assert.Equal(t, name, dt.String())
	}

	dt, ok := ParseDataType("NUMBER")
	require.True(t, ok)
	assert.Equal(t, DataTypeNumber, dt)

	_, ok = ParseDataType("currency")
	assert.False(t, ok)
}
