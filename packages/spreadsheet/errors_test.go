package spreadsheet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEditError(t *testing.T) {
	tests := []struct {
		kind     EditKind
		sentinel error
		name     string
	}{
		{EditKindInvalidAddress, ErrInvalidAddress, "InvalidAddress"},
		{EditKindParse, ErrParse, "ParseError"},
		{EditKindCycle, ErrCycle, "CycleError"},
		{EditKindValidation, ErrValidation, "ValidationError"},
		{EditKindCanceled, ErrCanceled, "Canceled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewEditError(tt.kind, "B2", "nope", nil)
			assert.Equal(t, tt.name, tt.kind.String())
			assert.Equal(t, "B2: nope", err.Error())
			assert.ErrorIs(t, err, tt.sentinel)

			for _, other := range tests {
				if other.kind != tt.kind {
					assert.NotErrorIs(t, err, other.sentinel)
				}
			}
		})
	}

	assert.Equal(t, "Unknown", EditKind(0).String())
}

func TestEditErrorWrapsCause(t *testing.T) {
	err := NewEditError(EditKindCanceled, "A1", "recalculation canceled", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrCanceled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	parseErr := NewSpreadsheetError(ErrorCodeParse, "unexpected token")
	err = NewEditError(EditKindParse, "", "unexpected token", parseErr)
	assert.Equal(t, "unexpected token", err.Error())

	var cellErr *SpreadsheetError
	assert.True(t, errors.As(err, &cellErr))
	assert.Equal(t, ErrorCodeParse, cellErr.ErrorCode)
}
