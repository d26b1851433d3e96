package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogtb/gridcalc/packages/spreadsheet"
)

func TestRendererGrid(t *testing.T) {
	sheet := spreadsheet.NewSpreadsheet()
	ctx := context.Background()
	for _, edit := range [][2]string{
		{"B2", "10"},
		{"C2", "=B2/0"},
		{"B3", "日本語"},
		{"C4", "=B2*2"},
	} {
		_, err := sheet.CommitEdit(ctx, edit[0], edit[1])
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, newRenderer(&buf, false).grid(sheet.Cells()))

	assert.Equal(t, strings.Join([]string{
		"  | B      | C      ",
		"2 | 10     | #DIV/0!",
		"3 | 日本語 |        ",
		"4 |        | 20     ",
		"",
	}, "\n"), buf.String())
}

func TestRendererEmptyGrid(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newRenderer(&buf, false).grid(nil))
	assert.Equal(t, "(empty)\n", buf.String())
}

func TestFit(t *testing.T) {
	assert.Equal(t, "ab  ", fit("ab", 4))
	assert.Equal(t, "日本", fit("日本", 4))
	assert.Equal(t, 4, len([]rune(fit("abcdefgh", 4))))
}

func TestRendererSnapshot(t *testing.T) {
	sheet := spreadsheet.NewSpreadsheet()
	ctx := context.Background()
	_, err := sheet.CommitEdit(ctx, "A2", "=A1*2")
	require.NoError(t, err)
	_, err = sheet.CommitEdit(ctx, "A3", "=1/A1")
	require.NoError(t, err)

	snapshot, err := sheet.CommitEdit(ctx, "A1", "4")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, newRenderer(&buf, false).snapshot(snapshot))
	assert.Equal(t, "A1 = 4\nA2 = 8\nA3 = 0.25\n", buf.String())

	buf.Reset()
	snapshot, err = sheet.CommitEdit(ctx, "A1", "0")
	require.NoError(t, err)
	require.NoError(t, newRenderer(&buf, false).snapshot(snapshot))
	assert.Contains(t, buf.String(), "A3 = #DIV/0! (")
}

func TestRendererFailure(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newRenderer(&buf, false).failure(errors.New("A1: boom")))
	assert.Equal(t, "error: A1: boom\n", buf.String())
}
