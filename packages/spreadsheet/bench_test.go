package spreadsheet

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func newBenchSheet(b *testing.B, rows, columns, workers int) *Spreadsheet {
	b.Helper()
	cfg := DefaultConfig()
	cfg.MaxRows = rows
	cfg.MaxColumns = columns
	cfg.Workers = workers

	s, err := NewSpreadsheetWithConfig(cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(b, err)
	return s
}

func commit(b *testing.B, s *Spreadsheet, address, rawText string) {
	b.Helper()
	_, err := s.CommitEdit(context.Background(), address, rawText)
	require.NoError(b, err)
}

func BenchmarkLargeCellPopulation(b *testing.B) {
	for i := 0; i < b.N; i++ {
		s := newBenchSheet(b, 100, 26, 1)
		for row := 1; row <= 100; row++ {
			for col := 1; col <= 26; col++ {
				commit(b, s, fmt.Sprintf("%c%d", 'A'+col-1, row), strconv.Itoa(row*col))
			}
		}
	}
}

func BenchmarkFormulaDependencyChain(b *testing.B) {
	s := newBenchSheet(b, 100, 1, 1)
	commit(b, s, "A1", "1")
	for i := 2; i <= 100; i++ {
		commit(b, s, fmt.Sprintf("A%d", i), fmt.Sprintf("=A%d+1", i-1))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		commit(b, s, "A1", strconv.Itoa(i))
	}
}

func BenchmarkWideDependencyFanOut(b *testing.B) {
	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			s := newBenchSheet(b, 500, 2, workers)
			commit(b, s, "A1", "100")
			for i := 2; i <= 500; i++ {
				commit(b, s, fmt.Sprintf("B%d", i), "=A1*2")
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				commit(b, s, "A1", strconv.Itoa(i))
			}
		})
	}
}

func BenchmarkLargeRangeSUM(b *testing.B) {
	s := newBenchSheet(b, 1000, 2, 1)
	for i := 1; i <= 1000; i++ {
		commit(b, s, fmt.Sprintf("A%d", i), strconv.Itoa(i))
	}
	commit(b, s, "B1", "=SUM(A1:A1000)")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		commit(b, s, "A500", strconv.Itoa(i))
	}
}

func BenchmarkComplexNestedFormulas(b *testing.B) {
	s := newBenchSheet(b, 20, 5, 1)
	for i := 1; i <= 20; i++ {
		commit(b, s, fmt.Sprintf("A%d", i), strconv.Itoa(i))
		commit(b, s, fmt.Sprintf("B%d", i), strconv.Itoa(i*2))
	}
	commit(b, s, "C1", "=AVERAGE(A1:A20)*SUM(B1:B20)-MAX(A1:A20)")
	commit(b, s, "D1", "=ROUND(ABS(C1)/7, 2)")
	commit(b, s, "E1", `=CONCATENATE(UPPER("total: "), D1, " of ", MIN(B1:B20))`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		commit(b, s, "A1", strconv.Itoa(i))
	}
}

func BenchmarkParseFormula(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := ParseFormula(`ROUND(SUM(A1:A20)/COUNT(A1:A20), 2) & " avg" & UPPER(TRIM(B1))`, nil); err != nil {
			b.Fatal(err)
		}
	}
}
