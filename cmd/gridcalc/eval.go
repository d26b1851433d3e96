package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vogtb/gridcalc/packages/spreadsheet"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Read edits from stdin and print what each one recomputes",
	Long: `Eval reads one edit per line from stdin:

  A1 10           write a literal
  A2 =A1*2        write a formula
  A1              clear a cell
  :type A1 number declare a cell type (auto|text|number|date)
  :show           print the grid

Blank lines and lines starting with # are ignored.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sheet, shutdown, err := newSpreadsheet(cmd)
		if err != nil {
			return err
		}
		defer shutdown()
		return evalLines(cmd.Context(), sheet, cmd.InOrStdin(), newRenderer(cmd.OutOrStdout(), useColor(cmd)))
	},
}

// evalLines applies each input line in turn. rejected edits are reported
// and skipped; only I/O failures and cancellation end the session early.
func evalLines(ctx context.Context, sheet *spreadsheet.Spreadsheet, in io.Reader, out *renderer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := evalLine(ctx, sheet, line, out); err != nil {
			var editErr *spreadsheet.EditError
			if !errors.As(err, &editErr) {
				return err
			}
			if werr := out.failure(err); werr != nil {
				return werr
			}
		}
	}
	return scanner.Err()
}

func evalLine(ctx context.Context, sheet *spreadsheet.Spreadsheet, line string, out *renderer) error {
	if command, ok := strings.CutPrefix(line, ":"); ok {
		fields := strings.Fields(command)
		switch {
		case len(fields) == 1 && fields[0] == "show":
			return out.grid(sheet.Cells())
		case len(fields) == 3 && fields[0] == "type":
			t, known := spreadsheet.ParseDataType(fields[2])
			if !known {
				return spreadsheet.NewEditError(spreadsheet.EditKindValidation, fields[1],
					fmt.Sprintf("unknown data type %q", fields[2]), nil)
			}
			return sheet.SetDeclaredType(ctx, fields[1], t)
		}
		return spreadsheet.NewEditError(spreadsheet.EditKindParse, "", fmt.Sprintf("unknown command %q", line), nil)
	}

	address, text, _ := strings.Cut(line, " ")
	snapshot, err := sheet.CommitEdit(ctx, address, strings.TrimSpace(text))
	if err != nil {
		return err
	}
	return out.snapshot(snapshot)
}
