package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vogtb/gridcalc/packages/script"
	"github.com/vogtb/gridcalc/packages/spreadsheet"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] script.yaml",
	Short: "Apply an edit script and print the resulting grid",
	Long: `Run replays the edits of a YAML or TOML script in order, reports edits the
engine rejected and checks the script's expected cell values`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	runCmd.Flags().String("format", "grid", "output format (grid|json)")
}

// cellJSON is the json form of a cell view
type cellJSON struct {
	Cell    string `json:"cell"`
	Content string `json:"content"`
	Formula bool   `json:"formula,omitempty"`
	Value   any    `json:"value"`
	Error   string `json:"error,omitempty"`
	Type    string `json:"type"`
}

func runScript(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "grid" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}

	s, err := script.Load(args[0])
	if err != nil {
		return err
	}
	sheet, shutdown, err := newSpreadsheet(cmd)
	if err != nil {
		return err
	}
	defer shutdown()

	result, err := script.Apply(cmd.Context(), sheet, s)
	if err != nil {
		return err
	}
	slog.Debug("script applied",
		slog.String("script", s.Name),
		slog.Int("applied", result.Applied),
		slog.Int("recomputed", result.Recomputed))

	out := newRenderer(cmd.OutOrStdout(), useColor(cmd))
	if format == "json" {
		if err := writeJSON(cmd, sheet.Cells()); err != nil {
			return err
		}
	} else if err := out.grid(sheet.Cells()); err != nil {
		return err
	}

	errOut := newRenderer(cmd.ErrOrStderr(), useColor(cmd))
	for _, rejected := range result.Rejected {
		if err := errOut.failure(fmt.Errorf("step %d: %w", rejected.Step, rejected.Err)); err != nil {
			return err
		}
	}
	for _, m := range result.Mismatches {
		if err := errOut.failure(fmt.Errorf("%s: expected %q, got %q", m.Cell, m.Want, m.Got)); err != nil {
			return err
		}
	}

	if !result.OK() {
		return fmt.Errorf("%s: %d rejected edit(s), %d failed expectation(s)",
			s.Name, len(result.Rejected), len(result.Mismatches))
	}
	return nil
}

func writeJSON(cmd *cobra.Command, views []spreadsheet.CellView) error {
	cells := make([]cellJSON, 0, len(views))
	for _, v := range views {
		c := cellJSON{
			Cell:    v.Address.String(),
			Content: v.Content,
			Formula: v.IsFormula,
			Value:   v.Value,
			Type:    v.DeclaredType.String(),
		}
		if v.Err != nil {
			c.Error = v.Err.ErrorCode.Display()
		}
		cells = append(cells, c)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(cells)
}
