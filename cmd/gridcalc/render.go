package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/vogtb/gridcalc/packages/spreadsheet"
)

var (
	errorColor  = color.New(color.FgRed, color.Bold)
	headerColor = color.New(color.FgCyan)
	cellColor   = color.New(color.FgGreen)
)

// maxCellWidth truncates long cell text in the grid
const maxCellWidth = 24

type renderer struct {
	w     io.Writer
	color bool
}

func newRenderer(w io.Writer, useColor bool) *renderer {
	return &renderer{w: w, color: useColor}
}

func (r *renderer) paint(c *color.Color, text string) string {
	if !r.color {
		return text
	}
	c.EnableColor()
	return c.Sprint(text)
}

// fit pads or truncates text to exactly width terminal columns
func fit(text string, width int) string {
	if runewidth.StringWidth(text) > width {
		text = runewidth.Truncate(text, width, "...")
	}
	return runewidth.FillRight(text, width)
}

// grid writes the smallest rectangle holding every view as an aligned table
func (r *renderer) grid(views []spreadsheet.CellView) error {
	if len(views) == 0 {
		_, err := fmt.Fprintln(r.w, "(empty)")
		return err
	}

	first, last := views[0].Address, views[0].Address
	byAddr := make(map[spreadsheet.CellAddress]spreadsheet.CellView, len(views))
	for _, v := range views {
		byAddr[v.Address] = v
		first.Row, last.Row = min(first.Row, v.Address.Row), max(last.Row, v.Address.Row)
		first.Column, last.Column = min(first.Column, v.Address.Column), max(last.Column, v.Address.Column)
	}

	gutter := len(strconv.FormatUint(uint64(last.Row), 10))
	widths := make(map[uint32]int)
	for col := first.Column; col <= last.Column; col++ {
		widths[col] = runewidth.StringWidth(spreadsheet.CellAddress{Column: col, Row: 1}.ColumnName())
	}
	for _, v := range views {
		widths[v.Address.Column] = min(maxCellWidth, max(widths[v.Address.Column], runewidth.StringWidth(v.Display)))
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", gutter))
	for col := first.Column; col <= last.Column; col++ {
		name := spreadsheet.CellAddress{Column: col, Row: 1}.ColumnName()
		b.WriteString(" | ")
		b.WriteString(r.paint(headerColor, fit(name, widths[col])))
	}
	b.WriteByte('\n')

	for row := first.Row; row <= last.Row; row++ {
		b.WriteString(r.paint(headerColor, fmt.Sprintf("%*d", gutter, row)))
		for col := first.Column; col <= last.Column; col++ {
			b.WriteString(" | ")
			v := byAddr[spreadsheet.CellAddress{Column: col, Row: row}]
			text := fit(v.Display, widths[col])
			if v.Err != nil {
				text = r.paint(errorColor, text)
			}
			b.WriteString(text)
		}
		b.WriteByte('\n')
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

// snapshot writes one line per recomputed cell, in evaluation order
func (r *renderer) snapshot(s *spreadsheet.EvaluationSnapshot) error {
	for _, addr := range s.Recomputed {
		view := s.Cells[addr]
		value := view.Display
		if view.Err != nil {
			value = r.paint(errorColor, fmt.Sprintf("%s (%s)", view.Display, view.Err.Message))
		}
		if _, err := fmt.Fprintf(r.w, "%s = %s\n", r.paint(cellColor, addr.String()), value); err != nil {
			return err
		}
	}
	return nil
}

// failure writes a rejected edit
func (r *renderer) failure(err error) error {
	_, werr := fmt.Fprintln(r.w, r.paint(errorColor, "error: ")+err.Error())
	return werr
}
