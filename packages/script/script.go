// Package script loads edit scripts, ordered lists of cell edits stored as
// YAML or TOML, and replays them against a spreadsheet.
package script

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vogtb/gridcalc/packages/spreadsheet"
)

// Format is the encoding of a script file
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Edit is one step of a script. Text nil means the step only declares a
// type; an empty Text clears the cell.
type Edit struct {
	Cell string  `yaml:"cell" toml:"cell" validate:"required"`
	Text *string `yaml:"text,omitempty" toml:"text,omitempty"`
	Type string  `yaml:"type,omitempty" toml:"type,omitempty" validate:"omitempty,oneof=auto text number date"`
}

// Script is a named sequence of edits plus the display text some cells
// are expected to show once every edit has been applied
type Script struct {
	Name   string            `yaml:"name" toml:"name"`
	Edits  []Edit            `yaml:"edits" toml:"edits" validate:"required,min=1,dive"`
	Expect map[string]string `yaml:"expect,omitempty" toml:"expect,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// FormatFromPath picks the format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%s: unsupported script format, expected .yaml, .yml or .toml", path)
}

// Load reads and validates the script at path
func Load(path string) (*Script, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse decodes and validates a script
func Parse(data []byte, format Format) (*Script, error) {
	var s Script
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &s); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown script format %q", format)
	}

	if err := validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	return &s, nil
}

// Rejection is an edit the engine refused
type Rejection struct {
	Step int // 1-based
	Cell string
	Err  error
}

// Mismatch is an expectation that did not hold
type Mismatch struct {
	Cell string
	Want string
	Got  string
}

// Result summarizes a replay
type Result struct {
	Applied    int
	Recomputed int
	Rejected   []Rejection
	Mismatches []Mismatch
}

// OK reports whether every edit was accepted and every expectation held
func (r *Result) OK() bool {
	return len(r.Rejected) == 0 && len(r.Mismatches) == 0
}

// Apply replays the script in order. rejected edits are recorded and the
// replay carries on; a canceled context stops it and is returned.
func Apply(ctx context.Context, sheet *spreadsheet.Spreadsheet, s *Script) (*Result, error) {
	result := &Result{}

	for i, edit := range s.Edits {
		step := i + 1

		if edit.Type != "" {
			t, _ := spreadsheet.ParseDataType(edit.Type)
			if err := sheet.SetDeclaredType(ctx, edit.Cell, t); err != nil {
				if stop := result.reject(step, edit.Cell, err); stop != nil {
					return result, stop
				}
				continue
			}
		}

		if edit.Text == nil {
			result.Applied++
			continue
		}

		snapshot, err := sheet.CommitEdit(ctx, edit.Cell, *edit.Text)
		if err != nil {
			if stop := result.reject(step, edit.Cell, err); stop != nil {
				return result, stop
			}
			continue
		}
		result.Applied++
		result.Recomputed += len(snapshot.Recomputed)
	}

	for _, cell := range slices.Sorted(maps.Keys(s.Expect)) {
		want := s.Expect[cell]
		view, err := sheet.Read(cell)
		if err != nil {
			result.Mismatches = append(result.Mismatches, Mismatch{Cell: cell, Want: want, Got: err.Error()})
			continue
		}
		if view.Display != want {
			result.Mismatches = append(result.Mismatches, Mismatch{Cell: cell, Want: want, Got: view.Display})
		}
	}
	return result, nil
}

// reject records err, or returns it when the replay must stop
func (r *Result) reject(step int, cell string, err error) error {
	if errors.Is(err, spreadsheet.ErrCanceled) {
		return fmt.Errorf("step %d: %w", step, err)
	}
	r.Rejected = append(r.Rejected, Rejection{Step: step, Cell: cell, Err: err})
	return nil
}
