package spreadsheet

import (
	"context"
	"fmt"
	"slices"
)

// RunnableSpreadsheet provides a chainable interface for
// spreadsheet operations. wraps the standard Spreadsheet and tracks
// errors internally
type RunnableSpreadsheet struct {
	spreadsheet *Spreadsheet
	ctx         context.Context
	err         error
	printLn     func(string)
}

// NewRunnableSpreadsheet creates a new RunnableSpreadsheet. printLn is
// required and will be used for all logging operations (Log, CheckError)
func NewRunnableSpreadsheet(printLn func(string), opts ...Option) *RunnableSpreadsheet {
	return &RunnableSpreadsheet{
		spreadsheet: NewSpreadsheet(opts...),
		ctx:         context.Background(),
		printLn:     printLn,
	}
}

// WithContext sets the context used for every following edit (chainable)
func (r *RunnableSpreadsheet) WithContext(ctx context.Context) *RunnableSpreadsheet {
	r.ctx = ctx
	return r
}

// Set commits raw text to a cell (chainable)
func (r *RunnableSpreadsheet) Set(address, rawText string) *RunnableSpreadsheet {
	if r.err != nil {
		return r // no-op if there's already an error
	}
	_, r.err = r.spreadsheet.CommitEdit(r.ctx, address, rawText)
	return r
}

// SetType declares the data type of a cell (chainable)
func (r *RunnableSpreadsheet) SetType(address string, t DataType) *RunnableSpreadsheet {
	if r.err != nil {
		return r
	}
	r.err = r.spreadsheet.SetDeclaredType(r.ctx, address, t)
	return r
}

// Clear empties a cell (chainable)
func (r *RunnableSpreadsheet) Clear(address string) *RunnableSpreadsheet {
	if r.err != nil {
		return r
	}
	_, r.err = r.spreadsheet.Clear(r.ctx, address)
	return r
}

// SetBatch commits several cells in address order (chainable)
func (r *RunnableSpreadsheet) SetBatch(cells map[string]string) *RunnableSpreadsheet {
	if r.err != nil {
		return r
	}

	addrs := make([]CellAddress, 0, len(cells))
	raw := make(map[CellAddress]string, len(cells))
	for address, text := range cells {
		addr, err := ParseAddress(address)
		if err != nil {
			r.err = NewEditError(EditKindInvalidAddress, address, err.Error(), err)
			return r
		}
		addrs = append(addrs, addr)
		raw[addr] = text
	}
	slices.SortFunc(addrs, CellAddress.Compare)

	for _, addr := range addrs {
		if _, err := r.spreadsheet.CommitEdit(r.ctx, addr.String(), raw[addr]); err != nil {
			r.err = err
			return r
		}
	}
	return r
}

// Value returns the computed value of a cell, or its error value. a read
// failure is recorded on the chain and yields nil.
func (r *RunnableSpreadsheet) Value(address string) Primitive {
	if r.err != nil {
		return nil
	}
	view, err := r.spreadsheet.Read(address)
	if err != nil {
		r.err = err
		return nil
	}
	if view.Err != nil {
		return view.Err
	}
	return view.Value
}

// Display returns the text a cell shows
func (r *RunnableSpreadsheet) Display(address string) string {
	if r.err != nil {
		return ""
	}
	view, err := r.spreadsheet.Read(address)
	if err != nil {
		r.err = err
		return ""
	}
	return view.Display
}

// Log logs the display value of a cell using the provided PrintLn function
// (chainable)
func (r *RunnableSpreadsheet) Log(address string) *RunnableSpreadsheet {
	if r.err != nil {
		return r
	}
	view, err := r.spreadsheet.Read(address)
	if err != nil {
		r.err = err
		return r
	}
	r.printLn(fmt.Sprintf("%s: %s", view.Address, view.Display))
	return r
}

// Run returns the spreadsheet and any error. typically the last method in
// the chain
func (r *RunnableSpreadsheet) Run() (*Spreadsheet, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.spreadsheet, nil
}

// Error returns the current error state
func (r *RunnableSpreadsheet) Error() error {
	return r.err
}

// CheckError logs the current error using the PrintLn function (chainable)
func (r *RunnableSpreadsheet) CheckError() *RunnableSpreadsheet {
	if r.err != nil {
		r.printLn(fmt.Sprintf("ERROR: %v", r.err))
	} else {
		r.printLn("No errors")
	}
	return r
}

// Reset clears the error state (chainable)
func (r *RunnableSpreadsheet) Reset() *RunnableSpreadsheet {
	r.err = nil
	return r
}

// OnError allows error handling in the chain
func (r *RunnableSpreadsheet) OnError(fn func(error) error) *RunnableSpreadsheet {
	if r.err != nil {
		r.err = fn(r.err)
	}
	return r
}

// Must panics if there's an error (chainable). useful for ensuring
// critical operations succeed
func (r *RunnableSpreadsheet) Must() *RunnableSpreadsheet {
	if r.err != nil {
		panic(r.err)
	}
	return r
}

// Spreadsheet returns the underlying spreadsheet
func (r *RunnableSpreadsheet) Spreadsheet() *Spreadsheet {
	return r.spreadsheet
}
