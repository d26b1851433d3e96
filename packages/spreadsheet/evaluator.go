package spreadsheet

import (
	"fmt"
	"math"
)

// passContext is the EvalContext of one recalculation pass. results of the
// pass are staged in an overlay and only reach the worksheet once the whole
// pass has succeeded, so readers never see a half-finished pass.
type passContext struct {
	sheet  *Worksheet
	bounds Bounds
	staged map[CellAddress]cellResult
}

var _ EvalContext = (*passContext)(nil)

func newPassContext(sheet *Worksheet) *passContext {
	return &passContext{
		sheet:  sheet,
		bounds: sheet.Bounds(),
		staged: make(map[CellAddress]cellResult),
	}
}

// Lookup returns the staged result if the cell was written during this
// pass, otherwise the committed one. the overlay is only written between
// tiers, so concurrent lookups within a tier are safe.
func (p *passContext) Lookup(addr CellAddress) Primitive {
	if result, ok := p.staged[addr]; ok {
		if result.Err != nil {
			return result.Err
		}
		return result.Value
	}
	return p.sheet.GetCell(addr).result()
}

func (p *passContext) Bounds() Bounds {
	return p.bounds
}

// stage records a result for addr
func (p *passContext) stage(addr CellAddress, result cellResult) {
	p.staged[addr] = result
}

// evaluateFormula evaluates ast and normalizes the outcome to a scalar or an
// error value
func evaluateFormula(ast ASTNode, ctx EvalContext) cellResult {
	value, err := ast.Eval(ctx)
	if err != nil {
		return cellResult{Err: asSpreadsheetError(err)}
	}

	switch v := value.(type) {
	case *SpreadsheetError:
		return cellResult{Err: v}
	case Range:
		return cellResult{Err: NewSpreadsheetError(ErrorCodeType,
			fmt.Sprintf("range %s cannot be a cell value", v.GetBounds()))}
	case nil:
		// a bare reference to an empty cell
		return cellResult{Value: 0.0}
	case int:
		return cellResult{Value: float64(v)}
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return cellResult{Err: NewSpreadsheetError(ErrorCodeType, "numeric overflow")}
		}
		return cellResult{Value: v}
	default:
		return cellResult{Value: v}
	}
}

// cycleResult is stored on cells the scheduler could not place
func cycleResult(addr CellAddress) cellResult {
	return cellResult{Err: NewSpreadsheetError(ErrorCodeCycle,
		fmt.Sprintf("%s is part of a circular reference", addr))}
}
