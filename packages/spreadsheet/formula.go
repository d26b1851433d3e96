package spreadsheet

import "slices"

// ASTKey is the canonical text of a parsed formula. two formulas with the
// same structure (ignoring whitespace, case and redundant parentheses) share
// one key.
type ASTKey string

// FormulaTable stores parsed formulas centrally, deduplicated by ASTKey and
// reference counted by the cells that use them.
type FormulaTable struct {
	astIndex  map[ASTKey]uint32  // normalized AST -> formula ID
	astCache  map[uint32]ASTNode // formula ID -> cached parsed AST
	refCounts map[uint32]int     // formula ID -> reference count

	cellsUsingFormula map[uint32]map[CellAddress]struct{} // formula ID -> cells using it
	formulaAtCell     map[CellAddress]uint32              // cell -> formula ID (reverse index)

	nextID uint32
}

// NewFormulaTable creates a new formula table
func NewFormulaTable() *FormulaTable {
	return &FormulaTable{
		astIndex:          make(map[ASTKey]uint32),
		astCache:          make(map[uint32]ASTNode),
		refCounts:         make(map[uint32]int),
		cellsUsingFormula: make(map[uint32]map[CellAddress]struct{}),
		formulaAtCell:     make(map[CellAddress]uint32),
		nextID:            1, // start at 1, reserve 0 for no formula
	}
}

// normalizeAST converts an AST to its normalized string representation
func normalizeAST(ast ASTNode) ASTKey {
	if ast == nil {
		return ""
	}
	return ASTKey(ast.ToString())
}

// InternFormula binds cell to ast, reusing an existing entry when one with
// the same key exists. any formula previously bound to the cell is released.
// returns the formula ID.
func (ft *FormulaTable) InternFormula(ast ASTNode, cell CellAddress) uint32 {
	key := normalizeAST(ast)

	id, exists := ft.astIndex[key]
	if current, bound := ft.formulaAtCell[cell]; bound {
		if exists && current == id {
			return id
		}
		ft.ReleaseCell(cell)
	}

	if !exists {
		id = ft.nextID
		ft.nextID++
		ft.astIndex[key] = id
		ft.astCache[id] = ast
	}

	ft.refCounts[id]++
	if ft.cellsUsingFormula[id] == nil {
		ft.cellsUsingFormula[id] = make(map[CellAddress]struct{})
	}
	ft.cellsUsingFormula[id][cell] = struct{}{}
	ft.formulaAtCell[cell] = id
	return id
}

// ReleaseCell drops the cell's formula binding. returns true if the formula
// was removed due to zero references.
func (ft *FormulaTable) ReleaseCell(cell CellAddress) bool {
	id, exists := ft.formulaAtCell[cell]
	if !exists {
		return false
	}
	delete(ft.formulaAtCell, cell)

	if cells, ok := ft.cellsUsingFormula[id]; ok {
		delete(cells, cell)
		if len(cells) == 0 {
			delete(ft.cellsUsingFormula, id)
		}
	}

	ft.refCounts[id]--
	if ft.refCounts[id] > 0 {
		return false
	}
	if ast, ok := ft.astCache[id]; ok {
		delete(ft.astIndex, normalizeAST(ast))
	}
	delete(ft.astCache, id)
	delete(ft.refCounts, id)
	return true
}

// GetAST retrieves the cached AST for a formula ID
func (ft *FormulaTable) GetAST(id uint32) (ASTNode, bool) {
	ast, exists := ft.astCache[id]
	return ast, exists
}

// GetFormulaAtCell returns the formula ID at a specific cell
func (ft *FormulaTable) GetFormulaAtCell(cell CellAddress) (uint32, bool) {
	id, exists := ft.formulaAtCell[cell]
	return id, exists
}

// GetReferenceCount returns the reference count for a formula
func (ft *FormulaTable) GetReferenceCount(id uint32) int {
	return ft.refCounts[id]
}

// GetCellsUsingFormula returns all cells using a specific formula, sorted
func (ft *FormulaTable) GetCellsUsingFormula(formulaID uint32) []CellAddress {
	cells := ft.cellsUsingFormula[formulaID]
	result := make([]CellAddress, 0, len(cells))
	for cell := range cells {
		result = append(result, cell)
	}
	slices.SortFunc(result, CellAddress.Compare)
	return result
}

// Count returns the number of unique formulas
func (ft *FormulaTable) Count() int {
	return len(ft.astIndex)
}

// References collects the distinct cells and ranges an AST reads, in the
// order they first appear
func References(node ASTNode) ([]CellAddress, []CellRange) {
	var cells []CellAddress
	var ranges []CellRange
	seenCells := make(map[CellAddress]struct{})
	seenRanges := make(map[CellRange]struct{})

	var walk func(n ASTNode)
	walk = func(n ASTNode) {
		switch n := n.(type) {
		case *CellRefNode:
			if _, ok := seenCells[n.Address]; !ok {
				seenCells[n.Address] = struct{}{}
				cells = append(cells, n.Address)
			}
		case *RangeNode:
			if _, ok := seenRanges[n.Range]; !ok {
				seenRanges[n.Range] = struct{}{}
				ranges = append(ranges, n.Range)
			}
		case *BinaryOpNode:
			walk(n.Left)
			walk(n.Right)
		case *UnaryOpNode:
			walk(n.Operand)
		case *FunctionCallNode:
			for _, arg := range n.Args {
				walk(arg)
			}
		case *StringNode, *NumberNode, *BooleanNode:
			// literal nodes don't have dependencies
		}
	}
	walk(node)
	return cells, ranges
}
