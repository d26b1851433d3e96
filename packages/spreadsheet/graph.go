package spreadsheet

import "slices"

// DependencyNode represents a cell in the dependency graph
type DependencyNode struct {
	// address of *THIS* node
	Address CellAddress

	// cell-to-cell dependencies
	CellPrecedents map[CellAddress]*DependencyNode // cells this cell depends on
	CellDependents map[CellAddress]*DependencyNode // cells that depend on this cell

	// range dependencies, expanded lazily
	RangePrecedents map[CellRange]struct{}
}

// hasPrecedents reports whether the node reads anything, i.e. it belongs to
// a formula that references other cells
func (n *DependencyNode) hasPrecedents() bool {
	return len(n.CellPrecedents) > 0 || len(n.RangePrecedents) > 0
}

// DependencyGraph manages cell dependencies. an edge A -> B means A reads B.
// the graph is kept acyclic: edits that would close a loop are rejected
// before their edges are added.
type DependencyGraph struct {
	nodes          map[CellAddress]*DependencyNode        // all nodes in the graph
	rangeObservers map[CellRange]map[CellAddress]struct{} // range -> cells that depend on it
	dirtySet       map[CellAddress]struct{}               // cells needing recalculation
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes:          make(map[CellAddress]*DependencyNode),
		rangeObservers: make(map[CellRange]map[CellAddress]struct{}),
		dirtySet:       make(map[CellAddress]struct{}),
	}
}

// GetOrCreateNode gets an existing node or creates a new one
func (dg *DependencyGraph) GetOrCreateNode(addr CellAddress) *DependencyNode {
	if node, exists := dg.nodes[addr]; exists {
		return node
	}

	node := &DependencyNode{
		Address:         addr,
		CellPrecedents:  make(map[CellAddress]*DependencyNode),
		CellDependents:  make(map[CellAddress]*DependencyNode),
		RangePrecedents: make(map[CellRange]struct{}),
	}
	dg.nodes[addr] = node
	return node
}

// GetNode retrieves a node if it exists
func (dg *DependencyGraph) GetNode(addr CellAddress) (*DependencyNode, bool) {
	node, exists := dg.nodes[addr]
	return node, exists
}

// cleanupNodeIfEmpty removes a node if it has no dependencies either way
func (dg *DependencyGraph) cleanupNodeIfEmpty(addr CellAddress) {
	node, exists := dg.nodes[addr]
	if !exists {
		return
	}
	if node.hasPrecedents() || len(node.CellDependents) > 0 {
		return
	}
	delete(dg.nodes, addr)
}

// AddCellDependency adds a cell-to-cell dependency (from depends on to)
func (dg *DependencyGraph) AddCellDependency(from, to CellAddress) {
	fromNode := dg.GetOrCreateNode(from)
	toNode := dg.GetOrCreateNode(to)

	fromNode.CellPrecedents[to] = toNode
	toNode.CellDependents[from] = fromNode
}

// RemoveCellDependency removes a cell-to-cell dependency
func (dg *DependencyGraph) RemoveCellDependency(from, to CellAddress) bool {
	fromNode, fromExists := dg.nodes[from]
	toNode, toExists := dg.nodes[to]
	if !fromExists || !toExists {
		return false
	}

	delete(fromNode.CellPrecedents, to)
	delete(toNode.CellDependents, from)

	dg.cleanupNodeIfEmpty(from)
	dg.cleanupNodeIfEmpty(to)
	return true
}

// AddRangeDependency adds a cell-to-range dependency (from depends on range)
func (dg *DependencyGraph) AddRangeDependency(from CellAddress, rangeAddr CellRange) {
	node := dg.GetOrCreateNode(from)
	node.RangePrecedents[rangeAddr] = struct{}{}

	if dg.rangeObservers[rangeAddr] == nil {
		dg.rangeObservers[rangeAddr] = make(map[CellAddress]struct{})
	}
	dg.rangeObservers[rangeAddr][from] = struct{}{}
}

// RemoveRangeDependency removes a cell-to-range dependency
func (dg *DependencyGraph) RemoveRangeDependency(from CellAddress, rangeAddr CellRange) bool {
	node, exists := dg.nodes[from]
	if !exists {
		return false
	}

	delete(node.RangePrecedents, rangeAddr)
	if observers, exists := dg.rangeObservers[rangeAddr]; exists {
		delete(observers, from)
		if len(observers) == 0 {
			delete(dg.rangeObservers, rangeAddr)
		}
	}

	dg.cleanupNodeIfEmpty(from)
	return true
}

// ClearDependencies clears all outgoing edges of a cell. cells that read
// this one keep their edges.
func (dg *DependencyGraph) ClearDependencies(addr CellAddress) {
	node, exists := dg.nodes[addr]
	if !exists {
		return
	}
	for precedentAddr := range node.CellPrecedents {
		dg.RemoveCellDependency(addr, precedentAddr)
	}
	for rangeAddr := range node.RangePrecedents {
		dg.RemoveRangeDependency(addr, rangeAddr)
	}
}

// SetDependencies replaces every outgoing edge of addr in one step and
// returns the edges it replaced
func (dg *DependencyGraph) SetDependencies(addr CellAddress, cells []CellAddress, ranges []CellRange) ([]CellAddress, []CellRange) {
	oldCells, oldRanges := dg.GetDirectPrecedents(addr), dg.GetRangePrecedents(addr)
	dg.ClearDependencies(addr)
	for _, c := range cells {
		dg.AddCellDependency(addr, c)
	}
	for _, r := range ranges {
		dg.AddRangeDependency(addr, r)
	}
	return oldCells, oldRanges
}

// WouldCreateCycle reports whether giving addr the proposed precedents
// would let addr reach itself. ranges are expanded to the formula cells
// they cover, and a range covering addr is an immediate cycle.
func (dg *DependencyGraph) WouldCreateCycle(addr CellAddress, cells []CellAddress, ranges []CellRange) bool {
	var stack []CellAddress
	for _, c := range cells {
		if c == addr {
			return true
		}
		stack = append(stack, c)
	}
	for _, r := range ranges {
		if r.Contains(addr) {
			return true
		}
		stack = append(stack, dg.readersWithin(r)...)
	}

	visited := make(map[CellAddress]struct{})
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current == addr {
			return true
		}
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		node, exists := dg.nodes[current]
		if !exists {
			continue
		}
		for precedentAddr := range node.CellPrecedents {
			stack = append(stack, precedentAddr)
		}
		for rangeAddr := range node.RangePrecedents {
			if rangeAddr.Contains(addr) {
				return true
			}
			stack = append(stack, dg.readersWithin(rangeAddr)...)
		}
	}
	return false
}

// readersWithin returns the nodes inside r that have precedents of their
// own. plain value cells cannot continue a path, so they are skipped.
func (dg *DependencyGraph) readersWithin(r CellRange) []CellAddress {
	var result []CellAddress
	for addr, node := range dg.nodes {
		if node.hasPrecedents() && r.Contains(addr) {
			result = append(result, addr)
		}
	}
	return result
}

// MarkDirty marks a cell and everything that transitively reads it, either
// directly or through an observed range
func (dg *DependencyGraph) MarkDirty(addr CellAddress) {
	queue := []CellAddress{addr}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if _, dirty := dg.dirtySet[current]; dirty {
			continue
		}
		dg.dirtySet[current] = struct{}{}

		if node, exists := dg.nodes[current]; exists {
			for dependentAddr := range node.CellDependents {
				queue = append(queue, dependentAddr)
			}
		}
		for rangeAddr, observers := range dg.rangeObservers {
			if !rangeAddr.Contains(current) {
				continue
			}
			for observerAddr := range observers {
				queue = append(queue, observerAddr)
			}
		}
	}
}

// IsDirty checks whether a cell awaits recalculation
func (dg *DependencyGraph) IsDirty(addr CellAddress) bool {
	_, dirty := dg.dirtySet[addr]
	return dirty
}

// DirtyCells returns the dirty set sorted by row, then column
func (dg *DependencyGraph) DirtyCells() []CellAddress {
	result := make([]CellAddress, 0, len(dg.dirtySet))
	for addr := range dg.dirtySet {
		result = append(result, addr)
	}
	slices.SortFunc(result, CellAddress.Compare)
	return result
}

// ClearAllDirty clears all dirty flags
func (dg *DependencyGraph) ClearAllDirty() {
	dg.dirtySet = make(map[CellAddress]struct{})
}

// GetDirectDependents returns cells directly referencing this cell, sorted
func (dg *DependencyGraph) GetDirectDependents(addr CellAddress) []CellAddress {
	node, exists := dg.nodes[addr]
	if !exists {
		return nil
	}
	result := make([]CellAddress, 0, len(node.CellDependents))
	for dependentAddr := range node.CellDependents {
		result = append(result, dependentAddr)
	}
	slices.SortFunc(result, CellAddress.Compare)
	return result
}

// GetRangeObservers returns cells reading this cell through a range, sorted
func (dg *DependencyGraph) GetRangeObservers(addr CellAddress) []CellAddress {
	seen := make(map[CellAddress]struct{})
	var result []CellAddress
	for rangeAddr, observers := range dg.rangeObservers {
		if !rangeAddr.Contains(addr) {
			continue
		}
		for observerAddr := range observers {
			if _, ok := seen[observerAddr]; !ok {
				seen[observerAddr] = struct{}{}
				result = append(result, observerAddr)
			}
		}
	}
	slices.SortFunc(result, CellAddress.Compare)
	return result
}

// GetDirectPrecedents returns cells this cell directly depends on, sorted
func (dg *DependencyGraph) GetDirectPrecedents(addr CellAddress) []CellAddress {
	node, exists := dg.nodes[addr]
	if !exists {
		return nil
	}
	result := make([]CellAddress, 0, len(node.CellPrecedents))
	for precedentAddr := range node.CellPrecedents {
		result = append(result, precedentAddr)
	}
	slices.SortFunc(result, CellAddress.Compare)
	return result
}

// GetRangePrecedents returns ranges this cell depends on, sorted by start
func (dg *DependencyGraph) GetRangePrecedents(addr CellAddress) []CellRange {
	node, exists := dg.nodes[addr]
	if !exists {
		return nil
	}
	result := make([]CellRange, 0, len(node.RangePrecedents))
	for rangeAddr := range node.RangePrecedents {
		result = append(result, rangeAddr)
	}
	slices.SortFunc(result, func(a, b CellRange) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return a.End.Compare(b.End)
	})
	return result
}

// precedentsIn returns the members of set that addr reads, directly or
// through one of its ranges
func (dg *DependencyGraph) precedentsIn(addr CellAddress, set map[CellAddress]struct{}) []CellAddress {
	node, exists := dg.nodes[addr]
	if !exists {
		return nil
	}
	found := make(map[CellAddress]struct{})
	for precedentAddr := range node.CellPrecedents {
		if _, ok := set[precedentAddr]; ok {
			found[precedentAddr] = struct{}{}
		}
	}
	for rangeAddr := range node.RangePrecedents {
		for member := range set {
			if member != addr && rangeAddr.Contains(member) {
				found[member] = struct{}{}
			}
		}
	}
	result := make([]CellAddress, 0, len(found))
	for precedentAddr := range found {
		result = append(result, precedentAddr)
	}
	return result
}

// NodeCount returns the number of nodes in the graph
func (dg *DependencyGraph) NodeCount() int {
	return len(dg.nodes)
}

// RangeObserverCount returns the number of observed ranges
func (dg *DependencyGraph) RangeObserverCount() int {
	return len(dg.rangeObservers)
}
