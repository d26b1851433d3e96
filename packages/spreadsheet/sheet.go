package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "gridcalc.spreadsheet"

// SpreadsheetInterface is the contract offered to the surrounding
// application. CommitEdit and SetDeclaredType are the only mutations.
type SpreadsheetInterface interface {
	CommitEdit(ctx context.Context, address, rawText string) (*EvaluationSnapshot, error)
	Read(address string) (CellView, error)
	SetDeclaredType(ctx context.Context, address string, t DataType) error
}

var _ SpreadsheetInterface = (*Spreadsheet)(nil)

// EvaluationSnapshot describes one committed recalculation pass
type EvaluationSnapshot struct {
	PassID     uuid.UUID
	Edited     CellAddress
	Recomputed []CellAddress // in evaluation order, the edited cell first
	Tiers      int
	Cells      map[CellAddress]CellView // views of every recomputed cell
	Duration   time.Duration
}

// Spreadsheet combines storage, parsing, dependency tracking and formula
// evaluation into a unified API. one edit is admitted at a time; reads may
// run concurrently with each other.
type Spreadsheet struct {
	mu sync.RWMutex

	config    Config
	sheet     *Worksheet
	formulas  *FormulaTable
	graph     *DependencyGraph
	scheduler *Scheduler
	functions *Registry

	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

type options struct {
	logger         *slog.Logger
	registerer     prometheus.Registerer
	functions      *Registry
	tracerProvider trace.TracerProvider
}

// Option configures a Spreadsheet
type Option func(*options)

// WithLogger sets the structured logger. defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegisterer registers the engine metrics on reg instead of a private
// registry
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithTracerProvider sets where pass spans go. defaults to the global
// otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithFunctions replaces the built-in function registry
func WithFunctions(functions *Registry) Option {
	return func(o *options) {
		o.functions = functions
	}
}

// NewSpreadsheet creates a spreadsheet with the default config
func NewSpreadsheet(opts ...Option) *Spreadsheet {
	cfg := DefaultConfig()
	return newSpreadsheet(cfg, Bounds{MaxRows: DefaultMaxRows, MaxColumns: DefaultMaxColumns}, opts)
}

// NewSpreadsheetWithConfig creates a spreadsheet after validating cfg
func NewSpreadsheetWithConfig(cfg Config, opts ...Option) (*Spreadsheet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bounds, err := cfg.Bounds()
	if err != nil {
		return nil, err
	}
	return newSpreadsheet(cfg, bounds, opts), nil
}

func newSpreadsheet(cfg Config, bounds Bounds, opts []Option) *Spreadsheet {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.functions == nil {
		o.functions = DefaultRegistry()
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}

	return &Spreadsheet{
		config:    cfg,
		sheet:     NewWorksheet(bounds),
		formulas:  NewFormulaTable(),
		graph:     NewDependencyGraph(),
		scheduler: NewScheduler(cfg.Workers, cfg.ParallelThreshold),
		functions: o.functions,
		logger:    o.logger,
		metrics:   NewMetrics(o.registerer),
		tracer:    o.tracerProvider.Tracer(tracerName),
	}
}

// pendingEdit is a fully checked edit that has not touched any state yet
type pendingEdit struct {
	addr   CellAddress
	cell   *Cell   // replacement record
	ast    ASTNode // nil for literals
	cells  []CellAddress
	ranges []CellRange
}

// resolveAddress parses an address and checks it against the grid bounds
func (s *Spreadsheet) resolveAddress(address string) (CellAddress, error) {
	addr, err := ParseAddress(strings.TrimSpace(address))
	if err != nil {
		return CellAddress{}, NewEditError(EditKindInvalidAddress, address, err.Error(), err)
	}
	if !s.sheet.Bounds().Contains(addr) {
		return CellAddress{}, NewEditError(EditKindInvalidAddress, address,
			fmt.Sprintf("outside the %dx%d grid", s.sheet.Bounds().MaxColumns, s.sheet.Bounds().MaxRows), nil)
	}
	return addr, nil
}

// CommitEdit writes rawText to a cell and recalculates everything that
// depends on it. text starting with the trigger is a formula, anything else
// a literal. a rejected or canceled edit leaves the spreadsheet untouched.
func (s *Spreadsheet) CommitEdit(ctx context.Context, address, rawText string) (*EvaluationSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "spreadsheet.Recalculate",
		trace.WithAttributes(attribute.String("cell", address)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, s.reject(span, NewEditError(EditKindCanceled, address, "edit canceled before it started", err))
	}

	addr, err := s.resolveAddress(address)
	if err != nil {
		return nil, s.reject(span, err)
	}

	edit, err := s.prepareEdit(addr, rawText)
	if err != nil {
		return nil, s.reject(span, err)
	}

	snapshot, err := s.recalculate(ctx, edit)
	if err != nil {
		return nil, s.reject(span, err)
	}

	span.SetAttributes(
		attribute.String("pass_id", snapshot.PassID.String()),
		attribute.Int("tiers", snapshot.Tiers),
		attribute.Int("recomputed", len(snapshot.Recomputed)),
	)
	span.SetStatus(codes.Ok, "")
	return snapshot, nil
}

// Clear empties a cell. its declared type is kept.
func (s *Spreadsheet) Clear(ctx context.Context, address string) (*EvaluationSnapshot, error) {
	return s.CommitEdit(ctx, address, "")
}

// prepareEdit parses or validates rawText without mutating anything
func (s *Spreadsheet) prepareEdit(addr CellAddress, rawText string) (*pendingEdit, error) {
	declared := DataTypeAuto
	if current := s.sheet.GetCell(addr); current != nil {
		declared = current.DeclaredType
	}

	if strings.HasPrefix(rawText, s.config.Trigger) {
		text := strings.TrimPrefix(rawText, s.config.Trigger)
		ast, err := ParseFormula(text, s.functions)
		if err != nil {
			return nil, NewEditError(EditKindParse, addr.String(), err.Error(), err)
		}

		cells, ranges := References(ast)
		if s.graph.WouldCreateCycle(addr, cells, ranges) {
			return nil, NewEditError(EditKindCycle, addr.String(),
				fmt.Sprintf("formula %q would create a circular reference", text), nil)
		}

		return &pendingEdit{
			addr: addr,
			cell: &Cell{
				Content:      text,
				IsFormula:    true,
				DeclaredType: declared,
			},
			ast:    ast,
			cells:  cells,
			ranges: ranges,
		}, nil
	}

	if err := ValidateLiteral(addr, declared, rawText); err != nil {
		return nil, err
	}
	value, inferred := LiteralValue(declared, rawText)
	return &pendingEdit{
		addr: addr,
		cell: &Cell{
			Content:      rawText,
			DeclaredType: declared,
			InferredType: inferred,
			Value:        value,
		},
	}, nil
}

// recalculate installs the edit's edges, evaluates the dirty formula cells
// tier by tier into a staging overlay and commits everything at the end.
// if ctx ends first the old edges are restored and nothing is committed.
func (s *Spreadsheet) recalculate(ctx context.Context, edit *pendingEdit) (*EvaluationSnapshot, error) {
	start := time.Now()
	passID := uuid.New()

	oldCells, oldRanges := s.graph.SetDependencies(edit.addr, edit.cells, edit.ranges)
	s.graph.MarkDirty(edit.addr)

	pass := newPassContext(s.sheet)
	recomputed := make([]CellAddress, 0, len(s.graph.dirtySet))
	if edit.ast == nil {
		pass.stage(edit.addr, cellResult{Value: edit.cell.Value})
		recomputed = append(recomputed, edit.addr)
	}

	tiers, stuck := s.scheduler.Plan(s.graph, s.dirtyFormulas(edit))
	for _, addr := range stuck {
		pass.stage(addr, cycleResult(addr))
		s.logger.Error("cell left out of recalculation order",
			slog.String("cell", addr.String()),
			slog.String("pass_id", passID.String()))
	}

	err := s.scheduler.Run(ctx, tiers,
		func(addr CellAddress) cellResult {
			ast := s.formulaAt(addr, edit)
			if ast == nil {
				return cellResult{Err: NewSpreadsheetError(ErrorCodeParse, "formula is missing")}
			}
			return evaluateFormula(ast, pass)
		},
		func(addr CellAddress, result cellResult) {
			pass.stage(addr, result)
			recomputed = append(recomputed, addr)
		},
	)
	if err != nil {
		s.graph.SetDependencies(edit.addr, oldCells, oldRanges)
		s.graph.ClearAllDirty()
		return nil, NewEditError(EditKindCanceled, edit.addr.String(), "recalculation canceled", err)
	}
	recomputed = append(recomputed, stuck...)

	s.applyEdit(edit)
	for addr, result := range pass.staged {
		s.sheet.SetFormulaResult(addr, result)
	}
	s.graph.ClearAllDirty()

	snapshot := &EvaluationSnapshot{
		PassID:     passID,
		Edited:     edit.addr,
		Recomputed: recomputed,
		Tiers:      len(tiers),
		Cells:      make(map[CellAddress]CellView, len(recomputed)),
		Duration:   time.Since(start),
	}
	for _, addr := range recomputed {
		snapshot.Cells[addr] = newCellView(addr, s.sheet.GetCell(addr))
	}

	s.metrics.recordEdit(resultCommitted)
	s.metrics.recordPass(len(recomputed), snapshot.Duration.Seconds())
	s.logger.Debug("recalculated",
		slog.String("pass_id", passID.String()),
		slog.String("cell", edit.addr.String()),
		slog.Int("tiers", len(tiers)),
		slog.Int("recomputed", len(recomputed)),
		slog.Duration("duration", snapshot.Duration))
	return snapshot, nil
}

// dirtyFormulas returns the dirty cells that hold a formula once the edit
// is applied
func (s *Spreadsheet) dirtyFormulas(edit *pendingEdit) []CellAddress {
	var result []CellAddress
	for _, addr := range s.graph.DirtyCells() {
		if addr == edit.addr {
			if edit.ast != nil {
				result = append(result, addr)
			}
			continue
		}
		if cell := s.sheet.GetCell(addr); cell != nil && cell.IsFormula {
			result = append(result, addr)
		}
	}
	return result
}

// formulaAt returns the parsed formula of addr as seen by the current pass
func (s *Spreadsheet) formulaAt(addr CellAddress, edit *pendingEdit) ASTNode {
	if addr == edit.addr {
		return edit.ast
	}
	id, ok := s.formulas.GetFormulaAtCell(addr)
	if !ok {
		return nil
	}
	ast, _ := s.formulas.GetAST(id)
	return ast
}

// applyEdit stores the edited cell and keeps the formula table in step
func (s *Spreadsheet) applyEdit(edit *pendingEdit) {
	if edit.ast != nil {
		edit.cell.FormulaID = s.formulas.InternFormula(edit.ast, edit.addr)
	} else {
		s.formulas.ReleaseCell(edit.addr)
	}
	s.sheet.SetCell(edit.addr, edit.cell)
}

// reject records a refused edit and returns err unchanged
func (s *Spreadsheet) reject(span trace.Span, err error) error {
	result := resultRejected
	attrs := []any{slog.String("error", err.Error())}

	var editErr *EditError
	if errors.As(err, &editErr) {
		if editErr.Kind == EditKindCanceled {
			result = resultCanceled
		}
		attrs = append(attrs,
			slog.String("cell", editErr.Address),
			slog.String("kind", editErr.Kind.String()))
	}

	s.metrics.recordEdit(result)
	s.logger.Warn("edit rejected", attrs...)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Read returns the current view of a cell. empty cells yield a zero view
// with only the address set.
func (s *Spreadsheet) Read(address string) (CellView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addr, err := s.resolveAddress(address)
	if err != nil {
		return CellView{}, err
	}
	return newCellView(addr, s.sheet.GetCell(addr)), nil
}

// SetDeclaredType changes the declared type of a cell. content is never
// touched; a literal is re-read under the new type and dependents are
// recalculated if its value changed.
func (s *Spreadsheet) SetDeclaredType(ctx context.Context, address string, t DataType) error {
	ctx, span := s.tracer.Start(ctx, "spreadsheet.SetDeclaredType",
		trace.WithAttributes(
			attribute.String("cell", address),
			attribute.String("type", t.String()),
		),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	addr, err := s.resolveAddress(address)
	if err != nil {
		return s.reject(span, err)
	}
	if _, known := dataTypeNames[t]; !known {
		return s.reject(span, NewEditError(EditKindValidation, addr.String(),
			fmt.Sprintf("unknown data type %d", t), nil))
	}

	updated := &Cell{}
	if current := s.sheet.GetCell(addr); current != nil {
		*updated = *current
	}
	previous := updated.Value
	updated.DeclaredType = t

	if updated.IsFormula {
		s.sheet.SetCell(addr, updated)
		span.SetStatus(codes.Ok, "")
		return nil
	}

	updated.Value, updated.InferredType = LiteralValue(t, updated.Content)
	if updated.Value == previous {
		s.sheet.SetCell(addr, updated)
		span.SetStatus(codes.Ok, "")
		return nil
	}

	if _, err := s.recalculate(ctx, &pendingEdit{addr: addr, cell: updated}); err != nil {
		return s.reject(span, err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// Dependents returns the cells that read address, directly or through a
// range, sorted by row then column
func (s *Spreadsheet) Dependents(address string) ([]CellAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addr, err := s.resolveAddress(address)
	if err != nil {
		return nil, err
	}
	result := s.graph.GetDirectDependents(addr)
	for _, observer := range s.graph.GetRangeObservers(addr) {
		if !slices.Contains(result, observer) {
			result = append(result, observer)
		}
	}
	slices.SortFunc(result, CellAddress.Compare)
	return result, nil
}

// Precedents returns the cells and ranges the formula at address reads
func (s *Spreadsheet) Precedents(address string) ([]CellAddress, []CellRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addr, err := s.resolveAddress(address)
	if err != nil {
		return nil, nil, err
	}
	return s.graph.GetDirectPrecedents(addr), s.graph.GetRangePrecedents(addr), nil
}

// Cells returns a view of every non-empty cell sorted by row then column
func (s *Spreadsheet) Cells() []CellView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addrs := s.sheet.Addresses()
	views := make([]CellView, 0, len(addrs))
	for _, addr := range addrs {
		views = append(views, newCellView(addr, s.sheet.GetCell(addr)))
	}
	return views
}

// Bounds returns the grid extent
func (s *Spreadsheet) Bounds() Bounds {
	return s.sheet.Bounds()
}

// Config returns the config the spreadsheet was built with
func (s *Spreadsheet) Config() Config {
	return s.config
}

// FormulaCount returns the number of distinct formulas in use
func (s *Spreadsheet) FormulaCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.formulas.Count()
}
