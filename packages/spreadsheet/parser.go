package spreadsheet

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type NodePosition struct {
	Start int
	End   int
}

// EvalContext is what a node needs from the outside world while evaluating:
// committed or freshly staged cell results, and the grid extent.
type EvalContext interface {
	// Lookup returns the computed value of addr, its *SpreadsheetError, or
	// nil when the cell is empty
	Lookup(addr CellAddress) Primitive
	Bounds() Bounds
}

// AST enables dependency extraction and formula deduplication through tree
// traversal rather than regex/string manipulation.
type ASTNode interface {
	Eval(ctx EvalContext) (Primitive, error)
	GetPosition() NodePosition
	ToString() string
}

// Parser parses tokens into an AST
type Parser struct {
	tokens    []Token
	pos       int
	functions *Registry
}

// StringNode represents a string literal
type StringNode struct {
	Value    string
	Position NodePosition
}

func (n *StringNode) Eval(ctx EvalContext) (Primitive, error) {
	return n.Value, nil
}

func (n *StringNode) GetPosition() NodePosition {
	return n.Position
}

func (n *StringNode) ToString() string {
	escaped := strings.ReplaceAll(n.Value, "\"", "\"\"")
	return "\"" + escaped + "\""
}

// NumberNode represents a numeric literal
type NumberNode struct {
	Value    float64
	Position NodePosition
}

func (n *NumberNode) Eval(ctx EvalContext) (Primitive, error) {
	return n.Value, nil
}

func (n *NumberNode) GetPosition() NodePosition {
	return n.Position
}

func (n *NumberNode) ToString() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

// BooleanNode represents a boolean literal
type BooleanNode struct {
	Value    bool
	Position NodePosition
}

func (n *BooleanNode) Eval(ctx EvalContext) (Primitive, error) {
	return n.Value, nil
}

func (n *BooleanNode) GetPosition() NodePosition {
	return n.Position
}

func (n *BooleanNode) ToString() string {
	if n.Value {
		return "TRUE"
	}
	return "FALSE"
}

// CellRefNode represents a reference to a single cell
type CellRefNode struct {
	Address  CellAddress
	Position NodePosition
}

func (n *CellRefNode) Eval(ctx EvalContext) (Primitive, error) {
	if !ctx.Bounds().Contains(n.Address) {
		return nil, NewSpreadsheetError(ErrorCodeRef, fmt.Sprintf("reference %s is outside the grid", n.Address))
	}
	// precedents were recomputed in an earlier tier, so this is never stale
	return ctx.Lookup(n.Address), nil
}

func (n *CellRefNode) GetPosition() NodePosition {
	return n.Position
}

func (n *CellRefNode) ToString() string {
	return n.Address.String()
}

// RangeNode represents a rectangular range of cells
type RangeNode struct {
	Range    CellRange
	Position NodePosition
}

func (n *RangeNode) Eval(ctx EvalContext) (Primitive, error) {
	if !ctx.Bounds().ContainsRange(n.Range) {
		return nil, NewSpreadsheetError(ErrorCodeRef, fmt.Sprintf("range %s is outside the grid", n.Range))
	}
	return &valueRange{bounds: n.Range, ctx: ctx}, nil
}

func (n *RangeNode) GetPosition() NodePosition {
	return n.Position
}

func (n *RangeNode) ToString() string {
	return n.Range.String()
}

// BinaryOpNode represents a binary operation
type BinaryOpNode struct {
	Op       BinaryOp
	Left     ASTNode
	Right    ASTNode
	Position NodePosition
}

func (n *BinaryOpNode) Eval(ctx EvalContext) (Primitive, error) {
	leftVal := evalOperand(n.Left, ctx)
	rightVal := evalOperand(n.Right, ctx)

	// propagate errors, left operand first
	if err := checkForError(leftVal); err != nil {
		return err, nil
	}
	if err := checkForError(rightVal); err != nil {
		return err, nil
	}
	if _, ok := leftVal.(Range); ok {
		return nil, NewSpreadsheetError(ErrorCodeType, "a range cannot be used as a single value")
	}
	if _, ok := rightVal.(Range); ok {
		return nil, NewSpreadsheetError(ErrorCodeType, "a range cannot be used as a single value")
	}

	switch n.Op {
	case BinOpConcat:
		return toString(leftVal) + toString(rightVal), nil
	case BinOpEqual:
		return comparePrimitives(leftVal, rightVal) == 0, nil
	case BinOpNotEqual:
		return comparePrimitives(leftVal, rightVal) != 0, nil
	case BinOpLess:
		return comparePrimitives(leftVal, rightVal) < 0, nil
	case BinOpLessEqual:
		return comparePrimitives(leftVal, rightVal) <= 0, nil
	case BinOpGreater:
		return comparePrimitives(leftVal, rightVal) > 0, nil
	case BinOpGreaterEqual:
		return comparePrimitives(leftVal, rightVal) >= 0, nil
	}

	leftNum, leftOk := operandNumber(leftVal)
	rightNum, rightOk := operandNumber(rightVal)
	if !leftOk || !rightOk {
		return nil, NewSpreadsheetError(ErrorCodeType, fmt.Sprintf("%s requires numeric values", n.opName()))
	}

	switch n.Op {
	case BinOpAdd:
		return finiteResult(leftNum + rightNum)
	case BinOpSubtract:
		return finiteResult(leftNum - rightNum)
	case BinOpMultiply:
		return finiteResult(leftNum * rightNum)
	case BinOpDivide:
		if rightNum == 0 {
			return nil, NewSpreadsheetError(ErrorCodeDiv0, "Division by zero")
		}
		return finiteResult(leftNum / rightNum)
	default:
		return nil, NewSpreadsheetError(ErrorCodeType, "Unknown operator")
	}
}

// operandNumber is the operand conversion for arithmetic. only numbers and
// empty cells qualify; text, dates and booleans are not numbers here even
// when they look like one.
func operandNumber(value Primitive) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case nil:
		return 0, true
	}
	return 0, false
}

// finiteResult rejects results that overflowed to an infinity or NaN
func finiteResult(num float64) (Primitive, error) {
	if math.IsInf(num, 0) || math.IsNaN(num) {
		return nil, NewSpreadsheetError(ErrorCodeType, "numeric overflow")
	}
	return num, nil
}

func (n *BinaryOpNode) opName() string {
	switch n.Op {
	case BinOpAdd:
		return "Addition"
	case BinOpSubtract:
		return "Subtraction"
	case BinOpMultiply:
		return "Multiplication"
	case BinOpDivide:
		return "Division"
	}
	return "Operator"
}

func (n *BinaryOpNode) GetPosition() NodePosition {
	return n.Position
}

func (n *BinaryOpNode) ToString() string {
	opStr := ""
	switch n.Op {
	case BinOpAdd:
		opStr = "+"
	case BinOpSubtract:
		opStr = "-"
	case BinOpMultiply:
		opStr = "*"
	case BinOpDivide:
		opStr = "/"
	case BinOpConcat:
		opStr = "&"
	case BinOpEqual:
		opStr = "="
	case BinOpNotEqual:
		opStr = "<>"
	case BinOpLess:
		opStr = "<"
	case BinOpLessEqual:
		opStr = "<="
	case BinOpGreater:
		opStr = ">"
	case BinOpGreaterEqual:
		opStr = ">="
	}
	return "(" + n.Left.ToString() + opStr + n.Right.ToString() + ")"
}

// UnaryOpNode represents a unary operation
type UnaryOpNode struct {
	Op       UnaryOp
	Operand  ASTNode
	Position NodePosition
}

func (n *UnaryOpNode) Eval(ctx EvalContext) (Primitive, error) {
	val := evalOperand(n.Operand, ctx)
	if err := checkForError(val); err != nil {
		return err, nil
	}
	if _, ok := val.(Range); ok {
		return nil, NewSpreadsheetError(ErrorCodeType, "a range cannot be used as a single value")
	}

	num, ok := operandNumber(val)
	if !ok {
		return nil, NewSpreadsheetError(ErrorCodeType, "Negation requires a numeric value")
	}
	if n.Op == UnaryOpMinus {
		return -num, nil
	}
	return num, nil
}

func (n *UnaryOpNode) GetPosition() NodePosition {
	return n.Position
}

func (n *UnaryOpNode) ToString() string {
	if n.Op == UnaryOpMinus {
		return "-" + n.Operand.ToString()
	}
	return "+" + n.Operand.ToString()
}

// FunctionCallNode represents a call to a registered function. Function is
// resolved at parse time, so evaluation never sees an unknown name.
type FunctionCallNode struct {
	Name     string
	Args     []ASTNode
	Function *FunctionSpec
	Position NodePosition
}

func (n *FunctionCallNode) Eval(ctx EvalContext) (Primitive, error) {
	spec := n.Function
	if err := spec.checkArity(len(n.Args)); err != nil {
		return nil, err
	}

	args := make([]Primitive, len(n.Args))
	for i, argNode := range n.Args {
		val := evalOperand(argNode, ctx)
		if err := checkForError(val); err != nil {
			return err, nil
		}

		_, isRange := val.(Range)
		switch spec.kindAt(i) {
		case ArgRange:
			if !isRange {
				return nil, NewSpreadsheetError(ErrorCodeArity, fmt.Sprintf("%s expects a range for argument %d", spec.Name, i+1))
			}
		case ArgScalar:
			if isRange {
				return nil, NewSpreadsheetError(ErrorCodeArity, fmt.Sprintf("%s expects a single value for argument %d", spec.Name, i+1))
			}
		}
		args[i] = val
	}

	result, err := spec.Eval(args)
	if err != nil {
		return nil, asSpreadsheetError(err)
	}
	return result, nil
}

func (n *FunctionCallNode) GetPosition() NodePosition {
	return n.Position
}

func (n *FunctionCallNode) ToString() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.ToString()
	}
	return n.Name + "(" + strings.Join(args, ",") + ")"
}

// evalOperand evaluates a node and folds a returned error into an error value
func evalOperand(node ASTNode, ctx EvalContext) Primitive {
	val, err := node.Eval(ctx)
	if err != nil {
		return asSpreadsheetError(err)
	}
	return val
}

// asSpreadsheetError converts a Go error into a spreadsheet error value
func asSpreadsheetError(err error) *SpreadsheetError {
	if spreadsheetErr, ok := err.(*SpreadsheetError); ok {
		return spreadsheetErr
	}
	return NewSpreadsheetError(ErrorCodeType, err.Error())
}

// ParseFormula lexes and parses formula text (without the trigger
// character). every failure is a *SpreadsheetError with ErrorCodeParse.
func ParseFormula(text string, functions *Registry) (ASTNode, error) {
	tokens, err := NewLexer(text).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(tokens, functions).Parse()
}

// NewParser creates a new parser over tokens. a nil registry means the
// built-in functions.
func NewParser(tokens []Token, functions *Registry) *Parser {
	if functions == nil {
		functions = DefaultRegistry()
	}
	return &Parser{
		tokens:    tokens,
		functions: functions,
	}
}

// Parse parses the tokens into an AST
func (p *Parser) Parse() (ASTNode, error) {
	if len(p.tokens) == 0 || p.tokens[0].Type == TokenEOF {
		return nil, parseError("empty formula")
	}

	node, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	if p.peek().Type != TokenEOF {
		return nil, parseError(fmt.Sprintf("unexpected token after expression: %s", p.peek().Value))
	}
	return node, nil
}

func parseError(message string) *SpreadsheetError {
	return NewSpreadsheetError(ErrorCodeParse, message)
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

// parseComparison handles comparison operators (lowest precedence)
func (p *Parser) parseComparison() (ASTNode, error) {
	left, err := p.parseConcatenation()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.Type != TokenBinaryOp {
			return left, nil
		}

		var op BinaryOp
		switch tok.Value {
		case "=":
			op = BinOpEqual
		case "<>":
			op = BinOpNotEqual
		case "<":
			op = BinOpLess
		case "<=":
			op = BinOpLessEqual
		case ">":
			op = BinOpGreater
		case ">=":
			op = BinOpGreaterEqual
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parseConcatenation()
		if err != nil {
			return nil, err
		}
		left = newBinaryOp(op, left, right)
	}
}

// parseConcatenation handles string concatenation operator
func (p *Parser) parseConcatenation() (ASTNode, error) {
	left, err := p.parseAddition()
	if err != nil {
		return nil, err
	}

	for p.peek().Type == TokenBinaryOp && p.peek().Value == "&" {
		p.pos++
		right, err := p.parseAddition()
		if err != nil {
			return nil, err
		}
		left = newBinaryOp(BinOpConcat, left, right)
	}
	return left, nil
}

// parseAddition handles addition and subtraction
func (p *Parser) parseAddition() (ASTNode, error) {
	left, err := p.parseMultiplication()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.Type != TokenBinaryOp {
			return left, nil
		}

		var op BinaryOp
		switch tok.Value {
		case "+":
			op = BinOpAdd
		case "-":
			op = BinOpSubtract
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parseMultiplication()
		if err != nil {
			return nil, err
		}
		left = newBinaryOp(op, left, right)
	}
}

// parseMultiplication handles multiplication and division
func (p *Parser) parseMultiplication() (ASTNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.Type != TokenBinaryOp {
			return left, nil
		}

		var op BinaryOp
		switch tok.Value {
		case "*":
			op = BinOpMultiply
		case "/":
			op = BinOpDivide
		default:
			return left, nil
		}

		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = newBinaryOp(op, left, right)
	}
}

func newBinaryOp(op BinaryOp, left, right ASTNode) *BinaryOpNode {
	return &BinaryOpNode{
		Op:       op,
		Left:     left,
		Right:    right,
		Position: NodePosition{Start: left.GetPosition().Start, End: right.GetPosition().End},
	}
}

// parseUnary handles unary operators
func (p *Parser) parseUnary() (ASTNode, error) {
	tok := p.peek()
	if tok.Type != TokenUnaryPrefixOp {
		return p.parsePrimary()
	}

	op := UnaryOpPlus
	if tok.Value == "-" {
		op = UnaryOpMinus
	}

	p.pos++
	operand, err := p.parseUnary() // recurse for chained unary operators
	if err != nil {
		return nil, err
	}

	return &UnaryOpNode{
		Op:       op,
		Operand:  operand,
		Position: NodePosition{Start: tok.Pos, End: operand.GetPosition().End},
	}, nil
}

// parsePrimary handles primary expressions (literals, references,
// functions, parentheses)
func (p *Parser) parsePrimary() (ASTNode, error) {
	tok := p.peek()

	switch tok.Type {
	case TokenNumber:
		p.pos++
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, parseError(fmt.Sprintf("invalid number: %s", tok.Value))
		}
		return &NumberNode{
			Value:    val,
			Position: NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value)},
		}, nil

	case TokenString:
		p.pos++
		return &StringNode{
			Value:    tok.Value,
			Position: NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value) + 2}, // +2 for quotes
		}, nil

	case TokenBoolean:
		p.pos++
		return &BooleanNode{
			Value:    tok.Value == "TRUE",
			Position: NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value)},
		}, nil

	case TokenCell:
		p.pos++
		addr, err := ParseAddress(tok.Value)
		if err != nil {
			return nil, err
		}
		return &CellRefNode{
			Address:  addr,
			Position: NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value)},
		}, nil

	case TokenRange:
		p.pos++
		r, err := ParseRange(tok.Value)
		if err != nil {
			return nil, err
		}
		return &RangeNode{
			Range:    r,
			Position: NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value)},
		}, nil

	case TokenIdentifier:
		return nil, parseError(fmt.Sprintf("unknown name: %s", tok.Value))

	case TokenFunction:
		return p.parseFunctionCall()

	case TokenLeftParen:
		p.pos++
		node, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		if p.peek().Type != TokenRightParen {
			return nil, parseError("expected closing parenthesis")
		}
		p.pos++
		return node, nil

	case TokenEOF:
		return nil, parseError("unexpected end of expression")

	default:
		return nil, parseError(fmt.Sprintf("unexpected token: %s", tok.Value))
	}
}

// parseFunctionCall parses a function call. the function must be registered.
func (p *Parser) parseFunctionCall() (ASTNode, error) {
	funcTok := p.peek()
	spec, ok := p.functions.Lookup(funcTok.Value)
	if !ok {
		return nil, parseError(fmt.Sprintf("unknown function: %s", funcTok.Value))
	}
	p.pos++

	if p.peek().Type != TokenLeftParen {
		return nil, parseError("expected '(' after function name")
	}
	p.pos++

	args := []ASTNode{}
	if p.peek().Type == TokenRightParen {
		p.pos++
		return &FunctionCallNode{
			Name:     spec.Name,
			Args:     args,
			Function: spec,
			Position: NodePosition{Start: funcTok.Pos, End: p.tokens[p.pos-1].Pos + 1},
		}, nil
	}

	for {
		arg, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		switch p.peek().Type {
		case TokenRightParen:
			p.pos++
			return &FunctionCallNode{
				Name:     spec.Name,
				Args:     args,
				Function: spec,
				Position: NodePosition{Start: funcTok.Pos, End: p.tokens[p.pos-1].Pos + 1},
			}, nil
		case TokenComma:
			p.pos++
		default:
			return nil, parseError("expected ',' or ')' in function arguments")
		}
	}
}

// comparePrimitives compares two scalars. returns -1 if left < right, 0 if
// equal, 1 if left > right. numbers compare numerically, booleans as
// FALSE < TRUE, everything else by display text.
func comparePrimitives(left, right Primitive) int {
	if left == nil && right == nil {
		return 0
	}

	leftNum, leftIsNum := toNumber(left)
	rightNum, rightIsNum := toNumber(right)
	if leftIsNum && rightIsNum {
		switch {
		case leftNum < rightNum:
			return -1
		case leftNum > rightNum:
			return 1
		}
		return 0
	}

	return strings.Compare(toString(left), toString(right))
}
