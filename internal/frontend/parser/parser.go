package parser

import (
	"fmt"
	"strings"

	"compiler/internal/diagnostics"
	"compiler/internal/frontend/ast"
	"compiler/internal/source"
	"compiler/internal/tokens"
)

// The Parser builds an AST from an externally produced token stream.
// Parsing is strict: the first unexpected token aborts the whole parse and
// is reported both as a ParseError and as a diagnostic record.

// ParseError describes the first (and only) parse failure.
type ParseError struct {
	Line    int
	Column  int
	Lexeme  string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d near %q: %s", e.Line, e.Column, e.Lexeme, e.Message)
}

// Parser holds temporary state during parsing of a single token stream.
// This is created on-the-fly, not stored persistently.
type Parser struct {
	tokens      []tokens.Token
	current     int // current position in tokens
	diagnostics *diagnostics.Bag
	filepath    string
	err         *ParseError
}

// Parse consumes the token stream and returns the program, or the first
// parse error. There is no recovery: the AST is nil whenever err is set.
func Parse(toks []tokens.Token, filepath string, bag *diagnostics.Bag) (*ast.Program, error) {
	if bag == nil {
		bag = diagnostics.NewBag()
	}
	p := &Parser{
		tokens:      toks,
		current:     0,
		diagnostics: bag,
		filepath:    filepath,
	}

	program := p.parseProgram()
	if p.err != nil {
		return nil, p.err
	}
	return program, nil
}

func (p *Parser) parseProgram() *ast.Program {
	program := &ast.Program{
		Filename: p.filepath,
		Nodes:    []ast.Node{},
	}

	for !p.isAtEnd() && p.err == nil {
		node := p.parseStmt()
		if node != nil {
			program.Nodes = append(program.Nodes, node)
		}
	}

	if len(program.Nodes) > 0 {
		start := program.Nodes[0].Loc().Start
		end := program.Nodes[len(program.Nodes)-1].Loc().End
		program.Location = *source.NewLocation(&p.filepath, start, end)
	}
	return program
}

// parseStmt parses a statement
func (p *Parser) parseStmt() ast.Node {
	if p.err != nil {
		return nil
	}
	tok := p.peek()

	switch tok.Kind {
	case tokens.FUNCTION_TOKEN:
		return p.parseFuncDecl()
	case tokens.IF_TOKEN:
		return p.parseIfStmt()
	case tokens.WHILE_TOKEN:
		return p.parseWhileStmt()
	case tokens.FOR_TOKEN:
		return p.parseForStmt()
	case tokens.STRUCT_TOKEN:
		return p.parseStructDecl()
	case tokens.ENUM_TOKEN:
		return p.parseEnumDecl()
	case tokens.PRINT_TOKEN:
		return p.parsePrintStmt()
	case tokens.RETURN_TOKEN:
		return p.parseReturnStmt()
	default:
		return p.parseExprOrAssign()
	}
}

// parseFuncDecl: fn name(a: type, b: type) -> type { ... }
func (p *Parser) parseFuncDecl() *ast.FuncDecl {
	start := p.expect(tokens.FUNCTION_TOKEN).Start
	name := p.parseIdentifier()

	p.expect(tokens.OPEN_PAREN)
	params := []ast.Param{}
	for p.err == nil && !p.match(tokens.CLOSE_PAREN) {
		if len(params) > 0 {
			p.expect(tokens.COMMA_TOKEN)
		}
		pname := p.parseIdentifier()
		var ptype *ast.IdentifierExpr
		if p.match(tokens.COLON_TOKEN) {
			p.advance()
			ptype = p.parseIdentifier()
		}
		params = append(params, ast.Param{Name: pname, Type: ptype})
	}
	p.expect(tokens.CLOSE_PAREN)

	var ret *ast.IdentifierExpr
	if p.match(tokens.ARROW_TOKEN) {
		p.advance()
		ret = p.parseIdentifier()
	}

	body := p.parseBlock()
	if p.err != nil {
		return nil
	}

	return &ast.FuncDecl{
		Name:       name,
		Params:     params,
		ReturnType: ret,
		Body:       body,
		Location:   *source.NewLocation(&p.filepath, &start, body.Location.End),
	}
}

// parseIfStmt: if cond { } else { }
func (p *Parser) parseIfStmt() *ast.IfStmt {
	start := p.expect(tokens.IF_TOKEN).Start

	cond := p.parseExpr()
	body := p.parseBlock()

	var elseNode ast.Node
	if p.err == nil && p.match(tokens.ELSE_TOKEN) {
		p.advance()
		if p.match(tokens.IF_TOKEN) {
			elseNode = p.parseIfStmt()
		} else {
			elseNode = p.parseBlock()
		}
	}
	if p.err != nil {
		return nil
	}

	return &ast.IfStmt{
		Cond:     cond,
		Body:     body,
		Else:     elseNode,
		Location: p.makeLocation(start),
	}
}

// parseWhileStmt: while cond { }
func (p *Parser) parseWhileStmt() *ast.WhileStmt {
	start := p.expect(tokens.WHILE_TOKEN).Start
	cond := p.parseExpr()
	body := p.parseBlock()
	if p.err != nil {
		return nil
	}

	return &ast.WhileStmt{
		Cond:     cond,
		Body:     body,
		Location: *source.NewLocation(&p.filepath, &start, body.Location.End),
	}
}

// parseForStmt: for i in start..end { }
func (p *Parser) parseForStmt() *ast.ForStmt {
	start := p.expect(tokens.FOR_TOKEN).Start
	iter := p.parseIdentifier()
	p.expect(tokens.IN_TOKEN)
	rangeExpr := p.parseExpr()
	body := p.parseBlock()
	if p.err != nil {
		return nil
	}

	return &ast.ForStmt{
		Var:      iter,
		Range:    rangeExpr,
		Body:     body,
		Location: *source.NewLocation(&p.filepath, &start, body.Location.End),
	}
}

// parseStructDecl: struct Name { field: type, ... }
func (p *Parser) parseStructDecl() *ast.StructDecl {
	start := p.expect(tokens.STRUCT_TOKEN).Start
	name := p.parseIdentifier()
	p.expect(tokens.OPEN_CURLY)

	fields := []ast.FieldDef{}
	for p.err == nil && !p.match(tokens.CLOSE_CURLY) {
		fname := p.parseIdentifier()
		p.expect(tokens.COLON_TOKEN)
		ftype := p.parseIdentifier()
		fields = append(fields, ast.FieldDef{Name: fname, Type: ftype})
		if !p.match(tokens.CLOSE_CURLY) {
			p.expect(tokens.COMMA_TOKEN)
		}
	}
	end := p.expect(tokens.CLOSE_CURLY).End
	if p.err != nil {
		return nil
	}

	return &ast.StructDecl{
		Name:     name,
		Fields:   fields,
		Location: *source.NewLocation(&p.filepath, &start, &end),
	}
}

// parseEnumDecl: enum Name { Variant(type), Bare, ... }
func (p *Parser) parseEnumDecl() *ast.EnumDecl {
	start := p.expect(tokens.ENUM_TOKEN).Start
	name := p.parseIdentifier()
	p.expect(tokens.OPEN_CURLY)

	variants := []ast.VariantDef{}
	for p.err == nil && !p.match(tokens.CLOSE_CURLY) {
		vname := p.parseIdentifier()
		var payload *ast.IdentifierExpr
		if p.match(tokens.OPEN_PAREN) {
			p.advance()
			payload = p.parseIdentifier()
			p.expect(tokens.CLOSE_PAREN)
		}
		variants = append(variants, ast.VariantDef{Name: vname, Payload: payload})
		if !p.match(tokens.CLOSE_CURLY) {
			p.expect(tokens.COMMA_TOKEN)
		}
	}
	end := p.expect(tokens.CLOSE_CURLY).End
	if p.err != nil {
		return nil
	}

	return &ast.EnumDecl{
		Name:     name,
		Variants: variants,
		Location: *source.NewLocation(&p.filepath, &start, &end),
	}
}

// parsePrintStmt: print expr;
func (p *Parser) parsePrintStmt() *ast.PrintStmt {
	start := p.expect(tokens.PRINT_TOKEN).Start
	x := p.parseExpr()
	end := p.expect(tokens.SEMICOLON_TOKEN).End
	if p.err != nil {
		return nil
	}

	return &ast.PrintStmt{
		X:        x,
		Location: *source.NewLocation(&p.filepath, &start, &end),
	}
}

// parseReturnStmt: return expr;
func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.expect(tokens.RETURN_TOKEN).Start

	var result ast.Expression
	if !p.match(tokens.SEMICOLON_TOKEN) {
		result = p.parseExpr()
	}
	end := p.expect(tokens.SEMICOLON_TOKEN).End
	if p.err != nil {
		return nil
	}

	return &ast.ReturnStmt{
		Result:   result,
		Location: *source.NewLocation(&p.filepath, &start, &end),
	}
}

// parseExprOrAssign: expr; or lvalue = expr;
func (p *Parser) parseExprOrAssign() ast.Node {
	lhs := p.parseExpr()
	if p.err != nil {
		return nil
	}

	if p.match(tokens.EQUALS_TOKEN) {
		switch lhs.(type) {
		case *ast.IdentifierExpr, *ast.FieldAccessExpr, *ast.IndexExpr:
		default:
			p.fail(diagnostics.ErrInvalidStatement, "invalid assignment target")
			return nil
		}
		p.advance()
		rhs := p.parseExpr()
		end := p.expect(tokens.SEMICOLON_TOKEN).End
		if p.err != nil {
			return nil
		}
		return &ast.AssignStmt{
			Lhs:      lhs,
			Rhs:      rhs,
			Location: *source.NewLocation(&p.filepath, lhs.Loc().Start, &end),
		}
	}

	end := p.expect(tokens.SEMICOLON_TOKEN).End
	if p.err != nil {
		return nil
	}
	return &ast.ExprStmt{
		X:        lhs,
		Location: *source.NewLocation(&p.filepath, lhs.Loc().Start, &end),
	}
}

// parseBlock: { stmts }
func (p *Parser) parseBlock() *ast.Block {
	start := p.expect(tokens.OPEN_CURLY).Start

	nodes := []ast.Node{}
	for p.err == nil && !p.match(tokens.CLOSE_CURLY) && !p.isAtEnd() {
		node := p.parseStmt()
		if node != nil {
			nodes = append(nodes, node)
		}
	}
	end := p.expect(tokens.CLOSE_CURLY).End

	return &ast.Block{
		Nodes:    nodes,
		Location: *source.NewLocation(&p.filepath, &start, &end),
	}
}

// Expression parsing. Precedence is encoded as a call chain, lowest to
// highest: or -> and -> equality -> comparison -> range -> additive ->
// multiplicative -> unary -> primary.

func (p *Parser) parseExpr() ast.Expression {
	return p.parseLogicalOr()
}

func (p *Parser) parseLogicalOr() ast.Expression {
	left := p.parseLogicalAnd()

	for p.err == nil && p.match(tokens.OR_TOKEN) {
		op := p.advance()
		right := p.parseLogicalAnd()
		left = p.foldBinary(left, op, right)
	}
	return left
}

func (p *Parser) parseLogicalAnd() ast.Expression {
	left := p.parseEquality()

	for p.err == nil && p.match(tokens.AND_TOKEN) {
		op := p.advance()
		right := p.parseEquality()
		left = p.foldBinary(left, op, right)
	}
	return left
}

func (p *Parser) parseEquality() ast.Expression {
	left := p.parseComparison()

	for p.err == nil && p.match(tokens.DOUBLE_EQUAL_TOKEN, tokens.NOT_EQUAL_TOKEN) {
		op := p.advance()
		right := p.parseComparison()
		left = p.foldBinary(left, op, right)
	}
	return left
}

func (p *Parser) parseComparison() ast.Expression {
	left := p.parseRange()

	for p.err == nil && p.match(tokens.LESS_TOKEN, tokens.LESS_EQUAL_TOKEN, tokens.GREATER_TOKEN, tokens.GREATER_EQUAL_TOKEN) {
		op := p.advance()
		right := p.parseRange()
		left = p.foldBinary(left, op, right)
	}
	return left
}

// parseRange parses range expressions at their dedicated precedence level:
// start..end. Ranges are also recognized after postfix parsing so they can
// follow indexing and field access.
func (p *Parser) parseRange() ast.Expression {
	left := p.parseAdditive()
	if p.err != nil || left == nil {
		return left
	}

	if p.match(tokens.RANGE_TOKEN) {
		p.advance()
		end := p.parseAdditive()
		if p.err != nil {
			return nil
		}
		return &ast.RangeExpr{
			Start:    left,
			End:      end,
			Location: *source.NewLocation(&p.filepath, left.Loc().Start, end.Loc().End),
		}
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()

	for p.err == nil && p.match(tokens.PLUS_TOKEN, tokens.MINUS_TOKEN) {
		op := p.advance()
		right := p.parseMultiplicative()
		left = p.foldBinary(left, op, right)
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expression {
	left := p.parseUnary()

	for p.err == nil && p.match(tokens.MUL_TOKEN, tokens.DIV_TOKEN, tokens.MOD_TOKEN) {
		op := p.advance()
		right := p.parseUnary()
		left = p.foldBinary(left, op, right)
	}
	return left
}

func (p *Parser) parseUnary() ast.Expression {
	if p.match(tokens.NOT_TOKEN, tokens.MINUS_TOKEN) {
		op := p.advance()
		x := p.parseUnary()
		if p.err != nil {
			return nil
		}
		return &ast.UnaryExpr{
			Op:       op,
			X:        x,
			Location: *source.NewLocation(&p.filepath, &op.Start, x.Loc().End),
		}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expression {
	expr := p.parsePrimary()
	if p.err != nil || expr == nil {
		return nil
	}

	// A dot directly after a bare identifier may be enum-variant
	// construction instead of field access; everything later in the chain
	// is plain field access.
	baseIdent, _ := expr.(*ast.IdentifierExpr)

	for p.err == nil {
		switch {
		case p.match(tokens.OPEN_PAREN):
			expr = p.parseCallExpr(expr)
			baseIdent = nil
		case p.match(tokens.OPEN_BRACKET):
			expr = p.parseIndexExpr(expr)
			baseIdent = nil
		case p.match(tokens.DOT_TOKEN):
			expr = p.parseDot(expr, baseIdent)
			baseIdent = nil
		default:
			// Second range check: lets a range start with an indexed or
			// field-accessed operand.
			if p.match(tokens.RANGE_TOKEN) {
				p.advance()
				end := p.parseAdditive()
				if p.err != nil {
					return nil
				}
				return &ast.RangeExpr{
					Start:    expr,
					End:      end,
					Location: *source.NewLocation(&p.filepath, expr.Loc().Start, end.Loc().End),
				}
			}
			return expr
		}
	}
	return expr
}

// parseDot resolves the dot ambiguity. With base the bare identifier the
// dot follows (nil otherwise):
//   - base != nil and '(' follows the member name: enum-variant
//     construction with payload
//   - base != nil and the member name starts uppercase: enum-variant
//     construction without payload
//   - otherwise: field access
//
// The capitalization rule is a deliberate language convention, carried
// as-is: no type information is consulted here.
func (p *Parser) parseDot(expr ast.Expression, base *ast.IdentifierExpr) ast.Expression {
	p.advance() // consume '.'
	member := p.parseIdentifier()
	if p.err != nil {
		return nil
	}

	if base != nil && p.match(tokens.OPEN_PAREN) {
		p.advance()
		payload := p.parseExpr()
		end := p.expect(tokens.CLOSE_PAREN).End
		if p.err != nil {
			return nil
		}
		return &ast.EnumVariantExpr{
			EnumName:    base.Name,
			VariantName: member.Name,
			Data:        payload,
			Location:    *source.NewLocation(&p.filepath, base.Loc().Start, &end),
		}
	}

	if base != nil && isUpper(member.Name) {
		return &ast.EnumVariantExpr{
			EnumName:    base.Name,
			VariantName: member.Name,
			Data:        nil,
			Location:    *source.NewLocation(&p.filepath, base.Loc().Start, member.Loc().End),
		}
	}

	return &ast.FieldAccessExpr{
		Object:   expr,
		Field:    member,
		Location: *source.NewLocation(&p.filepath, expr.Loc().Start, member.Loc().End),
	}
}

func (p *Parser) parseCallExpr(fun ast.Expression) *ast.CallExpr {
	p.advance() // consume '('
	args := []ast.Expression{}
	if !p.match(tokens.CLOSE_PAREN) {
		args = append(args, p.parseExpr())
		for p.err == nil && p.match(tokens.COMMA_TOKEN) {
			p.advance()
			args = append(args, p.parseExpr())
		}
	}
	end := p.expect(tokens.CLOSE_PAREN).End
	if p.err != nil {
		return nil
	}

	return &ast.CallExpr{
		Fun:      fun,
		Args:     args,
		Location: *source.NewLocation(&p.filepath, fun.Loc().Start, &end),
	}
}

func (p *Parser) parseIndexExpr(x ast.Expression) *ast.IndexExpr {
	p.advance() // consume '['
	index := p.parseExpr()
	end := p.expect(tokens.CLOSE_BRACKET).End
	if p.err != nil {
		return nil
	}

	return &ast.IndexExpr{
		X:        x,
		Index:    index,
		Location: *source.NewLocation(&p.filepath, x.Loc().Start, &end),
	}
}

func (p *Parser) parsePrimary() ast.Expression {
	if p.err != nil {
		return nil
	}
	tok := p.peek()

	switch tok.Kind {
	case tokens.NUMBER_TOKEN:
		p.advance()
		kind := ast.INT
		if strings.ContainsRune(tok.Value, '.') {
			kind = ast.FLOAT
		}
		return &ast.BasicLit{
			Kind:     kind,
			Value:    tok.Value,
			Location: *source.NewLocation(&p.filepath, &tok.Start, &tok.End),
		}

	case tokens.STRING_TOKEN:
		p.advance()
		return &ast.BasicLit{
			Kind:     ast.STRING,
			Value:    unescapeString(tok.Value),
			Location: *source.NewLocation(&p.filepath, &tok.Start, &tok.End),
		}

	case tokens.TRUE_TOKEN, tokens.FALSE_TOKEN:
		p.advance()
		return &ast.BasicLit{
			Kind:     ast.BOOL,
			Value:    string(tok.Kind),
			Location: *source.NewLocation(&p.filepath, &tok.Start, &tok.End),
		}

	case tokens.IDENTIFIER_TOKEN:
		ident := p.parseIdentifier()
		// A '{' after a bare identifier is struct instantiation only when
		// the 2-token lookahead confirms `{ identifier :`. Anything else
		// leaves the brace unconsumed so `if cond { }` parses as a block.
		if p.match(tokens.OPEN_CURLY) && p.peekAt(1).Kind == tokens.IDENTIFIER_TOKEN && p.peekAt(2).Kind == tokens.COLON_TOKEN {
			return p.parseStructLit(ident)
		}
		return ident

	case tokens.OPEN_PAREN:
		p.advance()
		expr := p.parseExpr()
		p.expect(tokens.CLOSE_PAREN)
		return expr

	case tokens.OPEN_BRACKET:
		return p.parseArrayLit()

	default:
		p.fail(diagnostics.ErrUnexpectedToken, fmt.Sprintf("unexpected token '%s' in expression", tok.Value))
		return nil
	}
}

// parseStructLit: Name { field: value, ... }; the opening identifier is
// already consumed.
func (p *Parser) parseStructLit(name *ast.IdentifierExpr) *ast.StructLitExpr {
	p.expect(tokens.OPEN_CURLY)

	fields := []ast.StructLitField{}
	for p.err == nil && !p.match(tokens.CLOSE_CURLY) {
		fname := p.parseIdentifier()
		p.expect(tokens.COLON_TOKEN)
		value := p.parseExpr()
		fields = append(fields, ast.StructLitField{Name: fname, Value: value})
		if !p.match(tokens.CLOSE_CURLY) {
			p.expect(tokens.COMMA_TOKEN)
		}
	}
	end := p.expect(tokens.CLOSE_CURLY).End
	if p.err != nil {
		return nil
	}

	return &ast.StructLitExpr{
		Name:     name,
		Fields:   fields,
		Location: *source.NewLocation(&p.filepath, name.Loc().Start, &end),
	}
}

func (p *Parser) parseArrayLit() *ast.ArrayLitExpr {
	start := p.expect(tokens.OPEN_BRACKET).Start

	elems := []ast.Expression{}
	if !p.match(tokens.CLOSE_BRACKET) {
		elems = append(elems, p.parseExpr())
		for p.err == nil && p.match(tokens.COMMA_TOKEN) {
			p.advance()
			elems = append(elems, p.parseExpr())
		}
	}
	end := p.expect(tokens.CLOSE_BRACKET).End
	if p.err != nil {
		return nil
	}

	return &ast.ArrayLitExpr{
		Elts:     elems,
		Location: *source.NewLocation(&p.filepath, &start, &end),
	}
}

func (p *Parser) parseIdentifier() *ast.IdentifierExpr {
	if !p.match(tokens.IDENTIFIER_TOKEN) {
		p.fail(diagnostics.ErrMissingIdentifier, fmt.Sprintf("expected identifier, got '%s'", p.peek().Value))
		return &ast.IdentifierExpr{Name: "<error>"}
	}

	tok := p.advance()
	return &ast.IdentifierExpr{
		Name:     tok.Value,
		Location: *source.NewLocation(&p.filepath, &tok.Start, &tok.End),
	}
}

func (p *Parser) foldBinary(left ast.Expression, op tokens.Token, right ast.Expression) ast.Expression {
	if p.err != nil || left == nil || right == nil {
		return nil
	}
	return &ast.BinaryExpr{
		X:        left,
		Op:       op,
		Y:        right,
		Location: *source.NewLocation(&p.filepath, left.Loc().Start, right.Loc().End),
	}
}

// Helper methods

func (p *Parser) isAtEnd() bool {
	return p.current >= len(p.tokens) || p.tokens[p.current].Kind == tokens.EOF_TOKEN
}

func (p *Parser) peek() tokens.Token {
	return p.peekAt(0)
}

func (p *Parser) peekAt(offset int) tokens.Token {
	idx := p.current + offset
	if idx >= len(p.tokens) {
		return p.eofToken()
	}
	return p.tokens[idx]
}

func (p *Parser) eofToken() tokens.Token {
	if len(p.tokens) > 0 {
		return p.tokens[len(p.tokens)-1]
	}
	return tokens.Token{Kind: tokens.EOF_TOKEN}
}

func (p *Parser) advance() tokens.Token {
	if p.current >= len(p.tokens) {
		return p.eofToken()
	}
	tok := p.tokens[p.current]
	p.current++
	return tok
}

func (p *Parser) match(kinds ...tokens.TOKEN) bool {
	for _, kind := range kinds {
		if p.peek().Kind == kind {
			return true
		}
	}
	return false
}

func (p *Parser) expect(kind tokens.TOKEN) tokens.Token {
	if p.match(kind) {
		return p.advance()
	}
	p.fail(diagnostics.ErrExpectedToken, fmt.Sprintf("unexpected token '%s', expected '%s'", p.peek().Value, kind))
	return p.peek()
}

// fail records the first error and puts the parser into its aborted state.
// The code identifies the failure condition in the diagnostic record.
func (p *Parser) fail(code, msg string) {
	if p.err != nil {
		return
	}
	tok := p.peek()
	p.err = &ParseError{
		Line:    tok.Start.Line,
		Column:  tok.Start.Column,
		Lexeme:  tok.Value,
		Message: msg,
	}
	loc := source.NewLocation(&p.filepath, &tok.Start, &tok.End)
	p.diagnostics.Add(
		diagnostics.NewError(msg).
			WithCode(code).
			WithPrimaryLabel(loc, ""),
	)
}

func (p *Parser) makeLocation(start source.Position) source.Location {
	var end source.Position
	if p.current > 0 {
		end = p.tokens[p.current-1].End
	}
	return *source.NewLocation(&p.filepath, &start, &end)
}

func isUpper(name string) bool {
	if name == "" {
		return false
	}
	c := name[0]
	return c >= 'A' && c <= 'Z'
}

// unescapeString resolves the escape sequences \n \r \t \\ \" \0 in a
// string literal's lexeme. Unknown escapes pass through with the backslash
// retained.
func unescapeString(raw string) string {
	if !strings.ContainsRune(raw, '\\') {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case '0':
			b.WriteByte(0)
		default:
			b.WriteByte('\\')
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}
