package eval

import (
	"strconv"
	"strings"

	"github.com/dvsuite/queryexec/errs"
)

// Parse reads a single scalar expression from src.
func Parse(src string) (Expr, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArguments, err)
	}
	p := &parser{toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArguments, err)
	}
	if p.cur().kind != tokEOF {
		return nil, errs.New(errs.InvalidArguments, "unexpected trailing input: "+p.cur().text)
	}
	return e, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) isKeyword(t token, kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (p *parser) expectKeyword(kw string) error {
	if !p.isKeyword(p.cur(), kw) {
		return &syntaxError{msg: "expected " + kw + ", got " + p.cur().text}
	}
	p.advance()
	return nil
}

// parseOr handles OR (lowest precedence).
func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword(p.cur(), "OR") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword(p.cur(), "AND") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.isKeyword(p.cur(), "NOT") {
		p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Call{Name: "NOT", Args: []Expr{inner}}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		if t.kind == tokOp && isComparisonOp(t.text) {
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &BinaryOp{Op: t.text, Left: left, Right: right}
			continue
		}
		if p.isKeyword(t, "IS") {
			p.advance()
			not := false
			if p.isKeyword(p.cur(), "NOT") {
				not = true
				p.advance()
			}
			if err := p.expectKeyword("NULL"); err != nil {
				return nil, err
			}
			left = &IsNullPredicate{Expr: left, Not: not}
			continue
		}
		break
	}
	return left, nil
}

func isComparisonOp(op string) bool {
	switch op {
	case "=", "<>", "!=", "<", ">", "<=", ">=":
		return true
	}
	return false
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		if t.kind == tokOp && (t.text == "+" || t.text == "-" || t.text == "||") {
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &BinaryOp{Op: t.text, Left: left, Right: right}
			continue
		}
		break
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		if t.kind == tokOp && (t.text == "*" || t.text == "/" || t.text == "%") || t.kind == tokStar {
			p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			op := t.text
			if t.kind == tokStar {
				op = "*"
			}
			left = &BinaryOp{Op: op, Left: left, Right: right}
			continue
		}
		break
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	t := p.cur()
	if t.kind == tokOp && (t.text == "-" || t.text == "+") {
		p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if t.text == "-" {
			return &Call{Name: "__NEG", Args: []Expr{inner}}, nil
		}
		return inner, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch t.kind {
	case tokNumber:
		p.advance()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, &syntaxError{msg: "bad numeric literal " + t.text}
		}
		return &Literal{Value: f}, nil

	case tokString, tokNString:
		p.advance()
		return &Literal{Value: t.text}, nil

	case tokVariable:
		p.advance()
		return &Variable{Name: t.text}, nil

	case tokSysVariable:
		p.advance()
		return &SysVariable{Name: t.text}, nil

	case tokLParen:
		p.advance()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokRParen {
			return nil, &syntaxError{msg: "expected )"}
		}
		p.advance()
		return e, nil

	case tokIdent:
		return p.parseIdentLed()
	}
	return nil, &syntaxError{msg: "unexpected token " + t.text}
}

func (p *parser) parseIdentLed() (Expr, error) {
	t := p.advance()
	switch strings.ToUpper(t.text) {
	case "NULL":
		return &Literal{Value: nil}, nil
	case "CASE":
		return p.parseCase()
	case "CAST":
		return p.parseCast()
	case "CONVERT":
		return p.parseConvert()
	}

	name := t.text
	if p.cur().kind != tokLParen {
		return &ColumnRef{Name: name}, nil
	}
	p.advance() // (
	var args []Expr
	if p.cur().kind != tokRParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
	}
	if p.cur().kind != tokRParen {
		return nil, &syntaxError{msg: "expected ) after arguments to " + name}
	}
	p.advance()
	return &Call{Name: name, Args: args}, nil
}

func (p *parser) parseCase() (Expr, error) {
	ce := &CaseExpr{}
	for p.isKeyword(p.cur(), "WHEN") {
		p.advance()
		cond, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		then, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, CaseWhen{Cond: cond, Then: then})
	}
	if p.isKeyword(p.cur(), "ELSE") {
		p.advance()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		ce.Else = e
	}
	if err := p.expectKeyword("END"); err != nil {
		return nil, err
	}
	return ce, nil
}

func (p *parser) parseCast() (Expr, error) {
	if p.cur().kind != tokLParen {
		return nil, &syntaxError{msg: "expected ( after CAST"}
	}
	p.advance()
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("AS"); err != nil {
		return nil, err
	}
	ts, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokRParen {
		return nil, &syntaxError{msg: "expected ) to close CAST"}
	}
	p.advance()
	return &Cast{Expr: expr, Type: ts}, nil
}

func (p *parser) parseConvert() (Expr, error) {
	if p.cur().kind != tokLParen {
		return nil, &syntaxError{msg: "expected ( after CONVERT"}
	}
	p.advance()
	ts, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokComma {
		return nil, &syntaxError{msg: "expected , after CONVERT type"}
	}
	p.advance()
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	var style Expr
	if p.cur().kind == tokComma {
		p.advance()
		style, err = p.parseOr()
		if err != nil {
			return nil, err
		}
	}
	if p.cur().kind != tokRParen {
		return nil, &syntaxError{msg: "expected ) to close CONVERT"}
	}
	p.advance()
	return &Convert{Type: ts, Expr: expr, Style: style}, nil
}

// parseTypeSpec parses `base[(n|max)]` or `base(p,s)`.
func (p *parser) parseTypeSpec() (TypeSpec, error) {
	if p.cur().kind != tokIdent {
		return TypeSpec{}, &syntaxError{msg: "expected type name"}
	}
	base := strings.ToLower(p.advance().text)
	ts := TypeSpec{Base: base}

	if p.cur().kind == tokLParen {
		p.advance()
		if p.isKeyword(p.cur(), "max") || (p.cur().kind == tokIdent && strings.EqualFold(p.cur().text, "max")) {
			p.advance()
			ts.MaxLength = -1
			ts.HasLength = true
		} else if p.cur().kind == tokNumber {
			first, _ := strconv.Atoi(p.advance().text)
			if p.cur().kind == tokComma {
				p.advance()
				second, _ := strconv.Atoi(p.advance().text)
				ts.Precision = first
				ts.Scale = second
				ts.HasPrecScale = true
			} else {
				ts.MaxLength = first
				ts.HasLength = true
			}
		}
		if p.cur().kind != tokRParen {
			return TypeSpec{}, &syntaxError{msg: "expected ) to close type spec"}
		}
		p.advance()
	}
	return ts, nil
}
