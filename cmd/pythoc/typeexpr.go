package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pythoc-lang/pythoc/internal/ast"
)

// parseTypeExpr tokenizes and parses pythoc's type-annotation subgrammar
// (bare names, `name[...]` subscripts, `name.name` attributes, and
// `name(args, kw=val)` calls) into the same ast.TypeExpr nodes the real
// AnnAssign lowering path in internal/visitor/resolve.go consumes. This
// is deliberately narrower than the surface language's full expression
// grammar (out of scope per spec.md §1) — it exists only so `pythoc
// types` can exercise ResolveType against something typed at a prompt
// instead of requiring a full parser the repo does not have.
type typeExprParser struct {
	toks []string
	pos  int
}

func parseTypeExpr(src string) (ast.TypeExpr, error) {
	p := &typeExprParser{toks: tokenizeTypeExpr(src)}
	if len(p.toks) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	e, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("unexpected trailing input near %q", p.toks[p.pos])
	}
	return e, nil
}

func tokenizeTypeExpr(src string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			flush()
			j := i + 1
			for j < len(runes) && runes[j] != '"' {
				j++
			}
			toks = append(toks, string(runes[i:j+1]))
			i = j
		case strings.ContainsRune("[](),.=", r):
			flush()
			toks = append(toks, string(r))
		case r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

func (p *typeExprParser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *typeExprParser) peek() string {
	if p.atEnd() {
		return ""
	}
	return p.toks[p.pos]
}

func (p *typeExprParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

// parsePostfix parses an atom followed by any chain of `[...]`, `(...)`,
// and `.name` postfix operators, left-associatively — enough to express
// `ptr[array[i32, 4]]`, `MyEnum.Variant`-style qualified names, and
// `extern(lib="m")`-style declarations.
func (p *typeExprParser) parsePostfix() (ast.Expr, error) {
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek() {
		case "[":
			p.next()
			var idx []ast.Expr
			if p.peek() != "]" {
				for {
					e, err := p.parsePostfix()
					if err != nil {
						return nil, err
					}
					idx = append(idx, e)
					if p.peek() == "," {
						p.next()
						continue
					}
					break
				}
			}
			if p.next() != "]" {
				return nil, fmt.Errorf("expected ]")
			}
			atom = &ast.Subscript{Base: atom, Index: idx}
		case "(":
			p.next()
			call := &ast.Call{Func: atom, Kwargs: map[string]ast.Expr{}}
			if p.peek() != ")" {
				for {
					name := ""
					if p.pos+1 < len(p.toks) && p.toks[p.pos+1] == "=" && isIdent(p.peek()) {
						name = p.next()
						p.next() // consume "="
					}
					e, err := p.parsePostfix()
					if err != nil {
						return nil, err
					}
					if name != "" {
						call.Kwargs[name] = e
					} else {
						call.Args = append(call.Args, e)
					}
					if p.peek() == "," {
						p.next()
						continue
					}
					break
				}
			}
			if p.next() != ")" {
				return nil, fmt.Errorf("expected )")
			}
			atom = call
		case ".":
			p.next()
			name := p.next()
			if !isIdent(name) {
				return nil, fmt.Errorf("expected identifier after '.'")
			}
			atom = &ast.Attribute{Base: atom, Name: name}
		default:
			return atom, nil
		}
	}
}

func (p *typeExprParser) parseAtom() (ast.Expr, error) {
	tok := p.next()
	switch {
	case tok == "":
		return nil, fmt.Errorf("unexpected end of expression")
	case strings.HasPrefix(tok, `"`) && strings.HasSuffix(tok, `"`) && len(tok) >= 2:
		return &ast.Constant{Kind: ast.ConstString, Value: tok[1 : len(tok)-1]}, nil
	case isInt(tok):
		n, _ := strconv.ParseInt(tok, 10, 64)
		return &ast.Constant{Kind: ast.ConstInt, Value: n}, nil
	case tok == "true" || tok == "false":
		return &ast.Constant{Kind: ast.ConstBool, Value: tok == "true"}, nil
	case isIdent(tok):
		return &ast.Name{Id: tok}, nil
	default:
		return nil, fmt.Errorf("unrecognized token %q", tok)
	}
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

func isInt(s string) bool {
	if s == "" {
		return false
	}
	start := 0
	if s[0] == '-' {
		start = 1
	}
	if start == len(s) {
		return false
	}
	for _, r := range s[start:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
