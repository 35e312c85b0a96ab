// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

import (
	"errors"
	"fmt"

	"github.com/crosscut-lang/crosscut/token"
	"github.com/crosscut-lang/crosscut/typesys"
	"github.com/crosscut-lang/crosscut/value"
)

// ErrDuplicateFunction is returned when two top-level named functions share
// a name.
var ErrDuplicateFunction = errors.New("syntax: duplicate named function")

// ParseError reports an unexpected token encountered while parsing. Parsing
// aborts on the first one rather than attempting any error recovery.
type ParseError struct {
	Got  token.Token
	Want string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("syntax: unexpected %s at %s, want %s", e.Got, e.Got.Pos, e.Want)
}

// parser is a recursive-descent parser over a token.Tokenizer. Every
// produced node records its own Location, computed as the parser descends;
// there is no separate location-stack object because each recursive method
// receives the location of the node it is about to build; it is in this
// sense that the parser "threads a location stack", matching the discipline
// go/ssa's builder uses to thread its *Function receiver through nested
// literal construction.
type parser struct {
	tz   *token.Tokenizer
	tree *Tree
}

// Parse tokenizes and parses src into a Tree.
func Parse(src string) (*Tree, error) {
	p := &parser{tz: token.New(src), tree: newTree()}
	return p.parseProgram()
}

func (p *parser) parseProgram() (*Tree, error) {
	for {
		comment, err := p.parseCommentBlock()
		if err != nil {
			return nil, err
		}

		_, err = p.tz.Peek()
		if errors.Is(err, token.ErrNoMoreTokens) {
			return p.tree, nil
		}
		if err != nil {
			return nil, err
		}

		name, err := p.parseNamedFunctionHeader()
		if err != nil {
			return nil, err
		}
		if _, exists := p.tree.byName[name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateFunction, name)
		}

		loc := NewNamedFunctionLocation(Index(len(p.tree.NamedFunctions)))
		fn, err := p.parseFunctionBody(loc)
		if err != nil {
			return nil, err
		}

		nf := &NamedFunction{Location: loc, Name: name, Comment: comment, Function: fn}
		p.tree.NamedFunctions = append(p.tree.NamedFunctions, nf)
		p.tree.byName[name] = nf
		p.tree.functions[loc.Key()] = fn
	}
}

// parseNamedFunctionHeader parses the `name ":"` prefix of a top-level
// function definition and returns the name; the `fn ... end` body that
// follows is parsed separately once the function's Location is known.
func (p *parser) parseNamedFunctionHeader() (string, error) {
	nameTok, err := p.tz.Take()
	if err != nil {
		return "", err
	}
	if nameTok.Kind != token.Identifier {
		return "", &ParseError{Got: nameTok, Want: "identifier"}
	}

	if err := p.expect(token.Introducer); err != nil {
		return "", err
	}

	return nameTok.Text, nil
}

// parseFunctionBody parses `fn { branch } end`. A branch has no terminator
// of its own; its body runs until the next "br" (the next sibling branch)
// or the function's own closing "end", neither of which it consumes.
// parseFunctionBody attaches loc to the resulting Function and to
// everything nested inside it.
func (p *parser) parseFunctionBody(loc FunctionLocation) (*Function, error) {
	if err := p.expectKeyword(token.Fn); err != nil {
		return nil, err
	}

	fn := &Function{Location: loc, Environment: map[string]ParameterLocation{}}

	for {
		comment, err := p.parseCommentBlock()
		if err != nil {
			return nil, err
		}

		next, err := p.tz.Peek()
		if err != nil {
			return nil, err
		}
		if next.Kind == token.End {
			p.tz.Take()
			break
		}

		branchLoc := BranchLocation{Parent: loc, Index: Index(len(fn.Branches))}
		branch, err := p.parseBranch(branchLoc, comment)
		if err != nil {
			return nil, err
		}
		fn.Branches = append(fn.Branches, branch)
		p.tree.branches[branchLoc.Key()] = branch
	}

	return fn, nil
}

func (p *parser) parseBranch(loc BranchLocation, comment []string) (*Branch, error) {
	if err := p.expectKeyword(token.Br); err != nil {
		return nil, err
	}

	params, err := p.parseParameters(loc)
	if err != nil {
		return nil, err
	}

	branch := &Branch{Location: loc, Comment: comment, Parameters: params}

	for {
		next, err := p.tz.Peek()
		if err != nil {
			return nil, err
		}
		if next.Kind == token.Br || next.Kind == token.End {
			break
		}

		memberLoc := MemberLocation{Parent: loc, Index: Index(len(branch.Body))}
		member, err := p.parseMember(memberLoc)
		if err != nil {
			return nil, err
		}
		branch.Body = append(branch.Body, member)
		p.tree.members[memberLoc.Key()] = member
	}

	for _, param := range params {
		p.tree.parameters[param.Location.Key()] = param
	}

	return branch, nil
}

func (p *parser) parseParameters(branchLoc BranchLocation) ([]*Parameter, error) {
	var params []*Parameter

	for {
		next, err := p.tz.Peek()
		if err != nil {
			return nil, err
		}
		if next.Kind == token.Transformer {
			p.tz.Take()
			break
		}

		loc := ParameterLocation{Parent: branchLoc, Index: Index(len(params))}
		param, err := p.parseParameter(loc)
		if err != nil {
			return nil, err
		}
		params = append(params, param)

		sep, err := p.tz.Take()
		if err != nil {
			return nil, err
		}
		switch sep.Kind {
		case token.Delimiter:
			continue
		case token.Transformer:
			goto done
		default:
			return nil, &ParseError{Got: sep, Want: "',' or '->'"}
		}
	}
done:
	return params, nil
}

func (p *parser) parseParameter(loc ParameterLocation) (*Parameter, error) {
	tok, err := p.tz.Take()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case token.Identifier:
		annotation, err := p.parseTypeAnnotation()
		if err != nil {
			return nil, err
		}
		return &Parameter{
			Location:   loc,
			Kind:       ParameterBinding,
			Name:       tok.Text,
			Annotation: annotation,
		}, nil
	case token.IntegerLiteral:
		return &Parameter{
			Location:     loc,
			Kind:         ParameterLiteral,
			LiteralValue: value.FromS32(tok.Value),
		}, nil
	default:
		return nil, &ParseError{Got: tok, Want: "identifier or integer literal"}
	}
}

func (p *parser) parseMember(loc MemberLocation) (*Member, error) {
	comment, err := p.parseCommentBlock()
	if err != nil {
		return nil, err
	}
	if comment != nil {
		return &Member{Location: loc, Kind: MemberComment, CommentLines: comment}, nil
	}

	expr, err := p.parseExpression(loc)
	if err != nil {
		return nil, err
	}

	annotation, err := p.parseSignatureAnnotation()
	if err != nil {
		return nil, err
	}

	return &Member{Location: loc, Kind: MemberExpression, Expr: expr, Annotation: annotation}, nil
}

func (p *parser) parseExpression(loc MemberLocation) (*Expression, error) {
	next, err := p.tz.Peek()
	if err != nil {
		return nil, err
	}

	if next.Kind == token.Fn {
		fnLoc := NewLocalFunctionLocation(loc)
		fn, err := p.parseFunctionBody(fnLoc)
		if err != nil {
			return nil, err
		}
		p.tree.functions[fnLoc.Key()] = fn
		return &Expression{Kind: ExprLocalFunction, Function: fn}, nil
	}

	tok, err := p.tz.Take()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case token.Identifier:
		return &Expression{Kind: ExprIdentifier, Name: tok.Text}, nil
	case token.IntegerLiteral:
		return &Expression{Kind: ExprLiteralNumber, Value: value.FromS32(tok.Value)}, nil
	default:
		return nil, &ParseError{Got: tok, Want: "identifier, integer literal, or 'fn'"}
	}
}

// parseCommentBlock consumes a maximal run of adjacent comment-line tokens
// and returns their text, or nil if the next token isn't a comment.
func (p *parser) parseCommentBlock() ([]string, error) {
	var lines []string
	for {
		next, err := p.tz.Peek()
		if errors.Is(err, token.ErrNoMoreTokens) {
			break
		}
		if err != nil {
			return nil, err
		}
		if next.Kind != token.CommentLine {
			break
		}
		p.tz.Take()
		lines = append(lines, next.Text)
	}
	return lines, nil
}

func (p *parser) parseTypeAnnotation() (*typesys.Type, error) {
	next, err := p.tz.Peek()
	if err != nil {
		if errors.Is(err, token.ErrNoMoreTokens) {
			return nil, nil
		}
		return nil, err
	}
	if next.Kind != token.Introducer {
		return nil, nil
	}
	p.tz.Take()

	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (p *parser) parseSignatureAnnotation() (*typesys.Signature, error) {
	next, err := p.tz.Peek()
	if err != nil {
		if errors.Is(err, token.ErrNoMoreTokens) {
			return nil, nil
		}
		return nil, err
	}
	if next.Kind != token.Introducer {
		return nil, nil
	}
	p.tz.Take()

	sig, err := p.parseSignature(token.Terminator)
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

func (p *parser) parseSignature(terminator token.Kind) (typesys.Signature, error) {
	var sig typesys.Signature

	for {
		next, err := p.tz.Peek()
		if err != nil {
			return sig, err
		}
		if next.Kind == token.Transformer {
			p.tz.Take()
			break
		}

		t, err := p.parseType()
		if err != nil {
			return sig, err
		}
		sig.Inputs = append(sig.Inputs, t)

		sep, err := p.tz.Take()
		if err != nil {
			return sig, err
		}
		switch {
		case sep.Kind == token.Delimiter:
			continue
		case sep.Kind == token.Transformer:
			goto outputs
		default:
			return sig, &ParseError{Got: sep, Want: "',' or '->'"}
		}
	}
outputs:
	for {
		next, err := p.tz.Peek()
		if err != nil {
			return sig, err
		}
		if next.Kind == terminator {
			p.tz.Take()
			break
		}

		t, err := p.parseType()
		if err != nil {
			return sig, err
		}
		sig.Outputs = append(sig.Outputs, t)

		sep, err := p.tz.Take()
		if err != nil {
			return sig, err
		}
		if sep.Kind == token.Delimiter {
			continue
		}
		if sep.Kind == terminator {
			break
		}
		return sig, &ParseError{Got: sep, Want: terminator.String()}
	}

	return sig, nil
}

func (p *parser) parseType() (typesys.Type, error) {
	tok, err := p.tz.Take()
	if err != nil {
		return typesys.Type{}, err
	}
	switch tok.Kind {
	case token.Identifier:
		if tok.Text != "Number" {
			return typesys.Type{}, fmt.Errorf("syntax: unknown type %q at %s", tok.Text, tok.Pos)
		}
		return typesys.Number, nil
	case token.Fn:
		sig, err := p.parseSignature(token.End)
		if err != nil {
			return typesys.Type{}, err
		}
		return typesys.Function(sig), nil
	default:
		return typesys.Type{}, &ParseError{Got: tok, Want: "type"}
	}
}

func (p *parser) expect(k token.Kind) error {
	tok, err := p.tz.Take()
	if err != nil {
		return err
	}
	if tok.Kind != k {
		return &ParseError{Got: tok, Want: k.String()}
	}
	return nil
}

func (p *parser) expectKeyword(k token.Kind) error { return p.expect(k) }
