// Package parser builds an ast.Program from the token stream produced by
// package lexer, via a hand-written recursive-descent parser over the
// POSIX-subset grammar:
//
//	program           -> complete_commands
//	complete_commands -> complete_command (newline_list complete_command)*
//	complete_command  -> and_or ((';' | '&') and_or)* (';' | '&')?
//	and_or            -> pipeline (('&&' | '||') pipeline)*
//	pipeline          -> '!'? simple_command ('|' simple_command)*
//	simple_command    -> AssignmentWord* Word Word*
//
// Assignment-word classification is the parser's job, not the lexer's: a
// Word is reclassified as an assignment only while it appears before any
// non-assignment word in its simple command, it contains '=', and the
// prefix before '=' is a non-empty Name ([A-Za-z_][A-Za-z0-9_]*).
package parser

import (
	"errors"
	"fmt"

	"github.com/absurdhero/rash-shell/ast"
	"github.com/absurdhero/rash-shell/lexer"
	"github.com/absurdhero/rash-shell/token"
)

// ErrIncomplete is wrapped into any error that means "ran out of input
// mid-grammar-rule" -- an unterminated quote from the lexer, or a grammar
// rule that still expects more tokens when EOF arrives. The driver checks
// errors.Is(err, ErrIncomplete) to decide whether to prompt for a
// continuation line instead of reporting a fatal parse error.
var ErrIncomplete = errors.New("incomplete input")

// Parser consumes tokens from a single lexer.Lexer one at a time, keeping
// exactly the current token buffered (no arbitrary lookahead is needed by
// this grammar).
type Parser struct {
	lex *lexer.Lexer
	cur token.Token
}

// New returns a Parser reading tokens from lex.
func New(lex *lexer.Lexer) *Parser {
	return &Parser{lex: lex}
}

// Parse consumes the lexer to completion and returns the resulting
// ast.Program. On error, errors.Is(err, ErrIncomplete) distinguishes
// "needs more input" from a fatal syntax error.
func (p *Parser) Parse() (*ast.Program, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	prog := &ast.Program{}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	for p.cur.Kind != token.EOF {
		cc, err := p.completeCommand()
		if err != nil {
			return nil, err
		}
		prog.Commands = append(prog.Commands, *cc)
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		if lexer.IsIncomplete(err) {
			return fmt.Errorf("%w: %v", ErrIncomplete, err)
		}
		return err
	}
	p.cur = tok
	return nil
}

func (p *Parser) skipNewlines() error {
	for p.cur.Kind == token.Newline {
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

// unexpected reports that the current token cannot continue the
// production named by context. EOF is always classified as incomplete
// input; any other token is a fatal syntax error.
func (p *Parser) unexpected(context string) error {
	if p.cur.Kind == token.EOF {
		return fmt.Errorf("%w: unexpected end of input while parsing %s", ErrIncomplete, context)
	}
	return fmt.Errorf("%s: unexpected token %q while parsing %s", p.cur.Pos, p.cur.Lexeme, context)
}

func (p *Parser) completeCommand() (*ast.CompleteCommand, error) {
	cc := &ast.CompleteCommand{}
	ao, err := p.andOr()
	if err != nil {
		return nil, err
	}
	cc.Push(ast.Semi, *ao)

	for {
		var term ast.TermOp
		switch {
		case p.cur.IsOperator(";"):
			term = ast.Semi
		case p.cur.IsOperator("&"):
			term = ast.Amp
		default:
			return cc, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.atCompleteCommandEnd() {
			cc.SetLastTerm(term)
			return cc, nil
		}
		ao, err := p.andOr()
		if err != nil {
			return nil, err
		}
		cc.Push(term, *ao)
	}
}

func (p *Parser) atCompleteCommandEnd() bool {
	return p.cur.Kind == token.EOF || p.cur.Kind == token.Newline
}

func (p *Parser) andOr() (*ast.AndOr, error) {
	ao := &ast.AndOr{}
	pl, err := p.pipeline()
	if err != nil {
		return nil, err
	}
	ao.Push(ast.And, *pl)

	for {
		var op ast.AndOrOp
		switch {
		case p.cur.IsOperator("&&"):
			op = ast.And
		case p.cur.IsOperator("||"):
			op = ast.Or
		default:
			return ao, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		pl, err := p.pipeline()
		if err != nil {
			return nil, err
		}
		ao.Push(op, *pl)
	}
}

func (p *Parser) pipeline() (*ast.Pipeline, error) {
	pl := &ast.Pipeline{}
	if p.cur.Kind == token.Word && p.cur.Lexeme == "!" {
		pl.Negated = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	cmd, err := p.simpleCommand()
	if err != nil {
		return nil, err
	}
	pl.Commands = append(pl.Commands, cmd)

	for p.cur.IsOperator("|") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		cmd, err := p.simpleCommand()
		if err != nil {
			return nil, err
		}
		pl.Commands = append(pl.Commands, cmd)
	}
	return pl, nil
}

func (p *Parser) simpleCommand() (ast.Command, error) {
	sc := ast.SimpleCommand{}

	for p.cur.Kind == token.Word && isAssignmentWord(p.cur.Lexeme) {
		sc.Assign = append(sc.Assign, ast.RawAssignment{Lexeme: p.cur.Lexeme, Pos: p.cur.Pos})
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if p.cur.Kind != token.Word {
		if len(sc.Assign) == 0 {
			return nil, p.unexpected("a command name")
		}
		return sc, nil // assignment-only command: no command name, no args
	}

	sc.Cmd = ast.Arg{Literal: p.cur.Lexeme, Backquote: isBackquoted(p.cur.Lexeme), Pos: p.cur.Pos}
	if err := p.advance(); err != nil {
		return nil, err
	}

	for p.cur.Kind == token.Word {
		sc.Args = append(sc.Args, ast.Arg{Literal: p.cur.Lexeme, Backquote: isBackquoted(p.cur.Lexeme), Pos: p.cur.Pos})
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

func isBackquoted(lexeme string) bool {
	return len(lexeme) >= 2 && lexeme[0] == '`' && lexeme[len(lexeme)-1] == '`'
}

// isAssignmentWord reports whether lexeme has the shape Name=Value: a
// non-empty prefix before the first '=' matching [A-Za-z_][A-Za-z0-9_]*.
func isAssignmentWord(lexeme string) bool {
	eq := -1
	for i := 0; i < len(lexeme); i++ {
		if lexeme[i] == '=' {
			eq = i
			break
		}
	}
	if eq <= 0 {
		return false
	}
	return isName(lexeme[:eq])
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isNameByte(s[i], i == 0) {
			return false
		}
	}
	return true
}

func isNameByte(b byte, first bool) bool {
	switch {
	case b == '_', b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z':
		return true
	case b >= '0' && b <= '9':
		return !first
	default:
		return false
	}
}
