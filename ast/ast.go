// Package ast defines the abstract syntax tree produced by package parser:
// a tagged tree of complete commands, and-or lists, pipelines, and simple
// commands.
package ast

import "github.com/absurdhero/rash-shell/token"

// Program is the root of a parsed input: an ordered list of top-level line
// groups.
type Program struct {
	Commands []CompleteCommand
}

// TermOp is the terminator that follows an AndOr within a CompleteCommand.
type TermOp int

const (
	// Semi is the default terminator: run to completion, then continue.
	Semi TermOp = iota
	// Amp marks an asynchronous (backgrounded) and-or list.
	Amp
)

func (t TermOp) String() string {
	if t == Amp {
		return "&"
	}
	return ";"
}

// AndOrEntry pairs an AndOr with the terminator that follows it.
type AndOrEntry struct {
	Term  TermOp
	AndOr AndOr
}

// CompleteCommand is one top-level logical command: a sequence of and-or
// lists each followed by a terminator.
//
// Invariant: an entry appended without an explicit separator defaults to
// TermOp Semi; Push mutates the previous entry's terminator in place when a
// separator is later observed.
type CompleteCommand struct {
	AndOrs []AndOrEntry
}

// Push appends element as a new entry (defaulting to Semi), first rewriting
// the terminator of the previous entry to op. Call with op == Semi when no
// explicit separator preceded element (the first push of a CompleteCommand
// does nothing to rewrite, since there is no previous entry yet).
func (c *CompleteCommand) Push(op TermOp, element AndOr) {
	c.updateLast(op)
	c.AndOrs = append(c.AndOrs, AndOrEntry{Term: Semi, AndOr: element})
}

// updateLast rewrites the terminator of the last entry, if any.
func (c *CompleteCommand) updateLast(op TermOp) {
	if len(c.AndOrs) == 0 {
		return
	}
	c.AndOrs[len(c.AndOrs)-1].Term = op
}

// SetLastTerm rewrites the terminator of the last entry to op. It is the
// exported counterpart of updateLast, for a trailing separator observed
// with no further AndOr following it (so there is nothing left to Push).
func (c *CompleteCommand) SetLastTerm(op TermOp) {
	c.updateLast(op)
}

// AndOrOp is the operator joining one pipeline to the next within an AndOr.
type AndOrOp int

const (
	// And is "&&": the short-circuit operator (stop the chain on nonzero).
	And AndOrOp = iota
	// Or is "||": the short-circuit operator (stop the chain on zero).
	Or
)

func (o AndOrOp) String() string {
	if o == Or {
		return "||"
	}
	return "&&"
}

// PipelineEntry pairs an AndOrOp with the pipeline it precedes. The
// operator is the operator that *precedes* this pipeline in the chain; the
// first entry's operator is And by convention and is never consulted (the
// first pipeline in a chain always runs).
type PipelineEntry struct {
	Op       AndOrOp
	Pipeline Pipeline
}

// AndOr is a sequence of pipelines joined by && / ||.
type AndOr struct {
	Pipelines []PipelineEntry
}

// Push appends element, joined to the chain by op. The very first push on
// an empty AndOr records op as And regardless of what was passed: the first
// pipeline has no preceding operator to record.
func (a *AndOr) Push(op AndOrOp, element Pipeline) {
	if len(a.Pipelines) == 0 {
		op = And
	}
	a.Pipelines = append(a.Pipelines, PipelineEntry{Op: op, Pipeline: element})
}

// Pipeline is one or more simple commands chained by pipes, optionally
// negated with a leading '!'.
type Pipeline struct {
	Commands []Command
	Negated  bool
}

// Command is the sum type of things a Pipeline stage can be: either a
// SimpleCommand or the reserved, always-unimplemented Compound variant.
// Implementations are SimpleCommand and CompoundCommand.
type Command interface {
	isCommand()
}

// SimpleCommand is a built-in or external invocation: optional leading
// assignments, a command name, and arguments.
type SimpleCommand struct {
	Assign []RawAssignment
	Cmd    Arg
	Args   []Arg
}

func (SimpleCommand) isCommand() {}

// CompoundCommand is the reserved variant for compound commands (if/while/
// case/subshells/function definitions), which this implementation does not
// support. The parser never builds one (it does not recognize compound
// command syntax at all); package eval reports any CompoundCommand it meets
// as unsupported with status 2. It exists purely so Command's sum type has
// somewhere for that branch to point.
type CompoundCommand struct {
	Pos token.Position
}

func (CompoundCommand) isCommand() {}

// RawAssignment is an unexpanded "KEY=VALUE" lexeme recognized as an
// assignment word.
type RawAssignment struct {
	Lexeme string
	Pos    token.Position
}

// Arg wraps a single unexpanded lexeme (quoting marks preserved). Backquote
// is set when Literal is a whole backtick-quoted word, flagging it for
// command substitution, which this implementation does not support: the
// parser still records the word unevaluated so no information is lost, but
// package eval's expansion treats a backquoted Literal the same as a
// single-quoted one rather than invoking a subshell.
type Arg struct {
	Literal   string
	Backquote bool
	Pos       token.Position
}
