// Package eval walks a parsed ast.Program, expanding arguments and driving
// pipeline execution: fork/pipe/exec orchestration, and-or short-circuit
// control flow, and exit-status bookkeeping.
package eval

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/absurdhero/rash-shell/ast"
	"github.com/absurdhero/rash-shell/builtins"
	"github.com/absurdhero/rash-shell/environment"
	"github.com/absurdhero/rash-shell/exec"
)

// Context is the shell's ambient evaluation state, threaded through every
// evaluation function rather than kept as a package-level global.
type Context struct {
	Interactive bool
	LastReturn  int
	Builtins    *builtins.Registry
	Env         *environment.Environment
}

// NewContext builds a Context ready for Eval.
func NewContext(env *environment.Environment, reg *builtins.Registry, interactive bool) *Context {
	return &Context{Env: env, Builtins: reg, Interactive: interactive}
}

// Eval walks every CompleteCommand in prog in order, updating
// ctx.LastReturn exactly once per pipeline.
func Eval(ctx *Context, prog *ast.Program) {
	for _, cc := range prog.Commands {
		completeCommand(ctx, cc)
	}
}

func completeCommand(ctx *Context, cc ast.CompleteCommand) {
	for _, entry := range cc.AndOrs {
		andOrList(ctx, entry.AndOr, entry.Term == ast.Amp)
	}
}

// andOrList executes the pipelines of ao left to right, stopping early on
// the first unmet && / || condition. entry.Op is the operator *preceding*
// entry.Pipeline, so it gates whether that pipeline runs at all based on
// the previous pipeline's status; the first entry's Op is never consulted
// since there is no previous status to gate on.
func andOrList(ctx *Context, ao ast.AndOr, async bool) {
	prev := 0
	for i, entry := range ao.Pipelines {
		if i > 0 {
			switch entry.Op {
			case ast.And:
				if prev != 0 {
					return
				}
			case ast.Or:
				if prev == 0 {
					return
				}
			}
		}
		prev = execPipeline(ctx, entry.Pipeline, async)
		ctx.LastReturn = prev
	}
}

func execPipeline(ctx *Context, pl ast.Pipeline, async bool) int {
	n := len(pl.Commands)
	if n == 0 {
		return 0
	}

	stdios, _, err := buildStdio(n)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rash: pipe failed")
		return 1
	}

	statuses := make([]int, n)
	cmds := make([]*exec.Cmd, n)
	spawned := make([]bool, n)

	for i, command := range pl.Commands {
		sc, ok := command.(ast.SimpleCommand)
		if !ok {
			fmt.Fprintln(os.Stderr, "rash: compound commands are not supported")
			stdios[i].Close()
			statuses[i] = 2
			continue
		}
		statuses[i], cmds[i], spawned[i] = runStage(ctx, sc, stdios[i])
	}

	if async {
		return 0
	}

	for i := n - 1; i >= 0; i-- {
		if !spawned[i] {
			continue
		}
		cmds[i].Wait()
		if cmds[i].ProcessState != nil {
			statuses[i] = cmds[i].ProcessState.ExitCode()
		}
	}

	return applyNegation(pl.Negated, statuses[n-1])
}

func applyNegation(negated bool, status int) int {
	if !negated {
		return status
	}
	if status != 0 {
		return 0
	}
	return 1
}

// runStage runs one pipeline stage: an assignment-only command, a builtin,
// or an external program. It returns the stage's status (meaningful
// immediately for the first two; meaningless until Wait for the third),
// the started command if one was spawned, and whether a process was
// spawned at all.
func runStage(ctx *Context, sc ast.SimpleCommand, stdio exec.StdIO) (status int, cmd *exec.Cmd, spawned bool) {
	assignKeys := make([]string, 0, len(sc.Assign))
	assignVals := make(map[string]string, len(sc.Assign))
	for _, a := range sc.Assign {
		if k, v, ok := environment.Parse(expandArg(ctx, a.Lexeme)); ok {
			assignKeys = append(assignKeys, k)
			assignVals[k] = v
		}
	}

	name := expandArg(ctx, sc.Cmd.Literal)
	if name == "" {
		for _, k := range assignKeys {
			ctx.Env.Set(k, assignVals[k], false)
		}
		stdio.Close()
		return 0, nil, false
	}

	childEnv := ctx.Env.Clone()
	for _, k := range assignKeys {
		childEnv.Set(k, assignVals[k], true)
	}
	argCtx := *ctx
	argCtx.Env = childEnv

	args := make([]string, 0, len(sc.Args)+1)
	args = append(args, name)
	for _, a := range sc.Args {
		args = append(args, expandArg(&argCtx, a.Literal))
	}

	if handler, ok := ctx.Builtins.Lookup(name); ok {
		status = handler(args, ctx.Env, stdio)
		stdio.Close()
		return status, nil, false
	}

	path, err := exec.LookPath(name, ctx.Env.Lookup("PATH"))
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "rash: %s: %s\n", name, exec.ErrnoText(err))
		stdio.Close()
		return 127, nil, false
	}

	cmd, err = exec.Spawn(path, args, childEnv.Exports(), stdio)
	stdio.Close()
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "rash: %s: %s\n", name, err)
		return 127, nil, false
	}
	return 0, cmd, true
}

// buildStdio wires one pipe between each adjacent pair of the n stages in a
// pipeline, leaving the first stage's stdin and the last stage's stdout as
// the process's own standard streams.
func buildStdio(n int) ([]exec.StdIO, []*os.File, error) {
	stdios := make([]exec.StdIO, n)
	var created []*os.File
	prevRead := os.Stdin

	for i := 0; i < n; i++ {
		if i == n-1 {
			stdios[i] = exec.StdIO{Stdin: prevRead, Stdout: os.Stdout, Stderr: os.Stderr}
			break
		}
		r, w, err := os.Pipe()
		if err != nil {
			for _, f := range created {
				f.Close()
			}
			return nil, nil, err
		}
		created = append(created, r, w)
		stdios[i] = exec.StdIO{Stdin: prevRead, Stdout: w, Stderr: os.Stderr}
		prevRead = r
	}
	return stdios, created, nil
}

// expandArg expands a single unexpanded lexeme: backslash/quote handling
// identical in spirit to the lexer's own state machine, plus parameter
// expansion ($?, $name, ${name}, ${name-default}) outside single quotes and
// backquotes.
func expandArg(ctx *Context, lexeme string) string {
	var out strings.Builder
	i, n := 0, len(lexeme)
	var quote byte

	for i < n {
		c := lexeme[i]

		switch quote {
		case '\'':
			if c == '\'' {
				quote = 0
			} else {
				out.WriteByte(c)
			}
			i++
			continue
		case '`':
			if c == '`' {
				quote = 0
			} else {
				out.WriteByte(c)
			}
			i++
			continue
		}

		switch {
		case c == '\\' && quote == 0:
			if i+1 < n && lexeme[i+1] == '\n' {
				i += 2
				continue
			}
			if i+1 < n {
				out.WriteByte(lexeme[i+1])
				i += 2
				continue
			}
			i++
		case c == '\\' && quote == '"' && i+1 < n && isDoubleQuoteEscapable(lexeme[i+1]):
			if lexeme[i+1] == '\n' {
				i += 2
				continue
			}
			out.WriteByte(lexeme[i+1])
			i += 2
		case c == '\'' && quote == 0:
			quote = '\''
			i++
		case c == '`' && quote == 0:
			quote = '`'
			i++
		case c == '"' && quote == 0:
			quote = '"'
			i++
		case c == '"' && quote == '"':
			quote = 0
			i++
		case c == '$':
			val, consumed := expandParameter(ctx, lexeme[i:])
			out.WriteString(val)
			i += consumed
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

func isDoubleQuoteEscapable(c byte) bool {
	return c == '$' || c == '`' || c == '"' || c == '\\' || c == '\n'
}

// expandParameter expands the parameter reference at the start of s (which
// begins with '$') and reports how many bytes of s it consumed.
func expandParameter(ctx *Context, s string) (value string, consumed int) {
	if len(s) < 2 {
		return "$", 1
	}
	if s[1] == '?' {
		return strconv.Itoa(ctx.LastReturn), 2
	}
	if s[1] == '{' {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return "$", 1
		}
		inner := s[2:end]
		consumed = end + 1
		if dash := strings.IndexByte(inner, '-'); dash >= 0 {
			name, def := inner[:dash], inner[dash+1:]
			if v, ok := ctx.Env.Get(name); ok {
				return v, consumed
			}
			return def, consumed
		}
		return ctx.Env.Lookup(inner), consumed
	}

	j := 1
	for j < len(s) && isNameChar(s[j], j == 1) {
		j++
	}
	if j == 1 {
		return "$", 1
	}
	return ctx.Env.Lookup(s[1:j]), j
}

func isNameChar(b byte, first bool) bool {
	switch {
	case b == '_', b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z':
		return true
	case b >= '0' && b <= '9':
		return !first
	default:
		return false
	}
}
