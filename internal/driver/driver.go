// Package driver implements the read-lex-parse-eval loop: it reads a
// logical line (prompting again for continuation when the lexer or parser
// report incomplete input), lexes and parses the accumulated buffer, walks
// the resulting program with package eval, and reports errors the way a
// shell does -- to stderr, with the process's recorded exit status updated
// rather than the process aborting.
package driver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/absurdhero/rash-shell/builtins"
	"github.com/absurdhero/rash-shell/environment"
	"github.com/absurdhero/rash-shell/eval"
	"github.com/absurdhero/rash-shell/lexer"
	"github.com/absurdhero/rash-shell/parser"
	"golang.org/x/term"
)

// ErrInterrupted is returned by a LineReader when the user sends an
// interrupt (Ctrl-C) instead of a line of input.
var ErrInterrupted = errors.New("interrupted")

// LineReader is the "external collaborator" this package depends on
// instead of a concrete readline implementation: something that can hand
// back one line of input at a time, prompting with the given string when
// the underlying source is interactive.
type LineReader interface {
	ReadLine(prompt string) (line string, err error)
}

const (
	primaryPrompt      = "$ "
	continuationPrompt = "> "
)

// Run drives the loop until the LineReader reports io.EOF or
// ErrInterrupted, and returns the process exit code: the exit status of
// the last executed pipeline (2 if that was a fatal parse error) when a
// non-interactive reader reaches EOF, or 1 on interrupt or on EOF from an
// interactive reader. When verbose is >= 1, every parsed CompleteCommand is dumped to
// stderr before it runs, gated the same way a verbosity level gates trace
// output in other tree-walking interpreters.
func Run(lr LineReader, env *environment.Environment, reg *builtins.Registry, interactive bool, verbose int) int {
	ctx := eval.NewContext(env, reg, interactive)

	for {
		buf, readErr := readLogicalLine(lr)
		if buf == "" && readErr != nil {
			if errors.Is(readErr, io.EOF) && !interactive {
				return ctx.LastReturn
			}
			if errors.Is(readErr, io.EOF) || errors.Is(readErr, ErrInterrupted) {
				return 1
			}
			log.Println(readErr)
			return 1
		}

		// readLogicalLine already grew buf across continuation lines until
		// it stopped parsing as incomplete, so any error reaching here is
		// a fatal syntax error, or incomplete input whose reader ended
		// before it could be completed.
		prog, err := parser.New(lexer.NewFromString("<stdin>", buf)).Parse()
		if err != nil {
			log.Println(err)
			ctx.LastReturn = 2
			continue
		}

		if verbose >= 1 {
			for _, cc := range prog.Commands {
				fmt.Fprintln(os.Stderr, cc.Dump())
			}
		}

		eval.Eval(ctx, prog)

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return ctx.LastReturn
			}
			return 1
		}
	}
}

// readLogicalLine reads one line, then keeps appending continuation lines
// (prompting with "> ") for as long as the accumulated buffer lexes or
// parses as incomplete input.
func readLogicalLine(lr LineReader) (string, error) {
	line, err := lr.ReadLine(primaryPrompt)
	if err != nil {
		return line, err
	}
	buf := line + "\n"

	for {
		_, parseErr := parser.New(lexer.NewFromString("<stdin>", buf)).Parse()
		if parseErr == nil || !errors.Is(parseErr, parser.ErrIncomplete) {
			return buf, nil
		}
		more, err := lr.ReadLine(continuationPrompt)
		if err != nil {
			return buf, err
		}
		buf += more + "\n"
	}
}

// ScannerLineReader reads lines from a non-interactive source (a pipe or
// redirected file), ignoring the prompt entirely.
type ScannerLineReader struct {
	scanner *bufio.Scanner
}

// NewScannerLineReader wraps r in a ScannerLineReader.
func NewScannerLineReader(r io.Reader) *ScannerLineReader {
	return &ScannerLineReader{scanner: bufio.NewScanner(r)}
}

func (s *ScannerLineReader) ReadLine(prompt string) (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

// TermLineReader reads lines from an interactive terminal in raw mode via
// golang.org/x/term, printing the prompt itself and mapping Ctrl-C to
// ErrInterrupted.
type TermLineReader struct {
	fd    int
	state *term.State
	in    *bufio.Reader
	out   io.Writer
}

// NewTermLineReader puts fd into raw mode and returns a reader over it. The
// caller must call Close when done to restore the terminal.
func NewTermLineReader(fd int, in io.Reader, out io.Writer) (*TermLineReader, error) {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return &TermLineReader{fd: fd, state: state, in: bufio.NewReader(in), out: out}, nil
}

// Close restores the terminal to its original mode.
func (t *TermLineReader) Close() error {
	return term.Restore(t.fd, t.state)
}

func (t *TermLineReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)
	var line []byte
	for {
		b, err := t.in.ReadByte()
		if err != nil {
			if len(line) > 0 {
				return string(line), nil
			}
			return "", err
		}
		switch b {
		case '\r', '\n':
			fmt.Fprint(t.out, "\r\n")
			return string(line), nil
		case 3: // Ctrl-C
			fmt.Fprint(t.out, "\r\n")
			return "", ErrInterrupted
		case 127, 8: // backspace / delete
			if len(line) > 0 {
				line = line[:len(line)-1]
				fmt.Fprint(t.out, "\b \b")
			}
		default:
			line = append(line, b)
			fmt.Fprintf(t.out, "%c", b)
		}
	}
}
