package eval

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/absurdhero/rash-shell/builtins"
	"github.com/absurdhero/rash-shell/environment"
	"github.com/absurdhero/rash-shell/lexer"
	"github.com/absurdhero/rash-shell/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run parses and evaluates src against a fresh Context, capturing whatever
// the pipeline wrote to the process's real stdout (external commands are
// spawned with os.Stdout as their stdio, so capturing means swapping it).
func run(t *testing.T, env *environment.Environment, src string) (stdout string, ctx *Context) {
	t.Helper()
	l := lexer.NewFromString("test", src)
	prog, err := parser.New(l).Parse()
	require.NoError(t, err)

	ctx = NewContext(env, builtins.New(), false)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	origStdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		done <- buf.String()
	}()

	Eval(ctx, prog)

	w.Close()
	os.Stdout = origStdout
	stdout = <-done
	return stdout, ctx
}

func TestEchoHello(t *testing.T) {
	out, ctx := run(t, environment.New(), "echo hello\n")
	assert.Equal(t, "hello\n", out)
	assert.Equal(t, 0, ctx.LastReturn)
}

func TestFalseAndThenSemicolon(t *testing.T) {
	out, ctx := run(t, environment.New(), "false && echo x; echo y\n")
	assert.Equal(t, "y\n", out)
	assert.Equal(t, 0, ctx.LastReturn)
}

func TestTrueOrThenSemicolon(t *testing.T) {
	out, ctx := run(t, environment.New(), "true || echo x; echo y\n")
	assert.Equal(t, "y\n", out)
	assert.Equal(t, 0, ctx.LastReturn)
}

func TestPipelineFeedsDownstreamStdin(t *testing.T) {
	out, ctx := run(t, environment.New(), "echo a | tr a b\n")
	assert.Equal(t, "b\n", out)
	assert.Equal(t, 0, ctx.LastReturn)
}

func TestCommandPrefixedAssignmentDoesNotPersist(t *testing.T) {
	env := environment.New()
	out, _ := run(t, env, "FOO=bar echo $FOO\n")
	assert.Equal(t, "bar\n", out)
	_, ok := env.Get("FOO")
	assert.False(t, ok)
}

func TestTopLevelAssignmentPersistsUnexported(t *testing.T) {
	env := environment.New()
	out, _ := run(t, env, "FOO=bar\necho $FOO\n")
	assert.Equal(t, "bar\n", out)
	v, ok := env.Get("FOO")
	require.True(t, ok)
	assert.Equal(t, "bar", v)
	assert.False(t, env.IsExported("FOO"))
}

func TestParameterExpansionLastReturn(t *testing.T) {
	out, _ := run(t, environment.New(), "false; echo $?\n")
	assert.Equal(t, "1\n", out)
}

func TestParameterExpansionWithDefault(t *testing.T) {
	out, _ := run(t, environment.New(), `echo ${UNSET_VAR-fallback}`+"\n")
	assert.Equal(t, "fallback\n", out)
}

func TestNegatedPipelineInvertsStatus(t *testing.T) {
	_, ctx := run(t, environment.New(), "! true\n")
	assert.Equal(t, 1, ctx.LastReturn)

	_, ctx2 := run(t, environment.New(), "! false\n")
	assert.Equal(t, 0, ctx2.LastReturn)
}

func TestCommandNotFoundReturns127(t *testing.T) {
	_, ctx := run(t, environment.New(), "this-command-should-not-exist-anywhere\n")
	assert.Equal(t, 127, ctx.LastReturn)
}

func TestExpandArgFixedPoint(t *testing.T) {
	ctx := NewContext(environment.New(), builtins.New(), false)
	ctx.Env.Set("FOO", "bar", false)
	once := expandArg(ctx, "plain-literal-with-no-dollar")
	twice := expandArg(ctx, once)
	assert.Equal(t, once, twice)
}
