package builtins

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/absurdhero/rash-shell/environment"
	"github.com/absurdhero/rash-shell/exec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStdout runs fn with a StdIO whose Stdout is a pipe, and returns
// everything written to it.
func captureStdout(t *testing.T, fn func(exec.StdIO)) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	var out bytes.Buffer
	done := make(chan struct{})
	go func() {
		out.ReadFrom(r)
		close(done)
	}()

	fn(exec.StdIO{Stdin: os.Stdin, Stdout: w, Stderr: os.Stderr})
	w.Close()
	<-done
	return out.String()
}

func TestRegistryLookup(t *testing.T) {
	r := New()
	for _, name := range []string{"cd", "export", "readonly", "unset"} {
		_, ok := r.Lookup(name)
		assert.True(t, ok, name)
	}
	_, ok := r.Lookup("nope")
	assert.False(t, ok)
}

func TestCdNoArgsGoesHome(t *testing.T) {
	home := t.TempDir()
	env := environment.New()
	env.Set("HOME", home, true)
	stdio := exec.StdIO{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}

	prevWD, _ := os.Getwd()
	defer os.Chdir(prevWD)

	status := cd([]string{"cd"}, env, stdio)
	require.Equal(t, 0, status)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	resolvedHome, _ := filepath.EvalSymlinks(home)
	resolvedCwd, _ := filepath.EvalSymlinks(cwd)
	assert.Equal(t, resolvedHome, resolvedCwd)
	assert.Equal(t, prevWD, env.Lookup("OLDPWD"))
}

func TestCdNonexistentDirectory(t *testing.T) {
	env := environment.New()
	stdio := exec.StdIO{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	status := cd([]string{"cd", "/nonexistent-rash-test-path"}, env, stdio)
	assert.Equal(t, 1, status)
}

func TestCdTooManyArguments(t *testing.T) {
	env := environment.New()
	stdio := exec.StdIO{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	status := cd([]string{"cd", "a", "b"}, env, stdio)
	assert.Equal(t, 1, status)
}

func TestExportDefinesAndMarks(t *testing.T) {
	env := environment.New()
	stdio := exec.StdIO{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	status := export([]string{"export", "FOO=bar"}, env, stdio)
	require.Equal(t, 0, status)
	assert.True(t, env.IsExported("FOO"))
	assert.Equal(t, "bar", env.Lookup("FOO"))
}

func TestExportMarksExistingName(t *testing.T) {
	env := environment.New()
	env.Set("FOO", "bar", false)
	stdio := exec.StdIO{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	export([]string{"export", "FOO"}, env, stdio)
	assert.True(t, env.IsExported("FOO"))
}

func TestExportDashPListsExportedNames(t *testing.T) {
	env := environment.New()
	env.Set("FOO", "bar", true)
	env.Export("BARE")
	out := captureStdout(t, func(stdio exec.StdIO) {
		export([]string{"export", "-p"}, env, stdio)
	})
	assert.Contains(t, out, "export FOO=bar\n")
	assert.Contains(t, out, "export BARE\n")
}

func TestReadonlyBlocksFurtherAssignment(t *testing.T) {
	env := environment.New()
	stdio := exec.StdIO{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	readonly([]string{"readonly", "FOO=bar"}, env, stdio)
	assert.True(t, env.IsReadonly("FOO"))
	env.Set("FOO", "baz", false)
	assert.Equal(t, "bar", env.Lookup("FOO"))
}

func TestUnsetIgnoresReadonly(t *testing.T) {
	env := environment.New()
	env.Set("FOO", "bar", false)
	env.Readonly("FOO")
	stdio := exec.StdIO{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	unset([]string{"unset", "FOO"}, env, stdio)
	v, ok := env.Get("FOO")
	assert.True(t, ok)
	assert.Equal(t, "bar", v)
}

func TestUnsetRemovesWritable(t *testing.T) {
	env := environment.New()
	env.Set("FOO", "bar", false)
	stdio := exec.StdIO{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	unset([]string{"unset", "FOO"}, env, stdio)
	_, ok := env.Get("FOO")
	assert.False(t, ok)
}
