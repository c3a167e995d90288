// Package builtins implements the shell's fixed set of in-process
// commands: cd, export, readonly, and unset. Each runs synchronously
// against the shell's own Environment and writes its diagnostics and data
// straight to the stdio it's handed, rather than being forked.
package builtins

import (
	"fmt"
	"os"

	"github.com/absurdhero/rash-shell/environment"
	"github.com/absurdhero/rash-shell/exec"
)

// Handler is a built-in's signature. argv[0] is the command's own name.
// The return value becomes the recorded exit status.
type Handler func(argv []string, env *environment.Environment, stdio exec.StdIO) int

// Registry is the fixed name -> Handler table, built once by New.
type Registry struct {
	handlers map[string]Handler
}

// New returns a Registry populated with every built-in this package
// implements.
func New() *Registry {
	r := &Registry{handlers: make(map[string]Handler, 4)}
	r.handlers["cd"] = cd
	r.handlers["export"] = export
	r.handlers["readonly"] = readonly
	r.handlers["unset"] = unset
	return r
}

// Lookup returns the handler registered for name, if any.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

func cd(argv []string, env *environment.Environment, stdio exec.StdIO) int {
	if len(argv) > 2 {
		fmt.Fprintln(stdio.Stderr, "rash: cd: too many arguments")
		return 1
	}

	var target string
	switch {
	case len(argv) == 1:
		target = env.Lookup("HOME")
		if target == "" {
			target = "/"
		}
	case argv[1] == "-":
		oldpwd, ok := env.Get("OLDPWD")
		if !ok {
			fmt.Fprintln(stdio.Stderr, "rash: cd: OLDPWD not set")
			return 1
		}
		target = oldpwd
		fmt.Fprintln(stdio.Stdout, target)
	default:
		target = argv[1]
	}

	prevWD, wdErr := os.Getwd()
	if err := os.Chdir(target); err != nil {
		fmt.Fprintf(stdio.Stderr, "rash: cd: %s: %s\n", target, exec.ErrnoText(err))
		return 1
	}
	if wdErr == nil {
		env.Set("OLDPWD", prevWD, false)
	}
	return 0
}

func export(argv []string, env *environment.Environment, stdio exec.StdIO) int {
	if len(argv) == 1 || argv[1] == "-p" {
		printAssigned(stdio, "export", env, env.ExportedNames())
		return 0
	}
	for _, arg := range argv[1:] {
		if key, val, ok := environment.Parse(arg); ok {
			env.Set(key, val, true)
		} else {
			env.Export(arg)
		}
	}
	return 0
}

func readonly(argv []string, env *environment.Environment, stdio exec.StdIO) int {
	if len(argv) == 1 || argv[1] == "-p" {
		printAssigned(stdio, "readonly", env, env.ReadonlyNames())
		return 0
	}
	for _, arg := range argv[1:] {
		if key, val, ok := environment.Parse(arg); ok {
			env.Set(key, val, false)
			env.Readonly(key)
		} else {
			env.Readonly(arg)
		}
	}
	return 0
}

func unset(argv []string, env *environment.Environment, stdio exec.StdIO) int {
	for _, name := range argv[1:] {
		env.Unset(name)
	}
	return 0
}

func printAssigned(stdio exec.StdIO, keyword string, env *environment.Environment, names []string) {
	for _, name := range names {
		if env.HasValue(name) {
			fmt.Fprintf(stdio.Stdout, "%s %s=%s\n", keyword, name, env.Lookup(name))
		} else {
			fmt.Fprintf(stdio.Stdout, "%s %s\n", keyword, name)
		}
	}
}
