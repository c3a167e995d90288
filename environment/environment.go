// Package environment implements the shell's name -> value map, including
// the export and readonly flags that assignments and the export/readonly
// builtins operate on. Every entry knows whether it is exported and whether
// it is readonly; values are parsed from "KEY=VALUE" strings split on the
// first '=' at index >= 1.
package environment

import (
	"os"
	"sort"
	"strings"
)

// entry is one variable's value and flags.
type entry struct {
	value    string
	hasValue bool
	export   bool
	readonly bool
}

// Environment is a name -> value mapping with export/readonly flags.
type Environment struct {
	vars map[string]*entry
}

// New returns an empty Environment.
func New() *Environment {
	return &Environment{vars: make(map[string]*entry)}
}

// FromSystem populates an Environment from the host process environment.
// Every imported name is marked exported, since inherited variables are
// exported to further children by default.
func FromSystem() *Environment {
	e := New()
	for _, kv := range os.Environ() {
		if k, v, ok := Parse(kv); ok {
			e.vars[k] = &entry{value: v, hasValue: true, export: true}
		}
	}
	return e
}

// Parse splits "KEY=VALUE" on the first '=' at index >= 1. It returns
// ok == false if there is no such '=' or the input is shorter than 2 bytes.
func Parse(s string) (key, value string, ok bool) {
	if len(s) < 2 {
		return "", "", false
	}
	i := strings.IndexByte(s[1:], '=')
	if i < 0 {
		return "", "", false
	}
	i++
	return s[:i], s[i+1:], true
}

func (e *Environment) entryFor(key string) *entry {
	if en, found := e.vars[key]; found {
		return en
	}
	en := &entry{}
	e.vars[key] = en
	return en
}

// Set assigns value to key, creating the entry if it does not exist. A
// readonly entry silently ignores the change; readonly violations are
// non-fatal.
func (e *Environment) Set(key, value string, export bool) {
	en := e.entryFor(key)
	if en.readonly {
		return
	}
	en.value = value
	en.hasValue = true
	if export {
		en.export = true
	}
}

// SetRaw parses "KEY=VALUE" and applies it with Set. It reports whether the
// input parsed as an assignment at all (not whether the assignment took
// effect -- a readonly target still reports ok == true).
func (e *Environment) SetRaw(kv string) bool {
	key, value, ok := Parse(kv)
	if !ok {
		return false
	}
	e.Set(key, value, false)
	return true
}

// Unset removes key from the environment. A readonly entry is left in
// place.
func (e *Environment) Unset(key string) {
	if en, found := e.vars[key]; found && en.readonly {
		return
	}
	delete(e.vars, key)
}

// Export marks key as exported, creating an unset-valued entry if needed
// (so that `export FOO` before `FOO=bar` still marks the later value
// exported, matching POSIX and the builtin's own semantics in builtins.go).
func (e *Environment) Export(key string) {
	e.entryFor(key).export = true
}

// Readonly marks key as readonly.
func (e *Environment) Readonly(key string) {
	e.entryFor(key).readonly = true
}

// IsExported reports whether key is currently exported.
func (e *Environment) IsExported(key string) bool {
	en, ok := e.vars[key]
	return ok && en.export
}

// IsReadonly reports whether key is currently readonly.
func (e *Environment) IsReadonly(key string) bool {
	en, ok := e.vars[key]
	return ok && en.readonly
}

// Get returns the value of key and whether it is set at all (an exported or
// readonly name with no value set returns ok == true, value == "").
func (e *Environment) Get(key string) (value string, ok bool) {
	en, found := e.vars[key]
	if !found {
		return "", false
	}
	return en.value, true
}

// Lookup returns the value of key, or "" if it is unset. Convenience
// wrapper around Get for parameter expansion.
func (e *Environment) Lookup(key string) string {
	v, _ := e.Get(key)
	return v
}

// Names returns every variable name currently in the environment, sorted,
// so iteration order (and therefore `export`/`readonly` with no arguments)
// is deterministic.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.vars))
	for k := range e.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ExportedNames returns every currently exported variable name, sorted,
// regardless of whether it has a defined value.
func (e *Environment) ExportedNames() []string {
	var out []string
	for _, k := range e.Names() {
		if e.vars[k].export {
			out = append(out, k)
		}
	}
	return out
}

// ReadonlyNames returns every currently readonly variable name, sorted,
// regardless of whether it has a defined value.
func (e *Environment) ReadonlyNames() []string {
	var out []string
	for _, k := range e.Names() {
		if e.vars[k].readonly {
			out = append(out, k)
		}
	}
	return out
}

// HasValue reports whether key has ever been assigned a value, as opposed
// to merely being marked exported or readonly with no value.
func (e *Environment) HasValue(key string) bool {
	en, ok := e.vars[key]
	return ok && en.hasValue
}

// Exports returns "KEY=VALUE" for every exported name with a defined value,
// sorted by name.
func (e *Environment) Exports() []string {
	var out []string
	for _, k := range e.Names() {
		en := e.vars[k]
		if en.export && en.hasValue {
			out = append(out, k+"="+en.value)
		}
	}
	return out
}

// Clone returns a deep copy of the environment, used to build a child
// process's environment without mutating the parent shell's.
func (e *Environment) Clone() *Environment {
	c := New()
	for k, v := range e.vars {
		cp := *v
		c.vars[k] = &cp
	}
	return c
}
