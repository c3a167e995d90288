package ast

import "github.com/alecthomas/repr"

// Dump renders p as a structural, Go-syntax-like tree for tracing.
func (p Program) Dump() string {
	return repr.String(p, repr.Indent("  "))
}

// Dump renders c the same way Program.Dump does, for tracing a single
// top-level line group in isolation.
func (c CompleteCommand) Dump() string {
	return repr.String(c, repr.Indent("  "))
}
