// Command rash is the shell's entry point: it wires the process's real
// environment and the builtin registry into the read-eval loop, choosing
// an interactive raw-mode reader or a plain scanner depending on whether
// stdin is a terminal.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/absurdhero/rash-shell/builtins"
	"github.com/absurdhero/rash-shell/environment"
	"github.com/absurdhero/rash-shell/internal/driver"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func init() {
	log.SetPrefix("rash: ")
	log.SetFlags(0)
}

var verbose int

var rootCmd = &cobra.Command{
	Use:           "rash",
	Short:         "A small POSIX-subset shell",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		os.Exit(runShell())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "dump each parsed command tree to stderr before running it")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runShell() int {
	env := environment.FromSystem()
	reg := builtins.New()

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return driver.Run(driver.NewScannerLineReader(os.Stdin), env, reg, false, verbose)
	}

	lr, err := driver.NewTermLineReader(fd, os.Stdin, os.Stdout)
	if err != nil {
		return driver.Run(driver.NewScannerLineReader(os.Stdin), env, reg, false, verbose)
	}
	defer lr.Close()
	return driver.Run(lr, env, reg, true, verbose)
}
