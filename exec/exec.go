// Package exec resolves command names against PATH and spawns external
// commands, wiring each one to an explicit set of stdio file handles.
//
// Every pipe used to connect pipeline stages is created by the caller with
// os.Pipe and handed to this package through StdIO; Spawn never lets
// os/exec create pipes of its own (Cmd.StdoutPipe/StdinPipe), so the
// caller always knows exactly which file descriptors are open and who owns
// closing them.
package exec

import (
	"errors"
	"os"
	goexec "os/exec"
	"path/filepath"
	"strings"
	"syscall"
)

// Cmd re-exports os/exec.Cmd so callers of Spawn don't need their own
// import of "os/exec" alongside this package.
type Cmd = goexec.Cmd

// StdIO is the three file handles a spawned command or builtin runs with.
type StdIO struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// Close closes Stdin and Stdout if they are not the process's own standard
// streams, per the ownership rule: whoever is handed a StdIO on a pipeline
// stage is responsible for closing its non-standard ends once it no longer
// needs them.
func (s StdIO) Close() {
	if s.Stdin != nil && s.Stdin != os.Stdin {
		s.Stdin.Close()
	}
	if s.Stdout != nil && s.Stdout != os.Stdout {
		s.Stdout.Close()
	}
}

// LookPath resolves name to an executable path. A name containing a slash
// is tried directly. Otherwise each directory in pathEnv (falling back to
// /bin:/usr/bin when pathEnv is empty) is tried in order; the first
// executable regular file found wins. If every candidate failed, the error
// from the first attempt is returned; if pathEnv split to zero directories
// there is nothing to attempt and ENOENT is returned directly.
func LookPath(name, pathEnv string) (string, error) {
	if strings.ContainsRune(name, '/') {
		if err := checkExecutable(name); err != nil {
			return "", err
		}
		return name, nil
	}

	if pathEnv == "" {
		pathEnv = "/bin:/usr/bin"
	}
	dirs := filepath.SplitList(pathEnv)
	if len(dirs) == 0 {
		return "", syscall.ENOENT
	}

	var firstErr error
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if err := checkExecutable(candidate); err == nil {
			return candidate, nil
		} else if firstErr == nil {
			firstErr = err
		}
	}
	return "", firstErr
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return syscall.EISDIR
	}
	if info.Mode()&0111 == 0 {
		return syscall.EACCES
	}
	return nil
}

// ErrnoText returns the OS error-number description for err (e.g. "no such
// file or directory"), falling back to err.Error() when err does not wrap a
// syscall.Errno.
func ErrnoText(err error) string {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno.Error()
	}
	return err.Error()
}

// Spawn starts path as a child process with argv as its argument vector
// (argv[0] is the program name as the child sees it), env as its complete
// environment, and stdio wired to its standard streams. The returned Cmd is
// already started; the caller waits on it with Cmd.Wait and reads the exit
// status from Cmd.ProcessState.
func Spawn(path string, argv []string, env []string, stdio StdIO) (*Cmd, error) {
	cmd := &goexec.Cmd{
		Path:   path,
		Args:   argv,
		Env:    env,
		Stdin:  stdio.Stdin,
		Stdout: stdio.Stdout,
		Stderr: stdio.Stderr,
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}
