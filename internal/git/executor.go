// Package git wraps the git command line for the session protocol.
//
// Every operation runs synchronously against one repository directory and
// returns a typed *errors.GitError carrying the operation name and git's own
// output when the command exits non-zero. The CommandExecutor seam lets tests
// script git's responses without a real repository.
package git

import (
	"bytes"
	"os"
	"os/exec"
)

// CommandExecutor abstracts command execution for testability.
// This allows tests to mock git commands without executing them.
type CommandExecutor interface {
	// Run executes a command. On success it returns standard output; on
	// failure it returns standard error (or standard output when standard
	// error is empty) alongside the error.
	Run(dir string, name string, args ...string) ([]byte, error)

	// RunQuiet executes a command and returns only the error.
	// A non-zero exit surfaces as an error implementing ExitCode() int.
	RunQuiet(dir string, name string, args ...string) error
}

// CLICommandExecutor executes commands using os/exec.
type CLICommandExecutor struct{}

// NewCLICommandExecutor creates a new CLI command executor.
func NewCLICommandExecutor() *CLICommandExecutor {
	return &CLICommandExecutor{}
}

// Run executes a command, keeping stdout and stderr apart so porcelain
// output is never mixed with warnings.
func (e *CLICommandExecutor) Run(dir string, name string, args ...string) ([]byte, error) {
	cmd := command(dir, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return stderr.Bytes(), err
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

// RunQuiet executes a command and returns only the error.
func (e *CLICommandExecutor) RunQuiet(dir string, name string, args ...string) error {
	return command(dir, name, args...).Run()
}

// command builds an exec.Cmd that never blocks on a credential prompt.
func command(dir string, name string, args ...string) *exec.Cmd {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	return cmd
}
