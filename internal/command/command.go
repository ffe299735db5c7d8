// Package command runs external tools and reports their exit status.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Result holds the output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner runs a program to completion in dir.
//
// A program that ran and exited nonzero yields its Result together with an
// *ExitError. Any other error means the program could not be run at all and
// the Result is nil.
type Runner interface {
	Run(ctx context.Context, dir, program string, args ...string) (*Result, error)
}

// ExitError reports a command that exited nonzero.
type ExitError struct {
	Program  string
	Args     []string
	ExitCode int
	Stderr   string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s %s exited with status %d", e.Program, strings.Join(e.Args, " "), e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// IsExitError returns true if err is or wraps an *ExitError.
func IsExitError(err error) bool {
	var ee *ExitError
	return errors.As(err, &ee)
}

// ExecRunner runs commands as subprocesses.
type ExecRunner struct {
	// Env, when non-empty, replaces the inherited environment.
	Env []string
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, dir, program string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = dir
	if len(r.Env) > 0 {
		cmd.Env = r.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("running command", "program", program, "args", args, "dir", dir)
	err := cmd.Run()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return &Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
	case errors.As(err, &exitErr) && exitErr.Exited():
		res := &Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitErr.ExitCode()}
		return res, &ExitError{Program: program, Args: args, ExitCode: res.ExitCode, Stderr: res.Stderr}
	default:
		return nil, fmt.Errorf("run %s: %w", program, err)
	}
}
