package exec

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bitfield/script"
	"github.com/pkg/errors"

	"github.com/vcnkl/settle/models"
)

type ShellOptions struct {
	WorkDir string
	Env     []string
	Shell   string
	Stdout  io.Writer
	Stderr  io.Writer
	Timeout time.Duration
}

type ExitError struct {
	Status int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.Status)
}

// RunCommand runs cmdStr through the configured shell. When ctx ends first
// RunCommand returns ctx.Err() without waiting for the pipe.
func RunCommand(ctx context.Context, cmdStr string, opts *ShellOptions) error {
	if opts.Shell == "" {
		opts.Shell = "/usr/bin/env bash"
	}

	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		pipe := script.NewPipe().WithEnv(opts.Env)
		pipe = pipe.Exec(ShellLine(opts.Shell, opts.WorkDir, cmdStr))
		pipe = pipe.WithStdout(opts.Stdout).WithStderr(opts.Stderr)
		_, err := pipe.Stdout()
		if status := pipe.ExitStatus(); status != 0 {
			err = &ExitError{Status: status}
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return errors.WithStack(err)
	}
}

// ShellLine builds a single command line for shell that runs cmdStr inside
// workDir.
func ShellLine(shell, workDir, cmdStr string) string {
	wrappedCmd := cmdStr
	if workDir != "" {
		wrappedCmd = fmt.Sprintf("cd %q && (\n%s\n)", workDir, cmdStr)
	}
	return strings.Join(strings.Fields(shell), " ") + " -c " + shellQuote(wrappedCmd)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\"'\"'") + "'"
}

func ResolveWorkDir(root string, task *models.Task) string {
	workDir := task.WorkingDir
	switch {
	case workDir == "", workDir == ".":
		return root
	case filepath.IsAbs(workDir):
		return workDir
	}
	return filepath.Join(root, workDir)
}
