// Package builder runs the external build command that produces the
// application artifact.
package builder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/reglet-dev/devkit/domain/entities"
	derrors "github.com/reglet-dev/devkit/domain/errors"
	"github.com/reglet-dev/devkit/domain/ports"
	"github.com/samber/oops"
)

// Diagnostic levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

var _ ports.Builder = (*Command)(nil)

// Command runs a build command and streams its output as diagnostics.
//
// Args and Artifact may reference $DEVKIT_PLATFORM, $DEVKIT_OUT_DIR and
// $DEVKIT_PROFILE; the same variables are exported to the command.
type Command struct {
	Name     string
	Dir      string
	Artifact string
	Args     []string
	Env      []string
	Timeout  time.Duration
	TailSize int
}

// Build runs the command. Every stdout and stderr line is passed to emit
// as it is produced. A non-zero exit status is returned as an error that
// quotes the tail of stderr.
func (c *Command) Build(ctx context.Context, opts entities.BuildOptions, emit func(entities.Diagnostic)) (*entities.BuildResult, error) {
	if c.Name == "" {
		return nil, oops.Code("BUILD_INVALID").Errorf("build command is required")
	}
	if emit == nil {
		emit = func(entities.Diagnostic) {}
	}

	vars := buildVars(opts)
	expand := func(s string) string {
		return os.Expand(s, func(k string) string {
			if v, ok := vars[k]; ok {
				return v
			}
			return os.Getenv(k)
		})
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = expand(a)
	}

	//nolint:gosec // G204: running the configured build command is the purpose of this function
	cmd := exec.CommandContext(ctx, c.Name, args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = time.Second
	cmd.Env = append(os.Environ(), c.Env...)
	for k, v := range vars {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, oops.Code("BUILD_START_FAILED").Wrap(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, oops.Code("BUILD_START_FAILED").Wrap(err)
	}

	tailSize := c.TailSize
	if tailSize == 0 {
		tailSize = DefaultTailSize
	}
	tail := NewTailBuffer(tailSize)

	var (
		mu       sync.Mutex
		warnings int
	)
	forward := func(d entities.Diagnostic) {
		mu.Lock()
		defer mu.Unlock()
		if d.Level == LevelWarning {
			warnings++
		}
		emit(d)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, oops.Code("BUILD_START_FAILED").With("command", c.Name).Wrap(err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scan(stdout, nil, LevelInfo, forward)
	}()
	go func() {
		defer wg.Done()
		scan(stderr, tail, LevelInfo, forward)
	}()
	wg.Wait()

	err = cmd.Wait()
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &derrors.TimeoutError{Operation: "build", Duration: c.Timeout}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, oops.Code("BUILD_FAILED").
				With("command", c.Name).
				With("exit_code", exitErr.ExitCode()).
				With("stderr", strings.TrimSpace(tail.String())).
				Errorf("build exited with status %d", exitErr.ExitCode())
		}
		return nil, oops.Code("BUILD_FAILED").With("command", c.Name).Wrap(err)
	}

	result := &entities.BuildResult{Elapsed: elapsed, Warnings: warnings}
	if c.Artifact != "" {
		result.Artifact = expand(c.Artifact)
		if _, err := os.Stat(result.Artifact); err != nil {
			return nil, oops.Code("BUILD_ARTIFACT_MISSING").With("artifact", result.Artifact).Wrap(err)
		}
	}
	return result, nil
}

// scan forwards r line by line, copying raw lines into tail when set.
func scan(r io.Reader, tail io.Writer, level string, emit func(entities.Diagnostic)) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		line := s.Text()
		if tail != nil {
			_, _ = fmt.Fprintln(tail, line)
		}
		emit(entities.Diagnostic{Level: classify(line, level), Message: line})
	}
	// A line over the scanner limit stops scanning; drain the rest so the
	// command does not block on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

// classify recognises the usual "warning:" and "error:" prefixes emitted by
// compilers.
func classify(line, fallback string) string {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	switch {
	case strings.HasPrefix(trimmed, "warning"):
		return LevelWarning
	case strings.HasPrefix(trimmed, "error"):
		return LevelError
	default:
		return fallback
	}
}

func buildVars(opts entities.BuildOptions) map[string]string {
	profile := "debug"
	if opts.Release {
		profile = "release"
	}
	return map[string]string{
		"DEVKIT_PLATFORM": string(opts.Platform),
		"DEVKIT_OUT_DIR":  opts.OutDir,
		"DEVKIT_PROFILE":  profile,
		"DEVKIT_RELEASE":  strconv.FormatBool(opts.Release),
	}
}
