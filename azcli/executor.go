package azcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"runtime"
	"strings"

	"addinsso/telemetry"
)

// Executor runs one external command line and captures its output. All az
// invocations in this tool go through this single primitive.
type Executor interface {
	Run(ctx context.Context, commandLine string, opts Options) (Result, error)
}

type Options struct {
	// ParseJSON parses non-empty stdout as a JSON document. Empty stdout is
	// not a parse error; it yields an empty Result.
	ParseJSON bool
	// TolerateExitError treats a non-zero exit as a normal outcome and
	// returns whatever stdout was produced.
	TolerateExitError bool
}

// Result holds one command invocation's output: the raw stdout text and,
// when requested, its parsed JSON form.
type Result struct {
	Raw  string
	Data any
}

// Empty reports whether the command produced no usable output. Callers such
// as login use this as the "command produced nothing" signal.
func (r Result) Empty() bool {
	return r.Data == nil && strings.TrimSpace(r.Raw) == ""
}

// Entries returns the parsed document as a top-level array, or nil.
func (r Result) Entries() []any {
	entries, _ := r.Data.([]any)
	return entries
}

// Object returns the parsed document as a top-level object, or nil.
func (r Result) Object() map[string]any {
	object, _ := r.Data.(map[string]any)
	return object
}

// StringField returns a string-valued field of the top-level object.
func (r Result) StringField(key string) string {
	value, _ := r.Object()[key].(string)
	return value
}

// ShellExecutor runs command lines through the platform interpreter
// (cmd /C on Windows, /bin/sh -c elsewhere). Stdout is captured in full;
// multi-megabyte listings are expected from az.
type ShellExecutor struct {
	reporter telemetry.Reporter
	goos     string
}

func NewShellExecutor(reporter telemetry.Reporter) *ShellExecutor {
	if reporter == nil {
		reporter = telemetry.Nop{}
	}
	return &ShellExecutor{reporter: reporter, goos: runtime.GOOS}
}

func (e *ShellExecutor) Run(ctx context.Context, commandLine string, opts Options) (Result, error) {
	result, err := e.run(ctx, commandLine, opts)
	if err != nil {
		e.reporter.Exception("command", err)
		return Result{}, err
	}
	e.reporter.Event("command", map[string]string{"command": firstWords(commandLine, 3)})
	return result, nil
}

func (e *ShellExecutor) run(ctx context.Context, commandLine string, opts Options) (Result, error) {
	var cmd *exec.Cmd
	if e.goos == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", commandLine)
	} else {
		cmd = exec.CommandContext(ctx, "/bin/sh", "-c", commandLine)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, &ExecutionError{Command: commandLine, Err: err}
		}
		if !opts.TolerateExitError {
			return Result{}, &ExecutionError{Command: commandLine, Stderr: stderr.String(), Err: err}
		}
	}

	result := Result{Raw: stdout.String()}
	if !opts.ParseJSON || strings.TrimSpace(result.Raw) == "" {
		return result, nil
	}
	if err := json.Unmarshal([]byte(result.Raw), &result.Data); err != nil {
		return Result{}, &ExecutionError{Command: commandLine, Stderr: stderr.String(), Err: err}
	}
	return result, nil
}

// firstWords trims a command line for telemetry so secrets passed as
// arguments never leave the process.
func firstWords(commandLine string, n int) string {
	fields := strings.Fields(commandLine)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
