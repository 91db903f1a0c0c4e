package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/ochairo/pgbrew/internal/domain/interfaces"
)

// CommandRunner executes external tools synchronously.
// No timeout is applied unless the caller asks for one.
type CommandRunner struct {
	stdout io.Writer
	stderr io.Writer
	logger interfaces.Logger
}

// NewCommandRunner creates a runner that streams tool output to stderr
func NewCommandRunner(logger interfaces.Logger) *CommandRunner {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &CommandRunner{
		stdout: os.Stderr,
		stderr: os.Stderr,
		logger: logger,
	}
}

// SetOutput redirects streamed tool output (nil discards it)
func (r *CommandRunner) SetOutput(stdout, stderr io.Writer) {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	r.stdout = stdout
	r.stderr = stderr
}

// ExecuteConfig contains configuration for executing a command.
type ExecuteConfig struct {
	Name        string
	Args        []string
	WorkingDir  string
	Env         map[string]string
	Timeout     time.Duration
	Description string
	Stream      bool // also copy output to the runner's writers
}

// ExecuteResult contains the result of command execution
type ExecuteResult struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// Err returns nil on success, otherwise an error carrying the exit code
// and captured stderr.
func (res *ExecuteResult) Err(what string) error {
	if res.Success {
		return nil
	}
	msg := strings.TrimSpace(res.Stderr)
	if msg == "" {
		return fmt.Errorf("%s failed (exit %d): %w", what, res.ExitCode, res.Error)
	}
	return fmt.Errorf("%s failed (exit %d): %w\nStderr: %s", what, res.ExitCode, res.Error, msg)
}

// Execute runs a command with the given configuration
func (r *CommandRunner) Execute(ctx context.Context, config ExecuteConfig) *ExecuteResult {
	startTime := time.Now()
	result := &ExecuteResult{}

	execCtx := ctx
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	//nolint:gosec // G204: Command execution is intentional and controlled by recipe configuration
	cmd := exec.CommandContext(execCtx, config.Name, config.Args...)
	if config.WorkingDir != "" {
		cmd.Dir = config.WorkingDir
	}
	cmd.Env = MergeEnv(os.Environ(), config.Env)

	var stdout, stderr bytes.Buffer
	if config.Stream {
		cmd.Stdout = io.MultiWriter(&stdout, r.stdout)
		cmd.Stderr = io.MultiWriter(&stderr, r.stderr)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	desc := config.Description
	if desc == "" {
		desc = config.Name
	}
	r.logger.Debug("Executing command",
		interfaces.F("step", desc),
		interfaces.F("command", config.Name),
		interfaces.F("args", config.Args),
		interfaces.F("dir", config.WorkingDir))

	err := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		var exitErr *exec.ExitError
		//nolint:gocritic // ifElseChain: checking different error types, not suitable for switch
		if execCtx.Err() == context.DeadlineExceeded {
			result.Error = fmt.Errorf("command timeout after %v", config.Timeout)
			result.ExitCode = -1
		} else if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		r.logger.Debug("Command failed",
			interfaces.F("step", desc),
			interfaces.F("exit_code", result.ExitCode),
			interfaces.Err(result.Error))
		return result
	}

	result.Success = true
	result.ExitCode = 0
	return result
}

// Output runs a command and returns its trimmed stdout
func (r *CommandRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	result := r.Execute(ctx, ExecuteConfig{Name: name, Args: args})
	if err := result.Err(name); err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Stdout), nil
}

// MergeEnv overlays override on a KEY=VALUE environment list. The result is
// sorted by key so child processes see a deterministic environment.
func MergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base)+len(override))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}
