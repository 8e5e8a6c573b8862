package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"loom/internal/config"
	"loom/internal/services"
)

var commandContext = exec.CommandContext

// Request describes one stage execution of the external agent CLI.
type Request struct {
	DocumentID int64
	StageID    string
	Title      string
	Workdir    string
}

// Launcher starts agent processes. The daemon injects the CLI implementation;
// tests substitute fakes.
type Launcher interface {
	Launch(ctx context.Context, req Request) (Process, error)
}

// Process is a running agent invocation as seen by the engine.
type Process interface {
	// PID returns the operating system process id.
	PID() int
	// Kill terminates the process group. Safe to call after exit.
	Kill() error
	// OnExit invokes cb with the exit code once the process ends.
	OnExit(cb func(exitCode int))
	// Done is closed when the process exits.
	Done() <-chan struct{}
	// ExitCode returns the recorded exit code and whether the process exited.
	ExitCode() (int, bool)
}

// Option configures the CLI launcher.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithBaseArgs prepends fixed arguments to every launch.
func WithBaseArgs(args ...string) Option {
	return func(c *CLI) {
		c.baseArgs = append([]string(nil), args...)
	}
}

// WithEnv appends KEY=VALUE pairs to the process environment.
func WithEnv(env ...string) Option {
	return func(c *CLI) {
		c.env = append([]string(nil), env...)
	}
}

// CLI launches the agent command-line tool.
type CLI struct {
	binary   string
	baseArgs []string
	env      []string
}

// NewCLI constructs a launcher using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "agent"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// NewFromConfig constructs a launcher from application config.
func NewFromConfig(cfg *config.Config) *CLI {
	return NewCLI(
		WithBinary(cfg.Agent.Binary),
		WithBaseArgs(cfg.Agent.BaseArgs...),
		WithEnv(cfg.Agent.Env...),
	)
}

// Launch starts the agent for the requested stage. The process runs in its
// own process group so Kill reaches any children it forks. A start failure
// is reported as services.ErrAgentSpawn with the underlying message intact;
// no process is left behind.
func (c *CLI) Launch(ctx context.Context, req Request) (Process, error) {
	if req.DocumentID <= 0 {
		return nil, services.Wrap(services.ErrValidation, req.StageID, "launch", "document id required", nil)
	}
	if strings.TrimSpace(req.StageID) == "" {
		return nil, services.Wrap(services.ErrValidation, "", "launch", "stage id required", nil)
	}

	args := append([]string(nil), c.baseArgs...)
	args = append(args,
		"run",
		"--stage", req.StageID,
		"--doc", strconv.FormatInt(req.DocumentID, 10),
	)
	if title := strings.TrimSpace(req.Title); title != "" {
		args = append(args, "--title", title)
	}

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	cmd.Dir = req.Workdir
	if len(c.env) > 0 {
		cmd.Env = append(os.Environ(), c.env...)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrAgentSpawn, req.StageID, "start agent", err.Error(), err)
	}

	proc := &osProcess{cmd: cmd, pid: cmd.Process.Pid, done: make(chan struct{})}
	go proc.wait()
	return proc, nil
}

type osProcess struct {
	cmd  *exec.Cmd
	pid  int
	done chan struct{}

	mu       sync.Mutex
	exitCode int
	exited   bool
}

func (p *osProcess) wait() {
	err := p.cmd.Wait()
	code := 0
	if err != nil {
		code = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
	}

	p.mu.Lock()
	p.exitCode = code
	p.exited = true
	p.mu.Unlock()
	close(p.done)
}

func (p *osProcess) PID() int { return p.pid }

func (p *osProcess) Done() <-chan struct{} { return p.done }

func (p *osProcess) ExitCode() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode, p.exited
}

// OnExit runs the callback on its own goroutine.
func (p *osProcess) OnExit(cb func(exitCode int)) {
	if cb == nil {
		return
	}
	go func() {
		<-p.done
		code, _ := p.ExitCode()
		cb(code)
	}()
}

func (p *osProcess) Kill() error {
	p.mu.Lock()
	exited := p.exited
	p.mu.Unlock()
	if exited || p.pid <= 0 {
		return nil
	}
	if err := unix.Kill(-p.pid, unix.SIGTERM); err != nil && err != unix.ESRCH {
		return fmt.Errorf("signal process group %d: %w", p.pid, err)
	}
	return nil
}
