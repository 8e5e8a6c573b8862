package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"loom/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.Socket = filepath.Join(base, "loomd.sock")
	cfgVal.Paths.Workspace = filepath.Join(base, "workspace")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAgentBinary overrides the agent binary on the test config.
func WithAgentBinary(binary string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Agent.Binary = binary
	}
}

// WithStubbedAgent writes a stub agent executable, prepends its directory to
// PATH, and points the config at it. The stub exits successfully.
func WithStubbedAgent() ConfigOption {
	return WithStubbedAgentScript("#!/bin/sh\nexit 0\n")
}

// WithStubbedAgentScript writes a stub agent with the provided script body.
func WithStubbedAgentScript(script string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "agent")
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write stub agent: %v", err)
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
		b.cfg.Agent.Binary = target
	}
}
