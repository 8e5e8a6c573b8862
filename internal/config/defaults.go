package config

const (
	defaultDataDir     = "~/.local/share/loom"
	defaultLogDir      = "~/.local/share/loom/logs"
	defaultSocket      = "~/.local/share/loom/loomd.sock"
	defaultWorkspace   = "~/projects"
	defaultAgentBinary = "agent"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			Socket:    defaultSocket,
			Workspace: defaultWorkspace,
		},
		Agent: Agent{
			Binary: defaultAgentBinary,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
