package maincmd

import "github.com/caarlos0/env/v6"

// runtimeConfig holds the VM safety limits and debug knobs that are set via
// environment variables rather than command-line flags, since they tune the
// execution engine rather than select a subcommand. WISP_MAX_STEPS and
// WISP_MAX_CALL_DEPTH mirror the teacher's machine.Thread.MaxSteps and
// MaxCallStackDepth fields, exposed here as env-only knobs read by the `run`
// command. The `repl` command does not read them.
type runtimeConfig struct {
	MaxSteps          int  `env:"WISP_MAX_STEPS" envDefault:"0"`
	MaxCallStackDepth int  `env:"WISP_MAX_CALL_DEPTH" envDefault:"0"`
	DebugTrace        bool `env:"WISP_DEBUG_TRACE" envDefault:"false"`
}

// loadRuntimeConfig parses runtimeConfig from the process environment. A
// malformed value (e.g. WISP_MAX_STEPS=abc) is reported as an error rather
// than silently ignored.
func loadRuntimeConfig() (runtimeConfig, error) {
	var cfg runtimeConfig
	if err := env.Parse(&cfg); err != nil {
		return runtimeConfig{}, err
	}
	return cfg, nil
}
