package agent

// SandboxConfig bounds a single sandbox evaluation.
type SandboxConfig struct {
	TimeoutMS    int `mapstructure:"timeout" json:"timeout"`
	MaxHeapSize  int `mapstructure:"max_heap_size" json:"max_heap_size"`
}

// Config is the resolved, immutable snapshot the executor loop runs
// against for one call. It is produced by the layered resolver (C5)
// and never mutated after resolution.
type Config struct {
	Model         string        `mapstructure:"model" json:"model"`
	TimeoutMS     int           `mapstructure:"timeout" json:"timeout"`
	MaxIterations int           `mapstructure:"max_iterations" json:"max_iterations"`
	MaxRetries    int           `mapstructure:"max_retries" json:"max_retries"`
	Sandbox       SandboxConfig `mapstructure:"sandbox" json:"sandbox"`
}

// DefaultConfig returns the hard-coded floor of the resolver's
// precedence chain (call_opts > agent.static_config > process-wide
// defaults > this value).
func DefaultConfig() Config {
	return Config{
		Model:         "openai:gpt-4o",
		TimeoutMS:     30000,
		MaxIterations: 10,
		MaxRetries:    3,
		Sandbox: SandboxConfig{
			TimeoutMS:   5000,
			MaxHeapSize: 50000,
		},
	}
}
