// Package config implements the layered Config Resolver (C5): a deep
// merge of call-site overrides, an agent's static config, process-wide
// defaults sourced from file/env via viper, and finally the runtime's
// hard-coded floor.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"agentrt/agent"
)

// Resolver holds the process-wide default layer. One Resolver is
// typically constructed at process start and shared by every call.
type Resolver struct {
	v *viper.Viper
}

// New builds a Resolver that reads process-wide defaults from an
// optional config file (name "agentrt", searched in the given paths)
// and from environment variables prefixed AGENTRT_, with "." replaced
// by "_" so nested keys like sandbox.timeout map to
// AGENTRT_SANDBOX_TIMEOUT.
func New(configPaths ...string) (*Resolver, error) {
	v := viper.New()
	v.SetConfigName("agentrt")
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("AGENTRT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := agent.DefaultConfig()
	v.SetDefault("model", def.Model)
	v.SetDefault("timeout", def.TimeoutMS)
	v.SetDefault("max_iterations", def.MaxIterations)
	v.SetDefault("max_retries", def.MaxRetries)
	v.SetDefault("sandbox.timeout", def.Sandbox.TimeoutMS)
	v.SetDefault("sandbox.max_heap_size", def.Sandbox.MaxHeapSize)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	return &Resolver{v: v}, nil
}

// processDefaults returns the process-wide layer (file/env merged over
// the hard-coded floor) as a Config value.
func (r *Resolver) processDefaults() agent.Config {
	var cfg agent.Config
	if err := r.v.Unmarshal(&cfg); err != nil {
		return agent.DefaultConfig()
	}
	return cfg
}

// Resolve applies the precedence chain of §4.5: callOpts overrides
// staticConfig overrides the process-wide layer overrides the
// hard-coded default. Zero-valued fields are treated as "not set" at
// every layer above the hard-coded floor, matching the source's deep
// map merge where absent keys fall through.
func (r *Resolver) Resolve(staticConfig, callOpts agent.Config) agent.Config {
	cfg := r.processDefaults()
	overlay(&cfg, staticConfig)
	overlay(&cfg, callOpts)
	return cfg
}

func overlay(base *agent.Config, patch agent.Config) {
	if patch.Model != "" {
		base.Model = patch.Model
	}
	if patch.TimeoutMS != 0 {
		base.TimeoutMS = patch.TimeoutMS
	}
	if patch.MaxIterations != 0 {
		base.MaxIterations = patch.MaxIterations
	}
	if patch.MaxRetries != 0 {
		base.MaxRetries = patch.MaxRetries
	}
	if patch.Sandbox.TimeoutMS != 0 {
		base.Sandbox.TimeoutMS = patch.Sandbox.TimeoutMS
	}
	if patch.Sandbox.MaxHeapSize != 0 {
		base.Sandbox.MaxHeapSize = patch.Sandbox.MaxHeapSize
	}
}
