// Package config loads and validates the TOML configuration that wires the
// pipeline together: directories, provider chains and their credentials,
// timing defaults for the reconciler, render settings, and orchestrator
// concurrency. The embedded sample_config.toml documents every knob.
package config
