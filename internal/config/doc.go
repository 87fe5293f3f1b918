// Package config handles configuration loading, parsing, and validation
// from defaults, an optional config.yaml and AUDIOBRIEF_* environment
// variables. It provides type-safe access to the settings of every
// component while keeping configuration details out of business logic.
package config
