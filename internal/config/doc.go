// Package config provides configuration loading and validation for the
// transcription worker. It handles YAML-based configuration with struct
// validation, sensible defaults for every parameter, and environment
// overrides for deployment-specific paths.
package config
