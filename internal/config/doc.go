// Package config loads handhud settings from an optional TOML file layered
// over built-in defaults.
package config
