// Package config loads, normalizes, and validates storyboard editor settings.
//
// Settings come from repository defaults, an optional TOML file
// (~/.config/storyboard/config.toml or ./storyboard.toml) and STORYBOARD_*
// environment variables, applied in that order.
package config
