// Package config handles configuration loading and management for corkscrew.
//
// It provides functionality for:
//   - Loading the JSON tool configuration (.corkscrew.json, corkscrew.config.json, .corkscrewrc)
//   - Default configuration values
//   - Merging command line overrides on top of the file
//   - Deriving the run Settings (request file, parallelism, selection)
package config
