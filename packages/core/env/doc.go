// Package env handles variable interpolation for request files.
//
// It provides functionality for:
//   - Loading variables from .env files
//   - {{variable}} interpolation from those variables
//   - {{$NAME}} interpolation from the process environment
//   - Built-in function evaluation ({{uuid()}}, {{timestamp()}}, ...)
package env
