// Package output renders run outcomes.
//
// Supported output formats:
//   - Console: colored table of outcomes with a summary and latency statistics
//   - JSON: one machine-readable document per run
//   - JUnit: JUnit XML for CI integration
//
// JSON and JUnit accumulate results and write them on Flush.
package output
