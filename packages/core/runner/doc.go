// Package runner dispatches materialized requests and collects their
// outcomes.
//
// It provides functionality for:
//   - Running a request file end to end (parse, resolve, materialize, dispatch)
//   - Sequential dispatch, or bounded concurrency with outcomes kept in request order
//   - Isolating transport failures to the request that caused them
//   - Latency statistics for the run
package runner
