// Package http turns resolved records into executable requests and sends
// them.
//
// It wraps the standard library's http package with:
//   - Request materialization from resolver records (URL assembly, auth,
//     headers, query parameters, form or JSON payloads)
//   - A closed Method enum with a permissive lookup
//   - Per-request timeouts
//   - Redirect, proxy and TLS settings shared by all requests
//   - Response capture with timing
package http
