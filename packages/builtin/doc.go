// Package builtin provides the functions available to {{...}} placeholders
// in request files.
//
// Available functions:
//   - uuid(): random UUID v4
//   - now(): current time, RFC 3339, UTC
//   - date(layout): current date, Go time layout, default 2006-01-02
//   - timestamp(), timestampMs(): Unix time in seconds or milliseconds
//   - random(min, max): random integer in range, inclusive
//   - randomString(length): random alphanumeric string
//   - base64(value): base64 encode a string
//   - urlEncode(value): query-escape a string
package builtin
