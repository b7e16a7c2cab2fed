// Package cmd implements the corkscrew CLI using Cobra.
//
// The root command sends the requests in a request file. Positional
// arguments select requests by name; without them every named request is
// sent. Other commands:
//   - list: Print the requests a run would send
//   - validate: Parse, resolve and build a request file without sending it
//   - init: Write an example request file, env file and tool config
//   - version: Show corkscrew version information
//   - completion: Generate shell completion scripts
//
// Flags override the tool config file (.corkscrew.json), and every flag has
// a CORKSCREW_* environment variable default.
package cmd
