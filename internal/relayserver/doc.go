// Package relayserver wires the coordination engine into an MCP server.
//
// This is the composition root: it creates the server instance and
// registers the check_status and post_status tools. Argument parsing and
// validation live here; all coordination semantics live in the engine.
package relayserver
