// Package server implements the MCP (Model Context Protocol) server for image
// size-budget compression.
//
// This package provides a JSON-RPC 2.0 server that exposes the compression
// routine through the MCP protocol, so an assistant can shrink an image to a
// byte budget before attaching it to a chat request.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - image_load: Decode an image and report metadata
//   - image_dimensions: Read width and height from the header
//   - image_compress: Re-encode as JPEG within a kilobyte budget
//
// Every tool takes its image from exactly one of path, data_base64 or url.
//
// # State
//
// The server keeps no per-image state between calls. Each tool call loads its
// source, runs, and discards everything it allocated.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32602 for bad arguments or out-of-range parameters,
//     -32000 for any other tool failure (unreadable source, undecodable
//     image, encoder failure)
//   - message: Human-readable error description
//   - data: The Go error string
//
// An image that cannot reach its budget is not an error; the result reports
// outcome "floor" and a size above target_kb.
package server
