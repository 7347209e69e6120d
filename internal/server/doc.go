// Package server implements the MCP (Model Context Protocol) server for region detection tools.
//
// This package provides a JSON-RPC 2.0 server that exposes connected-region
// detection through the MCP protocol, so MCP clients can ask precise
// questions about the areas of an image instead of estimating them.
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
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Region Detection:
//   - regions_detect: Connected regions with size, value, bounds and shape measures
//   - regions_overlay: Regions painted over the image as a PNG
//   - regions_at: Regions containing a pixel, nearest regions, regions in an area
//   - regions_blobs: Rectangle, circle, line and irregular classification
//
// Bulk and Output:
//   - regions_batch: Parallel detection over many images
//   - regions_export: Write results as JSON or YAML, optionally zstd compressed
//   - regions_presets: List named detection presets
//
// Every regions_* tool takes the image path, an optional roi or roi_name,
// an optional preset and explicit options that override the preset.
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by reference (path plus PDF page) and reused across tool calls. Batches
// evict the images they load once each one is processed.
//
// # Configuration
//
// REGION_MCP_LOG_LEVEL=debug logs each tool call to stderr.
// REGION_MCP_PRESETS names a YAML file whose presets are merged over the
// built-in ones.
//
// # Error Handling
//
// Errors are returned as JSON-RPC error responses with:
//   - code: -32602 for malformed or invalid arguments, -32601 for unknown
//     methods, -32000 for any other tool failure
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv, err := server.NewWithSettings(config.FromEnv())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
