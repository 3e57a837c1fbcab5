// Package config loads sdkfetch's configuration from sandboxed Lua.
//
// # Overview
//
// The pinned SDK release (version, base URL, platform table, and digest
// table) ships as an embedded Lua file, defaults.lua, compiled into the
// binary. It defines a global sdk table. An optional user file runs in the
// same VM afterwards and may adjust that table, for example to point at a
// mirror or change the destination directory:
//
//	sdk.base_url = "s3://internal-mirror/aic-sdk"
//	sdk.install.dest = platform.when(platform.is_windows, "vendor\\sdk") or "vendor/sdk"
//	sdk.install.staged = true
//
// Platform information is injected as a read-only platform table before any
// configuration runs.
//
// # Security Model
//
// Lua runs with os, io, debug, require, dofile, loadfile, load and loadstring
// removed. Evaluation is bounded by the caller's context (DefaultParseTimeout
// when it has no deadline) and user files larger than MaxConfigSize are
// rejected. Prune entries must be plain directory names so a config cannot
// delete paths outside the installed tree.
//
// # Error Handling
//
// Lua failures are returned as *ParseError. FormatError trims the Lua stack
// traceback unless verbose output is requested.
package config
