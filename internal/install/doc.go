// Package install drives the SDK acquisition pipeline.
//
// An Orchestrator walks a fixed sequence of states:
//
//	Idle -> Checked -> Resolved -> Downloaded -> Verified -> Extracted -> Pruned -> Cleaned -> Done
//
// Failed is reachable from every state before Pruned. If the destination
// directory already exists the run moves from Checked straight to Done
// without touching the network. Prune and cleanup failures are collected as
// warnings and never fail an install.
//
// By default a failed extraction leaves the destination directory in place,
// and the next run treats it as installed. Options.Staged extracts into a
// sibling staging directory and renames it into place only after pruning,
// so a failure leaves no destination behind.
package install
