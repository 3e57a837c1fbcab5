// Command sdkfetch installs the prebuilt native audio SDK for the host
// platform.
//
// Usage:
//
//	sdkfetch [flags]            install into ./sdk (same as "sdkfetch install")
//	sdkfetch install [flags]
//	sdkfetch catalog [--json] [--check]
//	sdkfetch platform
//	sdkfetch version
//
// The pinned release is compiled in. A Lua file passed with --config or
// named by $SDKFETCH_CONFIG may adjust it, for example to use a mirror.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
