// mcp-userdir serves a small user directory to MCP clients over stdio.
//
// Usage:
//
//	mcp-userdir [serve] [--store=file|memory|redis|sqlite|postgres] [--users-file=<path>]
//	mcp-userdir users list [-o json|yaml]
//	mcp-userdir users get <id> [-o json|yaml]
//	mcp-userdir users add --name=<name> --email=<email> --address=<address> --phone=<phone>
//	mcp-userdir version
//
// Settings not given as flags are read from the environment (see package
// config).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error in main(): %v\n", err)
		stop()
		os.Exit(1)
	}
}
