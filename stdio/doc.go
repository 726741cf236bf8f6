// Package stdio serves an MCP server over a single stdin/stdout connection.
// It is intended for servers launched as subprocesses by an MCP client.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 client
//	Sessions         : one, for the lifetime of the process
//	Transport        : newline-delimited JSON-RPC
//
// Standard output carries protocol frames only. Logs go to the configured
// logger, which should write to standard error.
//
// Example:
//
//	srv := userserver.New(repo)
//	h := stdio.NewHandler(srv.MCP(), stdio.WithLogger(logger))
//	if err := h.Serve(ctx); err != nil { log.Fatal(err) }
package stdio
