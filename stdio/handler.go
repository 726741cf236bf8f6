package stdio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler runs one MCP session over a pair of streams.
type Handler struct {
	srv  *mcp.Server
	r    io.Reader
	w    io.Writer
	l    *slog.Logger
	wire io.Writer
}

// NewHandler returns a Handler serving srv on os.Stdin and os.Stdout unless
// overridden by options.
func NewHandler(srv *mcp.Server, opts ...Option) *Handler {
	h := &Handler{srv: srv, l: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve blocks until the client disconnects or ctx is canceled. Both are
// a clean shutdown and return nil.
func (h *Handler) Serve(ctx context.Context) error {
	t := h.transport()
	if h.wire != nil {
		t = &mcp.LoggingTransport{Transport: t, Writer: h.wire}
	}

	h.l.InfoContext(ctx, "stdio server running")
	err := h.srv.Run(ctx, t)
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
		h.l.InfoContext(ctx, "stdio server stopped")
		return nil
	default:
		h.l.ErrorContext(ctx, "stdio server failed", slog.String("err", err.Error()))
		return err
	}
}

func (h *Handler) transport() mcp.Transport {
	if h.r == nil && h.w == nil {
		return &mcp.StdioTransport{}
	}
	var r io.Reader = os.Stdin
	if h.r != nil {
		r = h.r
	}
	var w io.Writer = os.Stdout
	if h.w != nil {
		w = h.w
	}
	return &mcp.IOTransport{Reader: readCloser(r), Writer: writeCloser(w)}
}

func readCloser(r io.Reader) io.ReadCloser {
	if rc, ok := r.(io.ReadCloser); ok {
		return rc
	}
	return io.NopCloser(r)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func writeCloser(w io.Writer) io.WriteCloser {
	if wc, ok := w.(io.WriteCloser); ok {
		return wc
	}
	return nopWriteCloser{w}
}
