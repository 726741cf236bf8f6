package userserver

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ggoodman/mcp-userdir/internal/logging"
)

func callToolReq(name string) *mcp.CallToolRequest {
	return &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Name: name}}
}

func TestRequestLoggingAddsRequestData(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logging.New(&buf, "debug", "json")
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}

	var seen *logging.RPCMessage
	h := requestLogging(logger)(func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		seen, _ = logging.RPCMessageFromContext(ctx)
		return &mcp.CallToolResult{}, nil
	})
	if _, err := h(context.Background(), "tools/call", callToolReq("example")); err != nil {
		t.Fatalf("handler: %v", err)
	}

	if seen == nil || seen.ID == "" || seen.Method != "tools/call" {
		t.Fatalf("request data not on context: %+v", seen)
	}
	out := buf.String()
	for _, want := range []string{`"msg":"request handled"`, seen.ID, `"name":"example"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}

func TestRecoverPanics(t *testing.T) {
	h := recoverPanics(slog.New(slog.DiscardHandler))(func(context.Context, string, mcp.Request) (mcp.Result, error) {
		panic("boom")
	})
	res, err := h(context.Background(), "tools/call", callToolReq("example"))
	if res != nil || err == nil || !strings.Contains(err.Error(), "panic: boom") {
		t.Fatalf("got %v, %v", res, err)
	}
}

func TestTelemetry(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	mw := telemetry(tp, mp, "test-service")
	ok := mw(func(context.Context, string, mcp.Request) (mcp.Result, error) {
		return &mcp.CallToolResult{}, nil
	})
	toolErr := mw(func(context.Context, string, mcp.Request) (mcp.Result, error) {
		return &mcp.CallToolResult{IsError: true}, nil
	})
	failed := mw(func(context.Context, string, mcp.Request) (mcp.Result, error) {
		return nil, errors.New("handler failed")
	})

	ctx := context.Background()
	_, _ = ok(ctx, "tools/call", callToolReq("example"))
	_, _ = toolErr(ctx, "tools/call", callToolReq("create-user"))
	_, _ = failed(ctx, "resources/read", nil)

	spans := exporter.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	if spans[0].Name != "mcp.tools/call" || spans[0].Status.Code != codes.Ok {
		t.Errorf("unexpected first span: %s %v", spans[0].Name, spans[0].Status)
	}
	if spans[1].Status.Code != codes.Error {
		t.Errorf("tool error not recorded: %v", spans[1].Status)
	}
	if spans[2].Name != "mcp.resources/read" || len(spans[2].Events) == 0 {
		t.Errorf("error not recorded on span: %s events=%d", spans[2].Name, len(spans[2].Events))
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got := sumCounter(rm, "mcp.server.requests"); got != 3 {
		t.Errorf("mcp.server.requests = %d, want 3", got)
	}
	if got := sumCounter(rm, "mcp.server.errors"); got != 2 {
		t.Errorf("mcp.server.errors = %d, want 2", got)
	}
}

func sumCounter(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestTelemetryEndToEnd(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	cs := connect(t, New(newRepo(), WithTracerProvider(tp)), nil)
	if text, _ := callText(t, cs, "example", map[string]any{"message": "hi"}); text != "Echo: hi" {
		t.Fatalf("echo: %q", text)
	}

	for _, s := range exporter.GetSpans() {
		if s.Name == "mcp.tools/call" {
			return
		}
	}
	t.Fatalf("no tools/call span among %d spans", len(exporter.GetSpans()))
}
