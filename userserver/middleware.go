package userserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ggoodman/mcp-userdir/internal/logging"
)

const instrumentationName = "github.com/ggoodman/mcp-userdir/userserver"

// requestLogging assigns every incoming request an id, stores it on the
// context for downstream log records and logs the outcome.
func requestLogging(logger *slog.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			ctx = logging.WithRPCMessage(ctx, &logging.RPCMessage{ID: uuid.NewString(), Method: method})
			if name := toolName(req); name != "" {
				ctx = logging.WithToolCallData(ctx, &logging.ToolCallData{ToolName: name})
			}

			start := time.Now()
			res, err := next(ctx, method, req)
			elapsed := slog.Duration("duration", time.Since(start))
			if err != nil {
				logger.WarnContext(ctx, "request failed", elapsed, slog.String("err", err.Error()))
				return res, err
			}
			logger.DebugContext(ctx, "request handled", elapsed)
			return res, nil
		}
	}
}

// recoverPanics converts a panicking handler into an internal error.
func recoverPanics(logger *slog.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (res mcp.Result, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "handler panicked", slog.Any("panic", r))
					res, err = nil, fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, method, req)
		}
	}
}

// telemetry records a span and request metrics for every incoming method.
// Tool results flagged as errors count as errors.
func telemetry(tp trace.TracerProvider, mp metric.MeterProvider, serviceName string) mcp.Middleware {
	tracer := tp.Tracer(instrumentationName)
	meter := mp.Meter(instrumentationName)

	requestCounter, _ := meter.Int64Counter(
		"mcp.server.requests",
		metric.WithDescription("Total number of MCP requests"),
		metric.WithUnit("{request}"),
	)
	requestDuration, _ := meter.Float64Histogram(
		"mcp.server.request.duration",
		metric.WithDescription("Duration of MCP requests"),
		metric.WithUnit("ms"),
	)
	errorCounter, _ := meter.Int64Counter(
		"mcp.server.errors",
		metric.WithDescription("Total number of MCP errors"),
		metric.WithUnit("{error}"),
	)

	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			attrs := []attribute.KeyValue{
				attribute.String("mcp.method", method),
				attribute.String("service.name", serviceName),
			}
			if name := toolName(req); name != "" {
				attrs = append(attrs, attribute.String("mcp.tool.name", name))
			}

			ctx, span := tracer.Start(ctx, "mcp."+method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()
			if msg, ok := logging.RPCMessageFromContext(ctx); ok {
				span.SetAttributes(attribute.String("mcp.request_id", msg.ID))
			}

			start := time.Now()
			requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

			res, err := next(ctx, method, req)

			requestDuration.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))
			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				errorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
			case isToolError(res):
				span.SetStatus(codes.Error, "tool error")
				errorCounter.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.Bool("mcp.tool_error", true))...))
			default:
				span.SetStatus(codes.Ok, "")
			}
			return res, err
		}
	}
}

func toolName(req mcp.Request) string {
	if r, ok := req.(*mcp.CallToolRequest); ok && r.Params != nil {
		return r.Params.Name
	}
	return ""
}

func isToolError(res mcp.Result) bool {
	r, ok := res.(*mcp.CallToolResult)
	return ok && r != nil && r.IsError
}
