package userserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ggoodman/mcp-userdir/users"
)

// Variant selects which capabilities a Server registers.
type Variant string

const (
	// VariantBasic registers the echo and create-user tools and the user
	// resources. Store failures are reported without their cause.
	VariantBasic Variant = "basic"
	// VariantFull adds create-random-user and the generate-dummy-user prompt.
	VariantFull Variant = "full"
)

// Server wires a users.Repository to an SDK server.
type Server struct {
	repo    users.Repository
	variant Variant
	logger  *slog.Logger
	impl    *mcp.Implementation
	tp      trace.TracerProvider
	mp      metric.MeterProvider

	srv *mcp.Server
}

// Option configures a Server.
type Option func(*Server)

// WithImplementation sets the name and version reported during initialize.
// Defaults: "mcp-server", "1.0.0".
func WithImplementation(name, version string) Option {
	return func(s *Server) {
		if name != "" {
			s.impl.Name = name
		}
		if version != "" {
			s.impl.Version = version
		}
	}
}

// WithVariant selects the registered capabilities. Default: VariantFull.
func WithVariant(v Variant) Option {
	return func(s *Server) {
		if v != "" {
			s.variant = v
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		if tp != nil {
			s.tp = tp
		}
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Server) {
		if mp != nil {
			s.mp = mp
		}
	}
}

// New constructs a Server and registers its capabilities.
func New(repo users.Repository, opts ...Option) *Server {
	s := &Server{
		repo:    repo,
		variant: VariantFull,
		logger:  slog.New(slog.DiscardHandler),
		impl:    &mcp.Implementation{Name: "mcp-server", Version: "1.0.0"},
		tp:      otel.GetTracerProvider(),
		mp:      otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.srv = mcp.NewServer(s.impl, &mcp.ServerOptions{
		SubscribeHandler:   s.subscribe,
		UnsubscribeHandler: s.unsubscribe,
	})
	s.srv.AddReceivingMiddleware(
		requestLogging(s.logger),
		recoverPanics(s.logger),
		telemetry(s.tp, s.mp, s.impl.Name),
	)

	s.registerTools()
	s.registerResources()
	if s.variant == VariantFull {
		s.registerPrompts()
	}
	return s
}

// MCP returns the underlying SDK server, for use with a transport.
func (s *Server) MCP() *mcp.Server { return s.srv }

// Variant reports the configured variant.
func (s *Server) Variant() Variant { return s.variant }

// NotifyUsersChanged tells subscribed sessions that users://all changed,
// along with the profile resources of any ids given.
func (s *Server) NotifyUsersChanged(ctx context.Context, ids ...int) {
	uris := make([]string, 0, len(ids)+1)
	uris = append(uris, AllUsersURI)
	for _, id := range ids {
		uris = append(uris, ProfileURI(id))
	}
	for _, uri := range uris {
		if err := s.srv.ResourceUpdated(ctx, &mcp.ResourceUpdatedNotificationParams{URI: uri}); err != nil {
			s.logger.WarnContext(ctx, "resource update notification failed",
				slog.String("uri", uri),
				slog.String("err", err.Error()),
			)
		}
	}
}

func (s *Server) subscribe(ctx context.Context, req *mcp.SubscribeRequest) error {
	if !knownURI(req.Params.URI) {
		return mcp.ResourceNotFoundError(req.Params.URI)
	}
	s.logger.DebugContext(ctx, "resource subscribed", slog.String("uri", req.Params.URI))
	return nil
}

func (s *Server) unsubscribe(ctx context.Context, req *mcp.UnsubscribeRequest) error {
	s.logger.DebugContext(ctx, "resource unsubscribed", slog.String("uri", req.Params.URI))
	return nil
}
