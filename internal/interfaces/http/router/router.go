package router

import (
	"github.com/erp/commercesync/internal/infrastructure/logger"
	"github.com/erp/commercesync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// EngineConfig configures the gin engine
type EngineConfig struct {
	Logger         *zap.Logger
	ServiceName    string
	TracingEnabled bool
	TrustedProxies []string
	// Meter enables the HTTP request metrics when set
	Meter metric.Meter
	// ProfilingEnabled labels profiling samples per route
	ProfilingEnabled bool
}

// NewEngine creates a gin engine with the request ID, tracing, logging and
// recovery middleware installed in that order
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	middleware.SetupValidator()
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.ServiceName,
			Enabled:     cfg.TracingEnabled,
		}),
		middleware.SpanEnricher(),
		logger.GinMiddleware(cfg.Logger),
		logger.Recovery(cfg.Logger),
	)
	if cfg.Meter != nil {
		metrics, err := middleware.HTTPMetrics(cfg.Meter)
		if err != nil {
			return nil, err
		}
		engine.Use(metrics)
	}
	if cfg.ProfilingEnabled {
		engine.Use(middleware.ProfilingLabels())
	}
	return engine, nil
}

// Router manages HTTP route registration
type Router struct {
	engine       *gin.Engine
	apiVersion   string
	maxBodyBytes int64
	internal     *middleware.NetworkAllowlist
	registrars   []RouteRegistrar
	webhooks     []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithMaxBodyBytes bounds webhook request bodies
func WithMaxBodyBytes(n int64) RouterOption {
	return func(r *Router) {
		r.maxBodyBytes = n
	}
}

// WithInternalNetworks restricts the versioned operational API to the given clients
func WithInternalNetworks(list *middleware.NetworkAllowlist) RouterOption {
	return func(r *Router) {
		r.internal = list
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:       engine,
		apiVersion:   "v1",
		maxBodyBytes: middleware.DefaultMaxBodyBytes,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a registrar mounted under /api/<version>, behind the
// internal network allowlist when one is set
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// RegisterWebhooks adds a registrar mounted under /api with the body limit applied
func (r *Router) RegisterWebhooks(registrar RouteRegistrar) *Router {
	r.webhooks = append(r.webhooks, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api")

	hooks := api.Group("", middleware.BodyLimit(r.maxBodyBytes))
	for _, registrar := range r.webhooks {
		registrar.RegisterRoutes(hooks)
	}

	versioned := api.Group("/" + r.apiVersion)
	if r.internal != nil {
		versioned.Use(middleware.InternalOnly(r.internal))
	}
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(versioned)
	}
}
