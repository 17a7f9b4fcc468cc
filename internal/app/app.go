package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	shardedcache "github.com/simp-lee/cache"
	"github.com/simp-lee/ginx"
	"github.com/simp-lee/logger"

	"github.com/simp-lee/salesboard/internal/config"
	"github.com/simp-lee/salesboard/internal/middleware"
	"github.com/simp-lee/salesboard/internal/module/sales"
	"github.com/simp-lee/salesboard/internal/pkg"
	"github.com/simp-lee/salesboard/web"
)

// dashboardCacheGroup holds cached GET /api/v1 responses. It is cleared
// whenever the record store is replaced, and keys carry the store version so
// a response computed from an older load is never served again.
const dashboardCacheGroup = "sales-api"

const minReleaseCSRFSecretLen = 32

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine *gin.Engine
	logger *logger.Logger
	cfg    *config.Config
	store  *sales.Store
	cache  shardedcache.CacheInterface
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New wires logging, the sales backend client, the record store, handlers,
// middleware, templates, and routes from cfg. It performs no network I/O;
// the first store load starts in Run.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	success := false

	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 may expose debug behavior and permissive CORS")
	}
	defer func() {
		if success {
			return
		}
		if err := log.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}()

	// repository → store/gateway → service → handlers
	repo := sales.NewSaleRepository(cfg.Sales.BaseURL, nil, cfg.Sales.TimeoutDuration())
	store := sales.NewStore(repo)
	svc := sales.NewSaleService(store, sales.NewGateway(repo), sales.Options{
		PageSize:           cfg.Dashboard.PageSize,
		Location:           cfg.Dashboard.Location(),
		RefreshAfterSubmit: cfg.Sales.RefreshAfterSubmit,
		Courses:            cfg.Sales.Courses,
	})
	handler := sales.NewSaleHandler(svc)
	pageHandler := sales.NewSalePageHandler(svc, cfg.Dashboard.CurrencySymbol)

	var responseCache shardedcache.CacheInterface
	if cfg.Server.Cache.Enabled {
		responseCache = newResponseCache(cfg.Server.Cache)
		store.OnReplace(func() {
			responseCache.Group(dashboardCacheGroup).Clear()
		})
	}
	defer func() {
		if !success && responseCache != nil {
			responseCache.Close()
		}
	}()

	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	corsConfig := middleware.ResolveCORSConfig(cfg.Server.Mode, cfg.Server.CORS.AllowOrigins)
	corsConfig.AllowCredentials = cfg.Server.CORS.AllowCredentials
	corsConfig.MaxAge = cfg.Server.CORS.MaxAgeDuration()

	engine.Use(
		middleware.Recovery(log.Logger),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			TrustUpstream: false,
		}),
		middleware.Logger(log.Logger),
		middleware.CORSWithConfig(corsConfig),
	)

	var fsys fs.FS
	if cfg.Server.Mode == gin.DebugMode {
		fsys, err = resolveDebugWebFS()
		if err != nil {
			return nil, fmt.Errorf("resolve debug template fs: %w", err)
		}
	} else {
		fsys = web.EmbeddedFS
	}

	renderer, err := NewTemplateRenderer(fsys, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return nil, fmt.Errorf("setup template renderer: %w", err)
	}
	engine.HTMLRender = renderer

	csrfSecret, err := resolveCSRFSecret(cfg.Server.Mode, cfg.Server.CSRFSecret, log.Logger)
	if err != nil {
		return nil, err
	}

	module := sales.NewModule(handler, pageHandler, submitMiddleware(cfg.Server.RateLimit)...)
	if err := RegisterRoutes(engine, &RouteDeps{
		Modules:    []Module{module},
		API:        apiMiddleware(cfg.Server.RequestTimeout(), responseCache, dashboardCacheKey(store.Version, cfg.Dashboard.Location(), time.Now)),
		Status:     store.Status,
		Mode:       cfg.Server.Mode,
		CSRFSecret: csrfSecret,
	}); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	success = true
	return &App{
		engine: engine,
		logger: log,
		cfg:    cfg,
		store:  store,
		cache:  responseCache,
	}, nil
}

func newResponseCache(cfg config.CacheConfig) shardedcache.CacheInterface {
	ttl := cfg.TTLDuration()
	const shards = 16
	return shardedcache.NewCache(shardedcache.Options{
		MaxSize:           max(cfg.MaxSize/shards, 1),
		DefaultExpiration: ttl,
		CleanupInterval:   2 * ttl,
		ShardCount:        shards,
	})
}

// apiMiddleware bounds every /api/v1 request by timeout and serves repeated
// GETs from cache. Either part is skipped when unset; a nil key uses the ginx
// default.
func apiMiddleware(timeout time.Duration, cache shardedcache.CacheInterface, key ginx.CacheKeyFunc) []gin.HandlerFunc {
	chain := ginx.NewChain().WithErrorFormat(envelopeError)
	if timeout > 0 {
		chain.Use(ginx.Timeout(ginx.WithTimeout(timeout)))
	}
	if cache != nil {
		chain.When(ginx.MethodIs(http.MethodGet, http.MethodHead), ginx.CacheWithGroupOptions(cache, dashboardCacheGroup, ginx.WithCacheKeyFunc(key)))
	}
	if timeout <= 0 && cache == nil {
		return nil
	}
	return []gin.HandlerFunc{chain.Build()}
}

// dashboardCacheKey scopes a cached response to the store version and the
// dashboard day, so "today" figures roll over at midnight in loc.
func dashboardCacheKey(version func() uint64, loc *time.Location, now func() time.Time) ginx.CacheKeyFunc {
	return func(c *gin.Context) string {
		return fmt.Sprintf("v%d|%s|%s|%s|%s?%s|%s",
			version(),
			now().In(loc).Format(time.DateOnly),
			c.Request.Method,
			strings.ToLower(c.Request.Host),
			c.Request.URL.Path,
			c.Request.URL.RawQuery,
			c.GetHeader("Accept-Encoding"),
		)
	}
}

// envelopeError renders ginx middleware rejections in the same envelope as
// handler errors.
func envelopeError(status int, message string) any {
	return pkg.Response{Code: status, Message: message}
}

// submitMiddleware rate-limits sale submissions per client IP.
func submitMiddleware(cfg config.RateLimitConfig) []gin.HandlerFunc {
	if !cfg.Enabled {
		return nil
	}
	limiter := ginx.NewChain().
		WithErrorFormat(envelopeError).
		Use(ginx.RateLimit(cfg.RPS, cfg.Burst, ginx.WithIP())).
		Build()
	return []gin.HandlerFunc{limiter}
}

func resolveCSRFSecret(mode, secret string, log *slog.Logger) (string, error) {
	if !isPlaceholderCSRFSecret(secret) {
		secret = strings.TrimSpace(secret)
		if mode == gin.ReleaseMode {
			if len(secret) < minReleaseCSRFSecretLen {
				return "", fmt.Errorf("csrf_secret must be at least %d characters in release mode", minReleaseCSRFSecretLen)
			}
			if config.CountSecretClasses(secret) < 3 {
				return "", errors.New("csrf_secret must include at least 3 character classes (lowercase, uppercase, digit, symbol) in release mode")
			}
		}
		return secret, nil
	}
	if mode == gin.ReleaseMode {
		return "", errors.New("csrf_secret must be a non-placeholder value in release mode")
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate csrf secret: %w", err)
	}
	log.Warn("no csrf_secret configured, using random secret in non-release mode (will change on restart)")
	return hex.EncodeToString(b), nil
}

func isPlaceholderCSRFSecret(secret string) bool {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return true
	}

	switch strings.ToLower(trimmed) {
	case "change-me-to-a-random-secret", "change-me-in-env":
		return true
	default:
		return false
	}
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

func resolveDebugWebFS() (fs.FS, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		webDir := filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", "web"))
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	exePath, err := os.Executable()
	if err == nil {
		webDir := filepath.Join(filepath.Dir(exePath), "web")
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	return nil, errors.New("debug web directory not found")
}

// Run loads the store in the background, starts the HTTP server, and blocks
// until a shutdown signal is received. Shutdown is graceful with a 5-second
// deadline.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	log := slog.Default()
	if a.logger != nil {
		log = a.logger.Logger
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine)

	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.store != nil {
		go func() {
			// Failures are logged by the store and surface as degraded on /health.
			_ = a.store.Load(ctx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("addr", addr), slog.String("sales_backend", a.cfg.Sales.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if runErr == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	}

	a.release()
	log.Info("server stopped")
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}

	return runErr
}

// release stops background workers owned by the app.
func (a *App) release() {
	if a.cache != nil {
		a.cache.Close()
	}
	ginx.CleanupRateLimiters()
}
