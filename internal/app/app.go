package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/auth"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/cart"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/discount"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/order"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/pricing"
	"github.com/MONA100421/ShopFlow-sub000/internal/handler"
	"github.com/MONA100421/ShopFlow-sub000/internal/telemetry"
	"github.com/MONA100421/ShopFlow-sub000/pkg/health"
	"github.com/MONA100421/ShopFlow-sub000/pkg/httpmiddleware"
)

// ServiceName names the server in telemetry.
const ServiceName = "shopflow-cart"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	srv, err := build(ctx, lg, m, cfg)
	if err != nil {
		return err
	}
	defer srv.close()

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           srv.handler,
	}
	srv.probes.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		srv.probes.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr), zap.String("storage", srv.storage))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// service is the assembled application before it is bound to a listener.
type service struct {
	handler http.Handler
	probes  *health.Probes
	storage string
	close   func()
}

func build(ctx context.Context, lg *zap.Logger, t httpmiddleware.TelemetryProvider, cfg *Config) (*service, error) {
	var (
		st  *stores
		err error
	)
	if cfg.DatabaseURL != "" {
		st, err = openPostgres(ctx, cfg)
	} else {
		lg.Warn("No database configured, using in-memory storage")
		st, err = openMemory(cfg)
	}
	if err != nil {
		return nil, err
	}

	codes, err := discount.Load(ctx, st.discounts)
	if err != nil {
		st.close()
		return nil, errors.Wrap(err, "load discount codes")
	}
	lg.Info("Discount codes loaded", zap.Int("count", codes.Len()))

	metrics, err := telemetry.New(t.MeterProvider())
	if err != nil {
		st.close()
		return nil, errors.Wrap(err, "create metrics")
	}

	// Domain services.
	cartService := cart.NewService(st.carts, st.products, pricing.NewEngine(codes),
		cart.WithRecorder(metrics),
		cart.WithTracerProvider(t.TracerProvider()),
	)
	orderService := order.NewService(cartService, st.orders,
		order.WithRecorder(metrics),
		order.WithTracerProvider(t.TracerProvider()),
	)

	h := handler.New(
		handler.Config{
			ImageBaseURL:  cfg.ImageBaseURL,
			SessionCookie: cfg.Session.Cookie,
			SessionMaxAge: cfg.Session.MaxAge,
			SecureCookie:  cfg.Session.Secure,
		},
		st.products,
		cartService,
		orderService,
		auth.NewAuthenticator(st.apiKeys, []byte(cfg.APIKeyPepper)),
	)

	probes := health.New()
	probes.AddLiveness("goroutines", time.Second, health.GoroutineCountCheck(10000))
	if st.pinger != nil {
		probes.AddReadiness("postgres", 5*time.Second, health.PingCheck(st.pinger))
	}

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.Handle("GET /livez", probes.LiveHandler())
	mux.Handle("GET /readyz", probes.ReadyHandler())
	h.Register(mux)

	return &service{
		handler: httpmiddleware.Wrap(httpmiddleware.Routed(mux),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
				AllowHeaders: []string{
					"Content-Type",
					handler.APIKeyHeader,
					handler.UserHeader,
					handler.SessionHeader,
					httpmiddleware.RequestIDHeader,
				},
				ExposeHeaders:    []string{handler.SessionHeader, httpmiddleware.RequestIDHeader, "Location"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(ServiceName, t),
			httpmiddleware.LogRequests(),
		),
		probes:  probes,
		storage: st.kind,
		close:   st.close,
	}, nil
}
