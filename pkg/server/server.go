package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"flip-bridge/pkg/metrics"
)

// Config holds configuration for the quoting server
type Config struct {
	Address        string
	AllowedOrigins []string
	RatePerMinute  int
	SlippageBps    uint32
	EnableMetrics  bool
}

// DefaultConfig returns a default server configuration
func DefaultConfig() Config {
	return Config{
		Address:        "localhost:3000",
		AllowedOrigins: []string{"http://localhost:5173"},
		RatePerMinute:  120,
		SlippageBps:    50,
		EnableMetrics:  true,
	}
}

// Server serves swap routes in the shape the quote client expects
type Server struct {
	config     Config
	router     Router
	logger     *logrus.Logger
	httpServer *http.Server
}

// New creates a new quoting server
func New(cfg Config, router Router, logger *logrus.Logger) *Server {
	if cfg.SlippageBps == 0 {
		cfg.SlippageBps = DefaultConfig().SlippageBps
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		config: cfg,
		router: router,
		logger: logger,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler builds the HTTP handler with all middleware applied
func (s *Server) Handler() http.Handler {
	mux := chi.NewMux()

	mux.Use(s.requestLogger)
	mux.Use(s.recoverer)
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Timeout(60 * time.Second))
	if s.config.EnableMetrics {
		mux.Use(metrics.HTTPMiddleware)
	}
	if s.config.RatePerMinute > 0 {
		mux.Use(httprate.LimitByIP(s.config.RatePerMinute, time.Minute))
	}

	if s.config.EnableMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "flip-bridge-quote"})
	})
	mux.Get("/{srcAddr}/{srcDecimals}/{srcSymbol}/{dstAddr}/{dstDecimals}/{dstSymbol}/{amount}/{recipient}", s.handleQuote)

	return newCORSHandler(s.config.AllowedOrigins, mux)
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.WithField("address", s.config.Address).Info("quoting server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down quoting server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start),
			"remote":   r.RemoteAddr,
		}).Info("request")
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				s.logger.WithFields(logrus.Fields{
					"panic": rvr,
					"path":  r.URL.Path,
				}).Error("recovered from panic")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func newCORSHandler(allowedOrigins []string, next http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	// CORS forbids wildcard origins with credentials
	allowCredentials := !(len(allowedOrigins) == 1 && allowedOrigins[0] == "*")

	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: allowCredentials,
		MaxAge:           int(2 * time.Hour / time.Second),
	}).Handler(next)
}
