package httpserver

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Options tunes the HTTP surface.
type Options struct {
	CSRFKey       string
	SecureCookies bool
	CORSOrigins   []string
	SessionTTL    time.Duration
}

// Server wraps the HTTP server setup.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	db         *pgxpool.Pool
}

// New builds a Server with every storefront route behind CSRF protection.
func New(addr string, logger *log.Logger, db *pgxpool.Pool, deps Deps, opts Options) (*Server, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	key, err := csrfKey(opts.CSRFKey)
	if err != nil {
		return nil, err
	}
	router, err := buildRouter(logger, db, deps, opts)
	if err != nil {
		return nil, err
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           protect(router, logger, key, opts.SecureCookies),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		httpServer: httpSrv,
		logger:     logger,
		db:         db,
	}, nil
}

// Handler exposes the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// protect adds the anti-forgery check. Forms carry the token in the _csrf
// field and script requests in the csrf-token header. Without secure cookies
// the site is served over plain HTTP and requests are marked as such.
func protect(next http.Handler, logger *log.Logger, key []byte, secure bool) http.Handler {
	mw := csrf.Protect(
		key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.FieldName("_csrf"),
		csrf.RequestHeader("csrf-token"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Printf("http: csrf rejected method=%s path=%s reason=%v", r.Method, r.URL.Path, csrf.FailureReason(r))
			http.Error(w, "invalid csrf token", http.StatusForbidden)
		})),
	)
	handler := mw(next)
	if secure {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

// csrfKey returns the first 32 bytes of the secret, the key size the cookie
// codec expects. Shorter secrets are refused.
func csrfKey(secret string) ([]byte, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("csrf key must be at least 32 bytes, got %d", len(secret))
	}
	return []byte(secret[:32]), nil
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func readyHandler(db *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not reachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
