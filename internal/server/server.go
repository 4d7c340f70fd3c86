package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jpalmerr/pulsecheck/internal/model"
	"github.com/jpalmerr/pulsecheck/internal/users"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 5 * time.Second

// UserService is the account API used by the /user routes.
type UserService interface {
	Register(ctx context.Context, in users.RegisterInput) error
	Get(ctx context.Context, phone, token string) (model.Profile, error)
	Update(ctx context.Context, in users.UpdateInput, token string) (model.Profile, error)
	Delete(ctx context.Context, phone, token string) error
}

// TokenService is the token API used by the /token routes.
type TokenService interface {
	Issue(ctx context.Context, phone, password string) (model.Token, error)
	Get(ctx context.Context, tokenID string) (model.Token, error)
	Extend(ctx context.Context, tokenID string) (model.Token, error)
	Revoke(ctx context.Context, tokenID string) error
}

// CheckService is the check API used by the /check routes.
type CheckService interface {
	Create(ctx context.Context, tokenID string, spec model.CheckSpec) (model.Check, error)
	Get(ctx context.Context, checkID, tokenID string) (model.Check, error)
	Update(ctx context.Context, checkID string, patch model.CheckPatch, tokenID string) (model.Check, error)
	Delete(ctx context.Context, checkID, tokenID string) error
}

// Config holds the server's collaborators and settings.
type Config struct {
	Users  UserService
	Tokens TokenService
	Checks CheckService
	Port   int

	// LoginPerMinute limits POST /token per client IP. Zero disables the limit.
	LoginPerMinute int

	Logger *slog.Logger
}

// Server handles HTTP requests for the pulsecheck JSON API.
//
// Three resources are served, each with POST, GET, PUT and DELETE:
//   - /user: account registration and profile management
//   - /token: login, token lookup, extension and logout
//   - /check: check registration and management
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	users      UserService
	tokens     TokenService
	checks     CheckService
	port       int
	limiter    *loginLimiter
	logger     *slog.Logger
	httpServer *http.Server
	serveErr   chan error
}

// NewServer creates a new HTTP [Server]. It does not listen until
// [Server.Start] is called.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		users:   cfg.Users,
		tokens:  cfg.Tokens,
		checks:  cfg.Checks,
		port:    cfg.Port,
		limiter: newLoginLimiter(cfg.LoginPerMinute),
		logger:  logger,
	}
}

// Handler returns the routed handler wrapped in the middleware chain:
// recovery, request id, logging, login rate limit.
func (s *Server) Handler() http.Handler {
	var h http.Handler = http.HandlerFunc(s.route)
	h = s.rateLimitLogin(h)
	h = s.logging(h)
	h = s.requestID(h)
	h = s.recovery(h)
	return h
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns once the listener is bound. When ctx is
// cancelled the server shuts down gracefully with a 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.serveErr = make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		} else {
			s.logger.Error("http server error", "error", err)
		}
		s.serveErr <- err
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", ln.Addr().String())
	return nil
}

// Wait blocks until the server started by [Server.Start] or [Server.Serve]
// stops accepting connections. It returns nil after a graceful shutdown and
// the serve error otherwise.
func (s *Server) Wait() error {
	return <-s.serveErr
}

// trimPath strips leading and trailing slashes.
func trimPath(p string) string {
	return strings.Trim(p, "/")
}

// route dispatches on the trimmed path, then on the verb.
func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	var res resource
	switch trimPath(r.URL.Path) {
	case "user":
		res = userResource{s}
	case "token":
		res = tokenResource{s}
	case "check":
		res = checkResource{s}
	default:
		s.sendJSON(w, http.StatusNotFound, messageResponse{Message: "404 - request not found!"})
		return
	}

	switch r.Method {
	case http.MethodPost:
		res.post(w, r)
	case http.MethodGet:
		res.get(w, r)
	case http.MethodPut:
		res.put(w, r)
	case http.MethodDelete:
		res.delete(w, r)
	default:
		s.sendError(w, http.StatusMethodNotAllowed, "Operation is not allowed!")
	}
}

// resource has one method per supported verb.
type resource interface {
	post(w http.ResponseWriter, r *http.Request)
	get(w http.ResponseWriter, r *http.Request)
	put(w http.ResponseWriter, r *http.Request)
	delete(w http.ResponseWriter, r *http.Request)
}

// tokenHeader returns the bearer token sent in the "token" header.
func tokenHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("token"))
}
