// Package mcpauthd assembles the TaskM authorization server: the
// OAuth endpoints, the discovery documents, and the bearer gate in
// front of a caller-supplied MCP tool dispatcher, all behind a single
// http.Handler.
package mcpauthd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/taskm-dev/mcp-authd/authserver"
	"github.com/taskm-dev/mcp-authd/gate"
	"github.com/taskm-dev/mcp-authd/internal/logctx"
	"github.com/taskm-dev/mcp-authd/storage"
)

var _ http.Handler = (*Handler)(nil)

// MCPPath is where the protected MCP transport is mounted.
const MCPPath = "/mcp"

// protectedResourceMetadataPath is advertised in bearer challenges.
const protectedResourceMetadataPath = "/.well-known/oauth-protected-resource"

// Option configures the Handler.
type Option func(*newConfig)

type newConfig struct {
	logger *slog.Logger
	realm  string
}

// WithLogger sets the slog logger used across the handler. If not
// provided, slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *newConfig) { c.logger = l }
}

// WithRealm sets the HTTP authentication realm advertised in bearer
// challenges. Empty (the default) omits the attribute.
func WithRealm(realm string) Option {
	return func(c *newConfig) { c.realm = realm }
}

// Handler is the composed HTTP surface. Each request is handled
// independently; all durable state lives in the injected store.
type Handler struct {
	mux        *http.ServeMux
	log        *slog.Logger
	serverName string
}

// New constructs the Handler.
//
// Required:
//   - store: the key-value store holding clients, codes and tokens
//   - protected: the MCP tool dispatcher mounted behind the bearer
//     gate at MCPPath
//   - cfg: the allow-listed identity and CORS settings
func New(store storage.Storage, protected http.Handler, cfg Config, opts ...Option) (*Handler, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if protected == nil {
		return nil, fmt.Errorf("protected handler is required")
	}

	nc := &newConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(nc)
	}
	log := slog.New(logctx.Handler{Handler: nc.logger.Handler()})

	serverName := cfg.ServerName
	if serverName == "" {
		serverName = "TaskM"
	}

	st := authserver.NewStore(store)
	as, err := authserver.New(st, cfg.AllowedEmail,
		authserver.WithLogger(log),
		authserver.WithServerName(serverName),
	)
	if err != nil {
		return nil, err
	}

	g, err := gate.New(protected, authserver.NewAuthenticator(st), protectedResourceMetadataPath,
		gate.WithLogger(log),
		gate.WithRealm(nc.realm),
		gate.WithAllowedOrigins(cfg.corsOrigins()),
	)
	if err != nil {
		return nil, err
	}

	h := &Handler{
		mux:        http.NewServeMux(),
		log:        log,
		serverName: serverName,
	}

	as.Routes(h.mux)
	h.mux.Handle(MCPPath, g)
	h.mux.Handle(MCPPath+"/", g)
	h.mux.HandleFunc("GET /{$}", h.handleHealth)

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r.WithContext(logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": h.serverName,
	})
}
