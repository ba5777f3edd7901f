// Package server exposes the gateway over HTTP: the agent dispatch
// operation, the support chat, and a health probe.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dhraviq/agent-gateway/gateway/chat"
	contractx "github.com/dhraviq/agent-gateway/gateway/contract"
	"github.com/dhraviq/agent-gateway/gateway/dispatch"
)

type Config struct {
	Addr           string `split_words:"true" default:":8080"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" split_words:"true" default:"https://dhraviq.com,https://www.dhraviq.com,https://dhraviq.vercel.app,http://localhost:5173"`
	ChatPerMinute  int    `envconfig:"CHAT_PER_MINUTE" split_words:"true" default:"20"`
}

// Pinger reports document store reachability for the health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	dispatcher *dispatch.Dispatcher
	chat       *chat.Service
	pinger     Pinger

	origins map[string]struct{}
	limiter *clientLimiter
	httpSrv *http.Server
}

func New(cfg Config, dispatcher *dispatch.Dispatcher, chatSvc *chat.Service, pinger Pinger) *Server {
	origins := make(map[string]struct{})
	for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins[trimmed] = struct{}{}
		}
	}

	perMinute := cfg.ChatPerMinute
	if perMinute <= 0 {
		perMinute = 20
	}

	s := &Server{
		dispatcher: dispatcher,
		chat:       chatSvc,
		pinger:     pinger,
		origins:    origins,
		limiter:    newClientLimiter(perMinute),
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /run_agents", s.handleRunAgents)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("/health", s.handleHealth)
	return s.cors(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) handleRunAgents(w http.ResponseWriter, r *http.Request) {
	var req contractx.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "userId and question are required"})
		return
	}

	log.Info().Str("userId", req.UserID).Strs("agents", req.Agents).Msg("incoming dispatch request")

	result := s.dispatcher.Dispatch(r.Context(), req)
	writeJSON(w, http.StatusOK, result)
}

type chatRequest struct {
	Messages []contractx.Turn `json:"messages"`
	Email    string           `json:"email"`
	Name     string           `json:"name"`
	UID      string           `json:"uid"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.allow(clientKey(r)) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"detail": "rate limit exceeded"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "email is required"})
		return
	}

	reply, err := s.chat.Handle(r.Context(), req.Email, req.Name, req.UID, req.Messages)
	if err != nil {
		// Internal detail stays server-side.
		log.Error().Err(err).Str("identity", req.Email).Msg("chat turn failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	store := "not connected"
	if s.pinger != nil && s.pinger.Ping(r.Context()) == nil {
		store = "connected"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "OK",
		"store":  store,
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if _, ok := s.origins[origin]; ok {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", "GET, POST, HEAD, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("response encoding failed")
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
