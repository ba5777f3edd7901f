package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	cachex "github.com/dhraviq/agent-gateway/gateway/cache"
	"github.com/dhraviq/agent-gateway/gateway/chat"
	contractx "github.com/dhraviq/agent-gateway/gateway/contract"
	"github.com/dhraviq/agent-gateway/gateway/dispatch"
	memoryx "github.com/dhraviq/agent-gateway/gateway/memory"
	"github.com/dhraviq/agent-gateway/gateway/notify"
	"github.com/dhraviq/agent-gateway/gateway/persona"
	"github.com/dhraviq/agent-gateway/gateway/sessionlog"
)

type fakeCompleter struct {
	err  error
	text string
}

func (f *fakeCompleter) Complete(ctx context.Context, system string, conv []contractx.Turn, opts contractx.CompletionOptions) (contractx.Completion, error) {
	if f.err != nil {
		return contractx.Completion{}, f.err
	}
	return contractx.Completion{Text: f.text}, nil
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func newTestServer(t *testing.T, cfg Config, backend contractx.Completer, pinger Pinger) *Server {
	t.Helper()

	dispatcher := dispatch.New(
		persona.NewRegistry(),
		backend,
		sessionlog.NewRecorder(nil),
		nil,
		notify.NewTrigger(nil),
	)
	chatSvc, err := chat.New(memoryx.NewStore(), cachex.New(time.Hour), backend, nil)
	if err != nil {
		t.Fatalf("chat.New() error = %v", err)
	}
	return New(cfg, dispatcher, chatSvc, pinger)
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRunAgentsValidatesInput(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{}, &fakeCompleter{text: "x"}, nil)
	h := s.Handler()

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", "{"},
		{"missing question", `{"userId":"u1"}`},
		{"missing user", `{"question":"q"}`},
	}
	for _, tc := range cases {
		rec := doJSON(t, h, http.MethodPost, "/run_agents", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", tc.name, rec.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp["detail"] == "" {
			t.Fatalf("%s: body = %s, want a detail message", tc.name, rec.Body.String())
		}
	}
}

func TestRunAgentsReturnsDispatchResult(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{}, &fakeCompleter{text: "an answer"}, nil)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/run_agents",
		`{"userId":"u1","question":"how do I start","agents":["GoalClarifier"]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status    string            `json:"status"`
		SessionID string            `json:"sessionId"`
		Responses map[string]string `json:"responses"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	if resp.Status != "success" {
		t.Fatalf("status = %q, want success", resp.Status)
	}
	if resp.SessionID == "" {
		t.Fatalf("sessionId missing from response")
	}
	if resp.Responses["GoalClarifier"] != "an answer" {
		t.Fatalf("responses = %v", resp.Responses)
	}
}

func TestChatRequiresEmail(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{}, &fakeCompleter{text: "hi"}, nil)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/chat",
		`{"messages":[{"role":"user","content":"hello"}]}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChatReturnsReply(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{}, &fakeCompleter{text: "welcome"}, nil)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/chat",
		`{"email":"a@example.com","name":"Ana","messages":[{"role":"user","content":"hello"}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["response"] != "welcome" {
		t.Fatalf("response = %q", resp["response"])
	}
}

func TestChatHidesInternalErrors(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{}, &fakeCompleter{err: errors.New("backend exploded with secrets")}, nil)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/chat",
		`{"email":"a@example.com","messages":[{"role":"user","content":"hello"}]}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "secrets") {
		t.Fatalf("internal detail leaked to client: %s", body)
	}
	if !strings.Contains(body, "Server error") {
		t.Fatalf("body = %s, want the generic detail", body)
	}
}

func TestChatRateLimit(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{ChatPerMinute: 2}, &fakeCompleter{text: "ok"}, nil)
	h := s.Handler()
	body := `{"email":"a@example.com","messages":[{"role":"user","content":"hello"}]}`

	for i := 0; i < 2; i++ {
		if rec := doJSON(t, h, http.MethodPost, "/chat", body); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
	if rec := doJSON(t, h, http.MethodPost, "/chat", body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d after limit, want 429", rec.Code)
	}
}

func TestHealthReportsStore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		pinger Pinger
		want   string
	}{
		{"no store", nil, "not connected"},
		{"reachable", &fakePinger{}, "connected"},
		{"unreachable", &fakePinger{err: errors.New("down")}, "not connected"},
	}
	for _, tc := range cases {
		s := newTestServer(t, Config{}, &fakeCompleter{text: "x"}, tc.pinger)
		rec := doJSON(t, s.Handler(), http.MethodGet, "/health", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", tc.name, rec.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: decode response: %v", tc.name, err)
		}
		if resp["status"] != "OK" || resp["store"] != tc.want {
			t.Fatalf("%s: body = %v, want store %q", tc.name, resp, tc.want)
		}
	}
}

func TestCORSAllowsKnownOrigin(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{AllowedOrigins: "https://dhraviq.com"}, &fakeCompleter{text: "x"}, nil)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://dhraviq.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://dhraviq.com" {
		t.Fatalf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("Allow-Credentials = %q", got)
	}
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{AllowedOrigins: "https://dhraviq.com"}, &fakeCompleter{text: "x"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("Allow-Origin = %q for unknown origin, want empty", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{AllowedOrigins: "https://dhraviq.com"}, &fakeCompleter{text: "x"}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "https://dhraviq.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Fatalf("Allow-Methods = %q", got)
	}
}
