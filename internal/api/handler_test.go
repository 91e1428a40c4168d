//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/erp-assistant/internal/domain"
	"github.com/ashureev/erp-assistant/internal/identity"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

type call struct {
	user domain.User
	kind string
	arg  string
}

type fakeChat struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeChat) HandleMessage(_ context.Context, user domain.User, text string) []domain.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{user, "message", text})
	return []domain.Reply{domain.Text("echo: " + text)}
}

func (f *fakeChat) HandleCallback(_ context.Context, user domain.User, data string) []domain.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{user, "callback", data})
	return []domain.Reply{domain.Markdown("*"+data+"*", domain.Keyboard{domain.Row(domain.Btn("Menu", "main_menu"))})}
}

func (f *fakeChat) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(identity.Middleware(true))
	h.RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, srv http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(identity.UserHeaderName, "42")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestChatMessage(t *testing.T) {
	chat := &fakeChat{}
	srv := newRouter(NewHandler(Options{Chat: chat, IsDev: true}))

	w := postJSON(t, srv, "/api/chat", `{"text":"  liste des clients "}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "42", resp.UserID)
	require.Len(t, resp.Replies, 1)
	assert.Equal(t, "echo: liste des clients", resp.Replies[0].Text)

	require.Len(t, chat.calls, 1)
	assert.Equal(t, identity.ChannelWeb, chat.calls[0].user.Channel)
}

func TestChatCallback(t *testing.T) {
	chat := &fakeChat{}
	srv := newRouter(NewHandler(Options{Chat: chat, IsDev: true}))

	w := postJSON(t, srv, "/api/chat/callback", `{"data":"menu_reports"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"user_id": "42",
		"replies": [{"text": "*menu_reports*", "markdown": true, "keyboard": [[{"label": "Menu", "data": "main_menu"}]]}]
	}`, w.Body.String())
	assert.Equal(t, "callback", chat.calls[0].kind)
}

func TestChatRejectsBadRequests(t *testing.T) {
	chat := &fakeChat{}
	srv := newRouter(NewHandler(Options{Chat: chat, IsDev: true}))

	tests := []struct {
		name, path, body string
	}{
		{"empty text", "/api/chat", `{"text":"   "}`},
		{"malformed", "/api/chat", `{"text":`},
		{"unknown field", "/api/chat", `{"txt":"hi"}`},
		{"empty data", "/api/chat/callback", `{"data":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, srv, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, chat.calls)
}

func TestChatWithoutIdentity(t *testing.T) {
	h := NewHandler(Options{Chat: &fakeChat{}})
	w := httptest.NewRecorder()
	h.Message(w, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"text":"hi"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type fakeERP struct{ err error }

func (f fakeERP) Ping(context.Context) (string, error) { return "Administrator", f.err }

type fakeNLU struct {
	enabled bool
	err     error
}

func (f fakeNLU) Enabled() bool                { return f.enabled }
func (f fakeNLU) Status(context.Context) error { return f.err }

type fakeSessions int

func (f fakeSessions) Len() int { return int(f) }

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		opts       HealthOptions
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "all ok",
			opts:       HealthOptions{ERP: fakeERP{}, NLU: fakeNLU{enabled: true}, Sessions: fakeSessions(3)},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
			wantChecks: map[string]string{"api": "ok", "erp": "ok", "nlu": "ok"},
		},
		{
			name:       "nlu down falls back",
			opts:       HealthOptions{ERP: fakeERP{}, NLU: fakeNLU{enabled: true, err: errors.New("refused")}},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
			wantChecks: map[string]string{"api": "ok", "erp": "ok", "nlu": "fallback"},
		},
		{
			name:       "nlu disabled",
			opts:       HealthOptions{NLU: fakeNLU{}},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
			wantChecks: map[string]string{"api": "ok", "nlu": "local"},
		},
		{
			name:       "erp down",
			opts:       HealthOptions{ERP: fakeERP{err: errors.New("timeout")}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
			wantChecks: map[string]string{"api": "ok", "erp": "unreachable"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHealthHandler(tt.opts).RegisterHealth(r)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			var resp HealthResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantChecks, resp.Checks)
		})
	}
}

func TestHealthReportsSessionCount(t *testing.T) {
	w := httptest.NewRecorder()
	NewHealthHandler(HealthOptions{Sessions: fakeSessions(7)}).Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 7, resp.Sessions)
}

func dialWS(t *testing.T, h *Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(newRouter(h))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.Dial(t.Context(), url, &websocket.DialOptions{
		HTTPHeader: http.Header{identity.UserHeaderName: []string{"42"}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })

	var ready wsOutbound
	require.NoError(t, wsjson.Read(t.Context(), conn, &ready))
	require.Equal(t, wsOutbound{Type: FrameReady, UserID: "42"}, ready)
	return conn
}

func TestWebSocketChat(t *testing.T) {
	chat := &fakeChat{}
	h := NewHandler(Options{Chat: chat, IsDev: true})
	conn := dialWS(t, h)
	ctx := t.Context()

	exchange := func(in wsInbound) wsOutbound {
		t.Helper()
		require.NoError(t, wsjson.Write(ctx, conn, in))
		var out wsOutbound
		require.NoError(t, wsjson.Read(ctx, conn, &out))
		return out
	}

	out := exchange(wsInbound{Type: FrameMessage, Text: "bonjour"})
	assert.Equal(t, FrameReplies, out.Type)
	require.Len(t, out.Replies, 1)
	assert.Equal(t, "echo: bonjour", out.Replies[0].Text)

	out = exchange(wsInbound{Type: FrameCallback, Data: "main_menu"})
	assert.Equal(t, "*main_menu*", out.Replies[0].Text)

	assert.Equal(t, FramePong, exchange(wsInbound{Type: FramePing}).Type)

	out = exchange(wsInbound{Type: "resize"})
	assert.Equal(t, FrameError, out.Type)
	assert.Contains(t, out.Error, "unknown frame type")

	assert.Equal(t, 1, h.Connections().Count())
	calls := chat.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "42", calls[0].user.ID)
}

func TestWebSocketRateLimit(t *testing.T) {
	chat := &fakeChat{}
	conn := dialWS(t, NewHandler(Options{Chat: chat, Limiter: denyAll{}, IsDev: true}))

	require.NoError(t, wsjson.Write(t.Context(), conn, wsInbound{Type: FrameMessage, Text: "hi"}))
	var out wsOutbound
	require.NoError(t, wsjson.Read(t.Context(), conn, &out))
	assert.Equal(t, wsOutbound{Type: FrameError, Error: "rate limit exceeded"}, out)
	assert.Empty(t, chat.recorded())
}

func TestWebSocketOriginCheck(t *testing.T) {
	h := NewHandler(Options{Chat: &fakeChat{}, AllowedOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set(identity.UserHeaderName, "42")
	w := httptest.NewRecorder()
	newRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestConnections(t *testing.T) {
	c := NewConnections()
	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}

	c.Register("42", "tab-1", conn1)
	c.Register("42", "tab-2", conn2)
	assert.Equal(t, 2, c.Count())
	assert.Same(t, conn1, c.Get("42", "tab-1"))

	// A stale unregister leaves the other tab alone.
	c.Unregister("42", "tab-1", conn2)
	assert.Equal(t, 2, c.Count())

	c.Unregister("42", "tab-1", conn1)
	assert.Nil(t, c.Get("42", "tab-1"))
	assert.Same(t, conn2, c.Get("42", "tab-2"))
	assert.Equal(t, 1, c.Count())
}
