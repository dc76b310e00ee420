package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"backoffice/cmd/internal/auth/token"
	"backoffice/cmd/internal/durable"
	"backoffice/cmd/internal/session"
	"backoffice/cmd/internal/sessionsync"

	"github.com/coder/websocket"
)

const adminPassword = "correct horse battery staple"

type testServer struct {
	app    *App
	srv    *httptest.Server
	client *http.Client
	base   *url.URL
}

func newTestServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()

	t.Setenv("BACKOFFICE_COOKIE_SECURE", "false")
	t.Setenv("BACKOFFICE_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("BACKOFFICE_ARGON2_ITERATIONS", "1")
	t.Setenv("BACKOFFICE_ARGON2_PARALLELISM", "1")
	t.Setenv("BACKOFFICE_DATABASE_URL", "")

	cfg := LoadConfig()
	cfg.SeedAdminUsername = "admin"
	cfg.SeedAdminEmail = "admin@example.com"
	cfg.SeedAdminPassword = adminPassword
	if mutate != nil {
		mutate(&cfg)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		_ = a.Close(context.Background())
		srv.Close()
	})

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	base, _ := url.Parse(srv.URL)

	return &testServer{
		app: a,
		srv: srv,
		client: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		base: base,
	}
}

func (s *testServer) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := s.client.Get(s.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func (s *testServer) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := s.client.PostForm(s.srv.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	_ = resp.Body.Close()
	return resp
}

func (s *testServer) cookie(name string) string {
	for _, c := range s.client.Jar.Cookies(s.base) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (s *testServer) cookieHeader() string {
	var parts []string
	for _, c := range s.client.Jar.Cookies(s.base) {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// signIn runs the browser flow: visit the login page for a CSRF cookie, then post the form.
func (s *testServer) signIn(t *testing.T, next string) *http.Response {
	t.Helper()

	resp, _ := s.get(t, "/login?next="+url.QueryEscape(next))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login page status=%d", resp.StatusCode)
	}
	csrf := s.cookie("csrf_token")
	if csrf == "" {
		t.Fatalf("login page did not set a csrf cookie")
	}

	return s.postForm(t, "/auth/login", url.Values{
		"login":      {"admin"},
		"password":   {adminPassword},
		"csrf_token": {csrf},
		"next":       {next},
	})
}

func TestApp_GuardRedirectsThenLoginOpensSection(t *testing.T) {
	s := newTestServer(t, nil)

	resp, body := s.get(t, "/about-us")
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
		t.Fatalf("status=%d location=%q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if body != "" {
		t.Fatalf("denied mount rendered %q", body)
	}

	resp = s.signIn(t, "/about-us")
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/about-us" {
		t.Fatalf("login status=%d location=%q", resp.StatusCode, resp.Header.Get("Location"))
	}

	keys := session.DefaultKeys()
	if s.cookie(keys.AccessToken) == "" || s.cookie(keys.RefreshToken) == "" || s.cookie(keys.User) == "" {
		t.Fatalf("session cookies missing after login: %s", s.cookieHeader())
	}

	resp, body = s.get(t, "/about-us")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("section status=%d", resp.StatusCode)
	}
	if !strings.Contains(body, "<h1>About Us</h1>") || !strings.Contains(body, `href="/departments"`) {
		t.Fatalf("unexpected section body:\n%s", body)
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Fatalf("security headers missing")
	}
}

func TestApp_LogoutKeepsUserAndRedirects(t *testing.T) {
	s := newTestServer(t, nil)
	s.signIn(t, "/")

	resp := s.postForm(t, "/auth/logout", url.Values{"csrf_token": {s.cookie("csrf_token")}})
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("logout status=%d location=%q", resp.StatusCode, resp.Header.Get("Location"))
	}

	keys := session.DefaultKeys()
	if s.cookie(keys.AccessToken) != "" || s.cookie(keys.RefreshToken) != "" {
		t.Fatalf("tokens survived logout: %s", s.cookieHeader())
	}
	if s.cookie(keys.User) == "" {
		t.Fatalf("logout must keep the user entry")
	}

	resp, _ = s.get(t, "/")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status after logout=%d", resp.StatusCode)
	}
}

func TestApp_GuardVerifiesTokensWhenEnabled(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.GuardVerifyTokens = true })

	keys := session.DefaultKeys()
	s.client.Jar.SetCookies(s.base, []*http.Cookie{{Name: keys.AccessToken, Value: "token-123", Path: "/"}})

	resp, _ := s.get(t, "/")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("forged credential must be denied, status=%d", resp.StatusCode)
	}

	s.signIn(t, "/")
	resp, _ = s.get(t, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signed credential must pass, status=%d", resp.StatusCode)
	}
}

func TestApp_ForgedRoleDoesNotOpenAdminSections(t *testing.T) {
	s := newTestServer(t, nil)

	keys := session.DefaultKeys()
	forged, err := session.EncodeUser(&session.UserProfile{ID: "x", Role: "admin"})
	if err != nil {
		t.Fatalf("EncodeUser: %v", err)
	}
	s.client.Jar.SetCookies(s.base, []*http.Cookie{
		{Name: keys.AccessToken, Value: "token-123", Path: "/"},
		{Name: keys.User, Value: forged, Path: "/"},
	})

	for _, path := range []string{"/departments", "/join-us"} {
		if resp, _ := s.get(t, path); resp.StatusCode != http.StatusForbidden {
			t.Fatalf("%s status=%d", path, resp.StatusCode)
		}
	}
}

func TestApp_HealthReadyMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	if resp, body := s.get(t, "/healthz"); resp.StatusCode != http.StatusOK || body != "ok\n" {
		t.Fatalf("healthz status=%d body=%q", resp.StatusCode, body)
	}
	if resp, _ := s.get(t, "/readyz"); resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz status=%d", resp.StatusCode)
	}

	s.get(t, "/partner")
	s.signIn(t, "/partner")
	s.get(t, "/partner")

	_, body := s.get(t, "/metrics")
	for _, want := range []string{
		`backoffice_guard_decisions_total{state="denied"} 1`,
		`backoffice_guard_decisions_total{state="allowed"} 1`,
		`backoffice_login_attempts_total{outcome="success"} 1`,
		`backoffice_session_dispatch_total{action="SET_TOKENS"} 1`,
		`backoffice_session_dispatch_total{action="SET_USER_DATA"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}

func TestApp_ReadinessRequiresDB(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.ReadinessRequireDB = true })

	if resp, _ := s.get(t, "/readyz"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", resp.StatusCode)
	}
}

// dialSession opens /ws/session with the client's cookies and returns a frame reader.
func (s *testServer) dialSession(t *testing.T, ctx context.Context) (*websocket.Conn, func() sessionsync.Envelope) {
	t.Helper()

	u := *s.base
	u.Scheme = "ws"
	u.Path = "/ws/session"

	h := http.Header{}
	h.Set("Origin", "http://localhost")
	h.Set("Cookie", s.cookieHeader())

	conn, resp, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		Subprotocols: []string{sessionsync.Subprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	read := func() sessionsync.Envelope {
		t.Helper()
		_, b, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var env sessionsync.Envelope
		if err := json.Unmarshal(b, &env); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return env
	}

	if env := read(); env.Type != sessionsync.TypeHello {
		t.Fatalf("first frame=%q", env.Type)
	}
	return conn, read
}

// browser returns a second client with its own cookie jar against the same server.
func (s *testServer) browser(t *testing.T) *testServer {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	out := *s
	out.client = &http.Client{
		Jar:           jar,
		Timeout:       s.client.Timeout,
		CheckRedirect: s.client.CheckRedirect,
	}
	return &out
}

func TestApp_LogoutReachesOtherTabs(t *testing.T) {
	s := newTestServer(t, nil)
	s.signIn(t, "/")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, read := s.dialSession(t, ctx)

	s.postForm(t, "/auth/logout", url.Values{"csrf_token": {s.cookie("csrf_token")}})

	env := read()
	var a session.Action
	if err := json.Unmarshal(env.Payload, &a); err != nil {
		t.Fatalf("unmarshal action: %v", err)
	}
	if env.Type != sessionsync.TypeAction || a.Type != session.ActionRemoveTokens {
		t.Fatalf("env=%+v action=%+v", env, a)
	}
}

func TestApp_ForgedUserCookieReachesNoTabs(t *testing.T) {
	s := newTestServer(t, nil)
	s.signIn(t, "/")

	keys := session.DefaultKeys()
	victim := session.DecodeUser(s.cookie(keys.User))
	if victim == nil || victim.ID == "" {
		t.Fatalf("victim user cookie missing")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, read := s.dialSession(t, ctx)

	other := s.browser(t)
	if resp, _ := other.get(t, "/login"); resp.StatusCode != http.StatusOK {
		t.Fatalf("login page status=%d", resp.StatusCode)
	}
	forged, err := session.EncodeUser(&session.UserProfile{ID: victim.ID, Role: "admin"})
	if err != nil {
		t.Fatalf("EncodeUser: %v", err)
	}
	other.client.Jar.SetCookies(other.base, []*http.Cookie{{Name: keys.User, Value: forged, Path: "/"}})

	resp := other.postForm(t, "/auth/logout", url.Values{"csrf_token": {other.cookie("csrf_token")}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("logout status=%d", resp.StatusCode)
	}

	// Frames are written in order: a pong before anything else means nothing was published.
	ping, _ := json.Marshal(sessionsync.Envelope{V: sessionsync.Version, Type: sessionsync.TypePing})
	if err := conn.Write(ctx, websocket.MessageText, ping); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if env := read(); env.Type != sessionsync.TypePong {
		t.Fatalf("victim tab received %q (%s)", env.Type, env.Payload)
	}
}

func TestValidateSecurityConfig(t *testing.T) {
	ephemeral, err := token.NewPasetoManager(token.DefaultConfig())
	if err != nil {
		t.Fatalf("NewPasetoManager: %v", err)
	}
	insecure := durable.DefaultCookieOptions()
	insecure.Secure = false

	if err := ValidateSecurityConfig(Config{}, ephemeral, insecure); err != nil {
		t.Fatalf("policy off: %v", err)
	}
	if err := ValidateSecurityConfig(Config{RequireTokenKey: true}, ephemeral, durable.DefaultCookieOptions()); err == nil {
		t.Fatalf("expected ephemeral key rejection")
	}
	if err := ValidateSecurityConfig(Config{RequireSecureCookies: true}, ephemeral, insecure); err == nil {
		t.Fatalf("expected insecure cookie rejection")
	}
}
