// Package main provides a CI-friendly smoke test for backoffice session sync.
//
// Against a running server it validates:
//   - the guard redirects an anonymous visit to the login page
//   - JSON login sets the session cookies
//   - two websocket tabs receive hello and answer ping with pong
//   - logout fans REMOVE_TOKENS out to both tabs
//   - the guard redirects again after logout
//
// Plain http targets need BACKOFFICE_COOKIE_SECURE=false on the server, or the jar drops the cookies.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"backoffice/cmd/internal/session"
	"backoffice/cmd/internal/sessionsync"

	"github.com/coder/websocket"
)

const maxReadBytes = 1 << 20

type smokeClient struct {
	name     string
	conn     *websocket.Conn
	clientID string

	inbox chan sessionsync.Envelope
	errCh chan error
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "server base URL")
		origin   = flag.String("origin", "http://localhost", "Origin header for the websocket handshake")
		login    = flag.String("login", "admin", "username or email")
		password = flag.String("password", os.Getenv("BACKOFFICE_SMOKE_PASSWORD"), "password (default $BACKOFFICE_SMOKE_PASSWORD)")
		timeout  = flag.Duration("timeout", 7*time.Second, "per-step timeout")
		verbose  = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	base, err := validateBaseURL(*baseURL)
	if err != nil {
		fatalf("invalid -url: %v", err)
	}
	if *password == "" {
		fatalf("missing -password")
	}

	jar, _ := cookiejar.New(nil)
	hc := &http.Client{
		Jar:     jar,
		Timeout: *timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	mustStatus(hc, http.MethodGet, base.JoinPath("/").String(), nil, nil, http.StatusFound)
	mustStatus(hc, http.MethodGet, base.JoinPath("/login").String(), nil, nil, http.StatusOK)

	body, _ := json.Marshal(map[string]string{"login": *login, "password": *password})
	mustStatus(hc, http.MethodPost, base.JoinPath("/auth/login").String(), body,
		http.Header{"Content-Type": {"application/json"}}, http.StatusOK)
	mustStatus(hc, http.MethodGet, base.JoinPath("/").String(), nil, nil, http.StatusOK)

	root := context.Background()
	wsURL := *base
	wsURL.Scheme = map[string]string{"http": "ws", "https": "wss"}[base.Scheme]
	wsURL.Path = "/ws/session"

	cookies := cookieHeader(jar.Cookies(base))
	a := mustConnect(root, "A", wsURL.String(), *origin, cookies, *timeout)
	defer closeWS(a.conn)
	b := mustConnect(root, "B", wsURL.String(), *origin, cookies, *timeout)
	defer closeWS(b.conn)

	if *verbose {
		fmt.Printf("connected: A=%s B=%s origin=%q\n", a.clientID, b.clientID, *origin)
	}

	for _, c := range []*smokeClient{a, b} {
		mustWriteWithTimeout(root, c.conn, sessionsync.Envelope{V: sessionsync.Version, Type: sessionsync.TypePing}, *timeout)
		c.mustReadUntilType(root, sessionsync.TypePong, *timeout)
	}

	csrf := cookieValue(jar.Cookies(base), "csrf_token")
	mustStatus(hc, http.MethodPost, base.JoinPath("/auth/logout").String(), []byte("{}"),
		http.Header{"Content-Type": {"application/json"}, "X-CSRF-Token": {csrf}}, http.StatusNoContent)

	for _, c := range []*smokeClient{a, b} {
		env := c.mustReadUntilType(root, sessionsync.TypeAction, *timeout)
		var act session.Action
		if err := json.Unmarshal(env.Payload, &act); err != nil {
			fatalf("unmarshal action (%s): %v", c.name, err)
		}
		if act.Type != session.ActionRemoveTokens {
			fatalf("unexpected action (%s): %s", c.name, act.Type)
		}
	}

	mustStatus(hc, http.MethodGet, base.JoinPath("/").String(), nil, nil, http.StatusFound)

	fmt.Printf("OK: A=%s B=%s logout fanned out\n", a.clientID, b.clientID)
}

func validateBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

func mustStatus(hc *http.Client, method, target string, body []byte, h http.Header, want int) {
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	if err != nil {
		fatalf("%s %s: %v", method, target, err)
	}
	for k, vs := range h {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := hc.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, target, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != want {
		fatalf("%s %s: status=%d want=%d", method, target, resp.StatusCode, want)
	}
}

func mustConnect(parent context.Context, name, wsURL, origin, cookies string, stepTimeout time.Duration) *smokeClient {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}
	h.Set("Cookie", cookies)

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{sessionsync.Subprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect %s: %v", name, err)
	}
	if got := conn.Subprotocol(); got != sessionsync.Subprotocol {
		fatalf("subprotocol mismatch (%s): got=%q want=%q", name, got, sessionsync.Subprotocol)
	}
	conn.SetReadLimit(maxReadBytes)

	c := &smokeClient{
		name:  name,
		conn:  conn,
		inbox: make(chan sessionsync.Envelope, 64),
		errCh: make(chan error, 1),
	}
	c.startReadLoop()

	hello := c.mustReadUntilType(parent, sessionsync.TypeHello, stepTimeout)
	var p sessionsync.HelloPayload
	if err := json.Unmarshal(hello.Payload, &p); err != nil {
		fatalf("unmarshal hello payload (%s): %v", name, err)
	}
	if strings.TrimSpace(p.ClientID) == "" {
		fatalf("hello missing client_id (%s)", name)
	}
	c.clientID = p.ClientID
	return c
}

func (c *smokeClient) startReadLoop() {
	go func() {
		defer close(c.inbox)

		for {
			_, data, err := c.conn.Read(context.Background())
			if err != nil {
				c.fail(err)
				return
			}

			var env sessionsync.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				c.fail(fmt.Errorf("bad json: %w", err))
				return
			}
			if err := env.Validate(); err != nil {
				c.fail(fmt.Errorf("bad envelope: %w", err))
				return
			}

			select {
			case c.inbox <- env:
			default:
				c.fail(errors.New("inbox overflow: consumer too slow"))
				return
			}
		}
	}()
}

func (c *smokeClient) fail(err error) {
	select {
	case c.errCh <- err:
	default:
	}
}

func (c *smokeClient) mustReadUntilType(parent context.Context, wantType string, stepTimeout time.Duration) sessionsync.Envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for %q (%s): %v", wantType, c.name, ctx.Err())
		case err := <-c.errCh:
			fatalf("connection error while waiting for %q (%s): %v", wantType, c.name, err)
		case env, ok := <-c.inbox:
			if !ok {
				fatalf("connection closed while waiting for %q (%s)", wantType, c.name)
			}
			if env.Type == wantType {
				return env
			}
			if env.Type == sessionsync.TypeError {
				var ep sessionsync.ErrorPayload
				_ = json.Unmarshal(env.Payload, &ep)
				fatalf("server error (%s): code=%q msg=%q", c.name, ep.Code, ep.Message)
			}
		}
	}
}

func mustWriteWithTimeout(parent context.Context, conn *websocket.Conn, env sessionsync.Envelope, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		fatalf("marshal envelope: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		fatalf("write failed: %v", err)
	}
}

func cookieHeader(cs []*http.Cookie) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

func cookieValue(cs []*http.Cookie, name string) string {
	for _, c := range cs {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
