package sessionsync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"backoffice/cmd/identity"

	"github.com/coder/websocket"
	"golang.org/x/time/rate"
)

// Subprotocol is the websocket subprotocol clients must offer.
const Subprotocol = "backoffice.session.v1"

// ErrUnidentified is returned by an IdentifyFunc when the request carries no usable user.
var ErrUnidentified = errors.New("sessionsync: unidentified request")

// IdentifyFunc resolves the user that owns the upgrading request.
type IdentifyFunc func(r *http.Request) (userID string, err error)

// Gateway upgrades requests to websockets and attaches them to the Hub.
type Gateway struct {
	log      *slog.Logger
	hub      *Hub
	cfg      Config
	identify IdentifyFunc
	patterns []string
}

// NewGateway constructs a Gateway. identify must not be nil.
func NewGateway(log *slog.Logger, hub *Hub, cfg Config, identify IdentifyFunc) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	if hub == nil {
		hub = NewHub(log)
	}
	cfg = cfg.normalized()
	return &Gateway{
		log:      log,
		hub:      hub,
		cfg:      cfg,
		identify: identify,
		patterns: originPatterns(cfg.AllowedOrigins),
	}
}

// Hub returns the hub the gateway registers clients with.
func (g *Gateway) Hub() *Hub { return g.hub }

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := checkOrigin(r, g.cfg.OriginRequired, g.cfg.AllowedOrigins); err != nil {
		g.log.Info("sessionsync.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	userID, err := g.identify(r)
	if err != nil || userID == "" {
		g.log.Info("sessionsync.reject.unidentified", "err", err, "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:       []string{Subprotocol},
		OriginPatterns:     g.patterns,
		InsecureSkipVerify: g.cfg.DevInsecure,
	})
	if err != nil {
		g.log.Error("sessionsync.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	if sp := conn.Subprotocol(); sp != Subprotocol {
		g.log.Info("sessionsync.reject.subprotocol", "got", sp, "want", Subprotocol)
		_ = conn.Close(websocket.StatusProtocolError, "subprotocol required")
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	clientID, err := identity.NewULID(time.Now())
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "id")
		return
	}
	client := NewClient(userID, clientID, g.cfg.SendQueueSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var closeOnce sync.Once
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			g.hub.Leave(client)
			_ = conn.Close(code, reason)
			cancel()
		})
	}

	hello, err := newEnvelope(TypeHello, HelloPayload{ClientID: clientID}, time.Now())
	if err == nil {
		client.offer(hello)
	}
	g.hub.Join(client)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				// Hub.CloseAll or Leave from elsewhere.
				shutdown(websocket.StatusGoingAway, "closing")
				return
			case env := <-client.Send:
				if err := writeEnvelope(ctx, conn, env, g.cfg.WriteTimeout); err != nil {
					g.log.Info("sessionsync.write.fail", "client_id", clientID, "close_status", websocket.CloseStatus(err), "err", err)
					shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
			}
		}
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)

		t := time.NewTicker(g.cfg.HeartbeatEvery)
		defer t.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case <-t.C:
				hbCtx, hbCancel := context.WithTimeout(ctx, g.cfg.HeartbeatTimeout)
				err := conn.Ping(hbCtx)
				hbCancel()
				if err == nil {
					failures = 0
					continue
				}
				failures++
				g.log.Info("sessionsync.ping.fail", "client_id", clientID, "failures", failures, "err", err)
				if failures >= maxPingFailures {
					shutdown(websocket.StatusGoingAway, "heartbeat failed")
					return
				}
			}
		}
	}()

	limiter := rate.NewLimiter(rate.Every(g.cfg.RateWindow/time.Duration(g.cfg.RateEvents)), g.cfg.RateEvents)

	g.readLoop(ctx, conn, client, limiter, shutdown)

	shutdown(websocket.StatusNormalClosure, "bye")
	<-writerDone

	select {
	case <-heartbeatDone:
	case <-time.After(closeGrace):
	}
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, client *Client, limiter *rate.Limiter, shutdown func(websocket.StatusCode, string)) {
	for {
		readCtx, readCancel := context.WithTimeout(ctx, g.cfg.ReadIdleTimeout)
		_, data, err := conn.Read(readCtx)
		readCancel()

		if err != nil {
			switch {
			case websocket.CloseStatus(err) != -1:
				shutdown(websocket.StatusNormalClosure, "peer closed")
			case errors.Is(err, context.DeadlineExceeded):
				shutdown(websocket.StatusGoingAway, "idle")
			case errors.Is(err, context.Canceled), errors.Is(err, net.ErrClosed), errors.Is(err, io.EOF):
				shutdown(websocket.StatusNormalClosure, "closed")
			default:
				g.log.Info("sessionsync.read.fail", "client_id", client.ID, "err", err)
				shutdown(websocket.StatusAbnormalClosure, "read failed")
			}
			return
		}

		if !limiter.Allow() {
			g.sendError(client, "rate_limited", "too many frames")
			shutdown(websocket.StatusPolicyViolation, "rate limited")
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			g.sendError(client, "bad_json", "invalid JSON")
			continue
		}
		if err := env.Validate(); err != nil {
			g.sendError(client, "bad_envelope", err.Error())
			continue
		}

		switch env.Type {
		case TypePing:
			if pong, err := newEnvelope(TypePong, nil, time.Now()); err == nil {
				client.offer(pong)
			}
		default:
			g.sendError(client, "unsupported", "unsupported type: "+env.Type)
		}
	}
}

func (g *Gateway) sendError(client *Client, code, msg string) {
	env, err := newEnvelope(TypeError, ErrorPayload{Code: code, Message: msg}, time.Now())
	if err != nil {
		return
	}
	client.offer(env)
}

func writeEnvelope(parent context.Context, conn *websocket.Conn, env Envelope, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}
