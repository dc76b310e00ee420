package sessionsync

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"backoffice/cmd/internal/session"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func decodeAction(t *testing.T, env Envelope) session.Action {
	t.Helper()
	if env.Type != TypeAction {
		t.Fatalf("type=%q want %q", env.Type, TypeAction)
	}
	var a session.Action
	if err := json.Unmarshal(env.Payload, &a); err != nil {
		t.Fatalf("unmarshal action: %v", err)
	}
	return a
}

func TestHub_PublishFansOutToSameUserOnly(t *testing.T) {
	h := newTestHub()

	a1 := NewClient("u1", "c1", 4)
	a2 := NewClient("u1", "c2", 4)
	b1 := NewClient("u2", "c3", 4)
	h.Join(a1)
	h.Join(a2)
	h.Join(b1)

	delivered, dropped := h.Publish("u1", session.RemoveTokens())
	if delivered != 2 || dropped != 0 {
		t.Fatalf("delivered=%d dropped=%d", delivered, dropped)
	}

	for _, c := range []*Client{a1, a2} {
		select {
		case env := <-c.Send:
			if got := decodeAction(t, env).Type; got != session.ActionRemoveTokens {
				t.Fatalf("client %s got %q", c.ID, got)
			}
		default:
			t.Fatalf("client %s got nothing", c.ID)
		}
	}
	if len(b1.Send) != 0 {
		t.Fatalf("other user must not receive frames")
	}
}

func TestHub_PublishRedactsTokens(t *testing.T) {
	h := newTestHub()
	c := NewClient("u1", "c1", 4)
	h.Join(c)

	h.Publish("u1", session.SetTokens("access-secret", "refresh-secret"))

	env := <-c.Send
	if strings.Contains(string(env.Payload), "secret") {
		t.Fatalf("token leaked: %s", env.Payload)
	}
	if got := decodeAction(t, env); got.Type != session.ActionSetTokens || got.Tokens != (session.TokenPair{}) {
		t.Fatalf("got %+v", got)
	}
}

func TestHub_PublishIgnoresUnknownActions(t *testing.T) {
	h := newTestHub()
	c := NewClient("u1", "c1", 4)
	h.Join(c)

	if delivered, _ := h.Publish("u1", session.Action{Type: "SOMETHING_ELSE"}); delivered != 0 {
		t.Fatalf("delivered=%d", delivered)
	}
	if delivered, _ := h.Publish("", session.RemoveTokens()); delivered != 0 {
		t.Fatalf("blank user delivered=%d", delivered)
	}
}

func TestHub_PublishDropsWhenQueueFull(t *testing.T) {
	h := newTestHub()
	c := NewClient("u1", "c1", 1)
	h.Join(c)

	if d, _ := h.Publish("u1", session.RemoveTokens()); d != 1 {
		t.Fatalf("first publish delivered=%d", d)
	}
	delivered, dropped := h.Publish("u1", session.RemoveTokens())
	if delivered != 0 || dropped != 1 {
		t.Fatalf("delivered=%d dropped=%d", delivered, dropped)
	}
}

func TestHub_LeaveAndCloseAll(t *testing.T) {
	h := newTestHub()
	a := NewClient("u1", "c1", 4)
	b := NewClient("u1", "c2", 4)
	h.Join(a)
	h.Join(b)

	h.Leave(a)
	if n := h.Clients("u1"); n != 1 {
		t.Fatalf("clients=%d", n)
	}
	select {
	case <-a.Done():
	default:
		t.Fatalf("left client must be closed")
	}

	h.CloseAll()
	if n := h.Clients("u1"); n != 0 {
		t.Fatalf("clients after CloseAll=%d", n)
	}
	select {
	case <-b.Done():
	default:
		t.Fatalf("CloseAll must close clients")
	}

	// Closing twice is fine.
	b.Close()
	if d, _ := h.Publish("u1", session.RemoveTokens()); d != 0 {
		t.Fatalf("delivered=%d after CloseAll", d)
	}
}
