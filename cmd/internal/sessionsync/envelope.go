package sessionsync

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"backoffice/cmd/identity"
	"backoffice/cmd/internal/session"
)

// Version is the envelope schema version.
const Version = 1

const (
	TypeHello  = "hello"
	TypeAction = "session.action"
	TypePing   = "ping"
	TypePong   = "pong"
	TypeError  = "error"
)

// Envelope is one websocket frame.
type Envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HelloPayload is sent once after the upgrade.
type HelloPayload struct {
	ClientID string `json:"client_id"`
}

// ErrorPayload describes a rejected client frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validate checks the fields a client frame must carry.
func (e Envelope) Validate() error {
	if e.V != 0 && e.V != Version {
		return errors.New("unsupported version")
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing type")
	}
	return nil
}

func newEnvelope(typ string, payload any, now time.Time) (Envelope, error) {
	env := Envelope{V: Version, Type: typ, TS: now.UTC()}

	id, err := identity.NewULID(now)
	if err != nil {
		return Envelope{}, err
	}
	env.ID = id

	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, err
		}
		env.Payload = b
	}
	return env, nil
}

// ActionEnvelope wraps a redacted copy of a.
func ActionEnvelope(a session.Action, now time.Time) (Envelope, error) {
	return newEnvelope(TypeAction, a.Redacted(), now)
}
