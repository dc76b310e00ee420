// Package sessionsync pushes session mutations to every open tab of the same user.
//
// Each tab holds one websocket to the gateway. When a login, refresh or logout request
// dispatches an action on its session store, the action is redacted and fanned out through the
// Hub so the other tabs can follow (a logout in one tab sends the others to the login page).
//
// Wire format is JSON text frames:
//
//	{"v":1,"type":"session.action","id":"01J...","ts":"...","payload":{"type":"REMOVE_TOKENS"}}
//
// Clients may send {"type":"ping"} and get a "pong" back. Anything else is answered with an
// "error" frame.
package sessionsync
