package handler

// options.go handles setting of handler options

// The use of closures for options makes it simple for the caller to add any desired options: handler.New()
// takes as its last (variadic) parameter a slice of closures each with the signature func(*Handler).  The
// option functions below (NoIntrospection, etc) return such a closure which captures the option value, so
// that the handler is modified when SetOptions runs the closure.  For example, in this call:
//
//   handler.New(schema, resolvers, handler.NoConcurrency(true))
//
// handler.NoConcurrency(true) returns a closure which sets the noConcurrency field of the handler to true.
//
// A pitfall is that if the same option function is used more than once then only the last use has any effect.

import (
	"time"

	"go.uber.org/zap"
)

const (
	defaultInitialTimeout = 10 * time.Second // how long to wait for connection_init after the WS is opened
	defaultPingFrequency  = 20 * time.Second // how often to send a ping (ka in old protocol) message to the client
	defaultPongTimeout    = 5 * time.Second  // how long to wait for a pong after sending a ping
)

// SetOptions takes a slice of handler options (closures) and executes them
func (h *Handler) SetOptions(options ...func(*Handler)) {
	for _, option := range options {
		option(h)
	}

	// Set any options that still have their unset (zero) value
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.initialTimeout == 0 {
		h.initialTimeout = defaultInitialTimeout
	}
	if h.pingFrequency == 0 {
		h.pingFrequency = defaultPingFrequency
	}
	if h.pongTimeout == 0 {
		h.pongTimeout = defaultPongTimeout
	}
}

// Logger sets where the handler logs requests and problems (nothing is logged by default)
func Logger(log *zap.Logger) func(*Handler) {
	return func(h *Handler) {
		h.log = log
	}
}

// NoIntrospection turns off all introspection queries (except __typename)
func NoIntrospection(on bool) func(*Handler) {
	return func(h *Handler) {
		h.noIntrospection = on
	}
}

// NoConcurrency turns off concurrent execution of queries (mutations are never run concurrently)
func NoConcurrency(on bool) func(*Handler) {
	return func(h *Handler) {
		h.noConcurrency = on
	}
}

// InitialTimeout sets the length time to wait from when the websocket is opened until the
// "connection_init" message is received. If the message is not received from the client
// within the time limit then the WS is closed.
func InitialTimeout(timeout time.Duration) func(*Handler) {
	return func(h *Handler) {
		h.initialTimeout = timeout // timeout value is "captured" and returned as part of the func
	}
}

// PingFrequency says how often to send a "ping" message (if the client connects with new
// protocol) or a "ka" (keep alive) message (old protocol).  A negative value turns them off.
func PingFrequency(freq time.Duration) func(*Handler) {
	return func(h *Handler) {
		h.pingFrequency = freq
	}
}

// PongTimeout set the length time to wait for a "pong" message from the client after
// a "ping" message is sent. If the message is not received from the client
// within the time limit then the WS is closed.
func PongTimeout(timeout time.Duration) func(*Handler) {
	return func(h *Handler) {
		h.pongTimeout = timeout
	}
}
