package phonebook

// options.go handles options that can be used to control the GraphQL server.
// These options are just passed on to the handler. (See internal/handler/options.go
// for details on how closures are used to handle options.)

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	// handler options
	log                                        *zap.Logger
	noIntrospection, noConcurrency             bool
	initialTimeout, pingFrequency, pongTimeout time.Duration
}

// Logger sets the logger used for requests, websocket problems and resolver panics
func Logger(log *zap.Logger) func(*options) {
	return func(opt *options) {
		opt.log = log
	}
}

// NoIntrospection controls whether introspection queries are permitted
func NoIntrospection(on bool) func(*options) {
	return func(opt *options) {
		opt.noIntrospection = on
	}
}

// NoConcurrency controls whether concurrent execution of queries (but not mutations) is permitted
func NoConcurrency(on bool) func(*options) {
	return func(opt *options) {
		opt.noConcurrency = on
	}
}

// InitialTimeout sets the length time to wait from when the websocket is opened until the
// "connection_init" message is received. If the message is not received from the client
// within the time limit then the WS is closed.
func InitialTimeout(timeout time.Duration) func(*options) {
	return func(opt *options) {
		opt.initialTimeout = timeout
	}
}

// PingFrequency says how often to send a "ping" message (if the client connects with new
// GraphQL websocket protocol) or a "ka" (keep alive) message (old protocol)
func PingFrequency(freq time.Duration) func(*options) {
	return func(opt *options) {
		opt.pingFrequency = freq
	}
}

// PongTimeout set the length time to wait for a "pong" message from the client after
// a "ping" message is sent. If the message is not received from the client
// within the time limit then the WS is closed.
func PongTimeout(timeout time.Duration) func(*options) {
	return func(opt *options) {
		opt.pongTimeout = timeout
	}
}
