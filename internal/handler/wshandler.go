package handler

// wshandler is code for handling queries and mutations sent over a websocket.  It supports both commonly used WS protocols
// * subscriptions-transport-ws: early protocol from Apollo (sub-protocol name:graphql-ws)
// * graphql-ws is newer (official?) ws transport which can handle query/mutation/subscription (sub-protocol name:graphql-transport-ws).
// There are no subscriptions in the phone book so every operation gets a single result followed by "complete".

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"
)

// Close codes used by the graphql-transport-ws protocol
const (
	closeBadRequest         = 4400
	closeUnauthorized       = 4401
	closeInitTimeout        = 4408
	closeSubscriberExists   = 4409
	closeTooManyInitRequest = 4429
)

type (
	wsConnection struct {
		*websocket.Conn // handle for WS communications

		h *Handler // we need this for the schema etc

		newProtocol bool       // default to old
		writeMtx    sync.Mutex // websocket.Conn supports only one concurrent writer

		// cancel keeps track of the cancel function associated with each operation in progress
		//  map key = ID that identifies the operation
		//  map value = context.CancelFunc that will terminate the operation
		cancelMtx sync.Mutex
		cancel    map[string]context.CancelFunc
		running   sync.WaitGroup

		pong chan struct{} // signalled when a pong is received
	}

	wsMessage struct {
		Type    string          `json:"type"`
		ID      string          `json:"id,omitempty"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}

	wsReply struct {
		Type    string      `json:"type"`
		ID      string      `json:"id,omitempty"`
		Payload interface{} `json:"payload,omitempty"`
	}
)

var upgrader = websocket.Upgrader{
	CheckOrigin:  func(r *http.Request) bool { return true },
	Subprotocols: []string{"graphql-transport-ws", "graphql-ws"},
}

// serveWS is called in response to a GraphQL HTTP request wanting to upgrade to a WS.
// Each "subscribe" (or "start") message is executed and sends a result then a "complete" message.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", zap.Error(err))
		// nothing else required here as w's HTTP status has already been set
		return
	}
	c := &wsConnection{
		Conn:        conn,
		h:           h,
		newProtocol: conn.Subprotocol() == "graphql-transport-ws", // else assume it's the "old" (graphql-ws) WS sub-protocol
		cancel:      make(map[string]context.CancelFunc, 1),
		pong:        make(chan struct{}, 1),
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		c.running.Wait()
		if err := c.Close(); err != nil {
			h.log.Debug("websocket close", zap.Error(err))
		}
	}()

	if !c.init() {
		return
	}
	if h.pingFrequency > 0 {
		go c.keepAlive(ctx)
	}

	for {
		message, err := c.read()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("websocket read", zap.Error(err))
			}
			return
		}

		switch message.Type {
		case "subscribe", "start":
			if !c.start(ctx, message) {
				return
			}

		case "complete", "stop":
			c.stop(message.ID)

		case "ping":
			c.send(wsReply{Type: "pong"})

		case "pong":
			select {
			case c.pong <- struct{}{}:
			default:
			}

		case "connection_init":
			c.closeWith(closeTooManyInitRequest, "Too many initialisation requests")
			return

		case "connection_terminate":
			c.closeWith(websocket.CloseNormalClosure, "")
			return

		default:
			h.log.Debug("websocket unexpected message type", zap.String("type", message.Type))
			c.closeWith(closeBadRequest, "Invalid message received")
			return
		}
	}
}

// init handles the initial (high level) handshake by receiving an "init" message and sending an "ack"
func (c *wsConnection) init() bool {
	_ = c.SetReadDeadline(time.Now().Add(c.h.initialTimeout))
	message, err := c.read()
	_ = c.SetReadDeadline(time.Time{})

	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		c.h.log.Debug("websocket init timeout")
		c.closeWith(closeInitTimeout, "Connection initialisation timeout")
		return false
	case err != nil:
		c.h.log.Debug("websocket init", zap.Error(err))
		c.closeWith(closeBadRequest, "Invalid message received")
		return false
	case message.Type == "connection_terminate":
		c.closeWith(websocket.CloseNormalClosure, "")
		return false
	case message.Type != "connection_init":
		c.h.log.Debug("websocket init: unexpected message", zap.String("type", message.Type))
		if !c.newProtocol {
			c.send(wsReply{Type: "connection_error", Payload: map[string]string{"message": "expected connection_init"}})
		}
		c.closeWith(closeUnauthorized, "Unauthorized")
		return false
	}

	if !c.send(wsReply{Type: "connection_ack"}) {
		return false
	}
	if !c.newProtocol {
		return c.send(wsReply{Type: "ka"})
	}
	return true
}

// start decodes a request from a JSON message and runs it. Returns false if the connection has been closed.
func (c *wsConnection) start(ctx context.Context, message *wsMessage) bool {
	g := &gqlRequest{h: c.h}
	if err := decodeJSON(message.Payload, g); err != nil {
		c.h.log.Debug("websocket bad request payload", zap.Error(err))
		c.closeWith(closeBadRequest, "Invalid message received")
		return false
	}
	if err := FixNumberVariables(g.Variables); err != nil {
		c.sendErrors(message.ID, gqlerror.List{{Message: err.Error(), Extensions: map[string]interface{}{"code": codeBadUserInput}}})
		return true
	}

	// Add to our map of operations active in this ws (first checking that the ID is not in use)
	c.cancelMtx.Lock()
	if _, ok := c.cancel[message.ID]; ok {
		c.cancelMtx.Unlock()
		c.closeWith(closeSubscriberExists, "Subscriber for "+message.ID+" already exists")
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel[message.ID] = cancel
	c.cancelMtx.Unlock()

	c.running.Add(1)
	go func() {
		defer c.running.Done()
		defer c.stop(message.ID)

		result := g.Execute(ctx)
		if ctx.Err() != nil {
			return // stopped by the client or the connection has gone
		}
		if !result.executed {
			c.sendErrors(message.ID, result.Errors)
			return
		}
		messageType := "next"
		if !c.newProtocol {
			messageType = "data"
		}
		if c.send(wsReply{Type: messageType, ID: message.ID, Payload: result}) {
			c.send(wsReply{Type: "complete", ID: message.ID})
		}
	}()
	return true
}

// sendErrors sends an "error" message for an operation that could not be executed
func (c *wsConnection) sendErrors(ID string, errs gqlerror.List) {
	if c.newProtocol {
		c.send(wsReply{Type: "error", ID: ID, Payload: errs})
		return
	}
	c.send(wsReply{Type: "error", ID: ID, Payload: gqlResult{Errors: errs}})
	c.send(wsReply{Type: "complete", ID: ID})
}

// stop kills processing of one operation by calling the cancel function of the operation's context
func (c *wsConnection) stop(ID string) {
	c.cancelMtx.Lock()
	defer c.cancelMtx.Unlock()
	if cancel := c.cancel[ID]; cancel != nil {
		cancel()
		delete(c.cancel, ID)
	}
}

// keepAlive sends regular "ping" messages and closes the connection if there is no timely "pong" (new protocol),
// or sends "ka" messages (old protocol)
func (c *wsConnection) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(c.h.pingFrequency)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !c.newProtocol {
			if !c.send(wsReply{Type: "ka"}) {
				return
			}
			continue
		}
		if !c.send(wsReply{Type: "ping"}) {
			return
		}
		timer := time.NewTimer(c.h.pongTimeout)
		select {
		case <-c.pong:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			c.h.log.Warn("websocket pong timeout")
			_ = c.Conn.Close() // makes the read loop fail
			return
		}
	}
}

func (c *wsConnection) read() (*wsMessage, error) {
	_, reader, err := c.NextReader()
	if err != nil {
		return nil, err
	}

	var message wsMessage
	if err := json.NewDecoder(reader).Decode(&message); err != nil {
		return nil, err
	}
	return &message, nil
}

// send writes a message as JSON returning false on error
func (c *wsConnection) send(reply wsReply) bool {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()
	if err := c.WriteJSON(reply); err != nil {
		c.h.log.Debug("websocket write", zap.String("type", reply.Type), zap.Error(err))
		return false
	}
	return true
}

func (c *wsConnection) closeWith(code int, text string) {
	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()
	_ = c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}
