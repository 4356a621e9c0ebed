package wsrouter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

// Messages on the wire are flat JSON objects with a mandatory "type" field;
// the remaining fields are handler-specific and are handed to the handler as
// the raw message.
type envelope struct {
	Type string `json:"type"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error

type Middleware func(next HandlerFunc) HandlerFunc

type WSRouter struct {
	routes      map[string]HandlerFunc
	middlewares []Middleware
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

// Use appends a middleware applied to every handler. Must be called before
// Handle.
func (r *WSRouter) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}

	r.routes[messageType] = handler
}

// ServeConn reads messages from the connection until reading fails and
// dispatches each one to the matching handler. A message that does not parse
// or names an unknown type is reported via onError and the loop keeps going;
// only a read failure (closed connection) ends the loop.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn, onError func(ctx context.Context, err error)) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			onError(ctx, fmt.Errorf("malformed message: %w", err))
			continue
		}

		handler, ok := r.routes[env.Type]
		if !ok {
			onError(ctx, fmt.Errorf("unknown message type %q", env.Type))
			continue
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, env.Type)
		if err := handler(msgCtx, conn, raw); err != nil {
			onError(msgCtx, err)
		}
	}
}
