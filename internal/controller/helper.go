package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// connLock returns the write mutex guarding conn. Every outbound write goes
// through it: broadcasts run on each sender's handler goroutine, so two
// participants acting at once would otherwise call WriteJSON on the same
// third connection concurrently, which the websocket library forbids.
func (c *controller) connLock(conn *websocket.Conn) *sync.Mutex {
	lock, _ := c.writeLocks.LoadOrStore(conn, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// releaseConn drops the write mutex of a connection that is gone.
func (c *controller) releaseConn(conn *websocket.Conn) {
	c.writeLocks.Delete(conn)
}

func (c *controller) writeJSON(conn *websocket.Conn, output any) error {
	lock := c.connLock(conn)
	lock.Lock()
	defer lock.Unlock()

	return conn.WriteJSON(output)
}

func (c *controller) writeBinary(conn *websocket.Conn, frame []byte) error {
	lock := c.connLock(conn)
	lock.Lock()
	defer lock.Unlock()

	return conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (c *controller) writeToConn(ctx context.Context, conn *websocket.Conn, output any) error {
	if err := c.writeJSON(conn, output); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (c *controller) broadcast(ctx context.Context, conns []*websocket.Conn, output any) error {
	for _, conn := range conns {
		if err := c.writeJSON(conn, output); err != nil {
			// a dying peer must not break fanout to the rest
			c.logger.DebugContext(ctx, "failed to write to conn", "error", err)
		}
	}

	return nil
}

func (c *controller) broadcastExcept(ctx context.Context, conns []*websocket.Conn, exclude *websocket.Conn, output any) error {
	for _, conn := range conns {
		if conn == exclude {
			continue
		}
		if err := c.writeJSON(conn, output); err != nil {
			c.logger.DebugContext(ctx, "failed to write to conn", "error", err)
		}
	}

	return nil
}

func (c *controller) writeError(ctx context.Context, conn *websocket.Conn, text string) {
	if err := c.writeToConn(ctx, conn, &errorOutput{Type: "error", Text: text}); err != nil {
		c.logger.DebugContext(ctx, "failed to write error", "error", err)
	}
}

// unmarshalInput parses and validates a message into the typed input. A
// validation failure is a malformed-message case: logged, nothing mutated,
// connection stays open.
func (c *controller) unmarshalInput(msg json.RawMessage, input any) error {
	if err := json.Unmarshal(msg, input); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("invalid payload: %+v", validationErrors)
	}

	return nil
}
