package wsrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialPair upgrades one server-side connection and returns the client end to
// drive it with.
func dialPair(t *testing.T, serve func(conn *websocket.Conn)) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serve(conn)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestServeConnDispatches(t *testing.T) {
	router := New()

	got := make(chan string, 4)
	router.Handle("ping", func(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
		var payload struct {
			Value string `json:"value"`
		}
		require.NoError(t, json.Unmarshal(msg, &payload))
		got <- GetMessageTypeFromCtx(ctx) + ":" + payload.Value
		return nil
	})

	done := make(chan error, 1)
	client := dialPair(t, func(conn *websocket.Conn) {
		done <- router.ServeConn(context.Background(), conn, func(ctx context.Context, err error) {
			t.Errorf("unexpected dispatch error: %v", err)
		})
	})

	require.NoError(t, client.WriteJSON(map[string]string{"type": "ping", "value": "v1"}))

	select {
	case msg := <-got:
		assert.Equal(t, "ping:v1", msg)
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}

	// closing the client ends the serve loop with a read error
	client.Close()
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("serve loop did not stop")
	}
}

func TestServeConnSurvivesBadMessages(t *testing.T) {
	router := New()

	got := make(chan struct{}, 1)
	router.Handle("ok", func(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
		got <- struct{}{}
		return nil
	})

	errs := make(chan error, 4)
	client := dialPair(t, func(conn *websocket.Conn) {
		router.ServeConn(context.Background(), conn, func(ctx context.Context, err error) {
			errs <- err
		})
	})

	// malformed JSON, then an unknown type; neither may end the loop
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("{oops")))
	require.NoError(t, client.WriteJSON(map[string]string{"type": "nope"}))
	require.NoError(t, client.WriteJSON(map[string]string{"type": "ok"}))

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("handler was not reached after bad messages")
	}
	assert.Len(t, errs, 2)
}

func TestMiddlewareOrder(t *testing.T) {
	router := New()

	var order []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
				order = append(order, name)
				return next(ctx, conn, msg)
			}
		}
	}
	router.Use(mw("outer"))
	router.Use(mw("inner"))
	router.Handle("x", func(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
		order = append(order, "handler")
		return nil
	})

	err := router.routes["x"](context.Background(), nil, json.RawMessage(`{"type":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestGetMessageTypeFromCtxWithoutValue(t *testing.T) {
	assert.Equal(t, "", GetMessageTypeFromCtx(context.Background()))
}
