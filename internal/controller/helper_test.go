package controller

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// upgradedConn returns the server side of a live websocket connection and
// the client end to read from.
func upgradedConn(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	ready := make(chan *websocket.Conn, 1)
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		ready <- conn
		<-done
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return <-ready, client
}

// Two participants acting at the same moment both fan out to every third
// connection from their own handler goroutines; without per-connection write
// serialization the websocket library panics on the concurrent write.
func TestConcurrentBroadcastsToOneConn(t *testing.T) {
	c := NewController(nil, slog.Default())

	serverConn, client := upgradedConn(t)
	conns := []*websocket.Conn{serverConn}

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				c.broadcast(context.Background(), conns, &typeOnlyOutput{Type: "chat"})
			}
		}()
	}

	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	for received := 0; received < writers*perWriter; received++ {
		var out typeOnlyOutput
		require.NoError(t, client.ReadJSON(&out))
		require.Equal(t, "chat", out.Type)
	}
	wg.Wait()
}

// The voice relay shares the same per-connection lock, so overlapping JSON
// and binary writes to one connection stay serialized as well.
func TestConcurrentMixedWritesToOneConn(t *testing.T) {
	c := NewController(nil, slog.Default())

	serverConn, client := upgradedConn(t)
	frame := []byte{0x01, 0x02, 0x03}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				require.NoError(t, c.writeBinary(serverConn, frame))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				require.NoError(t, c.writeToConn(context.Background(), serverConn, &typeOnlyOutput{Type: "pong"}))
			}
		}()
	}

	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	binary, text := 0, 0
	for binary+text < 200 {
		messageType, payload, err := client.ReadMessage()
		require.NoError(t, err)
		switch messageType {
		case websocket.BinaryMessage:
			require.Equal(t, frame, payload)
			binary++
		case websocket.TextMessage:
			text++
		}
	}
	require.Equal(t, 100, binary)
	require.Equal(t, 100, text)
	wg.Wait()
}
