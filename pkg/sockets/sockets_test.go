package sockets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer replies to each text frame with the same body and reports the negotiated subprotocol.
func echoServer(t *testing.T, protocols ...string) (*httptest.Server, chan string) {
	t.Helper()
	negotiated := make(chan string, 1)
	upgrader := websocket.Upgrader{Subprotocols: protocols}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		negotiated <- conn.Subprotocol()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, negotiated
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConn_DialSendReceiveInOrder(t *testing.T) {
	srv, negotiated := echoServer(t, "ANOVA_V2")

	var mu sync.Mutex
	received := []string{}
	all := make(chan struct{})
	const count = 20

	conn := New(
		WithSubprotocol("ANOVA_V2"),
		OnMessage(func(b []byte, _ Connection) {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, string(b))
			if len(received) == count {
				close(all)
			}
		}),
	)
	require.NoError(t, conn.Dial(context.Background(), wsURL(srv)))
	defer conn.Close()
	assert.Equal(t, "ANOVA_V2", <-negotiated)

	want := []string{}
	for i := 0; i < count; i++ {
		body := strings.Repeat("x", i+1)
		want = append(want, body)
		require.NoError(t, conn.Send(Msg{Body: []byte(body)}))
	}

	select {
	case <-all:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for echoes")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, received)
}

func TestConn_DialError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	conn := New()
	err := conn.Dial(context.Background(), wsURL(srv))
	assert.Error(t, err)
	assert.ErrorIs(t, conn.Send(Msg{Body: []byte("x")}), ErrClosed)
}

func TestConn_SendAfterClose(t *testing.T) {
	srv, _ := echoServer(t)

	errs := make(chan error, 1)
	conn := New(OnError(func(err error) { errs <- err }))
	require.NoError(t, conn.Dial(context.Background(), wsURL(srv)))
	require.NoError(t, conn.Close())

	assert.ErrorIs(t, conn.Send(Msg{Body: []byte("late")}), ErrClosed)
	select {
	case <-conn.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("read loop did not stop")
	}
	assert.Empty(t, errs, "Close must not be reported as an error")
}

func TestConn_ServerDropReportsError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	defer srv.Close()

	errs := make(chan error, 1)
	conn := New(OnError(func(err error) { errs <- err }))
	require.NoError(t, conn.Dial(context.Background(), wsURL(srv)))

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("expected a read error")
	}
	<-conn.Done()
}
