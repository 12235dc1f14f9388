package livereload

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startHub(t *testing.T) (*Hub, string, func()) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	srv := httptest.NewServer(hub)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	stop := func() {
		cancel()
		<-stopped
		srv.Close()
	}
	return hub, url, stop
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_BroadcastsReloads(t *testing.T) {
	hub, url, stop := startHub(t)
	defer stop()

	a := dial(t, url)
	defer a.Close()
	b := dial(t, url)
	defer b.Close()

	helloA := read(t, a)
	helloB := read(t, b)
	assert.Equal(t, TypeHello, helloA.Type)
	assert.NotEmpty(t, helloA.ID)
	assert.NotEqual(t, helloA.ID, helloB.ID)
	assert.Equal(t, 2, hub.Clients())

	hub.ReloadPage()
	assert.Equal(t, Message{Type: TypeReload}, read(t, a))
	assert.Equal(t, Message{Type: TypeReload}, read(t, b))

	hub.ReloadAsset("/app.css", "/app.123.css")
	want := Message{Type: TypeAsset, OldURL: "/app.css", NewURL: "/app.123.css"}
	assert.Equal(t, want, read(t, a))
	assert.Equal(t, want, read(t, b))
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub, url, stop := startHub(t)
	defer stop()

	conn := dial(t, url)
	read(t, conn)
	require.Equal(t, 1, hub.Clients())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHub_StopClosesClients(t *testing.T) {
	_, url, stop := startHub(t)

	conn := dial(t, url)
	defer conn.Close()
	read(t, conn)

	stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway) || strings.Contains(err.Error(), "EOF") || strings.Contains(err.Error(), "reset"))
}

func TestHub_PublishAfterStopDoesNotBlock(t *testing.T) {
	hub, _, stop := startHub(t)
	stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 2*sendBuffer; i++ {
			hub.ReloadPage()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ReloadPage blocked after the hub stopped")
	}
}

func TestScriptHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	ScriptHandler().ServeHTTP(rec, httptest.NewRequest("GET", ScriptPath, nil))
	assert.Equal(t, "text/javascript; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), SocketPath)
}
