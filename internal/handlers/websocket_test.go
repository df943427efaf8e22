package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scriba/internal/models"
)

func TestWebSocketPublish(t *testing.T) {
	h := NewWebSocketHandler(nil)
	server := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	h.Publish(models.ProgressEvent{RequestID: "req_ws", Phase: models.PhaseUploading})

	var msg progressMessage
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "job_progress", msg.Type)
	assert.Equal(t, "req_ws", msg.Data.RequestID)
	assert.Equal(t, models.PhaseUploading, msg.Data.Phase)
}

func TestWebSocketDropOnDisconnect(t *testing.T) {
	h := NewWebSocketHandler(nil)
	server := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 },
		time.Second, 10*time.Millisecond)

	// Publishing to an empty client set is a no-op
	h.Publish(models.ProgressEvent{RequestID: "req_gone"})
}
