package websocket

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

	"petwatch/internal/config"
	"petwatch/internal/dto"
	"petwatch/internal/logger"
)

func TestHubService_PublishReachesClients(t *testing.T) {
	l := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	defer l.Close()

	hub := NewHubService(l)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(dto.Event{
		Type:         dto.EventStateChanged,
		DeviceSerial: "SN1",
		Time:         time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		Payload:      map[string]bool{"is_hiding": true},
	})

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := client.ReadMessage()
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, "state.changed", got["type"])
	assert.Equal(t, "SN1", got["device_serial"])
	assert.Equal(t, "2025-05-01T10:00:00Z", got["time"])
}

func TestHubService_PublishDoesNotBlockWithoutRun(t *testing.T) {
	l := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	defer l.Close()

	hub := NewHubService(l)
	for i := 0; i < broadcastBuffer+10; i++ {
		hub.Publish(dto.Event{Type: dto.EventActivityUpdated, DeviceSerial: "SN1"})
	}
}
