package ws_test

import (
	"encoding/json"
	"testing"

	"safevoice/internal/ws"

	"github.com/stretchr/testify/require"
)

func TestBroadcastToUser(t *testing.T) {
	hub := ws.NewHub()
	a1 := ws.NewClient(1)
	a2 := ws.NewClient(1)
	b := ws.NewClient(2)
	hub.Register(a1)
	hub.Register(a2)
	hub.Register(b)
	require.Equal(t, 2, hub.ConnectionCount(1))

	hub.BroadcastToUser(1, map[string]string{"type": "notification"})

	for _, c := range []*ws.Client{a1, a2} {
		select {
		case msg := <-c.Send:
			var got map[string]string
			require.NoError(t, json.Unmarshal(msg, &got))
			require.Equal(t, "notification", got["type"])
		default:
			t.Fatal("expected a message")
		}
	}
	require.Len(t, b.Send, 0)
}

func TestCloseUnregisters(t *testing.T) {
	hub := ws.NewHub()
	c := ws.NewClient(5)
	hub.Register(c)
	c.Close()
	c.Close()
	require.Equal(t, 0, hub.ConnectionCount(5))

	// no panic sending to a user without connections
	hub.BroadcastToUser(5, "x")
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := ws.NewHub()
	c := ws.NewClient(9)
	hub.Register(c)
	for i := 0; i < cap(c.Send)+10; i++ {
		hub.BroadcastToUser(9, i)
	}
	require.Equal(t, cap(c.Send), len(c.Send))
}
