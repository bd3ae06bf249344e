package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

func waitForClientCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", h.ClientCount(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestBroadcastDropsSlowClients(t *testing.T) {
	h := NewHub()
	go h.Run()

	// The slow client has no buffer and no reader; the fast one drains
	// its channel below.
	slow := &Client{hub: h, send: make(chan []byte)}
	fast := &Client{hub: h, send: make(chan []byte, 4)}
	h.register <- slow
	h.register <- fast
	waitForClientCount(t, h, 2)

	if err := h.Broadcast("test:event", map[string]int{"n": 1}); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	select {
	case data := <-fast.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("invalid message: %v", err)
		}
		if msg.Type != "test:event" || msg.Timestamp == "" {
			t.Errorf("unexpected message: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fast client never received the broadcast")
	}

	// The slow client was dropped and its channel closed.
	waitForClientCount(t, h, 1)
	if _, ok := <-slow.send; ok {
		t.Error("expected slow client's channel to be closed")
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	h := NewHub()
	go h.Run()

	client := &Client{hub: h, send: make(chan []byte, 1)}
	h.register <- client
	waitForClientCount(t, h, 1)

	h.unregister <- client
	waitForClientCount(t, h, 0)
	if _, ok := <-client.send; ok {
		t.Error("expected send channel to be closed")
	}
}
