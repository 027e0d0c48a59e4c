package websocket

import (
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, deviceID string) *Client {
	return &Client{
		hub:      hub,
		conn:     nil,
		deviceID: deviceID,
		send:     make(chan Message, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "a")
	c2 := mockClient(hub, "b")

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, "a")
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "a")
	c2 := mockClient(hub, "b")
	hub.Register(c1)
	hub.Register(c2)

	hub.Broadcast(NewAnnouncement("Obavijest", "Sutra nema nastave."))

	for _, c := range []*Client{c1, c2} {
		select {
		case got := <-c.send:
			if got.Type != TypeAnnouncement {
				t.Errorf("expected type %s, got %s", TypeAnnouncement, got.Type)
			}
			if got.Body != "Sutra nema nastave." {
				t.Errorf("body = %q", got.Body)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
}

func TestSendToTargetsDevice(t *testing.T) {
	hub := NewHub(slog.Default())

	phone := mockClient(hub, "dev-1")
	tablet := mockClient(hub, "dev-1")
	other := mockClient(hub, "dev-2")
	hub.Register(phone)
	hub.Register(tablet)
	hub.Register(other)

	n := hub.SendTo("dev-1", NewNotification("Testna Obavijest", "Ako vidite ovo, obavijesti rade ispravno!", "./icon.png"))
	if n != 2 {
		t.Fatalf("delivered = %d, want 2", n)
	}

	for _, c := range []*Client{phone, tablet} {
		select {
		case got := <-c.send:
			if got.Type != TypeNotification || got.Title != "Testna Obavijest" || got.Icon != "./icon.png" {
				t.Errorf("unexpected message %+v", got)
			}
		default:
			t.Fatal("expected a message for dev-1")
		}
	}

	select {
	case <-other.send:
		t.Error("dev-2 should not receive dev-1's notification")
	default:
	}

	if n := hub.SendTo("offline", NewNotification("x", "y", "")); n != 0 {
		t.Errorf("delivered to offline device = %d, want 0", n)
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.Broadcast(NewAnnouncement("a", "b"))
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, "a")
	hub.Register(c)

	// Fill the send buffer
	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewAnnouncement("fill", ""))
	}

	// This should drop the message, not panic or block
	hub.Broadcast(NewAnnouncement("dropped", ""))
	if n := hub.SendTo("a", NewNotification("dropped", "", "")); n != 0 {
		t.Errorf("SendTo with full buffer delivered %d, want 0", n)
	}

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, "same")
			hub.Register(c)
			hub.Broadcast(NewAnnouncement("concurrent", ""))
			hub.SendTo("same", NewNotification("concurrent", "", ""))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
