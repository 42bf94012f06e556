package livefeed

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/internal/events"
)

func dial(t *testing.T, hub *Hub, itemID int64) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, itemID)
	}))
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestLiveBidBroadcast(t *testing.T) {
	hub := NewHub()
	bus := events.NewBus()
	require.NoError(t, hub.Attach(bus))

	conn := dial(t, hub, 7)
	hello := readMessage(t, conn)
	assert.Equal(t, "connected", hello.Type)
	assert.NotEmpty(t, hello.ClientID)
	assert.Equal(t, 1, hub.Count(7))

	other := dial(t, hub, 8)
	readMessage(t, other)

	bus.Publish(events.TopicBidPlaced, &events.BidPlaced{
		Bid:    &domain.Bid{ID: 99, Amount: 12.5},
		Item:   &domain.Item{ID: 7},
		Bidder: &domain.User{Username: "alice"},
		At:     time.Now(),
	})

	msg := readMessage(t, conn)
	assert.Equal(t, "bid", msg.Type)
	assert.Equal(t, int64(7), msg.ItemID)
	assert.Equal(t, int64(99), msg.BidID)
	assert.Equal(t, 12.5, msg.Amount)
	assert.Equal(t, 13.5, msg.NextBid)
	assert.Equal(t, "alice", msg.Username)

	// clients of other items see nothing
	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestUnregisterOnDisconnect(t *testing.T) {
	hub := NewHub()
	conn := dial(t, hub, 3)
	readMessage(t, conn)
	require.Equal(t, 1, hub.Count(3))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Count(3) == 0 }, 5*time.Second, 20*time.Millisecond)
}

func TestSlowClientDropped(t *testing.T) {
	hub := NewHub()
	c := &Client{ID: "slow", ItemID: 1, send: make(chan []byte, 1)}
	hub.register(c)
	hub.Broadcast(1, []byte("a"))
	hub.Broadcast(1, []byte("b"))
	assert.Zero(t, hub.Count(1))

	hub.Close()
}

func TestServeAfterClose(t *testing.T) {
	hub := NewHub()
	hub.Close()

	conn := dial(t, hub, 5)
	hello := readMessage(t, conn)
	assert.Equal(t, "connected", hello.Type)
	assert.Zero(t, hub.Count(5))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived), "got %v", err)
}

func TestCloseDuringBroadcast(t *testing.T) {
	hub := NewHub()
	conn := dial(t, hub, 2)
	readMessage(t, conn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			hub.Broadcast(2, []byte(`{"type":"bid"}`))
		}
	}()
	hub.Close()
	<-done
	assert.Zero(t, hub.Count(2))
}
