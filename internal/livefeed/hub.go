package livefeed

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/talkincode/auctions/internal/events"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Message is pushed to every client watching an item page
type Message struct {
	Type     string    `json:"type"`
	ItemID   int64     `json:"item_id,string"`
	BidID    int64     `json:"bid_id,string,omitempty"`
	Amount   float64   `json:"amount,omitempty"`
	Username string    `json:"username,omitempty"`
	NextBid  float64   `json:"next_bid,omitempty"`
	ClientID string    `json:"client_id,omitempty"`
	At       time.Time `json:"at"`
}

// Client is one websocket connection subscribed to an item
type Client struct {
	ID     string
	ItemID int64
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func (c *Client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans bid updates out to the clients of each item
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	closed  bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*Client]struct{})}
}

// Attach forwards placed bids from the bus to connected clients
func (h *Hub) Attach(bus *events.Bus) error {
	return bus.Subscribe(events.TopicBidPlaced, h.onBidPlaced)
}

func (h *Hub) onBidPlaced(evt *events.BidPlaced) {
	payload, err := json.Marshal(Message{
		Type:     "bid",
		ItemID:   evt.Item.ID,
		BidID:    evt.Bid.ID,
		Amount:   evt.Bid.Amount,
		Username: evt.Bidder.String(),
		NextBid:  evt.Bid.Amount + 1,
		At:       evt.At,
	})
	if err != nil {
		zap.L().Error("encode live bid", zap.Error(err))
		return
	}
	h.Broadcast(evt.Item.ID, payload)
}

// register adds c to its item's set; it reports false once the hub is closed
func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.clients[c.ItemID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.ItemID] = set
	}
	set[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.ItemID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.ItemID)
		}
	}
	h.mu.Unlock()
	c.close()
}

// Broadcast queues payload for every client of itemID. Clients whose buffer is
// full are dropped.
func (h *Hub) Broadcast(itemID int64, payload []byte) {
	var slow []*Client
	h.mu.RLock()
	for c := range h.clients[itemID] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range slow {
		zap.L().Warn("dropping slow live feed client", zap.String("client", c.ID))
		h.unregister(c)
	}
}

// Count returns the number of clients watching itemID
func (h *Hub) Count(itemID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[itemID])
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[int64]map[*Client]struct{})
	h.closed = true
	h.mu.Unlock()
	for _, set := range all {
		for c := range set {
			c.close()
		}
	}
}

// ServeWS upgrades the request and streams updates for itemID until the client
// goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, itemID int64) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &Client{
		ID:     uuid.New().String(),
		ItemID: itemID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	// the buffer is empty and nobody else can close it yet
	hello, _ := json.Marshal(Message{Type: "connected", ItemID: itemID, ClientID: c.ID, At: time.Now()})
	c.send <- hello
	if !h.register(c) {
		c.close()
	}
	go c.writePump()

	c.readPump()
	h.unregister(c)
	return nil
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only handles control frames; clients never send data
func (c *Client) readPump() {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("live feed read", zap.String("client", c.ID), zap.Error(err))
			}
			return
		}
	}
}
