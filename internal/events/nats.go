package events

import (
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BidMessage is the payload forwarded to NATS for every accepted bid
type BidMessage struct {
	ItemID      int64     `json:"item_id,string"`
	BidID       int64     `json:"bid_id,string"`
	UserID      int64     `json:"user_id,string"`
	Username    string    `json:"username"`
	Amount      float64   `json:"amount"`
	PreviousBid float64   `json:"previous_bid"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher is the subset of *nats.Conn used by the bridge
type Publisher interface {
	Publish(subj string, data []byte) error
}

// NatsBridge forwards bid events from the bus to NATS subjects "<prefix>.<item_id>"
type NatsBridge struct {
	pub    Publisher
	conn   *nats.Conn
	prefix string
}

// ConnectNats dials url and returns a bridge that owns the connection
func ConnectNats(url, prefix string) (*NatsBridge, error) {
	conn, err := nats.Connect(url, nats.Name("auctions"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, errors.Wrap(err, "connect nats")
	}
	b := NewNatsBridge(conn, prefix)
	b.conn = conn
	return b, nil
}

func NewNatsBridge(pub Publisher, prefix string) *NatsBridge {
	if prefix == "" {
		prefix = "auction.bids"
	}
	return &NatsBridge{pub: pub, prefix: strings.TrimSuffix(prefix, ".")}
}

// Attach subscribes the bridge to the bus
func (n *NatsBridge) Attach(bus *Bus) error {
	return bus.Subscribe(TopicBidPlaced, n.onBidPlaced)
}

func (n *NatsBridge) Subject(itemID int64) string {
	return fmt.Sprintf("%s.%d", n.prefix, itemID)
}

func (n *NatsBridge) onBidPlaced(evt *BidPlaced) {
	msg := BidMessage{
		ItemID:    evt.Item.ID,
		BidID:     evt.Bid.ID,
		UserID:    evt.Bid.UserID,
		Amount:    evt.Bid.Amount,
		Timestamp: evt.At.UTC(),
	}
	if evt.Bidder != nil {
		msg.Username = evt.Bidder.Username
	}
	if evt.Previous != nil {
		msg.PreviousBid = evt.Previous.Amount
	}
	data, err := json.Marshal(msg)
	if err != nil {
		zap.L().Error("marshal bid event", zap.Error(err))
		return
	}
	if err := n.pub.Publish(n.Subject(evt.Item.ID), data); err != nil {
		zap.L().Warn("publish bid event to NATS failed", zap.Int64("item_id", evt.Item.ID), zap.Error(err))
	}
}

func (n *NatsBridge) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}
