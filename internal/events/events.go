package events

import (
	"time"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/talkincode/auctions/internal/domain"
)

// Topics published by the auction service
const (
	TopicBidPlaced         = "bid.placed"
	TopicCommentAdded      = "comment.added"
	TopicWatchAdded        = "watch.added"
	TopicWatchRemoved      = "watch.removed"
	TopicItemCreated       = "item.created"
	TopicItemDeleted       = "item.deleted"
	TopicItemImageReplaced = "item.image_replaced"
	TopicItemClosed        = "item.closed"
)

// BidPlaced is published after a bid has been stored. Previous is the top bid it
// replaced and is nil for the first bid on an item.
type BidPlaced struct {
	Bid      *domain.Bid
	Item     *domain.Item
	Bidder   *domain.User
	Previous *domain.Bid
	At       time.Time
}

type CommentAdded struct {
	Comment *domain.Comment
	Item    *domain.Item
}

type WatchChanged struct {
	UserID int64
	ItemID int64
}

type ItemChanged struct {
	Item *domain.Item
}

// ImageReplaced carries the image path that is no longer referenced
type ImageReplaced struct {
	Item     *domain.Item
	OldImage string
}

// ItemClosed is published when an owner closes an auction; Winner is nil without bids
type ItemClosed struct {
	Item   *domain.Item
	Winner *domain.Bid
}

// Bus is the in-process publish/subscribe hub that replaces model signals.
// Handlers run synchronously in the publisher's goroutine and must not publish themselves.
type Bus struct {
	bus EventBus.Bus
}

func NewBus() *Bus {
	return &Bus{bus: EventBus.New()}
}

func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return b.bus.Subscribe(topic, fn)
}

func (b *Bus) Publish(topic string, evt interface{}) {
	b.bus.Publish(topic, evt)
}
