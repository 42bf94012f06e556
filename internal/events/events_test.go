package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/auctions/internal/domain"
)

type capturePublisher struct {
	subjects []string
	payloads [][]byte
}

func (c *capturePublisher) Publish(subj string, data []byte) error {
	c.subjects = append(c.subjects, subj)
	c.payloads = append(c.payloads, data)
	return nil
}

func TestBusDeliversSynchronously(t *testing.T) {
	bus := NewBus()
	var got []int64
	require.NoError(t, bus.Subscribe(TopicWatchAdded, func(evt *WatchChanged) {
		got = append(got, evt.ItemID)
	}))

	bus.Publish(TopicWatchAdded, &WatchChanged{UserID: 1, ItemID: 42})
	assert.Equal(t, []int64{42}, got)
}

func TestNatsBridgeForwardsBids(t *testing.T) {
	bus := NewBus()
	pub := &capturePublisher{}
	bridge := NewNatsBridge(pub, "auction.bids.")
	require.NoError(t, bridge.Attach(bus))

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	bus.Publish(TopicBidPlaced, &BidPlaced{
		Bid:      &domain.Bid{ID: 7, Amount: 25.5, ItemID: 3, UserID: 9},
		Item:     &domain.Item{ID: 3},
		Bidder:   &domain.User{ID: 9, Username: "bob"},
		Previous: &domain.Bid{Amount: 20},
		At:       at,
	})

	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "auction.bids.3", pub.subjects[0])

	var msg BidMessage
	require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
	assert.Equal(t, int64(3), msg.ItemID)
	assert.Equal(t, "bob", msg.Username)
	assert.Equal(t, 25.5, msg.Amount)
	assert.Equal(t, 20.0, msg.PreviousBid)
	assert.True(t, at.Equal(msg.Timestamp))
}
