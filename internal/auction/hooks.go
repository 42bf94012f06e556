package auction

import (
	"github.com/pkg/errors"
	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/internal/events"
	"github.com/talkincode/auctions/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) registerHooks() {
	subs := map[string]interface{}{
		events.TopicBidPlaced:         s.onBidPlaced,
		events.TopicCommentAdded:      s.onCommentAdded,
		events.TopicWatchAdded:        s.onWatchAdded,
		events.TopicWatchRemoved:      s.onWatchRemoved,
		events.TopicItemCreated:       s.onItemCreated,
		events.TopicItemDeleted:       s.onItemDeleted,
		events.TopicItemImageReplaced: s.onImageReplaced,
	}
	for topic, fn := range subs {
		if err := s.bus.Subscribe(topic, fn); err != nil {
			zap.L().Error("subscribe hook", zap.String("topic", topic), zap.Error(err))
		}
	}
}

func (s *Service) onBidPlaced(evt *events.BidPlaced) {
	metrics.BidsTotal.Inc()
	s.bumpPopularity(evt.Item.ID, 1, true)
}

func (s *Service) onCommentAdded(evt *events.CommentAdded) {
	metrics.CommentsTotal.Inc()
	s.bumpPopularity(evt.Item.ID, 1, true)
}

func (s *Service) onWatchAdded(evt *events.WatchChanged) {
	s.bumpPopularity(evt.ItemID, 1, false)
}

func (s *Service) onWatchRemoved(evt *events.WatchChanged) {
	s.bumpPopularity(evt.ItemID, -1, false)
}

func (s *Service) onItemCreated(*events.ItemChanged) {
	metrics.ItemsCreatedTotal.Inc()
}

func (s *Service) onItemDeleted(evt *events.ItemChanged) {
	if err := s.store.Delete(evt.Item.Image); err != nil {
		zap.L().Warn("delete item image", zap.String("image", evt.Item.Image), zap.Error(err))
	}
}

func (s *Service) onImageReplaced(evt *events.ImageReplaced) {
	if err := s.store.Delete(evt.OldImage); err != nil {
		zap.L().Warn("delete replaced image", zap.String("image", evt.OldImage), zap.Error(err))
	}
}

// bumpPopularity changes the counter by delta, never going below zero. With touch
// set the item's updated_at moves to now as well.
func (s *Service) bumpPopularity(itemID int64, delta int, touch bool) {
	expr := gorm.Expr("popularity + ?", delta)
	if delta < 0 {
		expr = gorm.Expr("CASE WHEN popularity >= ? THEN popularity - ? ELSE 0 END", -delta, -delta)
	}
	cols := map[string]interface{}{"popularity": expr}
	if touch {
		cols["updated_at"] = s.now()
	}
	if err := s.db.Model(&domain.Item{}).Where("id = ?", itemID).UpdateColumns(cols).Error; err != nil {
		zap.L().Error("update popularity", zap.Int64("item", itemID), zap.Error(err))
	}
}

// RecalculatePopularity resets every item's popularity to its bids, comments and
// watchers count and returns the number of items updated.
func (s *Service) RecalculatePopularity() (int64, error) {
	r := s.db.Exec(`UPDATE auction_item SET popularity =
		(SELECT COUNT(*) FROM auction_bid WHERE auction_bid.item_id = auction_item.id) +
		(SELECT COUNT(*) FROM auction_comment WHERE auction_comment.item_id = auction_item.id) +
		(SELECT COUNT(*) FROM auction_watchlist WHERE auction_watchlist.item_id = auction_item.id)`)
	if r.Error != nil {
		return 0, errors.Wrap(r.Error, "recalculate popularity")
	}
	return r.RowsAffected, nil
}
