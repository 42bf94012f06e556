package auction

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/internal/events"
	"github.com/talkincode/auctions/pkg/common"
	"gorm.io/gorm/clause"
)

// AddComment attaches a non blank comment from actor to an item
func (s *Service) AddComment(actor *domain.User, itemID int64, text string) (*domain.Comment, error) {
	item, err := s.GetItem(itemID)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}
	c := &domain.Comment{
		ID:      common.UUIDint64(),
		Content: text,
		ItemID:  itemID,
		UserID:  actor.ID,
	}
	if err := s.db.Create(c).Error; err != nil {
		return nil, errors.Wrap(err, "create comment")
	}
	c.User = actor
	s.bus.Publish(events.TopicCommentAdded, &events.CommentAdded{Comment: c, Item: item})
	return c, nil
}

// ToggleWatch adds the item to actor's watchlist, or removes it when already
// present, and returns whether the item is watched afterwards.
func (s *Service) ToggleWatch(actor *domain.User, itemID int64) (bool, error) {
	item, err := s.GetItem(itemID)
	if err != nil {
		return false, err
	}
	if item.UserID == actor.ID {
		return false, ErrOwnItem
	}
	watching, err := s.IsWatching(actor.ID, itemID)
	if err != nil {
		return false, err
	}
	if err := s.setWatch(actor.ID, itemID, !watching); err != nil {
		return watching, err
	}
	return !watching, nil
}

// setWatch adds or removes a watch row. A concurrent toggle may already have
// made the change; only the call that changed a row publishes.
func (s *Service) setWatch(userID, itemID int64, on bool) error {
	evt := &events.WatchChanged{UserID: userID, ItemID: itemID}
	if !on {
		res := s.db.Where("user_id = ? AND item_id = ?", userID, itemID).Delete(&domain.Watch{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "remove watch")
		}
		if res.RowsAffected > 0 {
			s.bus.Publish(events.TopicWatchRemoved, evt)
		}
		return nil
	}
	res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.Watch{UserID: userID, ItemID: itemID})
	if res.Error != nil {
		return errors.Wrap(res.Error, "add watch")
	}
	if res.RowsAffected > 0 {
		s.bus.Publish(events.TopicWatchAdded, evt)
	}
	return nil
}

func (s *Service) IsWatching(userID, itemID int64) (bool, error) {
	var n int64
	if err := s.db.Model(&domain.Watch{}).Where("user_id = ? AND item_id = ?", userID, itemID).Count(&n).Error; err != nil {
		return false, errors.Wrap(err, "query watch")
	}
	return n > 0, nil
}
