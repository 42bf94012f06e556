package auction

import (
	"github.com/pkg/errors"
	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/internal/events"
	"github.com/talkincode/auctions/pkg/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlaceBid stores a bid from actor if it beats both the starting price and the
// current top bid. The check and the insert share one transaction.
func (s *Service) PlaceBid(actor *domain.User, itemID int64, amount float64) (*domain.Bid, error) {
	amount = common.Round2(amount)
	var (
		item     domain.Item
		previous *domain.Bid
		bid      *domain.Bid
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&item, itemID).Error; err != nil {
			return dbError(err, "query item")
		}
		if !item.Active {
			return ErrItemClosed
		}
		if item.UserID == actor.ID {
			return ErrOwnItem
		}
		var err error
		if previous, err = s.maxBid(tx, itemID); err != nil {
			return err
		}
		if amount <= item.StartingPrice || (previous != nil && amount <= previous.Amount) {
			return ErrBidTooLow
		}
		bid = &domain.Bid{
			ID:     common.UUIDint64(),
			Amount: amount,
			ItemID: itemID,
			UserID: actor.ID,
		}
		return errors.Wrap(tx.Create(bid).Error, "create bid")
	})
	if err != nil {
		return nil, err
	}
	bid.User = actor
	bid.Item = &item
	s.bus.Publish(events.TopicBidPlaced, &events.BidPlaced{
		Bid:      bid,
		Item:     &item,
		Bidder:   actor,
		Previous: previous,
		At:       bid.CreatedAt,
	})
	return bid, nil
}

// maxBid returns the highest bid on an item, earliest first on ties, or nil
func (s *Service) maxBid(db *gorm.DB, itemID int64) (*domain.Bid, error) {
	var bid domain.Bid
	err := db.Preload("User").Where("item_id = ?", itemID).
		Order("amount DESC").Order("created_at ASC").First(&bid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "query max bid")
	}
	return &bid, nil
}

// ListBids returns the bids on an item, highest first
func (s *Service) ListBids(itemID int64) ([]domain.Bid, error) {
	var bids []domain.Bid
	if err := s.db.Preload("User").Where("item_id = ?", itemID).
		Order("amount DESC").Order("created_at ASC").Find(&bids).Error; err != nil {
		return nil, errors.Wrap(err, "query bids")
	}
	return bids, nil
}
