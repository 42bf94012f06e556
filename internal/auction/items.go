package auction

import (
	"mime/multipart"
	"strings"

	"github.com/pkg/errors"
	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/internal/events"
	"github.com/talkincode/auctions/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ItemForm carries the user input for creating or editing an item. Price is the
// raw text so that parse failures report the price message.
type ItemForm struct {
	Name        string
	Description string
	Price       string
	Category    string
	Image       *multipart.FileHeader
}

func (f ItemForm) hasImage() bool {
	return f.Image != nil && f.Image.Filename != ""
}

// ItemDetail is everything the item page shows
type ItemDetail struct {
	Item       *domain.Item
	Bids       []domain.Bid
	Comments   []domain.Comment
	MaxBid     *domain.Bid
	NextBid    float64
	Watching   bool
	IsOwner    bool
	Winner     *domain.Bid
	WatchCount int64
}

// ViewerWon reports whether the closed auction was won by userID
func (d *ItemDetail) ViewerWon(userID int64) bool {
	return d.Winner != nil && d.Winner.UserID == userID
}

type validItem struct {
	name     string
	price    float64
	category *domain.Category
}

func (s *Service) validateItem(form ItemForm) (*validItem, error) {
	if !NameIsValid(form.Name) {
		return nil, ErrInvalidName
	}
	if !withinLength(form.Name, MaxNameLength) {
		return nil, ErrNameTooLong
	}
	price, err := ParsePrice(form.Price)
	if err != nil {
		return nil, err
	}
	if form.hasImage() && !imageWithin(form.Image.Filename, form.Image.Size, s.maxImageSize) {
		return nil, ErrInvalidImage
	}
	cat, err := s.resolveCategory(form.Category)
	if err != nil {
		return nil, err
	}
	return &validItem{name: strings.TrimSpace(form.Name), price: price, category: cat}, nil
}

func (s *Service) resolveCategory(name string) (*domain.Category, error) {
	name = common.IfEmptyStr(strings.TrimSpace(name), domain.DefaultCategory)
	var cat domain.Category
	err := s.db.Where("name = ?", name).First(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if name != domain.DefaultCategory {
			return nil, ErrCategoryNotFound
		}
		cat = domain.Category{ID: common.UUIDint64(), Name: domain.DefaultCategory}
		if err := s.db.Create(&cat).Error; err != nil {
			return nil, errors.Wrap(err, "create default category")
		}
		return &cat, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "query category")
	}
	return &cat, nil
}

// CreateItem validates the form and lists a new active item owned by owner
func (s *Service) CreateItem(owner *domain.User, form ItemForm) (*domain.Item, error) {
	v, err := s.validateItem(form)
	if err != nil {
		return nil, err
	}
	item := &domain.Item{
		ID:            common.UUIDint64(),
		Name:          v.name,
		Description:   strings.TrimSpace(form.Description),
		StartingPrice: v.price,
		CategoryID:    v.category.ID,
		UserID:        owner.ID,
		Active:        true,
	}
	if form.hasImage() {
		if item.Image, err = s.store.Save(form.Image); err != nil {
			return nil, err
		}
	}
	if err := s.db.Create(item).Error; err != nil {
		_ = s.store.Delete(item.Image)
		return nil, errors.Wrap(err, "create item")
	}
	item.Category = v.category
	item.User = owner
	s.bus.Publish(events.TopicItemCreated, &events.ItemChanged{Item: item})
	return item, nil
}

// UpdateItem edits an item owned by actor. A new image replaces the old one.
func (s *Service) UpdateItem(actor *domain.User, id int64, form ItemForm) (*domain.Item, error) {
	item, err := s.GetItem(id)
	if err != nil {
		return nil, err
	}
	if actor == nil || item.UserID != actor.ID {
		return nil, ErrForbidden
	}
	v, err := s.validateItem(form)
	if err != nil {
		return nil, err
	}

	oldImage := item.Image
	newImage := oldImage
	if form.hasImage() {
		if newImage, err = s.store.Save(form.Image); err != nil {
			return nil, err
		}
	}
	now := s.now()
	err = s.db.Model(&domain.Item{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
		"name":           v.name,
		"description":    strings.TrimSpace(form.Description),
		"starting_price": v.price,
		"category_id":    v.category.ID,
		"image":          newImage,
		"updated_at":     now,
	}).Error
	if err != nil {
		if newImage != oldImage {
			_ = s.store.Delete(newImage)
		}
		return nil, errors.Wrap(err, "update item")
	}

	item.Name = v.name
	item.Description = strings.TrimSpace(form.Description)
	item.StartingPrice = v.price
	item.CategoryID = v.category.ID
	item.Category = v.category
	item.Image = newImage
	item.UpdatedAt = now
	if oldImage != "" && oldImage != newImage {
		s.bus.Publish(events.TopicItemImageReplaced, &events.ImageReplaced{Item: item, OldImage: oldImage})
	}
	return item, nil
}

// DeleteItem removes an item owned by actor along with its bids, comments and watchers
func (s *Service) DeleteItem(actor *domain.User, id int64) error {
	item, err := s.GetItem(id)
	if err != nil {
		return err
	}
	if actor == nil || item.UserID != actor.ID {
		return ErrForbidden
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&domain.Bid{}, &domain.Comment{}, &domain.Watch{}} {
			if err := tx.Where("item_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&domain.Item{}, id).Error
	})
	if err != nil {
		return errors.Wrap(err, "delete item")
	}
	s.bus.Publish(events.TopicItemDeleted, &events.ItemChanged{Item: item})
	return nil
}

// ToggleActive opens or closes the auction of an item owned by actor
func (s *Service) ToggleActive(actor *domain.User, id int64) (*domain.Item, error) {
	item, err := s.GetItem(id)
	if err != nil {
		return nil, err
	}
	if actor == nil || item.UserID != actor.ID {
		return nil, ErrForbidden
	}
	item.Active = !item.Active
	item.UpdatedAt = s.now()
	err = s.db.Model(&domain.Item{}).Where("id = ?", id).Updates(map[string]interface{}{
		"active":     item.Active,
		"updated_at": item.UpdatedAt,
	}).Error
	if err != nil {
		return nil, errors.Wrap(err, "toggle item")
	}
	if !item.Active {
		winner, err := s.maxBid(s.db, id)
		if err != nil {
			zap.L().Error("query winning bid", zap.Int64("item", id), zap.Error(err))
		}
		s.bus.Publish(events.TopicItemClosed, &events.ItemClosed{Item: item, Winner: winner})
	}
	return item, nil
}

// GetItem loads an item with its owner and category
func (s *Service) GetItem(id int64) (*domain.Item, error) {
	var item domain.Item
	if err := s.db.Preload("User").Preload("Category").First(&item, id).Error; err != nil {
		return nil, dbError(err, "query item")
	}
	return &item, nil
}

// ItemDetail collects the item page data. viewer may be nil.
func (s *Service) ItemDetail(id int64, viewer *domain.User) (*ItemDetail, error) {
	item, err := s.GetItem(id)
	if err != nil {
		return nil, err
	}
	d := &ItemDetail{Item: item}
	if err := s.db.Preload("User").Where("item_id = ?", id).
		Order("amount DESC").Order("created_at ASC").Find(&d.Bids).Error; err != nil {
		return nil, errors.Wrap(err, "query bids")
	}
	if err := s.db.Preload("User").Where("item_id = ?", id).
		Order("created_at DESC").Order("id DESC").Find(&d.Comments).Error; err != nil {
		return nil, errors.Wrap(err, "query comments")
	}
	if err := s.db.Model(&domain.Watch{}).Where("item_id = ?", id).Count(&d.WatchCount).Error; err != nil {
		return nil, errors.Wrap(err, "count watchers")
	}
	if len(d.Bids) > 0 {
		d.MaxBid = &d.Bids[0]
		d.NextBid = d.MaxBid.Amount + 1
	} else {
		d.NextBid = item.StartingPrice + 1
	}
	if !item.Active {
		d.Winner = d.MaxBid
	}
	if viewer != nil {
		d.IsOwner = viewer.ID == item.UserID
		if d.Watching, err = s.IsWatching(viewer.ID, id); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (s *Service) itemQuery() *gorm.DB {
	return s.db.Model(&domain.Item{}).Preload("User").Preload("Category")
}

func (s *Service) findItems(q *gorm.DB, order ...string) ([]domain.Item, error) {
	for _, o := range order {
		q = q.Order(o)
	}
	var items []domain.Item
	if err := q.Order("id DESC").Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "query items")
	}
	return items, nil
}

// ListActive returns the open auctions, most recently updated first
func (s *Service) ListActive() ([]domain.Item, error) {
	return s.findItems(s.itemQuery().Where("active = ?", true), "updated_at DESC")
}

// ListPopular returns open auctions ordered by popularity
func (s *Service) ListPopular() ([]domain.Item, error) {
	return s.findItems(s.itemQuery().Where("active = ?", true), "popularity DESC", "updated_at DESC")
}

// ListWatchlist returns every item userID watches, open or closed
func (s *Service) ListWatchlist(userID int64) ([]domain.Item, error) {
	watched := s.db.Model(&domain.Watch{}).Select("item_id").Where("user_id = ?", userID)
	return s.findItems(s.itemQuery().Where("id IN (?)", watched), "updated_at DESC")
}

// ListByCategory returns the open auctions of the named category
func (s *Service) ListByCategory(name string) (*domain.Category, []domain.Item, error) {
	var cat domain.Category
	if err := s.db.Where("name = ?", name).First(&cat).Error; err != nil {
		return nil, nil, dbError(err, "query category")
	}
	items, err := s.findItems(s.itemQuery().Where("active = ? AND category_id = ?", true, cat.ID), "updated_at DESC")
	return &cat, items, err
}

// ListByOwner returns all items listed by userID
func (s *Service) ListByOwner(userID int64) ([]domain.Item, error) {
	return s.findItems(s.itemQuery().Where("user_id = ?", userID), "updated_at DESC")
}

func (s *Service) ListCategories() ([]domain.Category, error) {
	var cats []domain.Category
	if err := s.db.Order("name ASC").Find(&cats).Error; err != nil {
		return nil, errors.Wrap(err, "query categories")
	}
	return cats, nil
}

// ReferencedImages returns the set of image paths still used by items
func (s *Service) ReferencedImages() (map[string]bool, error) {
	var images []string
	if err := s.db.Model(&domain.Item{}).Where("image <> ?", "").Pluck("image", &images).Error; err != nil {
		return nil, errors.Wrap(err, "query images")
	}
	refs := make(map[string]bool, len(images))
	for _, img := range images {
		refs[img] = true
	}
	return refs, nil
}
