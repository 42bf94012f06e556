package domain

import "time"

// Item is a listing offered in the auction
type Item struct {
	ID            int64     `gorm:"primaryKey" json:"id,string"`
	Name          string    `gorm:"size:64" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	StartingPrice float64   `json:"starting_price"`
	CategoryID    int64     `gorm:"index" json:"category_id,string"`
	UserID        int64     `gorm:"index" json:"user_id,string"`
	Image         string    `gorm:"size:255" json:"image"` // path relative to the media dir, empty when none
	Active        bool      `gorm:"index" json:"active"`
	Popularity    int64     `gorm:"index;not null" json:"popularity"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `gorm:"index" json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName returns table name
func (Item) TableName() string {
	return "auction_item"
}

// ImageURL returns the public url of the item image, or "" when there is none
func (i *Item) ImageURL(prefix string) string {
	if i.Image == "" {
		return ""
	}
	return prefix + i.Image
}

// Bid offer on an item
type Bid struct {
	ID        int64     `gorm:"primaryKey" json:"id,string" csv:"id"`
	Amount    float64   `json:"amount" csv:"amount"`
	ItemID    int64     `gorm:"index" json:"item_id,string" csv:"item_id"`
	UserID    int64     `gorm:"index" json:"user_id,string" csv:"user_id"`
	CreatedAt time.Time `json:"created_at" csv:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty" csv:"-"`
	Item *Item `gorm:"foreignKey:ItemID" json:"-" csv:"-"`
}

// TableName returns table name
func (Bid) TableName() string {
	return "auction_bid"
}

// Comment left on an item
type Comment struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	Content   string    `gorm:"type:text" json:"content"`
	ItemID    int64     `gorm:"index" json:"item_id,string"`
	UserID    int64     `gorm:"index" json:"user_id,string"`
	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName returns table name
func (Comment) TableName() string {
	return "auction_comment"
}

// Watch is a watchlist row linking a user to an item
type Watch struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id,string"`
	ItemID    int64     `gorm:"primaryKey;autoIncrement:false;index" json:"item_id,string"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns table name
func (Watch) TableName() string {
	return "auction_watchlist"
}
