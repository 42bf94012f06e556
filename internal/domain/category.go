package domain

import "time"

// DefaultCategory is assigned to items listed without a category
const DefaultCategory = "Other"

// Category groups items; names are unique
type Category struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `gorm:"uniqueIndex;size:20" json:"name" form:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns table name
func (Category) TableName() string {
	return "auction_category"
}
