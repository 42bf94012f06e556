package domain

var Tables = []interface{}{
	// System
	&User{},
	&OprLog{},
	// Auction
	&Category{},
	&Item{},
	&Bid{},
	&Comment{},
	&Watch{},
}
