package app

import (
	"github.com/robfig/cron/v3"
	"github.com/talkincode/auctions/config"
	"github.com/talkincode/auctions/internal/auction"
	"github.com/talkincode/auctions/internal/livefeed"
	"github.com/talkincode/auctions/internal/media"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AuctionProvider provides the auction service
type AuctionProvider interface {
	Auction() *auction.Service
}

// MediaProvider provides the uploaded image store
type MediaProvider interface {
	Media() *media.Store
}

// LiveFeedProvider provides the websocket bid feed
type LiveFeedProvider interface {
	LiveFeed() *livefeed.Hub
}

// JobProvider lists and triggers background jobs
type JobProvider interface {
	Jobs() []JobInfo
	RunJobNow(name string) error
}

// AppContext combines all provider interfaces for full application context
// Handlers should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	AuctionProvider
	MediaProvider
	LiveFeedProvider
	JobProvider

	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
