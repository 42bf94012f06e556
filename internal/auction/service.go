package auction

import (
	"time"

	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/internal/events"
	"github.com/talkincode/auctions/internal/media"
	"github.com/talkincode/auctions/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service implements the auction rules on top of the database. Side effects such
// as popularity counters and image cleanup are driven by events on the bus.
type Service struct {
	db           *gorm.DB
	bus          *events.Bus
	store        *media.Store
	maxImageSize int64
	now          func() time.Time
}

func NewService(db *gorm.DB, bus *events.Bus, store *media.Store, maxImageSize int64) *Service {
	if maxImageSize <= 0 {
		maxImageSize = DefaultMaxImageSize
	}
	s := &Service{
		db:           db,
		bus:          bus,
		store:        store,
		maxImageSize: maxImageSize,
		now:          time.Now,
	}
	s.registerHooks()
	return s
}

func (s *Service) DB() *gorm.DB {
	return s.db
}

func (s *Service) Bus() *events.Bus {
	return s.bus
}

func (s *Service) Store() *media.Store {
	return s.store
}

// RecordAction appends an entry to the operation log
func (s *Service) RecordAction(user *domain.User, ip, action, desc string) {
	log := domain.OprLog{
		ID:        common.UUIDint64(),
		OprName:   user.String(),
		OprIp:     ip,
		OptAction: action,
		OptDesc:   desc,
		OptTime:   s.now(),
	}
	if err := s.db.Create(&log).Error; err != nil {
		zap.L().Error("record operation log", zap.String("action", action), zap.Error(err))
	}
}

// PurgeOprLogs removes log entries older than before
func (s *Service) PurgeOprLogs(before time.Time) (int64, error) {
	r := s.db.Where("opt_time < ?", before).Delete(&domain.OprLog{})
	return r.RowsAffected, dbError(r.Error, "purge operation logs")
}
