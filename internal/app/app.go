package app

import (
	"os"
	"runtime/debug"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/auctions/config"
	"github.com/talkincode/auctions/internal/auction"
	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/internal/events"
	"github.com/talkincode/auctions/internal/livefeed"
	"github.com/talkincode/auctions/internal/media"
	"github.com/talkincode/auctions/internal/notify"
	"github.com/talkincode/auctions/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	bus       *events.Bus
	store     *media.Store
	service   *auction.Service
	notifier  *notify.Notifier
	hub       *livefeed.Hub
	nats      *events.NatsBridge
	jobs      []*Job
	jobsOnce  sync.Once
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ AuctionProvider   = (*Application)(nil)
	_ MediaProvider     = (*Application)(nil)
	_ LiveFeedProvider  = (*Application)(nil)
	_ JobProvider       = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Auction() *auction.Service {
	return a.service
}

func (a *Application) Media() *media.Store {
	return a.store
}

func (a *Application) LiveFeed() *livefeed.Hub {
	return a.hub
}

func (a *Application) Bus() *events.Bus {
	return a.bus
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg)

	err = metrics.InitMetrics(cfg.System.Workdir)
	if err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	a.gormDB = getDatabase(cfg.Database, cfg.System.Workdir)
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	if err := a.InitComponents(); err != nil {
		zap.S().Fatalf("init components error: %v", err)
	}
	a.SeedDefaults()

	a.initJob()
}

func initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.GetLogFile(),
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}
	zap.ReplaceGlobals(logger)
}

// InitComponents wires the event bus, the auction service and its subscribers
// around the current database handle.
func (a *Application) InitComponents() error {
	cfg := a.appConfig
	a.bus = events.NewBus()
	a.store = media.NewStore(cfg.GetMediaDir())
	a.service = auction.NewService(a.gormDB, a.bus, a.store, cfg.Media.MaxImageSize)

	notifier, err := notify.NewNotifier(notify.NewSender(cfg.Mail), cfg.Mail.Workers)
	if err != nil {
		return err
	}
	if err := notifier.Attach(a.bus); err != nil {
		return errors.Wrap(err, "attach notifier")
	}
	a.notifier = notifier

	a.hub = livefeed.NewHub()
	if err := a.hub.Attach(a.bus); err != nil {
		return errors.Wrap(err, "attach live feed")
	}

	if cfg.Nats.URL != "" {
		bridge, err := events.ConnectNats(cfg.Nats.URL, cfg.Nats.SubjectPrefix)
		if err != nil {
			// bids keep working without the bridge
			zap.L().Error("connect nats", zap.String("url", cfg.Nats.URL), zap.Error(err))
		} else if err := bridge.Attach(a.bus); err != nil {
			return errors.Wrap(err, "attach nats bridge")
		} else {
			a.nats = bridge
		}
	}
	return nil
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	if err := db.Migrator().AutoMigrate(domain.Tables...); err != nil {
		zap.S().Error(err)
		return err
	}
	return nil
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

// InitDb drops and recreates every table, then seeds the defaults
func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
	a.SeedDefaults()
}

// SeedDefaults creates the super user and default categories when missing
func (a *Application) SeedDefaults() {
	a.checkSuper()
	a.checkCategories()
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.notifier != nil {
		a.notifier.Release()
	}
	if a.nats != nil {
		a.nats.Close()
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
