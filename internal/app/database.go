package app

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/talkincode/auctions/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// getDatabase opens postgres, or a sqlite file under <workdir>/data for type sqlite
func getDatabase(cfg config.DBConfig, workdir string) *gorm.DB {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if cfg.Debug {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "sqlite":
		dir := path.Join(workdir, "data")
		_ = os.MkdirAll(dir, 0o755)
		name := cfg.Name
		if name == "" {
			name = "auctions"
		}
		dialector = sqlite.Open(path.Join(dir, name+".db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	default:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		zap.S().Fatalf("open database error: %s", err.Error())
	}
	sqlDB, err := db.DB()
	if err != nil {
		zap.S().Fatalf("database handle error: %s", err.Error())
	}
	if cfg.Type == "sqlite" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxConn)
		sqlDB.SetMaxIdleConns(cfg.IdleConn)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return db
}
