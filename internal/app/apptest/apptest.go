// Package apptest builds a fully wired Application on an in-memory database.
package apptest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/auctions/config"
	"github.com/talkincode/auctions/internal/app"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultPassword is the password of users created by CreateUser
const DefaultPassword = "secret"

// New returns an initialised application with seeded defaults. CSRF and login
// throttling are off.
func New(t testing.TB) *app.Application {
	t.Helper()
	cfg := *config.DefaultAppConfig
	cfg.System.Workdir = t.TempDir()
	cfg.System.Debug = false
	cfg.Web.CSRF = false
	cfg.Web.LoginRate = 0
	cfg.Mail.Enabled = false
	cfg.Nats.URL = ""

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	a := app.NewApplication(&cfg)
	a.OverrideDB(db)
	require.NoError(t, a.MigrateDB(false))
	require.NoError(t, a.InitComponents())
	a.SeedDefaults()
	t.Cleanup(func() {
		a.Release()
		_ = sqlDB.Close()
	})
	return a
}
