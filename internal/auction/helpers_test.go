package auction

import (
	"bytes"
	"mime/multipart"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/internal/events"
	"github.com/talkincode/auctions/internal/media"
	"github.com/talkincode/auctions/pkg/common"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(domain.Tables...))
	for _, name := range []string{"Electronics", "Fashion", domain.DefaultCategory} {
		require.NoError(t, db.Create(&domain.Category{ID: common.UUIDint64(), Name: name}).Error)
	}
	return NewService(db, events.NewBus(), media.NewStore(t.TempDir()), 0)
}

func mustUser(t *testing.T, s *Service, name string) *domain.User {
	t.Helper()
	u, err := s.Register(name, name+"@example.com", "secret", "secret")
	require.NoError(t, err)
	return u
}

func mustItem(t *testing.T, s *Service, owner *domain.User, name, price string) *domain.Item {
	t.Helper()
	item, err := s.CreateItem(owner, ItemForm{Name: name, Price: price, Category: "Electronics"})
	require.NoError(t, err)
	return item
}

func reload(t *testing.T, s *Service, id int64) *domain.Item {
	t.Helper()
	item, err := s.GetItem(id)
	require.NoError(t, err)
	return item
}

// upload builds a real multipart file header the way a request would carry it
func upload(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["image"][0]
}
