package app_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/auctions/internal/app"
	"github.com/talkincode/auctions/internal/app/apptest"
	"github.com/talkincode/auctions/internal/auction"
	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/pkg/common"
)

func TestSeedDefaults(t *testing.T) {
	a := apptest.New(t)

	var admin domain.User
	require.NoError(t, a.DB().Where("username = ?", "admin").First(&admin).Error)
	assert.True(t, admin.IsSuper())
	assert.True(t, common.CheckPassword(admin.Password, "auctions"))

	var other domain.Category
	require.NoError(t, a.DB().Where("name = ?", domain.DefaultCategory).First(&other).Error)

	// seeding twice does not duplicate anything
	a.SeedDefaults()
	var n int64
	a.DB().Model(&domain.User{}).Where("username = ?", "admin").Count(&n)
	assert.Equal(t, int64(1), n)
	a.DB().Model(&domain.Category{}).Where("name = ?", domain.DefaultCategory).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestSeedRepairsSuper(t *testing.T) {
	a := apptest.New(t)
	require.NoError(t, a.DB().Model(&domain.User{}).Where("username = ?", "admin").
		Updates(map[string]interface{}{"level": domain.LevelUser, "status": common.DISABLED}).Error)
	a.SeedDefaults()

	var admin domain.User
	require.NoError(t, a.DB().Where("username = ?", "admin").First(&admin).Error)
	assert.Equal(t, domain.LevelSuper, admin.Level)
	assert.Equal(t, common.ENABLED, admin.Status)
}

func TestInitDb(t *testing.T) {
	a := apptest.New(t)
	owner, err := a.Auction().Register("owner", "", "pw", "pw")
	require.NoError(t, err)
	_, err = a.Auction().CreateItem(owner, auction.ItemForm{Name: "lamp", Price: "1"})
	require.NoError(t, err)

	a.InitDb()
	var n int64
	a.DB().Model(&domain.Item{}).Count(&n)
	assert.Zero(t, n)
	a.DB().Model(&domain.User{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestScheduledTasks(t *testing.T) {
	a := apptest.New(t)
	svc := a.Auction()
	owner, err := svc.Register("owner", "", "pw", "pw")
	require.NoError(t, err)
	fan, err := svc.Register("fan", "", "pw", "pw")
	require.NoError(t, err)
	item, err := svc.CreateItem(owner, auction.ItemForm{Name: "lamp", Price: "1"})
	require.NoError(t, err)
	_, err = svc.PlaceBid(fan, item.ID, 3)
	require.NoError(t, err)

	require.NoError(t, a.DB().Model(&domain.Item{}).Where("id = ?", item.ID).UpdateColumn("popularity", 9).Error)
	a.SchedPopularityTask()
	got, err := svc.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Popularity)

	svc.RecordAction(owner, "127.0.0.1", "old", "")
	require.NoError(t, a.DB().Model(&domain.OprLog{}).Where("1 = 1").
		UpdateColumn("opt_time", time.Now().Add(-400*24*time.Hour)).Error)
	a.SchedClearExpireData()
	var n int64
	a.DB().Model(&domain.OprLog{}).Count(&n)
	assert.Zero(t, n)

	orphan, err := a.Media().SaveReader("orphan.png", strings.NewReader("x"))
	require.NoError(t, err)
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(a.Media().Root(), filepath.FromSlash(orphan)), old, old))
	a.SchedMediaSweepTask()
	assert.False(t, a.Media().Exists(orphan))

	// monitors must not panic without metrics storage
	a.SchedSystemMonitorTask()
	a.SchedProcessMonitorTask()
}

func TestJobs(t *testing.T) {
	a := apptest.New(t)

	names := make([]string, 0)
	for _, j := range a.Jobs() {
		names = append(names, j.Name)
		assert.True(t, j.LastRun.IsZero())
		assert.True(t, j.NextRun.IsZero())
	}
	assert.Equal(t, []string{"monitor", "popularity", "oprlog_cleanup", "media_sweep"}, names)

	require.NoError(t, a.RunJobNow("popularity"))
	assert.ErrorIs(t, a.RunJobNow("nope"), app.ErrUnknownJob)

	for _, j := range a.Jobs() {
		if j.Name == "popularity" {
			assert.False(t, j.LastRun.IsZero())
			assert.False(t, j.Running)
		}
	}
}
