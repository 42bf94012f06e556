package app

import (
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/pkg/metrics"
	"go.uber.org/zap"
)

const (
	oprLogRetention = 365 * 24 * time.Hour
	// uploads younger than this may belong to an item still being saved
	mediaSweepGrace = 24 * time.Hour
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	if loc == nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	for _, job := range a.jobTable() {
		j := job
		id, err := a.sched.AddFunc(j.Spec, func() { a.runJob(j) })
		if err != nil {
			zap.S().Errorf("init job %s error %s", j.Name, err.Error())
			continue
		}
		j.entry = id
	}
	a.sched.Start()
}

// SchedSystemMonitorTask system monitor
func (a *Application) SchedSystemMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	_cpuuse, err := cpu.Percent(0, false)
	if err == nil && len(_cpuuse) > 0 {
		metrics.SetGauge("system_cpuuse", int64(_cpuuse[0]*100)) // percentage * 100
	}

	_meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge("system_memuse", int64(_meminfo.Used/1024/1024))
	}
}

// SchedProcessMonitorTask app process monitor, also samples the open auction count
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	var active int64
	if err := a.gormDB.Model(&domain.Item{}).Where("active = ?", true).Count(&active).Error; err == nil {
		metrics.SetGauge("auction_active_items", active)
	}

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}
	cpuuse, err := p.CPUPercent()
	if err == nil {
		metrics.SetGauge("auctions_cpuuse", int64(cpuuse*100))
	}
	meminfo, err := p.MemoryInfo()
	if err == nil {
		metrics.SetGauge("auctions_memuse", int64(meminfo.RSS/1024/1024))
	}
}

// SchedPopularityTask rebuilds popularity counters from the stored rows
func (a *Application) SchedPopularityTask() {
	n, err := a.service.RecalculatePopularity()
	if err != nil {
		zap.L().Error("recalculate popularity", zap.Error(err))
		return
	}
	zap.L().Debug("popularity recalculated", zap.Int64("items", n))
}

// SchedClearExpireData drops operation logs older than a year
func (a *Application) SchedClearExpireData() {
	n, err := a.service.PurgeOprLogs(time.Now().Add(-oprLogRetention))
	if err != nil {
		zap.L().Error("purge operation logs", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("purged operation logs", zap.Int64("count", n))
	}
}

// SchedMediaSweepTask removes image files no item references any more
func (a *Application) SchedMediaSweepTask() {
	refs, err := a.service.ReferencedImages()
	if err != nil {
		zap.L().Error("query referenced images", zap.Error(err))
		return
	}
	n, err := a.store.Sweep(refs, mediaSweepGrace)
	if err != nil {
		zap.L().Error("sweep media", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("removed orphaned images", zap.Int("count", n))
	}
}
