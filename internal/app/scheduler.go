package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	ErrUnknownJob = errors.New("unknown job")
	ErrJobRunning = errors.New("job is already running")
)

// Job is a named background task. A job never runs twice at the same time;
// a tick that finds it still busy is skipped.
type Job struct {
	Name string
	Spec string

	run     func()
	entry   cron.EntryID
	running atomic.Bool

	mu       sync.Mutex
	lastRun  time.Time
	duration time.Duration
}

// JobInfo describes a job for the admin API
type JobInfo struct {
	Name     string    `json:"name"`
	Spec     string    `json:"spec"`
	Running  bool      `json:"running"`
	LastRun  time.Time `json:"last_run"`
	Duration string    `json:"duration"`
	NextRun  time.Time `json:"next_run"`
}

func (a *Application) jobTable() []*Job {
	a.jobsOnce.Do(func() {
		a.jobs = []*Job{
			{Name: "monitor", Spec: "@every 30s", run: func() {
				a.SchedSystemMonitorTask()
				a.SchedProcessMonitorTask()
			}},
			{Name: "popularity", Spec: "@hourly", run: a.SchedPopularityTask},
			{Name: "oprlog_cleanup", Spec: "@daily", run: a.SchedClearExpireData},
			{Name: "media_sweep", Spec: "@daily", run: a.SchedMediaSweepTask},
		}
	})
	return a.jobs
}

// runJob reports false when the job was already running
func (a *Application) runJob(j *Job) bool {
	if !j.running.CompareAndSwap(false, true) {
		zap.L().Debug("job still running, skipped", zap.String("job", j.Name))
		return false
	}
	defer j.running.Store(false)

	start := time.Now()
	j.run()
	j.mu.Lock()
	j.lastRun = start
	j.duration = time.Since(start)
	j.mu.Unlock()
	return true
}

// Jobs lists the registered jobs. NextRun is zero until the scheduler starts.
func (a *Application) Jobs() []JobInfo {
	jobs := a.jobTable()
	out := make([]JobInfo, 0, len(jobs))
	for _, j := range jobs {
		j.mu.Lock()
		info := JobInfo{
			Name:     j.Name,
			Spec:     j.Spec,
			Running:  j.running.Load(),
			LastRun:  j.lastRun,
			Duration: j.duration.String(),
		}
		j.mu.Unlock()
		if a.sched != nil && j.entry != 0 {
			info.NextRun = a.sched.Entry(j.entry).Next
		}
		out = append(out, info)
	}
	return out
}

// RunJobNow runs the named job synchronously
func (a *Application) RunJobNow(name string) error {
	for _, j := range a.jobTable() {
		if j.Name != name {
			continue
		}
		if !a.runJob(j) {
			return ErrJobRunning
		}
		return nil
	}
	return ErrUnknownJob
}
