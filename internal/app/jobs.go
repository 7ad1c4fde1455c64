package app

import (
	"context"
	"os"
	"sort"

	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/internal/repository"
	"github.com/alocode/restopos/pkg/metrics"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

const (
	JobSweep     = "sweep"
	JobRetention = "retention"
	JobMonitor   = "monitor"
)

var ErrUnknownJob = errors.New("unknown job")

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// jobs named background tasks, runnable from cron or on demand
func (a *Application) jobs() map[string]func() error {
	return map[string]func() error{
		JobSweep:     a.SchedSweepTask,
		JobRetention: a.SchedClearExpireData,
		JobMonitor: func() error {
			a.SchedSystemMonitorTask()
			a.SchedProcessMonitorTask()
			a.SchedPosMonitorTask()
			return nil
		},
	}
}

// JobNames sorted names accepted by RunJobNow
func (a *Application) JobNames() []string {
	names := make([]string, 0, 3)
	for name := range a.jobs() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *Application) initJob() {
	a.sched = cron.New(cron.WithLocation(a.location), cron.WithParser(cronParser))

	size := a.appConfig.Pos.WorkerPool
	if size <= 0 {
		size = 8
	}
	pool, err := ants.NewPool(size, ants.WithNonblocking(true))
	if err != nil {
		zap.S().Errorf("init worker pool error %s", err.Error())
		return
	}
	a.pool = pool

	schedule := map[string]string{
		JobSweep:     a.appConfig.Pos.SweepCron,
		JobMonitor:   a.appConfig.Pos.MonitorCron,
		JobRetention: "@daily",
	}
	for name, spec := range schedule {
		if spec == "" {
			continue
		}
		name := name
		if _, err := a.sched.AddFunc(spec, func() { a.dispatch(name) }); err != nil {
			zap.S().Errorf("init job %s error %s", name, err.Error())
		}
	}

	a.sched.Start()
}

// dispatch hands a job to the worker pool, dropping it when the pool is full
func (a *Application) dispatch(name string) {
	fn := a.jobs()[name]
	err := a.pool.Submit(func() {
		defer func() {
			if err := recover(); err != nil {
				zap.S().Error(err)
			}
		}()
		if err := fn(); err != nil {
			zap.L().Error("job failed", zap.String("job", name), zap.Error(err), zap.String("namespace", "jobs"))
		}
	})
	if err != nil {
		zap.L().Warn("job dropped", zap.String("job", name), zap.Error(err), zap.String("namespace", "jobs"))
	}
}

// RunJobNow runs a named job synchronously
func (a *Application) RunJobNow(name string) error {
	fn, ok := a.jobs()[name]
	if !ok {
		return errors.Wrapf(ErrUnknownJob, "job %q", name)
	}
	return fn()
}

// SchedSweepTask closes stale register sessions and cancels pending orders of
// past days. Concurrent triggers share one run.
func (a *Application) SchedSweepTask() error {
	_, err, _ := a.jobGroup.Do(JobSweep, func() (interface{}, error) {
		ctx := context.Background()
		closed, err := a.registers.CloseStale(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "close stale sessions")
		}
		cancelled, err := a.orders.SweepStalePending(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "sweep stale orders")
		}
		zap.S().Infof("sweep done, %d sessions closed, %d orders cancelled", closed, cancelled)
		return nil, nil
	})
	return err
}

// SchedClearExpireData drops audit records older than the retention window
func (a *Application) SchedClearExpireData() error {
	days := a.appConfig.Pos.RetentionDays
	if days <= 0 {
		days = 365
	}
	n, err := repository.NewGormAuditRepository(a.gormDB).
		DeleteOlderThan(context.Background(), a.Now().AddDate(0, 0, -days))
	if err != nil {
		return errors.Wrap(err, "clear audit log")
	}
	if n > 0 {
		zap.S().Infof("cleared %d audit records", n)
	}
	return nil
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
		metrics.SetGauge("system_cpuuse", int64(_cpuuse[0]*100)) // Store as percentage * 100
	}

	_meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge("system_memuse", int64(_meminfo.Used/1024/1024)) //nolint:gosec // G115: memory MB value fits in int64
	}
}

// SchedProcessMonitorTask app process monitor
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // G115: PID is always within int32 range
	if err != nil {
		return
	}

	cpuuse, err := p.CPUPercent()
	if err == nil {
		metrics.SetGauge("restopos_cpuuse", int64(cpuuse*100))
	}

	meminfo, err := p.MemoryInfo()
	if err == nil {
		metrics.SetGauge("restopos_memuse", int64(meminfo.RSS/1024/1024)) //nolint:gosec // G115: memory MB value fits in int64
	}
}

// SchedPosMonitorTask active orders and occupied tables
func (a *Application) SchedPosMonitorTask() {
	var active, occupied int64
	if err := a.gormDB.Model(&domain.Order{}).
		Where("state IN ?", domain.ActiveOrderStates).
		Count(&active).Error; err == nil {
		metrics.SetGauge("pos_active_orders", active)
	}
	if err := a.gormDB.Model(&domain.DiningTable{}).
		Where("state = ?", domain.TableOccupied).
		Count(&occupied).Error; err == nil {
		metrics.SetGauge("pos_occupied_tables", occupied)
	}
}
