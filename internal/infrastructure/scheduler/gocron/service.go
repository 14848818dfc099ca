package scheduler

import (
	"fmt"
	"time"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	"github.com/go-co-op/gocron"
)

type service struct {
	scheduler *gocron.Scheduler
}

func NewScheduler() ports.SchedulerService {
	svc := gocron.NewScheduler(time.UTC)
	return &service{svc}
}

func (s *service) Start() {
	s.scheduler.StartAsync()
}

func (s *service) Stop() {
	s.scheduler.Stop()
}

// ScheduleTask runs task every interval. A run is skipped while the previous
// one is still in progress.
func (s *service) ScheduleTask(interval time.Duration, immediate bool, task func()) error {
	if interval <= 0 {
		return fmt.Errorf("invalid task interval %s", interval)
	}
	sched := s.scheduler.Every(interval).SingletonMode()
	if !immediate {
		sched = sched.WaitForSchedule()
	}
	_, err := sched.Do(task)
	return err
}
