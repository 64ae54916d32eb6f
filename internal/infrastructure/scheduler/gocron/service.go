package timescheduler

import (
	"time"

	"github.com/RobotechyShop/orderd/internal/core/ports"
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

func (s *service) ScheduleRecurring(
	min, max time.Duration, task func(),
) (ports.StopFunc, error) {
	lower, upper := seconds(min), seconds(max)

	var job *gocron.Job
	var err error
	if upper > lower {
		job, err = s.scheduler.EveryRandom(lower, upper).Seconds().SingletonMode().Do(task)
	} else {
		job, err = s.scheduler.Every(lower).Seconds().SingletonMode().Do(task)
	}
	if err != nil {
		return nil, err
	}

	return func() {
		s.scheduler.RemoveByReference(job)
	}, nil
}

func seconds(d time.Duration) int {
	if d < time.Second {
		return 1
	}
	return int(d / time.Second)
}
