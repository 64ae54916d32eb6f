package ports

import "time"

// StopFunc cancels a recurring task. A running invocation completes; no
// further invocations are scheduled.
type StopFunc func()

type SchedulerService interface {
	Start()
	Stop()

	// ScheduleRecurring runs task repeatedly, waiting a random duration
	// between min and max before each run. Invocations never overlap.
	ScheduleRecurring(min, max time.Duration, task func()) (StopFunc, error)
}
