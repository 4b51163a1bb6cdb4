// Package scheduler evaluates re-screening schedules against bar time.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// RescreenSchedule decides when pairs are re-evaluated for cointegration.
// It is driven by bar timestamps, never by the wall clock, so a replay
// re-screens at the same bars every time.
type RescreenSchedule struct {
	expr     string
	schedule cron.Schedule
}

// NewRescreenSchedule parses a standard five-field cron expression or a
// descriptor such as "@monthly".
func NewRescreenSchedule(expr string) (*RescreenSchedule, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid rescreen schedule %q: %w", expr, err)
	}
	return &RescreenSchedule{expr: expr, schedule: schedule}, nil
}

// Due reports whether a scheduled activation falls in (last, now]
func (r *RescreenSchedule) Due(last, now time.Time) bool {
	return !r.schedule.Next(last).After(now)
}

// Next returns the first activation after t
func (r *RescreenSchedule) Next(t time.Time) time.Time {
	return r.schedule.Next(t)
}

// String returns the cron expression
func (r *RescreenSchedule) String() string {
	return r.expr
}
