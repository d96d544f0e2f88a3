package optimization

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"adsoptimizer/internal/models"
)

const fallbackInterval = 24 * time.Hour

// ParseCustomCron accepts the standard five-field syntax and descriptors such
// as @daily or @every 6h.
func ParseCustomCron(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("empty cron expression")
	}
	return cron.ParseStandard(expr)
}

// NormalizeSchedule upper-cases schedule, defaulting to DAILY, and validates
// the cron expression of CUSTOM schedules. Other schedules drop customCron.
func NormalizeSchedule(schedule string, customCron *string) (string, *string, error) {
	schedule = strings.ToUpper(strings.TrimSpace(schedule))
	if schedule == "" {
		schedule = models.ScheduleDaily
	}
	switch schedule {
	case models.ScheduleHourly, models.ScheduleDaily, models.ScheduleWeekly:
		return schedule, nil, nil
	case models.ScheduleCustom:
		if customCron == nil {
			return "", nil, fmt.Errorf("%w: custom schedule requires custom_cron", ErrInvalidRule)
		}
		expr := strings.TrimSpace(*customCron)
		if _, err := ParseCustomCron(expr); err != nil {
			return "", nil, fmt.Errorf("%w: custom_cron: %v", ErrInvalidRule, err)
		}
		return schedule, &expr, nil
	default:
		return "", nil, fmt.Errorf("%w: unsupported schedule %q", ErrInvalidRule, schedule)
	}
}

// NextRun returns the next due time after from. DAILY and WEEKLY land on
// midnight in loc. Unknown schedules and unusable CUSTOM expressions run again
// 24 hours later.
func NextRun(schedule string, customCron *string, from time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	switch strings.ToUpper(strings.TrimSpace(schedule)) {
	case models.ScheduleHourly:
		return from.Add(time.Hour)
	case models.ScheduleDaily:
		return midnight(from.In(loc)).AddDate(0, 0, 1)
	case models.ScheduleWeekly:
		return midnight(from.In(loc)).AddDate(0, 0, 7)
	case models.ScheduleCustom:
		if customCron != nil {
			if sched, err := ParseCustomCron(*customCron); err == nil {
				if next := sched.Next(from.In(loc)); !next.IsZero() {
					return next
				}
			}
		}
	}
	return from.Add(fallbackInterval)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
