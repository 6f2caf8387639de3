package refresh

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule yields the next activation time after a given time.
type Schedule = cron.Schedule

// Interval is a fixed delay between runs. Unlike cron.Every it keeps
// sub-second precision.
type Interval time.Duration

// Next returns t plus the interval.
func (i Interval) Next(t time.Time) time.Time {
	return t.Add(time.Duration(i))
}

// Every returns a fixed-delay Schedule.
func Every(d time.Duration) Schedule {
	return Interval(d)
}

// Parse accepts standard cron expressions and descriptors such as
// "@every 5m", "@hourly" or "*/15 * * * *".
func Parse(spec string) (Schedule, error) {
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return s, nil
}
