package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var cronReference = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseCron parses a standard 5 field cron expression or a descriptor like
// @hourly or @every 5m and returns the interval between two consecutive
// activations.
func ParseCron(expr string) (time.Duration, error) {
	if strings.TrimSpace(expr) == "" {
		return 0, errors.New("empty cron expression")
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return 0, err
	}
	first := sched.Next(cronReference)
	second := sched.Next(first)
	if first.IsZero() || second.IsZero() {
		return 0, fmt.Errorf("cron expression %q never fires", expr)
	}
	return second.Sub(first), nil
}

// Interval returns the rescan interval of a timer schedule.
func (s Schedule) Interval() (time.Duration, error) {
	switch {
	case s.Cron != "":
		d, err := ParseCron(s.Cron)
		if err != nil {
			return 0, fmt.Errorf("parsing service.schedule.cron: %w", err)
		}
		return d, nil
	case s.Duration != "":
		d, err := time.ParseDuration(s.Duration)
		if err != nil {
			return 0, fmt.Errorf("parsing service.schedule.duration: %w", err)
		}
		if d <= 0 {
			return 0, fmt.Errorf("service.schedule.duration must be positive, got %s", d)
		}
		return d, nil
	default:
		return 0, errors.New("both cron and duration are empty")
	}
}
