package chrono

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const wallClockLayout = "2006-01-02 15:04:05"

// ParseWallClock parses "YYYY-MM-DD HH:MM:SS" (or with "/" as the date
// separator) in the local timezone.
func ParseWallClock(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	target, err := time.ParseInLocation(wallClockLayout, value, time.Local)
	if err == nil {
		return target, nil
	}
	target, err = time.ParseInLocation(wallClockLayout, strings.ReplaceAll(value, "/", "-"), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse wall clock time %q: expected format YYYY-MM-DD HH:MM:SS", value)
	}
	return target, nil
}

// Until returns how long is left until target, never negative.
func Until(t TimeAPI, target time.Time) time.Duration {
	remaining := target.Sub(t.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// WaitUntil blocks until target is reached, returning immediately if it is
// already in the past.
func WaitUntil(ctx context.Context, t TimeAPI, target time.Time) error {
	return t.Sleep(ctx, Until(t, target))
}
