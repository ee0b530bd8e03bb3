package storage

import (
	"context"
	"time"

	"github.com/yanun0323/logs"
)

const (
	DefaultRetentionDays     = 7
	defaultRetentionInterval = time.Hour
)

// Retention deletes rows older than Days once per Interval.
type Retention struct {
	Store    Store
	Days     int
	Interval time.Duration
	Now      func() time.Time
}

// Sweep runs one cleanup pass.
func (r Retention) Sweep(ctx context.Context) (int64, error) {
	days := r.Days
	if days <= 0 {
		days = DefaultRetentionDays
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	cutoff := now().AddDate(0, 0, -days)
	n, err := r.Store.Cleanup(ctx, cutoff)
	if err != nil {
		logs.Errorf("storage: retention cleanup before %s, err: %+v", cutoff.Format(time.RFC3339), err)
		return 0, err
	}
	if n > 0 {
		logs.Infof("storage: retention removed %d rows older than %d days", n, days)
	}
	return n, nil
}

func (r Retention) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = defaultRetentionInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = r.Sweep(ctx)
		}
	}
}
