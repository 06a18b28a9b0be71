package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"FilingsScanner/internal/ports"
)

// CronScheduler runs a job on a six-field cron expression (seconds first).
// A run still in progress when the next tick fires is skipped.
type CronScheduler struct {
	spec     string
	location *time.Location
	logger   cron.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler configured via cron expression string.
func NewCronScheduler(spec string, location *time.Location, logger cron.Logger) *CronScheduler {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = cron.DiscardLogger
	}
	return &CronScheduler{spec: spec, location: location, logger: logger}
}

// Start registers job and begins ticking until ctx is done or Stop is called.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	runner := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(c.location),
		cron.WithLogger(c.logger),
		cron.WithChain(cron.Recover(c.logger), cron.SkipIfStillRunning(c.logger)),
	)
	if _, err := runner.AddFunc(c.spec, func() { job(time.Now().In(c.location)) }); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", c.spec, err)
	}

	runner.Start()
	c.cron = runner

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()

	return nil
}

// Stop halts scheduling and waits for a running job until ctx expires.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.cron
	c.cron = nil
	c.mu.Unlock()

	if runner == nil {
		return nil
	}

	done := runner.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next reports the next activation after t, for logging.
func (c *CronScheduler) Next(t time.Time) (time.Time, error) {
	schedule, err := cron.NewParser(
		cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	).Parse(c.spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", c.spec, err)
	}
	return schedule.Next(t.In(c.location)), nil
}
