// Package schedule fires the monthly pipeline trigger.
package schedule

import (
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger runs a callback on a cron spec, evaluated in UTC.
type Trigger struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func NewTrigger(spec string, fn func(), logger *slog.Logger) (*Trigger, error) {
	if fn == nil {
		return nil, errors.New("trigger callback is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(spec, fn); err != nil {
		return nil, err
	}
	return &Trigger{cron: c, logger: logger}, nil
}

func (t *Trigger) Start() {
	t.logger.Info("schedule started", "next", t.Next())
	t.cron.Start()
}

// Stop halts scheduling and waits for an in-flight callback to finish.
func (t *Trigger) Stop() {
	<-t.cron.Stop().Done()
}

// Next reports the next firing time.
func (t *Trigger) Next() time.Time {
	entries := t.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(time.Now().UTC())
}
