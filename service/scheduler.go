package service

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/attribute-engine/pkg/attrlog"
)

// Reloader is the subset of ReloadableService a ScheduledReloader drives.
type Reloader interface {
	Reload() error
}

// ScheduledReloader periodically calls Reload() on a cron schedule. The
// teacher's own go.mod requires robfig/cron/v3 but no production code path
// in the retrieved pack actually constructs a cron.Cron — automation's
// cron-expression handling there is a hand-rolled field-count check
// (services/automation/automation_triggers.go). This wires the dependency
// to a real caller instead of leaving it dead weight (see DESIGN.md).
type ScheduledReloader struct {
	cron     *cron.Cron
	reloader Reloader
	logger   *attrlog.Logger
	entryID  cron.EntryID
}

// NewScheduledReloader constructs a ScheduledReloader bound to a standard
// five-field (or "@every ..."/"@daily"-style) cron expression.
func NewScheduledReloader(cronExpr string, reloader Reloader, logger *attrlog.Logger) (*ScheduledReloader, error) {
	if logger == nil {
		logger = attrlog.Default()
	}
	c := cron.New()
	r := &ScheduledReloader{cron: c, reloader: reloader, logger: logger}
	id, err := c.AddFunc(cronExpr, r.runOnce)
	if err != nil {
		return nil, err
	}
	r.entryID = id
	return r, nil
}

// Start begins the cron scheduler in the background.
func (r *ScheduledReloader) Start() {
	r.cron.Start()
}

// Stop stops the cron scheduler, blocking until any in-flight reload
// completes.
func (r *ScheduledReloader) Stop() {
	<-r.cron.Stop().Done()
}

func (r *ScheduledReloader) runOnce() {
	ctx := context.Background()
	if err := r.reloader.Reload(); err != nil {
		r.logger.LogReload(ctx, 0, err)
		return
	}
	r.logger.LogReload(ctx, 0, nil)
}
