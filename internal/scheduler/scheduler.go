package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// SessionSaver is the interface the autosaver uses to persist sessions.
// Satisfied by the session registry (avoids import cycle).
type SessionSaver interface {
	SaveSession(ctx context.Context, sessionID string) error
}

// Job is one registered autosave schedule for a live session.
type Job struct {
	SessionID      string
	CronExpression string
	NextRunAt      time.Time
	LastRunAt      *time.Time
	LastRunStatus  string
}

// Autosaver snapshots registered sessions on their cron schedules.
type Autosaver struct {
	saver  SessionSaver
	parser cron.Parser
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex

	jobsMu sync.Mutex
	jobs   map[string]*Job // keyed by session ID

	inflightMu sync.Mutex
	inflight   map[string]struct{} // session IDs currently saving (dedup)

	tickInterval time.Duration
}

// NewAutosaver creates a new Autosaver.
func NewAutosaver(saver SessionSaver, logger *slog.Logger) *Autosaver {
	return &Autosaver{
		saver:        saver,
		parser:       cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger:       logger,
		jobs:         make(map[string]*Job),
		inflight:     make(map[string]struct{}),
		tickInterval: 60 * time.Second,
	}
}

// Register schedules autosaves for a session. Replaces any existing
// schedule for the same session.
func (a *Autosaver) Register(sessionID, cronExpr string) error {
	next, err := a.CalculateNextRun(cronExpr, time.Now().UTC())
	if err != nil {
		return err
	}

	a.jobsMu.Lock()
	defer a.jobsMu.Unlock()
	a.jobs[sessionID] = &Job{
		SessionID:      sessionID,
		CronExpression: cronExpr,
		NextRunAt:      next,
	}
	return nil
}

// Unregister removes a session's autosave schedule.
func (a *Autosaver) Unregister(sessionID string) {
	a.jobsMu.Lock()
	defer a.jobsMu.Unlock()
	delete(a.jobs, sessionID)
}

// Jobs returns a snapshot of the registered schedules.
func (a *Autosaver) Jobs() []*Job {
	a.jobsMu.Lock()
	defer a.jobsMu.Unlock()
	out := make([]*Job, 0, len(a.jobs))
	for _, j := range a.jobs {
		cp := *j
		out = append(out, &cp)
	}
	return out
}

// Start launches the background autosave loop.
func (a *Autosaver) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.done != nil {
		a.mu.Unlock()
		return fmt.Errorf("autosaver already started")
	}

	saveCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	a.mu.Unlock()

	go a.loop(saveCtx)
	a.logger.Info("autosaver started")
	return nil
}

func (a *Autosaver) loop(ctx context.Context) {
	defer close(a.done)

	ticker := time.NewTicker(a.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

// tick saves every session whose schedule is due.
func (a *Autosaver) tick(ctx context.Context) {
	now := time.Now().UTC()

	a.jobsMu.Lock()
	var due []*Job
	for _, j := range a.jobs {
		if !j.NextRunAt.After(now) {
			due = append(due, j)
		}
	}
	a.jobsMu.Unlock()

	for _, job := range due {
		if !a.tryAcquire(job.SessionID) {
			continue // already saving (dedup)
		}
		if err := a.runJob(ctx, job, now); err != nil {
			a.logger.Error("autosave failed",
				slog.String("session_id", job.SessionID),
				slog.String("error", err.Error()),
			)
		}
		a.release(job.SessionID)
	}
}

// runJob saves one session and advances its schedule.
func (a *Autosaver) runJob(ctx context.Context, job *Job, now time.Time) error {
	a.logger.Info("autosaving session", slog.String("session_id", job.SessionID))

	err := a.saver.SaveSession(ctx, job.SessionID)
	status := "success"
	if err != nil {
		status = "error"
	}

	next, calcErr := a.CalculateNextRun(job.CronExpression, now)
	if calcErr != nil {
		return fmt.Errorf("calculate next run for session %q: %w", job.SessionID, calcErr)
	}

	a.jobsMu.Lock()
	if j, ok := a.jobs[job.SessionID]; ok {
		ts := now
		j.LastRunAt = &ts
		j.LastRunStatus = status
		j.NextRunAt = next
	}
	a.jobsMu.Unlock()

	return err
}

// tryAcquire returns true and marks the session as in-flight if it is not already saving.
func (a *Autosaver) tryAcquire(sessionID string) bool {
	a.inflightMu.Lock()
	defer a.inflightMu.Unlock()
	if _, ok := a.inflight[sessionID]; ok {
		return false
	}
	a.inflight[sessionID] = struct{}{}
	return true
}

// release removes the session from the in-flight set.
func (a *Autosaver) release(sessionID string) {
	a.inflightMu.Lock()
	defer a.inflightMu.Unlock()
	delete(a.inflight, sessionID)
}

// CalculateNextRun computes the next run time for a cron expression.
func (a *Autosaver) CalculateNextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := a.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// Stop gracefully shuts down the autosaver.
func (a *Autosaver) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel == nil {
		return nil
	}

	a.cancel()
	<-a.done
	a.cancel = nil
	a.done = nil

	a.logger.Info("autosaver stopped")
	return nil
}

// SaveAllNow saves every registered session immediately, regardless of
// schedule. Used on shutdown so no pending changes are lost.
func (a *Autosaver) SaveAllNow(ctx context.Context) error {
	now := time.Now().UTC()
	saved := 0
	var firstErr error

	for _, job := range a.Jobs() {
		if !a.tryAcquire(job.SessionID) {
			continue
		}
		err := a.runJob(ctx, job, now)
		a.release(job.SessionID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		saved++
	}

	if saved > 0 {
		a.logger.Info("saved sessions", slog.Int("count", saved))
	}
	return firstErr
}
