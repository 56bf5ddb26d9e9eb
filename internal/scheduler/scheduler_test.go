package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSaver tracks SaveSession calls.
type mockSaver struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (m *mockSaver) SaveSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, sessionID)
	return m.err
}

func (m *mockSaver) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockSaver) saved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func newTestAutosaver(saver SessionSaver) *Autosaver {
	return NewAutosaver(saver, slog.Default())
}

// setNextRun forces a registered job's due time, bypassing the cron calculation.
func setNextRun(a *Autosaver, sessionID string, at time.Time) {
	a.jobsMu.Lock()
	defer a.jobsMu.Unlock()
	if j, ok := a.jobs[sessionID]; ok {
		j.NextRunAt = at
	}
}

// --- Tests ---

func TestCalculateNextRun(t *testing.T) {
	a := newTestAutosaver(&mockSaver{})
	from := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	// Every hour at minute 0.
	next, err := a.CalculateNextRun("0 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 10, 13, 0, 0, 0, time.UTC), next)

	// Every 15 minutes.
	next, err = a.CalculateNextRun("*/15 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 10, 12, 15, 0, 0, time.UTC), next)

	// Daily at midnight.
	next, err = a.CalculateNextRun("0 0 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC), next)

	// Invalid expression.
	_, err = a.CalculateNextRun("invalid cron", from)
	require.Error(t, err)
}

func TestRegisterRejectsInvalidCron(t *testing.T) {
	a := newTestAutosaver(&mockSaver{})
	err := a.Register("sess-1", "not a cron expr")
	require.Error(t, err)
	assert.Empty(t, a.Jobs())
}

func TestTickRunsDueJobs(t *testing.T) {
	saver := &mockSaver{}
	a := newTestAutosaver(saver)
	ctx := context.Background()

	require.NoError(t, a.Register("sess-due", "0 * * * *"))
	setNextRun(a, "sess-due", time.Now().UTC().Add(-time.Hour))

	a.tick(ctx)

	assert.Equal(t, 1, saver.callCount())
	assert.Equal(t, []string{"sess-due"}, saver.saved())

	jobs := a.Jobs()
	require.Len(t, jobs, 1)
	assert.NotNil(t, jobs[0].LastRunAt)
	assert.Equal(t, "success", jobs[0].LastRunStatus)
	assert.True(t, jobs[0].NextRunAt.After(time.Now().UTC().Add(-time.Second)))
}

func TestTickSkipsNotDueJobs(t *testing.T) {
	saver := &mockSaver{}
	a := newTestAutosaver(saver)

	require.NoError(t, a.Register("sess-future", "0 * * * *"))
	setNextRun(a, "sess-future", time.Now().UTC().Add(time.Hour))

	a.tick(context.Background())

	assert.Equal(t, 0, saver.callCount())
}

func TestUnregisterStopsSaves(t *testing.T) {
	saver := &mockSaver{}
	a := newTestAutosaver(saver)

	require.NoError(t, a.Register("sess-gone", "0 * * * *"))
	setNextRun(a, "sess-gone", time.Now().UTC().Add(-time.Hour))
	a.Unregister("sess-gone")

	a.tick(context.Background())

	assert.Equal(t, 0, saver.callCount())
	assert.Empty(t, a.Jobs())
}

func TestReRegisterReplacesSchedule(t *testing.T) {
	a := newTestAutosaver(&mockSaver{})

	require.NoError(t, a.Register("sess-1", "0 * * * *"))
	require.NoError(t, a.Register("sess-1", "*/15 * * * *"))

	jobs := a.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "*/15 * * * *", jobs[0].CronExpression)
}

func TestJobRunFailure(t *testing.T) {
	saver := &mockSaver{err: assert.AnError}
	a := newTestAutosaver(saver)

	require.NoError(t, a.Register("sess-fail", "0 * * * *"))
	setNextRun(a, "sess-fail", time.Now().UTC().Add(-time.Hour))

	a.tick(context.Background())

	jobs := a.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "error", jobs[0].LastRunStatus)
	// Schedule still advances after a failed save.
	assert.True(t, jobs[0].NextRunAt.After(time.Now().UTC()))
}

func TestStartStop(t *testing.T) {
	a := newTestAutosaver(&mockSaver{})
	ctx := context.Background()

	require.NoError(t, a.Start(ctx))

	// Double start should error.
	err := a.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")

	require.NoError(t, a.Stop())

	// Stop again should be a no-op.
	require.NoError(t, a.Stop())
}

func TestDedupPreventsDoubleRun(t *testing.T) {
	saver := &mockSaver{}
	a := newTestAutosaver(saver)
	ctx := context.Background()

	require.NoError(t, a.Register("sess-dedup", "0 * * * *"))
	setNextRun(a, "sess-dedup", time.Now().UTC().Add(-time.Hour))

	// Pre-acquire the session to simulate an in-flight save.
	acquired := a.tryAcquire("sess-dedup")
	assert.True(t, acquired)

	a.tick(ctx)
	assert.Equal(t, 0, saver.callCount())

	// Release and tick again, now it should run.
	a.release("sess-dedup")
	a.tick(ctx)
	assert.Equal(t, 1, saver.callCount())
}

func TestDedupReleasedAfterTick(t *testing.T) {
	saver := &mockSaver{}
	a := newTestAutosaver(saver)
	ctx := context.Background()

	require.NoError(t, a.Register("sess-release", "0 * * * *"))
	setNextRun(a, "sess-release", time.Now().UTC().Add(-time.Hour))

	a.tick(ctx)
	assert.Equal(t, 1, saver.callCount())

	// Inflight should be released after tick completes.
	setNextRun(a, "sess-release", time.Now().UTC().Add(-time.Hour))
	a.tick(ctx)
	assert.Equal(t, 2, saver.callCount())
}

func TestMultipleJobsSomeDue(t *testing.T) {
	saver := &mockSaver{}
	a := newTestAutosaver(saver)

	require.NoError(t, a.Register("due-1", "0 * * * *"))
	require.NoError(t, a.Register("not-due", "0 * * * *"))
	require.NoError(t, a.Register("due-2", "0 * * * *"))
	setNextRun(a, "due-1", time.Now().UTC().Add(-time.Hour))
	setNextRun(a, "not-due", time.Now().UTC().Add(time.Hour))
	setNextRun(a, "due-2", time.Now().UTC().Add(-time.Minute))

	a.tick(context.Background())

	assert.Equal(t, 2, saver.callCount())
	names := saver.saved()
	assert.Contains(t, names, "due-1")
	assert.Contains(t, names, "due-2")
	assert.NotContains(t, names, "not-due")
}

func TestSaveAllNow(t *testing.T) {
	saver := &mockSaver{}
	a := newTestAutosaver(saver)

	require.NoError(t, a.Register("sess-a", "0 * * * *"))
	require.NoError(t, a.Register("sess-b", "0 * * * *"))

	require.NoError(t, a.SaveAllNow(context.Background()))

	assert.Equal(t, 2, saver.callCount())
	names := saver.saved()
	assert.Contains(t, names, "sess-a")
	assert.Contains(t, names, "sess-b")
}
