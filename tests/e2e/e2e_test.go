package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/artifact"
	"github.com/weftlabs/weft/internal/panel"
	"github.com/weftlabs/weft/internal/render"
	"github.com/weftlabs/weft/internal/source"
	"github.com/weftlabs/weft/internal/store"
	"github.com/weftlabs/weft/internal/streaming"
	"github.com/weftlabs/weft/pkg/resource"
	"github.com/weftlabs/weft/pkg/weft"
)

// --- Test infrastructure ---

// testEnv holds all real dependencies for the panel E2E tests: a
// libSQL store on disk, the event log, the builtin renderers and the
// live session served over real HTTP.
type testEnv struct {
	store    *store.LibSQLStore
	eventLog *store.EventLog
	hub      *streaming.MemoryHub
	session  *panel.LiveSession
	http     *httptest.Server
}

func surveyRoot(t *testing.T) *resource.Root {
	t.Helper()
	r, err := resource.Build(func() resource.Resource {
		return resource.NewRoot("survey",
			resource.WithName("Survey"),
			resource.WithChildren(
				resource.NewNode("age", resource.WithValue(int64(30)), resource.WithRenderer("number")),
				resource.NewComposite("address",
					resource.WithChildren(
						resource.NewNode("city", resource.WithValue("lagos"), resource.WithRenderer("text")),
					),
				),
			),
		)
	})
	require.NoError(t, err)
	return r.(*resource.Root)
}

func newTestEnv(t *testing.T, root *resource.Root) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "e2e.db")
	s, err := store.NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	eventLog := store.NewEventLog(s)
	reg := render.NewRegistry()
	require.NoError(t, render.RegisterBuiltins(reg))
	hub := streaming.NewMemoryHub()

	session := panel.NewLiveSession(root, reg, s, eventLog, hub, nil)
	require.NoError(t, session.Persist(context.Background()))

	p, err := artifact.NewPackager()
	require.NoError(t, err)
	srv := panel.NewPanelServer(session, panel.PanelDeps{
		Store:    s,
		Hub:      hub,
		Packager: p,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{store: s, eventLog: eventLog, hub: hub, session: session, http: ts}
}

func (e *testEnv) getJSON(t *testing.T, path string, target any) {
	t.Helper()
	resp, err := http.Get(e.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.http.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// --- Tests ---

func TestE2E_ValueSubmissionThroughPanel(t *testing.T) {
	env := newTestEnv(t, surveyRoot(t))

	resp := env.postJSON(t, "/api/values/survey/age", map[string]any{"value": 44})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var values map[string]any
	env.getJSON(t, "/api/values", &values)
	assert.Equal(t, float64(44), values["age"])
	assert.Equal(t, "lagos", values["city"])

	// The change is also in the durable event log.
	events, err := env.store.GetEventsByType(context.Background(),
		streaming.EventValueChanged, store.EventFilter{SessionID: env.session.SessionID()})
	require.NoError(t, err)
	require.NotEmpty(t, events)
	found := false
	for _, ev := range events {
		if ev.Path == "survey/age" {
			assert.JSONEq(t, `{"value": 44}`, string(ev.Payload))
			found = true
		}
	}
	assert.True(t, found, "expected a value_changed event for survey/age")
}

func TestE2E_SaveProducesLoadableSnapshot(t *testing.T) {
	env := newTestEnv(t, surveyRoot(t))

	resp := env.postJSON(t, "/api/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	snap, err := env.store.LatestSnapshot(context.Background(), env.session.SessionID())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, artifact.Sha256Bytes([]byte(snap.Source)), snap.Checksum)
	assert.JSONEq(t, `{"age": 30, "city": "lagos"}`, string(snap.Values))

	// The snapshot's source text reconstructs the same value tree.
	loaded, err := source.Load([]byte(snap.Source), "Survey")
	require.NoError(t, err)
	assert.Equal(t, env.session.Root().AllValues(), loaded.AllValues())
}

func TestE2E_ReplayReconstructsValues(t *testing.T) {
	env := newTestEnv(t, surveyRoot(t))

	for i, v := range []int{40, 41, 42} {
		resp := env.postJSON(t, "/api/values/survey/age", map[string]any{"value": v})
		require.Equal(t, http.StatusOK, resp.StatusCode, "submission %d", i)
	}

	values, err := env.eventLog.Replay(context.Background(), env.session.SessionID())
	require.NoError(t, err)
	assert.Equal(t, float64(42), values["survey/age"], "replay keeps the latest value per path")
}

func TestE2E_ExportedScriptRoundTrips(t *testing.T) {
	env := newTestEnv(t, surveyRoot(t))

	resp, err := http.Get(env.http.URL + "/api/export?format=script")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	loaded, err := source.Load(buf.Bytes(), "Survey")
	require.NoError(t, err)
	assert.Equal(t, env.session.Root().AllValues(), loaded.AllValues())

	// And the export is recorded.
	exports, err := env.store.ListExports(context.Background(), env.session.SessionID())
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, "script", exports[0].Format)
}

func TestE2E_DerivedValuesRecomputeOnSubmission(t *testing.T) {
	r, err := resource.Build(func() resource.Resource {
		return resource.NewRoot("calc",
			resource.WithName("Calc"),
			resource.WithChildren(
				resource.NewNode("a", resource.WithValue(int64(2)), resource.WithRenderer("number")),
				resource.NewNode("b", resource.WithValue(int64(3)), resource.WithRenderer("number")),
				resource.NewNode("total",
					resource.WithValue(nil),
					resource.WithRenderer("value"),
					resource.WithAttr(weft.DerivedAttr, "${{values.a}} + ${{values.b}}"),
				),
			),
			resource.WithVisualize(weft.Derived(nil)),
		)
	})
	require.NoError(t, err)
	env := newTestEnv(t, r.(*resource.Root))

	resp := env.postJSON(t, "/api/values/calc/a", map[string]any{"value": 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var values map[string]any
	env.getJSON(t, "/api/values", &values)
	assert.Equal(t, float64(13), values["total"])
}

func TestE2E_SerializeLoadSerializeIsStable(t *testing.T) {
	root := surveyRoot(t)
	require.NoError(t, root.SetValueAt([]string{"age"}, int64(55)))

	first, err := root.ToSource()
	require.NoError(t, err)

	loaded, err := source.Load([]byte(first), "Survey")
	require.NoError(t, err)
	second, err := loaded.ToSource()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, root.AllValues(), loaded.AllValues())
}

func TestE2E_SSEDeliversRunEvents(t *testing.T) {
	env := newTestEnv(t, surveyRoot(t))

	req, err := http.NewRequest(http.MethodGet, env.http.URL+"/sse/events", nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req = req.WithContext(ctx)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Trigger a run while the stream is open.
	post := env.postJSON(t, "/api/run", nil)
	require.Equal(t, http.StatusOK, post.StatusCode)

	// Read until the run_completed event arrives.
	found := make(chan bool, 1)
	go func() {
		buf := make([]byte, 4096)
		var acc []byte
		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				acc = append(acc, buf[:n]...)
				if bytes.Contains(acc, []byte(streaming.EventRunCompleted)) {
					found <- true
					return
				}
			}
			if readErr != nil {
				found <- false
				return
			}
		}
	}()

	select {
	case ok := <-found:
		assert.True(t, ok, "expected a %s event on the stream", streaming.EventRunCompleted)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the stream")
	}
}

func TestE2E_SessionListingAndDeletion(t *testing.T) {
	env := newTestEnv(t, surveyRoot(t))

	var sessions []*store.Session
	env.getJSON(t, "/api/sessions", &sessions)
	require.Len(t, sessions, 1)
	assert.Equal(t, env.session.SessionID(), sessions[0].ID)
	assert.Equal(t, "survey", sessions[0].Widget)

	// The live session cannot be deleted.
	req, err := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/api/sessions/%s", env.http.URL, env.session.SessionID()), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
