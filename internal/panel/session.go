package panel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/weftlabs/weft/internal/logging"
	"github.com/weftlabs/weft/internal/render"
	"github.com/weftlabs/weft/internal/store"
	"github.com/weftlabs/weft/internal/streaming"
	"github.com/weftlabs/weft/pkg/resource"
)

// RegionView is one rendered display region, in the order the run pass
// issued it.
type RegionView struct {
	Key      string         `json:"key"`
	Renderer string         `json:"renderer"`
	State    map[string]any `json:"state,omitempty"`
	HTML     string         `json:"html,omitempty"`
}

// LiveSession binds one widget tree to the panel: it queues submitted
// inputs, captures display regions during run passes, publishes change
// events to the hub and writes snapshots to the store. It implements
// resource.Backend for the tree and scheduler.SessionSaver for the
// autosaver.
type LiveSession struct {
	root     *resource.Root
	registry *render.Registry
	store    store.Store
	log      *store.EventLog
	hub      streaming.EventHub
	logger   *slog.Logger
	display  *displayPass

	mu      sync.Mutex
	inputs  map[string]any
	regions []RegionView
	running bool
}

// NewLiveSession wires a tree to its collaborators. store and hub may
// be nil for an ephemeral session; log may be nil when store is.
func NewLiveSession(root *resource.Root, registry *render.Registry, st store.Store, log *store.EventLog, hub streaming.EventHub, logger *slog.Logger) *LiveSession {
	if logger == nil {
		logger = slog.Default()
	}
	display, err := newDisplayPass()
	if err != nil {
		logger.Warn("display attributes disabled", "error", err)
	}
	return &LiveSession{
		root:     root,
		registry: registry,
		store:    st,
		log:      log,
		hub:      hub,
		logger:   logger,
		display:  display,
		inputs:   make(map[string]any),
	}
}

// Root returns the session's tree.
func (s *LiveSession) Root() *resource.Root { return s.root }

// SessionID returns the tree's session id.
func (s *LiveSession) SessionID() string { return s.root.SessionID }

// Persist registers the session in the store so snapshots and events
// have a parent row. No-op without a store.
func (s *LiveSession) Persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	now := time.Now().UTC()
	return s.store.CreateSession(ctx, &store.Session{
		ID:        s.root.SessionID,
		Widget:    s.root.ID(),
		Name:      s.root.Name,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// QueueInput stages a raw value the next run pass will consume for key.
func (s *LiveSession) QueueInput(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs[key] = v
}

// Input implements resource.Backend. Inputs are consumed by the pass
// that reads them.
func (s *LiveSession) Input(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.inputs[key]
	if ok {
		delete(s.inputs, key)
	}
	return v, ok
}

// Region implements resource.Backend.
func (s *LiveSession) Region(path []string) resource.Region {
	return &liveRegion{session: s, key: resource.Key(path)}
}

// Regions returns the display regions captured by the last run pass.
func (s *LiveSession) Regions() []RegionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RegionView, len(s.regions))
	copy(out, s.regions)
	return out
}

// Values returns the current leaf values keyed by full path.
func (s *LiveSession) Values() map[string]any {
	return pathValues(s.root)
}

// Run executes one full pass over the tree. Execution is strictly
// single-threaded: a pass requested while another is in flight fails
// with EXECUTION_ERROR. Value changes observed across the pass are
// published and appended to the event log.
func (s *LiveSession) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return resource.NewErrorf(resource.ErrCodeExecution,
			"session %s already has a run in progress", s.root.SessionID)
	}
	s.running = true
	s.regions = nil
	staged := make([]string, 0, len(s.inputs))
	for key := range s.inputs {
		staged = append(staged, key)
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx = logging.WithIDs(ctx, s.root.SessionID, s.root.ID(), "")
	logger := logging.LogWith(ctx, s.logger)

	before := pathValues(s.root)
	s.publish(ctx, streaming.EventRunStarted, "", nil)

	rc := resource.NewRunContext(s).WithLogger(logger)
	if err := s.root.Run(ctx, rc); err != nil {
		logger.Error("run pass failed", "error", err)
		s.publish(ctx, streaming.EventRunFailed, "", map[string]any{"error": err.Error()})
		return err
	}

	// Every key offered to this pass had its chance; leftovers address
	// unknown paths or nodes without a renderer. Dropping them keeps a
	// later renderer change from applying a stale submission. Keys
	// queued while the pass ran stay for the next one.
	s.mu.Lock()
	for _, key := range staged {
		if _, ok := s.inputs[key]; ok {
			delete(s.inputs, key)
			logger.Warn("discarding unconsumed input", "key", key)
		}
	}
	s.mu.Unlock()

	after := pathValues(s.root)
	for path, v := range after {
		if prev, ok := before[path]; ok && equalValues(prev, v) {
			continue
		}
		s.publish(ctx, streaming.EventValueChanged, path, map[string]any{"value": v})
		s.append(ctx, streaming.EventValueChanged, path, map[string]any{"value": v})
	}

	now := time.Now().UTC()
	if s.store != nil {
		if err := s.store.UpdateSession(ctx, s.root.SessionID, store.SessionUpdate{LastRunAt: &now}); err != nil {
			logger.Warn("failed to record run time", "error", err)
		}
	}

	s.publish(ctx, streaming.EventRunCompleted, "", map[string]any{"regions": len(s.Regions())})
	logger.Info("run pass completed", "changed", len(after))
	return nil
}

// SaveSession writes a snapshot of the current tree: the generated
// source plus its flattened values, checksummed. Satisfies the
// autosaver's SessionSaver contract.
func (s *LiveSession) SaveSession(ctx context.Context, sessionID string) error {
	if s.store == nil {
		return resource.NewError(resource.ErrCodeStore, "session has no store")
	}
	if sessionID == "" {
		sessionID = s.root.SessionID
	}

	src, err := s.root.ToSource()
	if err != nil {
		return err
	}
	flat, err := s.root.FlatValues()
	if err != nil {
		return err
	}
	values, err := json.Marshal(flat)
	if err != nil {
		return resource.NewError(resource.ErrCodeNotSerializable, "values are not JSON-encodable").WithCause(err)
	}

	sum := sha256.Sum256([]byte(src))
	snap := &store.Snapshot{
		SessionID: sessionID,
		Source:    src,
		Values:    values,
		Checksum:  hex.EncodeToString(sum[:]),
	}
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		return err
	}

	s.publish(ctx, streaming.EventSessionSaved, "", map[string]any{"snapshot_id": snap.ID, "checksum": snap.Checksum})
	s.append(ctx, streaming.EventSessionSaved, "", map[string]any{"snapshot_id": snap.ID})
	return nil
}

// Export packages the tree into an artifact, records the export and
// returns the bytes.
func (s *LiveSession) Export(ctx context.Context, p resource.Packager, format string) ([]byte, error) {
	data, err := s.root.ToArtifact(p, format)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])
	if s.store != nil {
		exp := &store.Export{
			SessionID: s.root.SessionID,
			Format:    format,
			Checksum:  checksum,
			SizeBytes: int64(len(data)),
		}
		if err := s.store.RecordExport(ctx, exp); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, streaming.EventExportMade, "", map[string]any{
		"format":   format,
		"checksum": checksum,
		"size":     len(data),
	})
	return data, nil
}

func (s *LiveSession) publish(ctx context.Context, eventType, path string, payload any) {
	if s.hub == nil {
		return
	}
	err := s.hub.Publish(ctx, streaming.StreamEvent{
		SessionID: s.root.SessionID,
		Path:      path,
		EventType: eventType,
		Payload:   payload,
	})
	if err != nil {
		s.logger.Warn("event publish failed", "event_type", eventType, "error", err)
	}
}

func (s *LiveSession) append(ctx context.Context, eventType, path string, payload any) {
	if s.log == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("event payload not encodable", "event_type", eventType, "error", err)
		return
	}
	err = s.log.Append(ctx, &store.Event{
		SessionID: s.root.SessionID,
		Path:      path,
		Type:      eventType,
		Payload:   raw,
	})
	if err != nil {
		s.logger.Warn("event append failed", "event_type", eventType, "error", err)
	}
}

type liveRegion struct {
	session *LiveSession
	key     string
}

// Show implements resource.Region: the state snapshot is rendered
// through the registry and retained for the UI.
func (rg *liveRegion) Show(renderer string, state map[string]any) error {
	if rg.session.display != nil {
		visible, err := rg.session.display.apply(context.Background(), rg.session.root, state)
		if err != nil {
			return err
		}
		if !visible {
			return nil
		}
	}

	view := RegionView{Key: rg.key, Renderer: renderer, State: state}

	if rg.session.registry != nil {
		rd, err := rg.session.registry.Get(renderer)
		if err != nil {
			return err
		}
		out, err := rd.Render(context.Background(), render.RenderRequest{Key: rg.key, State: state})
		if err != nil {
			return err
		}
		view.HTML = out.HTML
	}

	rg.session.mu.Lock()
	rg.session.regions = append(rg.session.regions, view)
	rg.session.mu.Unlock()
	return nil
}

// pathValues walks the tree and returns every leaf value keyed by its
// full slash path, root id included.
func pathValues(root *resource.Root) map[string]any {
	out := make(map[string]any)
	_ = resource.Walk(root, func(path []string, r resource.Resource) error {
		if len(r.Children()) > 0 || len(path) == 0 {
			return nil
		}
		v, err := r.Value()
		if err != nil {
			return nil
		}
		out[resource.Key(append([]string{root.ID()}, path...))] = v
		return nil
	})
	return out
}

// equalValues compares leaf values through their JSON projection,
// which matches how they cross the wire.
func equalValues(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ja) == string(jb)
}
