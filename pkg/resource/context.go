package resource

import "log/slog"

// Backend is the narrow contract a rendering backend satisfies. For
// every run trigger the backend supplies user-submitted raw input and
// hands out display regions; its internals (HTML, terminals, tests)
// are not this package's concern.
type Backend interface {
	// Input returns the raw value the user submitted for the given
	// key (see Key), if any.
	Input(key string) (any, bool)

	// Region returns the display region for a subtree. A nil region
	// means the backend declines to display that subtree.
	Region(path []string) Region
}

// Region is one display slot handed out by the backend.
type Region interface {
	// Show renders a state snapshot using the named renderer.
	Show(renderer string, state map[string]any) error
}

// RunContext threads collaborator access through one run pass. The
// tree never reads ambient globals: everything a hook or renderer may
// touch arrives here. One RunContext serves exactly one pass.
type RunContext struct {
	Backend Backend
	Logger  *slog.Logger

	// path is the current traversal position, maintained by the run
	// loop. It is ephemeral per-pass state, never stored on resources.
	path []string
}

// NewRunContext builds a RunContext for one pass. A nil backend gives
// a headless pass in which node rendering is skipped.
func NewRunContext(backend Backend) *RunContext {
	return &RunContext{Backend: backend, Logger: slog.Default()}
}

// WithLogger sets the pass logger and returns rc.
func (rc *RunContext) WithLogger(logger *slog.Logger) *RunContext {
	if logger != nil {
		rc.Logger = logger
	}
	return rc
}

// Path returns a copy of the current traversal path.
func (rc *RunContext) Path() []string {
	return append([]string(nil), rc.path...)
}

// Key returns the input/display key for the current traversal position.
func (rc *RunContext) Key() string {
	return Key(rc.path)
}

func (rc *RunContext) push(id string) { rc.path = append(rc.path, id) }

func (rc *RunContext) pop() { rc.path = rc.path[:len(rc.path)-1] }
