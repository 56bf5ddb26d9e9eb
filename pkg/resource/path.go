package resource

import "strings"

// Resolve walks an id sequence from start, one segment at a time: each
// step finds the direct child whose id equals the next segment.
// Resolution is deterministic: literal id equality, nothing else. A
// segment with no matching child fails with PATH_NOT_FOUND naming both
// the missing id and its would-be parent. An empty path resolves to
// start itself.
//
// The walk computes parent context fresh on every call; no resource
// stores a back-reference to its parent.
func Resolve(start Resource, path []string) (Resource, error) {
	cur := start
	for i, seg := range path {
		cont, ok := cur.(container)
		if !ok {
			return nil, NewErrorf(ErrCodePathNotFound,
				"no child resource exists within %q: %s", cur.ID(), seg).
				WithDetails(map[string]any{"id": seg, "parent": cur.ID()}).
				WithPath(path[:i+1]...)
		}
		next, ok := cont.Child(seg)
		if !ok {
			return nil, NewErrorf(ErrCodePathNotFound,
				"no child resource exists within %q: %s", cur.ID(), seg).
				WithDetails(map[string]any{"id": seg, "parent": cur.ID()}).
				WithPath(path[:i+1]...)
		}
		cur = next
	}
	return cur, nil
}

// Walk visits r and every descendant depth-first in declared order,
// calling fn with the path from r (exclusive) to the visited resource.
// Parents are visited before their children. A non-nil error from fn
// stops the walk.
func Walk(r Resource, fn func(path []string, r Resource) error) error {
	return walk(r, nil, fn)
}

func walk(r Resource, path []string, fn func([]string, Resource) error) error {
	if err := fn(path, r); err != nil {
		return err
	}
	for _, child := range r.Children() {
		childPath := append(append([]string(nil), path...), child.ID())
		if err := walk(child, childPath, fn); err != nil {
			return err
		}
	}
	return nil
}

// Key joins a path into the stable string form used to address user
// input and display regions across the backend boundary.
func Key(path []string) string {
	return strings.Join(path, "/")
}

// SplitKey is the inverse of Key.
func SplitKey(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, "/")
}
