package validation

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/weftlabs/weft/pkg/resource"
)

var valueRefPattern = regexp.MustCompile(`\$\{\{\s*values\.([A-Za-z0-9_-]+)`)

// validateDerivedGraph performs graph analysis on derived values:
// cycle detection (Kahn's algorithm) over ${{values.<id>}} references
// between "expr" attributes, plus unknown-reference detection.
func validateDerivedGraph(root *resource.Root) *ValidationResult {
	result := &ValidationResult{}

	// Collect leaf ids and the expressions attached to them.
	leafIDs := make(map[string]bool)
	exprs := make(map[string]string)
	exprLoc := make(map[string]string)

	_ = resource.Walk(root, func(path []string, r resource.Resource) error {
		if len(r.Children()) > 0 || len(path) == 0 {
			return nil
		}
		leafIDs[r.ID()] = true
		a, ok := r.(attrser)
		if !ok {
			return nil
		}
		if e, ok := a.Attrs()["expr"].(string); ok && e != "" {
			exprs[r.ID()] = e
			exprLoc[r.ID()] = resource.Key(path)
		}
		return nil
	})

	if len(exprs) == 0 {
		return result
	}

	// edges[id] = value ids that id's expression reads,
	// reverse[dep] = ids whose expressions read dep.
	edges := make(map[string][]string, len(exprs))
	reverse := make(map[string][]string, len(exprs))

	for id, e := range exprs {
		seen := make(map[string]bool)
		for _, m := range valueRefPattern.FindAllStringSubmatch(e, -1) {
			dep := m[1]
			if seen[dep] {
				continue
			}
			seen[dep] = true
			if !leafIDs[dep] {
				result.AddError(exprLoc[id], resource.ErrCodeConfiguration,
					fmt.Sprintf("expression on %q references unknown value %q", id, dep))
				continue
			}
			if _, derived := exprs[dep]; !derived {
				continue // plain input values cannot participate in a cycle
			}
			edges[id] = append(edges[id], dep)
			reverse[dep] = append(reverse[dep], id)
		}
	}

	// Kahn's algorithm for cycle detection among derived values.
	inDegree := make(map[string]int, len(exprs))
	for id := range exprs {
		inDegree[id] = len(edges[id])
	}

	queue := make([]string, 0, len(exprs))
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	// Sort roots for deterministic output.
	sort.Strings(queue)

	visited := 0
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range reverse[node] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visited != len(exprs) {
		cyclic := make([]string, 0)
		for id, deg := range inDegree {
			if deg > 0 {
				cyclic = append(cyclic, id)
			}
		}
		sort.Strings(cyclic)
		result.AddError("values", resource.ErrCodeCycleRejected,
			fmt.Sprintf("derived values form a reference cycle: %v", cyclic))
	}

	return result
}
