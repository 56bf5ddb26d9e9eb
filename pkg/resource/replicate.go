package resource

import "fmt"

// Replicate clones the template subtree n times under fresh ids
// produced by idFormat (a fmt verb receiving the 1-based copy index,
// e.g. "entry_%d"). The clones are unowned and ready to attach; the
// template itself is left untouched. This is how replicator-style
// widgets grow repeated sections of a form.
func Replicate(template Resource, n int, idFormat string) ([]Resource, error) {
	if n < 0 {
		return nil, NewErrorf(ErrCodeConfiguration, "replica count must be >= 0, got %d", n)
	}

	out := make([]Resource, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf(idFormat, i)
		if err := validateID(id); err != nil {
			return nil, err
		}

		switch t := template.(type) {
		case *Node:
			out = append(out, t.CloneAs(id))
		case *Composite:
			out = append(out, t.CloneAs(id))
		case interface{ CloneAs(string) Resource }:
			out = append(out, t.CloneAs(id))
		default:
			return nil, NewErrorf(ErrCodeConfiguration,
				"template %q does not support re-identified cloning", template.ID())
		}
	}
	return out, nil
}
