// Package resource implements the weft resource tree: an ordered,
// strictly-owned tree of addressable values that can be run against a
// rendering backend and serialized back into Go source which
// reconstructs an equivalent tree.
//
// Three variants make up a tree. Node is a leaf holding one value plus
// display attributes. Composite is an ordered container of Nodes and
// Composites with path-addressed access and a three-step run lifecycle
// (prep, run children in declared order, self-visualize). Root is a
// Composite with session-level responsibilities: requirements, extra
// imports, and source export.
//
// Constructors are declarative and panic with *Error on configuration
// violations (duplicate sibling ids, double attachment); wrap tree
// construction in Build to convert such panics into error values.
package resource
