package ast

import (
	"errors"
	"fmt"
)

// ErrInvariant is matched by every InvariantError.
var ErrInvariant = errors.New("node graph invariant violated")

// InvariantError reports a structurally impossible graph, such as a
// materialized node missing a required child.
type InvariantError struct {
	NodeID  int
	Kind    NodeKind
	Message string
}

func (e *InvariantError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("node %d: %s", e.NodeID, e.Message)
	}
	return fmt.Sprintf("%s node %d: %s", e.Kind, e.NodeID, e.Message)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }
