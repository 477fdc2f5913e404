package types

import (
	"fmt"

	"github.com/google/uuid"
)

// Handle is an opaque reference to a value that is computed and stored by a
// remote executor. The value it refers to may not exist yet. Handles are
// copyable tokens; the underlying value is owned by the executor, never by
// the graph. Nothing in the dataflow core inspects a handle except the
// gather boundary, which trades it back for the concrete value.
type Handle struct {
	ID string `json:"$handle"`
}

// NewHandle creates a handle with a fresh unique ID.
func NewHandle() Handle {
	return Handle{ID: uuid.NewString()}
}

// IsZero reports whether the handle refers to nothing.
func (h Handle) IsZero() bool {
	return h.ID == ""
}

func (h Handle) String() string {
	id := h.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("handle(%s)", id)
}
