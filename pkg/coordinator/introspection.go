package coordinator

import (
	"time"

	"github.com/aretw0/introspection"
)

// CoordinatorState exposes internal state for observability.
type CoordinatorState struct {
	Phase            string     `json:"phase"`
	UserID           string     `json:"user_id,omitempty"`
	LocalWrites      int        `json:"local_writes"`
	LocalWriteErrors int        `json:"local_write_errors"`
	Following        bool       `json:"following"`
	LastSync         *time.Time `json:"last_sync,omitempty"`
	LocalStore       string     `json:"local_store"`
}

// State implements introspection.Introspectable.
func (c *Coordinator) State() any {
	localType := "local-store"
	if comp, ok := c.local.(introspection.Component); ok {
		localType = comp.ComponentType()
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return CoordinatorState{
		Phase:            c.Phase().String(),
		UserID:           c.UserID(),
		LocalWrites:      c.writes,
		LocalWriteErrors: c.writeErrors,
		Following:        c.following.Load(),
		LastSync:         c.lastSync,
		LocalStore:       localType,
	}
}

// ComponentType implements introspection.Component.
func (c *Coordinator) ComponentType() string {
	return "sync-coordinator"
}

var _ introspection.Introspectable = (*Coordinator)(nil)
var _ introspection.Component = (*Coordinator)(nil)
