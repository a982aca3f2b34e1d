package tabs

import (
	"github.com/aretw0/introspection"
)

// ManagerState exposes internal state for observability.
type ManagerState struct {
	Tabs        int    `json:"tabs"`
	Notes       int    `json:"notes"`
	CurrentTab  string `json:"current_tab"`
	UserID      string `json:"user_id,omitempty"`
	Revision    uint64 `json:"revision"`
	Observers   int    `json:"observers"`
	RemoteStore string `json:"remote_store"`
	InFlight    int    `json:"inflight_writes"`
	Failures    int    `json:"failed_writes"`
}

// State implements introspection.Introspectable.
func (m *Manager) State() any {
	observers := int(m.observerCount.Load())

	m.mu.RLock()
	defer m.mu.RUnlock()

	remoteType := "none"
	if m.remote != nil {
		remoteType = "document-store"
		if comp, ok := m.remote.Store.(introspection.Component); ok {
			remoteType = comp.ComponentType()
		}
	}

	return ManagerState{
		Tabs:        len(m.state.Tabs),
		Notes:       m.state.Tabs.Count(),
		CurrentTab:  m.state.CurrentTab,
		UserID:      m.state.UserID,
		Revision:    m.revision,
		Observers:   observers,
		RemoteStore: remoteType,
		InFlight:    m.runner.InFlight(),
		Failures:    m.runner.Failures(),
	}
}

// ComponentType implements introspection.Component.
func (m *Manager) ComponentType() string {
	return "tab-manager"
}

var _ introspection.Introspectable = (*Manager)(nil)
var _ introspection.Component = (*Manager)(nil)
