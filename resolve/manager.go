package resolve

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/inspectIT/inspectit-ocelot-sub003/config"
)

// ChangeEvent is published after the current configuration was replaced.
type ChangeEvent struct {
	Old *Configuration
	New *Configuration
}

// Observer receives configuration change events.
type Observer interface {
	OnConfigChanged(e ChangeEvent)
}

// Manager owns the current configuration snapshot.
type Manager struct {
	current   atomic.Pointer[Configuration]
	observers []Observer
	obsMu     sync.RWMutex
	updateMu  sync.Mutex
}

// NewManager resolves raw as the initial configuration.
func NewManager(raw *config.Raw) *Manager {
	m := &Manager{}
	m.current.Store(Resolve(raw))
	return m
}

// Current returns the latest snapshot.
func (m *Manager) Current() *Configuration {
	return m.current.Load()
}

// Update resolves raw from scratch, installs it and notifies observers
// synchronously. Updates are serialized so observers see events in order.
func (m *Manager) Update(raw *config.Raw) *Configuration {
	m.updateMu.Lock()
	defer m.updateMu.Unlock()

	next := Resolve(raw)
	old := m.current.Swap(next)

	Logger().Info("configuration updated",
		zap.Int("scopes", len(next.Scopes)),
		zap.Int("rules", len(next.Rules)))

	m.notify(ChangeEvent{Old: old, New: next})
	return next
}

// Subscribe adds an observer for change events.
func (m *Manager) Subscribe(o Observer) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.observers = append(m.observers, o)
}

// Unsubscribe removes an observer.
func (m *Manager) Unsubscribe(o Observer) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	for i, obs := range m.observers {
		if obs == o {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return
		}
	}
}

func (m *Manager) notify(e ChangeEvent) {
	m.obsMu.RLock()
	observers := append([]Observer(nil), m.observers...)
	m.obsMu.RUnlock()

	for _, o := range observers {
		o.OnConfigChanged(e)
	}
}
