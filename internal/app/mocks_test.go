package app

import (
	"polyhawk/clients/notifier"
	"sync"
)

// mockNotifier captures alerts for assertions.
type mockNotifier struct {
	mu     sync.Mutex
	alerts []notifier.Alert
}

func (m *mockNotifier) SendAlert(alert notifier.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
}

func (m *mockNotifier) Close() error { return nil }

func (m *mockNotifier) Alerts() []notifier.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]notifier.Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

func (m *mockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

func (m *mockNotifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = nil
}
