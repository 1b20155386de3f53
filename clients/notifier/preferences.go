package notifier

import (
	"sort"
	"sync"
)

// Preferences tracks which alert categories each subscriber receives.
// A new subscriber starts with every category enabled.
type Preferences struct {
	mu   sync.RWMutex
	subs map[string]map[Category]bool
}

// NewPreferences creates an empty preference store.
func NewPreferences() *Preferences {
	return &Preferences{
		subs: make(map[string]map[Category]bool),
	}
}

// Subscribe registers a recipient with all categories enabled. Subscribing
// an existing recipient resets their preferences to all-on.
func (p *Preferences) Subscribe(recipient string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefs := make(map[Category]bool, len(Categories()))
	for _, c := range Categories() {
		prefs[c] = true
	}
	p.subs[recipient] = prefs
}

// Unsubscribe removes a recipient entirely.
func (p *Preferences) Unsubscribe(recipient string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subs, recipient)
}

// SetCategory toggles a single category for a recipient. Unknown recipients
// are ignored.
func (p *Preferences) SetCategory(recipient string, category Category, enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefs, ok := p.subs[recipient]
	if !ok {
		return
	}
	prefs[category] = enabled
}

// Enabled reports whether a recipient receives a category.
func (p *Preferences) Enabled(recipient string, category Category) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	prefs, ok := p.subs[recipient]
	if !ok {
		return false
	}
	return prefs[category]
}

// Subscribed reports whether a recipient is registered at all.
func (p *Preferences) Subscribed(recipient string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.subs[recipient]
	return ok
}

// Recipients returns the recipients with the given category enabled,
// sorted for deterministic delivery order.
func (p *Preferences) Recipients(category Category) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []string
	for recipient, prefs := range p.subs {
		if prefs[category] {
			out = append(out, recipient)
		}
	}
	sort.Strings(out)
	return out
}

// Count returns the number of registered recipients.
func (p *Preferences) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}
