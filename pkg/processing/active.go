package processing

import "sync"

// ActiveSession holds the id of the session currently being ingested.
// The resolver writes it, the lap reconstructor reads it; one instance
// is shared per pipeline.
type ActiveSession struct {
	mu sync.RWMutex
	id string
}

func (a *ActiveSession) Set(id string) {
	a.mu.Lock()
	a.id = id
	a.mu.Unlock()
}

// Get returns the active session id, empty when no session has been
// resolved yet.
func (a *ActiveSession) Get() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.id
}
