package httpapi

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kmehta/nivesh-backend/internal/usecase/portfolio"
)

// SessionRegistry hands out one portfolio orchestrator per user, creating and
// loading it on first use. Orchestrators are long-lived: they hold the user's
// in-memory trade list and remote subscription for the life of the process.
type SessionRegistry struct {
	factory func(userID string) *portfolio.Service
	log     zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*portfolio.Service
}

// NewSessionRegistry creates a registry backed by the given factory.
func NewSessionRegistry(factory func(userID string) *portfolio.Service, log zerolog.Logger) *SessionRegistry {
	return &SessionRegistry{
		factory:  factory,
		log:      log.With().Str("component", "sessions").Logger(),
		sessions: make(map[string]*portfolio.Service),
	}
}

// Get returns the orchestrator for a user, creating and loading it on first
// access. A failed load is not cached so the next request retries.
func (r *SessionRegistry) Get(ctx context.Context, userID string) (*portfolio.Service, error) {
	r.mu.Lock()
	if svc, ok := r.sessions[userID]; ok {
		r.mu.Unlock()
		return svc, nil
	}
	r.mu.Unlock()

	svc := r.factory(userID)
	if err := svc.Load(ctx); err != nil {
		svc.Close()
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[userID]; ok {
		// Lost the race; discard ours
		svc.Close()
		return existing, nil
	}
	r.sessions[userID] = svc
	r.log.Info().Str("user", userID).Msg("portfolio session created")
	return svc, nil
}

// Each invokes fn for every live orchestrator, used by the background
// price-refresh schedule.
func (r *SessionRegistry) Each(fn func(userID string, svc *portfolio.Service)) {
	r.mu.Lock()
	snapshot := make(map[string]*portfolio.Service, len(r.sessions))
	for id, svc := range r.sessions {
		snapshot[id] = svc
	}
	r.mu.Unlock()

	for id, svc := range snapshot {
		fn(id, svc)
	}
}

// Close shuts down every orchestrator.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, svc := range r.sessions {
		svc.Close()
		delete(r.sessions, id)
	}
}
