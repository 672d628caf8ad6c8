package postgres

import (
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Listener multiplexes Postgres LISTEN/NOTIFY channels onto local callbacks,
// backing the realtime trade subscription.
type Listener struct {
	pq  *pq.Listener
	log zerolog.Logger

	mu        sync.Mutex
	callbacks map[string][]subscription
	nextID    int
	done      chan struct{}
}

type subscription struct {
	id int
	fn func()
}

// NewListener connects a LISTEN/NOTIFY listener and starts its dispatch loop.
func NewListener(connStr string, log zerolog.Logger) (*Listener, error) {
	l := &Listener{
		log:       log.With().Str("component", "pg_listener").Logger(),
		callbacks: make(map[string][]subscription),
		done:      make(chan struct{}),
	}

	l.pq = pq.NewListener(connStr, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.log.Warn().Err(err).Int("event", int(ev)).Msg("listener event")
		}
	})

	go l.dispatch()
	return l, nil
}

// Subscribe registers fn for notifications on channel. The returned function
// cancels the registration, issuing UNLISTEN when it was the last one.
func (l *Listener) Subscribe(channel string, fn func()) (func(), error) {
	l.mu.Lock()
	first := len(l.callbacks[channel]) == 0
	l.nextID++
	id := l.nextID
	l.callbacks[channel] = append(l.callbacks[channel], subscription{id: id, fn: fn})
	l.mu.Unlock()

	if first {
		if err := l.pq.Listen(channel); err != nil {
			l.removeSubscription(channel, id)
			return nil, err
		}
	}

	return func() {
		if l.removeSubscription(channel, id) {
			_ = l.pq.Unlisten(channel)
		}
	}, nil
}

// Close stops the dispatch loop and the underlying connection.
func (l *Listener) Close() error {
	close(l.done)
	return l.pq.Close()
}

// removeSubscription drops one registration, reporting whether the channel is
// now empty.
func (l *Listener) removeSubscription(channel string, id int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	subs := l.callbacks[channel]
	for i, s := range subs {
		if s.id == id {
			l.callbacks[channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(l.callbacks[channel]) == 0 {
		delete(l.callbacks, channel)
		return true
	}
	return false
}

func (l *Listener) dispatch() {
	for {
		select {
		case <-l.done:
			return
		case n := <-l.pq.Notify:
			if n == nil {
				// Connection reset; pq re-establishes LISTENs itself
				continue
			}
			l.mu.Lock()
			subs := make([]subscription, len(l.callbacks[n.Channel]))
			copy(subs, l.callbacks[n.Channel])
			l.mu.Unlock()

			for _, s := range subs {
				s.fn()
			}
		case <-time.After(90 * time.Second):
			// Periodic liveness check per lib/pq guidance
			go func() {
				_ = l.pq.Ping()
			}()
		}
	}
}
