package lobby

import (
	"context"
	"sync"

	"connect4-server/games"
)

// Registry pairs players who asked for a human opponent. At most one player
// waits at a time.
type Registry struct {
	mu      sync.Mutex
	waiting *Ticket // nil when nobody is waiting
	newGame func(first games.Endpoint) *games.Game
}

// Ticket is a player's place in a game obtained from the registry.
type Ticket struct {
	game     *games.Game
	token    games.Token
	paired   chan struct{}
	registry *Registry
}

// NewRegistry returns an empty registry. newGame creates the game a first
// mover waits in.
func NewRegistry(newGame func(first games.Endpoint) *games.Game) *Registry {
	return &Registry{newGame: newGame}
}

// TryPair seats ep. If someone is waiting, ep joins their game as second
// mover and the returned ticket is already paired. Otherwise ep becomes the
// waiting first mover and must call Wait.
func (r *Registry) TryPair(ep games.Endpoint) *Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.waiting != nil {
		waiting := r.waiting
		r.waiting = nil
		if err := waiting.game.Join(ep); err != nil {
			// the waiting game ended without withdrawing; skip it
			continue
		}
		close(waiting.paired)

		t := &Ticket{
			game:     waiting.game,
			token:    games.YellowToken,
			paired:   make(chan struct{}),
			registry: r,
		}
		close(t.paired)
		return t
	}

	t := &Ticket{
		game:     r.newGame(ep),
		token:    games.RedToken,
		paired:   make(chan struct{}),
		registry: r,
	}
	r.waiting = t
	return t
}

// Waiting reports whether a player is waiting for an opponent.
func (r *Registry) Waiting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiting != nil
}

func (t *Ticket) Game() *games.Game {
	return t.game
}

// Token is the side the ticket holder plays.
func (t *Ticket) Token() games.Token {
	return t.token
}

// Paired reports whether an opponent has joined.
func (t *Ticket) Paired() bool {
	select {
	case <-t.paired:
		return true
	default:
		return false
	}
}

// Ready is closed once an opponent joins.
func (t *Ticket) Ready() <-chan struct{} {
	return t.paired
}

// Wait blocks until an opponent joins or ctx ends. A caller giving up must
// Withdraw the ticket.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.paired:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Withdraw takes an unpaired ticket out of the registry so nobody can be
// paired with it. It reports false if an opponent already joined.
func (t *Ticket) Withdraw() bool {
	r := t.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.waiting == t {
		r.waiting = nil
		return true
	}
	return false
}
