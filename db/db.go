package db

import (
	"errors"
	"sort"
	"sync"

	"connect4-server/games"
)

var (
	ErrGameNotFound   = errors.New("game not found")
	ErrPlayerNotFound = errors.New("player not found")
)

// Store keeps live games, a bounded history of finished ones and per-name
// results. Nothing survives a restart.
type Store struct {
	gameMutex  sync.RWMutex
	gamesMap   map[string]*games.Game
	history    []games.Snapshot
	maxHistory int

	playerMutex sync.RWMutex
	players     map[string]*games.Player
}

func New(historySize int) *Store {
	return &Store{
		gamesMap:   make(map[string]*games.Game),
		players:    make(map[string]*games.Player),
		maxHistory: historySize,
	}
}

// -------------------------- GAME ---------------------------

// SaveGame registers a live game.
func (s *Store) SaveGame(g *games.Game) {
	s.gameMutex.Lock()
	defer s.gameMutex.Unlock()
	s.gamesMap[g.ID] = g
}

// RemoveGame forgets a live game. Removing an unknown game is a no-op.
func (s *Store) RemoveGame(gameID string) {
	s.gameMutex.Lock()
	defer s.gameMutex.Unlock()
	delete(s.gamesMap, gameID)
}

// GetGame returns a live game, or the recorded result of a finished one.
func (s *Store) GetGame(gameID string) (games.Snapshot, error) {
	s.gameMutex.RLock()
	g, exists := s.gamesMap[gameID]
	s.gameMutex.RUnlock()
	if exists {
		return g.Snapshot(), nil
	}

	s.gameMutex.RLock()
	defer s.gameMutex.RUnlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].ID == gameID {
			return s.history[i], nil
		}
	}
	return games.Snapshot{}, ErrGameNotFound
}

// GetBoard renders a live game's board.
func (s *Store) GetBoard(gameID string) ([]string, error) {
	s.gameMutex.RLock()
	g, exists := s.gamesMap[gameID]
	s.gameMutex.RUnlock()
	if !exists {
		return nil, ErrGameNotFound
	}
	return g.BoardLines(), nil
}

// ListGames returns snapshots of live games, oldest first.
func (s *Store) ListGames() []games.Snapshot {
	s.gameMutex.RLock()
	live := make([]*games.Game, 0, len(s.gamesMap))
	for _, g := range s.gamesMap {
		live = append(live, g)
	}
	s.gameMutex.RUnlock()

	result := make([]games.Snapshot, 0, len(live))
	for _, g := range live {
		result = append(result, g.Snapshot())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// History returns finished games, most recent first.
func (s *Store) History() []games.Snapshot {
	s.gameMutex.RLock()
	defer s.gameMutex.RUnlock()
	result := make([]games.Snapshot, 0, len(s.history))
	for i := len(s.history) - 1; i >= 0; i-- {
		result = append(result, s.history[i])
	}
	return result
}

// RecordResult files a finished or abandoned game and, for games between two
// people, updates both players' results.
func (s *Store) RecordResult(snap games.Snapshot) {
	s.gameMutex.Lock()
	if s.maxHistory > 0 {
		s.history = append(s.history, snap)
		if len(s.history) > s.maxHistory {
			s.history = append([]games.Snapshot(nil), s.history[len(s.history)-s.maxHistory:]...)
		}
	}
	s.gameMutex.Unlock()

	s.updatePlayerStats(snap)
}

// ----------------- PLAYER -----------------------

func (s *Store) updatePlayerStats(snap games.Snapshot) {
	if snap.Type != games.OnlineMultiplayer || snap.Status != games.StatusFinished {
		return
	}

	s.playerMutex.Lock()
	defer s.playerMutex.Unlock()

	p1 := s.playerLocked(snap.Player1)
	p2 := s.playerLocked(snap.Player2)
	switch snap.Winner {
	case "":
		p1.Ties++
		p2.Ties++
	case snap.Player1:
		p1.Wins++
		p2.Losses++
	default:
		p2.Wins++
		p1.Losses++
	}
	p1.LastPlayed = snap.FinishedAt
	p2.LastPlayed = snap.FinishedAt
}

func (s *Store) playerLocked(username string) *games.Player {
	p, ok := s.players[username]
	if !ok {
		p = &games.Player{Username: username}
		s.players[username] = p
	}
	return p
}

func (s *Store) GetPlayer(username string) (games.Player, error) {
	s.playerMutex.RLock()
	defer s.playerMutex.RUnlock()

	player, exists := s.players[username]
	if !exists {
		return games.Player{}, ErrPlayerNotFound
	}
	return *player, nil
}

// ListPlayers returns all players in the store
func (s *Store) ListPlayers() []games.Player {
	s.playerMutex.RLock()
	defer s.playerMutex.RUnlock()

	result := make([]games.Player, 0, len(s.players))
	for _, p := range s.players {
		result = append(result, *p)
	}
	return result
}

// GetLeaderboard returns players sorted by wins, then fewest losses, then name.
func (s *Store) GetLeaderboard(limit int) []games.Player {
	players := s.ListPlayers()
	sort.Slice(players, func(i, j int) bool {
		if players[i].Wins != players[j].Wins {
			return players[i].Wins > players[j].Wins
		}
		if players[i].Losses != players[j].Losses {
			return players[i].Losses < players[j].Losses
		}
		return players[i].Username < players[j].Username
	})

	// Apply limit if specified
	if limit > 0 && limit < len(players) {
		players = players[:limit]
	}
	return players
}
