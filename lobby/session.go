package lobby

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"connect4-server/games"
)

type mode int

const (
	modeHuman mode = 1
	modeBot   mode = 2
)

// Session runs the protocol for one connected player, from mode selection to
// the end of their game.
type Session struct {
	ID    string
	conn  Conn
	hub   *Hub
	log   *zap.Logger
	game  *games.Game
	token games.Token
	name  string

	lines chan inbound
}

// inbound is one result of reading from the connection.
type inbound struct {
	line string
	err  error
}

func newSession(hub *Hub, conn Conn) *Session {
	id := uuid.NewString()
	return &Session{
		ID:    id,
		conn:  conn,
		hub:   hub,
		lines: make(chan inbound),
		log: hub.log.With(
			zap.String("session", id),
			zap.String("remote", conn.RemoteAddr()),
		),
	}
}

// Run drives the session until the game ends or the connection fails. When
// the connection fails mid-game the opponent is told and the game abandoned.
func (s *Session) Run(ctx context.Context) {
	defer s.conn.Close()
	done := make(chan struct{})
	defer close(done)
	go s.readLoop(done)

	err := s.run(ctx)
	if err == nil {
		s.log.Info("session finished")
		return
	}

	s.log.Info("session ended", zap.Error(err))
	if s.game != nil {
		s.game.Abandon(s.token)
	}
}

// readLoop feeds lines from the connection to the session until a read
// fails or the session is done.
func (s *Session) readLoop(done <-chan struct{}) {
	defer close(s.lines)
	for {
		line, err := s.conn.ReadLine()
		select {
		case s.lines <- inbound{line: line, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *Session) readLine() (string, error) {
	in, ok := <-s.lines
	if !ok {
		return "", net.ErrClosed
	}
	return in.line, in.err
}

func (s *Session) run(ctx context.Context) error {
	m, err := s.selectMode()
	if err != nil {
		return err
	}

	switch m {
	case modeBot:
		level, err := s.selectLevel()
		if err != nil {
			return err
		}
		game, err := games.NewSinglePlayerGame(s.conn, level, s.hub.gameOptions())
		if err != nil {
			return err
		}
		s.hub.store.SaveGame(game)
		s.game, s.token = game, games.RedToken
	default:
		if err := s.pair(ctx); err != nil {
			return err
		}
	}
	s.log = s.log.With(zap.String("game", s.game.ID))

	if err := s.negotiateName(); err != nil {
		return err
	}
	if !s.game.HasBot() {
		if err := s.awaitOpponent(ctx); err != nil {
			return err
		}
	}

	if err := s.game.Start(s.token); err != nil {
		if errors.Is(err, games.ErrGameOver) {
			return nil
		}
		return err
	}
	return s.turnLoop()
}

func (s *Session) selectMode() (mode, error) {
	for {
		if err := s.conn.Send(games.HumanComp); err != nil {
			return 0, err
		}
		line, err := s.readLine()
		if err != nil {
			return 0, err
		}
		switch strings.TrimSpace(line) {
		case "1":
			s.log.Info("mode selected", zap.String("mode", "human"))
			return modeHuman, nil
		case "2":
			s.log.Info("mode selected", zap.String("mode", "bot"))
			return modeBot, nil
		}
		s.log.Debug("invalid mode", zap.String("input", line))
	}
}

func (s *Session) selectLevel() (int, error) {
	for {
		if err := s.conn.Send(games.BotLevel); err != nil {
			return 0, err
		}
		line, err := s.readLine()
		if err != nil {
			return 0, err
		}
		level, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && level >= games.MinBotLevel && level <= games.MaxBotLevel {
			return level, nil
		}
		s.log.Debug("invalid bot level", zap.String("input", line))
	}
}

// pair finds a human opponent, waiting in the registry if nobody is there yet.
func (s *Session) pair(ctx context.Context) error {
	ticket := s.hub.registry.TryPair(s.conn)
	s.game, s.token = ticket.Game(), ticket.Token()
	if !ticket.Paired() {
		err := s.conn.Send(games.WaitingForPlayerMessage)
		if err == nil {
			err = s.waitForPair(ctx, ticket)
		}
		if err != nil {
			if ticket.Withdraw() {
				s.hub.store.RemoveGame(s.game.ID)
				s.game = nil
			}
			return err
		}
	}
	s.log.Info("paired", zap.String("side", s.token.String()))
	return nil
}

// waitForPair blocks until ticket is paired. Lines sent meanwhile are
// dropped and a failed read means the player left.
func (s *Session) waitForPair(ctx context.Context, ticket *Ticket) error {
	for {
		select {
		case <-ticket.Ready():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-s.lines:
			if !ok {
				return fmt.Errorf("left while waiting: %w", net.ErrClosed)
			}
			if in.err != nil {
				return fmt.Errorf("left while waiting: %w", in.err)
			}
			s.log.Debug("input while waiting", zap.String("input", in.line))
		}
	}
}

func (s *Session) negotiateName() error {
	for {
		if err := s.conn.Send(games.YourName); err != nil {
			return err
		}
		line, err := s.readLine()
		if err != nil {
			return err
		}
		name, err := s.game.ClaimName(s.token, strings.TrimSpace(line))
		if errors.Is(err, games.ErrDuplicateName) {
			if err := s.conn.Send(games.DuplicateName); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		s.name = name
		s.log = s.log.With(zap.String("name", name))
		return nil
	}
}

func (s *Session) awaitOpponent(ctx context.Context) error {
	if err := s.conn.Send(games.WaitingForReadyMessage); err != nil {
		return err
	}
	opponent, err := s.game.WaitForOpponent(ctx, s.token)
	if err != nil {
		return err
	}
	return s.conn.Send(games.OpponentMessage(opponent))
}

func (s *Session) turnLoop() error {
	for {
		line, err := s.readLine()
		if err != nil {
			if s.game.Finished() {
				return nil
			}
			return fmt.Errorf("read move: %w", err)
		}

		finished, err := s.game.ApplyHumanMove(s.token, parseColumn(line))
		switch {
		case err == nil:
			if finished {
				return nil
			}
			continue
		case errors.Is(err, games.ErrGameOver):
			return nil
		case errors.Is(err, games.ErrNotYourTurn):
			err = s.conn.Send(games.WaitForOpponent)
		case errors.Is(err, games.ErrInvalidMove):
			err = s.conn.Send(games.InvalidMove)
		case errors.Is(err, games.ErrColumnFull):
			s.log.Debug("column full", zap.String("input", line))
			err = s.conn.Send(games.YourMove)
		}
		if err != nil {
			return err
		}
	}
}

// parseColumn turns a 1-7 column line into a board column, or -1.
func parseColumn(line string) int {
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return -1
	}
	return n - 1
}
