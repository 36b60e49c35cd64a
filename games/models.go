package games

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type GameStatus string

type GameType string

var (
	ErrNotYourTurn   = errors.New("not your turn")
	ErrGameOver      = errors.New("game is over")
	ErrDuplicateName = errors.New("name already taken by opponent")
	ErrOpponentLeft  = errors.New("opponent left the game")
	ErrGameFull      = errors.New("game already has two players")
)

// Endpoint is one player's connection as seen from a game. Implementations
// must be safe for concurrent use: both sessions of a game write to it.
type Endpoint interface {
	Send(lines ...string) error
	Close() error
}

// Player holds results for one display name.
type Player struct {
	Username   string    `json:"username"`
	Wins       int       `json:"wins"`
	Losses     int       `json:"losses"`
	Ties       int       `json:"ties"`
	LastPlayed time.Time `json:"lastPlayed"`
}

// Snapshot is a point-in-time copy of a game, safe to hand out.
type Snapshot struct {
	ID           string     `json:"id"`
	Type         GameType   `json:"type"`
	Status       GameStatus `json:"status"`
	Player1      string     `json:"player1"`
	Player2      string     `json:"player2"`
	BotLevel     int        `json:"botLevel,omitempty"`
	CurrentTurn  Token      `json:"currentTurn"`
	Winner       string     `json:"winner,omitempty"`
	Moves        []int      `json:"moves"`
	Board        [][]int    `json:"board"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastMoveTime time.Time  `json:"lastMoveTime"`
	FinishedAt   time.Time  `json:"finishedAt"`
}

// Options configures a new game.
type Options struct {
	Logger *zap.Logger
	// OnFinish is called once, with the game lock held, when the game ends
	// or is abandoned. It must not call back into the game.
	OnFinish func(Snapshot)
	// Taunt enables the bot's message when it has found a forced win.
	Taunt bool
}

// Game is one connect-four match. All state is guarded by mu, which a mover
// holds from validation through any bot reply.
type Game struct {
	ID        string
	Type      GameType
	CreatedAt time.Time

	mu           sync.Mutex
	board        *Board
	status       GameStatus
	currentTurn  Token
	endpoints    [3]Endpoint
	names        [3]string
	claimed      [3]bool
	started      [3]bool
	ready        [3]chan struct{}
	bot          *BotPlayer
	taunt        bool
	winner       Token
	moves        []int
	lastMoveTime time.Time
	finishedAt   time.Time
	done         chan struct{}
	onFinish     func(Snapshot)
	log          *zap.Logger
}

func newGame(gameType GameType, first Endpoint, opts Options) *Game {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Game{
		ID:          uuid.NewString(),
		Type:        gameType,
		CreatedAt:   time.Now(),
		board:       NewBoard(),
		status:      StatusWaiting,
		currentTurn: RedToken, // Red always starts
		taunt:       opts.Taunt,
		done:        make(chan struct{}),
		onFinish:    opts.OnFinish,
	}
	g.log = logger.With(zap.String("game", g.ID))
	g.ready[RedToken] = make(chan struct{})
	g.ready[YellowToken] = make(chan struct{})
	g.endpoints[RedToken] = first
	return g
}

// NewSinglePlayerGame starts a game of human (red, moving first) against a
// bot of the given level.
func NewSinglePlayerGame(human Endpoint, level int, opts Options) (*Game, error) {
	bot, err := NewBotPlayer(level, YellowToken)
	if err != nil {
		return nil, err
	}
	g := newGame(SinglePlayer, human, opts)
	g.bot = bot
	g.names[YellowToken] = BotName
	g.claimed[YellowToken] = true
	g.started[YellowToken] = true
	close(g.ready[YellowToken])
	g.status = StatusActive
	g.log.Info("single player game created", zap.Int("level", level))
	return g, nil
}

// NewOnlineGame creates a game with its first mover seated; it waits for
// Join before play can begin.
func NewOnlineGame(first Endpoint, opts Options) *Game {
	g := newGame(OnlineMultiplayer, first, opts)
	g.log.Info("online game created")
	return g
}

// Join seats the second mover.
func (g *Game) Join(second Endpoint) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Type != OnlineMultiplayer || g.endpoints[YellowToken] != nil {
		return ErrGameFull
	}
	if g.status != StatusWaiting {
		return ErrGameOver
	}
	g.endpoints[YellowToken] = second
	g.status = StatusActive
	g.log.Info("second player joined")
	return nil
}

// HasBot reports whether the yellow side is played by the computer.
func (g *Game) HasBot() bool {
	return g.bot != nil
}

// ClaimName records the display name for token's seat and returns the name
// actually used. Blank names become "Player 1" or "Player 2". Against a human,
// the opponent's name is rejected with ErrDuplicateName. Once the game has been
// abandoned every claim fails with ErrOpponentLeft.
func (g *Game) ClaimName(token Token, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status == StatusAbandoned {
		return "", ErrOpponentLeft
	}
	if g.claimed[token] {
		return g.names[token], nil
	}
	if name == "" {
		name = token.DefaultName()
	}
	if g.bot == nil && name == g.names[token.Opponent()] {
		return "", ErrDuplicateName
	}
	g.names[token] = name
	g.claimed[token] = true
	close(g.ready[token])
	g.log.Info("name claimed", zap.String("side", token.String()), zap.String("name", name))
	return name, nil
}

// WaitForOpponent blocks until the opponent of token has claimed a name and
// returns that name.
func (g *Game) WaitForOpponent(ctx context.Context, token Token) (string, error) {
	select {
	case <-g.ready[token.Opponent()]:
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.status == StatusAbandoned {
			return "", ErrOpponentLeft
		}
		return g.names[token.Opponent()], nil
	case <-g.done:
		return "", ErrOpponentLeft
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Start sends token's player the board and their first prompt. Moves made
// before a seat has started are not echoed to it.
func (g *Game) Start(token Token) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status != StatusActive {
		return ErrGameOver
	}
	g.started[token] = true
	prompt := WaitForOpponent
	if g.currentTurn == token {
		prompt = YourMove
	}
	return g.endpoints[token].Send(append(g.board.Lines(), prompt)...)
}

// ApplyHumanMove drops token's disc into column (zero based). On success it
// notifies both seats and, against a bot, plays the bot's reply before
// returning. finished is true when the game ended with this turn.
func (g *Game) ApplyHumanMove(token Token, column int) (finished bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusActive {
		return true, ErrGameOver
	}
	if g.currentTurn != token {
		return false, ErrNotYourTurn
	}
	if column < 0 || column >= BoardWidth {
		return false, fmt.Errorf("%w: column %d", ErrInvalidMove, column+1)
	}
	if !g.board.CanPlace(column) {
		return false, fmt.Errorf("%w: column %d", ErrColumnFull, column+1)
	}

	g.applyLocked(token, column)
	g.log.Info("move applied",
		zap.String("player", g.names[token]),
		zap.Int("column", column+1),
		zap.Int("moves", len(g.moves)),
	)
	if g.checkTerminalLocked(token, column) {
		return true, nil
	}

	if g.bot != nil {
		g.currentTurn = EmptyCell
		return g.applyBotMoveLocked()
	}

	opponent := token.Opponent()
	g.currentTurn = opponent
	board := g.board.Lines()
	g.sendLocked(token, append(board, WaitForOpponent)...)
	if g.started[opponent] {
		g.sendLocked(opponent, append(board, YourMove)...)
	}
	return false, nil
}

// applyBotMoveLocked plays the bot's turn and hands the move back to the human.
func (g *Game) applyBotMoveLocked() (bool, error) {
	botToken := g.bot.PlayerToken
	human := botToken.Opponent()

	started := time.Now()
	move, err := g.bot.GetNextMove(g.board)
	if err != nil {
		return false, fmt.Errorf("bot move: %w", err)
	}
	g.log.Debug("bot searched",
		zap.Int("level", g.bot.Level),
		zap.Int("column", move.Column+1),
		zap.Int("score", move.Score),
		zap.Int("nodes", move.Nodes),
		zap.Duration("took", time.Since(started)),
	)

	if move.Winning && g.taunt {
		g.sendLocked(human, TauntMessage)
	}

	g.applyLocked(botToken, move.Column)
	if g.checkTerminalLocked(botToken, move.Column) {
		return true, nil
	}

	g.currentTurn = human
	g.sendLocked(human, append(g.board.Lines(), YourMove)...)
	return false, nil
}

func (g *Game) applyLocked(token Token, column int) {
	g.board.place(column, token)
	g.moves = append(g.moves, column)
	g.lastMoveTime = time.Now()
}

// checkTerminalLocked ends the game if the move just made in column won or
// filled the board.
func (g *Game) checkTerminalLocked(token Token, column int) bool {
	if g.board.IsWin(column) {
		g.finishLocked(token)
		return true
	}
	if g.board.IsTie() {
		g.finishLocked(EmptyCell)
		return true
	}
	return false
}

// finishLocked reports the result to every seat and closes them.
func (g *Game) finishLocked(winner Token) {
	g.status = StatusFinished
	g.winner = winner
	g.currentTurn = EmptyCell
	g.finishedAt = time.Now()

	result := TieMessage
	if winner != EmptyCell {
		result = WinMessage(g.names[winner])
		if g.bot != nil && winner == g.bot.PlayerToken {
			result = BotWinMessage
		}
	}
	g.log.Info("game finished", zap.String("result", result), zap.Int("moves", len(g.moves)))

	lines := append(g.board.Lines(), result, EndGame)
	for _, token := range []Token{RedToken, YellowToken} {
		g.sendLocked(token, lines...)
	}
	close(g.done)
	if g.onFinish != nil {
		g.onFinish(g.snapshotLocked())
	}
	for _, token := range []Token{RedToken, YellowToken} {
		if ep := g.endpoints[token]; ep != nil {
			ep.Close()
		}
	}
}

// Abandon ends the game because token's player went away. The opponent, if
// any, is told once; its connection is left for its own session to close.
func (g *Game) Abandon(token Token) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status == StatusFinished || g.status == StatusAbandoned {
		return
	}
	g.status = StatusAbandoned
	g.currentTurn = EmptyCell
	g.finishedAt = time.Now()
	close(g.done)
	g.log.Info("game abandoned", zap.String("side", token.String()))

	if g.bot == nil {
		g.sendLocked(token.Opponent(), Disconnect)
	}
	if g.onFinish != nil {
		g.onFinish(g.snapshotLocked())
	}
}

func (g *Game) sendLocked(token Token, lines ...string) {
	ep := g.endpoints[token]
	if ep == nil {
		return
	}
	if err := ep.Send(lines...); err != nil {
		g.log.Warn("send failed", zap.String("side", token.String()), zap.Error(err))
	}
}

// Done is closed when the game finishes or is abandoned.
func (g *Game) Done() <-chan struct{} {
	return g.done
}

// Finished reports whether the game is over for any reason.
func (g *Game) Finished() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// IsTurn reports whether token is the side to move.
func (g *Game) IsTurn(token Token) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentTurn == token
}

// BoardLines renders the current board.
func (g *Game) BoardLines() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.board.Lines()
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:           g.ID,
		Type:         g.Type,
		Status:       g.status,
		Player1:      g.names[RedToken],
		Player2:      g.names[YellowToken],
		CurrentTurn:  g.currentTurn,
		Moves:        append([]int(nil), g.moves...),
		Board:        g.board.Grid(),
		CreatedAt:    g.CreatedAt,
		LastMoveTime: g.lastMoveTime,
		FinishedAt:   g.finishedAt,
	}
	if g.bot != nil {
		s.BotLevel = g.bot.Level
	}
	if g.status == StatusFinished && g.winner != EmptyCell {
		s.Winner = g.names[g.winner]
	}
	return s
}
