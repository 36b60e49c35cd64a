package games

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

var ErrInvalidLevel = errors.New("bot level must be between 1 and 5")

// BotPlayer picks moves for the computer side of a single player game.
type BotPlayer struct {
	Level       int
	PlayerToken Token
	rng         *rand.Rand
}

// BotMove is the bot's decision for one turn.
type BotMove struct {
	Column int
	Score  int
	Nodes  int
	// Winning is set when the search proved a forced win for the bot.
	Winning bool
}

// NewBotPlayer creates a bot of the given level playing playerToken.
func NewBotPlayer(level int, playerToken Token) (*BotPlayer, error) {
	if level < MinBotLevel || level > MaxBotLevel {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLevel, level)
	}
	if playerToken != RedToken && playerToken != YellowToken {
		return nil, fmt.Errorf("bot needs a side, got %v", playerToken)
	}
	return &BotPlayer{
		Level:       level,
		PlayerToken: playerToken,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Depth is the search depth for the bot's level. Level 1 plays at random.
func (bot *BotPlayer) Depth() int {
	if bot.Level <= MinBotLevel {
		return 0
	}
	return bot.Level
}

// GetNextMove chooses a column on board. The board is searched in place and
// left as it was found.
func (bot *BotPlayer) GetNextMove(board *Board) (BotMove, error) {
	columns := board.ValidColumns()
	if len(columns) == 0 {
		return BotMove{Column: -1}, ErrColumnFull
	}

	if bot.Depth() == 0 {
		return BotMove{Column: columns[bot.rng.Intn(len(columns))]}, nil
	}

	res := board.Search(bot.Depth(), bot.PlayerToken)
	move := BotMove{
		Column:  res.Column,
		Score:   res.Score,
		Nodes:   res.Nodes,
		Winning: res.Score == bot.winSentinel(),
	}
	// Search returns no move when the position is already decided.
	if move.Column < 0 {
		move.Column = columns[0]
	}
	return move, nil
}

func (bot *BotPlayer) winSentinel() int {
	if bot.PlayerToken == RedToken {
		return WinScore
	}
	return LossScore
}
