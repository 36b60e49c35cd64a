package games

// Token identifies what occupies a cell, and doubles as the side to move.
type Token int

const (
	BoardWidth  = 7
	BoardHeight = 6

	// Player tokens
	EmptyCell   Token = 0
	RedToken    Token = 1 // first mover, rendered X, scored positively
	YellowToken Token = 2 // second mover or bot, rendered O, scored negatively

	StatusWaiting   GameStatus = "waiting"
	StatusActive    GameStatus = "active"
	StatusFinished  GameStatus = "finished"
	StatusAbandoned GameStatus = "abandoned"

	SinglePlayer      GameType = "single"
	OnlineMultiplayer GameType = "online"

	MinBotLevel = 1
	MaxBotLevel = 5

	BotName = "Connecto-bot"
)

// Opponent returns the other side. EmptyCell has no opponent.
func (t Token) Opponent() Token {
	switch t {
	case RedToken:
		return YellowToken
	case YellowToken:
		return RedToken
	default:
		return EmptyCell
	}
}

func (t Token) String() string {
	switch t {
	case RedToken:
		return "X"
	case YellowToken:
		return "O"
	default:
		return " "
	}
}

// DefaultName is the positional name given to a player who leaves theirs blank.
func (t Token) DefaultName() string {
	if t == RedToken {
		return "Player 1"
	}
	return "Player 2"
}
