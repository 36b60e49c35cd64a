package games

// Control tokens of the line protocol. Each is sent on a line of its own;
// any other line is a status message for the client to print.
const (
	HumanComp       = "HUMAN_COMP"
	BotLevel        = "BOT_LEVEL"
	YourName        = "YOUR_NAME"
	DuplicateName   = "DUPLICATE_NAME"
	YourMove        = "YOUR_MOVE"
	WaitForOpponent = "WAIT_FOR_OPPONENT"
	InvalidMove     = "INVALID_MOVE"
	EndGame         = "END_GAME"
	Disconnect      = "DISCONNECT"
)

// Status lines.
const (
	WaitingForPlayerMessage = "Waiting for another player to connect..."
	WaitingForReadyMessage  = "Waiting for opponent to get ready..."
	TieMessage              = "It's a tie!"
	BotWinMessage           = "I win! HAHAHAHAHA"
	TauntMessage            = "I'm going to win... You can just give up now. :)"
)

func OpponentMessage(name string) string {
	return "Your opponent is " + name
}

func WinMessage(name string) string {
	return name + " wins!"
}
