package games

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// recorder is an Endpoint that keeps everything sent to it.
type recorder struct {
	mu     sync.Mutex
	lines  []string
	closed bool
}

func (r *recorder) Send(lines ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, lines...)
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func (r *recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) == 0 {
		return ""
	}
	return r.lines[len(r.lines)-1]
}

func (r *recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

type finishLog struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (f *finishLog) record(s Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps = append(f.snaps, s)
}

func (f *finishLog) all() []Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Snapshot(nil), f.snaps...)
}

// newStartedOnlineGame seats alice (red) and bob (yellow) and starts both.
func newStartedOnlineGame(t *testing.T) (*Game, *recorder, *recorder, *finishLog) {
	t.Helper()
	red, yellow := &recorder{}, &recorder{}
	finished := &finishLog{}
	g := NewOnlineGame(red, Options{Logger: zaptest.NewLogger(t), OnFinish: finished.record})
	require.NoError(t, g.Join(yellow))

	_, err := g.ClaimName(RedToken, "alice")
	require.NoError(t, err)
	_, err = g.ClaimName(YellowToken, "bob")
	require.NoError(t, err)

	require.NoError(t, g.Start(RedToken))
	require.NoError(t, g.Start(YellowToken))
	return g, red, yellow, finished
}

func move(t *testing.T, g *Game, token Token, column int) bool {
	t.Helper()
	finished, err := g.ApplyHumanMove(token, column)
	require.NoError(t, err)
	return finished
}

func TestOnlineGameLifecycle(t *testing.T) {
	red, yellow := &recorder{}, &recorder{}
	g := NewOnlineGame(red, Options{})
	assert.Equal(t, StatusWaiting, g.Snapshot().Status)
	assert.Equal(t, ErrGameOver, g.Start(RedToken))

	require.NoError(t, g.Join(yellow))
	assert.ErrorIs(t, g.Join(&recorder{}), ErrGameFull)
	assert.Equal(t, StatusActive, g.Snapshot().Status)
	assert.False(t, g.HasBot())
	assert.True(t, g.IsTurn(RedToken))
}

func TestClaimName(t *testing.T) {
	g := NewOnlineGame(&recorder{}, Options{})
	require.NoError(t, g.Join(&recorder{}))

	name, err := g.ClaimName(RedToken, "")
	require.NoError(t, err)
	assert.Equal(t, "Player 1", name)

	_, err = g.ClaimName(YellowToken, "Player 1")
	assert.ErrorIs(t, err, ErrDuplicateName)

	name, err = g.ClaimName(YellowToken, "")
	require.NoError(t, err)
	assert.Equal(t, "Player 2", name)

	snap := g.Snapshot()
	assert.Equal(t, "Player 1", snap.Player1)
	assert.Equal(t, "Player 2", snap.Player2)
}

func TestWaitForOpponent(t *testing.T) {
	g := NewOnlineGame(&recorder{}, Options{})
	require.NoError(t, g.Join(&recorder{}))

	_, err := g.ClaimName(YellowToken, "bob")
	require.NoError(t, err)
	name, err := g.WaitForOpponent(context.Background(), RedToken)
	require.NoError(t, err)
	assert.Equal(t, "bob", name)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.WaitForOpponent(ctx, YellowToken)
	assert.ErrorIs(t, err, context.Canceled)

	g.Abandon(RedToken)
	_, err = g.WaitForOpponent(context.Background(), YellowToken)
	assert.ErrorIs(t, err, ErrOpponentLeft)
}

func TestStartSendsBoardAndPrompt(t *testing.T) {
	_, red, yellow, _ := newStartedOnlineGame(t)

	assert.Equal(t, append(NewBoard().Lines(), YourMove), red.Lines())
	assert.Equal(t, append(NewBoard().Lines(), WaitForOpponent), yellow.Lines())
}

func TestMoveFanOut(t *testing.T) {
	g, red, yellow, _ := newStartedOnlineGame(t)

	assert.False(t, move(t, g, RedToken, 3))
	assert.Equal(t, WaitForOpponent, red.Last())
	assert.Equal(t, YourMove, yellow.Last())
	assert.Contains(t, yellow.Lines(), "     |   |   |   | X |   |   |   | ")
	assert.True(t, g.IsTurn(YellowToken))
	assert.Equal(t, []int{3}, g.Snapshot().Moves)
}

func TestMoveBeforeOpponentStarted(t *testing.T) {
	red, yellow := &recorder{}, &recorder{}
	g := NewOnlineGame(red, Options{})
	require.NoError(t, g.Join(yellow))
	require.NoError(t, g.Start(RedToken))

	assert.False(t, move(t, g, RedToken, 3))
	assert.Empty(t, yellow.Lines())

	require.NoError(t, g.Start(YellowToken))
	lines := yellow.Lines()
	assert.Equal(t, YourMove, lines[len(lines)-1])
	assert.Equal(t, "     |   |   |   | X |   |   |   | ", lines[BoardHeight-1])
}

func TestApplyHumanMoveRejections(t *testing.T) {
	g, red, _, _ := newStartedOnlineGame(t)
	board := g.BoardLines()
	sent := len(red.Lines())

	_, err := g.ApplyHumanMove(YellowToken, 3)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	for _, column := range []int{-1, BoardWidth, 99} {
		finished, err := g.ApplyHumanMove(RedToken, column)
		assert.ErrorIs(t, err, ErrInvalidMove)
		assert.False(t, finished)
	}
	assert.Equal(t, board, g.BoardLines())
	assert.Len(t, red.Lines(), sent)
	assert.True(t, g.IsTurn(RedToken))

	for i := 0; i < BoardHeight; i++ {
		token := RedToken
		if i%2 == 1 {
			token = YellowToken
		}
		move(t, g, token, 0)
	}
	_, err = g.ApplyHumanMove(RedToken, 0)
	assert.ErrorIs(t, err, ErrColumnFull)
	assert.True(t, g.IsTurn(RedToken))
}

func TestOnlineGameWin(t *testing.T) {
	g, red, yellow, finished := newStartedOnlineGame(t)

	assert.False(t, move(t, g, RedToken, 3))
	assert.False(t, move(t, g, YellowToken, 0))
	assert.False(t, move(t, g, RedToken, 3))
	assert.False(t, move(t, g, YellowToken, 1))
	assert.False(t, move(t, g, RedToken, 3))
	assert.False(t, move(t, g, YellowToken, 0))
	assert.True(t, move(t, g, RedToken, 3))

	for _, ep := range []*recorder{red, yellow} {
		lines := ep.Lines()
		require.GreaterOrEqual(t, len(lines), 2)
		assert.Equal(t, []string{"alice wins!", EndGame}, lines[len(lines)-2:])
		assert.True(t, ep.Closed())
	}

	assert.True(t, g.Finished())
	snap := g.Snapshot()
	assert.Equal(t, StatusFinished, snap.Status)
	assert.Equal(t, "alice", snap.Winner)
	assert.Equal(t, []int{3, 0, 3, 1, 3, 0, 3}, snap.Moves)
	assert.False(t, snap.FinishedAt.IsZero())

	require.Len(t, finished.all(), 1)
	assert.Equal(t, "alice", finished.all()[0].Winner)

	done, err := g.ApplyHumanMove(YellowToken, 4)
	assert.ErrorIs(t, err, ErrGameOver)
	assert.True(t, done)
}

func TestOnlineGameTie(t *testing.T) {
	g, red, yellow, finished := newStartedOnlineGame(t)

	token := RedToken
	for i, col := range tieColumns {
		done := move(t, g, token, col-1)
		assert.Equal(t, i == len(tieColumns)-1, done, "move %d", i+1)
		token = token.Opponent()
	}

	for _, ep := range []*recorder{red, yellow} {
		lines := ep.Lines()
		assert.Equal(t, []string{TieMessage, EndGame}, lines[len(lines)-2:])
	}
	snap := finished.all()[0]
	assert.Equal(t, StatusFinished, snap.Status)
	assert.Empty(t, snap.Winner)
}

func TestAbandon(t *testing.T) {
	g, red, yellow, finished := newStartedOnlineGame(t)
	move(t, g, RedToken, 3)

	g.Abandon(YellowToken)
	assert.Equal(t, Disconnect, red.Last())
	assert.False(t, red.Closed())
	assert.True(t, g.Finished())
	assert.Equal(t, StatusAbandoned, g.Snapshot().Status)

	sent := len(yellow.Lines())
	g.Abandon(RedToken)
	assert.Len(t, yellow.Lines(), sent)
	require.Len(t, finished.all(), 1)
	assert.Equal(t, StatusAbandoned, finished.all()[0].Status)

	_, err := g.ApplyHumanMove(YellowToken, 2)
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestClaimNameAfterAbandon(t *testing.T) {
	red, yellow := &recorder{}, &recorder{}
	g := NewOnlineGame(red, Options{})
	require.NoError(t, g.Join(yellow))

	g.Abandon(RedToken)
	assert.Equal(t, Disconnect, yellow.Last())

	_, err := g.ClaimName(YellowToken, "bob")
	assert.ErrorIs(t, err, ErrOpponentLeft)
	assert.Empty(t, g.Snapshot().Player2)
	assert.Equal(t, Disconnect, yellow.Last())
}

func TestSinglePlayerGame(t *testing.T) {
	_, err := NewSinglePlayerGame(&recorder{}, 0, Options{})
	assert.ErrorIs(t, err, ErrInvalidLevel)

	human := &recorder{}
	g, err := NewSinglePlayerGame(human, 2, Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	assert.True(t, g.HasBot())

	_, err = g.ClaimName(RedToken, "")
	require.NoError(t, err)
	opponent, err := g.WaitForOpponent(context.Background(), RedToken)
	require.NoError(t, err)
	assert.Equal(t, BotName, opponent)

	require.NoError(t, g.Start(RedToken))
	assert.Equal(t, YourMove, human.Last())

	assert.False(t, move(t, g, RedToken, 3))
	assert.Equal(t, YourMove, human.Last())
	assert.True(t, g.IsTurn(RedToken))

	snap := g.Snapshot()
	assert.Len(t, snap.Moves, 2)
	assert.Equal(t, SinglePlayer, snap.Type)
	assert.Equal(t, 2, snap.BotLevel)
	assert.Equal(t, "Player 1", snap.Player1)
	assert.Equal(t, BotName, snap.Player2)
}

func TestBotWinsWithTaunt(t *testing.T) {
	for _, taunt := range []bool{true, false} {
		human := &recorder{}
		finished := &finishLog{}
		g, err := NewSinglePlayerGame(human, 2, Options{Taunt: taunt, OnFinish: finished.record})
		require.NoError(t, err)
		_, err = g.ClaimName(RedToken, "carol")
		require.NoError(t, err)
		require.NoError(t, g.Start(RedToken))

		// the bot has three stacked in the last column
		g.board.place(0, RedToken)
		g.board.place(2, RedToken)
		for i := 0; i < 3; i++ {
			g.board.place(6, YellowToken)
		}

		assert.True(t, move(t, g, RedToken, 4))
		lines := human.Lines()
		assert.Equal(t, taunt, contains(lines, TauntMessage), "taunt %v", taunt)
		assert.Equal(t, []string{BotWinMessage, EndGame}, lines[len(lines)-2:])
		assert.True(t, human.Closed())

		require.Len(t, finished.all(), 1)
		assert.Equal(t, BotName, finished.all()[0].Winner)
	}
}

func contains(lines []string, want string) bool {
	for _, line := range lines {
		if line == want {
			return true
		}
	}
	return false
}
