package games

const searchBound = 100000

// SearchResult is the outcome of a depth-limited search. Column is -1 when
// no move was searched.
type SearchResult struct {
	Score  int
	Column int
	Nodes  int
}

// Search runs a full-width minimax from the current position with side to
// move. Red maximizes, yellow minimizes. The board is mutated in place and
// restored before returning.
func (b *Board) Search(depth int, side Token) SearchResult {
	var nodes int
	score, col := b.search(depth, side, &nodes)
	return SearchResult{Score: score, Column: col, Nodes: nodes}
}

// Minimize searches with yellow to move.
func (b *Board) Minimize(depth int) (int, int) {
	r := b.Search(depth, YellowToken)
	return r.Score, r.Column
}

// Maximize searches with red to move.
func (b *Board) Maximize(depth int) (int, int) {
	r := b.Search(depth, RedToken)
	return r.Score, r.Column
}

func (b *Board) search(depth int, side Token, nodes *int) (int, int) {
	*nodes++
	val := b.Evaluate()
	if val == WinScore || val == LossScore || depth == 0 {
		return val, -1
	}

	columns := b.ValidColumns()
	if len(columns) == 0 {
		return val, -1
	}

	maximizing := side == RedToken
	best, move := searchBound, -1
	if maximizing {
		best = -searchBound
	}

	for _, col := range columns {
		b.place(col, side)
		score, _ := b.search(depth-1, side.Opponent(), nodes)
		b.unplace(col)

		if (maximizing && score > best) || (!maximizing && score < best) {
			best, move = score, col
		}
	}

	return best, move
}
