package games

import (
	"errors"
	"strings"
)

const (
	WinScore  = 5120  // four red tokens in a window
	LossScore = -5120 // four yellow tokens in a window

	OneInWindow   = 10
	TwoInWindow   = 100
	ThreeInWindow = 500
)

var (
	ErrInvalidMove = errors.New("invalid move")
	ErrColumnFull  = errors.New("column is full")
)

// Board is the 6x7 grid. Row 0 is the top row; tokens fall towards row 5.
type Board struct {
	cells   [BoardHeight][BoardWidth]Token
	heights [BoardWidth]int
}

func NewBoard() *Board {
	return &Board{}
}

// At returns the token at row, col.
func (b *Board) At(row, col int) Token {
	return b.cells[row][col]
}

// Height returns how many tokens column col holds.
func (b *Board) Height(col int) int {
	return b.heights[col]
}

// CanPlace reports whether col is on the board and not yet full.
func (b *Board) CanPlace(col int) bool {
	return col >= 0 && col < BoardWidth && b.heights[col] < BoardHeight
}

// ValidColumns lists the playable columns in ascending order.
func (b *Board) ValidColumns() []int {
	columns := make([]int, 0, BoardWidth)
	for col := 0; col < BoardWidth; col++ {
		if b.heights[col] < BoardHeight {
			columns = append(columns, col)
		}
	}
	return columns
}

// Place drops token into col and returns the row it landed on.
func (b *Board) Place(col int, token Token) (int, error) {
	if col < 0 || col >= BoardWidth {
		return -1, ErrInvalidMove
	}
	if b.heights[col] >= BoardHeight {
		return -1, ErrColumnFull
	}
	return b.place(col, token), nil
}

// Unplace removes the top token of col.
func (b *Board) Unplace(col int) error {
	if col < 0 || col >= BoardWidth || b.heights[col] == 0 {
		return ErrInvalidMove
	}
	b.unplace(col)
	return nil
}

func (b *Board) place(col int, token Token) int {
	row := BoardHeight - 1 - b.heights[col]
	b.cells[row][col] = token
	b.heights[col]++
	return row
}

func (b *Board) unplace(col int) {
	b.heights[col]--
	b.cells[BoardHeight-1-b.heights[col]][col] = EmptyCell
}

// IsWin checks the four lines through the top token of lastCol.
func (b *Board) IsWin(lastCol int) bool {
	if lastCol < 0 || lastCol >= BoardWidth || b.heights[lastCol] == 0 {
		return false
	}
	row := BoardHeight - b.heights[lastCol]
	token := b.cells[row][lastCol]

	// vertical, horizontal, and both diagonals
	directions := [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}
	for _, d := range directions {
		run := b.countConsecutive(row, lastCol, d[0], d[1], token) +
			b.countConsecutive(row, lastCol, -d[0], -d[1], token) - 1
		if run >= 4 {
			return true
		}
	}
	return false
}

// countConsecutive counts tokens equal to token starting at row, col and
// stepping by rowDelta, colDelta.
func (b *Board) countConsecutive(row, col, rowDelta, colDelta int, token Token) int {
	count := 0
	r, c := row, col
	for r >= 0 && r < BoardHeight && c >= 0 && c < BoardWidth && b.cells[r][c] == token {
		count++
		r += rowDelta
		c += colDelta
	}
	return count
}

// IsTie reports a full board. Check IsWin first: a full board can also be a won one.
func (b *Board) IsTie() bool {
	for col := 0; col < BoardWidth; col++ {
		if b.cells[0][col] == EmptyCell {
			return false
		}
	}
	return true
}

// Moves returns the number of tokens on the board.
func (b *Board) Moves() int {
	n := 0
	for _, h := range b.heights {
		n += h
	}
	return n
}

// Evaluate scores the position from red's point of view. A completed four
// short-circuits to WinScore or LossScore.
func (b *Board) Evaluate() int {
	score := 0

	// columns
	for col := 0; col < BoardWidth; col++ {
		for row := 0; row <= BoardHeight-4; row++ {
			s := evaluateWindow(b.cells[row][col], b.cells[row+1][col], b.cells[row+2][col], b.cells[row+3][col])
			if s == WinScore || s == LossScore {
				return s
			}
			score += s
		}
	}

	// rows
	for row := 0; row < BoardHeight; row++ {
		for col := 0; col <= BoardWidth-4; col++ {
			s := evaluateWindow(b.cells[row][col], b.cells[row][col+1], b.cells[row][col+2], b.cells[row][col+3])
			if s == WinScore || s == LossScore {
				return s
			}
			score += s
		}
	}

	// diagonals, grouped by row+col and by row-col
	var sums, diffs [BoardHeight + BoardWidth - 1][]Token
	for row := 0; row < BoardHeight; row++ {
		for col := 0; col < BoardWidth; col++ {
			sums[row+col] = append(sums[row+col], b.cells[row][col])
			diffs[row-col+BoardWidth-1] = append(diffs[row-col+BoardWidth-1], b.cells[row][col])
		}
	}
	for _, group := range [2][BoardHeight + BoardWidth - 1][]Token{sums, diffs} {
		for _, diag := range group {
			for i := 0; i+4 <= len(diag); i++ {
				s := evaluateWindow(diag[i], diag[i+1], diag[i+2], diag[i+3])
				if s == WinScore || s == LossScore {
					return s
				}
				score += s
			}
		}
	}

	return score
}

// evaluateWindow scores four cells. Mixed windows are worth nothing.
func evaluateWindow(window ...Token) int {
	red, yellow := 0, 0
	for _, cell := range window {
		switch cell {
		case RedToken:
			red++
		case YellowToken:
			yellow++
		}
	}

	if red > 0 && yellow > 0 {
		return 0
	}
	if red == 4 {
		return WinScore
	}
	if yellow == 4 {
		return LossScore
	}
	if red > 0 {
		return windowScore(red)
	}
	return -windowScore(yellow)
}

func windowScore(count int) int {
	switch count {
	case 3:
		return ThreeInWindow
	case 2:
		return TwoInWindow
	case 1:
		return OneInWindow
	default:
		return 0
	}
}

// Lines renders the board as the text grid sent to clients.
func (b *Board) Lines() []string {
	lines := make([]string, 0, BoardHeight+2)
	for row := 0; row < BoardHeight; row++ {
		var sb strings.Builder
		sb.WriteString("     | ")
		for col := 0; col < BoardWidth; col++ {
			sb.WriteString(b.cells[row][col].String())
			sb.WriteString(" | ")
		}
		lines = append(lines, sb.String())
	}
	lines = append(lines,
		"     +---+---+---+---+---+---+---+",
		"       1   2   3   4   5   6   7  ",
	)
	return lines
}

func (b *Board) String() string {
	return strings.Join(b.Lines(), "\n") + "\n"
}

// Grid returns a copy of the cells as ints, row 0 first.
func (b *Board) Grid() [][]int {
	grid := make([][]int, BoardHeight)
	for row := range grid {
		grid[row] = make([]int, BoardWidth)
		for col := range grid[row] {
			grid[row][col] = int(b.cells[row][col])
		}
	}
	return grid
}
