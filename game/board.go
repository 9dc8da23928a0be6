package game

import "fmt"

// Planes is the number of feature planes produced by Board.Encode.
const Planes = 4

// Board is a five-in-a-row position on a width x height grid.
// Player1 always moves first.
type Board struct {
	width   int
	height  int
	nInRow  int
	cells   []Player
	current Player
	last    Move
	played  int
	winner  Player
	done    bool
}

// NewBoard returns an empty board with Player1 to move.
func NewBoard(width, height, nInRow int) (*Board, error) {
	if nInRow <= 0 {
		return nil, fmt.Errorf("n in row must be positive, got %d", nInRow)
	}
	if width < nInRow || height < nInRow {
		return nil, fmt.Errorf("board %dx%d cannot fit %d in a row", width, height, nInRow)
	}
	return &Board{
		width:   width,
		height:  height,
		nInRow:  nInRow,
		cells:   make([]Player, width*height),
		current: Player1,
		last:    -1,
	}, nil
}

func (b *Board) Width() int  { return b.width }
func (b *Board) Height() int { return b.height }
func (b *Board) InRow() int  { return b.nInRow }

// MoveAt converts a (row, col) cell into its move id.
func (b *Board) MoveAt(row, col int) Move {
	return Move(row*b.width + col)
}

// Location converts a move id back into (row, col).
func (b *Board) Location(move Move) (row, col int) {
	return int(move) / b.width, int(move) % b.width
}

// At returns the owner of a cell, NoPlayer if empty.
func (b *Board) At(row, col int) Player {
	return b.cells[row*b.width+col]
}

// LastMove returns the most recent move, -1 on an empty board.
func (b *Board) LastMove() Move {
	return b.last
}

func (b *Board) Player() Player {
	return b.current
}

func (b *Board) MoveSpace() int {
	return b.width * b.height
}

func (b *Board) LegalMoves() []Move {
	if b.done {
		return nil
	}
	moves := make([]Move, 0, len(b.cells)-b.played)
	for i, owner := range b.cells {
		if owner == NoPlayer {
			moves = append(moves, Move(i))
		}
	}
	return moves
}

func (b *Board) Play(move Move) State {
	if b.done {
		panic(fmt.Errorf("%w: %d played after the game ended", ErrInvalidMove, move))
	}
	if move < 0 || int(move) >= len(b.cells) || b.cells[move] != NoPlayer {
		panic(fmt.Errorf("%w: %d", ErrInvalidMove, move))
	}

	cells := make([]Player, len(b.cells))
	copy(cells, b.cells)
	cells[move] = b.current

	next := &Board{
		width:   b.width,
		height:  b.height,
		nInRow:  b.nInRow,
		cells:   cells,
		current: b.current.Opponent(),
		last:    move,
		played:  b.played + 1,
	}
	if next.completesRow(move) {
		next.done = true
		next.winner = b.current
	} else if next.played == len(cells) {
		next.done = true
	}
	return next
}

func (b *Board) Terminal() (bool, Player) {
	return b.done, b.winner
}

// completesRow reports whether the stone on move is part of nInRow in any direction.
func (b *Board) completesRow(move Move) bool {
	row, col := b.Location(move)
	owner := b.cells[move]
	directions := [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}
	for _, d := range directions {
		count := 1 + b.run(row, col, d[0], d[1], owner) + b.run(row, col, -d[0], -d[1], owner)
		if count >= b.nInRow {
			return true
		}
	}
	return false
}

func (b *Board) run(row, col, dr, dc int, owner Player) int {
	count := 0
	for r, c := row+dr, col+dc; r >= 0 && r < b.height && c >= 0 && c < b.width; r, c = r+dr, c+dc {
		if b.cells[r*b.width+c] != owner {
			break
		}
		count++
	}
	return count
}

// Encode builds four planes from the perspective of the player to move:
// own stones, opponent stones, the last move, and a constant plane that is
// all ones when Player1 is to move.
func (b *Board) Encode() Tensor {
	t := NewTensor(Planes, b.height, b.width)
	for i, owner := range b.cells {
		row, col := i/b.width, i%b.width
		switch owner {
		case b.current:
			t.Set(0, row, col, 1)
		case b.current.Opponent():
			t.Set(1, row, col, 1)
		}
	}
	if b.last >= 0 {
		row, col := b.Location(b.last)
		t.Set(2, row, col, 1)
	}
	if b.current == Player1 {
		for row := 0; row < b.height; row++ {
			for col := 0; col < b.width; col++ {
				t.Set(3, row, col, 1)
			}
		}
	}
	return t
}

func (b *Board) String() string {
	out := ""
	for row := 0; row < b.height; row++ {
		for col := 0; col < b.width; col++ {
			switch b.At(row, col) {
			case Player1:
				out += "X"
			case Player2:
				out += "O"
			default:
				out += "."
			}
		}
		out += "\n"
	}
	return out
}
