// Package tictactoe implements tic-tac-toe against a uniformly random
// opponent
package tictactoe

import (
	"fmt"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	env "github.com/samuelfneumann/hra/environment"
	ts "github.com/samuelfneumann/hra/timestep"
)

const (
	// Cells is the number of cells on the board, which is also the
	// number of actions
	Cells = 9

	// Marks of the agent, the opponent, and empty cells
	X     float64 = 1
	O     float64 = -1
	Empty float64 = 0

	// Rewards from the environment at the end of a game
	WinReward  float64 = 1
	LossReward float64 = -1
	DrawReward float64 = 0
)

// lines holds the cell indices of every row, column, and diagonal
var lines = [][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// TicTacToe implements a game of tic-tac-toe. The agent plays X and
// always moves first; after each legal agent move that does not end the
// game, the opponent places an O in a uniformly random empty cell.
//
// Observations are the 9 cells of the board in row-major order, with
// 1 for X, -1 for O and 0 for an empty cell. The action is the index of
// the cell to mark. Marking an occupied cell is an illegal move: the
// board is unchanged, the opponent does not move, the reward is 0, and
// the episode continues.
//
// TicTacToe implements the environment.Environment interface
type TicTacToe struct {
	board    [Cells]float64
	rng      *rand.Rand
	lastStep ts.TimeStep
	illegal  bool
	winner   float64
}

// New returns a new game whose opponent is seeded with seed
func New(seed uint64) *TicTacToe {
	return &TicTacToe{rng: rand.New(rand.NewSource(seed))}
}

// Reset clears the board and returns the first TimeStep
func (t *TicTacToe) Reset() (ts.TimeStep, error) {
	t.board = [Cells]float64{}
	t.illegal = false
	t.winner = Empty
	t.lastStep = ts.New(ts.First, 0, t.observation(), 0)
	return t.lastStep, nil
}

// Step marks cell a for the agent, lets the opponent respond, and
// returns the next TimeStep and whether the game is over
func (t *TicTacToe) Step(a int) (ts.TimeStep, bool, error) {
	if t.lastStep.Observation == nil {
		return ts.TimeStep{}, false, fmt.Errorf("step: environment not reset")
	}
	if t.lastStep.Last() {
		return ts.TimeStep{}, false, fmt.Errorf("step: episode has ended")
	}
	if a < 0 || a >= Cells {
		return ts.TimeStep{}, false, fmt.Errorf("step: illegal action %v "+
			"∉ [0, %v)", a, Cells)
	}

	number := t.lastStep.Number + 1
	t.illegal = t.board[a] != Empty
	if t.illegal {
		t.lastStep = ts.New(ts.Mid, 0, t.observation(), number)
		return t.lastStep, false, nil
	}

	t.board[a] = X
	if reward, over := t.outcome(); over {
		t.lastStep = ts.New(ts.Last, reward, t.observation(), number)
		return t.lastStep, true, nil
	}

	t.opponentMove()
	if reward, over := t.outcome(); over {
		t.lastStep = ts.New(ts.Last, reward, t.observation(), number)
		return t.lastStep, true, nil
	}

	t.lastStep = ts.New(ts.Mid, 0, t.observation(), number)
	return t.lastStep, false, nil
}

// ObservationSpec returns the observation specification of the
// environment
func (t *TicTacToe) ObservationSpec() env.Spec {
	lower := make([]float64, Cells)
	upper := make([]float64, Cells)
	for i := range lower {
		lower[i], upper[i] = O, X
	}
	return env.NewSpec(mat.NewVecDense(Cells, nil), env.Observation,
		mat.NewVecDense(Cells, lower), mat.NewVecDense(Cells, upper),
		env.Discrete)
}

// ActionSpec returns the action specification of the environment
func (t *TicTacToe) ActionSpec() env.Spec {
	return env.NewDiscreteActionSpec(Cells)
}

// Board returns a copy of the board in row-major order
func (t *TicTacToe) Board() []float64 {
	board := make([]float64, Cells)
	copy(board, t.board[:])
	return board
}

// LastMoveIllegal returns whether the agent's last move marked an
// occupied cell
func (t *TicTacToe) LastMoveIllegal() bool {
	return t.illegal
}

// Winner returns the mark of the winner of the current game, or Empty
// if there is none yet or the game was drawn
func (t *TicTacToe) Winner() float64 {
	return t.winner
}

func (t *TicTacToe) opponentMove() {
	empty := make([]int, 0, Cells)
	for i, cell := range t.board {
		if cell == Empty {
			empty = append(empty, i)
		}
	}
	t.board[empty[t.rng.Intn(len(empty))]] = O
}

// outcome returns the reward of the game and whether it is over
func (t *TicTacToe) outcome() (float64, bool) {
	for _, line := range lines {
		sum := t.board[line[0]] + t.board[line[1]] + t.board[line[2]]
		switch sum {
		case 3 * X:
			t.winner = X
			return WinReward, true
		case 3 * O:
			t.winner = O
			return LossReward, true
		}
	}

	for _, cell := range t.board {
		if cell == Empty {
			return 0, false
		}
	}
	return DrawReward, true
}

func (t *TicTacToe) observation() *mat.VecDense {
	return mat.NewVecDense(Cells, t.Board())
}

func (t *TicTacToe) String() string {
	var b strings.Builder
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			switch t.board[row*3+col] {
			case X:
				b.WriteString(" X ")
			case O:
				b.WriteString(" O ")
			default:
				b.WriteString(" . ")
			}
		}
		if row < 2 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
