package board

import (
	"context"
	"fmt"
	"sync"

	appErr "scramble-service/pkg/errors"
	"scramble-service/pkg/logger"

	"go.uber.org/zap"
)

// cell holds one grid position. A removed cell (gone) is a terminal state:
// once a matched pair is taken off the board the cards never return.
type cell struct {
	card   Card
	faceUp bool
	gone   bool
}

// playerState tracks one player's in-progress move.
//
// first/second are the positions the player currently controls. previous
// holds up to two positions left face-up by a failed or mismatched move;
// they are turned back face-down at the start of the player's next flip if
// nobody has taken them in the meantime.
type playerState struct {
	first    *Pos
	second   *Pos
	previous []Pos
}

// Match describes a finalized matched pair, reported through the OnMatch
// hook after the pair has been removed from the grid.
type Match struct {
	Player string
	Label  string
	First  Pos
	Second Pos
}

// Board is a shared, mutable memory-game board, safe for concurrent use by
// any number of players.
//
// All state is guarded by a single mutex. Operations that must block (a
// flip targeting a cell controlled by someone else, a watch, a relabel
// transform) release the mutex while suspended and re-validate their
// condition after reacquiring it.
type Board struct {
	mu sync.Mutex

	rows  int
	cols  int
	cells []cell // row-major, rows*cols entries

	players map[string]*playerState

	// waiters holds per-cell FIFO queues of suspended flips. Each waiter
	// owns a channel that is closed exactly once to wake it.
	waiters map[Pos][]chan struct{}

	// version counts observable mutations; changed is closed and replaced
	// on every bump so watchers never miss a change.
	version uint64
	changed chan struct{}

	corrupt  bool
	checkRep bool

	onMatch func(Match)
}

// New creates a board from labels in row-major order. An empty-string label
// marks a position with no card.
func New(rows, cols int, labels []string) (*Board, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("board dimensions must be positive, got %dx%d", rows, cols)
	}
	if len(labels) != rows*cols {
		return nil, fmt.Errorf("board %dx%d needs %d cards, got %d", rows, cols, rows*cols, len(labels))
	}

	cells := make([]cell, rows*cols)
	for i, label := range labels {
		if label == "" {
			cells[i] = cell{gone: true}
			continue
		}
		if err := checkLabel(label); err != nil {
			return nil, err
		}
		cells[i] = cell{card: Card{Label: label}}
	}

	return &Board{
		rows:    rows,
		cols:    cols,
		cells:   cells,
		players: make(map[string]*playerState),
		waiters: make(map[Pos][]chan struct{}),
		changed: make(chan struct{}),
	}, nil
}

// EnableCheckRep turns on internal consistency verification after every
// mutation. Meant for tests and debug builds; a failed check marks the
// board corrupt and every later operation returns ErrBoardCorrupt.
func (b *Board) EnableCheckRep() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkRep = true
}

// OnMatch registers fn to be called (in its own goroutine, outside the
// board lock) whenever a matched pair is finalized and removed.
func (b *Board) OnMatch(fn func(Match)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onMatch = fn
}

func (b *Board) Rows() int { return b.rows }
func (b *Board) Cols() int { return b.cols }

// Version returns the current mutation counter.
func (b *Board) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Look returns the board view from player's perspective. Never blocks.
func (b *Board) Look(player string) (string, error) {
	if !ValidPlayerID(player) {
		return "", appErr.ErrInvalidPlayer
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.corrupt {
		return "", appErr.ErrBoardCorrupt
	}
	b.ensurePlayerLocked(player)
	return b.renderLocked(player), nil
}

// Flip applies one flip for player at (row, col) per the game rules and
// returns the resulting view. It may block waiting for a cell controlled
// by another player; cancelling ctx abandons the wait.
//
// Before the flip is evaluated, the player's previous move is finalized:
// a matched pair is removed from the grid, a mismatched pair is turned
// face-down if still unclaimed.
func (b *Board) Flip(ctx context.Context, player string, row, col int) (string, error) {
	if !ValidPlayerID(player) {
		return "", appErr.ErrInvalidPlayer
	}
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols {
		return "", fmt.Errorf("%w: (%d,%d)", appErr.ErrOutOfBounds, row, col)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.corrupt {
		return "", appErr.ErrBoardCorrupt
	}

	p := b.ensurePlayerLocked(player)
	b.finalizeLocked(player, p)

	pos := Pos{Row: row, Col: col}
	var err error
	if p.first == nil {
		err = b.flipFirstLocked(ctx, player, p, pos)
	} else {
		err = b.flipSecondLocked(ctx, player, p, pos)
	}
	if err != nil {
		return "", err
	}
	if err := b.verifyLocked(); err != nil {
		return "", err
	}
	return b.renderLocked(player), nil
}

// flipFirstLocked handles a flip by a player controlling no cards.
func (b *Board) flipFirstLocked(ctx context.Context, player string, p *playerState, pos Pos) error {
	for {
		c := b.cellAt(pos)
		if c.gone {
			return appErr.ErrEmptyCell
		}
		controller := b.controllerLocked(pos)
		if controller != "" && controller != player {
			// Contested: suspend until the cell is released, then
			// re-validate from scratch.
			if err := b.waitForCellLocked(ctx, pos); err != nil {
				return err
			}
			continue
		}
		c.faceUp = true
		p.first = &pos
		b.notifyLocked()
		return nil
	}
}

// flipSecondLocked handles a flip by a player already controlling a first
// card. Error paths release the first card before returning; this is game
// semantics, not cleanup.
func (b *Board) flipSecondLocked(ctx context.Context, player string, p *playerState, pos Pos) error {
	first := *p.first
	if pos == first {
		b.releaseFirstLocked(p)
		return appErr.ErrSameCell
	}

	for {
		c := b.cellAt(pos)
		if c.gone {
			b.releaseFirstLocked(p)
			return appErr.ErrEmptyCell
		}
		controller := b.controllerLocked(pos)
		if controller == "" {
			break
		}
		// Control of the first card is retained for the duration of the
		// wait, so it cannot be taken by a third player. If the wait is
		// cancelled the first card is released so a vanished client does
		// not pin it forever.
		if err := b.waitForCellLocked(ctx, pos); err != nil {
			if p.first != nil {
				b.releaseFirstLocked(p)
			}
			return err
		}
	}

	c := b.cellAt(pos)
	c.faceUp = true
	if c.card == b.cellAt(first).card {
		// Match: both stay controlled until the player's next flip
		// finalizes the move and removes them.
		p.second = &pos
	} else {
		// Mismatch: both stay face-up but are released immediately.
		p.first, p.second = nil, nil
		p.previous = []Pos{first, pos}
		b.wakeOneLocked(first)
		b.wakeOneLocked(pos)
	}
	b.notifyLocked()
	return nil
}

// releaseFirstLocked gives up control of the player's first card, leaving
// it face-up for anyone to claim, and queues it to be turned face-down at
// the player's next flip.
func (b *Board) releaseFirstLocked(p *playerState) {
	first := *p.first
	p.first = nil
	p.previous = append(p.previous, first)
	b.wakeOneLocked(first)
	b.notifyLocked()
}

// finalizeLocked applies the deferred cleanup of the player's previous
// move: a controlled matched pair is removed from the grid, and cells left
// over from a mismatch are turned face-down if still face-up and unclaimed.
func (b *Board) finalizeLocked(player string, p *playerState) {
	if p.first != nil && p.second != nil {
		fp, sp := *p.first, *p.second
		label := b.cellAt(fp).card.Label
		for _, pos := range []Pos{fp, sp} {
			c := b.cellAt(pos)
			c.card = Card{}
			c.faceUp = false
			c.gone = true
		}
		p.first, p.second = nil, nil
		// A removed cell is gone for good: wake every waiter so they can
		// observe the empty cell and fail their retry.
		b.wakeAllLocked(fp)
		b.wakeAllLocked(sp)
		b.notifyLocked()
		if b.onMatch != nil {
			m := Match{Player: player, Label: label, First: fp, Second: sp}
			go b.onMatch(m)
		}
	}

	for _, pos := range p.previous {
		c := b.cellAt(pos)
		if !c.gone && c.faceUp && b.controllerLocked(pos) == "" {
			c.faceUp = false
			b.wakeOneLocked(pos)
			b.notifyLocked()
		}
	}
	p.previous = nil
}

func (b *Board) cellAt(pos Pos) *cell {
	return &b.cells[pos.Row*b.cols+pos.Col]
}

// controllerLocked returns the id of the player controlling pos, or "".
func (b *Board) controllerLocked(pos Pos) string {
	for id, p := range b.players {
		if (p.first != nil && *p.first == pos) || (p.second != nil && *p.second == pos) {
			return id
		}
	}
	return ""
}

func (b *Board) ensurePlayerLocked(player string) *playerState {
	p, ok := b.players[player]
	if !ok {
		p = &playerState{}
		b.players[player] = p
	}
	return p
}

// verifyLocked checks the representation invariants when enabled. On
// failure the board is marked corrupt, everything suspended is woken, and
// ErrBoardCorrupt is returned.
func (b *Board) verifyLocked() error {
	if !b.checkRep || b.corrupt {
		if b.corrupt {
			return appErr.ErrBoardCorrupt
		}
		return nil
	}
	if err := b.invariantsLocked(); err != nil {
		b.corrupt = true
		logger.Log.DPanic("board invariant violated, halting mutation",
			zap.Error(err),
		)
		for pos := range b.waiters {
			b.wakeAllLocked(pos)
		}
		b.notifyLocked()
		return appErr.ErrBoardCorrupt
	}
	return nil
}

func (b *Board) invariantsLocked() error {
	if len(b.cells) != b.rows*b.cols {
		return fmt.Errorf("grid has %d cells, want %d", len(b.cells), b.rows*b.cols)
	}
	controlled := make(map[Pos]string)
	for id, p := range b.players {
		if len(p.previous) > 2 {
			return fmt.Errorf("player %s has %d previous cells", id, len(p.previous))
		}
		if p.second != nil && p.first == nil {
			return fmt.Errorf("player %s controls a second card without a first", id)
		}
		for _, pp := range []*Pos{p.first, p.second} {
			if pp == nil {
				continue
			}
			pos := *pp
			if prev, dup := controlled[pos]; dup {
				return fmt.Errorf("cell %v controlled by both %s and %s", pos, prev, id)
			}
			controlled[pos] = id
			c := b.cellAt(pos)
			if c.gone {
				return fmt.Errorf("player %s controls removed cell %v", id, pos)
			}
			if !c.faceUp {
				return fmt.Errorf("player %s controls face-down cell %v", id, pos)
			}
		}
	}
	for i := range b.cells {
		c := &b.cells[i]
		if c.gone {
			if c.faceUp {
				return fmt.Errorf("removed cell %d is face-up", i)
			}
			continue
		}
		if !ValidLabel(c.card.Label) {
			return fmt.Errorf("cell %d has invalid label %q", i, c.card.Label)
		}
	}
	return nil
}
