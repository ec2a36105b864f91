package board

import (
	"context"

	appErr "scramble-service/pkg/errors"
)

// waitForCellLocked suspends the calling operation until the cell at pos is
// signalled as eligible again. The board lock is released for the duration
// of the wait and reacquired before returning.
//
// Wakeups are FIFO per cell. If ctx is cancelled the queue entry is
// removed; if the wakeup raced the cancellation, the token is passed to
// the next waiter so a release is never lost.
func (b *Board) waitForCellLocked(ctx context.Context, pos Pos) error {
	ch := make(chan struct{})
	b.waiters[pos] = append(b.waiters[pos], ch)

	b.mu.Unlock()
	select {
	case <-ch:
		b.mu.Lock()
		if b.corrupt {
			return appErr.ErrBoardCorrupt
		}
		return nil
	case <-ctx.Done():
		b.mu.Lock()
		if !b.removeWaiterLocked(pos, ch) {
			b.wakeOneLocked(pos)
		}
		return ctx.Err()
	}
}

// wakeOneLocked resumes the longest-waiting flip suspended on pos, if any.
func (b *Board) wakeOneLocked(pos Pos) {
	queue := b.waiters[pos]
	if len(queue) == 0 {
		return
	}
	close(queue[0])
	if len(queue) == 1 {
		delete(b.waiters, pos)
	} else {
		b.waiters[pos] = queue[1:]
	}
}

// wakeAllLocked resumes every flip suspended on pos. Used when the cell is
// removed from the grid: every waiter retries and observes the empty cell.
func (b *Board) wakeAllLocked(pos Pos) {
	for _, ch := range b.waiters[pos] {
		close(ch)
	}
	delete(b.waiters, pos)
}

// removeWaiterLocked unlinks ch from the queue for pos, reporting whether
// it was still queued (false means it was already woken).
func (b *Board) removeWaiterLocked(pos Pos, ch chan struct{}) bool {
	queue := b.waiters[pos]
	for i, w := range queue {
		if w == ch {
			queue = append(queue[:i:i], queue[i+1:]...)
			if len(queue) == 0 {
				delete(b.waiters, pos)
			} else {
				b.waiters[pos] = queue
			}
			return true
		}
	}
	return false
}

// notifyLocked records an observable mutation: the version counter is
// bumped and the broadcast channel is closed and replaced, waking every
// subscribed watcher at once.
func (b *Board) notifyLocked() {
	b.version++
	close(b.changed)
	b.changed = make(chan struct{})
}

// Watch blocks until the board changes in any way after the call, then
// returns the new view from player's perspective. The comparison is
// against a version snapshot taken up front, so a watcher that is slow to
// be rescheduled still observes a change that happened in the meantime.
func (b *Board) Watch(ctx context.Context, player string) (string, error) {
	if !ValidPlayerID(player) {
		return "", appErr.ErrInvalidPlayer
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.corrupt {
		return "", appErr.ErrBoardCorrupt
	}
	b.ensurePlayerLocked(player)

	seen := b.version
	for b.version == seen {
		ch := b.changed
		b.mu.Unlock()
		select {
		case <-ch:
			b.mu.Lock()
		case <-ctx.Done():
			b.mu.Lock()
			return "", ctx.Err()
		}
		if b.corrupt {
			return "", appErr.ErrBoardCorrupt
		}
	}
	return b.renderLocked(player), nil
}
