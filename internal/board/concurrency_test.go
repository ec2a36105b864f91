package board_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"scramble-service/internal/board"
	appErr "scramble-service/pkg/errors"
)

// settle gives background goroutines time to reach their blocking point.
// The board has no queue introspection, so ordering tests rely on short
// real delays.
const settle = 50 * time.Millisecond

type flipResult struct {
	view string
	err  error
}

func flipAsync(b *board.Board, player string, row, col int) chan flipResult {
	done := make(chan flipResult, 1)
	go func() {
		view, err := b.Flip(context.Background(), player, row, col)
		done <- flipResult{view, err}
	}()
	return done
}

func waitResult(t *testing.T, done chan flipResult, what string) flipResult {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return flipResult{}
	}
}

func assertBlocked(t *testing.T, done chan flipResult, what string) {
	t.Helper()
	select {
	case res := <-done:
		t.Fatalf("%s completed unexpectedly: %+v", what, res)
	case <-time.After(settle):
	}
}

// A first flip on a cell controlled by another player suspends until the
// controller lets go, then succeeds on retry.
func TestFirstFlipWaitsForControlledCell(t *testing.T) {
	b := mustBoard(t, 1, 3, "A", "B", "C")
	mustFlip(t, b, "xavier", 0, 0)

	done := flipAsync(b, "yvonne", 0, 0)
	assertBlocked(t, done, "yvonne's flip")

	// xavier's mismatching second flip releases both cards immediately.
	mustFlip(t, b, "xavier", 0, 1)

	res := waitResult(t, done, "yvonne's flip")
	if res.err != nil {
		t.Fatalf("yvonne's flip failed after wake: %v", res.err)
	}
	if res.view != "1x3\nmy A\nup B\ndown" {
		t.Fatalf("yvonne's view = %q", res.view)
	}
}

func TestPerCellWakeupsAreFIFO(t *testing.T) {
	b := mustBoard(t, 1, 4, "A", "A", "B", "B")
	mustFlip(t, b, "holder", 0, 0)

	var order []string
	var orderMu sync.Mutex
	record := func(id string) {
		orderMu.Lock()
		order = append(order, id)
		orderMu.Unlock()
	}

	firstDone := make(chan flipResult, 1)
	go func() {
		view, err := b.Flip(context.Background(), "first", 0, 0)
		record("first")
		firstDone <- flipResult{view, err}
	}()
	time.Sleep(settle)

	secondDone := make(chan flipResult, 1)
	go func() {
		view, err := b.Flip(context.Background(), "second", 0, 0)
		record("second")
		secondDone <- flipResult{view, err}
	}()
	time.Sleep(settle)

	// Releasing the cell wakes exactly the longest waiter.
	mustFlip(t, b, "holder", 0, 2) // mismatch: (0,0) and (0,2) released

	res := waitResult(t, firstDone, "first waiter")
	if res.err != nil {
		t.Fatalf("first waiter failed: %v", res.err)
	}
	assertBlocked(t, secondDone, "second waiter")

	// "first" now controls the cell; handing it back wakes "second".
	if _, err := b.Flip(context.Background(), "first", 0, 3); err != nil {
		t.Fatalf("first's second flip failed: %v", err)
	}

	res = waitResult(t, secondDone, "second waiter")
	if res.err != nil {
		t.Fatalf("second waiter failed: %v", res.err)
	}

	orderMu.Lock()
	defer orderMu.Unlock()
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("wake order = %v, want [first second]", order)
	}
}

// Scenario: a watcher suspends, any player mutates, the watcher returns
// promptly with the post-mutation view.
func TestWatchReturnsOnMutation(t *testing.T) {
	b := mustBoard(t, 1, 2, "A", "B")

	done := make(chan flipResult, 1)
	go func() {
		view, err := b.Watch(context.Background(), "yvonne")
		done <- flipResult{view, err}
	}()
	assertBlocked(t, done, "watch")

	mustFlip(t, b, "xavier", 0, 0)

	res := waitResult(t, done, "watch")
	if res.err != nil {
		t.Fatalf("watch failed: %v", res.err)
	}
	if res.view != "1x2\nup A\ndown" {
		t.Fatalf("watch view = %q", res.view)
	}
}

// Every watcher subscribed before a mutation observes it: the wakeup is a
// broadcast, not a single-consumer queue.
func TestWatchBroadcastsToAllWatchers(t *testing.T) {
	b := mustBoard(t, 1, 2, "A", "B")

	const watchers = 8
	results := make(chan flipResult, watchers)
	for i := 0; i < watchers; i++ {
		go func() {
			view, err := b.Watch(context.Background(), "watcher")
			results <- flipResult{view, err}
		}()
	}
	time.Sleep(settle)

	mustFlip(t, b, "xavier", 0, 0)

	for i := 0; i < watchers; i++ {
		select {
		case res := <-results:
			if res.err != nil {
				t.Fatalf("watcher %d failed: %v", i, res.err)
			}
			if !strings.HasPrefix(res.view, "1x2\n") {
				t.Fatalf("watcher %d view = %q", i, res.view)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("watcher %d never woke", i)
		}
	}
}

// A watcher that subscribes after a mutation it has not seen returns
// immediately thanks to the version snapshot comparison.
func TestWatchCatchesUpAfterMissedWakeup(t *testing.T) {
	b := mustBoard(t, 1, 2, "A", "B")
	mustFlip(t, b, "xavier", 0, 0)

	// Subscribing now records the current version; the next mutation is
	// the one this watch reports.
	done := make(chan flipResult, 1)
	go func() {
		view, err := b.Watch(context.Background(), "yvonne")
		done <- flipResult{view, err}
	}()
	assertBlocked(t, done, "watch")

	mustFlip(t, b, "xavier", 0, 1)
	res := waitResult(t, done, "watch")
	if res.err != nil {
		t.Fatalf("watch failed: %v", res.err)
	}
}

// Scenario: yvonne blocks on xavier's cell; xavier's finalization turns it
// face-down; yvonne wakes, re-validates and takes control.
func TestWaiterWokenByFinalization(t *testing.T) {
	b := mustBoard(t, 2, 2, "A", "B", "C", "D")

	mustFlip(t, b, "xavier", 0, 0)
	mustFlip(t, b, "xavier", 0, 1) // mismatch, both released face-up

	mustFlip(t, b, "xavier", 1, 0) // finalize: A and B face-down; xavier controls C

	done := flipAsync(b, "yvonne", 1, 0) // xavier controls (1,0)
	assertBlocked(t, done, "yvonne's flip")

	mustFlip(t, b, "xavier", 1, 1) // mismatch: C and D released

	res := waitResult(t, done, "yvonne's flip")
	if res.err != nil {
		t.Fatalf("yvonne's flip failed: %v", res.err)
	}
	if !strings.Contains(res.view, "my C") {
		t.Fatalf("yvonne's view = %q, want control of C", res.view)
	}
}

// While suspended on a second flip, the waiting player keeps control of
// its first card; a removal of the awaited cell fails the flip and only
// then releases the first card.
func TestSecondFlipWaitRetainsFirstCard(t *testing.T) {
	b := mustBoard(t, 2, 2, "A", "A", "B", "B")

	mustFlip(t, b, "yvonne", 1, 0) // yvonne controls B at (1,0)
	mustFlip(t, b, "xavier", 0, 0) // xavier controls A at (0,0)

	// xavier blocks on yvonne's cell, still holding (0,0).
	xavierDone := flipAsync(b, "xavier", 1, 0)
	assertBlocked(t, xavierDone, "xavier's second flip")

	// zach cannot steal xavier's held first card.
	zachDone := flipAsync(b, "zach", 0, 0)
	assertBlocked(t, zachDone, "zach's flip")

	mustFlip(t, b, "yvonne", 1, 1) // yvonne matches the two Bs

	// yvonne's next flip removes the pair; xavier wakes, observes the
	// empty cell, fails, and releases (0,0) — which frees zach.
	mustFlip(t, b, "yvonne", 0, 1)

	res := waitResult(t, xavierDone, "xavier's second flip")
	if !errors.Is(res.err, appErr.ErrEmptyCell) {
		t.Fatalf("xavier's flip: expected ErrEmptyCell, got %v", res.err)
	}

	res = waitResult(t, zachDone, "zach's flip")
	if res.err != nil {
		t.Fatalf("zach's flip failed: %v", res.err)
	}
	if !strings.Contains(res.view, "my A") {
		t.Fatalf("zach's view = %q, want control of A", res.view)
	}
}

func TestCancelledWaitReturnsAndUnblocksQueue(t *testing.T) {
	b := mustBoard(t, 1, 3, "A", "B", "C")
	mustFlip(t, b, "holder", 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancelledDone := make(chan flipResult, 1)
	go func() {
		view, err := b.Flip(ctx, "impatient", 0, 0)
		cancelledDone <- flipResult{view, err}
	}()
	time.Sleep(settle)

	patientDone := flipAsync(b, "patient", 0, 0)
	assertBlocked(t, patientDone, "patient's flip")

	cancel()
	res := waitResult(t, cancelledDone, "cancelled flip")
	if !errors.Is(res.err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", res.err)
	}

	// The abandoned queue entry must not absorb the wakeup.
	mustFlip(t, b, "holder", 0, 1) // mismatch releases (0,0)

	res = waitResult(t, patientDone, "patient's flip")
	if res.err != nil {
		t.Fatalf("patient's flip failed: %v", res.err)
	}
}

func TestCancelledWatchReturns(t *testing.T) {
	b := mustBoard(t, 1, 2, "A", "B")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan flipResult, 1)
	go func() {
		view, err := b.Watch(ctx, "yvonne")
		done <- flipResult{view, err}
	}()
	assertBlocked(t, done, "watch")

	cancel()
	res := waitResult(t, done, "cancelled watch")
	if !errors.Is(res.err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", res.err)
	}
}

// Hammer the board with concurrent random players; checkRep verifies the
// control-exclusivity and visibility invariants after every mutation.
func TestConcurrentPlayersKeepInvariants(t *testing.T) {
	b := mustBoard(t, 3, 3,
		"A", "B", "C",
		"A", "B", "C",
		"X", "X", "X",
	)

	const players = 6
	var wg sync.WaitGroup
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			player := string(rune('a'+n)) + "player"
			for j := 0; j < 50; j++ {
				ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
				_, _ = b.Flip(ctx, player, (n+j)%3, (n*j)%3)
				cancel()
			}
		}(i)
	}
	wg.Wait()

	// The board survived with invariants intact iff it is not corrupt.
	if _, err := b.Look("observer"); err != nil {
		t.Fatalf("board corrupted under concurrency: %v", err)
	}
}
