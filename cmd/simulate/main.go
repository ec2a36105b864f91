package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"scramble-service/internal/board"
	"scramble-service/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Drives N concurrent players making random flips against one in-process
// board. Useful for shaking out concurrency bugs and as a rough load test.

type playerStats struct {
	id        string
	attempts  int
	successes int
	failures  int
	timeouts  int
	duration  time.Duration
}

func main() {
	var (
		boardFile = flag.String("board", "boards/ab.txt", "path to board file")
		players   = flag.Int("players", 4, "number of concurrent players")
		flips     = flag.Int("flips", 100, "flip attempts per player")
		minDelay  = flag.Duration("min-delay", 100*time.Microsecond, "minimum delay between flips")
		maxDelay  = flag.Duration("max-delay", 2*time.Millisecond, "maximum delay between flips")
		flipWait  = flag.Duration("flip-timeout", 2*time.Second, "how long a flip may stay blocked on a contested cell")
	)
	flag.Parse()

	logger.InitLogger("release")
	defer logger.Log.Sync()

	b, err := board.ParseFile(*boardFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	b.EnableCheckRep()

	fmt.Printf("board loaded: %s\n", b)
	fmt.Printf("starting %d players, %d flip attempts each\n\n", *players, *flips)

	stats := make([]*playerStats, *players)
	start := time.Now()

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < *players; i++ {
		st := &playerStats{id: fmt.Sprintf("player%d", i)}
		stats[i] = st
		g.Go(func() error {
			return runPlayer(ctx, b, st, *flips, *minDelay, *maxDelay, *flipWait)
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "simulation failed: %v\n", err)
		os.Exit(1)
	}
	total := time.Since(start)

	view, err := b.Look("observer")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("final board state:\n%s\n\n", view)

	var attempts, successes, failures int
	for _, st := range stats {
		attempts += st.attempts
		successes += st.successes
		failures += st.failures
		fmt.Printf("%s: %d attempts, %d ok, %d failed, %d timed out, %v\n",
			st.id, st.attempts, st.successes, st.failures, st.timeouts, st.duration.Round(time.Millisecond))
	}
	fmt.Printf("\ntotal: %d attempts (%d ok, %d failed) in %v\n", attempts, successes, failures, total.Round(time.Millisecond))
}

func runPlayer(ctx context.Context, b *board.Board, st *playerStats, flips int, minDelay, maxDelay, flipWait time.Duration) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(len(st.id))))
	start := time.Now()
	defer func() { st.duration = time.Since(start) }()

	for i := 0; i < flips; i++ {
		delay := minDelay + time.Duration(rng.Int63n(int64(maxDelay-minDelay)+1))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		row := rng.Intn(b.Rows())
		col := rng.Intn(b.Cols())

		flipCtx, cancel := context.WithTimeout(ctx, flipWait)
		_, err := b.Flip(flipCtx, st.id, row, col)
		cancel()

		st.attempts++
		switch {
		case err == nil:
			st.successes++
		case ctx.Err() != nil:
			return ctx.Err()
		case flipCtx.Err() != nil:
			// Blocked too long on a contested cell; move on.
			st.failures++
			st.timeouts++
		default:
			st.failures++
		}
	}
	return nil
}
