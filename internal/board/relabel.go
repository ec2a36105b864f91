package board

import (
	"context"
	"fmt"
	"sync"

	appErr "scramble-service/pkg/errors"

	"golang.org/x/sync/errgroup"
)

// Transform maps a card label to a replacement label. It is called exactly
// once per distinct label on the board and may block (e.g. on an external
// lookup); it must be pure with respect to its input.
type Transform func(ctx context.Context, label string) (string, error)

// Map relabels every card on the board: all cards sharing a label receive
// the same replacement, so pairs that matched before still match after.
//
// The distinct-label set is collected under the lock, the transforms run
// with the lock released (concurrently, one goroutine per label), and the
// full relabeling commits as a single atomic step. No other operation ever
// observes a partially relabeled grid. Cells removed while the transforms
// were running are skipped at commit.
func (b *Board) Map(ctx context.Context, player string, transform Transform) (string, error) {
	if !ValidPlayerID(player) {
		return "", appErr.ErrInvalidPlayer
	}

	b.mu.Lock()
	if b.corrupt {
		b.mu.Unlock()
		return "", appErr.ErrBoardCorrupt
	}
	b.ensurePlayerLocked(player)
	labels := b.distinctLabelsLocked()
	b.mu.Unlock()

	replacements := make(map[string]string, len(labels))
	var replMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, label := range labels {
		label := label
		g.Go(func() error {
			out, err := transform(gctx, label)
			if err != nil {
				return fmt.Errorf("transform %q: %w", label, err)
			}
			if err := checkLabel(out); err != nil {
				return fmt.Errorf("transform %q: %w", label, err)
			}
			replMu.Lock()
			replacements[label] = out
			replMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.corrupt {
		return "", appErr.ErrBoardCorrupt
	}

	changed := false
	for i := range b.cells {
		c := &b.cells[i]
		if c.gone {
			continue
		}
		// A label not in the plan means a concurrent Map committed while
		// the transforms ran; leave that cell as the later plan wrote it.
		if out, ok := replacements[c.card.Label]; ok && out != c.card.Label {
			c.card = Card{Label: out}
			changed = true
		}
	}
	if changed {
		b.notifyLocked()
	}
	if err := b.verifyLocked(); err != nil {
		return "", err
	}
	return b.renderLocked(player), nil
}

func (b *Board) distinctLabelsLocked() []string {
	seen := make(map[string]bool)
	var labels []string
	for i := range b.cells {
		c := &b.cells[i]
		if c.gone || seen[c.card.Label] {
			continue
		}
		seen[c.card.Label] = true
		labels = append(labels, c.card.Label)
	}
	return labels
}
