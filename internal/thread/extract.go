package thread

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Source reveals a thread one page at a time
type Source interface {
	Containment

	// Open locates the thread. Returns ErrStructureNotFound when the page has no thread.
	Open(ctx context.Context) error
	// Page returns the messages of the current page in document order
	Page(ctx context.Context) ([]RawMessage, error)
	// HasMore reports whether another page follows the current one
	HasMore() bool
	// Advance moves to the next page
	Advance(ctx context.Context) error
	// Close releases the page-advance machinery
	Close() error
}

// Extract scans every page of src into state and assembles the graph.
// Pages are processed strictly in order; the source is closed exactly once,
// before the graph is assembled.
func Extract(ctx context.Context, src Source, state *State) (*Graph, error) {
	if err := scan(ctx, src, state); err != nil {
		return nil, err
	}

	if state.MessageCount() == 0 {
		return nil, fmt.Errorf("%w after %d page(s), %d skipped", ErrEmptyThread, state.Pages(), state.Skipped())
	}

	g := state.Finalize()
	logrus.Infof("Thread extracted: %d pages, %d nodes, %d edges, %d skipped messages",
		state.Pages(), len(g.Nodes), len(g.Edges), state.Skipped())
	return g, nil
}

func scan(ctx context.Context, src Source, state *State) (err error) {
	if err := src.Open(ctx); err != nil {
		return fmt.Errorf("failed to open thread: %w", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close source: %w", cerr)
		}
	}()

	maxPages := state.Options().MaxPages
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := src.Page(ctx)
		if err != nil {
			return fmt.Errorf("failed to read page %d: %w", state.Pages()+1, err)
		}
		state.ProcessPage(page)

		if !src.HasMore() {
			return nil
		}
		if maxPages > 0 && state.Pages() >= maxPages {
			logrus.Warnf("Stopping after %d pages (max_pages reached)", maxPages)
			return nil
		}

		if err := src.Advance(ctx); err != nil {
			return fmt.Errorf("failed to advance past page %d: %w", state.Pages(), err)
		}
	}
}
