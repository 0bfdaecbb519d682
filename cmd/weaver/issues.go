package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alvmarrod/forum-weaver/internal/config"
	"github.com/alvmarrod/forum-weaver/internal/forum"
	"github.com/alvmarrod/forum-weaver/internal/metrics"
	"github.com/alvmarrod/forum-weaver/internal/thread"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newIssuesCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "issues [url]",
		Short: "Build the author-to-issue graph of an issue list page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags, args)
			if err != nil {
				return err
			}
			return runAnalysis(cfg, 10*time.Second, collectIssues)
		},
	}
}

// issue rows are flat, nothing contains anything
var noContainment = thread.ContainsFunc(func(thread.Handle, thread.Handle) bool { return false })

func collectIssues(ctx context.Context, cfg *config.Config, opts thread.Options, tracker *metrics.Tracker) (*thread.Graph, error) {
	records, err := forum.ScrapeIssues(ctx, cfg, tracker)
	if err != nil {
		return nil, err
	}

	state := thread.NewState(noContainment, opts)
	state.SetObserver(tracker)
	for _, rec := range records {
		if _, err := state.RecordEntity(rec); err != nil {
			logrus.Warnf("Skipping %s: %v", rec.ID, err)
		}
	}

	if state.MessageCount() == 0 {
		return nil, fmt.Errorf("%w: no issue had an author", thread.ErrEmptyThread)
	}
	return state.Finalize(), nil
}
