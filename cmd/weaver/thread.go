package main

import (
	"context"
	"time"

	"github.com/alvmarrod/forum-weaver/internal/config"
	"github.com/alvmarrod/forum-weaver/internal/forum"
	"github.com/alvmarrod/forum-weaver/internal/metrics"
	"github.com/alvmarrod/forum-weaver/internal/thread"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newThreadCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "thread [url]",
		Short: "Build the reply graph of a paginated forum thread",
		Long: `Fetches the thread at url (or start_url from the configuration), follows
its pagination to the end and exports who replied to whom.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags, args)
			if err != nil {
				return err
			}
			return runAnalysis(cfg, 10*time.Second, collectThread)
		},
	}
}

func collectThread(ctx context.Context, cfg *config.Config, opts thread.Options, tracker *metrics.Tracker) (*thread.Graph, error) {
	src := forum.NewSource(cfg, tracker)
	state := thread.NewState(src, opts)
	state.SetObserver(tracker)

	g, err := thread.Extract(ctx, src, state)
	if err != nil {
		return nil, err
	}

	logrus.Infof("Visited %d pages, skipped %d messages", len(src.Visited()), state.Skipped())
	return g, nil
}
