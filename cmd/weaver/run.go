package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alvmarrod/forum-weaver/internal/config"
	"github.com/alvmarrod/forum-weaver/internal/export"
	"github.com/alvmarrod/forum-weaver/internal/metrics"
	"github.com/alvmarrod/forum-weaver/internal/thread"
	"github.com/alvmarrod/forum-weaver/internal/version"
	"github.com/sirupsen/logrus"
)

// Termination reasons recorded in the metrics file
const (
	reasonCompleted   = "completed"
	reasonInterrupted = "interrupted"
	reasonNoThread    = "no_thread"
	reasonFailed      = "failed"
)

// collectFunc gathers one graph. It must feed tracker with its events.
type collectFunc func(ctx context.Context, cfg *config.Config, opts thread.Options, tracker *metrics.Tracker) (*thread.Graph, error)

// runAnalysis drives a collection from start to export: signals, metrics
// server, progress logging, layout, export and the metrics file.
func runAnalysis(cfg *config.Config, progressEvery time.Duration, collect collectFunc) error {
	logrus.Infof("Forum Weaver v%s starting...", version.Version)

	opts, err := cfg.ThreadOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := metrics.NewTracker()
	srv := tracker.StartServer(cfg.MetricsAddr)

	// Start progress logger
	stopProgress := make(chan struct{})
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		ticker := time.NewTicker(progressEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logrus.Info(tracker.LogProgress())
			case <-stopProgress:
				return
			}
		}
	}()

	g, err := collect(ctx, cfg, opts, tracker)

	close(stopProgress)
	<-progressDone

	reason := reasonCompleted
	switch {
	case err == nil:
	case ctx.Err() != nil:
		reason = reasonInterrupted
	case errors.Is(err, thread.ErrStructureNotFound), errors.Is(err, thread.ErrEmptyThread):
		reason = reasonNoThread
	default:
		reason = reasonFailed
	}

	logrus.Info("Final stats: " + tracker.LogProgress())

	if err == nil {
		export.CircleLayout(g)
		final := tracker.Finish(reason)
		err = export.Write(cfg.Output.Path, cfg.Output.Format, g, export.RunInfo{
			SourceURL: cfg.StartURL,
			Direction: opts.Direction,
			Metrics:   &final,
		})
		if err != nil {
			reason = reasonFailed
		}
	}

	if werr := tracker.WriteToFile(cfg.MetricsPath, reason); werr != nil {
		logrus.Errorf("Failed to write metrics: %v", werr)
	} else {
		logrus.Infof("Metrics written to %s", cfg.MetricsPath)
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			logrus.Warnf("Metrics server shutdown: %v", serr)
		}
	}

	return err
}
