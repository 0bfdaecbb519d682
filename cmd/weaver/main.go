package main

import (
	"fmt"
	"os"

	"github.com/alvmarrod/forum-weaver/internal/config"
	"github.com/alvmarrod/forum-weaver/internal/thread"
	"github.com/alvmarrod/forum-weaver/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// cliFlags holds the values of flags that override the configuration file
type cliFlags struct {
	configPath string
	verbose    bool
	output     string
	format     string
	direction  string
	normalize  string
	maxPages   int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if msg, ok := thread.Diagnostic(err); ok {
			fmt.Fprintln(os.Stderr, msg)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:   "weaver",
		Short: "Forum Weaver - who-replies-to-whom graphs from discussion threads",
		Long: `Forum Weaver walks every page of a nested discussion thread, recovers
which message each reply answers, and exports the resulting interaction
graph with per-participant response times.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetFormatter(&logrus.TextFormatter{
				FullTimestamp: true,
			})
			if flags.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (JSON or YAML)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output")
	pf.StringVarP(&flags.output, "output", "o", "", "output file (overrides output.path)")
	pf.StringVarP(&flags.format, "format", "f", "", "output format: json, yaml, gexf or sqlite")
	pf.StringVar(&flags.direction, "direction", "", "edge direction: reply-to-parent or parent-to-reply")
	pf.StringVar(&flags.normalize, "normalize", "", "author normalization: none, trim or fold")
	pf.IntVar(&flags.maxPages, "max-pages", 0, "stop after this many pages (0 = unlimited)")

	root.AddCommand(newThreadCmd(flags))
	root.AddCommand(newIssuesCmd(flags))
	return root
}

// loadConfig reads the configuration and applies explicitly set flags and the
// optional URL argument on top of it
func loadConfig(cmd *cobra.Command, flags *cliFlags, args []string) (*config.Config, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("output") {
		cfg.Output.Path = flags.output
	}
	if changed("format") {
		cfg.Output.Format = flags.format
	}
	if changed("direction") {
		cfg.Analysis.EdgeDirection = flags.direction
	}
	if changed("normalize") {
		cfg.Analysis.AuthorNormalization = flags.normalize
	}
	if changed("max-pages") {
		cfg.MaxPages = flags.maxPages
	}
	if len(args) > 0 {
		cfg.StartURL = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.RequireStartURL(); err != nil {
		return nil, err
	}

	logrus.Infof("Configuration loaded: url=%s, direction=%s, normalization=%s, format=%s",
		cfg.StartURL, cfg.Analysis.EdgeDirection, cfg.Analysis.AuthorNormalization, cfg.Output.Format)
	return cfg, nil
}
