package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/reportfs"
)

func (a *app) convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <report.md>...",
		Short: "Rewrite the JSON of hand-edited Markdown reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reports := a.reports()
			for _, path := range args {
				rep, warnings, err := reports.Convert(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				for _, w := range warnings {
					a.log.Warn("report warning", slog.String("path", path), slog.String("warning", w.String()))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d articles, %d pickups, %d warnings\n",
					path, len(rep.Articles), len(rep.PickupTop3), len(warnings))
			}
			return nil
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Convert Markdown reports to JSON whenever they are saved",
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportfs.NewWatcher(a.reports(), debounce, a.log).Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "quiet period before a changed file is converted")
	return cmd
}
