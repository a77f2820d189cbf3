package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) excludeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exclude",
		Short: "Manage URLs that are never reported",
	}
	cmd.AddCommand(a.excludeAddCmd(), a.excludeRmCmd(), a.excludeListCmd())
	return cmd
}

func (a *app) excludeAddCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "add <url>...",
		Short: "Exclude URLs from future collections",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			for _, url := range args {
				url = strings.TrimSpace(url)
				added, err := db.AddExclusion(cmd.Context(), url, reason)
				if err != nil {
					return err
				}
				if added {
					fmt.Fprintf(cmd.OutOrStdout(), "excluded %s\n", url)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "already excluded %s\n", url)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the URL is excluded")
	return cmd
}

func (a *app) excludeRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <url>",
		Short: "Allow a URL again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.RemoveExclusion(cmd.Context(), strings.TrimSpace(args[0])); err != nil {
				return fmt.Errorf("remove exclusion %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

func (a *app) excludeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List excluded URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			list, err := db.ListExclusions(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "URL\tADDED\tREASON")
			for _, e := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.URL, e.AddedAt.Local().Format(time.DateTime), e.Reason)
			}
			return tw.Flush()
		},
	}
}
