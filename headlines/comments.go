package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/comments"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/sources"
)

type threadFetcher interface {
	Thread(ctx context.Context, postURL string) (*comments.Thread, error)
}

type bookmarkFetcher interface {
	Comments(ctx context.Context, articleURL string) (*sources.HatenaComments, error)
}

func (a *app) commentsCmd() *cobra.Command {
	var sourceFlag string
	cmd := &cobra.Command{
		Use:   "comments <url>",
		Short: "Print the discussion of an article as JSON",
		Long: "Reddit post URLs are fetched as a flattened comment thread; any other URL " +
			"is looked up as a Hatena bookmark entry.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.client()
			return printComments(cmd.Context(), cmd.OutOrStdout(), sourceFlag, args[0],
				sources.NewReddit(c, ""), sources.NewHatena(c, ""))
		},
	}
	cmd.Flags().StringVar(&sourceFlag, "source", "auto", "auto, reddit or hatena")
	return cmd
}

func printComments(ctx context.Context, w io.Writer, source, url string, reddit threadFetcher, hatena bookmarkFetcher) error {
	if source == "auto" {
		source = "hatena"
		if _, _, err := sources.PostPath(url); err == nil {
			source = "reddit"
		}
	}

	var out any
	switch source {
	case "reddit":
		thread, err := reddit.Thread(ctx, url)
		if err != nil {
			return err
		}
		out = thread
	case "hatena":
		entry, err := hatena.Comments(ctx, url)
		if err != nil {
			return err
		}
		out = entry
	default:
		return errors.New("--source must be auto, reddit or hatena")
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode comments: %w", err)
	}
	return nil
}
