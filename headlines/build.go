package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/report"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/reportfs"
)

func (a *app) buildCmd() *cobra.Command {
	var (
		rawFlag      string
		curationFlag string
		dateFlag     string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Assemble the report from a raw snapshot and a curation file",
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := build(a.log, a.reports(), buildOptions{
				RawPath:      rawFlag,
				CurationPath: curationFlag,
				Date:         dateFlag,
				Now:          time.Now(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d articles (S:%d A:%d B:%d C:%d)\n",
				rep.Date, rep.Summary.Total, rep.Summary.S, rep.Summary.A, rep.Summary.B, rep.Summary.C)
			return nil
		},
	}
	cmd.Flags().StringVar(&curationFlag, "curation", "", "curation YAML file")
	cmd.Flags().StringVar(&rawFlag, "raw", "", "raw snapshot (default: the snapshot for --date)")
	cmd.Flags().StringVar(&dateFlag, "date", "", "report date (default: the curation's date, else today)")
	_ = cmd.MarkFlagRequired("curation")
	return cmd
}

type buildOptions struct {
	RawPath      string
	CurationPath string
	Date         string
	Now          time.Time
}

// build applies the curation to the raw snapshot and saves the report as
// JSON and Markdown. Curation inconsistencies are logged, not fatal.
func build(log *slog.Logger, reports *reportfs.Store, opts buildOptions) (models.Report, error) {
	f, err := os.Open(opts.CurationPath)
	if err != nil {
		return models.Report{}, fmt.Errorf("open curation: %w", err)
	}
	defer f.Close()
	cur, err := report.LoadCuration(f)
	if err != nil {
		return models.Report{}, err
	}

	date := opts.Date
	if date == "" {
		date = cur.Date
	}
	if date == "" {
		date = opts.Now.Format(dateLayout)
	}

	rawPath := opts.RawPath
	if rawPath == "" {
		if rawPath, err = reports.RawPath(date); err != nil {
			return models.Report{}, err
		}
	}
	raw, err := reportfs.LoadRaw(rawPath)
	if err != nil {
		return models.Report{}, err
	}

	articles, warnings := cur.Apply(raw)
	for _, w := range warnings {
		log.Warn("curation warning", slog.String("warning", w.String()))
	}

	rep := report.Assemble(report.AssembleInput{
		Date:        date,
		GeneratedAt: opts.Now,
		Articles:    articles,
		Trends:      cur.Trends,
		Pickups:     cur.Pickups,
	})
	for _, p := range rep.PickupTop3 {
		if rep.ArticleByID(p.ArticleID) < 0 {
			log.Warn("pickup is not among the curated articles", slog.Int("position", p.Position), slog.String("article_id", p.ArticleID))
		}
	}

	if err := reports.Save(rep); err != nil {
		return models.Report{}, err
	}
	log.Info("report built",
		slog.String("date", rep.Date),
		slog.Int("articles", rep.Summary.Total),
		slog.Int("warnings", len(warnings)),
	)
	return rep, nil
}
