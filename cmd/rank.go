package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/catchment/internal/config"
	"github.com/sells-group/catchment/internal/pipeline"
	"github.com/sells-group/catchment/internal/report"
	"github.com/sells-group/catchment/internal/store"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Assign places to their nearest facility and rank facilities by population",
	Example: `  catchment rank
  catchment rank --facilities nhl-stadiums.csv --places canadacities.csv --places uscities.csv
  catchment rank --format table --show-failures --save`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := applyRankFlags(cmd, cfg); err != nil {
			return err
		}
		save, _ := cmd.Flags().GetBool("save")
		return runRank(cmd.Context(), cfg, save, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	f := rankCmd.Flags()
	f.String("facilities", "", "facility file (csv, xlsx or shp); overrides input.facilities")
	f.StringArray("places", nil, "place file, repeatable; overrides input.places")
	f.String("format", "", "output format: text, table, json, yaml or csv")
	f.Bool("tolerate-bad-population", false, "count unparseable populations as 0 instead of failing")
	f.Bool("show-failures", false, "print skipped rows and unassigned places to stderr")
	f.Bool("save", false, "persist the run to the configured store")
	rootCmd.AddCommand(rankCmd)
}

// applyRankFlags copies explicitly set flags over the loaded configuration.
func applyRankFlags(cmd *cobra.Command, c *config.Config) error {
	f := cmd.Flags()
	if f.Changed("facilities") {
		c.Input.Facilities, _ = f.GetString("facilities")
	}
	if f.Changed("places") {
		c.Input.Places, _ = f.GetStringArray("places")
	}
	if f.Changed("format") {
		c.Output.Format, _ = f.GetString("format")
	}
	if f.Changed("tolerate-bad-population") {
		c.Aggregate.TolerateBadPopulation, _ = f.GetBool("tolerate-bad-population")
	}
	if f.Changed("show-failures") {
		c.Output.ShowFailures, _ = f.GetBool("show-failures")
	}
	return c.Validate("rank")
}

func runRank(ctx context.Context, c *config.Config, save bool, out, errOut io.Writer) error {
	var st store.Store
	if save {
		s, err := initStore(ctx, c)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck
		st = s
	}

	res, err := pipeline.New(c, st).Run(ctx)
	if err != nil {
		return eris.Wrap(err, "rank")
	}

	if err := report.Write(out, c.Output.Format, res.Ranking); err != nil {
		return eris.Wrap(err, "rank: write report")
	}

	if c.Output.ShowFailures {
		if err := report.WriteProblems(errOut, res.Problems); err != nil {
			return eris.Wrap(err, "rank: write problems")
		}
	}
	if n := res.Problems.Count(); n > 0 && !c.Output.ShowFailures {
		_, _ = fmt.Fprintf(errOut, "%d records skipped or unassigned; rerun with --show-failures for details\n", n)
	}
	if res.RunID != "" {
		_, _ = fmt.Fprintf(errOut, "saved run %s\n", res.RunID)
	}
	return nil
}
