package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/catchment/internal/model"
	"github.com/sells-group/catchment/internal/report"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved ranking runs",
	Long:  "Commands for listing and viewing runs saved with rank --save.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the ranking of a saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		format := cfg.Output.Format
		if cmd.Flags().Changed("format") {
			format, _ = cmd.Flags().GetString("format")
		}
		withAssignments, _ := cmd.Flags().GetBool("assignments")

		out := cmd.OutOrStdout()
		if format == report.FormatText || format == report.FormatTable {
			formatRunHeader(out, run)
		}
		if err := report.Write(out, format, run.Ranking); err != nil {
			return eris.Wrap(err, "runs show")
		}
		if withAssignments {
			_, _ = fmt.Fprintln(out)
			formatAssignments(out, run.Assignments)
		}
		return nil
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "max number of runs to display")

	runsShowCmd.Flags().String("format", "", "output format: text, table, json, yaml or csv")
	runsShowCmd.Flags().Bool("assignments", false, "also list every place and the facility it was assigned to")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to out.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tFACILITIES\tPLACES\tUNASSIGNED")
	_, _ = fmt.Fprintln(w, "--\t-------\t----------\t------\t----------")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n",
			truncateID(r.ID),
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.FacilityCount,
			r.PlaceCount,
			r.FailureCount,
		)
	}
	_ = w.Flush()
}

func formatRunHeader(out io.Writer, r *model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", r.ID)
	_, _ = fmt.Fprintf(w, "Created:\t%s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(w, "Facilities:\t%d\n", r.FacilityCount)
	_, _ = fmt.Fprintf(w, "Places:\t%d\n", r.PlaceCount)
	_, _ = fmt.Fprintf(w, "Unassigned:\t%d\n", r.FailureCount)
	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
}

// formatAssignments writes one row per assigned place.
func formatAssignments(out io.Writer, as []model.Assignment) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FACILITY\tPLACE\tID\tDISTANCE_KM\tMATCH")
	for _, a := range as {
		match := "nearest"
		if a.ByID {
			match = "id"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			a.Facility, a.PlaceName, a.PlaceID,
			strconv.FormatFloat(a.DistanceKM, 'f', 1, 64), match)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
