// Package report renders ranked facility populations.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/catchment/internal/model"
)

// Supported output formats.
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatCSV   = "csv"
)

// Write renders ranking to w in the given format.
func Write(w io.Writer, format string, ranking []model.Ranked) error {
	switch format {
	case FormatText, "":
		return writeText(w, ranking)
	case FormatTable:
		return writeTable(w, ranking)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(ranking), "report: encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(ranking); err != nil {
			return eris.Wrap(err, "report: encode yaml")
		}
		return eris.Wrap(enc.Close(), "report: close yaml encoder")
	case FormatCSV:
		return writeCSV(w, ranking)
	default:
		return eris.Errorf("report: unknown format %q", format)
	}
}

// FormatPopulation prints a population without a trailing ".0" for whole numbers.
func FormatPopulation(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeText(w io.Writer, ranking []model.Ranked) error {
	for _, r := range ranking {
		if _, err := fmt.Fprintf(w, "%s: %s\n", r.Facility, FormatPopulation(r.Population)); err != nil {
			return eris.Wrap(err, "report: write text")
		}
	}
	return nil
}

func writeTable(w io.Writer, ranking []model.Ranked) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RANK\tFACILITY\tPLACES\tPOPULATION")
	_, _ = fmt.Fprintln(tw, "----\t--------\t------\t----------")
	for i, r := range ranking {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i+1, r.Facility, r.Places, FormatPopulation(r.Population))
	}
	return eris.Wrap(tw.Flush(), "report: write table")
}

func writeCSV(w io.Writer, ranking []model.Ranked) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"rank", "facility", "places", "population"})
	for i, r := range ranking {
		_ = cw.Write([]string{strconv.Itoa(i + 1), r.Facility, strconv.Itoa(r.Places), FormatPopulation(r.Population)})
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: write csv")
}
