package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
)

// WriteTable prints an aligned, human-readable listing.
func WriteTable(w io.Writer, records []Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No findings.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tLINE\tCOL\tSEVERITY\tRULE\tMESSAGE")
	for _, rec := range records {
		path := rec.Path
		if path == "" {
			path = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\n", path, rec.Line, rec.Column, rec.Severity, rec.RuleID, rec.Message)
	}
	return tw.Flush()
}

// WriteCSV writes a header row followed by one row per record.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"path", "rule_id", "line", "column", "severity", "message", "snippet"}); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.Path,
			rec.RuleID,
			strconv.Itoa(rec.Line),
			strconv.Itoa(rec.Column),
			string(rec.Severity),
			rec.Message,
			rec.Snippet,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
