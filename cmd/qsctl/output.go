package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// report is one file's verdict as printed by qsctl.
type report struct {
	File     string         `json:"file"               yaml:"file"`
	FileSize int            `json:"file_size,omitempty" yaml:"file_size,omitempty"`
	Risk     string         `json:"risk,omitempty"     yaml:"risk,omitempty"`
	Score    int            `json:"score"              yaml:"score"`
	Tags     []string       `json:"tags,omitempty"     yaml:"tags,omitempty"`
	Results  map[string]any `json:"results,omitempty"  yaml:"results,omitempty"`
	Error    string         `json:"error,omitempty"    yaml:"error,omitempty"`
}

// errFilesFailed is returned after printing when at least one file failed.
type errFilesFailed int

func (n errFilesFailed) Error() string {
	return fmt.Sprintf("%d file(s) could not be analysed", int(n))
}

// printReports writes rows in the requested format. A single row is printed
// unwrapped. The returned error reports failed files, if any.
func printReports(w io.Writer, format string, rows []report) error {
	var err error
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(unwrapSingle(rows))
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err = enc.Encode(unwrapSingle(rows))
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
	default:
		err = printText(w, rows)
	}
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range rows {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return errFilesFailed(failed)
	}
	return nil
}

func unwrapSingle(rows []report) any {
	if len(rows) == 1 {
		return rows[0]
	}
	return rows
}

func printText(w io.Writer, rows []report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tRISK\tSCORE\tTAGS\tERROR")
	for _, r := range rows {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\t\t\t\t%s\n", r.File, r.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t\n", r.File, r.Risk, r.Score, strings.Join(r.Tags, ","))
	}
	return tw.Flush()
}
