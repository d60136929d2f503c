package main

import (
	"encoding/json"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// column is one table column. Numeric columns are right aligned.
type column struct {
	title   string
	numeric bool
}

// tableView renders rows under columns; footer, when set, is printed below a
// separator. Titles are printed as written.
type tableView struct {
	columns []column
	rows    [][]string
	footer  []string
}

func (v tableView) render() string {
	if len(v.columns) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	style := tw.Style()
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault

	header := make(table.Row, 0, len(v.columns))
	configs := make([]table.ColumnConfig, 0, len(v.columns))
	for i, c := range v.columns {
		header = append(header, c.title)
		cfg := table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft, Align: text.AlignLeft}
		if c.numeric {
			cfg.Align = text.AlignRight
			cfg.AlignFooter = text.AlignRight
		}
		configs = append(configs, cfg)
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, r := range v.rows {
		tw.AppendRow(v.fit(r))
	}
	if v.footer != nil {
		tw.AppendFooter(v.fit(v.footer))
	}
	return tw.Render()
}

// fit pads or truncates cells to the column count.
func (v tableView) fit(cells []string) table.Row {
	row := make(table.Row, len(v.columns))
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}
