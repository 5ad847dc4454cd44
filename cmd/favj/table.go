package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/franz/fav-janitor/internal/store"
	"github.com/franz/fav-janitor/internal/util"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// Output formats accepted by --format
const (
	formatTable    = "table"
	formatCSV      = "csv"
	formatMarkdown = "markdown"
)

func validFormat(format string) error {
	switch format {
	case formatTable, formatCSV, formatMarkdown:
		return nil
	}
	return fmt.Errorf("%w: unknown output format %q (use table, csv or markdown)", util.ErrInvalidConfig, format)
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment, format string) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	switch format {
	case formatCSV:
		return tw.RenderCSV()
	case formatMarkdown:
		return tw.RenderMarkdown()
	}

	if util.StdoutIsTerminal() {
		tw.SetAllowedRowLength(util.TerminalWidth(0))
	}
	return tw.Render()
}

func printTable(w io.Writer, headers []string, rows [][]string, aligns []columnAlignment, format string) {
	fmt.Fprintln(w, renderTable(headers, rows, aligns, format))
}

func countRows(counts []store.ValueCount) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, vc := range counts {
		rows = append(rows, []string{vc.Value, humanize.Comma(int64(vc.Count))})
	}
	return rows
}
