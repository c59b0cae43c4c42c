package presenter

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"detectboard/internal/model"
	"detectboard/internal/service/summary"
)

// RenderTable writes the summaries as a text table, or the no-detections
// line when there are none.
func RenderTable(w io.Writer, summaries []model.ClassSummary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, NoDetectionsMessage)
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Label", "Count", "Mean confidence"})
	for _, row := range Rows(summaries) {
		t.AppendRow(table.Row{row.Label, row.Count, row.MeanConfidence})
	}
	t.AppendFooter(table.Row{"Total", summary.Total(summaries), ""})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
