package presenter

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"detectboard/internal/model"
)

// RenderBarChart writes an HTML bar chart of detection counts keyed by
// label, in summary order.
func RenderBarChart(w io.Writer, title string, summaries []model.ClassSummary) error {
	labels := make([]string, 0, len(summaries))
	counts := make([]opts.BarData, 0, len(summaries))
	for _, s := range summaries {
		labels = append(labels, s.Label)
		counts = append(counts, opts.BarData{Name: s.Label, Value: s.Count})
	}

	subtitle := ""
	if len(summaries) == 0 {
		subtitle = NoDetectionsMessage
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "label"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count", MinInterval: 1}),
	)
	bar.SetXAxis(labels).
		AddSeries("detections", counts,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	return bar.Render(w)
}
