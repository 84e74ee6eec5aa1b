package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/reachgrasp.report/internal/motion"
)

// RenderChart writes an interactive HTML page with the same three panels
// as RenderPlot, for browsing a trial in a web browser.
func RenderChart(w io.Writer, trial motion.Trial, frames motion.Frames) error {
	xs := make([]string, len(frames))
	for i, f := range frames {
		xs[i] = fmt.Sprintf("%.3f", f.Timestamp-trial.Start)
	}

	page := components.NewPage()
	page.PageTitle = trial.Name
	for _, pn := range panels {
		data := make([]opts.LineData, len(frames))
		for i, f := range frames {
			data[i] = opts.LineData{Value: pn.value(f)}
		}
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px"}),
			charts.WithTitleOpts(opts.Title{
				Title:    pn.label,
				Subtitle: fmt.Sprintf("%s: %.3f s", LabelTone, trial.Tone-trial.Start),
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithXAxisOpts(opts.XAxis{Name: LabelTime, NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Name: pn.label, NameLocation: "middle", NameGap: 50}),
		)
		line.SetXAxis(xs).AddSeries(pn.label, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
		page.AddCharts(line)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
