package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// TimelineChart renders an HTML line chart of exposed timestamp (left axis)
// and frame index (right axis) per step.
func TimelineChart(w io.Writer, samples []Sample) error {
	steps := make([]uint64, 0, len(samples))
	timestamps := make([]opts.LineData, 0, len(samples))
	frames := make([]opts.LineData, 0, len(samples))
	reversals := 0
	for i, s := range samples {
		steps = append(steps, s.Seq)
		timestamps = append(timestamps, opts.LineData{Value: s.Timestamp})
		frames = append(frames, opts.LineData{Value: s.FrameIndex})
		if i > 0 && s.Forward != samples[i-1].Forward {
			reversals++
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Playback Timeline", Theme: "dark", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Playback Timeline", Subtitle: fmt.Sprintf("steps=%d reversals=%d", len(samples), reversals)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Step", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Timestamp (s)"}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "Frame", Position: "right"})

	line.SetXAxis(steps).
		AddSeries("timestamp", timestamps).
		AddSeries("frame", frames, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1, Step: "end"}))

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render timeline chart: %w", err)
	}
	return nil
}
