package tracker

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Plot renders each of keys as a line of a single HTML line chart. The
// x axis is the union of the steps of all series; a series has gaps at
// steps where it has no value.
func Plot(w io.Writer, title string, r Reader, keys ...Key) error {
	series := make([][]Point, len(keys))
	stepSet := make(map[int]bool)
	for i, key := range keys {
		points, err := r.Series(key.Agent, key.Metric)
		if err != nil {
			return fmt.Errorf("plot: %w", err)
		}
		series[i] = points
		for _, p := range points {
			stepSet[p.Step] = true
		}
	}

	steps := make([]int, 0, len(stepSet))
	for step := range stepSet {
		steps = append(steps, step)
	}
	sort.Ints(steps)

	xAxis := make([]string, len(steps))
	position := make(map[int]int, len(steps))
	for i, step := range steps {
		xAxis[i] = strconv.Itoa(step)
		position[step] = i
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)
	line.SetXAxis(xAxis)

	for i, key := range keys {
		items := make([]opts.LineData, len(steps))
		for j := range items {
			items[j] = opts.LineData{Value: "-"}
		}
		// Later values at the same step replace earlier ones
		for _, p := range series[i] {
			items[position[p.Step]] = opts.LineData{Value: p.Value}
		}
		line.AddSeries(key.String(), items)
	}

	page := components.NewPage()
	page.AddCharts(line)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	return nil
}
