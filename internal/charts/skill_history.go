// Package charts renders the skill-over-time view of the rating history as
// an interactive HTML chart.
package charts

import (
	"fmt"
	"io"
	"sort"

	"atlantis-companion/internal/domain"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ChartConfig holds presentation options for the skill history chart.
type ChartConfig struct {
	Title      string
	Subtitle   string
	Width      string
	Height     string
	Theme      string
	ShowLegend bool
	Smooth     bool
}

// DefaultChartConfig returns the standard presentation.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Title:      "Skill over time",
		Subtitle:   "Display rating after each recorded match",
		Width:      "900px",
		Height:     "500px",
		Theme:      "light",
		ShowLegend: true,
		Smooth:     true,
	}
}

// RenderSkillHistory writes an HTML line chart of every player's display
// rating across the match history. Each player becomes one series; matches a
// player had not yet joined are left as gaps.
func RenderSkillHistory(snapshots []domain.RatingSnapshot, config ChartConfig, w io.Writer) error {
	line := charts.NewLine()

	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  config.Width,
			Height: config.Height,
			Theme:  config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    config.Title,
			Subtitle: config.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(config.ShowLegend),
		}),
	)

	playerIDs := make(map[string]bool)
	for _, snap := range snapshots {
		for id := range snap.Ratings {
			playerIDs[id] = true
		}
	}
	ordered := make([]string, 0, len(playerIDs))
	for id := range playerIDs {
		ordered = append(ordered, id)
	}
	sort.Strings(ordered)

	xLabels := make([]string, len(snapshots))
	for i, snap := range snapshots {
		xLabels[i] = fmt.Sprintf("#%d %s", snap.MatchNumber, snap.Date.Format("2006-01-02"))
	}

	line.SetXAxis(xLabels)
	for _, id := range ordered {
		series := make([]opts.LineData, len(snapshots))
		for i, snap := range snapshots {
			if r, ok := snap.Ratings[id]; ok {
				series[i] = opts.LineData{Value: r}
			} else {
				series[i] = opts.LineData{Value: nil}
			}
		}
		line.AddSeries(id, series)
	}
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{
			Smooth: opts.Bool(config.Smooth),
		}),
		charts.WithLabelOpts(opts.Label{
			Show: opts.Bool(false),
		}),
	)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
