package widgets

import (
	"sort"

	"github.com/marcuslam20/thingsboard-server-sub000/internal/registry"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

var defaultSeriesColors = []string{
	"#5470c6", "#91cc75", "#fac858", "#ee6666",
	"#73c0de", "#3ba272", "#fc8452", "#9a60b4",
}

// SeriesPoint is one [ts, value] chart point.
type SeriesPoint struct {
	Ts    int64   `json:"ts"`
	Value float64 `json:"value"`
}

// Series is one plotted line or bar group.
type Series struct {
	Name   string        `json:"name"`
	Color  string        `json:"color"`
	Points []SeriesPoint `json:"points"`
}

// ChartView is the payload shared by the line and bar charts.
type ChartView struct {
	Series []Series `json:"series"`
}

// buildSeries converts snapshot entries into plot series, sorted by
// timestamp ascending. Non-numeric values plot as zero.
func buildSeries(snap *models.Snapshot) []Series {
	if snap == nil {
		return nil
	}
	out := make([]Series, 0, len(snap.Entries))
	for i, entry := range snap.Entries {
		s := Series{
			Name:  entry.Label,
			Color: defaultSeriesColors[i%len(defaultSeriesColors)],
		}
		points := make([]SeriesPoint, 0, len(entry.Values))
		for _, v := range entry.Values {
			num, _ := parseNumber(v.Value)
			points = append(points, SeriesPoint{Ts: v.Ts, Value: num})
		}
		sort.Slice(points, func(a, b int) bool { return points[a].Ts < points[b].Ts })
		s.Points = points
		out = append(out, s)
	}
	return out
}

type timeseriesChartRenderer struct{}

func (timeseriesChartRenderer) Render(_ *models.Widget, snap *models.Snapshot) (*registry.RenderResult, error) {
	return &registry.RenderResult{Kind: "timeseries_chart", Payload: &ChartView{Series: buildSeries(snap)}}, nil
}

type barChartRenderer struct{}

func (barChartRenderer) Render(_ *models.Widget, snap *models.Snapshot) (*registry.RenderResult, error) {
	return &registry.RenderResult{Kind: "bar_chart", Payload: &ChartView{Series: buildSeries(snap)}}, nil
}

// PieSlice is one labeled share of the pie.
type PieSlice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// PieChartView is the payload of the pie chart, built from each entry's
// latest value.
type PieChartView struct {
	Slices     []PieSlice `json:"slices"`
	ShowLabels bool       `json:"showLabels"`
	ShowLegend bool       `json:"showLegend"`
	RoseType   string     `json:"roseType,omitempty"`
}

type pieChartRenderer struct{}

func (pieChartRenderer) Render(w *models.Widget, snap *models.Snapshot) (*registry.RenderResult, error) {
	settings := bagOf(w)
	view := &PieChartView{
		ShowLabels: settings.boolean("showLabels", true),
		ShowLegend: settings.boolean("showLegend", true),
		RoseType:   settings.str("roseType", ""),
	}
	if snap != nil {
		for _, entry := range snap.Entries {
			slice := PieSlice{Name: entry.Label}
			if latest, ok := snap.Latest(entry.Key); ok {
				slice.Value, _ = parseNumber(latest.Value)
			}
			view.Slices = append(view.Slices, slice)
		}
	}
	return &registry.RenderResult{Kind: "pie_chart", Payload: view}, nil
}
