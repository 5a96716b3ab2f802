package widgets

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

func widgetWith(settings map[string]interface{}) *models.Widget {
	return &models.Widget{
		ID:   "w1",
		Type: models.CategoryLatest,
		Config: &models.WidgetConfig{
			Settings: settings,
			Datasources: []*models.Datasource{{
				Type:     "device",
				DeviceID: "device-1",
				DataKeys: []*models.DataKey{{Name: "temperature", Label: "Temperature"}},
			}},
		},
	}
}

func snapshotWith(values ...models.TsValue) *models.Snapshot {
	return &models.Snapshot{
		Entries: []models.DataEntry{{
			Key:    "temperature",
			Label:  "Temperature",
			Values: values,
		}},
	}
}

func TestValueCardFormatsWithDecimals(t *testing.T) {
	w := widgetWith(map[string]interface{}{"units": "°C", "decimals": 2})
	snap := snapshotWith(models.TsValue{Ts: 1000, Value: "23.4567"})

	result, err := valueCardRenderer{}.Render(w, snap)
	require.NoError(t, err)

	view := result.Payload.(*ValueCardView)
	assert.Equal(t, "23.46", view.Value)
	assert.Equal(t, "°C", view.Units)
	assert.Equal(t, "Temperature", view.Label)
}

func TestValueCardNonNumericPassthrough(t *testing.T) {
	w := widgetWith(nil)
	snap := snapshotWith(models.TsValue{Ts: 1000, Value: "running"})

	result, err := valueCardRenderer{}.Render(w, snap)
	require.NoError(t, err)
	assert.Equal(t, "running", result.Payload.(*ValueCardView).Value)
}

func TestValueCardEmptySnapshot(t *testing.T) {
	result, err := valueCardRenderer{}.Render(widgetWith(nil), &models.Snapshot{})
	require.NoError(t, err)
	assert.Equal(t, "--", result.Payload.(*ValueCardView).Value)
}

func TestStatusMatchesActiveValue(t *testing.T) {
	w := widgetWith(map[string]interface{}{"activeText": "Running", "inactiveText": "Stopped"})

	result, err := statusRenderer{}.Render(w, snapshotWith(
		models.TsValue{Ts: 1000, Value: "false"},
		models.TsValue{Ts: 2000, Value: "true"},
	))
	require.NoError(t, err)

	view := result.Payload.(*StatusView)
	assert.True(t, view.Active)
	assert.Equal(t, "Running", view.Text)
	assert.Equal(t, "#4caf50", view.Color)
}

func TestStatusInactiveByDefault(t *testing.T) {
	result, err := statusRenderer{}.Render(widgetWith(nil), &models.Snapshot{})
	require.NoError(t, err)

	view := result.Payload.(*StatusView)
	assert.False(t, view.Active)
	assert.Equal(t, "Offline", view.Text)
	assert.Equal(t, "#f44336", view.Color)
}

func TestDigitalGaugePercentageAndThresholds(t *testing.T) {
	w := widgetWith(map[string]interface{}{
		"minValue": float64(0),
		"maxValue": float64(200),
		"thresholds": []interface{}{
			map[string]interface{}{"value": float64(50), "color": "#ffa500"},
			map[string]interface{}{"value": float64(100), "color": "#ff0000"},
		},
	})
	snap := snapshotWith(models.TsValue{Ts: 1000, Value: "150"})

	result, err := digitalGaugeRenderer{}.Render(w, snap)
	require.NoError(t, err)

	view := result.Payload.(*DigitalGaugeView)
	assert.Equal(t, "150.0", view.Value)
	assert.Equal(t, 75.0, view.Percentage)
	// Both thresholds reached; the last one wins.
	assert.Equal(t, "#ff0000", view.Color)
}

func TestDigitalGaugeClampsPercentage(t *testing.T) {
	w := widgetWith(nil)
	result, err := digitalGaugeRenderer{}.Render(w, snapshotWith(models.TsValue{Ts: 1000, Value: "250"}))
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.Payload.(*DigitalGaugeView).Percentage)
}

func TestBuildSeriesSortsAscending(t *testing.T) {
	snap := snapshotWith(
		models.TsValue{Ts: 3000, Value: "3"},
		models.TsValue{Ts: 1000, Value: "1"},
		models.TsValue{Ts: 2000, Value: "oops"},
	)

	series := buildSeries(snap)
	require.Len(t, series, 1)
	require.Len(t, series[0].Points, 3)
	assert.Equal(t, int64(1000), series[0].Points[0].Ts)
	assert.Equal(t, int64(2000), series[0].Points[1].Ts)
	// Non-numeric values plot as zero.
	assert.Equal(t, 0.0, series[0].Points[1].Value)
	assert.Equal(t, int64(3000), series[0].Points[2].Ts)
}

func TestPieChartUsesLatestValues(t *testing.T) {
	w := widgetWith(nil)
	snap := &models.Snapshot{Entries: []models.DataEntry{
		{Key: "a", Label: "A", Values: []models.TsValue{{Ts: 1, Value: "10"}, {Ts: 2, Value: "30"}}},
		{Key: "b", Label: "B", Values: []models.TsValue{{Ts: 1, Value: "70"}}},
	}}

	result, err := pieChartRenderer{}.Render(w, snap)
	require.NoError(t, err)

	view := result.Payload.(*PieChartView)
	require.Len(t, view.Slices, 2)
	assert.Equal(t, 30.0, view.Slices[0].Value)
	assert.Equal(t, 70.0, view.Slices[1].Value)
	assert.True(t, view.ShowLabels)
	assert.True(t, view.ShowLegend)
}

func TestToggleCheckedValues(t *testing.T) {
	for _, tc := range []struct {
		value   string
		checked bool
	}{
		{"true", true},
		{"1", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"off", false},
	} {
		result, err := toggleRenderer{}.Render(widgetWith(nil), snapshotWith(models.TsValue{Ts: 1000, Value: tc.value}))
		require.NoError(t, err)
		assert.Equal(t, tc.checked, result.Payload.(*ToggleView).Checked, "value %q", tc.value)
	}
}

func TestToggleKeyFallsBackToFirstDataKey(t *testing.T) {
	result, err := toggleRenderer{}.Render(widgetWith(nil), nil)
	require.NoError(t, err)

	view := result.Payload.(*ToggleView)
	assert.Equal(t, "temperature", view.Key)
	assert.Equal(t, "setValue", view.Method)
	assert.Equal(t, "device-1", view.DeviceID)
}

func TestSliderTracksLatestNumeric(t *testing.T) {
	w := widgetWith(map[string]interface{}{"rpcKey": "speed"})
	result, err := sliderRenderer{}.Render(w, snapshotWith(
		models.TsValue{Ts: 1000, Value: "10"},
		models.TsValue{Ts: 2000, Value: "42.5"},
	))
	require.NoError(t, err)

	view := result.Payload.(*SliderView)
	assert.Equal(t, 42.5, view.Value)
	assert.Equal(t, 0.0, view.Min)
	assert.Equal(t, 100.0, view.Max)
	assert.Equal(t, "speed", view.Key)
}

func TestLabelDefaults(t *testing.T) {
	result, err := labelRenderer{}.Render(&models.Widget{ID: "w1"}, nil)
	require.NoError(t, err)

	view := result.Payload.(*LabelView)
	assert.Equal(t, "Label", view.Text)
	assert.Equal(t, 16, view.FontSize)
	assert.Equal(t, "center", view.TextAlign)
	assert.Empty(t, view.HTML)
}

func TestMarkdownConversion(t *testing.T) {
	w := widgetWith(map[string]interface{}{
		"markdownText": "# Title\n\nSome **bold** and *italic* text with `code`.\n- one\n- two",
	})

	result, err := markdownRenderer{}.Render(w, nil)
	require.NoError(t, err)

	html := result.Payload.(*MarkdownView).HTML
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.Contains(t, html, "<em>italic</em>")
	assert.Contains(t, html, "<code>code</code>")
	assert.Contains(t, html, "<li>one</li>")
	assert.Contains(t, html, "<ul>")
}

func TestMarkdownSanitizesScripts(t *testing.T) {
	w := widgetWith(map[string]interface{}{
		"markdownText": `Hello <script>alert("x")</script> world`,
	})

	result, err := markdownRenderer{}.Render(w, nil)
	require.NoError(t, err)

	html := result.Payload.(*MarkdownView).HTML
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "Hello")
}

func TestMapReadsCoordinates(t *testing.T) {
	w := widgetWith(map[string]interface{}{
		"latitudeKey":  "latitude",
		"longitudeKey": "longitude",
	})
	snap := &models.Snapshot{Entries: []models.DataEntry{
		{Key: "latitude", Label: "latitude", Values: []models.TsValue{{Ts: 1, Value: "52.52"}}},
		{Key: "longitude", Label: "longitude", Values: []models.TsValue{{Ts: 1, Value: "13.405"}}},
	}}

	result, err := mapRenderer{}.Render(w, snap)
	require.NoError(t, err)

	view := result.Payload.(*MapView)
	require.Len(t, view.Markers, 1)
	assert.Equal(t, 52.52, view.Markers[0].Lat)
	assert.Equal(t, 13.405, view.Markers[0].Lng)
	assert.Equal(t, [2]float64{52.52, 13.405}, view.Center)
	assert.Equal(t, 10.0, view.ZoomLevel)
}

func TestAlarmTableDefaults(t *testing.T) {
	result, err := alarmTableRenderer{}.Render(widgetWith(nil), &models.Snapshot{})
	require.NoError(t, err)

	view := result.Payload.(*AlarmTableView)
	assert.Equal(t, 10, view.PageSize)
	assert.Equal(t, "createdTime", view.SortProperty)
	assert.Equal(t, "DESC", view.SortOrder)
}

func TestBuiltinRegistryHasAllTypes(t *testing.T) {
	reg, err := NewBuiltinRegistry(logrus.New())
	require.NoError(t, err)

	expected := []string{
		"alarm_table", "bar_chart", "digital_gauge", "gauge", "label",
		"map", "markdown", "pie_chart", "rpc_button", "simple_table",
		"slider", "status", "timeseries_chart", "toggle", "value_card",
	}
	all := reg.All()
	require.Len(t, all, len(expected))
	for i, def := range all {
		assert.Equal(t, expected[i], def.Type)
		assert.NotNil(t, def.Renderer)
		assert.Positive(t, def.DefaultSizeX)
		assert.Positive(t, def.DefaultSizeY)
	}

	// The registry is sealed after construction.
	assert.Error(t, reg.Register(all[0]))
}

func TestBuiltinRegistryUnknownTypeGetsPlaceholder(t *testing.T) {
	reg, err := NewBuiltinRegistry(logrus.New())
	require.NoError(t, err)

	w := &models.Widget{
		ID:          "w1",
		Title:       "Mystery",
		TypeFullFqn: "vendor.mystery",
		Config: &models.WidgetConfig{
			Settings: map[string]interface{}{"widgetType": "mystery"},
		},
	}
	d, res := reg.Resolve(w)
	require.NotNil(t, d)
	assert.Equal(t, "placeholder", res.Tier)

	result, err := d.Renderer.Render(w, nil)
	require.NoError(t, err)

	view := result.Payload.(*PlaceholderView)
	assert.Equal(t, "w1", view.WidgetID)
	assert.Equal(t, "mystery", view.AttemptedType)
	assert.Equal(t, "vendor.mystery", view.AttemptedFqn)
	assert.Equal(t, "unknown widget type", view.Message)
}
