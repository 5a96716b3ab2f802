package widgets

import (
	"github.com/sirupsen/logrus"

	"github.com/marcuslam20/thingsboard-server-sub000/internal/registry"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// Builtins returns every built-in widget definition.
func Builtins() []*registry.Definition {
	return []*registry.Definition{
		{
			Type:         "value_card",
			Category:     models.CategoryLatest,
			Label:        "Value Card",
			Description:  "Display a single telemetry value",
			DefaultSizeX: 4,
			DefaultSizeY: 3,
			Renderer:     valueCardRenderer{},
		},
		{
			Type:         "label",
			Category:     models.CategoryStatic,
			Label:        "Label",
			Description:  "Static text or HTML content",
			DefaultSizeX: 4,
			DefaultSizeY: 2,
			Renderer:     labelRenderer{},
		},
		{
			Type:         "simple_table",
			Category:     models.CategoryLatest,
			Label:        "Simple Table",
			Description:  "Key-value table of latest values",
			DefaultSizeX: 6,
			DefaultSizeY: 4,
			Renderer:     simpleTableRenderer{},
		},
		{
			Type:         "timeseries_chart",
			Category:     models.CategoryTimeseries,
			Label:        "Line Chart",
			Description:  "Time-series line chart",
			DefaultSizeX: 8,
			DefaultSizeY: 5,
			Renderer:     timeseriesChartRenderer{},
		},
		{
			Type:         "bar_chart",
			Category:     models.CategoryTimeseries,
			Label:        "Bar Chart",
			Description:  "Time-series bar chart",
			DefaultSizeX: 8,
			DefaultSizeY: 5,
			Renderer:     barChartRenderer{},
		},
		{
			Type:         "gauge",
			Category:     models.CategoryLatest,
			Label:        "Gauge",
			Description:  "Circular gauge for a single value",
			DefaultSizeX: 5,
			DefaultSizeY: 5,
			Renderer:     gaugeRenderer{},
		},
		{
			Type:         "alarm_table",
			Category:     models.CategoryAlarm,
			Label:        "Alarm Table",
			Description:  "Table of system alarms",
			DefaultSizeX: 8,
			DefaultSizeY: 5,
			Renderer:     alarmTableRenderer{},
		},
		{
			Type:         "rpc_button",
			Category:     models.CategoryRPC,
			Label:        "RPC Button",
			Description:  "Send RPC commands to a device",
			DefaultSizeX: 4,
			DefaultSizeY: 3,
			Renderer:     rpcButtonRenderer{},
		},
		{
			Type:         "pie_chart",
			Category:     models.CategoryLatest,
			Label:        "Pie Chart",
			Description:  "Pie/doughnut chart of latest values",
			DefaultSizeX: 6,
			DefaultSizeY: 5,
			Renderer:     pieChartRenderer{},
		},
		{
			Type:         "digital_gauge",
			Category:     models.CategoryLatest,
			Label:        "Digital Gauge",
			Description:  "Circular digital gauge with thresholds",
			DefaultSizeX: 4,
			DefaultSizeY: 4,
			Renderer:     digitalGaugeRenderer{},
		},
		{
			Type:         "map",
			Category:     models.CategoryLatest,
			Label:        "Map",
			Description:  "OpenStreetMap with device markers",
			DefaultSizeX: 8,
			DefaultSizeY: 6,
			Renderer:     mapRenderer{},
		},
		{
			Type:         "markdown",
			Category:     models.CategoryStatic,
			Label:        "Markdown / HTML",
			Description:  "Render markdown or HTML content",
			DefaultSizeX: 6,
			DefaultSizeY: 4,
			Renderer:     markdownRenderer{},
		},
		{
			Type:         "status",
			Category:     models.CategoryLatest,
			Label:        "Status Indicator",
			Description:  "Online/offline status indicator",
			DefaultSizeX: 3,
			DefaultSizeY: 3,
			Renderer:     statusRenderer{},
		},
		{
			Type:         "toggle",
			Category:     models.CategoryRPC,
			Label:        "Toggle Switch",
			Description:  "Toggle switch with RPC command",
			DefaultSizeX: 3,
			DefaultSizeY: 3,
			Renderer:     toggleRenderer{},
		},
		{
			Type:         "slider",
			Category:     models.CategoryRPC,
			Label:        "Slider Control",
			Description:  "Slider with RPC command",
			DefaultSizeX: 5,
			DefaultSizeY: 3,
			Renderer:     sliderRenderer{},
		},
	}
}

// NewBuiltinRegistry builds a sealed registry holding every built-in
// type plus the placeholder fallback.
func NewBuiltinRegistry(logger *logrus.Logger) (*registry.Registry, error) {
	reg := registry.New(logger)
	for _, def := range Builtins() {
		if err := reg.Register(def); err != nil {
			return nil, err
		}
	}
	reg.SetPlaceholder(&registry.Definition{
		Type:         "placeholder",
		Category:     models.CategoryStatic,
		Label:        "Unknown Widget",
		Description:  "Fallback for unresolvable widget types",
		DefaultSizeX: models.DefaultWidgetSizeX,
		DefaultSizeY: models.DefaultWidgetSizeY,
		Renderer:     placeholderRenderer{},
	})
	reg.Seal()
	return reg, nil
}
