package widgets

import (
	"github.com/marcuslam20/thingsboard-server-sub000/internal/registry"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// GaugeView is the payload of the analog gauge: the numeric value plus
// its display range.
type GaugeView struct {
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Units string  `json:"units,omitempty"`
	Label string  `json:"label,omitempty"`
}

type gaugeRenderer struct{}

func (gaugeRenderer) Render(w *models.Widget, snap *models.Snapshot) (*registry.RenderResult, error) {
	settings := bagOf(w)
	view := &GaugeView{
		Min:   settings.number("minValue", 0),
		Max:   settings.number("maxValue", 100),
		Units: settings.str("units", ""),
	}
	if snap != nil && len(snap.Entries) > 0 {
		entry := snap.Entries[0]
		view.Label = entry.Label
		if len(entry.Values) > 0 {
			if num, ok := parseNumber(entry.Values[0].Value); ok {
				view.Value = num
			}
		}
	}
	return &registry.RenderResult{Kind: "gauge", Payload: view}, nil
}

// Threshold colors the digital gauge once the value reaches Value.
// Thresholds are evaluated in declaration order; the last one reached
// wins.
type Threshold struct {
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// DigitalGaugeView is the payload of the circular progress gauge.
type DigitalGaugeView struct {
	Value      string  `json:"value"`
	Units      string  `json:"units,omitempty"`
	Label      string  `json:"label,omitempty"`
	Color      string  `json:"color"`
	Percentage float64 `json:"percentage"`
}

type digitalGaugeRenderer struct{}

func (digitalGaugeRenderer) Render(w *models.Widget, snap *models.Snapshot) (*registry.RenderResult, error) {
	settings := bagOf(w)
	minValue := settings.number("minValue", 0)
	maxValue := settings.number("maxValue", 100)
	decimals := settings.integer("decimals", 1)
	color := settings.str("defaultColor", "#305680")

	view := &DigitalGaugeView{Value: "--", Units: settings.str("units", ""), Color: color}
	if snap == nil || len(snap.Entries) == 0 {
		return &registry.RenderResult{Kind: "digital_gauge", Payload: view}, nil
	}

	entry := snap.Entries[0]
	view.Label = entry.Label
	latest, ok := snap.Latest(entry.Key)
	if !ok {
		return &registry.RenderResult{Kind: "digital_gauge", Payload: view}, nil
	}
	num, numeric := parseNumber(latest.Value)
	if !numeric {
		return &registry.RenderResult{Kind: "digital_gauge", Payload: view}, nil
	}

	view.Value = formatNumber(num, decimals)
	if maxValue != minValue {
		pct := (num - minValue) / (maxValue - minValue) * 100
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		view.Percentage = pct
	}
	for _, raw := range settings.anySlice("thresholds") {
		t, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		tb := settingsBag(t)
		if num >= tb.number("value", 0) {
			if c := tb.str("color", ""); c != "" {
				view.Color = c
			}
		}
	}
	return &registry.RenderResult{Kind: "digital_gauge", Payload: view}, nil
}
