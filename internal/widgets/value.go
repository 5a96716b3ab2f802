package widgets

import (
	"github.com/marcuslam20/thingsboard-server-sub000/internal/registry"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// ValueCardView is the rendered payload of a value card: one formatted
// value plus its label and units.
type ValueCardView struct {
	Value string `json:"value"`
	Units string `json:"units,omitempty"`
	Label string `json:"label,omitempty"`
	Color string `json:"color,omitempty"`
}

type valueCardRenderer struct{}

func (valueCardRenderer) Render(w *models.Widget, snap *models.Snapshot) (*registry.RenderResult, error) {
	settings := bagOf(w)
	units := settings.str("units", "")
	decimals := settings.integer("decimals", 1)

	view := &ValueCardView{Value: "--", Units: units}
	if w.Config != nil {
		view.Color = w.Config.Color
	}
	if snap != nil && len(snap.Entries) > 0 {
		entry := snap.Entries[0]
		view.Label = entry.Label
		if len(entry.Values) > 0 {
			raw := entry.Values[0].Value
			if num, ok := parseNumber(raw); ok {
				view.Value = formatNumber(num, decimals)
			} else {
				view.Value = raw
			}
		}
	}
	return &registry.RenderResult{Kind: "value_card", Payload: view}, nil
}

// StatusView reports a binary device state derived from the latest value
// of the first entry.
type StatusView struct {
	Label  string `json:"label,omitempty"`
	Text   string `json:"text"`
	Color  string `json:"color"`
	Active bool   `json:"active"`
}

type statusRenderer struct{}

func (statusRenderer) Render(w *models.Widget, snap *models.Snapshot) (*registry.RenderResult, error) {
	settings := bagOf(w)
	activeValue := settings.str("activeValue", "true")
	activeText := settings.str("activeText", "Online")
	inactiveText := settings.str("inactiveText", "Offline")
	activeColor := settings.str("activeColor", "#4caf50")
	inactiveColor := settings.str("inactiveColor", "#f44336")

	view := &StatusView{Text: inactiveText, Color: inactiveColor}
	if snap != nil && len(snap.Entries) > 0 {
		entry := snap.Entries[0]
		view.Label = entry.Label
		if latest, ok := snap.Latest(entry.Key); ok && latest.Value == activeValue {
			view.Active = true
			view.Text = activeText
			view.Color = activeColor
		}
	}
	return &registry.RenderResult{Kind: "status", Payload: view}, nil
}
