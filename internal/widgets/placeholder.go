package widgets

import (
	"github.com/marcuslam20/thingsboard-server-sub000/internal/registry"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// PlaceholderView is rendered when no registered type matches a widget.
// It names every identifier that was tried so the misconfiguration is
// visible on the dashboard instead of failing the whole render.
type PlaceholderView struct {
	WidgetID      string `json:"widgetId"`
	Title         string `json:"title,omitempty"`
	AttemptedType string `json:"attemptedType,omitempty"`
	AttemptedFqn  string `json:"attemptedFqn,omitempty"`
	Message       string `json:"message"`
}

type placeholderRenderer struct{}

func (placeholderRenderer) Render(w *models.Widget, _ *models.Snapshot) (*registry.RenderResult, error) {
	settings := bagOf(w)
	return &registry.RenderResult{
		Kind: "placeholder",
		Payload: &PlaceholderView{
			WidgetID:      w.ID,
			Title:         w.Title,
			AttemptedType: settings.str("widgetType", ""),
			AttemptedFqn:  w.TypeFullFqn,
			Message:       "unknown widget type",
		},
	}, nil
}
