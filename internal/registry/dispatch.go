package registry

import (
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// Resolution records how a widget was matched to a definition, for
// diagnostics and for the placeholder payload when nothing matched.
type Resolution struct {
	// Tier is "settings", "fqn", "category" or "placeholder".
	Tier string `json:"tier"`
	// AttemptedType is the settings.widgetType value, if any.
	AttemptedType string `json:"attemptedType,omitempty"`
	// AttemptedFqn is the widget's typeFullFqn, if any.
	AttemptedFqn string `json:"attemptedFqn,omitempty"`
	// MatchedType is the registry key that was used.
	MatchedType string `json:"matchedType,omitempty"`
}

// categoryFallbacks maps a widget category to the representative type
// used when neither the settings key nor the fqn resolves.
var categoryFallbacks = map[models.WidgetCategory]string{
	models.CategoryLatest:     "value_card",
	models.CategoryTimeseries: "timeseries_chart",
	models.CategoryAlarm:      "alarm_table",
	models.CategoryRPC:        "rpc_button",
	models.CategoryStatic:     "label",
}

// SetPlaceholder installs the definition returned when no tier matches.
// Resolve never fails once a placeholder is present.
func (r *Registry) SetPlaceholder(def *Definition) {
	r.mu.Lock()
	r.placeholder = def
	r.mu.Unlock()
}

// Resolve maps a widget to its definition. Matching is attempted in
// order: the widget's settings.widgetType key, then its typeFullFqn,
// then a representative type for its declared category. When all three
// miss, the placeholder definition is returned with a resolution that
// carries both attempted identifiers. Resolve never returns nil while a
// placeholder is installed.
func (r *Registry) Resolve(widget *models.Widget) (*Definition, Resolution) {
	res := Resolution{AttemptedFqn: widget.TypeFullFqn}

	if widget.Config != nil && widget.Config.Settings != nil {
		if raw, ok := widget.Config.Settings["widgetType"]; ok {
			if typeKey, ok := raw.(string); ok && typeKey != "" {
				res.AttemptedType = typeKey
				if def, found := r.Lookup(typeKey); found {
					res.Tier = "settings"
					res.MatchedType = typeKey
					return def, res
				}
			}
		}
	}

	if widget.TypeFullFqn != "" {
		if def, found := r.Lookup(widget.TypeFullFqn); found {
			res.Tier = "fqn"
			res.MatchedType = widget.TypeFullFqn
			return def, res
		}
	}

	if fallback, ok := categoryFallbacks[widget.Type]; ok {
		if def, found := r.Lookup(fallback); found {
			res.Tier = "category"
			res.MatchedType = fallback
			return def, res
		}
	}

	res.Tier = "placeholder"
	r.mu.RLock()
	def := r.placeholder
	r.mu.RUnlock()
	return def, res
}
