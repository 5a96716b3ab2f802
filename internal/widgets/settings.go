package widgets

import (
	"strconv"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// settingsBag wraps a widget's free-form settings map with typed,
// default-tolerant accessors. Missing keys and wrong-typed values fall
// back to the provided default; the raw map is never modified.
type settingsBag map[string]interface{}

func bagOf(w *models.Widget) settingsBag {
	if w == nil || w.Config == nil || w.Config.Settings == nil {
		return settingsBag{}
	}
	return settingsBag(w.Config.Settings)
}

func (b settingsBag) str(key, def string) string {
	if v, ok := b[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func (b settingsBag) boolean(key string, def bool) bool {
	if v, ok := b[key]; ok {
		switch t := v.(type) {
		case bool:
			return t
		case string:
			if parsed, err := strconv.ParseBool(t); err == nil {
				return parsed
			}
		}
	}
	return def
}

func (b settingsBag) number(key string, def float64) float64 {
	if v, ok := b[key]; ok {
		switch t := v.(type) {
		case float64:
			return t
		case int:
			return float64(t)
		case int64:
			return float64(t)
		case string:
			if parsed, err := strconv.ParseFloat(t, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}

func (b settingsBag) integer(key string, def int) int {
	return int(b.number(key, float64(def)))
}

// anySlice returns a settings value as a generic slice, or nil.
func (b settingsBag) anySlice(key string) []interface{} {
	if v, ok := b[key]; ok {
		if s, ok := v.([]interface{}); ok {
			return s
		}
	}
	return nil
}

// anyMap returns a settings value as a generic map, or nil.
func (b settingsBag) anyMap(key string) map[string]interface{} {
	if v, ok := b[key]; ok {
		if m, ok := v.(map[string]interface{}); ok {
			return m
		}
	}
	return nil
}

// parseNumber converts a wire value string to a float. The second
// return reports whether the value was numeric at all.
func parseNumber(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// formatNumber renders a float with a fixed number of decimals, the way
// value widgets display telemetry.
func formatNumber(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// firstKeys flattens the widget's datasources into the ordered key list
// its snapshot entries are built from.
func firstKeys(w *models.Widget) []*models.DataKey {
	if w.Config == nil {
		return nil
	}
	var keys []*models.DataKey
	for _, ds := range w.Config.Datasources {
		keys = append(keys, ds.DataKeys...)
	}
	return keys
}

// firstDatasource returns the widget's first datasource, or nil. RPC
// widgets address their device through it.
func firstDatasource(w *models.Widget) *models.Datasource {
	if w.Config == nil || len(w.Config.Datasources) == 0 {
		return nil
	}
	return w.Config.Datasources[0]
}
