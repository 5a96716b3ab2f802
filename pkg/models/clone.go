package models

import (
	"bytes"
	"encoding/json"
)

// Clone returns a deep copy of the dashboard. Transitions clone before
// mutating so the baseline snapshot is never aliased by the working copy.
func (d *Dashboard) Clone() *Dashboard {
	if d == nil {
		return nil
	}
	out := &Dashboard{ID: d.ID, Title: d.Title}
	if d.Configuration != nil {
		out.Configuration = d.Configuration.clone()
	}
	return out
}

func (c *Configuration) clone() *Configuration {
	out := &Configuration{Description: c.Description}
	if c.Settings != nil {
		s := *c.Settings
		out.Settings = &s
	}
	if c.Widgets != nil {
		out.Widgets = make(map[string]*Widget, len(c.Widgets))
		for id, w := range c.Widgets {
			out.Widgets[id] = w.Clone()
		}
	}
	if c.States != nil {
		out.States = make(map[string]*State, len(c.States))
		for id, st := range c.States {
			out.States[id] = st.clone()
		}
	}
	if c.EntityAliases != nil {
		out.EntityAliases = make(map[string]*EntityAlias, len(c.EntityAliases))
		for id, a := range c.EntityAliases {
			out.EntityAliases[id] = a.clone()
		}
	}
	if c.Timewindow != nil {
		out.Timewindow = c.Timewindow.clone()
	}
	return out
}

func (s *State) clone() *State {
	out := &State{Name: s.Name, Root: s.Root}
	if s.Layouts != nil {
		out.Layouts = make(map[string]*Layout, len(s.Layouts))
		for id, l := range s.Layouts {
			out.Layouts[id] = l.clone()
		}
	}
	return out
}

func (l *Layout) clone() *Layout {
	out := &Layout{}
	if l.GridSettings != nil {
		gs := *l.GridSettings
		out.GridSettings = &gs
	}
	if l.Widgets != nil {
		out.Widgets = make(map[string]*WidgetLayout, len(l.Widgets))
		for id, wl := range l.Widgets {
			c := *wl
			out.Widgets[id] = &c
		}
	}
	return out
}

func (a *EntityAlias) clone() *EntityAlias {
	out := &EntityAlias{ID: a.ID, Alias: a.Alias}
	if a.Filter != nil {
		f := *a.Filter
		f.EntityList = append([]string(nil), a.Filter.EntityList...)
		f.Extra = copyAnyMap(a.Filter.Extra)
		out.Filter = &f
	}
	return out
}

func (tw *Timewindow) clone() *Timewindow {
	out := &Timewindow{}
	if tw.Realtime != nil {
		r := *tw.Realtime
		out.Realtime = &r
	}
	if tw.History != nil {
		h := *tw.History
		if tw.History.FixedTimewindow != nil {
			fw := *tw.History.FixedTimewindow
			h.FixedTimewindow = &fw
		}
		out.History = &h
	}
	return out
}

// Clone returns a deep copy of the widget, including the settings bag.
func (w *Widget) Clone() *Widget {
	if w == nil {
		return nil
	}
	out := *w
	if w.Config != nil {
		cfg := *w.Config
		cfg.Settings = copyAnyMap(w.Config.Settings)
		if w.Config.Timewindow != nil {
			cfg.Timewindow = w.Config.Timewindow.clone()
		}
		if w.Config.Datasources != nil {
			cfg.Datasources = make([]*Datasource, len(w.Config.Datasources))
			for i, ds := range w.Config.Datasources {
				cfg.Datasources[i] = ds.clone()
			}
		}
		out.Config = &cfg
	}
	return &out
}

func (d *Datasource) clone() *Datasource {
	out := *d
	if d.DataKeys != nil {
		out.DataKeys = make([]*DataKey, len(d.DataKeys))
		for i, k := range d.DataKeys {
			c := *k
			if k.Decimals != nil {
				dec := *k.Decimals
				c.Decimals = &dec
			}
			out.DataKeys[i] = &c
		}
	}
	return &out
}

// copyAnyMap deep-copies a decoded-JSON value tree. Settings bags only
// ever hold JSON-shaped values, so maps, slices and scalars cover it.
func copyAnyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyAnyValue(v)
	}
	return out
}

func copyAnyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyAnyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyAnyValue(e)
		}
		return out
	default:
		return v
	}
}

// Equal reports structural equality of two dashboards. Documents are
// JSON-shaped, so canonical JSON (map keys sorted by encoding/json) is a
// faithful comparison independent of map iteration order.
func Equal(a, b *Dashboard) bool {
	if a == nil || b == nil {
		return a == b
	}
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
