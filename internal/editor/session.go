package editor

import (
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// Session is one dashboard editing session. Document is the working copy,
// Baseline the last loaded or saved snapshot and the revert target. Dirty
// is true iff a content-mutating transition ran since the baseline was
// taken. Sessions are values; Apply never mutates its input.
type Session struct {
	Document         *models.Dashboard
	Baseline         *models.Dashboard
	Editing          bool
	Dirty            bool
	SelectedWidgetID string
	SaveInFlight     bool
}

// NewSession returns an empty viewing-mode session with no document.
func NewSession() Session {
	return Session{}
}

// Action is one state-machine transition input. The set is closed: every
// implementation lives in this package.
type Action interface {
	isAction()
}

// Load replaces both the working copy and the baseline, clearing the dirty
// flag and selection. Valid in any mode.
type Load struct {
	Document *models.Dashboard
}

// EnterEdit switches to editing mode without touching the document.
type EnterEdit struct{}

// ExitEdit leaves editing mode and discards unsaved changes by restoring
// the baseline. This is the only transition that silently drops edits.
type ExitEdit struct{}

// AddWidget inserts a widget into the document and its geometry into the
// active layout.
type AddWidget struct {
	Widget *models.Widget
}

// RemoveWidget deletes a widget and strips its geometry from every layout
// of every state. Clears the selection if it pointed at the removed widget.
type RemoveWidget struct {
	WidgetID string
}

// ConfigPatch is a shallow partial of WidgetConfig. Nil fields are left
// untouched; set fields replace the existing value wholesale.
type ConfigPatch struct {
	Title           *string
	ShowTitle       *bool
	BackgroundColor *string
	Color           *string
	Settings        map[string]interface{}
	Datasources     []*models.Datasource
	Timewindow      *models.Timewindow
}

// UpdateWidgetConfig shallow-merges a patch into one widget's config.
// Unknown widget ids are ignored.
type UpdateWidgetConfig struct {
	WidgetID string
	Patch    ConfigPatch
}

// UpdateWidgetTitle renames one widget (both the widget title and the
// config title, which mirror each other).
type UpdateWidgetTitle struct {
	WidgetID string
	Title    string
}

// GeometryChange is one widget's new grid placement.
type GeometryChange struct {
	WidgetID string
	Col      int
	Row      int
	SizeX    int
	SizeY    int
}

// UpdateGeometry applies a bulk of placement changes. Changes for unknown
// widget ids are ignored, not errors.
type UpdateGeometry struct {
	Changes []GeometryChange
}

// DocumentSettingsPatch is a shallow partial of the dashboard
// configuration. Nil fields are left untouched.
type DocumentSettingsPatch struct {
	Settings      *models.Settings
	EntityAliases map[string]*models.EntityAlias
	Timewindow    *models.Timewindow
	Description   *string
}

// UpdateDocumentSettings merges a patch into the configuration. Used for
// display settings, entity aliases and the dashboard timewindow.
type UpdateDocumentSettings struct {
	Patch DocumentSettingsPatch
}

// SelectWidget changes the selection. Empty id clears it. Never affects
// the dirty flag.
type SelectWidget struct {
	WidgetID string
}

// Revert discards the working copy by restoring the baseline, without
// leaving edit mode.
type Revert struct{}

// SaveStart marks a persistence call as outstanding.
type SaveStart struct{}

// SaveSucceeded installs the server's response as both working copy and
// baseline and clears the dirty and in-flight flags.
type SaveSucceeded struct {
	Document *models.Dashboard
}

// SaveFailed clears only the in-flight flag; the working copy and dirty
// flag stay intact so the user can retry.
type SaveFailed struct{}

func (Load) isAction()                   {}
func (EnterEdit) isAction()              {}
func (ExitEdit) isAction()               {}
func (AddWidget) isAction()              {}
func (RemoveWidget) isAction()           {}
func (UpdateWidgetConfig) isAction()     {}
func (UpdateWidgetTitle) isAction()      {}
func (UpdateGeometry) isAction()         {}
func (UpdateDocumentSettings) isAction() {}
func (SelectWidget) isAction()           {}
func (Revert) isAction()                 {}
func (SaveStart) isAction()              {}
func (SaveSucceeded) isAction()          {}
func (SaveFailed) isAction()             {}

// Apply is the pure transition function. It performs no I/O and never
// mutates its inputs; content-mutating actions work on a clone of the
// document. Actions that need a document while none is loaded return the
// session unchanged.
func Apply(s Session, a Action) Session {
	switch act := a.(type) {
	case Load:
		s.Document = act.Document
		s.Baseline = act.Document
		s.Dirty = false
		s.SelectedWidgetID = ""
		return s

	case EnterEdit:
		s.Editing = true
		return s

	case ExitEdit:
		s.Editing = false
		s.Dirty = false
		s.SelectedWidgetID = ""
		s.Document = s.Baseline
		return s

	case AddWidget:
		if s.Document == nil || act.Widget == nil {
			return s
		}
		doc := s.Document.Clone()
		cfg := doc.EnsureConfiguration()
		cfg.Widgets[act.Widget.ID] = act.Widget.Clone()
		syncLayouts(doc)
		s.Document = doc
		s.Dirty = true
		return s

	case RemoveWidget:
		if s.Document == nil {
			return s
		}
		if s.Document.Configuration == nil || s.Document.Configuration.Widgets[act.WidgetID] == nil {
			return s
		}
		doc := s.Document.Clone()
		cfg := doc.EnsureConfiguration()
		delete(cfg.Widgets, act.WidgetID)
		syncLayouts(doc)
		s.Document = doc
		s.Dirty = true
		if s.SelectedWidgetID == act.WidgetID {
			s.SelectedWidgetID = ""
		}
		return s

	case UpdateWidgetConfig:
		if s.Document == nil {
			return s
		}
		doc := s.Document.Clone()
		cfg := doc.EnsureConfiguration()
		w, ok := cfg.Widgets[act.WidgetID]
		if !ok {
			return s
		}
		if w.Config == nil {
			w.Config = &models.WidgetConfig{}
		}
		mergeConfigPatch(w.Config, act.Patch)
		s.Document = doc
		s.Dirty = true
		return s

	case UpdateWidgetTitle:
		if s.Document == nil {
			return s
		}
		doc := s.Document.Clone()
		cfg := doc.EnsureConfiguration()
		w, ok := cfg.Widgets[act.WidgetID]
		if !ok {
			return s
		}
		w.Title = act.Title
		if w.Config == nil {
			w.Config = &models.WidgetConfig{}
		}
		w.Config.Title = act.Title
		s.Document = doc
		s.Dirty = true
		return s

	case UpdateGeometry:
		if s.Document == nil {
			return s
		}
		doc := s.Document.Clone()
		cfg := doc.EnsureConfiguration()
		applied := 0
		for _, ch := range act.Changes {
			w, ok := cfg.Widgets[ch.WidgetID]
			if !ok {
				continue
			}
			w.Col = ch.Col
			w.Row = ch.Row
			w.SizeX = ch.SizeX
			w.SizeY = ch.SizeY
			applied++
		}
		if applied == 0 {
			return s
		}
		syncLayouts(doc)
		s.Document = doc
		s.Dirty = true
		return s

	case UpdateDocumentSettings:
		if s.Document == nil {
			return s
		}
		doc := s.Document.Clone()
		cfg := doc.EnsureConfiguration()
		if act.Patch.Settings != nil {
			st := *act.Patch.Settings
			cfg.Settings = &st
		}
		if act.Patch.EntityAliases != nil {
			aliases := make(map[string]*models.EntityAlias, len(act.Patch.EntityAliases))
			for id, alias := range act.Patch.EntityAliases {
				aliases[id] = alias
			}
			cfg.EntityAliases = aliases
		}
		if act.Patch.Timewindow != nil {
			cfg.Timewindow = act.Patch.Timewindow
		}
		if act.Patch.Description != nil {
			cfg.Description = *act.Patch.Description
		}
		s.Document = doc
		s.Dirty = true
		return s

	case SelectWidget:
		s.SelectedWidgetID = act.WidgetID
		return s

	case Revert:
		s.Document = s.Baseline
		s.Dirty = false
		s.SelectedWidgetID = ""
		return s

	case SaveStart:
		s.SaveInFlight = true
		return s

	case SaveSucceeded:
		s.Document = act.Document
		s.Baseline = act.Document
		s.Dirty = false
		s.SaveInFlight = false
		return s

	case SaveFailed:
		s.SaveInFlight = false
		return s

	default:
		return s
	}
}

// mergeConfigPatch shallow-merges set fields of the patch into cfg.
// Settings, datasources and timewindow replace wholesale when provided.
func mergeConfigPatch(cfg *models.WidgetConfig, p ConfigPatch) {
	if p.Title != nil {
		cfg.Title = *p.Title
	}
	if p.ShowTitle != nil {
		cfg.ShowTitle = *p.ShowTitle
	}
	if p.BackgroundColor != nil {
		cfg.BackgroundColor = *p.BackgroundColor
	}
	if p.Color != nil {
		cfg.Color = *p.Color
	}
	if p.Settings != nil {
		cfg.Settings = p.Settings
	}
	if p.Datasources != nil {
		cfg.Datasources = p.Datasources
	}
	if p.Timewindow != nil {
		cfg.Timewindow = p.Timewindow
	}
}

// syncLayouts keeps every layout's geometry map in lockstep with the
// widget set. The default state's main layout is rebuilt to cover every
// widget; all other layouts drop entries for removed widgets and refresh
// the geometry of the ones they keep.
func syncLayouts(doc *models.Dashboard) {
	cfg := doc.EnsureConfiguration()
	for stateID, st := range cfg.States {
		for layoutID, layout := range st.Layouts {
			if layout.Widgets == nil {
				layout.Widgets = map[string]*models.WidgetLayout{}
			}
			for id := range layout.Widgets {
				w, ok := cfg.Widgets[id]
				if !ok {
					delete(layout.Widgets, id)
					continue
				}
				layout.Widgets[id] = &models.WidgetLayout{
					Col: w.Col, Row: w.Row, SizeX: w.SizeX, SizeY: w.SizeY,
				}
			}
			if stateID == models.DefaultStateID && layoutID == models.DefaultLayoutID {
				for id, w := range cfg.Widgets {
					layout.Widgets[id] = &models.WidgetLayout{
						Col: w.Col, Row: w.Row, SizeX: w.SizeX, SizeY: w.SizeY,
					}
				}
			}
		}
	}
}
