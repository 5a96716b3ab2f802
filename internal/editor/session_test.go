package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

func testWidget(id string) *models.Widget {
	return &models.Widget{
		ID:    id,
		Type:  models.CategoryLatest,
		Title: "Widget " + id,
		SizeX: 4,
		SizeY: 3,
		Config: &models.WidgetConfig{
			Title:     "Widget " + id,
			ShowTitle: true,
			Settings:  map[string]interface{}{"widgetType": "value_card"},
		},
	}
}

func loadedSession(t *testing.T) Session {
	t.Helper()
	s := Apply(NewSession(), Load{Document: models.NewDashboard("Test Dashboard")})
	require.NotNil(t, s.Document)
	require.False(t, s.Dirty)
	return s
}

func TestLoadInstallsBaseline(t *testing.T) {
	doc := models.NewDashboard("Loaded")
	s := Apply(NewSession(), Load{Document: doc})

	assert.Same(t, doc, s.Document)
	assert.Same(t, doc, s.Baseline)
	assert.False(t, s.Dirty)
	assert.Empty(t, s.SelectedWidgetID)
}

func TestLoadClearsDirtyAndSelection(t *testing.T) {
	s := loadedSession(t)
	s = Apply(s, EnterEdit{})
	s = Apply(s, AddWidget{Widget: testWidget("w1")})
	s = Apply(s, SelectWidget{WidgetID: "w1"})
	require.True(t, s.Dirty)

	s = Apply(s, Load{Document: models.NewDashboard("Fresh")})
	assert.False(t, s.Dirty)
	assert.Empty(t, s.SelectedWidgetID)
}

func TestEnterEditDoesNotDirty(t *testing.T) {
	s := Apply(loadedSession(t), EnterEdit{})
	assert.True(t, s.Editing)
	assert.False(t, s.Dirty)
}

func TestAddWidgetDirtiesAndSyncsLayout(t *testing.T) {
	s := Apply(loadedSession(t), EnterEdit{})
	baseline := s.Baseline

	s = Apply(s, AddWidget{Widget: testWidget("w1")})

	assert.True(t, s.Dirty)
	require.Contains(t, s.Document.Configuration.Widgets, "w1")

	layout := s.Document.Configuration.States[models.DefaultStateID].Layouts[models.DefaultLayoutID]
	require.Contains(t, layout.Widgets, "w1")
	assert.Equal(t, 4, layout.Widgets["w1"].SizeX)
	assert.Equal(t, 3, layout.Widgets["w1"].SizeY)

	// The baseline is never touched by edits.
	assert.NotContains(t, baseline.Configuration.Widgets, "w1")
}

func TestAddWidgetDoesNotMutateInput(t *testing.T) {
	s := loadedSession(t)
	w := testWidget("w1")
	s = Apply(s, AddWidget{Widget: w})

	stored := s.Document.Configuration.Widgets["w1"]
	require.NotSame(t, w, stored)

	stored.Title = "Changed"
	assert.Equal(t, "Widget w1", w.Title)
}

func TestRemoveWidgetPurgesEveryLayout(t *testing.T) {
	s := loadedSession(t)
	s.Document.Configuration.States["details"] = &models.State{
		Name: "details",
		Layouts: map[string]*models.Layout{
			"main": {Widgets: map[string]*models.WidgetLayout{}},
		},
	}
	s = Apply(s, AddWidget{Widget: testWidget("w1")})
	s.Document.Configuration.States["details"].Layouts["main"].Widgets["w1"] = &models.WidgetLayout{Col: 1, Row: 1, SizeX: 4, SizeY: 3}

	s = Apply(s, RemoveWidget{WidgetID: "w1"})

	assert.NotContains(t, s.Document.Configuration.Widgets, "w1")
	for stateID, st := range s.Document.Configuration.States {
		for layoutID, layout := range st.Layouts {
			assert.NotContains(t, layout.Widgets, "w1",
				"stale geometry in state %s layout %s", stateID, layoutID)
		}
	}
}

func TestRemoveUnknownWidgetIsNoOp(t *testing.T) {
	s := loadedSession(t)
	before := s.Document

	s = Apply(s, RemoveWidget{WidgetID: "missing"})

	assert.False(t, s.Dirty)
	assert.Same(t, before, s.Document)
}

func TestRemoveWidgetClearsSelection(t *testing.T) {
	s := loadedSession(t)
	s = Apply(s, AddWidget{Widget: testWidget("w1")})
	s = Apply(s, SelectWidget{WidgetID: "w1"})

	s = Apply(s, RemoveWidget{WidgetID: "w1"})
	assert.Empty(t, s.SelectedWidgetID)
}

func TestAddRemoveRoundTripRestoresDocument(t *testing.T) {
	s := loadedSession(t)
	original := s.Document

	s = Apply(s, AddWidget{Widget: testWidget("w1")})
	s = Apply(s, RemoveWidget{WidgetID: "w1"})

	assert.True(t, models.Equal(original, s.Document))
}

func TestUpdateWidgetConfigMergesPatch(t *testing.T) {
	s := loadedSession(t)
	s = Apply(s, AddWidget{Widget: testWidget("w1")})

	title := "Renamed"
	bg := "#222222"
	s = Apply(s, UpdateWidgetConfig{
		WidgetID: "w1",
		Patch:    ConfigPatch{Title: &title, BackgroundColor: &bg},
	})

	cfg := s.Document.Configuration.Widgets["w1"].Config
	assert.Equal(t, "Renamed", cfg.Title)
	assert.Equal(t, "#222222", cfg.BackgroundColor)
	// Unset patch fields stay untouched.
	assert.True(t, cfg.ShowTitle)
	assert.Equal(t, "value_card", cfg.Settings["widgetType"])
	assert.True(t, s.Dirty)
}

func TestUpdateWidgetConfigUnknownIDIsNoOp(t *testing.T) {
	s := loadedSession(t)
	title := "x"
	s = Apply(s, UpdateWidgetConfig{WidgetID: "missing", Patch: ConfigPatch{Title: &title}})
	assert.False(t, s.Dirty)
}

func TestUpdateWidgetTitleMirrorsConfig(t *testing.T) {
	s := loadedSession(t)
	s = Apply(s, AddWidget{Widget: testWidget("w1")})

	s = Apply(s, UpdateWidgetTitle{WidgetID: "w1", Title: "Temperature"})

	w := s.Document.Configuration.Widgets["w1"]
	assert.Equal(t, "Temperature", w.Title)
	assert.Equal(t, "Temperature", w.Config.Title)
	assert.True(t, s.Dirty)
}

func TestUpdateGeometryAppliesAndSyncs(t *testing.T) {
	s := loadedSession(t)
	s = Apply(s, AddWidget{Widget: testWidget("w1")})

	s = Apply(s, UpdateGeometry{Changes: []GeometryChange{
		{WidgetID: "w1", Col: 8, Row: 2, SizeX: 6, SizeY: 4},
	}})

	w := s.Document.Configuration.Widgets["w1"]
	assert.Equal(t, 8, w.Col)
	assert.Equal(t, 2, w.Row)
	assert.Equal(t, 6, w.SizeX)
	assert.Equal(t, 4, w.SizeY)

	layout := s.Document.Configuration.States[models.DefaultStateID].Layouts[models.DefaultLayoutID]
	assert.Equal(t, &models.WidgetLayout{Col: 8, Row: 2, SizeX: 6, SizeY: 4}, layout.Widgets["w1"])
}

func TestUpdateGeometryAllUnknownIsNoOp(t *testing.T) {
	s := loadedSession(t)
	s = Apply(s, AddWidget{Widget: testWidget("w1")})
	before := s.Document
	s.Dirty = false

	s = Apply(s, UpdateGeometry{Changes: []GeometryChange{
		{WidgetID: "missing", Col: 1, Row: 1, SizeX: 2, SizeY: 2},
	}})

	assert.False(t, s.Dirty)
	assert.Same(t, before, s.Document)
}

func TestUpdateDocumentSettings(t *testing.T) {
	s := loadedSession(t)
	desc := "Plant floor overview"
	s = Apply(s, UpdateDocumentSettings{Patch: DocumentSettingsPatch{
		Settings:    &models.Settings{ShowTitle: true, HideToolbar: true},
		Description: &desc,
	}})

	cfg := s.Document.Configuration
	assert.True(t, cfg.Settings.HideToolbar)
	assert.Equal(t, "Plant floor overview", cfg.Description)
	assert.True(t, s.Dirty)
	// Timewindow was not in the patch and survives.
	assert.NotNil(t, cfg.Timewindow)
}

func TestSelectWidgetNeverDirties(t *testing.T) {
	s := loadedSession(t)
	s = Apply(s, SelectWidget{WidgetID: "w1"})
	assert.Equal(t, "w1", s.SelectedWidgetID)
	assert.False(t, s.Dirty)

	s = Apply(s, SelectWidget{WidgetID: ""})
	assert.Empty(t, s.SelectedWidgetID)
}

func TestRevertRestoresBaseline(t *testing.T) {
	s := Apply(loadedSession(t), EnterEdit{})
	baseline := s.Baseline

	s = Apply(s, AddWidget{Widget: testWidget("w1")})
	s = Apply(s, UpdateWidgetTitle{WidgetID: "w1", Title: "Changed"})
	s = Apply(s, Revert{})

	assert.Same(t, baseline, s.Document)
	assert.False(t, s.Dirty)
	assert.True(t, s.Editing)
}

func TestExitEditDiscardsChanges(t *testing.T) {
	s := Apply(loadedSession(t), EnterEdit{})
	baseline := s.Baseline

	s = Apply(s, AddWidget{Widget: testWidget("w1")})
	s = Apply(s, ExitEdit{})

	assert.False(t, s.Editing)
	assert.False(t, s.Dirty)
	assert.Same(t, baseline, s.Document)
	assert.Empty(t, s.SelectedWidgetID)
}

func TestSaveLifecycle(t *testing.T) {
	s := loadedSession(t)
	s = Apply(s, AddWidget{Widget: testWidget("w1")})

	s = Apply(s, SaveStart{})
	assert.True(t, s.SaveInFlight)
	assert.True(t, s.Dirty)

	saved := s.Document.Clone()
	saved.ID = "server-assigned"
	s = Apply(s, SaveSucceeded{Document: saved})

	assert.False(t, s.SaveInFlight)
	assert.False(t, s.Dirty)
	assert.Same(t, saved, s.Document)
	assert.Same(t, saved, s.Baseline)
}

func TestSaveFailedKeepsWorkingCopy(t *testing.T) {
	s := loadedSession(t)
	s = Apply(s, AddWidget{Widget: testWidget("w1")})
	doc := s.Document

	s = Apply(s, SaveStart{})
	s = Apply(s, SaveFailed{})

	assert.False(t, s.SaveInFlight)
	assert.True(t, s.Dirty)
	assert.Same(t, doc, s.Document)
}

func TestActionsWithoutDocumentAreNoOps(t *testing.T) {
	s := NewSession()
	for _, a := range []Action{
		AddWidget{Widget: testWidget("w1")},
		RemoveWidget{WidgetID: "w1"},
		UpdateWidgetTitle{WidgetID: "w1", Title: "x"},
		UpdateGeometry{Changes: []GeometryChange{{WidgetID: "w1"}}},
		UpdateDocumentSettings{Patch: DocumentSettingsPatch{}},
	} {
		next := Apply(s, a)
		assert.Equal(t, s, next, "%T should be a no-op without a document", a)
	}
}

func BenchmarkApplyAddWidget(b *testing.B) {
	s := Apply(NewSession(), Load{Document: models.NewDashboard("bench")})
	for i := 0; i < 20; i++ {
		s = Apply(s, AddWidget{Widget: testWidget(NewWidgetID())})
	}
	w := testWidget("bench-widget")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Apply(s, AddWidget{Widget: w})
	}
}
