package models

// Dashboard is the persisted dashboard definition: widgets, layouts,
// entity aliases and display settings. It is pure data; all mutation goes
// through the editor's transitions.
type Dashboard struct {
	ID            string         `json:"id,omitempty"`
	Title         string         `json:"title"`
	Configuration *Configuration `json:"configuration,omitempty"`
}

// Configuration holds the dashboard body. Widgets and the per-layout
// geometry maps are kept in lockstep by every mutating transition; they are
// never edited independently.
type Configuration struct {
	Settings      *Settings               `json:"settings,omitempty"`
	Widgets       map[string]*Widget      `json:"widgets,omitempty"`
	States        map[string]*State       `json:"states,omitempty"`
	EntityAliases map[string]*EntityAlias `json:"entityAliases,omitempty"`
	Timewindow    *Timewindow             `json:"timewindow,omitempty"`
	Description   string                  `json:"description,omitempty"`
}

// Settings are dashboard-level display flags.
type Settings struct {
	ShowTitle               bool   `json:"showTitle,omitempty"`
	ShowDashboardsSelect    bool   `json:"showDashboardsSelect,omitempty"`
	ShowEntitiesSelect      bool   `json:"showEntitiesSelect,omitempty"`
	ShowDashboardTimewindow bool   `json:"showDashboardTimewindow,omitempty"`
	ShowDashboardExport     bool   `json:"showDashboardExport,omitempty"`
	ToolbarAlwaysOpen       bool   `json:"toolbarAlwaysOpen,omitempty"`
	HideToolbar             bool   `json:"hideToolbar,omitempty"`
	TitleColor              string `json:"titleColor,omitempty"`
	DashboardCSS            string `json:"dashboardCss,omitempty"`
}

// State is a named view state. Each state owns one or more named layouts
// ("main", optionally "right").
type State struct {
	Name    string             `json:"name"`
	Root    bool               `json:"root,omitempty"`
	Layouts map[string]*Layout `json:"layouts"`
}

// Layout maps widget ids to their grid geometry within one state.
type Layout struct {
	GridSettings *GridSettings            `json:"gridSettings,omitempty"`
	Widgets      map[string]*WidgetLayout `json:"widgets,omitempty"`
}

// WidgetLayout is one widget's geometry entry inside a layout.
type WidgetLayout struct {
	Col   int `json:"col"`
	Row   int `json:"row"`
	SizeX int `json:"sizeX"`
	SizeY int `json:"sizeY"`
}

// GridSettings configure the grid the layout renders on.
type GridSettings struct {
	Columns         int    `json:"columns"`
	Margin          int    `json:"margin"`
	RowHeight       int    `json:"rowHeight,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	AutoFillHeight  bool   `json:"autoFillHeight,omitempty"`
}

// EntityAlias names an entity filter that widget datasources can reference.
// Resolution happens outside this core; only the definition is stored.
type EntityAlias struct {
	ID     string       `json:"id"`
	Alias  string       `json:"alias"`
	Filter *AliasFilter `json:"filter,omitempty"`
}

// AliasFilter describes how an alias resolves to entities. Extra holds
// filter fields this core does not interpret so they round-trip unchanged.
type AliasFilter struct {
	Type            string                 `json:"type"`
	EntityType      string                 `json:"entityType,omitempty"`
	ResolveMultiple bool                   `json:"resolveMultiple,omitempty"`
	SingleEntityID  string                 `json:"singleEntityId,omitempty"`
	EntityList      []string               `json:"entityList,omitempty"`
	Extra           map[string]interface{} `json:"extra,omitempty"`
}

// Defaults matching the original document shapes.
const (
	DefaultGridColumns   = 24
	DefaultGridMargin    = 10
	DefaultGridRowHeight = 50

	DefaultWidgetSizeX = 6
	DefaultWidgetSizeY = 4

	// DefaultStateID and DefaultLayoutID name the state/layout that new
	// dashboards start with and that geometry updates target.
	DefaultStateID  = "default"
	DefaultLayoutID = "main"
)

// DefaultGridSettings returns the grid settings used by new dashboards.
func DefaultGridSettings() *GridSettings {
	return &GridSettings{
		Columns:         DefaultGridColumns,
		Margin:          DefaultGridMargin,
		RowHeight:       DefaultGridRowHeight,
		BackgroundColor: "#FFFFFF",
	}
}

// NewDashboard constructs an empty dashboard with the default state,
// layout, grid settings and a 60s realtime timewindow.
func NewDashboard(title string) *Dashboard {
	return &Dashboard{
		Title: title,
		Configuration: &Configuration{
			Settings: &Settings{ShowTitle: true},
			Widgets:  map[string]*Widget{},
			States: map[string]*State{
				DefaultStateID: {
					Name: DefaultStateID,
					Root: true,
					Layouts: map[string]*Layout{
						DefaultLayoutID: {
							GridSettings: DefaultGridSettings(),
							Widgets:      map[string]*WidgetLayout{},
						},
					},
				},
			},
			EntityAliases: map[string]*EntityAlias{},
			Timewindow: &Timewindow{
				Realtime: &RealtimeWindow{TimewindowMs: 60000, Interval: 1000},
			},
		},
	}
}

// EnsureConfiguration returns the dashboard's configuration, creating the
// minimal skeleton (widgets map, default state/layout) when absent. Used by
// transitions so documents loaded from older payloads stay editable.
func (d *Dashboard) EnsureConfiguration() *Configuration {
	if d.Configuration == nil {
		d.Configuration = &Configuration{}
	}
	c := d.Configuration
	if c.Widgets == nil {
		c.Widgets = map[string]*Widget{}
	}
	if c.States == nil {
		c.States = map[string]*State{}
	}
	if _, ok := c.States[DefaultStateID]; !ok {
		c.States[DefaultStateID] = &State{
			Name:    DefaultStateID,
			Root:    true,
			Layouts: map[string]*Layout{},
		}
	}
	st := c.States[DefaultStateID]
	if st.Layouts == nil {
		st.Layouts = map[string]*Layout{}
	}
	if _, ok := st.Layouts[DefaultLayoutID]; !ok {
		st.Layouts[DefaultLayoutID] = &Layout{
			GridSettings: DefaultGridSettings(),
			Widgets:      map[string]*WidgetLayout{},
		}
	}
	return c
}
