package widgets

import (
	"github.com/marcuslam20/thingsboard-server-sub000/internal/registry"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// TableRow is one key/value/time row in the simple table.
type TableRow struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
	Ts    int64  `json:"ts"`
}

// TableView is the payload of the latest values table.
type TableView struct {
	Rows []TableRow `json:"rows"`
}

type simpleTableRenderer struct{}

func (simpleTableRenderer) Render(_ *models.Widget, snap *models.Snapshot) (*registry.RenderResult, error) {
	view := &TableView{}
	if snap != nil {
		for _, entry := range snap.Entries {
			row := TableRow{Key: entry.Key, Label: entry.Label, Value: "--"}
			if len(entry.Values) > 0 {
				row.Value = entry.Values[0].Value
				row.Ts = entry.Values[0].Ts
			}
			view.Rows = append(view.Rows, row)
		}
	}
	return &registry.RenderResult{Kind: "simple_table", Payload: view}, nil
}

// AlarmTableView is the payload of the alarm list widget. The alarm rows
// themselves are fetched by the hosting page; the renderer contributes
// the query parameters derived from settings.
type AlarmTableView struct {
	PageSize     int    `json:"pageSize"`
	StatusFilter string `json:"statusFilter,omitempty"`
	SortProperty string `json:"sortProperty"`
	SortOrder    string `json:"sortOrder"`
}

type alarmTableRenderer struct{}

func (alarmTableRenderer) Render(w *models.Widget, _ *models.Snapshot) (*registry.RenderResult, error) {
	settings := bagOf(w)
	view := &AlarmTableView{
		PageSize:     settings.integer("pageSize", 10),
		StatusFilter: settings.str("alarmStatus", ""),
		SortProperty: "createdTime",
		SortOrder:    "DESC",
	}
	return &registry.RenderResult{Kind: "alarm_table", Payload: view}, nil
}
