package grid

import (
	"sort"

	"github.com/marcuslam20/thingsboard-server-sub000/internal/editor"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// Minimum grid footprint of any item.
const (
	MinW = 2
	MinH = 2
)

// Item is one widget's placement in grid-layout terms: I the widget id,
// X/Y the column and row, W/H the span.
type Item struct {
	I    string `json:"i"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	W    int    `json:"w"`
	H    int    `json:"h"`
	MinW int    `json:"minW"`
	MinH int    `json:"minH"`
}

// Items projects the given state's layout into grid items, sorted by id
// for stable output. Geometry comes from the layout entry; the widget
// itself backfills a layout entry that carries zero sizes.
func Items(doc *models.Dashboard, stateID, layoutID string) []Item {
	if doc == nil || doc.Configuration == nil {
		return nil
	}
	cfg := doc.Configuration
	state, ok := cfg.States[stateID]
	if !ok {
		return nil
	}
	layout, ok := state.Layouts[layoutID]
	if !ok {
		return nil
	}

	items := make([]Item, 0, len(layout.Widgets))
	for id, wl := range layout.Widgets {
		w := cfg.Widgets[id]
		if w == nil {
			continue
		}
		item := Item{I: id, X: wl.Col, Y: wl.Row, W: wl.SizeX, H: wl.SizeY, MinW: MinW, MinH: MinH}
		if item.W == 0 {
			item.W = w.SizeX
		}
		if item.H == 0 {
			item.H = w.SizeY
		}
		if item.W < MinW {
			item.W = MinW
		}
		if item.H < MinH {
			item.H = MinH
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].I < items[j].I })
	return items
}

// Reconcile converts a full grid layout back into a bulk geometry
// action. Outside edit mode the layout change is dropped and nil is
// returned, so view-mode drag artifacts never dirty the document.
func Reconcile(s editor.Session, items []Item) *editor.UpdateGeometry {
	if !s.Editing || len(items) == 0 {
		return nil
	}
	changes := make([]editor.GeometryChange, 0, len(items))
	for _, it := range items {
		changes = append(changes, editor.GeometryChange{
			WidgetID: it.I,
			Col:      it.X,
			Row:      it.Y,
			SizeX:    it.W,
			SizeY:    it.H,
		})
	}
	return &editor.UpdateGeometry{Changes: changes}
}
