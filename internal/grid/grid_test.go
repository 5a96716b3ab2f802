package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcuslam20/thingsboard-server-sub000/internal/editor"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

func docWithWidget(t *testing.T) (editor.Session, *models.Widget) {
	t.Helper()
	w := &models.Widget{
		ID:    "w1",
		Type:  models.CategoryLatest,
		SizeX: 4,
		SizeY: 3,
	}
	s := editor.Apply(editor.NewSession(), editor.Load{Document: models.NewDashboard("Grid Test")})
	s = editor.Apply(s, editor.AddWidget{Widget: w})
	return s, w
}

func TestItemsReflectAddedWidget(t *testing.T) {
	s, _ := docWithWidget(t)

	items := Items(s.Document, models.DefaultStateID, models.DefaultLayoutID)
	require.Len(t, items, 1)
	assert.Equal(t, Item{I: "w1", X: 0, Y: 0, W: 4, H: 3, MinW: MinW, MinH: MinH}, items[0])
}

func TestItemsSortedByID(t *testing.T) {
	s, _ := docWithWidget(t)
	s = editor.Apply(s, editor.AddWidget{Widget: &models.Widget{ID: "a9", SizeX: 6, SizeY: 4}})
	s = editor.Apply(s, editor.AddWidget{Widget: &models.Widget{ID: "m5", SizeX: 6, SizeY: 4}})

	items := Items(s.Document, models.DefaultStateID, models.DefaultLayoutID)
	require.Len(t, items, 3)
	assert.Equal(t, "a9", items[0].I)
	assert.Equal(t, "m5", items[1].I)
	assert.Equal(t, "w1", items[2].I)
}

func TestItemsClampToMinimum(t *testing.T) {
	s, _ := docWithWidget(t)
	s = editor.Apply(s, editor.AddWidget{Widget: &models.Widget{ID: "tiny", SizeX: 1, SizeY: 1}})

	items := Items(s.Document, models.DefaultStateID, models.DefaultLayoutID)
	for _, it := range items {
		if it.I == "tiny" {
			assert.Equal(t, MinW, it.W)
			assert.Equal(t, MinH, it.H)
			return
		}
	}
	t.Fatal("tiny widget not projected")
}

func TestItemsUnknownStateOrLayout(t *testing.T) {
	s, _ := docWithWidget(t)
	assert.Nil(t, Items(s.Document, "missing", models.DefaultLayoutID))
	assert.Nil(t, Items(s.Document, models.DefaultStateID, "missing"))
	assert.Nil(t, Items(nil, models.DefaultStateID, models.DefaultLayoutID))
}

func TestReconcileProducesGeometryAction(t *testing.T) {
	s, _ := docWithWidget(t)
	s = editor.Apply(s, editor.EnterEdit{})

	action := Reconcile(s, []Item{{I: "w1", X: 8, Y: 2, W: 6, H: 4}})
	require.NotNil(t, action)
	require.Len(t, action.Changes, 1)
	assert.Equal(t, editor.GeometryChange{WidgetID: "w1", Col: 8, Row: 2, SizeX: 6, SizeY: 4}, action.Changes[0])

	s = editor.Apply(s, *action)
	w := s.Document.Configuration.Widgets["w1"]
	assert.Equal(t, 8, w.Col)
	assert.Equal(t, 6, w.SizeX)
}

func TestReconcileOutsideEditModeIsNil(t *testing.T) {
	s, _ := docWithWidget(t)
	assert.Nil(t, Reconcile(s, []Item{{I: "w1", X: 1, Y: 1, W: 4, H: 3}}))
	assert.Nil(t, Reconcile(editor.Apply(s, editor.EnterEdit{}), nil))
}

func TestRoundTripItemsReconcile(t *testing.T) {
	s, _ := docWithWidget(t)
	s = editor.Apply(s, editor.EnterEdit{})

	items := Items(s.Document, models.DefaultStateID, models.DefaultLayoutID)
	items[0].X, items[0].Y = 10, 5

	action := Reconcile(s, items)
	require.NotNil(t, action)
	s = editor.Apply(s, *action)

	next := Items(s.Document, models.DefaultStateID, models.DefaultLayoutID)
	require.Len(t, next, 1)
	assert.Equal(t, 10, next[0].X)
	assert.Equal(t, 5, next[0].Y)
}
