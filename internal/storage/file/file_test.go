package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(&StoreConfig{BasePath: t.TempDir(), CreateDirs: true}, logrus.New())
	require.NoError(t, err)
	require.NoError(t, s.Connect(context.Background()))
	return s
}

func TestNewStoreRequiresBasePath(t *testing.T) {
	_, err := NewStore(&StoreConfig{}, logrus.New())
	assert.Error(t, err)
	_, err = NewStore(nil, logrus.New())
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	d := models.NewDashboard("File Test")
	d.Configuration.Widgets["w1"] = &models.Widget{
		ID:    "w1",
		Type:  models.CategoryLatest,
		Title: "Temperature",
		SizeX: 4,
		SizeY: 3,
		Config: &models.WidgetConfig{
			Settings: map[string]interface{}{"widgetType": "value_card", "decimals": float64(2)},
		},
	}

	stored, err := s.SaveDashboard(ctx, d)
	require.NoError(t, err)
	require.NotEmpty(t, stored.ID)

	loaded, err := s.LoadDashboard(ctx, stored.ID)
	require.NoError(t, err)
	assert.True(t, models.Equal(stored, loaded))
	assert.Equal(t, "value_card", loaded.Configuration.Widgets["w1"].Config.Settings["widgetType"])
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(&StoreConfig{BasePath: dir}, logrus.New())
	require.NoError(t, err)
	require.NoError(t, s.Connect(context.Background()))

	_, err = s.SaveDashboard(context.Background(), models.NewDashboard("Atomic"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestLoadMissingDashboard(t *testing.T) {
	s := testStore(t)
	_, err := s.LoadDashboard(context.Background(), "missing")
	require.Error(t, err)
}

func TestDeleteDashboard(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	stored, err := s.SaveDashboard(ctx, models.NewDashboard("Doomed"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteDashboard(ctx, stored.ID))
	require.Error(t, s.DeleteDashboard(ctx, stored.ID))

	_, err = s.LoadDashboard(ctx, stored.ID)
	assert.Error(t, err)
}

func TestListSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(&StoreConfig{BasePath: dir}, logrus.New())
	require.NoError(t, err)
	require.NoError(t, s.Connect(context.Background()))
	ctx := context.Background()

	_, err = s.SaveDashboard(ctx, models.NewDashboard("Good"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	all, err := s.ListDashboards(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Good", all[0].Title)
}

func TestConnectFailsOnFilePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "occupied")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	s, err := NewStore(&StoreConfig{BasePath: path}, logrus.New())
	require.NoError(t, err)
	assert.Error(t, s.Connect(context.Background()))
}
