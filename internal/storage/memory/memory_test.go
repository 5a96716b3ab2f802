package memory

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

func TestSaveAssignsIDAndIsolates(t *testing.T) {
	s := NewStorage(logrus.New())
	ctx := context.Background()

	d := models.NewDashboard("Test")
	stored, err := s.SaveDashboard(ctx, d)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.Empty(t, d.ID)

	// Mutating the returned copy must not bleed into the store.
	stored.Title = "Mutated"
	loaded, err := s.LoadDashboard(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test", loaded.Title)
}

func TestSaveKeepsExistingID(t *testing.T) {
	s := NewStorage(logrus.New())
	ctx := context.Background()

	d := models.NewDashboard("Test")
	d.ID = "fixed-id"
	stored, err := s.SaveDashboard(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", stored.ID)
}

func TestLoadMissingDashboard(t *testing.T) {
	s := NewStorage(logrus.New())
	_, err := s.LoadDashboard(context.Background(), "missing")
	require.Error(t, err)
}

func TestDeleteAndList(t *testing.T) {
	s := NewStorage(logrus.New())
	ctx := context.Background()

	a, err := s.SaveDashboard(ctx, models.NewDashboard("A"))
	require.NoError(t, err)
	_, err = s.SaveDashboard(ctx, models.NewDashboard("B"))
	require.NoError(t, err)

	all, err := s.ListDashboards(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.DeleteDashboard(ctx, a.ID))
	require.Error(t, s.DeleteDashboard(ctx, a.ID))

	all, err = s.ListDashboards(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTimeseriesRangeReads(t *testing.T) {
	s := NewStorage(logrus.New())
	ctx := context.Background()

	require.NoError(t, s.WriteTimeseries(ctx, "device-1", map[string][]models.TsValue{
		"temperature": {{Ts: 3000, Value: "23"}, {Ts: 1000, Value: "21"}},
	}))
	require.NoError(t, s.WriteTimeseries(ctx, "device-1", map[string][]models.TsValue{
		"temperature": {{Ts: 2000, Value: "22"}},
	}))

	data, err := s.ReadTimeseries(ctx, "device-1", []string{"temperature"}, 1000, 2500)
	require.NoError(t, err)
	require.Len(t, data["temperature"], 2)
	// Out-of-order writes come back sorted.
	assert.Equal(t, int64(1000), data["temperature"][0].Ts)
	assert.Equal(t, int64(2000), data["temperature"][1].Ts)

	data, err = s.ReadTimeseries(ctx, "device-1", []string{"humidity"}, 0, 9000)
	require.NoError(t, err)
	assert.NotContains(t, data, "humidity")
}

func TestAttributesScopedReads(t *testing.T) {
	s := NewStorage(logrus.New())
	ctx := context.Background()

	require.NoError(t, s.WriteAttributes(ctx, "device-1", "CLIENT_SCOPE", []models.AttributeValue{
		{Key: "firmware", Value: "1.0.0", LastUpdateTs: 1000},
	}))
	require.NoError(t, s.WriteAttributes(ctx, "device-1", "SERVER_SCOPE", []models.AttributeValue{
		{Key: "firmware", Value: "server-side", LastUpdateTs: 2000},
	}))
	require.NoError(t, s.WriteAttributes(ctx, "device-1", "CLIENT_SCOPE", []models.AttributeValue{
		{Key: "firmware", Value: "1.1.0", LastUpdateTs: 3000},
	}))

	attrs, err := s.ReadLatestAttributes(ctx, "device-1", "CLIENT_SCOPE", []string{"firmware"})
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	// Re-writes replace; scopes stay separate.
	assert.Equal(t, "1.1.0", attrs[0].Value)

	attrs, err = s.ReadLatestAttributes(ctx, "device-1", "SERVER_SCOPE", []string{"firmware"})
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	assert.Equal(t, "server-side", attrs[0].Value)
}
