package registry

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

type nopRenderer struct{}

func (nopRenderer) Render(w *models.Widget, s *models.Snapshot) (*RenderResult, error) {
	return &RenderResult{Kind: "nop"}, nil
}

func def(typeKey string, category models.WidgetCategory) *Definition {
	return &Definition{
		Type:     typeKey,
		Category: category,
		Renderer: nopRenderer{},
	}
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New(logrus.New())
	require.NoError(t, r.Register(def("value_card", models.CategoryLatest)))
	require.NoError(t, r.Register(def("timeseries_chart", models.CategoryTimeseries)))
	require.NoError(t, r.Register(def("gauge", models.CategoryLatest)))
	r.SetPlaceholder(def("placeholder", models.CategoryStatic))
	return r
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := New(logrus.New())
	require.NoError(t, r.Register(def("gauge", models.CategoryLatest)))
	assert.Error(t, r.Register(def("gauge", models.CategoryLatest)))
}

func TestRegisterAfterSealFails(t *testing.T) {
	r := New(logrus.New())
	r.Seal()
	assert.Error(t, r.Register(def("gauge", models.CategoryLatest)))
}

func TestAllSortedByType(t *testing.T) {
	r := testRegistry(t)
	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "gauge", all[0].Type)
	assert.Equal(t, "timeseries_chart", all[1].Type)
	assert.Equal(t, "value_card", all[2].Type)
}

func TestResolveSettingsTier(t *testing.T) {
	r := testRegistry(t)
	w := &models.Widget{
		Type:        models.CategoryLatest,
		TypeFullFqn: "system.gauge.v1",
		Config: &models.WidgetConfig{
			Settings: map[string]interface{}{"widgetType": "gauge"},
		},
	}

	d, res := r.Resolve(w)
	require.NotNil(t, d)
	assert.Equal(t, "gauge", d.Type)
	assert.Equal(t, "settings", res.Tier)
	assert.Equal(t, "gauge", res.MatchedType)
	assert.Equal(t, "gauge", res.AttemptedType)
}

func TestResolveFqnTier(t *testing.T) {
	r := testRegistry(t)
	w := &models.Widget{
		Type:        models.CategoryLatest,
		TypeFullFqn: "gauge",
		Config: &models.WidgetConfig{
			Settings: map[string]interface{}{"widgetType": "not_registered"},
		},
	}

	d, res := r.Resolve(w)
	assert.Equal(t, "gauge", d.Type)
	assert.Equal(t, "fqn", res.Tier)
	assert.Equal(t, "not_registered", res.AttemptedType)
}

func TestResolveCategoryTier(t *testing.T) {
	r := testRegistry(t)
	w := &models.Widget{Type: models.CategoryTimeseries}

	d, res := r.Resolve(w)
	assert.Equal(t, "timeseries_chart", d.Type)
	assert.Equal(t, "category", res.Tier)
	assert.Equal(t, "timeseries_chart", res.MatchedType)
}

func TestResolvePlaceholderCarriesAttempts(t *testing.T) {
	r := testRegistry(t)
	w := &models.Widget{
		Type:        models.CategoryAlarm, // alarm_table is not registered here
		TypeFullFqn: "vendor.custom.widget",
		Config: &models.WidgetConfig{
			Settings: map[string]interface{}{"widgetType": "custom_widget"},
		},
	}

	d, res := r.Resolve(w)
	require.NotNil(t, d)
	assert.Equal(t, "placeholder", d.Type)
	assert.Equal(t, "placeholder", res.Tier)
	assert.Equal(t, "custom_widget", res.AttemptedType)
	assert.Equal(t, "vendor.custom.widget", res.AttemptedFqn)
	assert.Empty(t, res.MatchedType)
}

func TestResolveIgnoresNonStringWidgetType(t *testing.T) {
	r := testRegistry(t)
	w := &models.Widget{
		Type: models.CategoryLatest,
		Config: &models.WidgetConfig{
			Settings: map[string]interface{}{"widgetType": 42},
		},
	}

	d, res := r.Resolve(w)
	assert.Equal(t, "value_card", d.Type)
	assert.Equal(t, "category", res.Tier)
	assert.Empty(t, res.AttemptedType)
}
