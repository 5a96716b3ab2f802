package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/errors"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/interfaces"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// Storage is an in-memory dashboard store and telemetry backend. It
// backs tests and single-node development setups; nothing survives a
// restart.
type Storage struct {
	logger *logrus.Logger

	mu         sync.RWMutex
	dashboards map[string]*models.Dashboard
	series     map[string]map[string][]models.TsValue         // deviceID -> key -> points
	attributes map[string]map[string]models.AttributeValue    // deviceID -> scope:key -> value
}

// NewStorage creates an empty in-memory backend.
func NewStorage(logger *logrus.Logger) *Storage {
	if logger == nil {
		logger = logrus.New()
	}
	return &Storage{
		logger:     logger,
		dashboards: make(map[string]*models.Dashboard),
		series:     make(map[string]map[string][]models.TsValue),
		attributes: make(map[string]map[string]models.AttributeValue),
	}
}

func (s *Storage) Connect(ctx context.Context) error { return nil }
func (s *Storage) Close() error                      { return nil }
func (s *Storage) Ping(ctx context.Context) error    { return nil }

// LoadDashboard returns a deep copy of the stored document.
func (s *Storage) LoadDashboard(ctx context.Context, id string) (*models.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dashboards[id]
	if !ok {
		return nil, errors.NewStorageError(errors.CodeDashboardNotFound, "dashboard not found").
			WithContext("dashboard_id", id)
	}
	return d.Clone(), nil
}

// SaveDashboard stores a deep copy and assigns an id to new documents.
// The stored copy, id included, is returned as the caller's new
// baseline.
func (s *Storage) SaveDashboard(ctx context.Context, d *models.Dashboard) (*models.Dashboard, error) {
	if d == nil {
		return nil, errors.NewStorageError(errors.CodeWriteFailed, "dashboard is required")
	}
	stored := d.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	s.mu.Lock()
	s.dashboards[stored.ID] = stored
	s.mu.Unlock()
	return stored.Clone(), nil
}

func (s *Storage) DeleteDashboard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dashboards[id]; !ok {
		return errors.NewStorageError(errors.CodeDashboardNotFound, "dashboard not found").
			WithContext("dashboard_id", id)
	}
	delete(s.dashboards, id)
	return nil
}

func (s *Storage) ListDashboards(ctx context.Context) ([]*models.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Dashboard, 0, len(s.dashboards))
	for _, d := range s.dashboards {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// WriteTimeseries appends points, keeping each key's series sorted
// ascending by timestamp.
func (s *Storage) WriteTimeseries(ctx context.Context, deviceID string, values map[string][]models.TsValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	device := s.series[deviceID]
	if device == nil {
		device = make(map[string][]models.TsValue)
		s.series[deviceID] = device
	}
	for key, points := range values {
		merged := append(device[key], points...)
		sort.Slice(merged, func(i, j int) bool { return merged[i].Ts < merged[j].Ts })
		device[key] = merged
	}
	return nil
}

func (s *Storage) WriteAttributes(ctx context.Context, deviceID, scope string, values []models.AttributeValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	device := s.attributes[deviceID]
	if device == nil {
		device = make(map[string]models.AttributeValue)
		s.attributes[deviceID] = device
	}
	for _, v := range values {
		device[scope+":"+v.Key] = v
	}
	return nil
}

// ReadTimeseries returns each key's points within [startTs, endTs],
// sorted ascending. Unknown keys are absent from the result.
func (s *Storage) ReadTimeseries(ctx context.Context, deviceID string, keys []string, startTs, endTs int64) (map[string][]models.TsValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	device := s.series[deviceID]
	out := make(map[string][]models.TsValue, len(keys))
	if device == nil {
		return out, nil
	}
	for _, key := range keys {
		for _, p := range device[key] {
			if p.Ts >= startTs && p.Ts <= endTs {
				out[key] = append(out[key], p)
			}
		}
	}
	return out, nil
}

func (s *Storage) ReadLatestAttributes(ctx context.Context, deviceID, scope string, keys []string) ([]models.AttributeValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	device := s.attributes[deviceID]
	if device == nil {
		return nil, nil
	}
	var out []models.AttributeValue
	for _, key := range keys {
		if v, ok := device[scope+":"+key]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

var (
	_ interfaces.DashboardStore  = (*Storage)(nil)
	_ interfaces.TelemetryReader = (*Storage)(nil)
	_ interfaces.TelemetryWriter = (*Storage)(nil)
	_ interfaces.Storage         = (*Storage)(nil)
)
