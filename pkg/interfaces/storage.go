package interfaces

import (
	"context"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// DashboardStore persists dashboard documents. Save may assign or refresh
// identity and server-side fields; callers treat the returned document as
// the new baseline.
type DashboardStore interface {
	LoadDashboard(ctx context.Context, id string) (*models.Dashboard, error)
	SaveDashboard(ctx context.Context, d *models.Dashboard) (*models.Dashboard, error)
	DeleteDashboard(ctx context.Context, id string) error
	ListDashboards(ctx context.Context) ([]*models.Dashboard, error)
}

// TelemetryReader reads device telemetry ranges and latest attribute values.
type TelemetryReader interface {
	// ReadTimeseries returns the values of the given keys within
	// [startTs, endTs] (epoch milliseconds), keyed by name and sorted
	// ascending by timestamp.
	ReadTimeseries(ctx context.Context, deviceID string, keys []string, startTs, endTs int64) (map[string][]models.TsValue, error)

	// ReadLatestAttributes returns the current value of the given attribute
	// keys in the given scope. Missing keys are simply absent from the
	// result.
	ReadLatestAttributes(ctx context.Context, deviceID, scope string, keys []string) ([]models.AttributeValue, error)
}

// TelemetryWriter ingests device telemetry and attribute updates. The
// engine itself only reads; the server's ingest endpoint and tests write.
type TelemetryWriter interface {
	WriteTimeseries(ctx context.Context, deviceID string, values map[string][]models.TsValue) error
	WriteAttributes(ctx context.Context, deviceID, scope string, values []models.AttributeValue) error
}

// Storage is the lifecycle contract storage backends share.
type Storage interface {
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error
}
