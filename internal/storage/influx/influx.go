package influx

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sirupsen/logrus"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/errors"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/interfaces"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// Config contains InfluxDB connection configuration.
type Config struct {
	URL           string        `json:"url" yaml:"url"`
	Token         string        `json:"token" yaml:"token"`
	Organization  string        `json:"organization" yaml:"organization"`
	Bucket        string        `json:"bucket" yaml:"bucket"`
	BatchSize     int           `json:"batch_size" yaml:"batch_size"`
	FlushInterval time.Duration `json:"flush_interval" yaml:"flush_interval"`
}

// Storage reads and writes device telemetry in InfluxDB. Points live in
// the "telemetry" measurement tagged by device and key, so ranged widget
// reads translate directly to a Flux range + filter.
type Storage struct {
	config   *Config
	client   influxdb2.Client
	writeAPI api.WriteAPI
	queryAPI api.QueryAPI
	logger   *logrus.Logger
}

// NewStorage creates an InfluxDB telemetry backend.
func NewStorage(config *Config, logger *logrus.Logger) (*Storage, error) {
	if config == nil {
		return nil, errors.NewStorageError(errors.CodeStorageError, "InfluxDB configuration is required")
	}
	if config.URL == "" || config.Bucket == "" {
		return nil, errors.NewStorageError(errors.CodeStorageError, "InfluxDB url and bucket are required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if config.BatchSize == 0 {
		config.BatchSize = 1000
	}
	if config.FlushInterval == 0 {
		config.FlushInterval = time.Second
	}

	client := influxdb2.NewClientWithOptions(
		config.URL,
		config.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(config.BatchSize)).
			SetFlushInterval(uint(config.FlushInterval.Milliseconds())).
			SetPrecision(time.Millisecond),
	)

	s := &Storage{
		config: config,
		client: client,
		logger: logger,
	}
	s.writeAPI = client.WriteAPI(config.Organization, config.Bucket)
	s.queryAPI = client.QueryAPI(config.Organization)

	go s.handleWriteErrors()
	return s, nil
}

func (s *Storage) handleWriteErrors() {
	for err := range s.writeAPI.Errors() {
		s.logger.WithError(err).Error("InfluxDB async write failed")
	}
}

// Connect verifies the server is healthy.
func (s *Storage) Connect(ctx context.Context) error {
	health, err := s.client.Health(ctx)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "failed to connect to InfluxDB")
	}
	if health.Status != "pass" {
		return errors.NewStorageError(errors.CodeConnectionFailed, fmt.Sprintf("InfluxDB health check failed: %s", deref(health.Message)))
	}
	s.logger.WithField("url", s.config.URL).Info("Connected to InfluxDB")
	return nil
}

func (s *Storage) Close() error {
	s.writeAPI.Flush()
	s.client.Close()
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	health, err := s.client.Health(ctx)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "failed to ping InfluxDB")
	}
	if health.Status != "pass" {
		return errors.NewStorageError(errors.CodeConnectionFailed, fmt.Sprintf("InfluxDB health check failed: %s", deref(health.Message)))
	}
	return nil
}

// WriteTimeseries writes points through the async batch writer. Numeric
// values are stored as floats, everything else as strings.
func (s *Storage) WriteTimeseries(ctx context.Context, deviceID string, values map[string][]models.TsValue) error {
	for key, points := range values {
		for _, pt := range points {
			p := influxdb2.NewPointWithMeasurement("telemetry").
				AddTag("device_id", deviceID).
				AddTag("key", key).
				SetTime(time.UnixMilli(pt.Ts))
			if num, err := strconv.ParseFloat(pt.Value, 64); err == nil {
				p.AddField("value", num)
			} else {
				p.AddField("value_str", pt.Value)
			}
			s.writeAPI.WritePoint(p)
		}
	}
	return nil
}

// WriteAttributes stores attributes as latest-value points in the
// "attributes" measurement tagged by scope.
func (s *Storage) WriteAttributes(ctx context.Context, deviceID, scope string, values []models.AttributeValue) error {
	for _, v := range values {
		p := influxdb2.NewPointWithMeasurement("attributes").
			AddTag("device_id", deviceID).
			AddTag("scope", scope).
			AddTag("key", v.Key).
			AddField("value", v.Value).
			SetTime(time.UnixMilli(v.LastUpdateTs))
		s.writeAPI.WritePoint(p)
	}
	return nil
}

// ReadTimeseries queries each requested key's points in [startTs, endTs]
// sorted ascending by time.
func (s *Storage) ReadTimeseries(ctx context.Context, deviceID string, keys []string, startTs, endTs int64) (map[string][]models.TsValue, error) {
	if len(keys) == 0 {
		return map[string][]models.TsValue{}, nil
	}

	filters := make([]string, 0, len(keys))
	for _, key := range keys {
		filters = append(filters, fmt.Sprintf(`r.key == "%s"`, key))
	}

	query := fmt.Sprintf(`
		from(bucket: "%s")
		|> range(start: time(v: %d), stop: time(v: %d))
		|> filter(fn: (r) => r._measurement == "telemetry" and r.device_id == "%s")
		|> filter(fn: (r) => %s)
		|> sort(columns: ["_time"])
	`, s.config.Bucket, startTs*int64(time.Millisecond), (endTs+1)*int64(time.Millisecond), deviceID, strings.Join(filters, " or "))

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "failed to query InfluxDB").
			WithContext("device_id", deviceID)
	}
	defer result.Close()

	out := make(map[string][]models.TsValue, len(keys))
	for result.Next() {
		record := result.Record()
		key, _ := record.ValueByKey("key").(string)
		if key == "" {
			continue
		}
		out[key] = append(out[key], models.TsValue{
			Ts:    record.Time().UnixMilli(),
			Value: formatValue(record.Value()),
		})
	}
	if result.Err() != nil {
		return nil, errors.WrapError(result.Err(), errors.ErrorTypeStorage, errors.CodeReadFailed, "InfluxDB query iteration failed")
	}
	return out, nil
}

// ReadLatestAttributes returns the newest stored point per attribute key.
func (s *Storage) ReadLatestAttributes(ctx context.Context, deviceID, scope string, keys []string) ([]models.AttributeValue, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	filters := make([]string, 0, len(keys))
	for _, key := range keys {
		filters = append(filters, fmt.Sprintf(`r.key == "%s"`, key))
	}

	query := fmt.Sprintf(`
		from(bucket: "%s")
		|> range(start: 0)
		|> filter(fn: (r) => r._measurement == "attributes" and r.device_id == "%s" and r.scope == "%s")
		|> filter(fn: (r) => %s)
		|> last()
	`, s.config.Bucket, deviceID, scope, strings.Join(filters, " or "))

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "failed to query InfluxDB attributes").
			WithContext("device_id", deviceID)
	}
	defer result.Close()

	var out []models.AttributeValue
	for result.Next() {
		record := result.Record()
		key, _ := record.ValueByKey("key").(string)
		if key == "" {
			continue
		}
		out = append(out, models.AttributeValue{
			Key:          key,
			Value:        formatValue(record.Value()),
			LastUpdateTs: record.Time().UnixMilli(),
		})
	}
	if result.Err() != nil {
		return nil, errors.WrapError(result.Err(), errors.ErrorTypeStorage, errors.CodeReadFailed, "InfluxDB query iteration failed")
	}
	return out, nil
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var (
	_ interfaces.TelemetryReader = (*Storage)(nil)
	_ interfaces.TelemetryWriter = (*Storage)(nil)
	_ interfaces.Storage         = (*Storage)(nil)
)
