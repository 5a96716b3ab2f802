package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/errors"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/interfaces"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// Config holds Redis telemetry storage configuration.
type Config struct {
	Addr         string        `json:"addr" yaml:"addr"`
	Password     string        `json:"password" yaml:"password"`
	DB           int           `json:"db" yaml:"db"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size"`
	KeyPrefix    string        `json:"key_prefix" yaml:"key_prefix"`
	TTL          time.Duration `json:"ttl" yaml:"ttl"`
	MaxPoints    int64         `json:"max_points" yaml:"max_points"`
}

// Storage keeps recent telemetry in sorted sets scored by timestamp and
// attributes in per-scope hashes. It serves the hot read path of
// realtime widgets; long-range history lives in the time-series store.
type Storage struct {
	config *Config
	client *redis.Client
	logger *logrus.Logger
}

// NewStorage creates a Redis telemetry backend.
func NewStorage(config *Config, logger *logrus.Logger) (*Storage, error) {
	if config == nil {
		return nil, errors.NewStorageError(errors.CodeStorageError, "redis configuration is required")
	}
	if config.Addr == "" {
		return nil, errors.NewStorageError(errors.CodeStorageError, "redis address is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "telemetry"
	}
	if config.MaxPoints <= 0 {
		config.MaxPoints = 1000
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolSize:     config.PoolSize,
	})

	return &Storage{config: config, client: client, logger: logger}, nil
}

// Connect verifies the connection.
func (s *Storage) Connect(ctx context.Context) error {
	if _, err := s.client.Ping(ctx).Result(); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "failed to connect to Redis")
	}
	s.logger.WithField("addr", s.config.Addr).Info("Connected to Redis")
	return nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	if _, err := s.client.Ping(ctx).Result(); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "redis ping failed")
	}
	return nil
}

func (s *Storage) seriesKey(deviceID, key string) string {
	return fmt.Sprintf("%s:ts:%s:%s", s.config.KeyPrefix, deviceID, key)
}

func (s *Storage) attributesKey(deviceID, scope string) string {
	return fmt.Sprintf("%s:attr:%s:%s", s.config.KeyPrefix, deviceID, scope)
}

// WriteTimeseries appends points to each key's sorted set, trimming the
// set to the configured point cap.
func (s *Storage) WriteTimeseries(ctx context.Context, deviceID string, values map[string][]models.TsValue) error {
	pipe := s.client.Pipeline()
	for key, points := range values {
		seriesKey := s.seriesKey(deviceID, key)
		for _, p := range points {
			member, err := json.Marshal(p)
			if err != nil {
				return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "failed to encode telemetry point")
			}
			pipe.ZAdd(ctx, seriesKey, &redis.Z{Score: float64(p.Ts), Member: string(member)})
		}
		pipe.ZRemRangeByRank(ctx, seriesKey, 0, -(s.config.MaxPoints + 1))
		if s.config.TTL > 0 {
			pipe.Expire(ctx, seriesKey, s.config.TTL)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "failed to write telemetry to Redis")
	}
	return nil
}

// WriteAttributes upserts attribute values into the scope hash.
func (s *Storage) WriteAttributes(ctx context.Context, deviceID, scope string, values []models.AttributeValue) error {
	if len(values) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(values))
	for _, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "failed to encode attribute")
		}
		fields[v.Key] = string(raw)
	}
	attrKey := s.attributesKey(deviceID, scope)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, attrKey, fields)
	if s.config.TTL > 0 {
		pipe.Expire(ctx, attrKey, s.config.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "failed to write attributes to Redis")
	}
	return nil
}

// ReadTimeseries returns each key's points within [startTs, endTs] by
// score range, ascending. Corrupt members are skipped.
func (s *Storage) ReadTimeseries(ctx context.Context, deviceID string, keys []string, startTs, endTs int64) (map[string][]models.TsValue, error) {
	out := make(map[string][]models.TsValue, len(keys))
	for _, key := range keys {
		members, err := s.client.ZRangeByScore(ctx, s.seriesKey(deviceID, key), &redis.ZRangeBy{
			Min: strconv.FormatInt(startTs, 10),
			Max: strconv.FormatInt(endTs, 10),
		}).Result()
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "failed to read telemetry from Redis").
				WithContext("device_id", deviceID).
				WithContext("key", key)
		}
		for _, member := range members {
			var p models.TsValue
			if err := json.Unmarshal([]byte(member), &p); err != nil {
				s.logger.WithError(err).WithField("key", key).Warn("Skipping corrupt telemetry member")
				continue
			}
			out[key] = append(out[key], p)
		}
	}
	return out, nil
}

// ReadLatestAttributes returns the requested keys present in the scope
// hash; missing keys are simply absent.
func (s *Storage) ReadLatestAttributes(ctx context.Context, deviceID, scope string, keys []string) ([]models.AttributeValue, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	raws, err := s.client.HMGet(ctx, s.attributesKey(deviceID, scope), keys...).Result()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "failed to read attributes from Redis").
			WithContext("device_id", deviceID)
	}
	var out []models.AttributeValue
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var v models.AttributeValue
		if err := json.Unmarshal([]byte(str), &v); err != nil {
			s.logger.WithError(err).WithField("key", keys[i]).Warn("Skipping corrupt attribute member")
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

var (
	_ interfaces.TelemetryReader = (*Storage)(nil)
	_ interfaces.TelemetryWriter = (*Storage)(nil)
	_ interfaces.Storage         = (*Storage)(nil)
)
