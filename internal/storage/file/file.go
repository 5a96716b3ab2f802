package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/errors"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/interfaces"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// StoreConfig contains configuration for the file-backed dashboard store.
type StoreConfig struct {
	BasePath   string `json:"base_path" yaml:"base_path"`
	CreateDirs bool   `json:"create_dirs" yaml:"create_dirs"`
	Pretty     bool   `json:"pretty" yaml:"pretty"`
}

// Store persists dashboards as one JSON document per file under
// BasePath. Writes go through a temp file and rename so a crash never
// leaves a half-written document behind.
type Store struct {
	config *StoreConfig
	logger *logrus.Logger
	mu     sync.RWMutex
}

// NewStore creates a file store rooted at the configured path.
func NewStore(config *StoreConfig, logger *logrus.Logger) (*Store, error) {
	if config == nil {
		return nil, errors.NewStorageError(errors.CodeStorageError, "file store configuration is required")
	}
	if config.BasePath == "" {
		return nil, errors.NewStorageError(errors.CodeStorageError, "base path is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{config: config, logger: logger}, nil
}

// Connect prepares the storage directory.
func (s *Store) Connect(ctx context.Context) error {
	if s.config.CreateDirs {
		if err := os.MkdirAll(s.config.BasePath, 0o755); err != nil {
			return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "failed to create storage directory")
		}
	}
	info, err := os.Stat(s.config.BasePath)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "storage directory unavailable")
	}
	if !info.IsDir() {
		return errors.NewStorageError(errors.CodeConnectionFailed, "storage path is not a directory").
			WithContext("path", s.config.BasePath)
	}
	s.logger.WithField("path", s.config.BasePath).Info("File dashboard store ready")
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(ctx context.Context) error {
	_, err := os.Stat(s.config.BasePath)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed, "storage directory unavailable")
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.config.BasePath, id+".json")
}

// LoadDashboard reads one document by id.
func (s *Store) LoadDashboard(ctx context.Context, id string) (*models.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewStorageError(errors.CodeDashboardNotFound, "dashboard not found").
				WithContext("dashboard_id", id)
		}
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "failed to read dashboard file")
	}

	var d models.Dashboard
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "failed to decode dashboard file").
			WithContext("dashboard_id", id)
	}
	return &d, nil
}

// SaveDashboard writes the document atomically and returns the stored
// copy, with an id assigned for new documents.
func (s *Store) SaveDashboard(ctx context.Context, d *models.Dashboard) (*models.Dashboard, error) {
	if d == nil {
		return nil, errors.NewStorageError(errors.CodeWriteFailed, "dashboard is required")
	}
	stored := d.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	var (
		raw []byte
		err error
	)
	if s.config.Pretty {
		raw, err = json.MarshalIndent(stored, "", "  ")
	} else {
		raw, err = json.Marshal(stored)
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "failed to encode dashboard")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(stored.ID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "failed to write dashboard file")
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "failed to move dashboard file into place")
	}

	s.logger.WithFields(logrus.Fields{
		"dashboard_id": stored.ID,
		"bytes":        len(raw),
	}).Debug("Saved dashboard file")
	return stored.Clone(), nil
}

func (s *Store) DeleteDashboard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return errors.NewStorageError(errors.CodeDashboardNotFound, "dashboard not found").
				WithContext("dashboard_id", id)
		}
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "failed to delete dashboard file")
	}
	return nil
}

// ListDashboards reads every document in the directory, sorted by id.
// Unreadable files are skipped with a warning rather than failing the
// listing.
func (s *Store) ListDashboards(ctx context.Context) ([]*models.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.config.BasePath)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "failed to list storage directory")
	}

	var out []*models.Dashboard
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.config.BasePath, name))
		if err != nil {
			s.logger.WithError(err).WithField("file", name).Warn("Skipping unreadable dashboard file")
			continue
		}
		var d models.Dashboard
		if err := json.Unmarshal(raw, &d); err != nil {
			s.logger.WithError(err).WithField("file", name).Warn("Skipping malformed dashboard file")
			continue
		}
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var (
	_ interfaces.DashboardStore = (*Store)(nil)
	_ interfaces.Storage        = (*Store)(nil)
)
