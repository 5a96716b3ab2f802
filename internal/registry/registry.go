package registry

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/errors"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// Renderer turns a widget and its resolved data snapshot into a
// serializable view model. Implementations must not panic on malformed
// settings; a failed device command is reported inside the view model,
// never returned as an error here.
type Renderer interface {
	Render(widget *models.Widget, snapshot *models.Snapshot) (*RenderResult, error)
}

// RenderResult is one widget's rendered payload plus its view-model kind.
type RenderResult struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload"`
}

// Definition is one registry entry: metadata plus the rendering
// capability for a widget-type key.
type Definition struct {
	Type         string
	Category     models.WidgetCategory
	Label        string
	Description  string
	DefaultSizeX int
	DefaultSizeY int
	Renderer     Renderer
}

// Registry is the closed mapping from widget-type keys to definitions.
// It is constructed and populated once at startup, then read-only; an
// instance is passed by reference wherever type resolution is needed.
type Registry struct {
	mu          sync.RWMutex
	sealed      bool
	types       map[string]*Definition
	placeholder *Definition
	logger      *logrus.Logger
}

// New creates an empty registry.
func New(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		types:  make(map[string]*Definition),
		logger: logger,
	}
}

// Register adds one definition. Registration fails after Seal or for a
// duplicate key.
func (r *Registry) Register(def *Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return errors.NewAppError(errors.ErrorTypeRegistry, errors.CodeDuplicateType, "registry is sealed")
	}
	if _, exists := r.types[def.Type]; exists {
		return errors.NewAppError(errors.ErrorTypeRegistry, errors.CodeDuplicateType, "widget type already registered").
			WithContext("type", def.Type)
	}
	r.types[def.Type] = def
	r.logger.WithField("type", def.Type).Debug("Registered widget type")
	return nil
}

// Seal marks the population phase as finished. Later Register calls fail.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Lookup returns the definition for a type key.
func (r *Registry) Lookup(typeKey string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.types[typeKey]
	return def, ok
}

// All returns every definition sorted by type key, for UIs that list the
// available widget types.
func (r *Registry) All() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, 0, len(r.types))
	for _, def := range r.types {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
