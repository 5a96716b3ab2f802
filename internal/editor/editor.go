package editor

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/errors"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/interfaces"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// Editor owns one editing session and serializes every transition through
// a single dispatcher. The reducer itself never suspends; load and save
// run here, outside the pure transition layer, and feed their outcome back
// in as actions.
type Editor struct {
	store    interfaces.DashboardStore
	logger   *logrus.Logger
	mu       sync.Mutex
	session  Session
	watchers []func(Session)
}

// NewEditor creates an editor with an empty session.
func NewEditor(store interfaces.DashboardStore, logger *logrus.Logger) *Editor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Editor{
		store:  store,
		logger: logger,
	}
}

// Session returns the current session snapshot.
func (e *Editor) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Dispatch applies one action and notifies watchers. Actions are applied
// strictly in call order.
func (e *Editor) Dispatch(a Action) Session {
	e.mu.Lock()
	e.session = Apply(e.session, a)
	next := e.session
	watchers := e.watchers
	e.mu.Unlock()

	for _, w := range watchers {
		w(next)
	}
	return next
}

// Watch registers a callback invoked after every applied action with the
// resulting session. Used by the grid layer to regenerate geometry.
func (e *Editor) Watch(fn func(Session)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.watchers = append(e.watchers, fn)
}

// Load fetches a document and installs it as working copy and baseline.
// On failure the session is left without a document and the error is
// returned to the caller.
func (e *Editor) Load(ctx context.Context, id string) error {
	doc, err := e.store.LoadDashboard(ctx, id)
	if err != nil {
		e.logger.WithError(err).WithField("dashboard_id", id).Error("Failed to load dashboard")
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "failed to load dashboard")
	}
	e.Dispatch(Load{Document: doc})
	e.logger.WithField("dashboard_id", id).Info("Loaded dashboard")
	return nil
}

// Save flushes the working copy through the persistence API. A second save
// while one is outstanding is rejected here, guarded by SaveInFlight; the
// transition layer never enforces it. Save is not cancellable once the
// persistence call is issued.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.session.Document == nil {
		e.mu.Unlock()
		return errors.ErrNoDocument
	}
	if e.session.SaveInFlight {
		e.mu.Unlock()
		return errors.ErrSaveInFlight
	}
	e.session = Apply(e.session, SaveStart{})
	doc := e.session.Document
	started := e.session
	watchers := e.watchers
	e.mu.Unlock()

	for _, w := range watchers {
		w(started)
	}

	saved, err := e.store.SaveDashboard(ctx, doc)
	if err != nil {
		e.logger.WithError(err).WithField("dashboard_id", doc.ID).Error("Failed to save dashboard")
		e.Dispatch(SaveFailed{})
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "failed to save dashboard")
	}
	e.Dispatch(SaveSucceeded{Document: saved})
	e.logger.WithField("dashboard_id", saved.ID).Info("Saved dashboard")
	return nil
}

// NewWidgetID mints an opaque widget identity, stable for the document's
// lifetime.
func NewWidgetID() string {
	return "widget-" + uuid.NewString()
}

// NewWidget builds a widget of the given registry type at the given
// placement with the type's default geometry already applied by callers.
func NewWidget(category models.WidgetCategory, typeKey, title string, sizeX, sizeY int) *models.Widget {
	return &models.Widget{
		ID:    NewWidgetID(),
		Type:  category,
		Title: title,
		SizeX: sizeX,
		SizeY: sizeY,
		Config: &models.WidgetConfig{
			Title:     title,
			ShowTitle: true,
			Settings:  map[string]interface{}{"widgetType": typeKey},
		},
	}
}
