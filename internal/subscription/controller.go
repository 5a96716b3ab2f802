package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/errors"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/interfaces"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// Mode selects how a controller fetches data.
type Mode string

const (
	// ModePolling fetches snapshots on a fixed interval.
	ModePolling Mode = "polling"
	// ModeStreaming receives pushed updates over a stream channel.
	ModeStreaming Mode = "streaming"
)

const (
	// DefaultPollInterval is used when the config does not set one.
	DefaultPollInterval = 5 * time.Second

	// MaxPointsPerKey caps how many points a streamed series retains.
	// Older points fall off the front once the cap is reached.
	MaxPointsPerKey = 500

	// DefaultStreamWindowMs is the telemetry subscription window used
	// when the widget carries no realtime timewindow.
	DefaultStreamWindowMs = 60000

	// AttributeScope is the attribute scope widgets read from.
	AttributeScope = "CLIENT_SCOPE"
)

// Config describes one widget's data binding.
type Config struct {
	Datasources  []*models.Datasource
	Timewindow   *models.Timewindow
	PollInterval time.Duration
	Mode         Mode
}

// Controller owns the data lifecycle of one widget binding: it fetches
// or receives telemetry for the configured datasources and publishes
// consolidated snapshots to its listeners. A controller is started at
// most once; after Stop it cannot be restarted.
type Controller struct {
	cfg    Config
	reader interfaces.TelemetryReader
	stream interfaces.StreamChannel
	logger *logrus.Logger

	mu        sync.Mutex
	started   bool
	stopped   bool
	cancel    context.CancelFunc
	done      chan struct{}
	intervalC chan time.Duration
	handles   []interfaces.SubscriptionHandle
	snapshot  models.Snapshot
	listeners []func(models.Snapshot)
}

// New builds a controller. reader is required for polling mode, stream
// for streaming mode.
func New(cfg Config, reader interfaces.TelemetryReader, stream interfaces.StreamChannel, logger *logrus.Logger) *Controller {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Mode == "" {
		cfg.Mode = ModePolling
	}
	return &Controller{
		cfg:       cfg,
		reader:    reader,
		stream:    stream,
		logger:    logger,
		intervalC: make(chan time.Duration, 1),
	}
}

// OnUpdate registers a snapshot listener. Listeners registered before
// Start receive every snapshot; late listeners receive the next one.
func (c *Controller) OnUpdate(fn func(models.Snapshot)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Snapshot returns a copy of the current snapshot.
func (c *Controller) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copySnapshot(c.snapshot)
}

// Start begins data delivery. With no datasources the controller goes
// straight to an empty loaded snapshot and performs no fetches.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return errors.NewSubscriptionError(errors.CodeSubscriptionClosed, "controller already started or stopped")
	}
	c.started = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.snapshot = models.Snapshot{Loading: true}
	c.mu.Unlock()

	if len(c.cfg.Datasources) == 0 {
		c.publish(func(s *models.Snapshot) {
			s.Loading = false
			s.Entries = nil
		})
		close(c.done)
		return nil
	}

	switch c.cfg.Mode {
	case ModeStreaming:
		if err := c.startStreaming(); err != nil {
			close(c.done)
			return err
		}
		close(c.done)
		return nil
	default:
		go c.pollLoop(runCtx)
		return nil
	}
}

// SetPollInterval changes the polling cadence. The running ticker is
// replaced on delivery; streaming controllers ignore it.
func (c *Controller) SetPollInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case c.intervalC <- d:
	default:
	}
}

// Stop tears the controller down: the poll loop exits and every stream
// subscription is released. Stop is idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cancel := c.cancel
	done := c.done
	handles := c.handles
	c.handles = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	for _, h := range handles {
		if err := c.stream.Unsubscribe(h); err != nil {
			c.logger.WithError(err).WithField("handle", int(h)).Warn("Failed to release stream subscription")
		}
	}
}

// publish mutates the snapshot under the lock and fans the result out.
func (c *Controller) publish(mutate func(*models.Snapshot)) {
	c.mu.Lock()
	mutate(&c.snapshot)
	snap := copySnapshot(c.snapshot)
	listeners := make([]func(models.Snapshot), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func copySnapshot(s models.Snapshot) models.Snapshot {
	out := models.Snapshot{Loading: s.Loading, Error: s.Error}
	if s.Entries != nil {
		out.Entries = make([]models.DataEntry, len(s.Entries))
		for i, e := range s.Entries {
			values := make([]models.TsValue, len(e.Values))
			copy(values, e.Values)
			out.Entries[i] = models.DataEntry{Key: e.Key, Label: e.Label, Values: values}
		}
	}
	return out
}
