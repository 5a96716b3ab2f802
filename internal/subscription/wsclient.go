package subscription

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/errors"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/interfaces"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

const (
	maxReconnectAttempts = 5
	reconnectBaseDelay   = 2 * time.Second
)

// wsCommand is one outbound frame of the telemetry stream protocol.
// A frame carries exactly one command list.
type wsCommand struct {
	TsSubCmds      []tsSubCmd      `json:"tsSubCmds,omitempty"`
	AttrSubCmds    []attrSubCmd    `json:"attrSubCmds,omitempty"`
	UnsubscribeCmd []unsubscribeCmd `json:"unsubscribeCmd,omitempty"`
}

type tsSubCmd struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Scope      string `json:"scope,omitempty"`
	CmdID      int    `json:"cmdId"`
	Keys       string `json:"keys,omitempty"`
	StartTs    int64  `json:"startTs,omitempty"`
	TimeWindow int64  `json:"timeWindow,omitempty"`
}

type attrSubCmd struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Scope      string `json:"scope,omitempty"`
	CmdID      int    `json:"cmdId"`
	Keys       string `json:"keys,omitempty"`
}

type unsubscribeCmd struct {
	CmdID int `json:"cmdId"`
}

// wsUpdate is one inbound frame. Data values arrive as [ts, value]
// pairs keyed by telemetry key.
type wsUpdate struct {
	SubscriptionID *int                         `json:"subscriptionId"`
	Data           map[string][]json.RawMessage `json:"data"`
}

type wsSubscription struct {
	cmdID     int
	subscribe wsCommand
	onMessage func(interfaces.StreamMessage)
}

// WSClient is a StreamChannel over a telemetry websocket. Commands sent
// while the connection is down queue up and flush on (re)connect;
// reconnects back off exponentially and give up after five attempts.
type WSClient struct {
	url    string
	logger *logrus.Logger

	mu                sync.Mutex
	conn              *websocket.Conn
	connecting        bool
	closed            bool
	cmdID             int
	subs              map[int]*wsSubscription
	pending           []wsCommand
	reconnectAttempts int
}

// NewWSClient creates a client for the given telemetry endpoint URL. The
// connection opens lazily on the first Subscribe.
func NewWSClient(url string, logger *logrus.Logger) *WSClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &WSClient{
		url:    url,
		logger: logger,
		subs:   make(map[int]*wsSubscription),
	}
}

// Subscribe opens one protocol subscription and routes its updates to
// onMessage. The returned handle is the protocol command id.
func (c *WSClient) Subscribe(spec interfaces.StreamSpec, onMessage func(interfaces.StreamMessage)) (interfaces.SubscriptionHandle, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, errors.ErrSubscriptionClosed
	}
	c.cmdID++
	cmdID := c.cmdID

	var cmd wsCommand
	if spec.Scope != "" {
		cmd.AttrSubCmds = []attrSubCmd{{
			EntityType: spec.EntityType,
			EntityID:   spec.EntityID,
			Scope:      spec.Scope,
			CmdID:      cmdID,
			Keys:       spec.Keys,
		}}
	} else {
		window := spec.TimeWindowMs
		if window <= 0 {
			window = DefaultStreamWindowMs
		}
		cmd.TsSubCmds = []tsSubCmd{{
			EntityType: spec.EntityType,
			EntityID:   spec.EntityID,
			Scope:      "LATEST_TELEMETRY",
			CmdID:      cmdID,
			Keys:       spec.Keys,
			StartTs:    time.Now().UnixMilli() - window,
			TimeWindow: window,
		}}
	}

	c.subs[cmdID] = &wsSubscription{cmdID: cmdID, subscribe: cmd, onMessage: onMessage}
	c.mu.Unlock()

	c.sendCommand(cmd)
	return interfaces.SubscriptionHandle(cmdID), nil
}

// Unsubscribe stops routing for the handle and tells the server to drop
// the subscription.
func (c *WSClient) Unsubscribe(handle interfaces.SubscriptionHandle) error {
	cmdID := int(handle)
	c.mu.Lock()
	if _, ok := c.subs[cmdID]; !ok {
		c.mu.Unlock()
		return errors.NewSubscriptionError(errors.CodeSubscriptionClosed, "unknown subscription handle").
			WithContext("handle", cmdID)
	}
	delete(c.subs, cmdID)
	c.mu.Unlock()

	c.sendCommand(wsCommand{UnsubscribeCmd: []unsubscribeCmd{{CmdID: cmdID}}})
	return nil
}

// Close tears the connection down and drops all subscriptions and
// pending commands.
func (c *WSClient) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.subs = make(map[int]*wsSubscription)
	c.pending = nil
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// sendCommand writes the frame if connected, otherwise queues it and
// kicks off a connection attempt.
func (c *WSClient) sendCommand(cmd wsCommand) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		if !c.closed {
			c.pending = append(c.pending, cmd)
		}
		c.mu.Unlock()
		c.connect()
		return
	}
	c.mu.Unlock()

	if err := conn.WriteJSON(cmd); err != nil {
		c.logger.WithError(err).Warn("Telemetry stream write failed")
		c.mu.Lock()
		if !c.closed {
			c.pending = append(c.pending, cmd)
		}
		c.mu.Unlock()
	}
}

// connect dials the endpoint, flushes queued commands and starts the
// read loop. Concurrent calls collapse into one attempt.
func (c *WSClient) connect() {
	c.mu.Lock()
	if c.closed || c.connecting || c.conn != nil {
		c.mu.Unlock()
		return
	}
	c.connecting = true
	c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)

	c.mu.Lock()
	c.connecting = false
	if err != nil {
		c.mu.Unlock()
		c.logger.WithError(err).WithField("url", c.url).Warn("Telemetry stream dial failed")
		c.scheduleReconnect()
		return
	}
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.reconnectAttempts = 0
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, cmd := range pending {
		if err := conn.WriteJSON(cmd); err != nil {
			c.logger.WithError(err).Warn("Failed to flush pending stream command")
		}
	}

	go c.readLoop(conn)
}

// scheduleReconnect retries the dial with exponential backoff, giving up
// after maxReconnectAttempts.
func (c *WSClient) scheduleReconnect() {
	c.mu.Lock()
	if c.closed || c.reconnectAttempts >= maxReconnectAttempts {
		c.mu.Unlock()
		return
	}
	attempt := c.reconnectAttempts
	c.reconnectAttempts++
	c.mu.Unlock()

	delay := reconnectBaseDelay * time.Duration(1<<attempt)
	c.logger.WithFields(logrus.Fields{
		"attempt": attempt + 1,
		"delay":   delay.String(),
	}).Info("Reconnecting telemetry stream")

	time.AfterFunc(delay, func() {
		c.mu.Lock()
		var resubscribe []wsCommand
		for _, sub := range c.subs {
			resubscribe = append(resubscribe, sub.subscribe)
		}
		c.pending = append(c.pending, resubscribe...)
		c.mu.Unlock()
		c.connect()
	})
}

// readLoop routes inbound updates to their subscription by id until the
// connection drops, then triggers a reconnect.
func (c *WSClient) readLoop(conn *websocket.Conn) {
	for {
		var update wsUpdate
		if err := conn.ReadJSON(&update); err != nil {
			c.mu.Lock()
			dropped := c.conn == conn
			if dropped {
				c.conn = nil
			}
			closed := c.closed
			c.mu.Unlock()

			if dropped && !closed {
				c.logger.WithError(err).Warn("Telemetry stream disconnected")
				c.scheduleReconnect()
			}
			return
		}
		if update.SubscriptionID == nil {
			continue
		}

		c.mu.Lock()
		sub, ok := c.subs[*update.SubscriptionID]
		c.mu.Unlock()
		if !ok {
			continue
		}

		msg := interfaces.StreamMessage{
			SubscriptionID: *update.SubscriptionID,
			Data:           decodeSeriesPairs(update.Data),
		}
		sub.onMessage(msg)
	}
}

// decodeSeriesPairs converts wire [ts, value] pairs into typed points.
// Malformed pairs are skipped rather than failing the frame.
func decodeSeriesPairs(data map[string][]json.RawMessage) map[string][]models.TsValue {
	if len(data) == 0 {
		return nil
	}
	out := make(map[string][]models.TsValue, len(data))
	for key, raws := range data {
		values := make([]models.TsValue, 0, len(raws))
		for _, raw := range raws {
			var pair []json.RawMessage
			if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
				continue
			}
			var ts int64
			if err := json.Unmarshal(pair[0], &ts); err != nil {
				continue
			}
			var value string
			if err := json.Unmarshal(pair[1], &value); err != nil {
				// numeric values arrive unquoted
				var num float64
				if err := json.Unmarshal(pair[1], &num); err != nil {
					continue
				}
				value = strconv.FormatFloat(num, 'f', -1, 64)
			}
			values = append(values, models.TsValue{Ts: ts, Value: value})
		}
		if len(values) > 0 {
			out[key] = values
		}
	}
	return out
}

var _ interfaces.StreamChannel = (*WSClient)(nil)

// TokenURL builds the telemetry endpoint URL with an auth token query
// parameter.
func TokenURL(base, token string) string {
	if token == "" {
		return base
	}
	return fmt.Sprintf("%s?token=%s", base, token)
}
