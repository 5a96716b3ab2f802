package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/interfaces"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// Telemetry stream protocol frames. Subscriptions are identified by the
// client-chosen cmdId, which is scoped to its connection; updates echo
// it back as subscriptionId.
type wsInbound struct {
	TsSubCmds      []wsTsSubCmd       `json:"tsSubCmds,omitempty"`
	AttrSubCmds    []wsAttrSubCmd     `json:"attrSubCmds,omitempty"`
	UnsubscribeCmd []wsUnsubscribeCmd `json:"unsubscribeCmd,omitempty"`
}

type wsTsSubCmd struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Scope      string `json:"scope,omitempty"`
	CmdID      int    `json:"cmdId"`
	Keys       string `json:"keys,omitempty"`
	StartTs    int64  `json:"startTs,omitempty"`
	TimeWindow int64  `json:"timeWindow,omitempty"`
}

type wsAttrSubCmd struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Scope      string `json:"scope,omitempty"`
	CmdID      int    `json:"cmdId"`
	Keys       string `json:"keys,omitempty"`
}

type wsUnsubscribeCmd struct {
	CmdID int `json:"cmdId"`
}

// wsPair is one [ts, value] tuple on the wire.
type wsPair [2]interface{}

type wsOutbound struct {
	SubscriptionID int                 `json:"subscriptionId"`
	Data           map[string][]wsPair `json:"data,omitempty"`
}

type hubSubscription struct {
	cmdID     int
	deviceID  string
	scope     string
	keys      map[string]struct{}
	allKeys   bool
	attribute bool
}

type hubConnection struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	subs    map[int]*hubSubscription
}

func (hc *hubConnection) write(frame *wsOutbound) error {
	hc.writeMu.Lock()
	defer hc.writeMu.Unlock()
	return hc.conn.WriteJSON(frame)
}

// TelemetryHub serves live telemetry over websockets. Ingest paths call
// the Publish methods; the hub fans updates out to every subscription
// watching the device and keys.
type TelemetryHub struct {
	reader   interfaces.TelemetryReader
	metrics  *Metrics
	logger   *logrus.Logger
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	conns  map[*hubConnection]struct{}
	closed bool
}

// NewTelemetryHub creates a hub backed by the given reader for initial
// subscription data.
func NewTelemetryHub(reader interfaces.TelemetryReader, metrics *Metrics, logger *logrus.Logger) *TelemetryHub {
	if logger == nil {
		logger = logrus.New()
	}
	return &TelemetryHub{
		reader:  reader,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*hubConnection]struct{}),
	}
}

// HandleConnection upgrades the request and serves the connection until
// it drops.
func (h *TelemetryHub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	hc := &hubConnection{conn: conn, subs: make(map[int]*hubSubscription)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.conns[hc] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.wsConnections.Inc()
	}
	h.logger.WithField("remote_addr", conn.RemoteAddr().String()).Debug("Telemetry websocket connected")

	h.readLoop(r.Context(), hc)

	h.mu.Lock()
	delete(h.conns, hc)
	subCount := len(hc.subs)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.wsConnections.Dec()
		h.metrics.wsSubscriptions.Sub(float64(subCount))
	}
	conn.Close()
}

func (h *TelemetryHub) readLoop(ctx context.Context, hc *hubConnection) {
	for {
		var frame wsInbound
		if err := hc.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.WithError(err).Debug("Telemetry websocket read failed")
			}
			return
		}

		for _, cmd := range frame.TsSubCmds {
			sub := &hubSubscription{
				cmdID:    cmd.CmdID,
				deviceID: cmd.EntityID,
				keys:     keySet(cmd.Keys),
			}
			sub.allKeys = len(sub.keys) == 0
			h.register(hc, sub)
			h.sendInitialTimeseries(ctx, hc, sub, cmd)
		}
		for _, cmd := range frame.AttrSubCmds {
			scope := cmd.Scope
			if scope == "" {
				scope = "CLIENT_SCOPE"
			}
			sub := &hubSubscription{
				cmdID:     cmd.CmdID,
				deviceID:  cmd.EntityID,
				scope:     scope,
				keys:      keySet(cmd.Keys),
				attribute: true,
			}
			sub.allKeys = len(sub.keys) == 0
			h.register(hc, sub)
			h.sendInitialAttributes(ctx, hc, sub)
		}
		for _, cmd := range frame.UnsubscribeCmd {
			h.mu.Lock()
			_, existed := hc.subs[cmd.CmdID]
			delete(hc.subs, cmd.CmdID)
			h.mu.Unlock()
			if existed && h.metrics != nil {
				h.metrics.wsSubscriptions.Dec()
			}
		}
	}
}

func (h *TelemetryHub) register(hc *hubConnection, sub *hubSubscription) {
	h.mu.Lock()
	hc.subs[sub.cmdID] = sub
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.wsSubscriptions.Inc()
	}
}

// sendInitialTimeseries pushes the subscription's backlog so the client
// does not start from an empty chart.
func (h *TelemetryHub) sendInitialTimeseries(ctx context.Context, hc *hubConnection, sub *hubSubscription, cmd wsTsSubCmd) {
	if h.reader == nil || len(sub.keys) == 0 {
		return
	}
	startTs := cmd.StartTs
	if startTs <= 0 {
		window := cmd.TimeWindow
		if window <= 0 {
			window = 60000
		}
		startTs = time.Now().UnixMilli() - window
	}
	keys := make([]string, 0, len(sub.keys))
	for k := range sub.keys {
		keys = append(keys, k)
	}
	data, err := h.reader.ReadTimeseries(ctx, sub.deviceID, keys, startTs, time.Now().UnixMilli())
	if err != nil {
		h.logger.WithError(err).WithField("device_id", sub.deviceID).Warn("Initial subscription read failed")
		return
	}
	if frame := buildFrame(sub.cmdID, data); frame != nil {
		if err := hc.write(frame); err != nil {
			h.logger.WithError(err).Debug("Initial subscription write failed")
		}
	}
}

func (h *TelemetryHub) sendInitialAttributes(ctx context.Context, hc *hubConnection, sub *hubSubscription) {
	if h.reader == nil || len(sub.keys) == 0 {
		return
	}
	keys := make([]string, 0, len(sub.keys))
	for k := range sub.keys {
		keys = append(keys, k)
	}
	attrs, err := h.reader.ReadLatestAttributes(ctx, sub.deviceID, sub.scope, keys)
	if err != nil {
		h.logger.WithError(err).WithField("device_id", sub.deviceID).Warn("Initial attribute read failed")
		return
	}
	data := make(map[string][]models.TsValue, len(attrs))
	for _, a := range attrs {
		data[a.Key] = []models.TsValue{{Ts: a.LastUpdateTs, Value: a.Value}}
	}
	if frame := buildFrame(sub.cmdID, data); frame != nil {
		if err := hc.write(frame); err != nil {
			h.logger.WithError(err).Debug("Initial attribute write failed")
		}
	}
}

// PublishTimeseries fans fresh telemetry out to matching subscriptions.
func (h *TelemetryHub) PublishTimeseries(deviceID string, values map[string][]models.TsValue) {
	h.publish(deviceID, "", false, values)
}

// PublishAttributes fans fresh attribute values out to matching
// subscriptions in the scope.
func (h *TelemetryHub) PublishAttributes(deviceID, scope string, values []models.AttributeValue) {
	data := make(map[string][]models.TsValue, len(values))
	for _, v := range values {
		data[v.Key] = []models.TsValue{{Ts: v.LastUpdateTs, Value: v.Value}}
	}
	h.publish(deviceID, scope, true, data)
}

func (h *TelemetryHub) publish(deviceID, scope string, attribute bool, values map[string][]models.TsValue) {
	if len(values) == 0 {
		return
	}

	h.mu.RLock()
	type delivery struct {
		hc    *hubConnection
		frame *wsOutbound
	}
	var deliveries []delivery
	for hc := range h.conns {
		for _, sub := range hc.subs {
			if sub.deviceID != deviceID || sub.attribute != attribute {
				continue
			}
			if attribute && sub.scope != scope {
				continue
			}
			matched := filterKeys(values, sub)
			if frame := buildFrame(sub.cmdID, matched); frame != nil {
				deliveries = append(deliveries, delivery{hc: hc, frame: frame})
			}
		}
	}
	h.mu.RUnlock()

	for _, d := range deliveries {
		if err := d.hc.write(d.frame); err != nil {
			h.logger.WithError(err).Debug("Telemetry push failed")
		}
	}
}

// Close drops every connection.
func (h *TelemetryHub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*hubConnection, 0, len(h.conns))
	for hc := range h.conns {
		conns = append(conns, hc)
	}
	h.conns = make(map[*hubConnection]struct{})
	h.mu.Unlock()

	for _, hc := range conns {
		hc.conn.Close()
	}
}

func keySet(raw string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, key := range splitKeys(raw) {
		out[key] = struct{}{}
	}
	return out
}

func filterKeys(values map[string][]models.TsValue, sub *hubSubscription) map[string][]models.TsValue {
	if sub.allKeys {
		return values
	}
	out := make(map[string][]models.TsValue)
	for key, points := range values {
		if _, ok := sub.keys[key]; ok {
			out[key] = points
		}
	}
	return out
}

func buildFrame(cmdID int, data map[string][]models.TsValue) *wsOutbound {
	if len(data) == 0 {
		return nil
	}
	out := make(map[string][]wsPair, len(data))
	for key, points := range data {
		pairs := make([]wsPair, 0, len(points))
		for _, p := range points {
			pairs = append(pairs, wsPair{p.Ts, p.Value})
		}
		if len(pairs) > 0 {
			out[key] = pairs
		}
	}
	if len(out) == 0 {
		return nil
	}
	return &wsOutbound{SubscriptionID: cmdID, Data: out}
}
