package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

type wsTestFrame struct {
	SubscriptionID int                         `json:"subscriptionId"`
	Data           map[string][][2]interface{} `json:"data"`
}

func dialHub(t *testing.T, srv *Server) (*httptest.Server, *websocket.Conn) {
	t.Helper()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws/plugins/telemetry"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return ts, conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsTestFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame wsTestFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestTelemetryWebsocketInitialData(t *testing.T) {
	srv, backend := testServer(t, nil)

	now := time.Now().UnixMilli()
	require.NoError(t, backend.WriteTimeseries(context.Background(), "device-1", map[string][]models.TsValue{
		"temperature": {{Ts: now - 1000, Value: "21.5"}},
	}))

	_, conn := dialHub(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"tsSubCmds": []map[string]interface{}{{
			"entityType": "DEVICE",
			"entityId":   "device-1",
			"cmdId":      7,
			"keys":       "temperature",
			"startTs":    now - 60000,
		}},
	}))

	frame := readFrame(t, conn)
	assert.Equal(t, 7, frame.SubscriptionID)
	require.Len(t, frame.Data["temperature"], 1)
	assert.Equal(t, "21.5", frame.Data["temperature"][0][1])
}

func TestTelemetryWebsocketLivePush(t *testing.T) {
	srv, _ := testServer(t, nil)

	_, conn := dialHub(t, srv)
	now := time.Now().UnixMilli()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"tsSubCmds": []map[string]interface{}{{
			"entityType": "DEVICE",
			"entityId":   "device-1",
			"cmdId":      1,
			"keys":       "temperature,humidity",
			"startTs":    now - 1000,
		}},
	}))

	// No backlog, so the first frame seen is the live push. The hub
	// registers the subscription in its read loop; poll until the push
	// lands.
	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	done := make(chan wsTestFrame, 1)
	go func() {
		var frame wsTestFrame
		if err := conn.ReadJSON(&frame); err == nil {
			done <- frame
		}
	}()

	var frame wsTestFrame
	delivered := false
	for time.Now().Before(deadline) {
		srv.Hub().PublishTimeseries("device-1", map[string][]models.TsValue{
			"temperature": {{Ts: now, Value: "22.0"}},
			"pressure":    {{Ts: now, Value: "1013"}},
		})
		select {
		case frame = <-done:
			delivered = true
		case <-time.After(50 * time.Millisecond):
		}
		if delivered {
			break
		}
	}
	require.True(t, delivered, "live update never arrived")

	assert.Equal(t, 1, frame.SubscriptionID)
	require.Len(t, frame.Data["temperature"], 1)
	assert.Equal(t, "22.0", frame.Data["temperature"][0][1])
	// pressure is not in the subscribed key list
	assert.NotContains(t, frame.Data, "pressure")
}

func TestTelemetryWebsocketAttributeSubscription(t *testing.T) {
	srv, backend := testServer(t, nil)

	require.NoError(t, backend.WriteAttributes(context.Background(), "device-9", "SERVER_SCOPE", []models.AttributeValue{
		{Key: "firmware", Value: "1.2.3", LastUpdateTs: 1000},
	}))

	_, conn := dialHub(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"attrSubCmds": []map[string]interface{}{{
			"entityType": "DEVICE",
			"entityId":   "device-9",
			"scope":      "SERVER_SCOPE",
			"cmdId":      3,
			"keys":       "firmware",
		}},
	}))

	frame := readFrame(t, conn)
	assert.Equal(t, 3, frame.SubscriptionID)
	require.Len(t, frame.Data["firmware"], 1)
	assert.Equal(t, "1.2.3", frame.Data["firmware"][0][1])
}

func TestTelemetryWebsocketPushIgnoresOtherDevices(t *testing.T) {
	hub := NewTelemetryHub(nil, nil, nil)
	// Publishing with no connections must not panic or block.
	hub.PublishTimeseries("device-1", map[string][]models.TsValue{
		"temperature": {{Ts: 1, Value: "1"}},
	})
	hub.PublishAttributes("device-1", "CLIENT_SCOPE", []models.AttributeValue{
		{Key: "k", Value: "v", LastUpdateTs: 1},
	})
	hub.Close()
}

func TestBuildFrame(t *testing.T) {
	assert.Nil(t, buildFrame(1, nil))
	assert.Nil(t, buildFrame(1, map[string][]models.TsValue{"k": {}}))

	frame := buildFrame(4, map[string][]models.TsValue{
		"temperature": {{Ts: 100, Value: "20"}, {Ts: 200, Value: "21"}},
	})
	require.NotNil(t, frame)
	assert.Equal(t, 4, frame.SubscriptionID)
	require.Len(t, frame.Data["temperature"], 2)
	assert.Equal(t, wsPair{int64(100), "20"}, frame.Data["temperature"][0])
}

func TestFilterKeys(t *testing.T) {
	values := map[string][]models.TsValue{
		"a": {{Ts: 1, Value: "1"}},
		"b": {{Ts: 2, Value: "2"}},
	}

	all := filterKeys(values, &hubSubscription{allKeys: true})
	assert.Len(t, all, 2)

	only := filterKeys(values, &hubSubscription{keys: map[string]struct{}{"a": {}}})
	require.Len(t, only, 1)
	assert.Contains(t, only, "a")
}
