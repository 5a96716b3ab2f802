package widgets

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/errors"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

type fakeSender struct {
	deviceID string
	req      models.RPCRequest
	twoWay   bool
	resp     *models.RPCResponse
	err      error
}

func (f *fakeSender) SendCommand(ctx context.Context, deviceID string, req models.RPCRequest, twoWay bool) (*models.RPCResponse, error) {
	f.deviceID = deviceID
	f.req = req
	f.twoWay = twoWay
	return f.resp, f.err
}

func TestInvokeButtonSendsConfiguredCommand(t *testing.T) {
	sender := &fakeSender{resp: &models.RPCResponse{Result: map[string]interface{}{"ok": true}}}
	inv := NewCommandInvoker(sender, logrus.New())

	w := widgetWith(map[string]interface{}{
		"rpcMethod": "reboot",
		"rpcParams": map[string]interface{}{"delay": float64(5)},
		"twoWayRpc": true,
	})

	resp, err := inv.InvokeButton(context.Background(), w)
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, "device-1", sender.deviceID)
	assert.Equal(t, "reboot", sender.req.Method)
	assert.Equal(t, float64(5), sender.req.Params["delay"])
	assert.True(t, sender.twoWay)
}

func TestInvokeToggleUsesFirstKeyName(t *testing.T) {
	sender := &fakeSender{}
	inv := NewCommandInvoker(sender, logrus.New())

	require.NoError(t, inv.InvokeToggle(context.Background(), widgetWith(nil), true))

	assert.Equal(t, "setValue", sender.req.Method)
	assert.Equal(t, true, sender.req.Params["temperature"])
	assert.False(t, sender.twoWay)
}

func TestInvokeSliderUsesConfiguredKey(t *testing.T) {
	sender := &fakeSender{}
	inv := NewCommandInvoker(sender, logrus.New())

	w := widgetWith(map[string]interface{}{"rpcKey": "speed"})
	require.NoError(t, inv.InvokeSlider(context.Background(), w, 42.5))

	assert.Equal(t, 42.5, sender.req.Params["speed"])
}

func TestInvokeWithoutDatasourceFails(t *testing.T) {
	inv := NewCommandInvoker(&fakeSender{}, logrus.New())

	w := &models.Widget{ID: "w1", Type: models.CategoryRPC}
	_, err := inv.InvokeButton(context.Background(), w)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.CodeDeviceNotFound, appErr.Code)
}
