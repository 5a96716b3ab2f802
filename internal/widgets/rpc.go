package widgets

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/marcuslam20/thingsboard-server-sub000/internal/registry"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/errors"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/interfaces"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// CommandInvoker executes device commands for control widgets. Failures
// come back as values for inline display next to the widget, not as
// panics or missing view models.
type CommandInvoker struct {
	sender interfaces.CommandSender
	logger *logrus.Logger
}

// NewCommandInvoker wires an invoker to its transport.
func NewCommandInvoker(sender interfaces.CommandSender, logger *logrus.Logger) *CommandInvoker {
	if logger == nil {
		logger = logrus.New()
	}
	return &CommandInvoker{sender: sender, logger: logger}
}

// Send forwards one command to an explicit device.
func (c *CommandInvoker) Send(ctx context.Context, deviceID string, req models.RPCRequest, twoWay bool) (*models.RPCResponse, error) {
	resp, err := c.sender.SendCommand(ctx, deviceID, req, twoWay)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"device_id": deviceID,
			"method":    req.Method,
		}).Warn("Device command failed")
		return nil, errors.WrapError(err, errors.ErrorTypeCommand, errors.CodeCommandFailed, "device command failed")
	}
	return resp, nil
}

// InvokeButton sends the command configured on an rpc_button widget.
func (c *CommandInvoker) InvokeButton(ctx context.Context, w *models.Widget) (*models.RPCResponse, error) {
	settings := bagOf(w)
	req := models.RPCRequest{
		Method: settings.str("rpcMethod", "setValue"),
		Params: settings.anyMap("rpcParams"),
	}
	if req.Params == nil {
		req.Params = map[string]interface{}{}
	}
	return c.send(ctx, w, req, settings.boolean("twoWayRpc", false))
}

// InvokeToggle sends the new switch state as a single-key command.
func (c *CommandInvoker) InvokeToggle(ctx context.Context, w *models.Widget, on bool) error {
	settings := bagOf(w)
	req := models.RPCRequest{
		Method: settings.str("rpcMethod", "setValue"),
		Params: map[string]interface{}{rpcKeyFor(w): on},
	}
	_, err := c.send(ctx, w, req, false)
	return err
}

// InvokeSlider sends the new slider value as a single-key command.
func (c *CommandInvoker) InvokeSlider(ctx context.Context, w *models.Widget, value float64) error {
	settings := bagOf(w)
	req := models.RPCRequest{
		Method: settings.str("rpcMethod", "setValue"),
		Params: map[string]interface{}{rpcKeyFor(w): value},
	}
	_, err := c.send(ctx, w, req, false)
	return err
}

func (c *CommandInvoker) send(ctx context.Context, w *models.Widget, req models.RPCRequest, twoWay bool) (*models.RPCResponse, error) {
	ds := firstDatasource(w)
	if ds == nil || ds.TargetID() == "" {
		return nil, errors.NewCommandError(errors.CodeDeviceNotFound, "widget has no target device").
			WithContext("widget_id", w.ID)
	}
	resp, err := c.sender.SendCommand(ctx, ds.TargetID(), req, twoWay)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"widget_id": w.ID,
			"device_id": ds.TargetID(),
			"method":    req.Method,
		}).Warn("Device command failed")
		return nil, errors.WrapError(err, errors.ErrorTypeCommand, errors.CodeCommandFailed, "device command failed")
	}
	return resp, nil
}

// rpcKeyFor returns the command parameter key: the configured rpcKey,
// else the first data key's name, else "value".
func rpcKeyFor(w *models.Widget) string {
	if key := bagOf(w).str("rpcKey", ""); key != "" {
		return key
	}
	if keys := firstKeys(w); len(keys) > 0 && keys[0].Name != "" {
		return keys[0].Name
	}
	return "value"
}

// RPCButtonView is the payload of the command button.
type RPCButtonView struct {
	Label    string                 `json:"label"`
	Method   string                 `json:"method"`
	Params   map[string]interface{} `json:"params,omitempty"`
	TwoWay   bool                   `json:"twoWay"`
	DeviceID string                 `json:"deviceId,omitempty"`
}

type rpcButtonRenderer struct{}

func (rpcButtonRenderer) Render(w *models.Widget, _ *models.Snapshot) (*registry.RenderResult, error) {
	settings := bagOf(w)
	view := &RPCButtonView{
		Label:  settings.str("buttonLabel", "Execute"),
		Method: settings.str("rpcMethod", "setValue"),
		Params: settings.anyMap("rpcParams"),
		TwoWay: settings.boolean("twoWayRpc", false),
	}
	if ds := firstDatasource(w); ds != nil {
		view.DeviceID = ds.TargetID()
	}
	return &registry.RenderResult{Kind: "rpc_button", Payload: view}, nil
}

// ToggleView is the payload of the switch widget. Checked mirrors the
// latest telemetry value; "true", "1" and "on" count as on.
type ToggleView struct {
	Label    string `json:"label"`
	Checked  bool   `json:"checked"`
	Method   string `json:"method"`
	Key      string `json:"key"`
	DeviceID string `json:"deviceId,omitempty"`
}

type toggleRenderer struct{}

func (toggleRenderer) Render(w *models.Widget, snap *models.Snapshot) (*registry.RenderResult, error) {
	settings := bagOf(w)
	view := &ToggleView{
		Label:  settings.str("switchLabel", ""),
		Method: settings.str("rpcMethod", "setValue"),
		Key:    rpcKeyFor(w),
	}
	if ds := firstDatasource(w); ds != nil {
		view.DeviceID = ds.TargetID()
	}
	if snap != nil && len(snap.Entries) > 0 {
		entry := snap.Entries[0]
		if view.Label == "" {
			view.Label = entry.Label
		}
		if latest, ok := snap.Latest(entry.Key); ok {
			switch latest.Value {
			case "true", "1", "on":
				view.Checked = true
			}
		}
	}
	if view.Label == "" {
		view.Label = "Toggle"
	}
	return &registry.RenderResult{Kind: "toggle", Payload: view}, nil
}

// SliderView is the payload of the slider widget. Value tracks the
// latest numeric telemetry reading.
type SliderView struct {
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Step     float64 `json:"step"`
	Units    string  `json:"units,omitempty"`
	Method   string  `json:"method"`
	Key      string  `json:"key"`
	DeviceID string  `json:"deviceId,omitempty"`
}

type sliderRenderer struct{}

func (sliderRenderer) Render(w *models.Widget, snap *models.Snapshot) (*registry.RenderResult, error) {
	settings := bagOf(w)
	view := &SliderView{
		Label:  settings.str("sliderLabel", ""),
		Min:    settings.number("minValue", 0),
		Max:    settings.number("maxValue", 100),
		Step:   settings.number("step", 1),
		Units:  settings.str("units", ""),
		Method: settings.str("rpcMethod", "setValue"),
		Key:    rpcKeyFor(w),
	}
	if ds := firstDatasource(w); ds != nil {
		view.DeviceID = ds.TargetID()
	}
	if snap != nil && len(snap.Entries) > 0 {
		entry := snap.Entries[0]
		if view.Label == "" {
			view.Label = entry.Label
		}
		if latest, ok := snap.Latest(entry.Key); ok {
			if num, numeric := parseNumber(latest.Value); numeric {
				view.Value = num
			}
		}
	}
	if view.Label == "" {
		view.Label = "Value"
	}
	return &registry.RenderResult{Kind: "slider", Payload: view}, nil
}
