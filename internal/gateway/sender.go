package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/errors"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/interfaces"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxResponseBytes      = 1 << 20
)

// SenderConfig configures the device command forwarder.
type SenderConfig struct {
	// BaseURL is the device connectivity service, e.g. http://gateway:9095.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds one command round trip. Two-way commands block
	// this long at most for the device reply.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// AuthToken is sent as a bearer token when set.
	AuthToken string `json:"auth_token" yaml:"auth_token" mapstructure:"auth_token"`
}

// Sender forwards RPC commands to devices over the connectivity
// gateway's HTTP API.
type Sender struct {
	config *SenderConfig
	client *http.Client
	logger *logrus.Logger
}

var _ interfaces.CommandSender = (*Sender)(nil)

// NewSender creates a command forwarder for the given gateway.
func NewSender(config *SenderConfig, logger *logrus.Logger) *Sender {
	if logger == nil {
		logger = logrus.New()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Sender{
		config: config,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// SendCommand posts the command to the gateway. One-way commands return
// as soon as the gateway accepts them; two-way commands decode the
// device's reply.
func (s *Sender) SendCommand(ctx context.Context, deviceID string, req models.RPCRequest, twoWay bool) (*models.RPCResponse, error) {
	mode := "oneway"
	if twoWay {
		mode = "twoway"
	}
	url := fmt.Sprintf("%s/api/rpc/%s/%s", s.config.BaseURL, mode, deviceID)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeCommand, errors.CodeCommandFailed,
			"failed to encode command")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeCommand, errors.CodeCommandFailed,
			"failed to build command request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.config.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.config.AuthToken)
	}

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewCommandError(errors.CodeCommandTimeout, "device did not reply in time")
		}
		return nil, errors.WrapError(err, errors.ErrorTypeNetwork, errors.CodeNetworkError,
			"gateway request failed")
	}
	defer resp.Body.Close()

	s.logger.WithFields(logrus.Fields{
		"device_id": deviceID,
		"method":    req.Method,
		"two_way":   twoWay,
		"status":    resp.StatusCode,
		"duration":  time.Since(start).String(),
	}).Debug("Command forwarded")

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.NewCommandError(errors.CodeDeviceNotFound,
			fmt.Sprintf("device %s is not connected", deviceID))
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return nil, errors.NewCommandError(errors.CodeCommandTimeout, "device did not reply in time")
	case resp.StatusCode >= 400:
		return nil, errors.NewCommandError(errors.CodeCommandFailed,
			fmt.Sprintf("gateway rejected command with status %d", resp.StatusCode))
	}

	if !twoWay {
		return nil, nil
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeNetwork, errors.CodeNetworkError,
			"failed to read device reply")
	}
	var out models.RPCResponse
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &out.Result); err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeCommand, errors.CodeCommandFailed,
				"failed to decode device reply")
		}
	}
	return &out, nil
}
