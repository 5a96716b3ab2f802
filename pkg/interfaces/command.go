package interfaces

import (
	"context"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// CommandSender issues RPC commands to devices. One-way commands return a
// nil response; two-way commands block for the device's reply.
type CommandSender interface {
	SendCommand(ctx context.Context, deviceID string, req models.RPCRequest, twoWay bool) (*models.RPCResponse, error)
}
