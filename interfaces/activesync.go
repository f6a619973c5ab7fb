package interfaces

import (
	"context"

	"github.com/syncgate/syncgate/internal/models"
	"github.com/syncgate/syncgate/internal/strategy"
)

// CommandRequest is one dispatched ActiveSync command after the HTTP layer
// has authenticated the principal and resolved the device.
type CommandRequest struct {
	Command   string
	Principal *models.Principal
	Device    *models.Device
	Strategy  strategy.ClientStrategy
	PolicyKey string
	Body      []byte
}

// CommandResponse carries the WBXML payload plus any EAS headers the
// handler wants on the HTTP response.
type CommandResponse struct {
	Body    []byte
	Headers map[string]string
}

// ActiveSyncService routes decoded commands to their handlers.
type ActiveSyncService interface {
	HandleCommand(ctx context.Context, req *CommandRequest) (*CommandResponse, error)
	// CancelPing aborts an in-flight Ping for the device, if any.
	CancelPing(deviceKey string)
}

// MimeBuilder assembles an RFC 5322 message from stored fields.
type MimeBuilder interface {
	Build(item *models.Email) ([]byte, error)
}
