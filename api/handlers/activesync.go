package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/syncgate/syncgate/api/middleware"
	"github.com/syncgate/syncgate/interfaces"
	easerrors "github.com/syncgate/syncgate/internal/errors"
	"github.com/syncgate/syncgate/internal/logger"
	"github.com/syncgate/syncgate/internal/repository"
	"github.com/syncgate/syncgate/internal/strategy"
	"github.com/syncgate/syncgate/services/activesync"
)

// EASEndpoint is the well-known ActiveSync path every client hits.
const EASEndpoint = "/Microsoft-Server-ActiveSync"

const (
	wbxmlContentType = "application/vnd.ms-sync.wbxml"

	headerServerVersion    = "MS-Server-ActiveSync"
	headerProtocolVersions = "MS-ASProtocolVersions"
	headerProtocolCommands = "MS-ASProtocolCommands"

	serverVersion     = "14.1"
	protocolVersions  = "2.5,12.0,12.1,14.0,14.1,16.0,16.1"
	protocolCommands  = "Provision,FolderSync,Sync,GetItemEstimate,Ping,ItemOperations"
	maxWbxmlBodyBytes = 10 << 20
)

// ActiveSyncOptions advertises server capabilities for client autodiscovery.
func ActiveSyncOptions() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header(headerServerVersion, serverVersion)
		c.Header(headerProtocolVersions, protocolVersions)
		c.Header(headerProtocolCommands, protocolCommands)
		c.Status(http.StatusOK)
	}
}

// ActiveSyncCommand parses the query surface, resolves the device, applies
// the provisioning gate and dispatches into the command service.
func ActiveSyncCommand(log logger.Logger, svc interfaces.ActiveSyncService, repos *repository.Repositories) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		principal := middleware.PrincipalFromContext(c)
		if principal == nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		cmd := c.Query("Cmd")
		deviceID := c.Query("DeviceId")
		deviceType := c.Query("DeviceType")
		if cmd == "" || deviceID == "" {
			c.String(http.StatusBadRequest, "Cmd and DeviceId are required")
			return
		}
		if user := c.Query("User"); user != "" && user != principal.EmailAddress {
			log.Warnf("user %q does not match authenticated principal %q", user, principal.EmailAddress)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		userAgent := c.GetHeader("User-Agent")
		device, err := repos.DeviceRepository.GetOrCreate(ctx, principal.ID, deviceID, deviceType, userAgent)
		if err != nil {
			log.Errorf("device resolve %s: %v", deviceID, err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		// Everything except Provision requires a provisioned partnership.
		if cmd != activesync.CmdProvision && !device.IsProvisioned() {
			c.Header(activesync.HeaderPolicyKey, "0")
			c.Header("Cache-Control", "private")
			c.Status(449) // Retry after Provision
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWbxmlBodyBytes))
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		resp, err := svc.HandleCommand(ctx, &interfaces.CommandRequest{
			Command:   cmd,
			Principal: principal,
			Device:    device,
			Strategy:  strategy.Detect(userAgent, deviceType),
			PolicyKey: c.GetHeader(activesync.HeaderPolicyKey),
			Body:      body,
		})
		if err != nil {
			writeCommandError(c, log, cmd, err)
			return
		}

		c.Header("Cache-Control", "private")
		c.Header(headerServerVersion, serverVersion)
		for k, v := range resp.Headers {
			c.Header(k, v)
		}
		c.Data(http.StatusOK, wbxmlContentType, resp.Body)
	}
}

func writeCommandError(c *gin.Context, log logger.Logger, cmd string, err error) {
	switch {
	case errors.Is(err, easerrors.ErrMalformedRequest),
		errors.Is(err, easerrors.ErrUnknownCommand),
		errors.Is(err, easerrors.ErrMissingQueryParams):
		log.Warnf("%s rejected: %v", cmd, err)
		c.AbortWithStatus(http.StatusBadRequest)
	case errors.Is(err, easerrors.ErrStoreUnavailable):
		log.Errorf("%s failed, store unavailable: %v", cmd, err)
		c.AbortWithStatus(http.StatusServiceUnavailable)
	default:
		log.Errorf("%s failed: %v", cmd, err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}
