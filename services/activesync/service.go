// Package activesync implements the Exchange ActiveSync command handlers:
// Provision, FolderSync, Sync, GetItemEstimate, Ping and ItemOperations.
// The HTTP layer authenticates and resolves the device; everything protocol
// shaped lives here.
package activesync

import (
	"context"
	"sync"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/syncgate/syncgate/interfaces"
	easerrors "github.com/syncgate/syncgate/internal/errors"
	"github.com/syncgate/syncgate/internal/logger"
	"github.com/syncgate/syncgate/internal/repository"
	"github.com/syncgate/syncgate/internal/tracing"
	"github.com/syncgate/syncgate/internal/wbxml"
)

// Command names as they appear in the Cmd query parameter.
const (
	CmdProvision       = "Provision"
	CmdFolderSync      = "FolderSync"
	CmdSync            = "Sync"
	CmdGetItemEstimate = "GetItemEstimate"
	CmdPing            = "Ping"
	CmdItemOperations  = "ItemOperations"
)

type activeSyncService struct {
	log   logger.Logger
	repos *repository.Repositories
	store interfaces.MailStore
	locks *keyedMutex

	pingMu sync.Mutex
	pings  map[string]*pingSession
}

type pingSession struct {
	cancel context.CancelFunc
}

func NewActiveSyncService(log logger.Logger, repos *repository.Repositories, store interfaces.MailStore) interfaces.ActiveSyncService {
	return &activeSyncService{
		log:   log,
		repos: repos,
		store: store,
		locks: newKeyedMutex(),
		pings: make(map[string]*pingSession),
	}
}

func (s *activeSyncService) HandleCommand(ctx context.Context, req *interfaces.CommandRequest) (*interfaces.CommandResponse, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "activeSyncService.HandleCommand")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagCommand, req.Command)
	span.SetTag(tracing.SpanTagPrincipalId, req.Principal.ID)
	span.SetTag(tracing.SpanTagDeviceId, req.Device.DeviceID)

	s.log.Debugf("wbxml request %s (%d bytes)\n%s", req.Command, len(req.Body), wbxml.HexDump(req.Body))

	// Provision carries no document body check here; every other command
	// ships a WBXML document.
	var root *wbxml.Node
	if len(req.Body) > 0 {
		var err error
		root, err = wbxml.Parse(req.Body)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, errors.Wrap(easerrors.ErrMalformedRequest, err.Error())
		}
	}
	if root == nil && req.Command != CmdPing {
		// Only Ping may re-issue with an empty body (parameter reuse).
		return nil, errors.Wrapf(easerrors.ErrMalformedRequest, "%s without body", req.Command)
	}

	// Any non-Ping traffic from the device supersedes its in-flight Ping.
	if req.Command != CmdPing {
		s.CancelPing(DeviceKey(req.Principal.ID, req.Device.DeviceID))
	}

	var resp *interfaces.CommandResponse
	var err error
	switch req.Command {
	case CmdProvision:
		resp, err = s.handleProvision(ctx, req, root)
	case CmdFolderSync:
		resp, err = s.handleFolderSync(ctx, req, root)
	case CmdSync:
		resp, err = s.handleSync(ctx, req, root)
	case CmdGetItemEstimate:
		resp, err = s.handleGetItemEstimate(ctx, req, root)
	case CmdPing:
		resp, err = s.handlePing(ctx, req, root)
	case CmdItemOperations:
		resp, err = s.handleItemOperations(ctx, req, root)
	default:
		err = errors.Wrapf(easerrors.ErrUnknownCommand, "%s", req.Command)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	s.log.Debugf("wbxml response %s (%d bytes)\n%s", req.Command, len(resp.Body), wbxml.HexDump(resp.Body))
	return resp, nil
}

// CancelPing aborts the in-flight Ping of the device, if any. Safe to call
// when none is running.
func (s *activeSyncService) CancelPing(deviceKey string) {
	s.pingMu.Lock()
	session := s.pings[deviceKey]
	delete(s.pings, deviceKey)
	s.pingMu.Unlock()
	if session != nil {
		session.cancel()
	}
}

// registerPing installs the session, canceling any predecessor of the same
// device.
func (s *activeSyncService) registerPing(deviceKey string, session *pingSession) {
	s.pingMu.Lock()
	prev := s.pings[deviceKey]
	s.pings[deviceKey] = session
	s.pingMu.Unlock()
	if prev != nil {
		prev.cancel()
	}
}

func (s *activeSyncService) unregisterPing(deviceKey string, session *pingSession) {
	s.pingMu.Lock()
	if s.pings[deviceKey] == session {
		delete(s.pings, deviceKey)
	}
	s.pingMu.Unlock()
}

func wbxmlResponse(enc *wbxml.Encoder) (*interfaces.CommandResponse, error) {
	body, err := enc.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "encode response")
	}
	return &interfaces.CommandResponse{Body: body}, nil
}
