package activesync

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/syncgate/syncgate/interfaces"
	easerrors "github.com/syncgate/syncgate/internal/errors"
	"github.com/syncgate/syncgate/internal/tracing"
	"github.com/syncgate/syncgate/internal/wbxml"
)

// Heartbeat clamp per MS-ASCMD.
const (
	minHeartbeatSeconds     = 60
	maxHeartbeatSeconds     = 3540
	defaultHeartbeatSeconds = 300
)

const (
	pingStatusNoChanges = "1"
	pingStatusChanges   = "2"
)

// handlePing long-polls the change hub for the listed collections. The
// per-collection mutex is never held while suspended; a later request from
// the same device cancels the wait.
func (s *activeSyncService) handlePing(ctx context.Context, req *interfaces.CommandRequest, root *wbxml.Node) (*interfaces.CommandResponse, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "activeSyncService.handlePing")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	heartbeat := defaultHeartbeatSeconds
	var collectionIDs []string
	if root != nil {
		if root.Tag != ping(wbxml.PingPing) {
			return nil, errors.Wrapf(easerrors.ErrMalformedRequest, "expected Ping, got %s", root.Tag)
		}
		if h := atoi(root.ChildText(ping(wbxml.PingHeartbeatInterval))); h > 0 {
			heartbeat = h
		}
		if folders := root.Child(ping(wbxml.PingFolders)); folders != nil {
			folders.EachChild(ping(wbxml.PingFolder), func(f *wbxml.Node) {
				if id := f.ChildText(ping(wbxml.PingId)); id != "" {
					collectionIDs = append(collectionIDs, id)
				}
			})
		}
	}
	if heartbeat < minHeartbeatSeconds {
		heartbeat = minHeartbeatSeconds
	}
	if heartbeat > maxHeartbeatSeconds {
		heartbeat = maxHeartbeatSeconds
	}

	// An empty body or folder list re-issues the Ping over the whole
	// hierarchy.
	if len(collectionIDs) == 0 {
		folders, err := s.store.ListFolders(ctx, req.Principal.ID)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		for _, f := range folders {
			collectionIDs = append(collectionIDs, f.CollectionID)
		}
	}

	deviceKey := DeviceKey(req.Principal.ID, req.Device.DeviceID)
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	session := &pingSession{cancel: cancel}
	s.registerPing(deviceKey, session)
	defer s.unregisterPing(deviceKey, session)

	s.log.Debugf("ping %s: waiting %ds on %d collections", req.Device.DeviceID, heartbeat, len(collectionIDs))
	changed, err := s.store.SubscribeChanges(waitCtx, req.Principal.ID, collectionIDs, time.Duration(heartbeat)*time.Second)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Superseded by a newer request from the same device; yield the
			// connection without claiming changes.
			return buildPingResponse(nil)
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	if len(changed) > 0 {
		s.log.Infof("ping %s: changes in %v", req.Device.DeviceID, changed)
	}
	return buildPingResponse(changed)
}

func buildPingResponse(changed []string) (*interfaces.CommandResponse, error) {
	enc := wbxml.NewEncoder()
	enc.StartTag(ping(wbxml.PingPing))
	if len(changed) == 0 {
		enc.TextTag(ping(wbxml.PingStatus), pingStatusNoChanges)
	} else {
		enc.TextTag(ping(wbxml.PingStatus), pingStatusChanges).
			StartTag(ping(wbxml.PingFolders))
		for _, id := range changed {
			enc.TextTag(ping(wbxml.PingFolder), id)
		}
		enc.EndTag() // Folders
	}
	enc.EndTag() // Ping
	return wbxmlResponse(enc)
}
