package activesync

import (
	"context"
	"strconv"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/syncgate/syncgate/interfaces"
	easerrors "github.com/syncgate/syncgate/internal/errors"
	"github.com/syncgate/syncgate/internal/tracing"
	"github.com/syncgate/syncgate/internal/wbxml"
)

const (
	estimateStatusOK         = "1"
	estimateStatusInvalidKey = "4"
)

// handleGetItemEstimate counts the items a Sync would deliver right now,
// without staging anything.
func (s *activeSyncService) handleGetItemEstimate(ctx context.Context, req *interfaces.CommandRequest, root *wbxml.Node) (*interfaces.CommandResponse, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "activeSyncService.handleGetItemEstimate")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if root.Tag != estimate(wbxml.EstimateGetItemEstimate) {
		return nil, errors.Wrapf(easerrors.ErrMalformedRequest, "expected GetItemEstimate, got %s", root.Tag)
	}
	collections := root.Child(estimate(wbxml.EstimateCollections))
	if collections == nil {
		return nil, errors.Wrap(easerrors.ErrMalformedRequest, "GetItemEstimate without Collections")
	}
	col := collections.Child(estimate(wbxml.EstimateCollection))
	if col == nil {
		return nil, errors.Wrap(easerrors.ErrMalformedRequest, "GetItemEstimate without Collection")
	}
	// SyncKey arrives on the AirSync page, CollectionId on either page
	// depending on protocol version.
	clientKey := col.ChildText(air(wbxml.AirSyncSyncKey))
	collectionID := col.ChildText(estimate(wbxml.EstimateCollectionId))
	if collectionID == "" {
		collectionID = col.ChildText(air(wbxml.AirSyncCollectionId))
	}
	if clientKey == "" || collectionID == "" {
		return nil, errors.Wrap(easerrors.ErrMalformedRequest, "GetItemEstimate without SyncKey or CollectionId")
	}
	span.SetTag(tracing.SpanTagCollectionId, collectionID)

	unlock := s.locks.Lock(stateKey(req.Principal.ID, req.Device.DeviceID, collectionID))
	defer unlock()

	state, err := s.repos.SyncStateRepository.Load(ctx, req.Principal.ID, req.Device.DeviceID, collectionID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	keyKnown := clientKey == state.CurrentSyncKey ||
		(state.HasPending() && clientKey == *state.PendingSyncKey)
	if !keyKnown {
		return buildEstimateResponse(estimateStatusInvalidKey, collectionID, 0)
	}

	count, err := s.store.CountNew(ctx, req.Principal.ID, collectionID, state.LastAckedItemID, state.AckedItemIDs)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return buildEstimateResponse(estimateStatusOK, collectionID, count)
}

func buildEstimateResponse(status, collectionID string, count int64) (*interfaces.CommandResponse, error) {
	enc := wbxml.NewEncoder()
	enc.StartTag(estimate(wbxml.EstimateGetItemEstimate)).
		StartTag(estimate(wbxml.EstimateResponse)).
		TextTag(estimate(wbxml.EstimateStatus), status).
		StartTag(estimate(wbxml.EstimateCollection)).
		TextTag(estimate(wbxml.EstimateCollectionId), collectionID)
	if status == estimateStatusOK {
		enc.TextTag(estimate(wbxml.EstimateEstimate), strconv.FormatInt(count, 10))
	}
	enc.EndTag(). // Collection
			EndTag(). // Response
			EndTag()  // GetItemEstimate
	return wbxmlResponse(enc)
}
