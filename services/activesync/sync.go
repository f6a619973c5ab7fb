package activesync

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/syncgate/syncgate/interfaces"
	"github.com/syncgate/syncgate/internal/models"
	"github.com/syncgate/syncgate/internal/strategy"
	"github.com/syncgate/syncgate/internal/tracing"
	"github.com/syncgate/syncgate/internal/wbxml"
)

// In-band AirSync statuses.
const (
	syncStatusOK             = "1"
	syncStatusInvalidSyncKey = "3"
	syncStatusServerError    = "6"
	syncStatusNotFound       = "8"
)

const airSyncClassEmail = "Email"

// handleSync runs the central synchronization algorithm: sync-key
// resolution with two-phase commit, client read-flag changes, item batch
// selection and WBXML projection.
func (s *activeSyncService) handleSync(ctx context.Context, req *interfaces.CommandRequest, root *wbxml.Node) (*interfaces.CommandResponse, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "activeSyncService.handleSync")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	cols, err := parseSyncRequest(root)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if len(cols) > 1 {
		s.log.Warnf("device %s sent %d sync collections, handling the first only", req.Device.DeviceID, len(cols))
	}
	col := cols[0]
	span.SetTag(tracing.SpanTagCollectionId, col.CollectionID)

	known, err := s.repos.FolderRepository.GetByCollectionID(ctx, req.Principal.ID, col.CollectionID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if known == nil {
		return buildSyncStatus(col.CollectionID, col.SyncKey, syncStatusNotFound)
	}

	unlock := s.locks.Lock(stateKey(req.Principal.ID, req.Device.DeviceID, col.CollectionID))
	defer unlock()

	state, err := s.repos.SyncStateRepository.Load(ctx, req.Principal.ID, req.Device.DeviceID, col.CollectionID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if !ValidSyncKeyForm(col.SyncKey) {
		s.log.Warnf("sync %s/%s: malformed key %q, forcing reset",
			req.Device.DeviceID, col.CollectionID, col.SyncKey)
		state.Reset()
		if err := s.repos.SyncStateRepository.Save(ctx, state); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		return buildSyncStatus(col.CollectionID, "0", syncStatusInvalidSyncKey)
	}

	switch {
	case col.SyncKey == "0":
		state.Reset()
		if req.Strategy.NeedsEmptyInitialResponse(col.SyncKey) {
			newKey := NextSyncKey("0")
			state.CurrentSyncKey = newKey
			if err := s.repos.SyncStateRepository.Save(ctx, state); err != nil {
				tracing.TraceErr(span, err)
				return nil, err
			}
			s.log.Infof("sync %s/%s: initial handshake, key 0 -> %s", req.Device.DeviceID, col.CollectionID, newKey)
			return buildSyncStatus(col.CollectionID, newKey, syncStatusOK)
		}

	case state.HasPending() && col.SyncKey == *state.PendingSyncKey:
		// Client received the issued batch; promote pending to current and
		// serve the next one.
		state.ConfirmPending()

	case col.SyncKey == state.CurrentSyncKey:
		if state.HasPending() && len(state.PendingResponse) > 0 {
			// Client never saw the issued batch; replay it byte for byte.
			s.log.Infof("sync %s/%s: replaying pending batch %s", req.Device.DeviceID, col.CollectionID, *state.PendingSyncKey)
			return &interfaces.CommandResponse{Body: state.PendingResponse}, nil
		}

	default:
		s.log.Warnf("sync %s/%s: unknown key %q (current %q), forcing reset",
			req.Device.DeviceID, col.CollectionID, col.SyncKey, state.CurrentSyncKey)
		state.Reset()
		if err := s.repos.SyncStateRepository.Save(ctx, state); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		return buildSyncStatus(col.CollectionID, "0", syncStatusInvalidSyncKey)
	}

	s.applyClientChanges(ctx, req, col)

	bodyType, requestedTrunc := strategy.SelectBodyType(req.Strategy, col.BodyPrefs)
	truncateAt := req.Strategy.Truncation(bodyType, requestedTrunc, col.SyncKey == "0")
	window := strategy.ClampWindowSize(req.Strategy, col.WindowSize)

	// GetChanges 0 means the client only wants its own changes applied;
	// the server still answers with a fresh key but sends no Commands.
	var items []models.Email
	more := false
	if col.GetChanges {
		// One extra row decides MoreAvailable without a second query.
		items, err = s.store.ListItems(ctx, req.Principal.ID, col.CollectionID,
			state.LastAckedItemID, state.AckedItemIDs, window+1)
		if err != nil {
			tracing.TraceErr(span, err)
			return buildSyncStatus(col.CollectionID, state.CurrentSyncKey, syncStatusServerError)
		}
		if len(items) > window {
			more = true
			items = items[:window]
		}
	}

	batch, truncatedByBudget, err := s.projectBatch(ctx, items, bodyType, truncateAt, req.Strategy.BatchByteBudget())
	if err != nil {
		tracing.TraceErr(span, err)
		return buildSyncStatus(col.CollectionID, state.CurrentSyncKey, syncStatusServerError)
	}
	if truncatedByBudget {
		more = true
	}

	newKey := NextSyncKey(state.CurrentSyncKey)
	resp, err := buildSyncBatch(col.CollectionID, newKey, batch, more)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	ids := make([]int64, 0, len(batch))
	var maxID int64
	for _, b := range batch {
		ids = append(ids, b.item.ID)
		if b.item.ID > maxID {
			maxID = b.item.ID
		}
	}
	oldKey := state.CurrentSyncKey
	state.StagePending(newKey, ids, maxID, resp.Body)
	if !req.Strategy.UsePendingConfirmation() {
		state.ConfirmPending()
	}
	if err := s.repos.SyncStateRepository.Save(ctx, state); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	s.log.Infof("sync %s/%s: %s -> %s (%d items, more=%v, pending=%v)",
		req.Device.DeviceID, col.CollectionID, oldKey, newKey, len(batch), more, state.HasPending())
	return resp, nil
}

// applyClientChanges processes client <Commands>: only the Email Read flag
// is honored, anything else is acknowledged without effect.
func (s *activeSyncService) applyClientChanges(ctx context.Context, req *interfaces.CommandRequest, col syncCollection) {
	for _, change := range col.ReadChanges {
		collectionID, itemID, err := splitServerID(change.ServerID)
		if err != nil || collectionID != col.CollectionID {
			s.log.Warnf("sync %s/%s: ignoring change for %q", req.Device.DeviceID, col.CollectionID, change.ServerID)
			continue
		}
		if err := s.store.MarkRead(ctx, req.Principal.ID, itemID, change.Read); err != nil {
			s.log.Warnf("sync %s/%s: read flag for item %d failed: %v", req.Device.DeviceID, col.CollectionID, itemID, err)
		}
	}
}

type batchItem struct {
	item models.Email
	body projectedBody
}

// projectBatch resolves bodies for the selected items, stopping early when a
// positive byte budget would be exceeded. At least one item is always sent.
func (s *activeSyncService) projectBatch(ctx context.Context, items []models.Email, bodyType, truncateAt, budget int) ([]batchItem, bool, error) {
	batch := make([]batchItem, 0, len(items))
	used := 0
	for i := range items {
		body, err := s.projectBody(ctx, &items[i], bodyType, truncateAt)
		if err != nil {
			return nil, false, err
		}
		if budget > 0 && len(batch) > 0 && used+len(body.Data) > budget {
			return batch, true, nil
		}
		used += len(body.Data)
		batch = append(batch, batchItem{item: items[i], body: body})
	}
	return batch, false, nil
}

// buildSyncBatch frames one collection response with its Add commands.
// Child order inside Collection is fixed: SyncKey, CollectionId, Status,
// Class, Commands, MoreAvailable.
func buildSyncBatch(collectionID, syncKey string, batch []batchItem, more bool) (*interfaces.CommandResponse, error) {
	enc := wbxml.NewEncoder()
	enc.StartTag(air(wbxml.AirSyncSync)).
		StartTag(air(wbxml.AirSyncCollections)).
		StartTag(air(wbxml.AirSyncCollection)).
		TextTag(air(wbxml.AirSyncSyncKey), syncKey).
		TextTag(air(wbxml.AirSyncCollectionId), collectionID).
		TextTag(air(wbxml.AirSyncStatus), syncStatusOK).
		TextTag(air(wbxml.AirSyncClass), airSyncClassEmail)
	if len(batch) > 0 {
		enc.StartTag(air(wbxml.AirSyncCommands))
		for _, b := range batch {
			enc.StartTag(air(wbxml.AirSyncAdd)).
				TextTag(air(wbxml.AirSyncServerId), serverID(collectionID, b.item.ID)).
				StartTag(air(wbxml.AirSyncApplicationData))
			appendApplicationData(enc, &b.item, b.body)
			enc.EndTag(). // ApplicationData
					EndTag() // Add
		}
		enc.EndTag() // Commands
	}
	if more {
		enc.EmptyTag(air(wbxml.AirSyncMoreAvailable))
	}
	enc.EndTag(). // Collection
			EndTag(). // Collections
			EndTag()  // Sync
	return wbxmlResponse(enc)
}

// buildSyncStatus emits an item-less collection response carrying only a
// status, used for handshakes and in-band protocol errors.
func buildSyncStatus(collectionID, syncKey, status string) (*interfaces.CommandResponse, error) {
	enc := wbxml.NewEncoder()
	enc.StartTag(air(wbxml.AirSyncSync)).
		StartTag(air(wbxml.AirSyncCollections)).
		StartTag(air(wbxml.AirSyncCollection)).
		TextTag(air(wbxml.AirSyncSyncKey), syncKey).
		TextTag(air(wbxml.AirSyncCollectionId), collectionID).
		TextTag(air(wbxml.AirSyncStatus), status).
		TextTag(air(wbxml.AirSyncClass), airSyncClassEmail).
		EndTag().
		EndTag().
		EndTag()
	return wbxmlResponse(enc)
}
