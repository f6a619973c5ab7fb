package activesync

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/syncgate/syncgate/interfaces"
	easerrors "github.com/syncgate/syncgate/internal/errors"
	"github.com/syncgate/syncgate/internal/strategy"
	"github.com/syncgate/syncgate/internal/tracing"
	"github.com/syncgate/syncgate/internal/wbxml"
)

const (
	itemOpsStatusOK          = "1"
	itemOpsStatusServerError = "6"
	itemOpsStatusNotFound    = "8"
)

// handleItemOperations supports Fetch (full item body on demand) and
// EmptyFolderContents.
func (s *activeSyncService) handleItemOperations(ctx context.Context, req *interfaces.CommandRequest, root *wbxml.Node) (*interfaces.CommandResponse, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "activeSyncService.handleItemOperations")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if root.Tag != itemops(wbxml.ItemOpsItemOperations) {
		return nil, errors.Wrapf(easerrors.ErrMalformedRequest, "expected ItemOperations, got %s", root.Tag)
	}
	if fetch := root.Child(itemops(wbxml.ItemOpsFetch)); fetch != nil {
		return s.handleFetch(ctx, req, fetch)
	}
	if empty := root.Child(itemops(wbxml.ItemOpsEmptyFolderContent)); empty != nil {
		return s.handleEmptyFolder(ctx, req, empty)
	}
	return nil, errors.Wrap(easerrors.ErrMalformedRequest, "ItemOperations without Fetch or EmptyFolderContents")
}

func (s *activeSyncService) handleFetch(ctx context.Context, req *interfaces.CommandRequest, fetch *wbxml.Node) (*interfaces.CommandResponse, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "activeSyncService.handleFetch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	fetchedID := fetch.ChildText(air(wbxml.AirSyncServerId))
	if fetchedID == "" {
		return nil, errors.Wrap(easerrors.ErrMalformedRequest, "Fetch without ServerId")
	}
	_, itemID, err := splitServerID(fetchedID)
	if err != nil {
		return nil, err
	}

	// On-demand fetch defaults to the full MIME message; a BodyPreference
	// in Options overrides type and truncation. MIME stays under the hard
	// cap either way.
	bodyType := strategy.BodyTypeMIME
	truncateAt := strategy.MIMETruncationCap
	if opts := fetch.Child(itemops(wbxml.ItemOpsOptions)); opts != nil {
		if p := opts.Child(base(wbxml.BaseBodyPreference)); p != nil {
			pref := parseBodyPreference(p)
			if pref.Type > 0 {
				bodyType = pref.Type
			}
			truncateAt = pref.TruncationSize
			if bodyType == strategy.BodyTypeMIME &&
				(truncateAt <= 0 || truncateAt > strategy.MIMETruncationCap) {
				truncateAt = strategy.MIMETruncationCap
			}
		}
	}

	item, err := s.store.GetItem(ctx, req.Principal.ID, itemID)
	if err != nil {
		if errors.Is(err, easerrors.ErrItemNotFound) {
			return buildFetchStatus(fetchedID, itemOpsStatusNotFound)
		}
		tracing.TraceErr(span, err)
		return buildFetchStatus(fetchedID, itemOpsStatusServerError)
	}
	body, err := s.projectBody(ctx, item, bodyType, truncateAt)
	if err != nil {
		tracing.TraceErr(span, err)
		return buildFetchStatus(fetchedID, itemOpsStatusServerError)
	}

	enc := wbxml.NewEncoder()
	enc.StartTag(itemops(wbxml.ItemOpsItemOperations)).
		TextTag(itemops(wbxml.ItemOpsStatus), itemOpsStatusOK).
		StartTag(itemops(wbxml.ItemOpsResponse)).
		StartTag(itemops(wbxml.ItemOpsFetch)).
		TextTag(itemops(wbxml.ItemOpsStatus), itemOpsStatusOK).
		TextTag(air(wbxml.AirSyncServerId), fetchedID).
		TextTag(air(wbxml.AirSyncClass), airSyncClassEmail).
		StartTag(itemops(wbxml.ItemOpsProperties))
	appendApplicationData(enc, item, body)
	enc.EndTag(). // Properties
			EndTag(). // Fetch
			EndTag(). // Response
			EndTag()  // ItemOperations
	return wbxmlResponse(enc)
}

func (s *activeSyncService) handleEmptyFolder(ctx context.Context, req *interfaces.CommandRequest, empty *wbxml.Node) (*interfaces.CommandResponse, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "activeSyncService.handleEmptyFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	collectionID := empty.ChildText(air(wbxml.AirSyncCollectionId))
	if collectionID == "" {
		return nil, errors.Wrap(easerrors.ErrMalformedRequest, "EmptyFolderContents without CollectionId")
	}
	status := itemOpsStatusOK
	if err := s.store.EmptyFolder(ctx, req.Principal.ID, collectionID); err != nil {
		tracing.TraceErr(span, err)
		status = itemOpsStatusServerError
	}

	enc := wbxml.NewEncoder()
	enc.StartTag(itemops(wbxml.ItemOpsItemOperations)).
		TextTag(itemops(wbxml.ItemOpsStatus), status).
		StartTag(itemops(wbxml.ItemOpsResponse)).
		StartTag(itemops(wbxml.ItemOpsEmptyFolderContent)).
		TextTag(itemops(wbxml.ItemOpsStatus), status).
		TextTag(air(wbxml.AirSyncCollectionId), collectionID).
		EndTag(). // EmptyFolderContents
		EndTag(). // Response
		EndTag()  // ItemOperations
	return wbxmlResponse(enc)
}

func buildFetchStatus(fetchedID, status string) (*interfaces.CommandResponse, error) {
	enc := wbxml.NewEncoder()
	enc.StartTag(itemops(wbxml.ItemOpsItemOperations)).
		TextTag(itemops(wbxml.ItemOpsStatus), itemOpsStatusOK).
		StartTag(itemops(wbxml.ItemOpsResponse)).
		StartTag(itemops(wbxml.ItemOpsFetch)).
		TextTag(itemops(wbxml.ItemOpsStatus), status).
		TextTag(air(wbxml.AirSyncServerId), fetchedID).
		EndTag(). // Fetch
		EndTag(). // Response
		EndTag()  // ItemOperations
	return wbxmlResponse(enc)
}
