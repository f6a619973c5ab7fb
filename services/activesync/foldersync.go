package activesync

import (
	"context"
	"strconv"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/syncgate/syncgate/interfaces"
	easerrors "github.com/syncgate/syncgate/internal/errors"
	"github.com/syncgate/syncgate/internal/models"
	"github.com/syncgate/syncgate/internal/tracing"
	"github.com/syncgate/syncgate/internal/wbxml"
)

// folderSyncCollection is the synthetic collection id under which the
// FolderSync key is persisted. Real collection ids are numeric strings.
const folderSyncCollection = "folders"

// folderSyncLoopThreshold: consecutive SyncKey "0" requests before the
// partnership is considered looping.
const folderSyncLoopThreshold = 3

func (s *activeSyncService) handleFolderSync(ctx context.Context, req *interfaces.CommandRequest, root *wbxml.Node) (*interfaces.CommandResponse, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "activeSyncService.handleFolderSync")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if root.Tag != folder(wbxml.FolderFolderSync) {
		return nil, errors.Wrapf(easerrors.ErrMalformedRequest, "expected FolderSync, got %s", root.Tag)
	}
	clientKey := root.ChildText(folder(wbxml.FolderSyncKey))
	if clientKey == "" {
		return nil, errors.Wrap(easerrors.ErrMalformedRequest, "FolderSync without SyncKey")
	}

	unlock := s.locks.Lock(stateKey(req.Principal.ID, req.Device.DeviceID, folderSyncCollection))
	defer unlock()

	state, err := s.repos.SyncStateRepository.Load(ctx, req.Principal.ID, req.Device.DeviceID, folderSyncCollection)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	switch {
	case clientKey == "0":
		state.FolderSyncAttempts++
		if state.FolderSyncAttempts >= folderSyncLoopThreshold {
			s.log.Warnf("device %s looping on FolderSync (%d consecutive resets), clearing state",
				req.Device.DeviceID, state.FolderSyncAttempts)
			state.Reset()
		}
		folders, err := s.store.ListFolders(ctx, req.Principal.ID)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		newKey := NextSyncKey("0")
		state.CurrentSyncKey = newKey
		if err := s.repos.SyncStateRepository.Save(ctx, state); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		s.log.Infof("foldersync %s: 0 -> %s (%d folders)", req.Device.DeviceID, newKey, len(folders))
		return buildFolderSyncResponse("1", newKey, folders)

	case clientKey == state.CurrentSyncKey:
		// Hierarchy is static: advance the key, report no changes.
		newKey := NextSyncKey(state.CurrentSyncKey)
		state.CurrentSyncKey = newKey
		state.FolderSyncAttempts = 0
		if err := s.repos.SyncStateRepository.Save(ctx, state); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		return buildFolderSyncResponse("1", newKey, nil)

	default:
		s.log.Warnf("device %s sent unknown FolderSync key %q (current %q), forcing reset",
			req.Device.DeviceID, clientKey, state.CurrentSyncKey)
		state.Reset()
		if err := s.repos.SyncStateRepository.Save(ctx, state); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		return buildFolderSyncResponse("3", "0", nil)
	}
}

// buildFolderSyncResponse emits Status, SyncKey and a Changes block. A nil
// folder slice produces an empty Count=0 delta.
func buildFolderSyncResponse(status, syncKey string, folders []models.Folder) (*interfaces.CommandResponse, error) {
	enc := wbxml.NewEncoder()
	enc.StartTag(folder(wbxml.FolderFolderSync)).
		TextTag(folder(wbxml.FolderStatus), status).
		TextTag(folder(wbxml.FolderSyncKey), syncKey).
		StartTag(folder(wbxml.FolderChanges)).
		TextTag(folder(wbxml.FolderCount), strconv.Itoa(len(folders)))
	for _, f := range folders {
		enc.StartTag(folder(wbxml.FolderAdd)).
			TextTag(folder(wbxml.FolderServerId), f.CollectionID).
			TextTag(folder(wbxml.FolderParentId), f.ParentID).
			TextTag(folder(wbxml.FolderDisplayName), f.DisplayName).
			TextTag(folder(wbxml.FolderType), strconv.Itoa(f.Type)).
			EndTag()
	}
	enc.EndTag(). // Changes
			EndTag() // FolderSync
	return wbxmlResponse(enc)
}
