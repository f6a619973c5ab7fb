package activesync

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	easerrors "github.com/syncgate/syncgate/internal/errors"
	"github.com/syncgate/syncgate/internal/strategy"
	"github.com/syncgate/syncgate/internal/wbxml"
)

// syncCollection is one parsed <Collection> block of a Sync request.
type syncCollection struct {
	SyncKey      string
	CollectionID string
	GetChanges   bool
	WindowSize   int
	BodyPrefs    []strategy.BodyPreference
	ReadChanges  []readChange
}

// readChange is a client <Change> carrying an Email Read flag.
type readChange struct {
	ServerID string
	Read     bool
}

func parseSyncRequest(root *wbxml.Node) ([]syncCollection, error) {
	if root.Tag != air(wbxml.AirSyncSync) {
		return nil, errors.Wrapf(easerrors.ErrMalformedRequest, "expected Sync, got %s", root.Tag)
	}
	collections := root.Child(air(wbxml.AirSyncCollections))
	if collections == nil {
		return nil, errors.Wrap(easerrors.ErrMalformedRequest, "Sync without Collections")
	}
	var out []syncCollection
	collections.EachChild(air(wbxml.AirSyncCollection), func(c *wbxml.Node) {
		col := syncCollection{
			SyncKey:      c.ChildText(air(wbxml.AirSyncSyncKey)),
			CollectionID: c.ChildText(air(wbxml.AirSyncCollectionId)),
			GetChanges:   true,
			WindowSize:   -1,
		}
		// GetChanges defaults to true; only an explicit 0 suppresses
		// server-side changes.
		if gc := c.Child(air(wbxml.AirSyncGetChanges)); gc != nil && gc.Text == "0" {
			col.GetChanges = false
		}
		if w := c.ChildText(air(wbxml.AirSyncWindowSize)); w != "" {
			col.WindowSize = atoi(w)
		}
		if opts := c.Child(air(wbxml.AirSyncOptions)); opts != nil {
			opts.EachChild(base(wbxml.BaseBodyPreference), func(p *wbxml.Node) {
				col.BodyPrefs = append(col.BodyPrefs, parseBodyPreference(p))
			})
		}
		if cmds := c.Child(air(wbxml.AirSyncCommands)); cmds != nil {
			cmds.EachChild(air(wbxml.AirSyncChange), func(ch *wbxml.Node) {
				serverID := ch.ChildText(air(wbxml.AirSyncServerId))
				data := ch.Child(air(wbxml.AirSyncApplicationData))
				if serverID == "" || data == nil {
					return
				}
				if read := data.Child(email(wbxml.EmailRead)); read != nil {
					col.ReadChanges = append(col.ReadChanges, readChange{
						ServerID: serverID,
						Read:     read.Text == "1",
					})
				}
			})
		}
		out = append(out, col)
	})
	if len(out) == 0 {
		return nil, errors.Wrap(easerrors.ErrMalformedRequest, "Sync without Collection")
	}
	return out, nil
}

func parseBodyPreference(n *wbxml.Node) strategy.BodyPreference {
	return strategy.BodyPreference{
		Type:           atoi(n.ChildText(base(wbxml.BaseType))),
		TruncationSize: atoi(n.ChildText(base(wbxml.BaseTruncationSize))),
		AllOrNone:      n.ChildText(base(wbxml.BaseAllOrNone)) == "1",
	}
}

// splitServerID splits "collection:item" ids as emitted in Add blocks.
func splitServerID(serverID string) (collectionID string, itemID int64, err error) {
	idx := strings.LastIndex(serverID, ":")
	if idx <= 0 || idx == len(serverID)-1 {
		return "", 0, errors.Wrapf(easerrors.ErrMalformedRequest, "server id %q", serverID)
	}
	id, err := strconv.ParseInt(serverID[idx+1:], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, errors.Wrapf(easerrors.ErrMalformedRequest, "server id %q", serverID)
	}
	return serverID[:idx], id, nil
}

func serverID(collectionID string, itemID int64) string {
	return collectionID + ":" + strconv.FormatInt(itemID, 10)
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
