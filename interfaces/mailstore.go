package interfaces

import (
	"context"
	"time"

	"github.com/syncgate/syncgate/internal/models"
)

// MailStore is the read contract the ActiveSync core consumes. Item ids
// are opaque positive integers with no monotonic guarantee, hence the
// exclude-id sets for precise pagination.
type MailStore interface {
	ListItems(ctx context.Context, principalID int64, collectionID string, minIDExclusive int64, excludeIDs []int64, limit int) ([]models.Email, error)
	CountNew(ctx context.Context, principalID int64, collectionID string, minIDExclusive int64, excludeIDs []int64) (int64, error)
	GetItem(ctx context.Context, principalID int64, itemID int64) (*models.Email, error)
	ListFolders(ctx context.Context, principalID int64) ([]models.Folder, error)
	MarkRead(ctx context.Context, principalID int64, itemID int64, read bool) error
	EmptyFolder(ctx context.Context, principalID int64, collectionID string) error

	// BuildOrFetchMime returns the raw RFC 5322 message for an item,
	// synthesizing one from the stored fields when no raw copy exists.
	BuildOrFetchMime(ctx context.Context, item *models.Email) ([]byte, error)

	// SubscribeChanges blocks until one of the named collections changes,
	// the timeout elapses (nil, nil) or ctx is canceled.
	SubscribeChanges(ctx context.Context, principalID int64, collectionIDs []string, timeout time.Duration) ([]string, error)
}

// ChangePublisher is the write side of the Ping notification hub. The
// events subscriber and any in-process mutation publish through it.
type ChangePublisher interface {
	PublishChange(principalID int64, collectionID string)
}
