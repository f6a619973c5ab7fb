package interfaces

import (
	"context"

	"github.com/syncgate/syncgate/internal/models"
)

type PrincipalRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Principal, error)
}

type DeviceRepository interface {
	// GetOrCreate returns the device row for (principal, deviceID),
	// creating it on first contact.
	GetOrCreate(ctx context.Context, principalID int64, deviceID, deviceType, userAgent string) (*models.Device, error)
	Save(ctx context.Context, device *models.Device) error
	// ListIdleSince returns devices not seen since the cutoff, for the
	// maintenance sweep.
	ListIdleSince(ctx context.Context, cutoffDays int) ([]models.Device, error)
}

type SyncStateRepository interface {
	// Load returns the sync state for (principal, device, collection),
	// creating a fresh "0" record if none exists.
	Load(ctx context.Context, principalID int64, deviceID, collectionID string) (*models.SyncState, error)
	Save(ctx context.Context, state *models.SyncState) error
	Delete(ctx context.Context, principalID int64, deviceID, collectionID string) error
	// ClearStalePending drops pending batches older than the given number
	// of hours across all devices.
	ClearStalePending(ctx context.Context, olderThanHours int) (int64, error)
}

type FolderRepository interface {
	// ListByPrincipal returns the folder hierarchy, seeding the default
	// set on first call.
	ListByPrincipal(ctx context.Context, principalID int64) ([]models.Folder, error)
	GetByCollectionID(ctx context.Context, principalID int64, collectionID string) (*models.Folder, error)
}

type EmailRepository interface {
	// ListAfter returns up to limit emails in a collection with id greater
	// than minIDExclusive and id not in excludeIDs, ordered by id.
	ListAfter(ctx context.Context, principalID int64, collectionID string, minIDExclusive int64, excludeIDs []int64, limit int) ([]models.Email, error)
	CountAfter(ctx context.Context, principalID int64, collectionID string, minIDExclusive int64, excludeIDs []int64) (int64, error)
	GetByID(ctx context.Context, principalID int64, id int64) (*models.Email, error)
	SetRead(ctx context.Context, principalID int64, id int64, read bool) error
	DeleteByCollection(ctx context.Context, principalID int64, collectionID string) (int64, error)
}
