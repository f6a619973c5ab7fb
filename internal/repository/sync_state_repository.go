package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/syncgate/syncgate/interfaces"
	"github.com/syncgate/syncgate/internal/models"
	"github.com/syncgate/syncgate/internal/tracing"
	"github.com/syncgate/syncgate/internal/utils"
)

type syncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) interfaces.SyncStateRepository {
	return &syncStateRepository{db: db}
}

// Load retrieves the sync state for a (principal, device, collection),
// creating a fresh record at SyncKey "0" when none exists yet.
func (r *syncStateRepository) Load(ctx context.Context, principalID int64, deviceID, collectionID string) (*models.SyncState, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.Load")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag(tracing.SpanTagPrincipalId, principalID)
	span.SetTag(tracing.SpanTagDeviceId, deviceID)
	span.SetTag(tracing.SpanTagCollectionId, collectionID)

	var state models.SyncState
	result := r.db.WithContext(ctx).
		Where("principal_id = ? AND device_id = ? AND collection_id = ?", principalID, deviceID, collectionID).
		First(&state)

	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			tracing.TraceErr(span, result.Error)
			return nil, fmt.Errorf("failed to load sync state: %w", result.Error)
		}
		state = models.SyncState{
			PrincipalID:    principalID,
			DeviceID:       deviceID,
			CollectionID:   collectionID,
			CurrentSyncKey: "0",
		}
		if err := r.db.WithContext(ctx).Create(&state).Error; err != nil {
			tracing.TraceErr(span, err)
			return nil, fmt.Errorf("failed to create sync state: %w", err)
		}
	}

	return &state, nil
}

func (r *syncStateRepository) Save(ctx context.Context, state *models.SyncState) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.Save")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	state.UpdatedAt = utils.Now()
	if err := r.db.WithContext(ctx).Save(state).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}

func (r *syncStateRepository) Delete(ctx context.Context, principalID int64, deviceID, collectionID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).
		Where("principal_id = ? AND device_id = ? AND collection_id = ?", principalID, deviceID, collectionID).
		Delete(&models.SyncState{})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to delete sync state: %w", result.Error)
	}
	return nil
}

// ClearStalePending drops pending batches that have sat unconfirmed longer
// than the cutoff; the client has clearly abandoned them.
func (r *syncStateRepository) ClearStalePending(ctx context.Context, olderThanHours int) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.ClearStalePending")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	cutoff := utils.Now().Add(-1 * utils.Hours(olderThanHours))
	result := r.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Where("pending_sync_key IS NOT NULL AND updated_at < ?", cutoff).
		Updates(map[string]interface{}{
			"pending_sync_key":    nil,
			"pending_item_ids":    nil,
			"pending_max_item_id": nil,
			"pending_response":    nil,
			"updated_at":          utils.Now(),
		})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return 0, fmt.Errorf("failed to clear stale pending batches: %w", result.Error)
	}
	return result.RowsAffected, nil
}
