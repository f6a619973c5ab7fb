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

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) interfaces.EmailRepository {
	return &emailRepository{db: db}
}

// ListAfter pages through a collection by item id. Item ids are not
// assumed monotonic with arrival order, so callers pass both a low-water
// mark and the explicit exclude set.
func (r *emailRepository) ListAfter(ctx context.Context, principalID int64, collectionID string, minIDExclusive int64, excludeIDs []int64, limit int) ([]models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.ListAfter")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag(tracing.SpanTagCollectionId, collectionID)

	query := r.db.WithContext(ctx).
		Where("principal_id = ? AND collection_id = ? AND id > ?", principalID, collectionID, minIDExclusive)
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}

	var emails []models.Email
	if err := query.Order("id asc").Limit(limit).Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	return emails, nil
}

func (r *emailRepository) CountAfter(ctx context.Context, principalID int64, collectionID string, minIDExclusive int64, excludeIDs []int64) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.CountAfter")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	query := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("principal_id = ? AND collection_id = ? AND id > ?", principalID, collectionID, minIDExclusive)
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return 0, fmt.Errorf("failed to count emails: %w", err)
	}
	return count, nil
}

func (r *emailRepository) GetByID(ctx context.Context, principalID int64, id int64) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var email models.Email
	result := r.db.WithContext(ctx).
		Where("principal_id = ? AND id = ?", principalID, id).
		First(&email)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get email: %w", result.Error)
	}
	return &email, nil
}

func (r *emailRepository) SetRead(ctx context.Context, principalID int64, id int64, read bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.SetRead")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("principal_id = ? AND id = ?", principalID, id).
		Updates(map[string]interface{}{
			"is_read":    read,
			"updated_at": utils.Now(),
		})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to update read flag: %w", result.Error)
	}
	return nil
}

func (r *emailRepository) DeleteByCollection(ctx context.Context, principalID int64, collectionID string) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.DeleteByCollection")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag(tracing.SpanTagCollectionId, collectionID)

	result := r.db.WithContext(ctx).
		Where("principal_id = ? AND collection_id = ?", principalID, collectionID).
		Delete(&models.Email{})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return 0, fmt.Errorf("failed to empty collection: %w", result.Error)
	}
	return result.RowsAffected, nil
}
