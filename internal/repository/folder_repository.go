package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/syncgate/syncgate/interfaces"
	"github.com/syncgate/syncgate/internal/models"
	"github.com/syncgate/syncgate/internal/tracing"
)

type folderRepository struct {
	db *gorm.DB
}

func NewFolderRepository(db *gorm.DB) interfaces.FolderRepository {
	return &folderRepository{db: db}
}

// ListByPrincipal returns the folder hierarchy, seeding the default folder
// set on the principal's first contact.
func (r *folderRepository) ListByPrincipal(ctx context.Context, principalID int64) ([]models.Folder, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderRepository.ListByPrincipal")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag(tracing.SpanTagPrincipalId, principalID)

	var folders []models.Folder
	if err := r.db.WithContext(ctx).
		Where("principal_id = ?", principalID).
		Order("collection_id").
		Find(&folders).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	if len(folders) > 0 {
		return folders, nil
	}

	folders = models.DefaultFolders(principalID)
	if err := r.db.WithContext(ctx).Create(&folders).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to seed folders: %w", err)
	}
	return folders, nil
}

func (r *folderRepository) GetByCollectionID(ctx context.Context, principalID int64, collectionID string) (*models.Folder, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderRepository.GetByCollectionID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var folder models.Folder
	result := r.db.WithContext(ctx).
		Where("principal_id = ? AND collection_id = ?", principalID, collectionID).
		First(&folder)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get folder: %w", result.Error)
	}
	return &folder, nil
}
