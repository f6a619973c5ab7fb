package repository

import (
	"fmt"

	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/syncgate/syncgate/interfaces"
	"github.com/syncgate/syncgate/internal/models"
	"github.com/syncgate/syncgate/internal/tracing"
)

type principalRepository struct {
	db *gorm.DB
}

func NewPrincipalRepository(db *gorm.DB) interfaces.PrincipalRepository {
	return &principalRepository{db: db}
}

func (r *principalRepository) GetByEmail(ctx context.Context, email string) (*models.Principal, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "principalRepository.GetByEmail")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var principal models.Principal
	result := r.db.WithContext(ctx).
		Where("email_address = ?", email).
		First(&principal)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get principal: %w", result.Error)
	}

	return &principal, nil
}
