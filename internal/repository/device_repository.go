package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/syncgate/syncgate/interfaces"
	"github.com/syncgate/syncgate/internal/models"
	"github.com/syncgate/syncgate/internal/tracing"
	"github.com/syncgate/syncgate/internal/utils"
)

type deviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) interfaces.DeviceRepository {
	return &deviceRepository{db: db}
}

// GetOrCreate loads the device row for (principal, deviceID), creating it
// on first contact and refreshing last_seen on every call.
func (r *deviceRepository) GetOrCreate(ctx context.Context, principalID int64, deviceID, deviceType, userAgent string) (*models.Device, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "deviceRepository.GetOrCreate")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag(tracing.SpanTagPrincipalId, principalID)
	span.SetTag(tracing.SpanTagDeviceId, deviceID)

	var device models.Device
	result := r.db.WithContext(ctx).
		Where("principal_id = ? AND device_id = ?", principalID, deviceID).
		First(&device)

	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			tracing.TraceErr(span, result.Error)
			return nil, fmt.Errorf("failed to get device: %w", result.Error)
		}
		device = models.Device{
			PrincipalID: principalID,
			DeviceID:    deviceID,
			DeviceType:  deviceType,
			UserAgent:   userAgent,
			PolicyKey:   "0",
			Provision:   models.ProvisionStateNone,
			LastSeen:    utils.Now(),
		}
		if err := r.db.WithContext(ctx).Create(&device).Error; err != nil {
			tracing.TraceErr(span, err)
			return nil, fmt.Errorf("failed to create device: %w", err)
		}
		return &device, nil
	}

	updates := map[string]interface{}{
		"last_seen":  utils.Now(),
		"updated_at": utils.Now(),
	}
	if deviceType != "" && deviceType != device.DeviceType {
		updates["device_type"] = deviceType
		device.DeviceType = deviceType
	}
	if userAgent != "" && userAgent != device.UserAgent {
		updates["user_agent"] = userAgent
		device.UserAgent = userAgent
	}
	if err := r.db.WithContext(ctx).Model(&device).Updates(updates).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to touch device: %w", err)
	}
	device.LastSeen = updates["last_seen"].(time.Time)

	return &device, nil
}

func (r *deviceRepository) Save(ctx context.Context, device *models.Device) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "deviceRepository.Save")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	device.UpdatedAt = utils.Now()
	if err := r.db.WithContext(ctx).Save(device).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to save device: %w", err)
	}
	return nil
}

func (r *deviceRepository) ListIdleSince(ctx context.Context, cutoffDays int) ([]models.Device, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "deviceRepository.ListIdleSince")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	cutoff := utils.Now().AddDate(0, 0, -cutoffDays)
	var devices []models.Device
	if err := r.db.WithContext(ctx).Where("last_seen < ?", cutoff).Find(&devices).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list idle devices: %w", err)
	}
	return devices, nil
}
