package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/phenofarm/internal/models"
)

func (r *GormRepo) ListBatches(ctx context.Context, growerID *uuid.UUID) ([]models.Batch, error) {
	q := r.DB.WithContext(ctx).Model(&models.Batch{}).Preload("Strain")
	if growerID != nil {
		q = q.Where("grower_id = ?", *growerID)
	}
	var items []models.Batch
	if err := q.Order("harvest_date DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetBatch(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	var b models.Batch
	if err := r.DB.WithContext(ctx).Preload("Strain").Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormRepo) BatchNumberTaken(ctx context.Context, growerID uuid.UUID, number string, except uuid.UUID) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Batch{}).
		Where("grower_id = ? AND batch_number = ? AND id <> ?", growerID, number, except).
		Count(&n).Error
	return n > 0, err
}

func (r *GormRepo) CreateBatch(ctx context.Context, b *models.Batch) error {
	return r.create(ctx, b)
}

func (r *GormRepo) SaveBatch(ctx context.Context, b *models.Batch) error {
	return r.save(ctx, b)
}

// DeleteBatch unlinks referencing products first; they fall back to their
// legacy lab values.
func (r *GormRepo) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("batch_id = ?", id).
		Update("batch_id", nil).Error; err != nil {
		return err
	}
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Batch{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
