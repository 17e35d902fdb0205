package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/phenofarm/internal/models"
)

func (r *GormRepo) ListStrains(ctx context.Context, growerID *uuid.UUID) ([]models.Strain, error) {
	q := r.DB.WithContext(ctx).Model(&models.Strain{})
	if growerID != nil {
		q = q.Where("grower_id = ?", *growerID)
	}
	var items []models.Strain
	if err := q.Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetStrain(ctx context.Context, id uuid.UUID) (*models.Strain, error) {
	var s models.Strain
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormRepo) CreateStrain(ctx context.Context, s *models.Strain) error {
	return r.create(ctx, s)
}
