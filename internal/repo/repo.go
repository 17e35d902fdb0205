package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/phenofarm/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// Transaction runs fn against a repo bound to a single transaction. Every
// read and write inside fn must go through the repo it receives.
func (r *GormRepo) Transaction(ctx context.Context, fn func(tx *GormRepo) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepo{DB: tx})
	})
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// save writes the row itself; associations are owned by their own calls.
func (r *GormRepo) save(ctx context.Context, v any) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Save(v).Error
}

func (r *GormRepo) create(ctx context.Context, v any) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(v).Error
}
