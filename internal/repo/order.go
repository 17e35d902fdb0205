package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/phenofarm/internal/inventory"
	"github.com/Skotchmaster/phenofarm/internal/models"
	"github.com/Skotchmaster/phenofarm/internal/order"
)

type OrderFilter struct {
	GrowerID     *uuid.UUID
	DispensaryID *uuid.UUID
	Status       order.Status
}

func (r *GormRepo) CreateOrder(ctx context.Context, o *models.Order) error {
	return r.DB.WithContext(ctx).Create(o).Error
}

func (r *GormRepo) ListOrders(ctx context.Context, f OrderFilter, limit, offset int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{})
	if f.GrowerID != nil {
		q = q.Where("grower_id = ?", *f.GrowerID)
	}
	if f.DispensaryID != nil {
		q = q.Where("dispensary_id = ?", *f.DispensaryID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := q.Preload("Items").Order("created_at DESC").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) GetOrders(ctx context.Context, ids []uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").Where("id IN ?", ids).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// SaveOrder writes the order row only.
func (r *GormRepo) SaveOrder(ctx context.Context, o *models.Order) error {
	return r.save(ctx, o)
}

// ReplaceOrderItems swaps the item set of an order.
func (r *GormRepo) ReplaceOrderItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	if err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
		items[i].ID = uuid.Nil
	}
	return r.DB.WithContext(ctx).Create(&items).Error
}

// CommitStock decrements inventory for each line with a conditional update.
// A line that would go negative aborts with ErrInsufficientStock; callers run
// this inside a transaction so earlier lines roll back.
func (r *GormRepo) CommitStock(ctx context.Context, items []models.OrderItem) error {
	for _, it := range items {
		res := r.DB.WithContext(ctx).Model(&models.Product{}).
			Where("id = ? AND inventory_qty >= ?", it.ProductID, it.Quantity).
			UpdateColumn("inventory_qty", gorm.Expr("inventory_qty - ?", it.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			continue
		}

		var p models.Product
		if err := r.DB.WithContext(ctx).Select("id", "inventory_qty").Where("id = ?", it.ProductID).First(&p).Error; err != nil {
			return fmt.Errorf("product %s: %w", it.ProductID, err)
		}
		return fmt.Errorf("%w: product %s requested %d, %d in stock",
			inventory.ErrInsufficientStock, it.ProductID, it.Quantity, p.InventoryQty)
	}
	return nil
}

// ReleaseStock puts committed quantities back. Products deleted since the
// commit are skipped.
func (r *GormRepo) ReleaseStock(ctx context.Context, items []models.OrderItem) error {
	for _, it := range items {
		if err := r.DB.WithContext(ctx).Model(&models.Product{}).
			Where("id = ?", it.ProductID).
			UpdateColumn("inventory_qty", gorm.Expr("inventory_qty + ?", it.Quantity)).Error; err != nil {
			return err
		}
	}
	return nil
}
