package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"intradaybot/src/database"
	"intradaybot/src/model"
)

// OrderRepository handles read/write operations for orders and their fills.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new repository instance using the main read/write database.
func NewOrderRepository() *OrderRepository {
	logger.WithField("component", "OrderRepository").
		Debug("Creating new OrderRepository with MainDB")

	return &OrderRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts an order and, when given, its fill in one transaction.
func (r *OrderRepository) Create(
	ctx context.Context,
	order *model.Order,
	fill *model.Fill,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":   "OrderRepository",
		"op":     "Create",
		"symbol": order.Symbol,
		"side":   order.Side,
		"qty":    order.Qty,
		"status": order.Status,
	}).Debug("Creating new order")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		if fill == nil {
			return nil
		}
		fill.ClientOrderID = order.ClientOrderID
		return tx.Create(fill).Error
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":            "OrderRepository",
			"op":              "Create",
			"client_order_id": order.ClientOrderID,
		}).WithError(err).Error("Failed to create order")

		return err
	}
	return nil
}

// FindByClientOrderID fetches an order by its client order id.
// Returns (nil, nil) if the order is not found.
func (r *OrderRepository) FindByClientOrderID(
	ctx context.Context,
	clientOrderID string,
) (*model.Order, error) {

	var order model.Order
	err := r.db.WithContext(ctx).
		Where("client_order_id = ?", clientOrderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// FillsFor returns the fills of one order in insertion order.
func (r *OrderRepository) FillsFor(ctx context.Context, clientOrderID string) ([]model.Fill, error) {
	var fills []model.Fill
	err := r.db.WithContext(ctx).
		Where("client_order_id = ?", clientOrderID).
		Order("id ASC").
		Find(&fills).Error
	return fills, err
}

// OrderSearchOptions narrows Search results.
type OrderSearchOptions struct {
	Symbol *string
	Status *string
	Limit  int
	Offset int
}

// Search lists orders newest first.
func (r *OrderRepository) Search(ctx context.Context, opts OrderSearchOptions) ([]model.Order, error) {
	query := r.db.WithContext(ctx).Model(&model.Order{})

	if opts.Symbol != nil {
		query = query.Where("symbol = ?", *opts.Symbol)
	}
	if opts.Status != nil {
		query = query.Where("status = ?", *opts.Status)
	}
	query = query.Order("id DESC")
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	var orders []model.Order
	if err := query.Find(&orders).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "Search",
		}).WithError(err).Error("Failed to search orders")
		return nil, err
	}
	return orders, nil
}
