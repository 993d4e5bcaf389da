package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inventory/internal/models"
	"inventory/internal/repositories"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// EventPublisher receives inventory change notifications.
type EventPublisher interface {
	PublishInventoryEvent(event models.InventoryEvent) error
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo      repositories.ProductRepository
	publisher EventPublisher
	now       func() time.Time
}

// NewProductService creates a new ProductService. publisher may be nil, in which
// case no events are emitted.
func NewProductService(repo repositories.ProductRepository, publisher EventPublisher) *ProductService {
	return &ProductService{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// GetProductByCode retrieves a single product by its code.
func (s *ProductService) GetProductByCode(ctx context.Context, code string) (*models.Product, error) {
	return s.repo.GetByCode(ctx, code)
}

// SearchProducts returns products whose name contains query, ignoring case.
// An empty query matches every product.
func (s *ProductService) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	return s.repo.SearchByName(ctx, query)
}

// GetLowStockProducts returns products whose quantity is below their threshold.
func (s *ProductService) GetLowStockProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetLowStock(ctx)
}

// CreateProduct stores a new product after checking its code is unused.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	exists, err := s.repo.ExistsByCode(ctx, product.Code)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("product with code %s already exists: %w", product.Code, models.ErrDuplicateCode)
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return err
	}
	s.publish(models.EventProductCreated, product, 0)
	return nil
}

// UpdateProduct overwrites every mutable field of an existing product.
//
// Code uniqueness is not re-checked here; a collision is only caught by the
// store's unique constraint.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, details models.Product) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if product.Code != details.Code {
		log.Warn().
			Str("product_id", id).
			Str("old_code", product.Code).
			Str("new_code", details.Code).
			Msg("product code changed on update")
	}

	product.Name = details.Name
	product.Code = details.Code
	product.Price = details.Price
	product.Quantity = details.Quantity
	product.LowStockThreshold = details.LowStockThreshold

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	s.publish(models.EventProductUpdated, product, 0)
	return product, nil
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(models.EventProductDeleted, product, 0)
	return nil
}

// IncreaseStock adds amount units to the product's quantity.
func (s *ProductService) IncreaseStock(ctx context.Context, id string, amount int) (*models.Product, error) {
	if amount <= 0 {
		return nil, models.NewValidationError("quantity", "must be positive")
	}
	product, err := s.repo.AdjustQuantity(ctx, id, amount)
	if err != nil {
		return nil, err
	}
	s.publish(models.EventStockIncreased, product, amount)
	return product, nil
}

// DecreaseStock removes amount units from the product's quantity. It fails with
// models.ErrInsufficientStock when fewer than amount units are available.
func (s *ProductService) DecreaseStock(ctx context.Context, id string, amount int) (*models.Product, error) {
	if amount <= 0 {
		return nil, models.NewValidationError("quantity", "must be positive")
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Quantity < amount {
		return nil, fmt.Errorf("%w. Available: %d", models.ErrInsufficientStock, current.Quantity)
	}

	// The store re-checks the quantity; a concurrent decrease may have won the race.
	product, err := s.repo.AdjustQuantity(ctx, id, -amount)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientStock) {
			if latest, getErr := s.repo.GetByID(ctx, id); getErr == nil {
				return nil, fmt.Errorf("%w. Available: %d", models.ErrInsufficientStock, latest.Quantity)
			}
		}
		return nil, err
	}

	s.publish(models.EventStockDecreased, product, -amount)
	if product.IsLowStock() {
		s.publish(models.EventStockLow, product, 0)
	}
	return product, nil
}

// GetInventoryStats aggregates counts and the total stock value.
func (s *ProductService) GetInventoryStats(ctx context.Context) (*models.InventoryStats, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.InventoryStats{TotalProducts: len(products)}
	total := decimal.Zero
	for _, p := range products {
		if p.IsLowStock() {
			stats.LowStockItems++
		}
		stats.TotalItems += p.Quantity
		total = total.Add(decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(p.Quantity))))
	}
	stats.TotalValue = total.Round(2).InexactFloat64()
	return stats, nil
}

func (s *ProductService) publish(eventType string, product *models.Product, delta int) {
	if s.publisher == nil {
		return
	}
	event := models.InventoryEvent{
		Type:      eventType,
		ProductID: product.ID,
		Code:      product.Code,
		Quantity:  product.Quantity,
		Delta:     delta,
		Timestamp: s.now(),
	}
	if err := s.publisher.PublishInventoryEvent(event); err != nil {
		log.Warn().Err(err).
			Str("event", eventType).
			Str("product_id", product.ID).
			Msg("failed to publish inventory event")
	}
}
