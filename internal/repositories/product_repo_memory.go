package repositories

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"inventory/internal/models"

	"github.com/google/uuid"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository.
// It enforces the same unique-code constraint as the relational schema.
type MemoryProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		products: make(map[string]models.Product),
	}
}

// GetAll returns all products.
func (r *MemoryProductRepository) GetAll(_ context.Context) ([]models.Product, error) {
	return r.filter(func(models.Product) bool { return true }), nil
}

// GetByID returns a product by its ID.
func (r *MemoryProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, models.ErrProductNotFound)
	}
	return &product, nil
}

// GetByCode returns a product by its code.
func (r *MemoryProductRepository) GetByCode(_ context.Context, code string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.products {
		if p.Code == code {
			product := p
			return &product, nil
		}
	}
	return nil, fmt.Errorf("product with code %s: %w", code, models.ErrProductNotFound)
}

// SearchByName returns products whose name contains query, ignoring case.
func (r *MemoryProductRepository) SearchByName(_ context.Context, query string) ([]models.Product, error) {
	return r.filter(func(p models.Product) bool {
		return nameContains(p.Name, query)
	}), nil
}

// GetLowStock returns products whose quantity is below their threshold.
func (r *MemoryProductRepository) GetLowStock(_ context.Context) ([]models.Product, error) {
	return r.filter(models.Product.IsLowStock), nil
}

// ExistsByID reports whether a product with the given ID is stored.
func (r *MemoryProductRepository) ExistsByID(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.products[id]
	return ok, nil
}

// ExistsByCode reports whether a product with the given code is stored.
func (r *MemoryProductRepository) ExistsByCode(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.codeTakenLocked(code, ""), nil
}

// Create adds a new product.
func (r *MemoryProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.codeTakenLocked(product.Code, "") {
		return fmt.Errorf("product with code %s: %w", product.Code, models.ErrDuplicateCode)
	}
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	r.products[product.ID] = *product
	return nil
}

// Update modifies an existing product.
func (r *MemoryProductRepository) Update(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[product.ID]
	if !ok {
		return fmt.Errorf("product with ID %s for update: %w", product.ID, models.ErrProductNotFound)
	}
	if r.codeTakenLocked(product.Code, product.ID) {
		return fmt.Errorf("product with code %s: %w", product.Code, models.ErrDuplicateCode)
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now()
	r.products[product.ID] = *product
	return nil
}

// Delete removes a product by its ID.
func (r *MemoryProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return fmt.Errorf("product with ID %s for deletion: %w", id, models.ErrProductNotFound)
	}
	delete(r.products, id)
	return nil
}

// AdjustQuantity adds delta to the product's quantity under the write lock.
func (r *MemoryProductRepository) AdjustQuantity(_ context.Context, id string, delta int) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, models.ErrProductNotFound)
	}
	if delta > 0 && product.Quantity > math.MaxInt-delta {
		return nil, stockLimitError(id, delta)
	}
	if product.Quantity+delta < 0 {
		return nil, fmt.Errorf("product with ID %s cannot release %d units: %w", id, -delta, models.ErrInsufficientStock)
	}
	product.Quantity += delta
	product.UpdatedAt = time.Now()
	r.products[id] = product
	return &product, nil
}

func (r *MemoryProductRepository) filter(keep func(models.Product) bool) []models.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if keep(p) {
			productList = append(productList, p)
		}
	}
	return productList
}

// codeTakenLocked must be called with r.mu held.
func (r *MemoryProductRepository) codeTakenLocked(code, exceptID string) bool {
	for id, p := range r.products {
		if p.Code == code && id != exceptID {
			return true
		}
	}
	return false
}
