package repositories

import (
	"context"
	"fmt"
	"strings"

	"inventory/internal/models"
)

// ProductRepository defines the interface for product data access.
//
// Lookups of a missing product return an error wrapping models.ErrProductNotFound.
// Create and Update return an error wrapping models.ErrDuplicateCode when the code
// is already taken by another product.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetByCode(ctx context.Context, code string) (*models.Product, error)
	SearchByName(ctx context.Context, query string) ([]models.Product, error)
	GetLowStock(ctx context.Context) ([]models.Product, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	// AdjustQuantity adds delta to the stored quantity in one atomic step and
	// returns the updated product. A negative delta larger than the current
	// quantity fails with models.ErrInsufficientStock, and a positive delta that
	// would overflow the quantity fails with a *models.ValidationError. Neither
	// changes anything.
	AdjustQuantity(ctx context.Context, id string, delta int) (*models.Product, error)
}

func stockLimitError(id string, delta int) error {
	return fmt.Errorf("product with ID %s: %w", id,
		models.NewValidationError("quantity", fmt.Sprintf("adding %d units exceeds the maximum stock level", delta)))
}

// nameContains reports whether name contains query, folding Unicode case.
func nameContains(name, query string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}
