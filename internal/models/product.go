package models

import "time"

// DefaultLowStockThreshold is applied when a request leaves the threshold unset.
const DefaultLowStockThreshold = 10

// Product represents an inventory record.
type Product struct {
	ID                string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name              string    `json:"name" gorm:"type:varchar(255);not null"`
	Code              string    `json:"code" gorm:"type:varchar(100);uniqueIndex;not null"`
	Quantity          int       `json:"quantity" gorm:"not null"`
	Price             float64   `json:"price" gorm:"not null"`
	LowStockThreshold int       `json:"lowStockThreshold" gorm:"column:low_stock_threshold;not null"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// TableName pins the table name independently of GORM's naming strategy.
func (Product) TableName() string {
	return "products"
}

// IsLowStock reports whether the product is below its restock threshold.
func (p Product) IsLowStock() bool {
	return p.Quantity < p.LowStockThreshold
}

// InventoryStats summarises the whole catalogue.
type InventoryStats struct {
	TotalProducts int     `json:"totalProducts"`
	LowStockItems int     `json:"lowStockItems"`
	TotalItems    int     `json:"totalItems"`
	TotalValue    float64 `json:"totalValue"`
}
