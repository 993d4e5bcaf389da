package models

import "time"

// Inventory event types published to the broker.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
	EventStockIncreased = "stock.increased"
	EventStockDecreased = "stock.decreased"
	EventStockLow       = "stock.low"
)

// InventoryEvent describes a change to a product.
type InventoryEvent struct {
	Type      string    `json:"type"`
	ProductID string    `json:"productId"`
	Code      string    `json:"code"`
	Quantity  int       `json:"quantity"`
	Delta     int       `json:"delta,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Stock command operations.
const (
	StockOperationIncrease = "increase"
	StockOperationDecrease = "decrease"
)

// StockCommand is an inbound request to adjust stock, received from the broker.
type StockCommand struct {
	ProductID string `json:"productId" validate:"required"`
	Operation string `json:"operation" validate:"required,oneof=increase decrease"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}
