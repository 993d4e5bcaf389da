package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"inventory/internal/models"
	"inventory/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
)

// StockMessageHandler applies stock commands received from the broker.
type StockMessageHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewStockMessageHandler creates a new StockMessageHandler.
func NewStockMessageHandler(service *services.ProductService) *StockMessageHandler {
	return &StockMessageHandler{
		service:  service,
		validate: newValidator(),
	}
}

// Handle processes one delivery. Malformed commands and domain rejections are
// logged and dropped; only unexpected failures are returned so the message is
// requeued.
func (h *StockMessageHandler) Handle(msg amqp.Delivery) error {
	var cmd models.StockCommand
	if err := json.Unmarshal(msg.Body, &cmd); err != nil {
		log.Warn().Err(err).Uint64("delivery_tag", msg.DeliveryTag).Msg("dropping malformed stock command")
		return nil
	}
	if err := h.validate.Struct(cmd); err != nil {
		log.Warn().Err(err).Str("product_id", cmd.ProductID).Msg("dropping invalid stock command")
		return nil
	}

	ctx := context.Background()
	var (
		product *models.Product
		err     error
	)
	switch cmd.Operation {
	case models.StockOperationIncrease:
		product, err = h.service.IncreaseStock(ctx, cmd.ProductID, cmd.Quantity)
	case models.StockOperationDecrease:
		product, err = h.service.DecreaseStock(ctx, cmd.ProductID, cmd.Quantity)
	}

	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) ||
			errors.Is(err, models.ErrInsufficientStock) ||
			errors.Is(err, models.ErrValidation) {
			log.Warn().Err(err).
				Str("product_id", cmd.ProductID).
				Str("operation", cmd.Operation).
				Int("quantity", cmd.Quantity).
				Msg("stock command rejected")
			return nil
		}
		return err
	}

	log.Info().
		Str("product_id", product.ID).
		Str("operation", cmd.Operation).
		Int("quantity", product.Quantity).
		Msg("stock command applied")
	return nil
}
