package handlers

import (
	"errors"
	"fmt"

	"inventory/internal/models"
	"inventory/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ProductRequest is the body of create and update requests. Quantity and Price
// are pointers so an omitted field fails validation instead of reading as zero.
type ProductRequest struct {
	Name              string   `json:"name" validate:"required,notblank"`
	Code              string   `json:"code" validate:"required,notblank"`
	Quantity          *int     `json:"quantity" validate:"required,gte=0"`
	Price             *float64 `json:"price" validate:"required,gt=0"`
	LowStockThreshold *int     `json:"lowStockThreshold"`
}

// ToProduct converts the request, applying the default low-stock threshold.
func (r ProductRequest) ToProduct() models.Product {
	p := models.Product{
		Name:              r.Name,
		Code:              r.Code,
		LowStockThreshold: models.DefaultLowStockThreshold,
	}
	if r.Quantity != nil {
		p.Quantity = *r.Quantity
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.LowStockThreshold != nil {
		p.LowStockThreshold = *r.LowStockThreshold
	}
	return p
}

// StockRequest is the body of increase-stock and decrease-stock requests.
type StockRequest struct {
	Quantity *int `json:"quantity"`
}

var fieldMessages = map[string]string{
	"name":     "Product name is required",
	"code":     "Product code is required",
	"quantity": "Quantity is required and must be zero or positive",
	"price":    "Price is required and must be positive",
}

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the product routes. Fixed paths are registered before
// "/:id" so they are not captured as IDs.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/search", h.HandleSearchProducts)
	productRoutes.Get("/low-stock", h.HandleGetLowStockProducts)
	productRoutes.Get("/stats", h.HandleGetStats)
	productRoutes.Get("/code/:code", h.HandleGetProductByCode)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
	productRoutes.Patch("/:id/increase-stock", h.HandleIncreaseStock)
	productRoutes.Patch("/:id/decrease-stock", h.HandleDecreaseStock)
}

// HandleGetProducts lists all products.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		return internalError(c, "Could not retrieve products", err)
	}
	return c.JSON(products)
}

// HandleSearchProducts lists products whose name contains the "query" parameter.
// The parameter is required; an empty value matches every product.
func (h *ProductHandler) HandleSearchProducts(c *fiber.Ctx) error {
	if !c.Context().QueryArgs().Has("query") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Query parameter 'query' is required",
		})
	}
	products, err := h.service.SearchProducts(c.UserContext(), c.Query("query"))
	if err != nil {
		return internalError(c, "Could not search products", err)
	}
	return c.JSON(products)
}

// HandleGetLowStockProducts lists products below their low-stock threshold.
func (h *ProductHandler) HandleGetLowStockProducts(c *fiber.Ctx) error {
	products, err := h.service.GetLowStockProducts(c.UserContext())
	if err != nil {
		return internalError(c, "Could not retrieve low stock products", err)
	}
	return c.JSON(products)
}

// HandleGetStats returns catalogue totals.
func (h *ProductHandler) HandleGetStats(c *fiber.Ctx) error {
	stats, err := h.service.GetInventoryStats(c.UserContext())
	if err != nil {
		return internalError(c, "Could not compute inventory stats", err)
	}
	return c.JSON(stats)
}

// HandleGetProductByID retrieves a single product, or 404.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	id := c.Params("id")
	product, err := h.service.GetProductByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Product with ID %s not found", id),
			})
		}
		return internalError(c, "Could not retrieve product", err)
	}
	return c.JSON(product)
}

// HandleGetProductByCode retrieves a single product by code, or 404.
func (h *ProductHandler) HandleGetProductByCode(c *fiber.Ctx) error {
	code := c.Params("code")
	product, err := h.service.GetProductByCode(c.UserContext(), code)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Product with code %s not found", code),
			})
		}
		return internalError(c, "Could not retrieve product", err)
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a product and returns it with its new ID.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	req, ok, err := h.parseProductRequest(c)
	if !ok {
		return err
	}

	product := req.ToProduct()
	if err := h.service.CreateProduct(c.UserContext(), &product); err != nil {
		return mutationError(c, "Could not create product", err)
	}
	return c.JSON(product)
}

// HandleUpdateProduct replaces every field of an existing product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	req, ok, err := h.parseProductRequest(c)
	if !ok {
		return err
	}

	product, err := h.service.UpdateProduct(c.UserContext(), c.Params("id"), req.ToProduct())
	if err != nil {
		return mutationError(c, "Could not update product", err)
	}
	return c.JSON(product)
}

// HandleDeleteProduct removes a product and responds 204.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return mutationError(c, "Could not delete product", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleIncreaseStock adds stock to a product.
func (h *ProductHandler) HandleIncreaseStock(c *fiber.Ctx) error {
	amount, ok, err := parseStockRequest(c)
	if !ok {
		return err
	}
	product, err := h.service.IncreaseStock(c.UserContext(), c.Params("id"), amount)
	if err != nil {
		return mutationError(c, "Could not increase stock", err)
	}
	return c.JSON(product)
}

// HandleDecreaseStock removes stock from a product.
func (h *ProductHandler) HandleDecreaseStock(c *fiber.Ctx) error {
	amount, ok, err := parseStockRequest(c)
	if !ok {
		return err
	}
	product, err := h.service.DecreaseStock(c.UserContext(), c.Params("id"), amount)
	if err != nil {
		return mutationError(c, "Could not decrease stock", err)
	}
	return c.JSON(product)
}

// parseProductRequest binds and validates the body. When ok is false the error
// response has already been written and err is what the handler should return.
func (h *ProductHandler) parseProductRequest(c *fiber.Ctx) (req ProductRequest, ok bool, err error) {
	if err := c.BodyParser(&req); err != nil {
		log.Debug().Err(err).Msg("error parsing product request body")
		return req, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return req, false, internalError(c, "Could not validate request", err)
		}
		return req, false, validationFailed(c, validationFieldMessages(validationErrors))
	}
	return req, true, nil
}

func parseStockRequest(c *fiber.Ctx) (amount int, ok bool, err error) {
	var req StockRequest
	if err := c.BodyParser(&req); err != nil {
		return 0, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if req.Quantity == nil || *req.Quantity <= 0 {
		return 0, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Quantity must be positive",
		})
	}
	return *req.Quantity, true, nil
}

func validationFieldMessages(validationErrors validator.ValidationErrors) map[string]string {
	errorMessages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		msg, ok := fieldMessages[e.Field()]
		if !ok {
			msg = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		errorMessages[e.Field()] = msg
	}
	return errorMessages
}

func validationFailed(c *fiber.Ctx, fields map[string]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  fields,
	})
}

// mutationError maps domain failures of write operations to 400, including a
// missing product, and anything else to 500.
func mutationError(c *fiber.Ctx, message string, err error) error {
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationFailed(c, validationErr.Fields)
	case errors.Is(err, models.ErrProductNotFound),
		errors.Is(err, models.ErrDuplicateCode),
		errors.Is(err, models.ErrInsufficientStock):
		log.Info().Err(err).Str("path", c.Path()).Msg("rejected product mutation")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": message,
			"error":   err.Error(),
		})
	default:
		return internalError(c, message, err)
	}
}

func internalError(c *fiber.Ctx, message string, err error) error {
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg(message)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}
