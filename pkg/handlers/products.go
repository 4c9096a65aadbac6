package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/apperrors"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/auth"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/repositories"
)

// ProductsHandler serves the product catalog to the dashboard.
type ProductsHandler struct {
	repo   repositories.ProductRepository
	logger *zap.Logger
}

// NewProductsHandler creates a new products handler.
func NewProductsHandler(repo repositories.ProductRepository, logger *zap.Logger) *ProductsHandler {
	return &ProductsHandler{repo: repo, logger: logger}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *ProductsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/products", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/products/{pid}", authMiddleware.RequireAuth(h.Get))
}

// List handles GET /api/products.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list products")
		return
	}

	if products == nil {
		products = []*models.Product{}
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: products})
}

// Get handles GET /api/products/{pid}.
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(r.PathValue("pid"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_product_id", "Invalid product ID format")
		return
	}

	product, err := h.repo.Get(r.Context(), productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "not_found", "Product not found")
			return
		}
		h.logger.Error("Failed to load product",
			zap.String("product_id", productID.String()),
			zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to load product")
		return
	}

	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: product})
}
