package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/apperrors"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/auth"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/services"
)

// DatabaseResponse is the outward shape of a configuration row. Credentials
// never appear; has_credentials tells the dashboard whether a key is stored.
type DatabaseResponse struct {
	ID              string `json:"id"`
	ProductID       string `json:"product_id"`
	ProductName     string `json:"product_name"`
	DBKind          string `json:"db_kind"`
	EndpointURL     string `json:"endpoint_url,omitempty"`
	Host            string `json:"host,omitempty"`
	Port            int    `json:"port,omitempty"`
	DatabaseName    string `json:"database_name,omitempty"`
	SchemaName      string `json:"schema_name"`
	IsActive        bool   `json:"is_active"`
	HasCredentials  bool   `json:"has_credentials"`
	HealthStatus    string `json:"health_status,omitempty"`
	LastHealthCheck string `json:"last_health_check,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// ListDatabasesResponse wraps the array for frontend compatibility.
type ListDatabasesResponse struct {
	Databases []DatabaseResponse `json:"databases"`
}

// TestConnectionResponse reports a candidate-credential probe.
type TestConnectionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ApiResponse wraps data in the format expected by the dashboard frontend.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ProductDatabasesHandler handles product database configuration requests.
type ProductDatabasesHandler struct {
	service services.ProductDatabaseService
	logger  *zap.Logger
}

// NewProductDatabasesHandler creates a new handler.
func NewProductDatabasesHandler(service services.ProductDatabaseService, logger *zap.Logger) *ProductDatabasesHandler {
	return &ProductDatabasesHandler{service: service, logger: logger}
}

// RegisterRoutes registers the handler's routes on the given mux. All routes
// require an authenticated admin token.
func (h *ProductDatabasesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/databases", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/products/{pid}/database", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("POST /api/products/{pid}/database", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("PUT /api/products/{pid}/database", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("DELETE /api/products/{pid}/database", authMiddleware.RequireAuth(h.Delete))
	mux.HandleFunc("POST /api/products/{pid}/database/test", authMiddleware.RequireAuth(h.TestConnection))
	mux.HandleFunc("POST /api/products/{pid}/database/health", authMiddleware.RequireAuth(h.CheckHealth))
	mux.HandleFunc("GET /api/products/{pid}/database/tables", authMiddleware.RequireAuth(h.ListTables))
	mux.HandleFunc("GET /api/products/{pid}/database/tables/{table}", authMiddleware.RequireAuth(h.InspectTable))
	mux.HandleFunc("GET /api/products/{pid}/database/activity", authMiddleware.RequireAuth(h.Activity))
}

// List handles GET /api/databases.
func (h *ProductDatabasesHandler) List(w http.ResponseWriter, r *http.Request) {
	databases, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list database configurations", zap.Error(err))
		h.writeErr(w, http.StatusInternalServerError, "internal_error", "Failed to list database configurations")
		return
	}

	data := ListDatabasesResponse{Databases: make([]DatabaseResponse, len(databases))}
	for i, pd := range databases {
		data.Databases[i] = toDatabaseResponse(pd)
	}

	h.writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data})
}

// Get handles GET /api/products/{pid}/database.
func (h *ProductDatabasesHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	pd, err := h.service.Get(r.Context(), productID)
	if err != nil {
		h.serviceError(w, productID, err, "Failed to load database configuration")
		return
	}

	h.writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: toDatabaseResponse(pd)})
}

// Create handles POST /api/products/{pid}/database.
func (h *ProductDatabasesHandler) Create(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	var input services.CreateDatabaseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeErr(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	input.ProductID = productID

	pd, err := h.service.Create(r.Context(), &input)
	if err != nil {
		h.serviceError(w, productID, err, "Failed to create database configuration")
		return
	}

	h.writeJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: toDatabaseResponse(pd)})
}

// Update handles PUT /api/products/{pid}/database.
func (h *ProductDatabasesHandler) Update(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	var input services.UpdateDatabaseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeErr(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	pd, err := h.service.Update(r.Context(), productID, &input)
	if err != nil {
		h.serviceError(w, productID, err, "Failed to update database configuration")
		return
	}

	h.writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: toDatabaseResponse(pd)})
}

// Delete handles DELETE /api/products/{pid}/database.
func (h *ProductDatabasesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), productID); err != nil {
		h.serviceError(w, productID, err, "Failed to delete database configuration")
		return
	}

	h.writeJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Database configuration deleted"})
}

// TestConnection handles POST /api/products/{pid}/database/test. The
// candidate credentials come from the body and are never persisted.
func (h *ProductDatabasesHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.productID(w, r); !ok {
		return
	}

	var candidate models.CredentialCandidate
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		h.writeErr(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	result := h.service.TestConnection(r.Context(), candidate)

	h.writeJSON(w, http.StatusOK, TestConnectionResponse{
		Success: result.OK,
		Message: result.Message,
		Error:   result.Error,
	})
}

// CheckHealth handles POST /api/products/{pid}/database/health.
func (h *ProductDatabasesHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	result := h.service.CheckHealth(r.Context(), productID)

	h.writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result})
}

// ListTables handles GET /api/products/{pid}/database/tables.
func (h *ProductDatabasesHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	tables, err := h.service.ListTables(r.Context(), productID)
	if err != nil {
		h.serviceError(w, productID, err, "Failed to list tenant tables")
		return
	}

	h.writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: tables})
}

// InspectTable handles GET /api/products/{pid}/database/tables/{table}.
func (h *ProductDatabasesHandler) InspectTable(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	tableName := r.PathValue("table")
	if tableName == "" {
		h.writeErr(w, http.StatusBadRequest, "missing_table", "Table name is required")
		return
	}

	details, err := h.service.InspectTable(r.Context(), productID, tableName)
	if err != nil {
		h.serviceError(w, productID, err, "Failed to inspect tenant table")
		return
	}

	h.writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: details})
}

// Activity handles GET /api/products/{pid}/database/activity.
func (h *ProductDatabasesHandler) Activity(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeErr(w, http.StatusBadRequest, "invalid_limit", "Limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	entries, err := h.service.RecentActivity(r.Context(), productID, limit)
	if err != nil {
		h.serviceError(w, productID, err, "Failed to load activity")
		return
	}

	if entries == nil {
		entries = []*models.ActivityLog{}
	}
	h.writeJSON(w, http.StatusOK, ApiResponse{Success: true, Data: entries})
}

// productID parses the {pid} path segment, writing a 400 on failure.
func (h *ProductDatabasesHandler) productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	productID, err := uuid.Parse(r.PathValue("pid"))
	if err != nil {
		h.writeErr(w, http.StatusBadRequest, "invalid_product_id", "Invalid product ID format")
		return uuid.Nil, false
	}
	return productID, true
}

// serviceError maps service-layer errors onto HTTP statuses.
func (h *ProductDatabasesHandler) serviceError(w http.ResponseWriter, productID uuid.UUID, err error, logMessage string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		h.writeErr(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, apperrors.ErrConfigNotFound), errors.Is(err, apperrors.ErrNotFound):
		h.writeErr(w, http.StatusNotFound, "not_found", "No database configuration for this product")
	case errors.Is(err, apperrors.ErrConflict):
		h.writeErr(w, http.StatusConflict, "conflict", "This product already has an active database configuration")
	case errors.Is(err, apperrors.ErrUnsupportedKind), errors.Is(err, apperrors.ErrIncompleteConfig):
		h.writeErr(w, http.StatusUnprocessableEntity, "unusable_configuration", err.Error())
	default:
		h.logger.Error(logMessage,
			zap.String("product_id", productID.String()),
			zap.Error(err))
		h.writeErr(w, http.StatusInternalServerError, "internal_error", logMessage)
	}
}

func (h *ProductDatabasesHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *ProductDatabasesHandler) writeErr(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func toDatabaseResponse(pd *models.ProductDatabase) DatabaseResponse {
	resp := DatabaseResponse{
		ID:             pd.ID.String(),
		ProductID:      pd.ProductID.String(),
		ProductName:    pd.ProductName,
		DBKind:         pd.DBKind,
		EndpointURL:    pd.EndpointURL,
		Host:           pd.Host,
		Port:           pd.Port,
		DatabaseName:   pd.DatabaseName,
		SchemaName:     pd.SchemaName,
		IsActive:       pd.IsActive,
		HasCredentials: pd.ServiceKeyEncrypted != "" || pd.PasswordEncrypted != "",
		CreatedAt:      pd.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:      pd.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if pd.HealthStatus != nil {
		resp.HealthStatus = *pd.HealthStatus
	}
	if pd.LastHealthCheck != nil {
		resp.LastHealthCheck = pd.LastHealthCheck.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}
