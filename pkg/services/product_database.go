package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/apperrors"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/audit"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/crypto"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/repositories"
)

var validate = validator.New()

// TenantConnector is the subset of the tenant connection manager the service
// layer depends on.
type TenantConnector interface {
	TestCredentials(ctx context.Context, candidate models.CredentialCandidate) models.ValidationResult
	CheckHealth(ctx context.Context, productID uuid.UUID) models.HealthResult
	ListTables(ctx context.Context, productID uuid.UUID) ([]models.DiscoveredTable, error)
	InspectTable(ctx context.Context, productID uuid.UUID, tableName string) (*models.TableDetails, error)
	Invalidate(productID uuid.UUID)
}

// CreateDatabaseInput carries a new configuration with plaintext credentials.
// Credentials are encrypted before anything touches the store.
type CreateDatabaseInput struct {
	ProductID   uuid.UUID `json:"product_id" validate:"required"`
	ProductName string    `json:"product_name" validate:"required"`
	DBKind      string    `json:"db_kind" validate:"required,oneof=supabase postgres"`

	EndpointURL string `json:"endpoint_url" validate:"omitempty,url"`
	ServiceKey  string `json:"service_key"`

	Host         string `json:"host"`
	Port         int    `json:"port" validate:"omitempty,min=1,max=65535"`
	DatabaseName string `json:"database_name"`
	User         string `json:"user"`
	Password     string `json:"password"`

	SchemaName string `json:"schema_name"`
}

// UpdateDatabaseInput carries changes to an existing configuration. Empty
// credential fields keep the stored values.
type UpdateDatabaseInput struct {
	ProductName string `json:"product_name"`
	EndpointURL string `json:"endpoint_url" validate:"omitempty,url"`
	ServiceKey  string `json:"service_key"`

	Host         string `json:"host"`
	Port         int    `json:"port" validate:"omitempty,min=1,max=65535"`
	DatabaseName string `json:"database_name"`
	User         string `json:"user"`
	Password     string `json:"password"`

	SchemaName string `json:"schema_name"`
}

// ProductDatabaseService manages product database configurations: encryption
// before persistence, cache invalidation after changes, and the audit trail.
type ProductDatabaseService interface {
	Create(ctx context.Context, input *CreateDatabaseInput) (*models.ProductDatabase, error)
	Get(ctx context.Context, productID uuid.UUID) (*models.ProductDatabase, error)
	List(ctx context.Context) ([]*models.ProductDatabase, error)
	Update(ctx context.Context, productID uuid.UUID, input *UpdateDatabaseInput) (*models.ProductDatabase, error)
	Delete(ctx context.Context, productID uuid.UUID) error

	// TestConnection probes candidate credentials without saving anything.
	TestConnection(ctx context.Context, candidate models.CredentialCandidate) models.ValidationResult

	// CheckHealth runs a health check against the stored configuration and
	// persists the outcome.
	CheckHealth(ctx context.Context, productID uuid.UUID) models.HealthResult

	// ListTables enumerates tenant tables, serving from the response cache
	// when one is configured.
	ListTables(ctx context.Context, productID uuid.UUID) ([]models.DiscoveredTable, error)

	// InspectTable profiles one tenant table. Never cached; callers use it to
	// see current data.
	InspectTable(ctx context.Context, productID uuid.UUID, tableName string) (*models.TableDetails, error)

	// RecentActivity returns the newest audit entries for a product.
	RecentActivity(ctx context.Context, productID uuid.UUID, limit int) ([]*models.ActivityLog, error)
}

type productDatabaseService struct {
	repo         repositories.ProductDatabaseRepository
	activityRepo repositories.ActivityLogRepository
	cipher       *crypto.Cipher
	tenants      TenantConnector
	auditor      *audit.ActivityAuditor
	cache        *redis.Client // nil disables caching
	tablesTTL    time.Duration
	logger       *zap.Logger
}

// NewProductDatabaseService creates the service with its dependencies. A nil
// cache client disables schema-listing caching.
func NewProductDatabaseService(
	repo repositories.ProductDatabaseRepository,
	activityRepo repositories.ActivityLogRepository,
	cipher *crypto.Cipher,
	tenants TenantConnector,
	auditor *audit.ActivityAuditor,
	cache *redis.Client,
	tablesTTL time.Duration,
	logger *zap.Logger,
) ProductDatabaseService {
	return &productDatabaseService{
		repo:         repo,
		activityRepo: activityRepo,
		cipher:       cipher,
		tenants:      tenants,
		auditor:      auditor,
		cache:        cache,
		tablesTTL:    tablesTTL,
		logger:       logger,
	}
}

var _ ProductDatabaseService = (*productDatabaseService)(nil)

func (s *productDatabaseService) Create(ctx context.Context, input *CreateDatabaseInput) (*models.ProductDatabase, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if err := validateKindFields(input.DBKind, input.EndpointURL, input.ServiceKey,
		input.Host, input.DatabaseName, input.User, input.Password); err != nil {
		return nil, err
	}

	pd := &models.ProductDatabase{
		ProductID:    input.ProductID,
		ProductName:  input.ProductName,
		DBKind:       input.DBKind,
		EndpointURL:  input.EndpointURL,
		Host:         input.Host,
		Port:         input.Port,
		DatabaseName: input.DatabaseName,
		SchemaName:   input.SchemaName,
		IsActive:     true,
	}
	if pd.SchemaName == "" {
		pd.SchemaName = "public"
	}
	if pd.DBKind == models.DBKindPostgres && pd.Port == 0 {
		pd.Port = 5432
	}

	if err := s.encryptCredentials(pd, input.ServiceKey, input.User, input.Password); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, pd); err != nil {
		return nil, err
	}

	s.logger.Info("created product database configuration",
		zap.String("product_id", pd.ProductID.String()),
		zap.String("db_kind", pd.DBKind))

	s.invalidate(ctx, pd.ProductID)
	s.auditor.Record(ctx, pd.ProductID, audit.ActionDatabaseCreated, map[string]any{
		"db_kind":      pd.DBKind,
		"endpoint_url": pd.EndpointURL,
		"schema_name":  pd.SchemaName,
		"service_key":  maskSecret(input.ServiceKey),
	})

	return pd, nil
}

func (s *productDatabaseService) Get(ctx context.Context, productID uuid.UUID) (*models.ProductDatabase, error) {
	return s.repo.FindActive(ctx, productID)
}

func (s *productDatabaseService) List(ctx context.Context) ([]*models.ProductDatabase, error) {
	return s.repo.List(ctx)
}

func (s *productDatabaseService) Update(ctx context.Context, productID uuid.UUID, input *UpdateDatabaseInput) (*models.ProductDatabase, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	pd, err := s.repo.FindActive(ctx, productID)
	if err != nil {
		return nil, err
	}

	changed := map[string]any{}
	if input.ProductName != "" {
		pd.ProductName = input.ProductName
		changed["product_name"] = input.ProductName
	}
	if input.EndpointURL != "" {
		pd.EndpointURL = input.EndpointURL
		changed["endpoint_url"] = input.EndpointURL
	}
	if input.Host != "" {
		pd.Host = input.Host
		changed["host"] = input.Host
	}
	if input.Port != 0 {
		pd.Port = input.Port
		changed["port"] = input.Port
	}
	if input.DatabaseName != "" {
		pd.DatabaseName = input.DatabaseName
		changed["database_name"] = input.DatabaseName
	}
	if input.SchemaName != "" {
		pd.SchemaName = input.SchemaName
		changed["schema_name"] = input.SchemaName
	}
	if input.ServiceKey != "" {
		encrypted, err := s.cipher.Encrypt(input.ServiceKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt service key: %w", err)
		}
		pd.ServiceKeyEncrypted = encrypted
		changed["service_key"] = maskSecret(input.ServiceKey)
	}
	if input.User != "" {
		encrypted, err := s.cipher.Encrypt(input.User)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt user: %w", err)
		}
		pd.UserEncrypted = encrypted
		changed["user"] = maskSecret(input.User)
	}
	if input.Password != "" {
		encrypted, err := s.cipher.Encrypt(input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt password: %w", err)
		}
		pd.PasswordEncrypted = encrypted
		changed["password"] = maskSecret(input.Password)
	}

	if err := s.repo.Update(ctx, pd); err != nil {
		return nil, err
	}

	s.logger.Info("updated product database configuration",
		zap.String("product_id", productID.String()))

	s.invalidate(ctx, productID)
	s.auditor.Record(ctx, productID, audit.ActionDatabaseUpdated, changed)

	return pd, nil
}

func (s *productDatabaseService) Delete(ctx context.Context, productID uuid.UUID) error {
	if err := s.repo.Delete(ctx, productID); err != nil {
		return err
	}

	s.logger.Info("deleted product database configuration",
		zap.String("product_id", productID.String()))

	s.invalidate(ctx, productID)
	s.auditor.Record(ctx, productID, audit.ActionDatabaseDeleted, nil)

	return nil
}

func (s *productDatabaseService) TestConnection(ctx context.Context, candidate models.CredentialCandidate) models.ValidationResult {
	result := s.tenants.TestCredentials(ctx, candidate)

	s.logger.Info("tested candidate credentials",
		zap.String("db_kind", candidate.DBKind),
		zap.Bool("ok", result.OK))

	return result
}

func (s *productDatabaseService) CheckHealth(ctx context.Context, productID uuid.UUID) models.HealthResult {
	result := s.tenants.CheckHealth(ctx, productID)
	if result.Status != models.HealthStatusHealthy {
		s.auditor.Record(ctx, productID, audit.ActionHealthCheckFailed, map[string]any{
			"error": result.Error,
		})
	}
	return result
}

func (s *productDatabaseService) ListTables(ctx context.Context, productID uuid.UUID) ([]models.DiscoveredTable, error) {
	key := tablesCacheKey(productID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var tables []models.DiscoveredTable
			if err := json.Unmarshal(cached, &tables); err == nil {
				return tables, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("schema cache read failed", zap.Error(err))
		}
	}

	tables, err := s.tenants.ListTables(ctx, productID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(tables); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.tablesTTL).Err(); err != nil {
				s.logger.Warn("schema cache write failed", zap.Error(err))
			}
		}
	}

	return tables, nil
}

func (s *productDatabaseService) InspectTable(ctx context.Context, productID uuid.UUID, tableName string) (*models.TableDetails, error) {
	return s.tenants.InspectTable(ctx, productID, tableName)
}

func (s *productDatabaseService) RecentActivity(ctx context.Context, productID uuid.UUID, limit int) ([]*models.ActivityLog, error) {
	return s.activityRepo.ListRecent(ctx, productID, limit)
}

// invalidate drops the cached tenant client and any cached schema listing
// after a configuration change.
func (s *productDatabaseService) invalidate(ctx context.Context, productID uuid.UUID) {
	s.tenants.Invalidate(productID)
	if s.cache != nil {
		if err := s.cache.Del(ctx, tablesCacheKey(productID)).Err(); err != nil {
			s.logger.Warn("schema cache bust failed", zap.Error(err))
		}
	}
}

func (s *productDatabaseService) encryptCredentials(pd *models.ProductDatabase, serviceKey, user, password string) error {
	var err error
	if serviceKey != "" {
		if pd.ServiceKeyEncrypted, err = s.cipher.Encrypt(serviceKey); err != nil {
			return fmt.Errorf("failed to encrypt service key: %w", err)
		}
	}
	if user != "" {
		if pd.UserEncrypted, err = s.cipher.Encrypt(user); err != nil {
			return fmt.Errorf("failed to encrypt user: %w", err)
		}
	}
	if password != "" {
		if pd.PasswordEncrypted, err = s.cipher.Encrypt(password); err != nil {
			return fmt.Errorf("failed to encrypt password: %w", err)
		}
	}
	return nil
}

// validateKindFields enforces the per-kind required fields that struct tags
// cannot express.
func validateKindFields(kind, endpoint, serviceKey, host, dbName, user, password string) error {
	switch kind {
	case models.DBKindSupabase:
		if endpoint == "" || serviceKey == "" {
			return fmt.Errorf("%w: endpoint_url and service_key are required for supabase configurations", apperrors.ErrValidation)
		}
	case models.DBKindPostgres:
		if host == "" || dbName == "" || user == "" || password == "" {
			return fmt.Errorf("%w: host, database_name, user, and password are required for postgres configurations", apperrors.ErrValidation)
		}
	}
	return nil
}

func tablesCacheKey(productID uuid.UUID) string {
	return "tenant:tables:" + productID.String()
}

// maskSecret keeps only a short suffix of a credential for audit details.
func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
