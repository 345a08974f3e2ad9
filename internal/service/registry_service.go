package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"schema-registry/internal/artifact"
	"schema-registry/internal/middleware"
	"schema-registry/internal/migration"
	"schema-registry/internal/model"
	"schema-registry/internal/policy"
	"schema-registry/internal/repository"
	"schema-registry/internal/utils"
)

type SchemaRegistryService interface {
	CreateSchemaRequest(ctx context.Context, req *CreateSchemaRequest) (*CreateSchemaResult, error)
	ValidateSchemaDefinition(ctx context.Context, def model.TableSchemaDefinition) (*policy.ValidationResult, error)
	GetSchemaRequest(ctx context.Context, id string) (*model.SchemaRegistry, error)
	GetSchemaRequestByTableName(ctx context.Context, tableName string) (*model.SchemaRegistry, error)
	ListSchemaRequests(ctx context.Context, req *ListSchemaRequestsRequest) (*ListSchemaRequestsResponse, error)
	UpdateSchemaRequestStatus(ctx context.Context, id string, status model.RequestStatus, performedBy string) error
	GenerateMigrationPreview(ctx context.Context, id string) (*MigrationPreview, error)
	ExportMigrationArtifacts(ctx context.Context, id string) (*ArtifactExport, error)
	GetAuditHistory(ctx context.Context, tableName string) ([]*model.SchemaAudit, error)
	GetRegistryStats(ctx context.Context) (*RegistryStatsResponse, error)
}

type schemaRegistryService struct {
	registryRepo repository.SchemaRegistryRepository
	auditRepo    repository.SchemaAuditRepository
	validator    *policy.Validator
	generator    *migration.Generator
	artifacts    *artifact.Store
	logger       *logrus.Logger
}

type CreateSchemaRequest struct {
	Definition model.TableSchemaDefinition `json:"definition" validate:"required"`
	Owner      string                      `json:"owner,omitempty" validate:"omitempty,max=255"`
	Metadata   model.RequestMetadata       `json:"metadata" validate:"required"`
}

// CreateSchemaResult reports the outcome of a schema request submission.
// Violations always carries a non-nil slice: every violation when the request
// was blocked, only the advisory ones when it succeeded.
type CreateSchemaResult struct {
	Success    bool              `json:"success"`
	RegistryID string            `json:"registryId,omitempty"`
	Violations []model.Violation `json:"violations"`
	Error      string            `json:"error,omitempty"`
}

type ListSchemaRequestsRequest struct {
	Status model.RequestStatus `json:"status,omitempty"`
	Limit  int                 `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	Offset int                 `json:"offset,omitempty" validate:"omitempty,min=0"`
}

type ListSchemaRequestsResponse struct {
	Requests []*model.SchemaRegistry `json:"requests"`
	Total    int64                   `json:"total"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
}

// MigrationPreview carries the formatted migration files for a stored
// definition. Generating a preview never changes state or writes audit.
type MigrationPreview struct {
	RegistryID string              `json:"registryId"`
	TableName  string              `json:"tableName"`
	Status     model.RequestStatus `json:"status"`
	FileName   string              `json:"fileName"`
	Up         string              `json:"up"`
	Down       string              `json:"down"`
}

// ArtifactExport reports where the formatted migration files were uploaded
type ArtifactExport struct {
	RegistryID    string `json:"registryId"`
	FileName      string `json:"fileName"`
	Bucket        string `json:"bucket"`
	UpObjectKey   string `json:"upObjectKey"`
	DownObjectKey string `json:"downObjectKey"`
}

type RegistryStatsResponse struct {
	Total    int64                         `json:"total"`
	ByStatus map[model.RequestStatus]int64 `json:"byStatus"`
}

// NewSchemaRegistryService creates a new instance of SchemaRegistryService.
// The artifact store may be nil, which disables migration exports.
func NewSchemaRegistryService(
	registryRepo repository.SchemaRegistryRepository,
	auditRepo repository.SchemaAuditRepository,
	validator *policy.Validator,
	generator *migration.Generator,
	artifacts *artifact.Store,
	logger *logrus.Logger,
) SchemaRegistryService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &schemaRegistryService{
		registryRepo: registryRepo,
		auditRepo:    auditRepo,
		validator:    validator,
		generator:    generator,
		artifacts:    artifacts,
		logger:       logger,
	}
}

func (s *schemaRegistryService) CreateSchemaRequest(ctx context.Context, req *CreateSchemaRequest) (*CreateSchemaResult, error) {
	if err := validateDefinitionShape(req.Definition); err != nil {
		return nil, err
	}

	result := s.validator.Validate(req.Definition)
	if result.HasErrors() {
		middleware.RecordValidation("blocked", result.Violations)
		middleware.RecordRegistryOperation("create", "rejected")
		return &CreateSchemaResult{
			Success:    false,
			Violations: result.Violations,
			Error:      "policy violations",
		}, nil
	}
	middleware.RecordValidation("passed", result.Violations)

	// Courtesy fast path; the unique constraint on table_name is the
	// authoritative guard against racing submissions.
	if existing, _ := s.registryRepo.GetByTableName(ctx, req.Definition.TableName); existing != nil {
		middleware.RecordRegistryOperation("create", "conflict")
		return nil, repository.ErrSchemaRequestExists
	}

	metadata := req.Metadata
	if metadata.RequestedAt == 0 {
		metadata.RequestedAt = time.Now().Unix()
	}

	record := &model.SchemaRegistry{
		TableName:       req.Definition.TableName,
		Owner:           req.Owner,
		SchemaJSON:      req.Definition,
		Status:          model.RequestStatusRequested,
		RequestMetadata: metadata,
	}

	if err := s.registryRepo.Create(ctx, record); err != nil {
		if err == repository.ErrSchemaRequestExists {
			middleware.RecordRegistryOperation("create", "conflict")
			return nil, err
		}
		middleware.RecordRegistryOperation("create", "error")
		return nil, fmt.Errorf("failed to create schema request: %w", err)
	}

	advisories := result.Advisories()
	schemaSnapshot := req.Definition
	s.appendAudit(ctx, &model.SchemaAudit{
		TableName:  record.TableName,
		Action:     model.AuditActionCreateRequest,
		SchemaJSON: &schemaSnapshot,
		Status:     model.AuditStatusPending,
		RequestMetadata: &model.AuditMetadata{
			RequestMetadata: metadata,
			Violations:      advisories,
		},
		ExecutedAt: time.Now(),
	})

	middleware.RecordRegistryOperation("create", "success")
	return &CreateSchemaResult{
		Success:    true,
		RegistryID: record.ID,
		Violations: advisories,
	}, nil
}

// ValidateSchemaDefinition runs the policy rule set without persisting
// anything; callers use it to pre-check a draft before submission.
func (s *schemaRegistryService) ValidateSchemaDefinition(ctx context.Context, def model.TableSchemaDefinition) (*policy.ValidationResult, error) {
	if err := validateDefinitionShape(def); err != nil {
		return nil, err
	}

	result := s.validator.Validate(def)
	if result.HasErrors() {
		middleware.RecordValidation("blocked", result.Violations)
	} else {
		middleware.RecordValidation("passed", result.Violations)
	}
	return &result, nil
}

func (s *schemaRegistryService) GetSchemaRequest(ctx context.Context, id string) (*model.SchemaRegistry, error) {
	if !utils.IsValidUUID(id) {
		return nil, repository.ErrInvalidUUID
	}

	record, err := s.registryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema request: %w", err)
	}

	return record, nil
}

func (s *schemaRegistryService) GetSchemaRequestByTableName(ctx context.Context, tableName string) (*model.SchemaRegistry, error) {
	if tableName == "" {
		return nil, utils.NewValidationError("table name cannot be empty", "")
	}

	record, err := s.registryRepo.GetByTableName(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema request by table name: %w", err)
	}

	return record, nil
}

func (s *schemaRegistryService) ListSchemaRequests(ctx context.Context, req *ListSchemaRequestsRequest) (*ListSchemaRequestsResponse, error) {
	if req.Limit == 0 {
		req.Limit = 20
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	if req.Status != "" && !model.IsValidRequestStatus(string(req.Status)) {
		return nil, repository.ErrInvalidRequestStatus
	}

	records, total, err := s.registryRepo.GetAll(ctx, req.Status, req.Limit, req.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list schema requests: %w", err)
	}

	return &ListSchemaRequestsResponse{
		Requests: records,
		Total:    total,
		Limit:    req.Limit,
		Offset:   req.Offset,
	}, nil
}

// UpdateSchemaRequestStatus sets any valid status on an existing record and
// appends the matching audit entry. Transition legality beyond "record
// exists" is the caller's responsibility; reviewers may walk a record back
// and every hop lands in the audit trail.
func (s *schemaRegistryService) UpdateSchemaRequestStatus(ctx context.Context, id string, status model.RequestStatus, performedBy string) error {
	if !utils.IsValidUUID(id) {
		return repository.ErrInvalidUUID
	}
	if !model.IsValidRequestStatus(string(status)) {
		return repository.ErrInvalidRequestStatus
	}

	record, err := s.registryRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get schema request: %w", err)
	}

	if err := s.registryRepo.UpdateStatus(ctx, id, status); err != nil {
		middleware.RecordRegistryOperation("status_change", "error")
		return fmt.Errorf("failed to update schema request status: %w", err)
	}

	entry := &model.SchemaAudit{
		TableName:  record.TableName,
		Action:     model.StatusChangeAction(status),
		Status:     model.AuditStatusCompleted,
		ExecutedAt: time.Now(),
	}
	if performedBy != "" {
		entry.PerformedBy = &performedBy
	}
	s.appendAudit(ctx, entry)

	middleware.RecordRegistryOperation("status_change", "success")
	return nil
}

func (s *schemaRegistryService) GenerateMigrationPreview(ctx context.Context, id string) (*MigrationPreview, error) {
	if !utils.IsValidUUID(id) {
		return nil, repository.ErrInvalidUUID
	}

	record, err := s.registryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema request: %w", err)
	}

	generated, err := s.generator.GenerateCreateTableMigration(record.SchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to generate migration: %w", err)
	}

	fileName := s.generator.GenerateMigrationFileName(record.TableName)
	middleware.RecordRegistryOperation("preview", "success")

	return &MigrationPreview{
		RegistryID: record.ID,
		TableName:  record.TableName,
		Status:     record.Status,
		FileName:   fileName,
		Up:         s.generator.FormatMigrationFile(migration.DirectionUp, generated.Up, record.TableName, record.RequestMetadata),
		Down:       s.generator.FormatMigrationFile(migration.DirectionDown, generated.Down, record.TableName, record.RequestMetadata),
	}, nil
}

// ExportMigrationArtifacts uploads the formatted migration files for a stored
// request to the configured object store. The export writes files only; it
// never executes SQL anywhere.
func (s *schemaRegistryService) ExportMigrationArtifacts(ctx context.Context, id string) (*ArtifactExport, error) {
	if s.artifacts == nil {
		return nil, utils.NewErrorBuilder(utils.ErrCodeArtifactStoreDisabled).Build()
	}

	preview, err := s.GenerateMigrationPreview(ctx, id)
	if err != nil {
		return nil, err
	}

	upKey := preview.FileName + ".up.sql"
	downKey := preview.FileName + ".down.sql"

	if err := s.artifacts.Upload(ctx, upKey, []byte(preview.Up)); err != nil {
		middleware.RecordRegistryOperation("export", "error")
		return nil, utils.NewErrorBuilder(utils.ErrCodeArtifactUploadFailed).WithCause(err).WithDetails(upKey).Build()
	}
	if err := s.artifacts.Upload(ctx, downKey, []byte(preview.Down)); err != nil {
		middleware.RecordRegistryOperation("export", "error")
		return nil, utils.NewErrorBuilder(utils.ErrCodeArtifactUploadFailed).WithCause(err).WithDetails(downKey).Build()
	}

	s.logger.WithFields(logrus.Fields{
		"table":    preview.TableName,
		"fileName": preview.FileName,
		"bucket":   s.artifacts.Bucket(),
	}).Info("migration artifacts exported")

	middleware.RecordRegistryOperation("export", "success")
	return &ArtifactExport{
		RegistryID:    preview.RegistryID,
		FileName:      preview.FileName,
		Bucket:        s.artifacts.Bucket(),
		UpObjectKey:   s.artifacts.ObjectKey(upKey),
		DownObjectKey: s.artifacts.ObjectKey(downKey),
	}, nil
}

func (s *schemaRegistryService) GetAuditHistory(ctx context.Context, tableName string) ([]*model.SchemaAudit, error) {
	if tableName == "" {
		return nil, utils.NewValidationError("table name cannot be empty", "")
	}

	entries, err := s.auditRepo.GetByTableName(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}

	return entries, nil
}

func (s *schemaRegistryService) GetRegistryStats(ctx context.Context) (*RegistryStatsResponse, error) {
	counts, err := s.registryRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get registry stats: %w", err)
	}

	total := int64(0)
	for _, count := range counts {
		total += count
	}

	return &RegistryStatsResponse{
		Total:    total,
		ByStatus: counts,
	}, nil
}

// appendAudit writes an audit entry after its state mutation has committed.
// The trail is best-effort: a failed write is logged and counted, never
// rolled back into the primary operation.
func (s *schemaRegistryService) appendAudit(ctx context.Context, entry *model.SchemaAudit) {
	if err := s.auditRepo.Append(ctx, entry); err != nil {
		middleware.RecordAuditWriteFailure(entry.Action)
		s.logger.WithError(err).WithFields(logrus.Fields{
			"table":  entry.TableName,
			"action": entry.Action,
		}).Warn("audit write failed; registry state is already committed")
	}
}

// validateDefinitionShape rejects definitions whose types fall outside the
// closed enumerations. This is structural validation, distinct from policy
// checks: it fails before any rule runs and nothing is persisted.
func validateDefinitionShape(def model.TableSchemaDefinition) error {
	for _, col := range def.Columns {
		if !model.IsValidSqlType(string(col.Type)) {
			return utils.NewErrorBuilder(utils.ErrCodeInvalidDefinition).
				WithMessage(fmt.Sprintf("unsupported column type %q", string(col.Type))).
				WithDetails(fmt.Sprintf("column %s", col.Name)).
				Build()
		}
	}
	for _, idx := range def.Indexes {
		if !model.IsValidIndexType(string(idx.Type)) {
			return utils.NewErrorBuilder(utils.ErrCodeInvalidDefinition).
				WithMessage(fmt.Sprintf("unsupported index type %q", string(idx.Type))).
				WithDetails(fmt.Sprintf("index %s", idx.Name)).
				Build()
		}
	}
	return nil
}
