package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schema-registry/internal/migration"
	"schema-registry/internal/model"
	"schema-registry/internal/policy"
	"schema-registry/internal/repository"
	"schema-registry/internal/utils"
)

type fakeRegistryRepo struct {
	records   map[string]*model.SchemaRegistry
	createErr error
}

func newFakeRegistryRepo() *fakeRegistryRepo {
	return &fakeRegistryRepo{records: make(map[string]*model.SchemaRegistry)}
}

func (r *fakeRegistryRepo) Create(ctx context.Context, record *model.SchemaRegistry) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.records {
		if existing.TableName == record.TableName {
			return repository.ErrSchemaRequestExists
		}
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	r.records[record.ID] = record
	return nil
}

func (r *fakeRegistryRepo) GetByID(ctx context.Context, id string) (*model.SchemaRegistry, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, repository.ErrSchemaRequestNotFound
	}
	return record, nil
}

func (r *fakeRegistryRepo) GetByTableName(ctx context.Context, tableName string) (*model.SchemaRegistry, error) {
	for _, record := range r.records {
		if record.TableName == tableName {
			return record, nil
		}
	}
	return nil, repository.ErrSchemaRequestNotFound
}

func (r *fakeRegistryRepo) GetAll(ctx context.Context, status model.RequestStatus, limit, offset int) ([]*model.SchemaRegistry, int64, error) {
	var matched []*model.SchemaRegistry
	for _, record := range r.records {
		if status == "" || record.Status == status {
			matched = append(matched, record)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeRegistryRepo) UpdateStatus(ctx context.Context, id string, status model.RequestStatus) error {
	record, ok := r.records[id]
	if !ok {
		return repository.ErrSchemaRequestNotFound
	}
	record.Status = status
	record.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRegistryRepo) CountByStatus(ctx context.Context) (map[model.RequestStatus]int64, error) {
	counts := make(map[model.RequestStatus]int64)
	for _, record := range r.records {
		counts[record.Status]++
	}
	return counts, nil
}

type fakeAuditRepo struct {
	entries   []*model.SchemaAudit
	appendErr error
}

func (r *fakeAuditRepo) Append(ctx context.Context, entry *model.SchemaAudit) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	entry.ID = uint64(len(r.entries) + 1)
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) GetByTableName(ctx context.Context, tableName string) ([]*model.SchemaAudit, error) {
	var matched []*model.SchemaAudit
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].TableName == tableName {
			matched = append(matched, r.entries[i])
		}
	}
	return matched, nil
}

func newTestService(registryRepo repository.SchemaRegistryRepository, auditRepo repository.SchemaAuditRepository) SchemaRegistryService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewSchemaRegistryService(registryRepo, auditRepo, policy.NewValidator(), migration.NewGenerator(), nil, logger)
}

func validCreateRequest(tableName string) *CreateSchemaRequest {
	return &CreateSchemaRequest{
		Definition: model.TableSchemaDefinition{
			TableName: tableName,
			Columns: []model.ColumnDefinition{
				{Name: "id", Type: model.SqlTypeUUID, PrimaryKey: true},
				{Name: "label", Type: model.SqlTypeText, Nullable: true},
			},
		},
		Owner: "data-platform",
		Metadata: model.RequestMetadata{
			RequestedBy:  "alice@example.com",
			RelatedIssue: "DATA-123",
		},
	}
}

func TestCreateSchemaRequestSuccess(t *testing.T) {
	registryRepo := newFakeRegistryRepo()
	auditRepo := &fakeAuditRepo{}
	svc := newTestService(registryRepo, auditRepo)

	result, err := svc.CreateSchemaRequest(context.Background(), validCreateRequest("widgets"))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.NotEmpty(t, result.RegistryID)
	// advisory warnings (missing timestamps) ride back on success
	require.Len(t, result.Violations, 2)
	for _, violation := range result.Violations {
		assert.Equal(t, model.SeverityWarning, violation.Severity)
	}

	record, err := registryRepo.GetByID(context.Background(), result.RegistryID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRequested, record.Status)
	assert.Equal(t, "widgets", record.TableName)
	assert.NotZero(t, record.RequestMetadata.RequestedAt)

	require.Len(t, auditRepo.entries, 1)
	entry := auditRepo.entries[0]
	assert.Equal(t, model.AuditActionCreateRequest, entry.Action)
	assert.Equal(t, model.AuditStatusPending, entry.Status)
	require.NotNil(t, entry.SchemaJSON)
	assert.Equal(t, "widgets", entry.SchemaJSON.TableName)
	require.NotNil(t, entry.RequestMetadata)
	assert.Len(t, entry.RequestMetadata.Violations, 2)
}

func TestCreateSchemaRequestBlockedByPolicy(t *testing.T) {
	registryRepo := newFakeRegistryRepo()
	auditRepo := &fakeAuditRepo{}
	svc := newTestService(registryRepo, auditRepo)

	req := validCreateRequest("widgets")
	req.Definition.Indexes = []model.IndexDefinition{
		{Name: "idx_broken", Columns: []string{"no_such_column"}},
	}

	result, err := svc.CreateSchemaRequest(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, "policy violations", result.Error)
	assert.NotEmpty(t, result.Violations)

	// nothing persisted: no record, no audit entry
	assert.Empty(t, registryRepo.records)
	assert.Empty(t, auditRepo.entries)
}

func TestCreateSchemaRequestDuplicateTable(t *testing.T) {
	registryRepo := newFakeRegistryRepo()
	auditRepo := &fakeAuditRepo{}
	svc := newTestService(registryRepo, auditRepo)

	_, err := svc.CreateSchemaRequest(context.Background(), validCreateRequest("widgets"))
	require.NoError(t, err)

	_, err = svc.CreateSchemaRequest(context.Background(), validCreateRequest("widgets"))
	assert.ErrorIs(t, err, repository.ErrSchemaRequestExists)

	assert.Len(t, registryRepo.records, 1)
	assert.Len(t, auditRepo.entries, 1)
}

func TestCreateSchemaRequestRacingDuplicate(t *testing.T) {
	// the courtesy pre-check misses, the storage constraint catches it
	registryRepo := newFakeRegistryRepo()
	registryRepo.createErr = repository.ErrSchemaRequestExists
	auditRepo := &fakeAuditRepo{}
	svc := newTestService(registryRepo, auditRepo)

	_, err := svc.CreateSchemaRequest(context.Background(), validCreateRequest("widgets"))
	assert.ErrorIs(t, err, repository.ErrSchemaRequestExists)
	assert.Empty(t, auditRepo.entries)
}

func TestCreateSchemaRequestRejectsUnknownTypes(t *testing.T) {
	svc := newTestService(newFakeRegistryRepo(), &fakeAuditRepo{})

	req := validCreateRequest("widgets")
	req.Definition.Columns[0].Type = "VARCHAR"

	_, err := svc.CreateSchemaRequest(context.Background(), req)
	require.Error(t, err)
	assert.True(t, utils.IsErrorType(err, utils.ErrCodeInvalidDefinition))
}

func TestCreateSchemaRequestAuditFailureDoesNotFail(t *testing.T) {
	registryRepo := newFakeRegistryRepo()
	auditRepo := &fakeAuditRepo{appendErr: errors.New("audit store down")}
	svc := newTestService(registryRepo, auditRepo)

	result, err := svc.CreateSchemaRequest(context.Background(), validCreateRequest("widgets"))
	require.NoError(t, err)

	// the registry record takes precedence over audit completeness
	assert.True(t, result.Success)
	assert.Len(t, registryRepo.records, 1)
}

func TestValidateSchemaDefinitionPersistsNothing(t *testing.T) {
	registryRepo := newFakeRegistryRepo()
	auditRepo := &fakeAuditRepo{}
	svc := newTestService(registryRepo, auditRepo)

	result, err := svc.ValidateSchemaDefinition(context.Background(), validCreateRequest("widgets").Definition)
	require.NoError(t, err)

	assert.False(t, result.HasErrors())
	assert.Empty(t, registryRepo.records)
	assert.Empty(t, auditRepo.entries)
}

func TestUpdateSchemaRequestStatus(t *testing.T) {
	registryRepo := newFakeRegistryRepo()
	auditRepo := &fakeAuditRepo{}
	svc := newTestService(registryRepo, auditRepo)

	created, err := svc.CreateSchemaRequest(context.Background(), validCreateRequest("widgets"))
	require.NoError(t, err)

	err = svc.UpdateSchemaRequestStatus(context.Background(), created.RegistryID, model.RequestStatusApproved, "bob@example.com")
	require.NoError(t, err)

	record, err := registryRepo.GetByID(context.Background(), created.RegistryID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, record.Status)

	require.Len(t, auditRepo.entries, 2)
	entry := auditRepo.entries[1]
	assert.Equal(t, "STATUS_CHANGE_APPROVED", entry.Action)
	assert.Equal(t, model.AuditStatusCompleted, entry.Status)
	require.NotNil(t, entry.PerformedBy)
	assert.Equal(t, "bob@example.com", *entry.PerformedBy)
}

func TestUpdateSchemaRequestStatusMissingRecord(t *testing.T) {
	auditRepo := &fakeAuditRepo{}
	svc := newTestService(newFakeRegistryRepo(), auditRepo)

	err := svc.UpdateSchemaRequestStatus(context.Background(), uuid.New().String(), model.RequestStatusApproved, "")
	assert.ErrorIs(t, err, repository.ErrSchemaRequestNotFound)
	assert.Empty(t, auditRepo.entries)
}

func TestUpdateSchemaRequestStatusRejectsInvalidInput(t *testing.T) {
	svc := newTestService(newFakeRegistryRepo(), &fakeAuditRepo{})

	err := svc.UpdateSchemaRequestStatus(context.Background(), "not-a-uuid", model.RequestStatusApproved, "")
	assert.ErrorIs(t, err, repository.ErrInvalidUUID)

	err = svc.UpdateSchemaRequestStatus(context.Background(), uuid.New().String(), "archived", "")
	assert.ErrorIs(t, err, repository.ErrInvalidRequestStatus)
}

func TestGenerateMigrationPreview(t *testing.T) {
	registryRepo := newFakeRegistryRepo()
	auditRepo := &fakeAuditRepo{}
	svc := newTestService(registryRepo, auditRepo)

	created, err := svc.CreateSchemaRequest(context.Background(), validCreateRequest("widgets"))
	require.NoError(t, err)

	preview, err := svc.GenerateMigrationPreview(context.Background(), created.RegistryID)
	require.NoError(t, err)

	assert.Equal(t, "widgets", preview.TableName)
	assert.Contains(t, preview.FileName, "_widgets")
	assert.Contains(t, preview.Up, "CREATE TABLE IF NOT EXISTS widgets (id UUID PRIMARY KEY NOT NULL, label TEXT)")
	assert.Contains(t, preview.Up, "-- Requested by: alice@example.com")
	assert.Contains(t, preview.Down, "DROP TABLE IF EXISTS widgets")

	// preview is read-only: no state change, no extra audit entry
	record, err := registryRepo.GetByID(context.Background(), created.RegistryID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRequested, record.Status)
	assert.Len(t, auditRepo.entries, 1)
}

func TestGenerateMigrationPreviewMissingRecord(t *testing.T) {
	svc := newTestService(newFakeRegistryRepo(), &fakeAuditRepo{})

	_, err := svc.GenerateMigrationPreview(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, repository.ErrSchemaRequestNotFound)
}

func TestExportMigrationArtifactsWithoutStore(t *testing.T) {
	svc := newTestService(newFakeRegistryRepo(), &fakeAuditRepo{})

	_, err := svc.ExportMigrationArtifacts(context.Background(), uuid.New().String())
	require.Error(t, err)
	assert.True(t, utils.IsErrorType(err, utils.ErrCodeArtifactStoreDisabled))
}

func TestGetAuditHistoryOrdering(t *testing.T) {
	registryRepo := newFakeRegistryRepo()
	auditRepo := &fakeAuditRepo{}
	svc := newTestService(registryRepo, auditRepo)

	created, err := svc.CreateSchemaRequest(context.Background(), validCreateRequest("widgets"))
	require.NoError(t, err)

	require.NoError(t, svc.UpdateSchemaRequestStatus(context.Background(), created.RegistryID, model.RequestStatusApproved, "bob"))
	require.NoError(t, svc.UpdateSchemaRequestStatus(context.Background(), created.RegistryID, model.RequestStatusMigrated, "bob"))

	history, err := svc.GetAuditHistory(context.Background(), "widgets")
	require.NoError(t, err)

	require.Len(t, history, 3)
	assert.Equal(t, "STATUS_CHANGE_MIGRATED", history[0].Action)
	assert.Equal(t, "STATUS_CHANGE_APPROVED", history[1].Action)
	assert.Equal(t, model.AuditActionCreateRequest, history[2].Action)
}

func TestListSchemaRequests(t *testing.T) {
	registryRepo := newFakeRegistryRepo()
	svc := newTestService(registryRepo, &fakeAuditRepo{})

	for _, name := range []string{"alpha", "beta", "gamma"} {
		_, err := svc.CreateSchemaRequest(context.Background(), validCreateRequest(name))
		require.NoError(t, err)
	}

	resp, err := svc.ListSchemaRequests(context.Background(), &ListSchemaRequestsRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Total)
	assert.Len(t, resp.Requests, 3)
	assert.Equal(t, 20, resp.Limit)

	filtered, err := svc.ListSchemaRequests(context.Background(), &ListSchemaRequestsRequest{Status: model.RequestStatusMigrated})
	require.NoError(t, err)
	assert.Zero(t, filtered.Total)

	_, err = svc.ListSchemaRequests(context.Background(), &ListSchemaRequestsRequest{Status: "bogus"})
	assert.ErrorIs(t, err, repository.ErrInvalidRequestStatus)
}

func TestGetRegistryStats(t *testing.T) {
	registryRepo := newFakeRegistryRepo()
	svc := newTestService(registryRepo, &fakeAuditRepo{})

	created, err := svc.CreateSchemaRequest(context.Background(), validCreateRequest("alpha"))
	require.NoError(t, err)
	_, err = svc.CreateSchemaRequest(context.Background(), validCreateRequest("beta"))
	require.NoError(t, err)
	require.NoError(t, svc.UpdateSchemaRequestStatus(context.Background(), created.RegistryID, model.RequestStatusApproved, ""))

	stats, err := svc.GetRegistryStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus[model.RequestStatusRequested])
	assert.Equal(t, int64(1), stats.ByStatus[model.RequestStatusApproved])
}
