package repository

import (
	"context"

	"schema-registry/internal/model"
)

// SchemaRegistryRepository defines the interface for registry record operations
type SchemaRegistryRepository interface {
	// Create persists a new registry record. A duplicate table name is
	// reported as ErrSchemaRequestExists via the unique constraint, which is
	// the authoritative guard under concurrent submissions.
	Create(ctx context.Context, record *model.SchemaRegistry) error

	// GetByID retrieves a registry record by its UUID
	GetByID(ctx context.Context, id string) (*model.SchemaRegistry, error)

	// GetByTableName retrieves a registry record by its governed table name
	GetByTableName(ctx context.Context, tableName string) (*model.SchemaRegistry, error)

	// GetAll retrieves registry records with optional status filtering
	GetAll(ctx context.Context, status model.RequestStatus, limit, offset int) ([]*model.SchemaRegistry, int64, error)

	// UpdateStatus sets the lifecycle status of an existing record; it
	// returns ErrSchemaRequestNotFound when no row matches the id
	UpdateStatus(ctx context.Context, id string, status model.RequestStatus) error

	// CountByStatus returns the count of registry records by status
	CountByStatus(ctx context.Context) (map[model.RequestStatus]int64, error)
}

// SchemaAuditRepository defines the interface for the append-only audit trail.
// There is deliberately no update or delete operation.
type SchemaAuditRepository interface {
	// Append writes one audit entry
	Append(ctx context.Context, entry *model.SchemaAudit) error

	// GetByTableName retrieves all audit entries for a table, most recent
	// first; entries sharing a timestamp keep reverse insertion order
	GetByTableName(ctx context.Context, tableName string) ([]*model.SchemaAudit, error)
}
