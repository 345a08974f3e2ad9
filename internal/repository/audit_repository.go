package repository

import (
	"context"

	"gorm.io/gorm"

	"schema-registry/internal/model"
)

type schemaAuditRepository struct {
	db *gorm.DB
}

// NewSchemaAuditRepository creates a new instance of SchemaAuditRepository
func NewSchemaAuditRepository(db *gorm.DB) SchemaAuditRepository {
	return &schemaAuditRepository{db: db}
}

// Append writes one audit entry
func (r *schemaAuditRepository) Append(ctx context.Context, entry *model.SchemaAudit) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// GetByTableName retrieves all audit entries for a table, most recent first.
// The secondary sort on the auto-increment id keeps entries that share an
// execution timestamp in reverse insertion order.
func (r *schemaAuditRepository) GetByTableName(ctx context.Context, tableName string) ([]*model.SchemaAudit, error) {
	var entries []*model.SchemaAudit
	result := r.db.WithContext(ctx).Where("table_name = ?", tableName).Order("executed_at DESC, id DESC").Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}
