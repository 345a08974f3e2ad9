package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"schema-registry/internal/model"
)

type schemaRegistryRepository struct {
	db *gorm.DB
}

// NewSchemaRegistryRepository creates a new instance of SchemaRegistryRepository
func NewSchemaRegistryRepository(db *gorm.DB) SchemaRegistryRepository {
	return &schemaRegistryRepository{db: db}
}

// Create persists a new registry record. Relies on the unique index on
// table_name plus TranslateError so a racing duplicate insert surfaces as
// ErrSchemaRequestExists instead of a raw driver error.
func (r *schemaRegistryRepository) Create(ctx context.Context, record *model.SchemaRegistry) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrSchemaRequestExists
		}
		return err
	}
	return nil
}

// GetByID retrieves a registry record by its UUID
func (r *schemaRegistryRepository) GetByID(ctx context.Context, id string) (*model.SchemaRegistry, error) {
	var record model.SchemaRegistry
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSchemaRequestNotFound
		}
		return nil, result.Error
	}
	return &record, nil
}

// GetByTableName retrieves a registry record by its governed table name
func (r *schemaRegistryRepository) GetByTableName(ctx context.Context, tableName string) (*model.SchemaRegistry, error) {
	var record model.SchemaRegistry
	result := r.db.WithContext(ctx).Where("table_name = ?", tableName).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSchemaRequestNotFound
		}
		return nil, result.Error
	}
	return &record, nil
}

// GetAll retrieves registry records with optional status filtering
func (r *schemaRegistryRepository) GetAll(ctx context.Context, status model.RequestStatus, limit, offset int) ([]*model.SchemaRegistry, int64, error) {
	var records []*model.SchemaRegistry
	var total int64

	query := r.db.WithContext(ctx).Model(&model.SchemaRegistry{})

	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	result := query.Limit(limit).Offset(offset).Order("created_at DESC").Find(&records)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return records, total, nil
}

// UpdateStatus sets the lifecycle status of an existing record. GORM bumps
// updated_at alongside the status column. A zero-row update means the record
// does not exist; nothing is written in that case.
func (r *schemaRegistryRepository) UpdateStatus(ctx context.Context, id string, status model.RequestStatus) error {
	result := r.db.WithContext(ctx).Model(&model.SchemaRegistry{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSchemaRequestNotFound
	}
	return nil
}

// CountByStatus returns the count of registry records by status
func (r *schemaRegistryRepository) CountByStatus(ctx context.Context) (map[model.RequestStatus]int64, error) {
	var results []struct {
		Status model.RequestStatus
		Count  int64
	}

	err := r.db.WithContext(ctx).Model(&model.SchemaRegistry{}).Select("status, COUNT(*) as count").Group("status").Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.RequestStatus]int64)
	for _, result := range results {
		counts[result.Status] = result.Count
	}

	return counts, nil
}
