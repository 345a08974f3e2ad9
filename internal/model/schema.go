package model

import (
	"database/sql/driver"
	"encoding/json"
)

type SqlType string

const (
	SqlTypeUUID        SqlType = "UUID"
	SqlTypeText        SqlType = "TEXT"
	SqlTypeBigInt      SqlType = "BIGINT"
	SqlTypeTimestampTZ SqlType = "TIMESTAMPTZ"
	SqlTypeJSONB       SqlType = "JSONB"
	SqlTypeReal        SqlType = "REAL"
	SqlTypeBoolean     SqlType = "BOOLEAN"
)

type IndexType string

const (
	IndexTypeBTree IndexType = "BTREE"
	IndexTypeGIN   IndexType = "GIN"
)

// ColumnDefinition describes a single column of a requested table
type ColumnDefinition struct {
	Name         string  `json:"name" validate:"required,min=1,max=255"`
	Type         SqlType `json:"type" validate:"required"`
	Nullable     bool    `json:"nullable"`
	PrimaryKey   bool    `json:"primaryKey"`
	DefaultValue *string `json:"defaultValue,omitempty"`
	// Counter marks a BIGINT column as a pure numeric counter, which
	// exempts it from the safe-integer-range policy warning.
	Counter bool `json:"counter,omitempty"`
}

// IndexDefinition describes a secondary index over one or more columns
type IndexDefinition struct {
	Name    string    `json:"name" validate:"required,min=1,max=255"`
	Columns []string  `json:"columns" validate:"required,min=1,dive,required"`
	Type    IndexType `json:"type,omitempty"`
}

// TableSchemaDefinition is the full structural definition of a requested table
type TableSchemaDefinition struct {
	TableName string             `json:"tableName" validate:"required,min=1,max=255"`
	Columns   []ColumnDefinition `json:"columns" validate:"required,min=1,dive"`
	Indexes   []IndexDefinition  `json:"indexes,omitempty" validate:"omitempty,dive"`
}

// RequestMetadata captures who asked for a schema change and why.
// Immutable once the request is created.
type RequestMetadata struct {
	RequestedBy         string `json:"requestedBy" validate:"required,min=1,max=255"`
	RequestedByUsername string `json:"requestedByUsername,omitempty"`
	Justification       string `json:"justification,omitempty"`
	RelatedIssue        string `json:"relatedIssue,omitempty"`
	RequestedAt         int64  `json:"requestedAt"`
}

// Value implements driver.Valuer interface for GORM
func (m RequestMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner interface for GORM
func (m *RequestMetadata) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return json.Unmarshal([]byte(v.(string)), m)
	}

	return json.Unmarshal(bytes, m)
}

type ViolationSeverity string

const (
	SeverityError   ViolationSeverity = "error"
	SeverityWarning ViolationSeverity = "warning"
	SeverityInfo    ViolationSeverity = "info"
)

// Violation is a single policy finding against a schema definition
type Violation struct {
	Rule       string            `json:"rule,omitempty"`
	Severity   ViolationSeverity `json:"severity"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
}

// IsBlocking reports whether the violation prevents request creation
func (v Violation) IsBlocking() bool {
	return v.Severity == SeverityError
}

// EffectiveType returns the index type, defaulting to BTREE when unset
func (idx IndexDefinition) EffectiveType() IndexType {
	if idx.Type == "" {
		return IndexTypeBTree
	}
	return idx.Type
}

// HasColumn reports whether the definition contains a column with the given name
func (d TableSchemaDefinition) HasColumn(name string) bool {
	for _, col := range d.Columns {
		if col.Name == name {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer interface for GORM
func (d TableSchemaDefinition) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner interface for GORM
func (d *TableSchemaDefinition) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return json.Unmarshal([]byte(v.(string)), d)
	}

	return json.Unmarshal(bytes, d)
}

// IsValidSqlType checks if a column type is part of the supported enumeration
func IsValidSqlType(sqlType string) bool {
	switch SqlType(sqlType) {
	case SqlTypeUUID, SqlTypeText, SqlTypeBigInt, SqlTypeTimestampTZ,
		SqlTypeJSONB, SqlTypeReal, SqlTypeBoolean:
		return true
	default:
		return false
	}
}

// IsValidIndexType checks if an index type is supported; empty means BTREE
func IsValidIndexType(indexType string) bool {
	switch IndexType(indexType) {
	case IndexTypeBTree, IndexTypeGIN, "":
		return true
	default:
		return false
	}
}

// IsTimestampType reports whether the type belongs to the timestamp family
func IsTimestampType(sqlType SqlType) bool {
	return sqlType == SqlTypeTimestampTZ
}

// IsJSONType reports whether the type belongs to the JSON family
func IsJSONType(sqlType SqlType) bool {
	return sqlType == SqlTypeJSONB
}
