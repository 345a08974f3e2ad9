package model

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"
)

const (
	// AuditActionCreateRequest records the initial submission of a schema request
	AuditActionCreateRequest = "CREATE_REQUEST"
	// auditActionStatusChangePrefix prefixes every status transition action
	auditActionStatusChangePrefix = "STATUS_CHANGE_"
)

const (
	AuditStatusPending   = "pending"
	AuditStatusCompleted = "completed"
)

// StatusChangeAction builds the audit action name for a status transition,
// e.g. approved -> STATUS_CHANGE_APPROVED.
func StatusChangeAction(status RequestStatus) string {
	return auditActionStatusChangePrefix + strings.ToUpper(string(status))
}

// AuditMetadata is the request metadata persisted with an audit entry, plus an
// optional snapshot of the advisory violations reported at creation time.
type AuditMetadata struct {
	RequestMetadata
	Violations []Violation `json:"violations,omitempty"`
}

// Value implements driver.Valuer interface for GORM
func (m AuditMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner interface for GORM
func (m *AuditMetadata) Scan(value interface{}) error {
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

// SchemaAudit is one append-only audit trail entry. Rows are never updated or
// deleted; the auto-increment ID doubles as the insertion-order tie-break when
// entries share an execution timestamp.
type SchemaAudit struct {
	ID              uint64                 `gorm:"primaryKey;autoIncrement" json:"id"`
	TableName       string                 `gorm:"size:255;not null;index" json:"table_name"`
	Action          string                 `gorm:"size:64;not null" json:"action"`
	SchemaJSON      *TableSchemaDefinition `gorm:"type:json" json:"schema_json,omitempty"`
	Status          string                 `gorm:"size:32;not null" json:"status"`
	PerformedBy     *string                `gorm:"size:255" json:"performed_by,omitempty"`
	RequestMetadata *AuditMetadata         `gorm:"type:json" json:"request_metadata,omitempty"`
	ExecutedAt      time.Time              `gorm:"not null;index" json:"executed_at"`
	CreatedAt       time.Time              `json:"created_at"`
}
