package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequestStatus string

const (
	// RequestStatusDraft is caller-side only; the service never assigns it
	RequestStatusDraft     RequestStatus = "draft"
	RequestStatusRequested RequestStatus = "requested"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusMigrated  RequestStatus = "migrated"
)

// SchemaRegistry is the persisted source of truth for a requested table schema
// and its lifecycle status. SchemaJSON and RequestMetadata are immutable after
// creation; status transitions are the only permitted mutation.
//
// The table name is `schema_registry` via the singular naming strategy
// configured on the GORM session. A TableName() method would collide with the
// TableName column field.
type SchemaRegistry struct {
	ID              string                `gorm:"type:char(36);primaryKey" json:"id"`
	TableName       string                `gorm:"size:255;not null;uniqueIndex" json:"table_name"`
	Owner           string                `gorm:"size:255" json:"owner,omitempty"`
	SchemaJSON      TableSchemaDefinition `gorm:"type:json;not null" json:"schema_json"`
	Status          RequestStatus         `gorm:"type:enum('draft','requested','approved','rejected','migrated');default:'requested'" json:"status"`
	RequestMetadata RequestMetadata       `gorm:"type:json;not null" json:"request_metadata"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// BeforeCreate generates a new UUID if ID is empty
func (r *SchemaRegistry) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// IsValidRequestStatus checks if a lifecycle status value is valid
func IsValidRequestStatus(status string) bool {
	switch RequestStatus(status) {
	case RequestStatusDraft, RequestStatusRequested, RequestStatusApproved,
		RequestStatusRejected, RequestStatusMigrated:
		return true
	default:
		return false
	}
}

// IsTerminalStatus reports whether a status ends the canonical lifecycle path
func IsTerminalStatus(status RequestStatus) bool {
	return status == RequestStatusRejected || status == RequestStatusMigrated
}
