package repository

import "errors"

// Common repository errors
var (
	ErrSchemaRequestNotFound = errors.New("schema request not found")
	ErrSchemaRequestExists   = errors.New("schema request already exists for table")
	ErrInvalidUUID           = errors.New("invalid UUID format")
	ErrInvalidRequestStatus  = errors.New("invalid request status")
)
