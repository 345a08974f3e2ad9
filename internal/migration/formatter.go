package migration

import (
	"fmt"
	"strings"

	"schema-registry/internal/model"
)

const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// FormatMigrationFile wraps raw migration SQL in a comment header carrying
// the table name and request metadata for human traceability. The wrapping
// never changes SQL semantics, and the output is deterministic for a fixed
// definition and metadata.
func (g *Generator) FormatMigrationFile(direction, sql, tableName string, meta model.RequestMetadata) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("-- Migration: %s\n", direction))
	b.WriteString(fmt.Sprintf("-- Table: %s\n", tableName))
	if meta.RequestedBy != "" {
		b.WriteString(fmt.Sprintf("-- Requested by: %s\n", meta.RequestedBy))
	}
	if meta.RelatedIssue != "" {
		b.WriteString(fmt.Sprintf("-- Related issue: %s\n", meta.RelatedIssue))
	}
	b.WriteString("\n")
	b.WriteString(sql)
	if !strings.HasSuffix(sql, "\n") {
		b.WriteString("\n")
	}

	return b.String()
}
