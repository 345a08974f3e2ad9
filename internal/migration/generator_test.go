package migration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schema-registry/internal/model"
)

func TestGenerateWidgetsExample(t *testing.T) {
	g := NewGenerator()
	migration, err := g.GenerateCreateTableMigration(model.TableSchemaDefinition{
		TableName: "widgets",
		Columns: []model.ColumnDefinition{
			{Name: "id", Type: model.SqlTypeUUID, PrimaryKey: true},
			{Name: "label", Type: model.SqlTypeText, Nullable: true},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS widgets (id UUID PRIMARY KEY NOT NULL, label TEXT)", migration.Up)
	assert.Equal(t, "DROP TABLE IF EXISTS widgets", migration.Down)
}

func TestGenerateWithIndexesAndDefaults(t *testing.T) {
	now := "CURRENT_TIMESTAMP"
	g := NewGenerator()
	migration, err := g.GenerateCreateTableMigration(model.TableSchemaDefinition{
		TableName: "events",
		Columns: []model.ColumnDefinition{
			{Name: "id", Type: model.SqlTypeUUID, PrimaryKey: true},
			{Name: "payload", Type: model.SqlTypeJSONB},
			{Name: "created_at", Type: model.SqlTypeTimestampTZ, DefaultValue: &now},
		},
		Indexes: []model.IndexDefinition{
			{Name: "idx_events_created_at", Columns: []string{"created_at"}},
			{Name: "idx_events_payload", Columns: []string{"payload"}, Type: model.IndexTypeGIN},
		},
	})

	require.NoError(t, err)

	statements := strings.Split(migration.Up, ";\n")
	require.Len(t, statements, 3)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS events (id UUID PRIMARY KEY NOT NULL, payload JSONB NOT NULL, created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP)", statements[0])
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS idx_events_created_at ON events (created_at)", statements[1])
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS idx_events_payload ON events USING GIN (payload)", statements[2])

	assert.Equal(t, "DROP TABLE IF EXISTS events", migration.Down)
}

func TestGenerateIsDeterministic(t *testing.T) {
	def := model.TableSchemaDefinition{
		TableName: "things",
		Columns: []model.ColumnDefinition{
			{Name: "id", Type: model.SqlTypeUUID, PrimaryKey: true},
			{Name: "amount", Type: model.SqlTypeReal, Nullable: true},
		},
		Indexes: []model.IndexDefinition{
			{Name: "idx_things_amount", Columns: []string{"amount"}},
		},
	}

	g := NewGenerator()
	first, err := g.GenerateCreateTableMigration(def)
	require.NoError(t, err)
	second, err := g.GenerateCreateTableMigration(def)
	require.NoError(t, err)

	assert.Equal(t, first.Up, second.Up)
	assert.Equal(t, first.Down, second.Down)
}

func TestGenerateQuotesNonConformingIdentifiers(t *testing.T) {
	// the naming rule is only a warning, so such definitions reach the
	// generator and must still produce valid DDL
	g := NewGenerator()
	migration, err := g.GenerateCreateTableMigration(model.TableSchemaDefinition{
		TableName: "UserAccounts",
		Columns: []model.ColumnDefinition{
			{Name: "ID", Type: model.SqlTypeUUID, PrimaryKey: true},
			{Name: "label", Type: model.SqlTypeText, Nullable: true},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "UserAccounts" ("ID" UUID PRIMARY KEY NOT NULL, label TEXT)`, migration.Up)
	assert.Equal(t, `DROP TABLE IF EXISTS "UserAccounts"`, migration.Down)
}

func TestGenerateRejectsEmptyDefinitions(t *testing.T) {
	g := NewGenerator()

	_, err := g.GenerateCreateTableMigration(model.TableSchemaDefinition{})
	assert.Error(t, err)

	_, err = g.GenerateCreateTableMigration(model.TableSchemaDefinition{TableName: "nocols"})
	assert.Error(t, err)
}

func TestGenerateMigrationFileName(t *testing.T) {
	g := NewGenerator()
	name := g.GenerateMigrationFileName("My-Widgets")

	parts := strings.SplitN(name, "_", 2)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 14)
	assert.Equal(t, "my_widgets", parts[1])
}

func TestSanitizeTableName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"widgets", "widgets"},
		{"UserAccounts", "useraccounts"},
		{"order-items v2", "order_items_v2"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeTableName(tt.in))
	}
}

func TestFormatMigrationFile(t *testing.T) {
	g := NewGenerator()
	meta := model.RequestMetadata{
		RequestedBy:  "alice@example.com",
		RelatedIssue: "DATA-123",
	}

	formatted := g.FormatMigrationFile(DirectionUp, "CREATE TABLE IF NOT EXISTS widgets (id UUID PRIMARY KEY NOT NULL)", "widgets", meta)

	assert.True(t, strings.HasPrefix(formatted, "-- Migration: up\n"))
	assert.Contains(t, formatted, "-- Table: widgets\n")
	assert.Contains(t, formatted, "-- Requested by: alice@example.com\n")
	assert.Contains(t, formatted, "-- Related issue: DATA-123\n")
	assert.True(t, strings.HasSuffix(formatted, "CREATE TABLE IF NOT EXISTS widgets (id UUID PRIMARY KEY NOT NULL)\n"))

	// header wrapping is deterministic for fixed metadata
	assert.Equal(t, formatted, g.FormatMigrationFile(DirectionUp, "CREATE TABLE IF NOT EXISTS widgets (id UUID PRIMARY KEY NOT NULL)", "widgets", meta))
}
