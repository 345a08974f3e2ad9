package migration

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"

	"schema-registry/internal/model"
)

var (
	// plainIdentifier matches identifiers that can be emitted unquoted.
	// Anything else survives validation only as a naming warning, so it is
	// quoted to keep the emitted DDL valid.
	plainIdentifier = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

	fileNameIllegal = regexp.MustCompile(`[^a-z0-9_]`)
)

// Migration holds the forward and reverse SQL for one schema change. Both
// directions are idempotent and safe to re-run.
type Migration struct {
	Up   string `json:"up"`
	Down string `json:"down"`
}

// Generator emits reversible PostgreSQL DDL from table schema definitions.
// The SQL bodies are pure functions of the definition; only file naming
// depends on the wall clock.
type Generator struct{}

// NewGenerator creates a new Generator instance
func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateCreateTableMigration renders the idempotent CREATE TABLE statement
// plus one CREATE INDEX statement per index definition, and the matching
// DROP TABLE reverse. Index drops are implied by the table drop and are not
// emitted separately.
func (g *Generator) GenerateCreateTableMigration(def model.TableSchemaDefinition) (Migration, error) {
	if strings.TrimSpace(def.TableName) == "" {
		return Migration{}, fmt.Errorf("table name is required")
	}
	if len(def.Columns) == 0 {
		return Migration{}, fmt.Errorf("table %s has no columns", def.TableName)
	}

	table := quoteIdentifier(def.TableName)

	columns := make([]string, 0, len(def.Columns))
	for _, col := range def.Columns {
		columns = append(columns, renderColumn(col))
	}

	statements := make([]string, 0, 1+len(def.Indexes))
	statements = append(statements, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		table, strings.Join(columns, ", ")))

	for _, idx := range def.Indexes {
		statements = append(statements, renderIndex(def.TableName, idx))
	}

	return Migration{
		Up:   strings.Join(statements, ";\n"),
		Down: fmt.Sprintf("DROP TABLE IF EXISTS %s", table),
	}, nil
}

// renderColumn renders one column clause: name, type, PRIMARY KEY marker,
// NOT NULL unless nullable, DEFAULT expression when present.
func renderColumn(col model.ColumnDefinition) string {
	var b strings.Builder
	b.WriteString(quoteIdentifier(col.Name))
	b.WriteString(" ")
	b.WriteString(string(col.Type))

	if col.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if col.DefaultValue != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(*col.DefaultValue)
	}

	return b.String()
}

func renderIndex(tableName string, idx model.IndexDefinition) string {
	columns := make([]string, 0, len(idx.Columns))
	for _, col := range idx.Columns {
		columns = append(columns, quoteIdentifier(col))
	}

	using := ""
	if idx.EffectiveType() == model.IndexTypeGIN {
		using = " USING GIN"
	}

	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s%s (%s)",
		quoteIdentifier(idx.Name), quoteIdentifier(tableName), using, strings.Join(columns, ", "))
}

// GenerateMigrationFileName produces `<UTC timestamp>_<sanitized table name>`.
// This is the only non-deterministic generator output.
func (g *Generator) GenerateMigrationFileName(tableName string) string {
	return fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102150405"), SanitizeTableName(tableName))
}

// SanitizeTableName lower-cases the name and maps every character outside
// [a-z0-9_] to an underscore.
func SanitizeTableName(tableName string) string {
	return fileNameIllegal.ReplaceAllString(strings.ToLower(tableName), "_")
}

func quoteIdentifier(name string) string {
	if plainIdentifier.MatchString(name) {
		return name
	}
	return pq.QuoteIdentifier(name)
}
