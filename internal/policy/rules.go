package policy

import (
	"fmt"
	"regexp"
	"strings"

	"schema-registry/internal/model"
)

// Rule names, used to stamp violations and as metric labels.
const (
	RulePrimaryKeyRequired        = "primary_key_required"
	RuleNamingConvention          = "naming_convention"
	RuleTimestampPresence         = "timestamp_presence"
	RuleBigIntRange               = "bigint_range"
	RuleJSONBGinIndex             = "jsonb_gin_index"
	RuleIndexReferentialIntegrity = "index_referential_integrity"
	RuleDuplicateIdentifiers      = "duplicate_identifiers"
)

var (
	identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

	// camelCase boundary splitters for identifier suggestions
	firstCapPattern   = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	allCapPattern     = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	illegalRunPattern = regexp.MustCompile(`[^a-z0-9_]+`)
	underscoreRun     = regexp.MustCompile(`_+`)
)

// requiredTimestampColumns must exist (case-insensitive, timestamp-typed) to
// satisfy the timestamp presence rule.
var requiredTimestampColumns = []string{"created_at", "updated_at"}

func checkPrimaryKey(def model.TableSchemaDefinition) []model.Violation {
	primaryKeys := make([]string, 0)
	for _, col := range def.Columns {
		if col.PrimaryKey {
			primaryKeys = append(primaryKeys, col.Name)
		}
	}

	switch len(primaryKeys) {
	case 1:
		return nil
	case 0:
		return []model.Violation{{
			Severity:   model.SeverityError,
			Message:    "table defines no primary key column; exactly one is required",
			Suggestion: "mark exactly one column with primaryKey = true",
		}}
	default:
		return []model.Violation{{
			Severity: model.SeverityError,
			Message: fmt.Sprintf("table defines %d primary key columns (%s); exactly one is required",
				len(primaryKeys), strings.Join(primaryKeys, ", ")),
			Suggestion: "keep primaryKey = true on a single column",
		}}
	}
}

func checkNamingConvention(def model.TableSchemaDefinition) []model.Violation {
	violations := make([]model.Violation, 0)

	appendIf := func(kind, name string) {
		if identifierPattern.MatchString(name) {
			return
		}
		violations = append(violations, model.Violation{
			Severity:   model.SeverityWarning,
			Message:    fmt.Sprintf("%s %q does not follow lower_snake_case naming", kind, name),
			Suggestion: fmt.Sprintf("rename to %q", SuggestIdentifier(name)),
		})
	}

	appendIf("table name", def.TableName)
	for _, col := range def.Columns {
		appendIf("column name", col.Name)
	}
	for _, idx := range def.Indexes {
		appendIf("index name", idx.Name)
	}

	return violations
}

func checkTimestampPresence(def model.TableSchemaDefinition) []model.Violation {
	violations := make([]model.Violation, 0)

	for _, required := range requiredTimestampColumns {
		found := false
		for _, col := range def.Columns {
			if strings.EqualFold(col.Name, required) && model.IsTimestampType(col.Type) {
				found = true
				break
			}
		}
		if !found {
			violations = append(violations, model.Violation{
				Severity:   model.SeverityWarning,
				Message:    fmt.Sprintf("table has no %s timestamp column", required),
				Suggestion: fmt.Sprintf("add %s TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP", required),
			})
		}
	}

	return violations
}

func checkBigIntRange(def model.TableSchemaDefinition) []model.Violation {
	violations := make([]model.Violation, 0)

	for _, col := range def.Columns {
		if col.Type != model.SqlTypeBigInt || col.Counter {
			continue
		}
		violations = append(violations, model.Violation{
			Severity: model.SeverityWarning,
			Message: fmt.Sprintf("column %q uses BIGINT, which can exceed the safe integer range of downstream consumers",
				col.Name),
			Suggestion: "use TEXT for identifier values, or set counter = true if this column is a pure numeric counter",
		})
	}

	return violations
}

func checkJSONBIndexes(def model.TableSchemaDefinition) []model.Violation {
	violations := make([]model.Violation, 0)

	for _, col := range def.Columns {
		if !model.IsJSONType(col.Type) {
			continue
		}
		if hasGinIndexOn(def, col.Name) {
			continue
		}
		violations = append(violations, model.Violation{
			Severity:   model.SeverityInfo,
			Message:    fmt.Sprintf("column %q is JSONB but no GIN index covers it", col.Name),
			Suggestion: fmt.Sprintf("add a GIN index on %s to support containment queries", col.Name),
		})
	}

	return violations
}

func hasGinIndexOn(def model.TableSchemaDefinition, column string) bool {
	for _, idx := range def.Indexes {
		if idx.EffectiveType() != model.IndexTypeGIN {
			continue
		}
		for _, indexed := range idx.Columns {
			if indexed == column {
				return true
			}
		}
	}
	return false
}

func checkIndexReferences(def model.TableSchemaDefinition) []model.Violation {
	violations := make([]model.Violation, 0)

	for _, idx := range def.Indexes {
		for _, column := range idx.Columns {
			if def.HasColumn(column) {
				continue
			}
			violations = append(violations, model.Violation{
				Severity:   model.SeverityError,
				Message:    fmt.Sprintf("index %q references unknown column %q", idx.Name, column),
				Suggestion: "define the column or remove it from the index",
			})
		}
	}

	return violations
}

func checkDuplicateIdentifiers(def model.TableSchemaDefinition) []model.Violation {
	violations := make([]model.Violation, 0)

	seenColumns := make(map[string]bool)
	for _, col := range def.Columns {
		if seenColumns[col.Name] {
			violations = append(violations, model.Violation{
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("duplicate column name %q", col.Name),
			})
			continue
		}
		seenColumns[col.Name] = true
	}

	seenIndexes := make(map[string]bool)
	for _, idx := range def.Indexes {
		if seenIndexes[idx.Name] {
			violations = append(violations, model.Violation{
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("duplicate index name %q", idx.Name),
			})
			continue
		}
		seenIndexes[idx.Name] = true
	}

	return violations
}

// SuggestIdentifier converts an arbitrary identifier into its closest
// lower_snake_case form: camelCase boundaries become underscores, illegal
// character runs collapse to a single underscore, and a leading non-letter
// gets an "x_" prefix so the result satisfies ^[a-z][a-z0-9_]*$.
func SuggestIdentifier(name string) string {
	s := firstCapPattern.ReplaceAllString(name, "${1}_${2}")
	s = allCapPattern.ReplaceAllString(s, "${1}_${2}")
	s = strings.ToLower(s)
	s = illegalRunPattern.ReplaceAllString(s, "_")
	s = underscoreRun.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")

	if s == "" {
		return "unnamed"
	}
	if s[0] < 'a' || s[0] > 'z' {
		return "x_" + s
	}
	return s
}
