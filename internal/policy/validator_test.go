package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schema-registry/internal/model"
)

func widgetsDefinition() model.TableSchemaDefinition {
	return model.TableSchemaDefinition{
		TableName: "widgets",
		Columns: []model.ColumnDefinition{
			{Name: "id", Type: model.SqlTypeUUID, PrimaryKey: true},
			{Name: "label", Type: model.SqlTypeText, Nullable: true},
		},
	}
}

func TestValidateWidgetsExample(t *testing.T) {
	v := NewValidator()
	result := v.Validate(widgetsDefinition())

	assert.False(t, result.HasErrors())
	require.Len(t, result.Violations, 2)

	for _, violation := range result.Violations {
		assert.Equal(t, model.SeverityWarning, violation.Severity)
		assert.Equal(t, RuleTimestampPresence, violation.Rule)
	}
	assert.Contains(t, result.Violations[0].Message, "created_at")
	assert.Contains(t, result.Violations[1].Message, "updated_at")
	assert.Contains(t, result.Violations[0].Suggestion, "CURRENT_TIMESTAMP")
}

func TestValidatePrimaryKeyRule(t *testing.T) {
	tests := []struct {
		name       string
		columns    []model.ColumnDefinition
		wantErrors int
	}{
		{
			name: "exactly one primary key",
			columns: []model.ColumnDefinition{
				{Name: "id", Type: model.SqlTypeUUID, PrimaryKey: true},
			},
			wantErrors: 0,
		},
		{
			name: "no primary key",
			columns: []model.ColumnDefinition{
				{Name: "value", Type: model.SqlTypeText},
			},
			wantErrors: 1,
		},
		{
			name: "two primary keys",
			columns: []model.ColumnDefinition{
				{Name: "id", Type: model.SqlTypeUUID, PrimaryKey: true},
				{Name: "other_id", Type: model.SqlTypeUUID, PrimaryKey: true},
			},
			wantErrors: 1,
		},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(model.TableSchemaDefinition{
				TableName: "things",
				Columns:   tt.columns,
			})

			errors := 0
			for _, violation := range result.Errors() {
				if violation.Rule == RulePrimaryKeyRequired {
					errors++
				}
			}
			assert.Equal(t, tt.wantErrors, errors)
		})
	}
}

func TestValidateNamingConvention(t *testing.T) {
	v := NewValidator()
	result := v.Validate(model.TableSchemaDefinition{
		TableName: "UserAccounts",
		Columns: []model.ColumnDefinition{
			{Name: "ID", Type: model.SqlTypeUUID, PrimaryKey: true},
			{Name: "display_name", Type: model.SqlTypeText},
		},
		Indexes: []model.IndexDefinition{
			{Name: "idx-display", Columns: []string{"display_name"}},
		},
	})

	var naming []model.Violation
	for _, violation := range result.Violations {
		if violation.Rule == RuleNamingConvention {
			naming = append(naming, violation)
		}
	}

	require.Len(t, naming, 3)
	for _, violation := range naming {
		assert.Equal(t, model.SeverityWarning, violation.Severity)
	}
	assert.Contains(t, naming[0].Suggestion, "user_accounts")
	assert.Contains(t, naming[1].Suggestion, "id")
	assert.Contains(t, naming[2].Suggestion, "idx_display")
}

func TestValidateBigIntRange(t *testing.T) {
	v := NewValidator()

	def := model.TableSchemaDefinition{
		TableName: "counters",
		Columns: []model.ColumnDefinition{
			{Name: "id", Type: model.SqlTypeUUID, PrimaryKey: true},
			{Name: "external_id", Type: model.SqlTypeBigInt},
			{Name: "hit_count", Type: model.SqlTypeBigInt, Counter: true},
		},
	}

	var bigint []model.Violation
	for _, violation := range v.Validate(def).Violations {
		if violation.Rule == RuleBigIntRange {
			bigint = append(bigint, violation)
		}
	}

	// the counter-flagged column is exempt
	require.Len(t, bigint, 1)
	assert.Equal(t, model.SeverityWarning, bigint[0].Severity)
	assert.Contains(t, bigint[0].Message, "external_id")
}

func TestValidateJSONBGinIndex(t *testing.T) {
	base := model.TableSchemaDefinition{
		TableName: "documents",
		Columns: []model.ColumnDefinition{
			{Name: "id", Type: model.SqlTypeUUID, PrimaryKey: true},
			{Name: "payload", Type: model.SqlTypeJSONB},
		},
	}

	v := NewValidator()

	uncovered := v.Validate(base)
	var infos []model.Violation
	for _, violation := range uncovered.Violations {
		if violation.Rule == RuleJSONBGinIndex {
			infos = append(infos, violation)
		}
	}
	require.Len(t, infos, 1)
	assert.Equal(t, model.SeverityInfo, infos[0].Severity)

	// a BTREE index over the column does not count as covering
	base.Indexes = []model.IndexDefinition{{Name: "idx_payload", Columns: []string{"payload"}}}
	assert.NotEmpty(t, findByRule(v.Validate(base), RuleJSONBGinIndex))

	base.Indexes = []model.IndexDefinition{{Name: "idx_payload", Columns: []string{"payload"}, Type: model.IndexTypeGIN}}
	assert.Empty(t, findByRule(v.Validate(base), RuleJSONBGinIndex))
}

func TestValidateIndexReferentialIntegrity(t *testing.T) {
	v := NewValidator()
	result := v.Validate(model.TableSchemaDefinition{
		TableName: "orders",
		Columns: []model.ColumnDefinition{
			{Name: "id", Type: model.SqlTypeUUID, PrimaryKey: true},
		},
		Indexes: []model.IndexDefinition{
			{Name: "idx_missing", Columns: []string{"no_such_column"}},
		},
	})

	assert.True(t, result.HasErrors())
	errors := findByRule(result, RuleIndexReferentialIntegrity)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0].Message, "no_such_column")
}

func TestValidateDuplicateIdentifiers(t *testing.T) {
	v := NewValidator()
	result := v.Validate(model.TableSchemaDefinition{
		TableName: "dupes",
		Columns: []model.ColumnDefinition{
			{Name: "id", Type: model.SqlTypeUUID, PrimaryKey: true},
			{Name: "id", Type: model.SqlTypeText},
		},
		Indexes: []model.IndexDefinition{
			{Name: "idx_a", Columns: []string{"id"}},
			{Name: "idx_a", Columns: []string{"id"}},
		},
	})

	errors := findByRule(result, RuleDuplicateIdentifiers)
	require.Len(t, errors, 2)
	for _, violation := range errors {
		assert.Equal(t, model.SeverityError, violation.Severity)
	}
}

func TestValidateIsPureAndDeterministic(t *testing.T) {
	def := model.TableSchemaDefinition{
		TableName: "MixedBag",
		Columns: []model.ColumnDefinition{
			{Name: "payload", Type: model.SqlTypeJSONB},
			{Name: "big", Type: model.SqlTypeBigInt},
		},
		Indexes: []model.IndexDefinition{
			{Name: "idx_gone", Columns: []string{"gone"}},
		},
	}

	v := NewValidator()
	first := v.Validate(def)
	second := v.Validate(def)

	assert.Equal(t, first, second)
	assert.NotNil(t, first.Violations)
}

func TestValidateEmptyDefinitionDoesNotPanic(t *testing.T) {
	v := NewValidator()
	result := v.Validate(model.TableSchemaDefinition{})

	assert.NotNil(t, result.Violations)
	assert.True(t, result.HasErrors())
}

func TestSuggestIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"UserAccounts", "user_accounts"},
		{"createdAt", "created_at"},
		{"HTTPStatus", "http_status"},
		{"order-items", "order_items"},
		{"already_fine", "already_fine"},
		{"9lives", "x_9lives"},
		{"___", "unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestIdentifier(tt.in))
		})
	}
}

func findByRule(result ValidationResult, rule string) []model.Violation {
	var found []model.Violation
	for _, violation := range result.Violations {
		if violation.Rule == rule {
			found = append(found, violation)
		}
	}
	return found
}
