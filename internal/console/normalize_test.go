package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workflow-console/pkg/models"
)

func TestNormalizeLogs(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		messages []string
	}{
		{"bare array", `[{"message":"a"},{"message":"b"}]`, []string{"a", "b"}},
		{"logs wrapper", `{"logs":[{"message":"a"}]}`, []string{"a"}},
		{"data wrapper", `{"data":[{"log_message":"a"}]}`, []string{"a"}},
		{"items wrapper", `{"items":["plain line"]}`, []string{"plain line"}},
		{"logs wins over data", `{"data":[{"message":"d"}],"logs":[{"message":"l"}]}`, []string{"l"}},
		{"unknown object", `{"entries":[{"message":"a"}]}`, nil},
		{"scalar", `42`, nil},
		{"empty body", ``, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := NormalizeLogs([]byte(tt.raw))
			require.NotNil(t, logs)
			var got []string
			for _, l := range logs {
				got = append(got, l.Text())
			}
			assert.Equal(t, tt.messages, got)
		})
	}
}

func TestNormalizeLogs_MalformedEntryKeepsRaw(t *testing.T) {
	logs := NormalizeLogs([]byte(`[{"level":"x"},7]`))
	require.Len(t, logs, 2)
	assert.Equal(t, `{"level":"x"}`, logs[0].Text())
	assert.Equal(t, `7`, logs[1].Text())
}

func TestNormalizeLogs_Fields(t *testing.T) {
	logs := NormalizeLogs([]byte(`[{"id":3,"message":"Error: connection timeout","error_type":"network","timestamp":"2024-01-01T00:00:00Z"}]`))
	require.Len(t, logs, 1)
	assert.Equal(t, "3", logs[0].ID)
	assert.Equal(t, "network", logs[0].ErrorType)
	assert.Equal(t, "2024-01-01T00:00:00Z", logs[0].Timestamp)
	assert.Equal(t, models.SeverityError, logs[0].Severity())
}

func TestNormalizeQueryResult_RuleForms(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		r := NormalizeQueryResult([]byte(`{"transformation_rules":"map a to b"}`))
		require.NotNil(t, r.Rules)
		assert.Equal(t, models.RuleSetText, r.Rules.Kind)
		assert.Equal(t, "map a to b", r.Rules.Text)
		assert.JSONEq(t, `"map a to b"`, string(r.Rules.ExportPayload()))
	})

	t.Run("records", func(t *testing.T) {
		r := NormalizeQueryResult([]byte(`{"transformation_rules":[{"target_field":"amount","source_fields":["a","b"],"description":"sum"}]}`))
		require.Equal(t, models.RuleSetRecords, r.Rules.Kind)
		require.Len(t, r.Rules.Records, 1)
		rule := r.Rules.Records[0]
		assert.Equal(t, "amount", rule.TargetField)
		assert.Equal(t, []string{"a", "b"}, rule.SourceFields)
		assert.Nil(t, rule.Transformations)
		assert.Equal(t, "sum", rule.Description)
	})

	t.Run("single object", func(t *testing.T) {
		r := NormalizeQueryResult([]byte(`{"transformation_rules":{"target_field":"x"}}`))
		require.Equal(t, models.RuleSetRecords, r.Rules.Kind)
		require.Len(t, r.Rules.Records, 1)
		assert.Equal(t, "x", r.Rules.Records[0].TargetField)
	})

	t.Run("absent", func(t *testing.T) {
		r := NormalizeQueryResult([]byte(`{}`))
		assert.Equal(t, models.RuleSetText, r.Rules.Kind)
		assert.Equal(t, noRulesText, r.Rules.Text)
	})
}

func TestNormalizeQueryResult_ErrorContext(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind models.ErrorContextKind
	}{
		{"reasoning wins", `{"error_reasoning":"because","error_analysis":{"a":1}}`, models.ErrorContextReasoning},
		{"blank reasoning falls back", `{"error_reasoning":"  ","error_analysis":{"a":1}}`, models.ErrorContextAnalysis},
		{"string analysis", `{"error_analysis":"text"}`, models.ErrorContextAnalysis},
		{"null analysis", `{"error_analysis":null}`, models.ErrorContextNone},
		{"empty analysis", `{"error_analysis":""}`, models.ErrorContextNone},
		{"nothing", `{}`, models.ErrorContextNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NormalizeQueryResult([]byte(tt.raw))
			assert.Equal(t, tt.kind, r.ErrorContext.Kind)
		})
	}
}

func TestNormalizeQueryResult_FixesAndErrorInfo(t *testing.T) {
	r := NormalizeQueryResult([]byte(`{
		"suggested_fixes":[{"fix":"retry","priority":"High","impact":"low"},"check creds",5],
		"has_error":true,
		"error_info":"upstream down"
	}`))
	require.Len(t, r.Fixes, 2)
	assert.Equal(t, models.SuggestedFix{Fix: "retry", Priority: "High", Impact: "low"}, r.Fixes[0])
	assert.Equal(t, "check creds", r.Fixes[1].Fix)
	assert.Equal(t, "upstream down", r.ErrorInfo)

	r = NormalizeQueryResult([]byte(`{"has_error":false,"error_info":"ignored"}`))
	assert.Empty(t, r.ErrorInfo)
}
