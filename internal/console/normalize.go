package console

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"workflow-console/pkg/models"
)

// logWrapperFields are checked in order when a logs payload is an object.
var logWrapperFields = []string{"logs", "data", "items"}

const noRulesText = "No transformation rules generated."

// NormalizeLogs accepts a bare array, an object wrapping an array under a
// known field, or anything else (which yields no entries).
func NormalizeLogs(raw []byte) []models.LogEntry {
	res := gjson.ParseBytes(raw)
	if !res.IsArray() && res.IsObject() {
		for _, f := range logWrapperFields {
			if v := res.Get(f); v.IsArray() {
				res = v
				break
			}
		}
	}
	if !res.IsArray() {
		return []models.LogEntry{}
	}

	elems := res.Array()
	logs := make([]models.LogEntry, 0, len(elems))
	for _, el := range elems {
		logs = append(logs, decodeLogEntry(el))
	}
	return logs
}

func decodeLogEntry(el gjson.Result) models.LogEntry {
	switch {
	case el.IsObject():
		entry := models.LogEntry{
			ID:        firstString(el, "id", "log_id"),
			Message:   firstString(el, "message", "log_message"),
			ErrorType: firstString(el, "error_type", "log_type"),
			Timestamp: firstString(el, "timestamp"),
		}
		if entry.Message == "" {
			entry.Raw = el.Raw
		}
		return entry
	case el.Type == gjson.String:
		return models.LogEntry{Message: el.Str}
	default:
		return models.LogEntry{Raw: el.Raw}
	}
}

// NormalizeQueryResult resolves the polymorphic rule generation response
// into tagged variants once, so renderers never inspect payload types.
func NormalizeQueryResult(raw []byte) models.QueryResult {
	obj := gjson.ParseBytes(raw)
	result := models.QueryResult{
		Rules:        decodeRuleSet(obj.Get("transformation_rules")),
		ErrorContext: decodeErrorContext(obj),
		Fixes:        decodeFixes(obj.Get("suggested_fixes")),
	}
	if obj.Get("has_error").Bool() {
		result.ErrorInfo = firstString(obj, "error_info")
	}
	return result
}

func decodeRuleSet(v gjson.Result) *models.RuleSet {
	raw := json.RawMessage(v.Raw)
	switch {
	case v.Type == gjson.String:
		return models.TextRuleSet(v.Str, raw)
	case v.IsArray():
		elems := v.Array()
		rules := make([]models.TransformationRule, 0, len(elems))
		for _, el := range elems {
			rules = append(rules, decodeRule(el))
		}
		return models.RecordRuleSet(rules, raw)
	case v.IsObject():
		return models.RecordRuleSet([]models.TransformationRule{decodeRule(v)}, raw)
	case v.Type == gjson.Number || v.Type == gjson.True || v.Type == gjson.False:
		return models.TextRuleSet(v.Raw, raw)
	default:
		return models.TextRuleSet(noRulesText, nil)
	}
}

func decodeRule(el gjson.Result) models.TransformationRule {
	if !el.IsObject() {
		if el.Type == gjson.String {
			return models.TransformationRule{Description: el.Str}
		}
		return models.TransformationRule{Description: el.Raw}
	}
	return models.TransformationRule{
		TargetField:     firstString(el, "target_field"),
		SourceFields:    stringSeq(el.Get("source_fields")),
		Transformations: stringSeq(el.Get("transformations")),
		ErrorHandling:   stringSeq(el.Get("error_handling")),
		Validation:      stringSeq(el.Get("validation")),
		Description:     firstString(el, "description"),
	}
}

func decodeErrorContext(obj gjson.Result) models.ErrorContext {
	if r := obj.Get("error_reasoning"); r.Type == gjson.String && strings.TrimSpace(r.Str) != "" {
		return models.ErrorContext{Kind: models.ErrorContextReasoning, Reasoning: r.Str}
	}
	a := obj.Get("error_analysis")
	switch {
	case !a.Exists(), a.Type == gjson.Null:
		return models.ErrorContext{}
	case a.Type == gjson.String && strings.TrimSpace(a.Str) == "":
		return models.ErrorContext{}
	}
	return models.ErrorContext{Kind: models.ErrorContextAnalysis, Analysis: json.RawMessage(a.Raw)}
}

func decodeFixes(v gjson.Result) []models.SuggestedFix {
	if !v.IsArray() {
		return nil
	}
	var fixes []models.SuggestedFix
	for _, el := range v.Array() {
		switch {
		case el.IsObject():
			fixes = append(fixes, models.SuggestedFix{
				Fix:      firstString(el, "fix"),
				Priority: firstString(el, "priority"),
				Impact:   firstString(el, "impact"),
			})
		case el.Type == gjson.String:
			fixes = append(fixes, models.SuggestedFix{Fix: el.Str})
		}
	}
	return fixes
}

// stringSeq returns nil unless v is an array; non-string elements keep their JSON form.
func stringSeq(v gjson.Result) []string {
	if !v.IsArray() {
		return nil
	}
	elems := v.Array()
	out := make([]string, 0, len(elems))
	for _, el := range elems {
		if el.Type == gjson.String {
			out = append(out, el.Str)
		} else {
			out = append(out, el.Raw)
		}
	}
	return out
}

func firstString(obj gjson.Result, keys ...string) string {
	for _, k := range keys {
		v := obj.Get(k)
		switch v.Type {
		case gjson.String:
			return v.Str
		case gjson.Number, gjson.True, gjson.False:
			return v.Raw
		}
	}
	return ""
}
