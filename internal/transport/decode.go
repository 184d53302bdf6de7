package transport

import (
	"fmt"

	"github.com/tidwall/gjson"

	"workflow-console/pkg/models"
)

// DecodeWorkflows turns a list payload into workflows, one per array element.
// Older backends send workflow_id/workflow_name; both spellings are accepted.
func DecodeWorkflows(body []byte) ([]models.Workflow, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: workflow list is not JSON", ErrInvalidShape)
	}
	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		return nil, fmt.Errorf("%w: workflow list is not an array", ErrInvalidShape)
	}

	elems := res.Array()
	workflows := make([]models.Workflow, 0, len(elems))
	for _, el := range elems {
		workflows = append(workflows, models.Workflow{
			ID:       firstString(el, "id", "workflow_id"),
			Name:     firstString(el, "name", "workflow_name"),
			Status:   firstString(el, "status"),
			Schedule: firstString(el, "schedule"),
		})
	}
	return workflows, nil
}

// firstString returns the first of keys present on obj as a string. Numbers
// are rendered in their JSON form; objects and arrays are ignored.
func firstString(obj gjson.Result, keys ...string) string {
	if !obj.IsObject() {
		return ""
	}
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
