package provider

import (
	"strings"

	"github.com/brandlens/mentions-sync/internal/models"
	"github.com/tidwall/gjson"
)

// extraction is one known place a value may live in a provider response
type extraction func(root gjson.Result) (gjson.Result, bool)

func fieldAt(path string) extraction {
	return func(root gjson.Result) (gjson.Result, bool) {
		value := root.Get(path)
		if !value.Exists() || value.Type == gjson.Null {
			return gjson.Result{}, false
		}
		return value, true
	}
}

func arrayAt(path string) extraction {
	return func(root gjson.Result) (gjson.Result, bool) {
		value := root.Get(path)
		return value, value.IsArray()
	}
}

// firstOf tries each strategy in priority order
func firstOf(root gjson.Result, strategies []extraction) (gjson.Result, bool) {
	for _, strategy := range strategies {
		if value, ok := strategy(root); ok {
			return value, true
		}
	}
	return gjson.Result{}, false
}

var alertListStrategies = []extraction{
	arrayAt("alerts"),
	arrayAt("data.alerts"),
	arrayAt("alert_data.alerts"),
}

var mentionListStrategies = []extraction{
	arrayAt("mentions"),
	arrayAt("alert_data.mentions"),
	arrayAt("data.mentions"),
}

var nextCursorStrategies = []extraction{
	scalarAt("next"),
	scalarAt("next_cursor"),
	scalarAt("_links.more.href"),
	scalarAt("alert_data.next"),
	scalarAt("alert_data.next_cursor"),
	scalarAt("alert_data._links.more.href"),
}

// scalarAt only accepts non-empty strings and numbers
func scalarAt(path string) extraction {
	return func(root gjson.Result) (gjson.Result, bool) {
		value := root.Get(path)
		switch value.Type {
		case gjson.String, gjson.Number:
			return value, strings.TrimSpace(value.String()) != ""
		default:
			return gjson.Result{}, false
		}
	}
}

func parseAlert(item gjson.Result) (models.Alert, bool) {
	if !item.IsObject() {
		return models.Alert{}, false
	}

	id, ok := firstOf(item, []extraction{scalarAt("id"), scalarAt("alert_id"), scalarAt("uid")})
	if !ok {
		return models.Alert{}, false
	}

	alert := models.Alert{ID: strings.TrimSpace(id.String()), IsActive: true}
	if name, ok := firstOf(item, []extraction{scalarAt("name"), scalarAt("title")}); ok {
		alert.Name = name.String()
	}

	if flag, ok := firstOf(item, []extraction{boolAt("is_active"), boolAt("active"), boolAt("enabled")}); ok {
		alert.IsActive = flag.Bool()
	} else if status, ok := firstOf(item, []extraction{scalarAt("status"), scalarAt("state")}); ok {
		switch strings.ToLower(strings.TrimSpace(status.String())) {
		case "inactive", "disabled":
			alert.IsActive = false
		}
	}

	return alert, true
}

func boolAt(path string) extraction {
	return func(root gjson.Result) (gjson.Result, bool) {
		value := root.Get(path)
		return value, value.IsBool()
	}
}
