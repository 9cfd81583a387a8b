package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotJSON wraps the decode error when a payload is not JSON at all.
var ErrNotJSON = errors.New("schema: payload is not valid JSON")

// ValidationError points at the first value that breaks the contract.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	path := e.Path
	if path == "" {
		path = "$"
	}
	return fmt.Sprintf("schema: %s: %s", path, e.Reason)
}

// Validate decodes raw and checks it against n.
func Validate(n *Node, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrNotJSON, err)
	}
	return ValidateValue(n, v)
}

// ValidateValue checks an already-decoded JSON value against n.
func ValidateValue(n *Node, v any) error {
	return check(n, v, "$")
}

func check(n *Node, v any, path string) error {
	if n == nil {
		return nil
	}
	switch n.Type {
	case TypeString:
		if _, ok := v.(string); !ok {
			return &ValidationError{Path: path, Reason: "expected string, got " + kind(v)}
		}
	case TypeArray:
		items, ok := v.([]any)
		if !ok {
			return &ValidationError{Path: path, Reason: "expected array, got " + kind(v)}
		}
		for i, item := range items {
			if err := check(n.Items, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return &ValidationError{Path: path, Reason: "expected object, got " + kind(v)}
		}
		for _, name := range n.Required {
			if val, ok := obj[name]; !ok || val == nil {
				return &ValidationError{Path: join(path, name), Reason: "required field missing"}
			}
		}
		for _, p := range n.Properties {
			val, ok := obj[p.Name]
			if !ok || val == nil {
				continue
			}
			if err := check(p.Node, val, join(path, p.Name)); err != nil {
				return err
			}
		}
	default:
		return &ValidationError{Path: path, Reason: "unsupported schema type " + strings.TrimSpace(string(n.Type))}
	}
	return nil
}

func join(path, name string) string { return path + "." + name }

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
