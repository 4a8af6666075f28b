package stream

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Record is one JSON object extracted from an API response
type Record = map[string]interface{}

// Context carries the values a parent record hands to the requests of its children
type Context map[string]string

// Clone returns an independent copy
func (c Context) Clone() Context {
	if c == nil {
		return nil
	}
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// String renders the context as sorted key=value pairs for logs
func (c Context) String() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + c[k]
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// contextValue converts a record field into a context value.
// Strings and JSON numbers are used verbatim.
func contextValue(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool, float64, int, int64:
		return fmt.Sprint(val), nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", v)
	}
}
