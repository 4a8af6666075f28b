package schema

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Checker reports how a record deviates from its stream schema. It never
// rejects records; callers decide what to do with the findings.
type Checker struct {
	compiled *gojsonschema.Schema
}

// NewChecker compiles a schema for repeated record checks
func NewChecker(s Schema) (*Checker, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &Checker{compiled: compiled}, nil
}

// Check returns one description per mismatch, or nil when the record conforms.
// Fields the schema does not declare are allowed.
func (c *Checker) Check(record map[string]interface{}) ([]string, error) {
	result, err := c.compiled.Validate(gojsonschema.NewGoLoader(record))
	if err != nil {
		return nil, fmt.Errorf("schema check failed: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return issues, nil
}
