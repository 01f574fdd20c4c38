package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// DocumentSchema is a compiled JSON Schema document for validating nested
// payloads (order line items, registry schemas) that the flat input schema
// cannot express.
type DocumentSchema struct {
	schema *gojsonschema.Schema
}

func CompileDocumentSchema(schemaJSON string) (*DocumentSchema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &DocumentSchema{schema: s}, nil
}

// MustCompileDocumentSchema panics on an invalid schema; use it for embedded schemas.
func MustCompileDocumentSchema(schemaJSON string) *DocumentSchema {
	s, err := CompileDocumentSchema(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks doc (any JSON-marshalable value) and returns the failures
// as a ValidationResult.
func (d *DocumentSchema) Validate(doc interface{}) (*ValidationResult, error) {
	res, err := d.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}

	out := &ValidationResult{Valid: res.Valid()}
	for _, e := range res.Errors() {
		field := e.Field()
		if field == "(root)" {
			field = "$"
		}
		out.Errors = append(out.Errors, ValidationError{
			Field:   strings.TrimPrefix(field, "(root)."),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return out, nil
}
