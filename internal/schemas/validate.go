// Package schemas checks model output and parser results against the
// embedded JSON Schemas.
package schemas

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Embedded schema names
const (
	Rewrite  = "rewrite.schema.json"
	ParsedJD = "parsed_jd.schema.json"
)

//go:embed files/*.schema.json
var schemaFiles embed.FS

// compiled caches schemas by name; a failed compile is cached too
var compiled sync.Map // name -> func() (*gojsonschema.Schema, error)

// ValidationError lists every violation found in a document
type ValidationError struct {
	Schema string
	Errors []FieldError
}

// FieldError is one violation at a JSON path
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	parts := make([]string, 0, len(ve.Errors))
	for _, fe := range ve.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return fmt.Sprintf("document does not match %s: %s", ve.Schema, strings.Join(parts, "; "))
}

// SchemaError means the named schema is missing or does not compile
type SchemaError struct {
	Name  string
	Cause error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s unavailable: %v", e.Name, e.Cause)
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// DocumentError means the document is not well-formed JSON
type DocumentError struct {
	Cause error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document is not valid JSON: %v", e.Cause)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

func load(name string) (*gojsonschema.Schema, error) {
	fn, _ := compiled.LoadOrStore(name, sync.OnceValues(func() (*gojsonschema.Schema, error) {
		data, err := schemaFiles.ReadFile("files/" + name)
		if err != nil {
			return nil, &SchemaError{Name: name, Cause: err}
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return nil, &SchemaError{Name: name, Cause: err}
		}
		return schema, nil
	}))
	return fn.(func() (*gojsonschema.Schema, error))()
}

// Validate checks the JSON document against the embedded schema called name
func Validate(name, document string) error {
	schema, err := load(name)
	if err != nil {
		return err
	}

	if !json.Valid([]byte(document)) {
		var v any
		return &DocumentError{Cause: json.Unmarshal([]byte(document), &v)}
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(document))
	if err != nil {
		return &DocumentError{Cause: err}
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Schema: name, Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Errors = append(verr.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return verr
}

// ValidateValue encodes v as JSON and validates it
func ValidateValue(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &DocumentError{Cause: err}
	}
	return Validate(name, string(data))
}
