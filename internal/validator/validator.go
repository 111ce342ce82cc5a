package validator

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rescuedash/shelter-dashboard/internal/domain"
)

//go:embed record.schema.json
var recordSchema []byte

const schemaURL = "record.schema.json"

var printer = message.NewPrinter(language.English)

// ValidationError lists every violation found in a record payload.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "invalid record: " + strings.Join(e.Details, "; ")
}

// RecordValidator checks record payloads against the outcome record schema.
type RecordValidator struct {
	schema *jsonschema.Schema
}

// NewRecordValidator compiles the embedded record schema.
func NewRecordValidator() (*RecordValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(recordSchema))
	if err != nil {
		return nil, fmt.Errorf("parsing record schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("adding record schema: %w", err)
	}

	compiled, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling record schema: %w", err)
	}

	return &RecordValidator{schema: compiled}, nil
}

// Validate returns a *ValidationError when rec violates the schema.
func (v *RecordValidator) Validate(rec domain.Record) error {
	err := v.schema.Validate(map[string]interface{}(rec))
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ValidationError{Details: []string{err.Error()}}
	}

	details := collect(ve, nil)
	if len(details) == 0 {
		details = []string{ve.Error()}
	}
	sort.Strings(details)
	return &ValidationError{Details: details}
}

// collect gathers the leaf errors of a validation tree as "path: message".
func collect(err *jsonschema.ValidationError, out []string) []string {
	if err.ErrorKind != nil && len(err.Causes) == 0 {
		msg := err.ErrorKind.LocalizedString(printer)
		if len(err.InstanceLocation) > 0 {
			msg = "/" + strings.Join(err.InstanceLocation, "/") + ": " + msg
		}
		out = append(out, msg)
	}
	for _, cause := range err.Causes {
		out = collect(cause, out)
	}
	return out
}
