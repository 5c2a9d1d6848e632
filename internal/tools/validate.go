package tools

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dbwizard/dbwizard/internal/models"
)

// defaultPrinter formats schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// ValidationKind distinguishes the two ways a proposed call can be invalid.
type ValidationKind string

const (
	// KindUnknownOperation means the call named an operation that is not
	// in the catalog.
	KindUnknownOperation ValidationKind = "unknown_operation"
	// KindInvalidArguments means the operation exists but the arguments
	// failed schema validation or decoding.
	KindInvalidArguments ValidationKind = "invalid_arguments"
)

// ValidationError rejects a proposed call before it touches the database.
type ValidationError struct {
	Kind      ValidationKind
	Operation string
	Problems  []string
	Hint      string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Operation)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Operation, strings.Join(e.Problems, "; "))
}

// Validate checks a proposed call against the catalog: the operation must
// exist, the arguments must satisfy its schema, and they must decode into
// the operation's typed parameters. Validation does no I/O.
func (r *Registry) Validate(call models.ToolCall) (Operation, error) {
	_, schema, ok := r.lookup(call.Operation)
	if !ok {
		return nil, &ValidationError{
			Kind:      KindUnknownOperation,
			Operation: call.Operation,
			Problems:  []string{fmt.Sprintf("operation %q is not available", call.Operation)},
			Hint:      "available operations: " + strings.Join(r.Names(), ", "),
		}
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}

	if problems := validateAgainstSchema(schema, normalizeInstance(args)); len(problems) > 0 {
		return nil, &ValidationError{
			Kind:      KindInvalidArguments,
			Operation: call.Operation,
			Problems:  problems,
		}
	}

	op, err := decodeParams(call.Operation, args)
	if err != nil {
		return nil, &ValidationError{
			Kind:      KindInvalidArguments,
			Operation: call.Operation,
			Problems:  []string{err.Error()},
		}
	}
	return op, nil
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var problems []string
	collectSchemaErrors(ve, &problems)
	return problems
}

func collectSchemaErrors(ve *jsonschema.ValidationError, problems *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*problems = append(*problems, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, problems)
	}
}

// normalizeInstance rebuilds the argument map with plain JSON-compatible
// types so the schema validator sees what the wire JSON carried.
func normalizeInstance(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[k] = normalizeInstance(v2)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v2 := range val {
			result[i] = normalizeInstance(v2)
		}
		return result
	default:
		return val
	}
}
