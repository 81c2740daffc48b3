package settings

import (
	"fmt"
	"strings"
)

// FieldError describes one schema violation.
type FieldError struct {
	Field   string
	Line    int
	Message string
}

func (e FieldError) String() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d)\n  %s", e.Field, e.Line, e.Message)
	}
	return fmt.Sprintf("%s\n  %s", e.Field, e.Message)
}

// ValidationError collects every schema violation found while loading a
// settings document.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	noun := "errors"
	if len(e.Errors) == 1 {
		noun = "error"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d validation %s for ModelSettings", len(e.Errors), noun)
	for _, fe := range e.Errors {
		b.WriteString("\n")
		b.WriteString(fe.String())
	}
	return b.String()
}

func (e *ValidationError) add(field string, line int, format string, args ...interface{}) {
	e.Errors = append(e.Errors, FieldError{
		Field:   field,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	})
}

// Has reports whether key is among the offending fields.
func (e *ValidationError) Has(key string) bool {
	for _, fe := range e.Errors {
		if fe.Field == key {
			return true
		}
	}
	return false
}

func (e *ValidationError) orNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
