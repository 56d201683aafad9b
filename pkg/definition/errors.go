package definition

import "fmt"

// MissingFieldError is returned by Build when a required field was never set.
type MissingFieldError struct {
	Entity string
	ID     string
	Field  string
}

func (e *MissingFieldError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: required field %q missing", e.Entity, e.Field)
	}
	return fmt.Sprintf("%s %q: required field %q missing", e.Entity, e.ID, e.Field)
}

// FieldError records a value rejected by a builder setter.
type FieldError struct {
	Entity string
	ID     string
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: field %q: %s", e.Entity, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %q: field %q: %s", e.Entity, e.ID, e.Field, e.Reason)
}
