package models

import "fmt"

// ValidationError reports invalid input on a create or update request.
// The build is never started when creation fails validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports an unknown engine, document, thread or job id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewNotFoundError creates a NotFoundError for the given resource and id
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NoDocumentsIndexedError reports a build that discovered zero indexable
// documents. The batch job ends failed and the engine has no queryable chunks.
type NoDocumentsIndexedError struct {
	EngineID string
	Reason   string
}

func (e *NoDocumentsIndexedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("no documents indexed for engine %s: %s", e.EngineID, e.Reason)
	}
	return fmt.Sprintf("no documents indexed for engine %s", e.EngineID)
}

// FilterSyntaxError reports a malformed query filter. The query is rejected
// before any vector store call.
type FilterSyntaxError struct {
	Field   string
	Message string
}

func (e *FilterSyntaxError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid filter on field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid filter: %s", e.Message)
}

// NewFilterSyntaxError creates a FilterSyntaxError for the given field
func NewFilterSyntaxError(field, message string) *FilterSyntaxError {
	return &FilterSyntaxError{Field: field, Message: message}
}
