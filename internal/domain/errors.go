package domain

import "fmt"

// Error types for consistent error handling across the pipeline.
// The registry client classifies every upstream failure into one of these;
// nothing escapes it unclassified.

// ErrNotFound indicates the registry has no record for a CUIT in a given
// category (HTTP 404 upstream). Expected and non-fatal.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates malformed input: a client-side rejected CUIT or
// an upstream HTTP 400.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrExternalService indicates a transport failure or an unclassified HTTP
// status from the registry API.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrBadPayload indicates a structurally present but malformed upstream
// response: the flatteners reject it instead of letting defaulted values
// propagate into aggregation.
type ErrBadPayload struct {
	Category string
	Reason   string
}

func (e *ErrBadPayload) Error() string {
	return fmt.Sprintf("bad %s payload: %s", e.Category, e.Reason)
}

// ErrCircuitOpen indicates the circuit breaker is open for the registry API.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrEmptyBatch indicates an aggregation request that yielded zero valid
// CUITs. The batch is the unit of fatal failure: it aborts eagerly instead
// of returning an empty report.
type ErrEmptyBatch struct{}

func (e *ErrEmptyBatch) Error() string {
	return "no valid CUIT/CUIL/CDI identifiers to process"
}
